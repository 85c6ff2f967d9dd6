package generator

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sales-pipeline/internal/config"
)

// products is a realistic catalog for synthetic sales rows.
var products = []string{
	"Samsung 55-inch LED TV",
	"LG Smart Refrigerator",
	"Apple iPhone 15",
	"OnePlus Nord CE 5G",
	"Sony Noise-Cancelling Headphones",
	"Dell Inspiron Laptop",
	"HP Pavilion Laptop",
	"Xiaomi Mi 11 Mobile",
	"Whirlpool Washing Machine",
	"Bosch Dishwasher",
	"Panasonic Microwave Oven",
	"Philips Air Purifier",
	"Bajaj Mixer Grinder",
	"LG Air Conditioner",
	"Haier Deep Freezer",
	"Canon DSLR Camera",
	"Lenovo Tablet",
	"Boat Bluetooth Speaker",
	"Samsung Galaxy Watch",
	"Apple iPad Air",
}

// Generator writes synthetic sales CSVs into the input directory on a timer.
// A configurable fraction of rows is intentionally malformed so the
// validation path gets exercised.
type Generator struct {
	cfg *config.Config
	log zerolog.Logger
	rng *rand.Rand

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewGenerator wires a generator from configuration.
func NewGenerator(cfg *config.Config, log zerolog.Logger) *Generator {
	return &Generator{
		cfg: cfg,
		log: log,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start begins generating files on a background goroutine.
func (g *Generator) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return errors.New("generator already running")
	}
	if err := os.MkdirAll(g.cfg.InputDir, 0755); err != nil {
		return fmt.Errorf("failed to create input directory: %w", err)
	}

	g.running = true
	g.stopCh = make(chan struct{})
	g.doneCh = make(chan struct{})
	g.log.Info().
		Str("dir", g.cfg.InputDir).
		Str("interval", g.cfg.GeneratorInterval().String()).
		Msg("generator started")

	go g.loop(g.stopCh, g.doneCh)
	return nil
}

// Stop signals the generator to exit. It does not block.
func (g *Generator) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.running {
		return
	}
	select {
	case <-g.stopCh:
	default:
		close(g.stopCh)
	}
}

// Wait blocks until the generator goroutine has exited.
func (g *Generator) Wait() {
	g.mu.Lock()
	done := g.doneCh
	g.mu.Unlock()
	if done != nil {
		<-done
	}
}

// IsRunning reports whether the generator is active.
func (g *Generator) IsRunning() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

func (g *Generator) loop(stopCh chan struct{}, doneCh chan struct{}) {
	defer func() {
		g.mu.Lock()
		g.running = false
		g.mu.Unlock()
		g.log.Info().Msg("generator stopped")
		close(doneCh)
	}()

	ticker := time.NewTicker(g.cfg.GeneratorInterval())
	defer ticker.Stop()

	for {
		if path, err := g.WriteFile(); err != nil {
			g.log.Error().Err(err).Msg("failed to generate file")
		} else {
			g.log.Info().Str("file", filepath.Base(path)).Int("rows", g.cfg.Generator.RowsPerFile).Msg("generated file")
		}

		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}
	}
}

// WriteFile creates one synthetic CSV in the input directory and returns its
// path. File names carry a timestamp and a short uuid so concurrent
// generators never collide.
func (g *Generator) WriteFile() (string, error) {
	name := fmt.Sprintf("sales_auto_%s_%s.csv",
		time.Now().Format("20060102_150405"), uuid.New().String()[:8])
	path := filepath.Join(g.cfg.InputDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Date", "Product", "Quantity", "Price"}); err != nil {
		return "", err
	}

	rows := g.cfg.Generator.RowsPerFile
	if rows <= 0 {
		rows = 100
	}
	for i := 0; i < rows; i++ {
		if err := w.Write(g.row()); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return path, nil
}

func (g *Generator) row() []string {
	if g.rng.Float64() < g.cfg.Generator.ErrorRate {
		return g.malformedRow()
	}
	start := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	date := start.AddDate(0, 0, g.rng.Intn(30)).Format("2006-01-02")
	product := products[g.rng.Intn(len(products))]
	quantity := g.rng.Intn(10) + 1
	price := 5000 + g.rng.Float64()*145000
	return []string{date, product, fmt.Sprintf("%d", quantity), fmt.Sprintf("%.2f", price)}
}

// malformedRow produces one of the rejection cases so error-area routing can
// be observed end to end.
func (g *Generator) malformedRow() []string {
	product := products[g.rng.Intn(len(products))]
	switch g.rng.Intn(4) {
	case 0:
		return []string{"BAD_DATE", product, "1", "10.00"}
	case 1:
		return []string{"2025-11-01", "", "1", "10.00"}
	case 2:
		return []string{"2025-11-01", product, "x", "10.00"}
	default:
		return []string{"2025-11-01", product, "1", "-10.00"}
	}
}
