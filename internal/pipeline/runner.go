package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sales-pipeline/internal/config"
	"sales-pipeline/internal/model"
	"sales-pipeline/internal/store"
	"sales-pipeline/pkg/utils"
)

// stopPollStep bounds stop latency during the inter-cycle sleep.
const stopPollStep = 250 * time.Millisecond

// Runner owns the ingestion loop: it discovers input files, streams their
// rows through validation into the aggregate state, routes each finished
// file, and appends reports at the end of every cycle. The loop runs on its
// own goroutine and is the sole writer of the aggregate state and the sole
// mover of input files.
type Runner struct {
	cfg     *config.Config
	log     zerolog.Logger
	router  *Router
	reports *ReportWriter

	mu        sync.Mutex
	running   bool
	runID     string
	startedAt time.Time
	stopCh    chan struct{}
	doneCh    chan struct{}
	status    model.RunStatus
}

// NewRunner wires a runner from configuration.
func NewRunner(cfg *config.Config, log zerolog.Logger) *Runner {
	archive := utils.NewArchiveManager(cfg.ProcessedDir, cfg.ErrorDir)
	return &Runner{
		cfg:     cfg,
		log:     log,
		router:  NewRouter(cfg.ErrorThreshold, archive),
		reports: NewReportWriter(cfg.ReportDir),
	}
}

// Start begins a new ingestion run on a background goroutine and returns its
// run ID. Aggregates accumulate for the whole run; a later Start gets a
// fresh run ID and fresh aggregate state.
func (r *Runner) Start() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return "", errors.New("ingestion already running")
	}

	if err := os.MkdirAll(r.cfg.InputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create input directory: %w", err)
	}
	if err := r.router.Archive.EnsureDirs(); err != nil {
		return "", err
	}
	if err := r.reports.Init(); err != nil {
		return "", err
	}

	runID := uuid.New().String()
	if err := store.SaveRun(runID); err != nil {
		return "", fmt.Errorf("failed to register run: %w", err)
	}

	r.running = true
	r.runID = runID
	r.startedAt = time.Now()
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.status = model.RunStatus{Running: true, RunID: runID, StartedAt: r.startedAt, TotalRevenue: "0.00"}

	r.log.Info().Str("run_id", runID).Msg("ingestion started")
	store.SavePipelineLog(runID, "info", "ingestion started", nil)

	go r.loop(runID, r.stopCh, r.doneCh)
	return runID, nil
}

// Stop signals the loop to finish after the current cycle. It does not block
// for completion.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	select {
	case <-r.stopCh:
	default:
		close(r.stopCh)
	}
}

// Wait blocks until the loop goroutine has exited. Only the CLI and tests
// use this; the control surface never does.
func (r *Runner) Wait() {
	r.mu.Lock()
	done := r.doneCh
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

// IsRunning reports whether the loop is active.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Status returns a copy of the current run status.
func (r *Runner) Status() model.RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Runner) loop(runID string, stopCh chan struct{}, doneCh chan struct{}) {
	agg := NewAggregator()

	defer func() {
		store.UpdateRunStatus(runID, "stopped")
		r.log.Info().Str("run_id", runID).Msg("ingestion stopped")
		store.SavePipelineLog(runID, "info", "ingestion stopped", nil)

		r.mu.Lock()
		r.running = false
		r.status.Running = false
		r.mu.Unlock()
		close(doneCh)
	}()

	for {
		r.runCycle(runID, agg)

		if !r.waitNextCycle(stopCh) {
			return
		}
	}
}

// waitNextCycle sleeps for the polling interval in small increments so a
// stop signal is honored within stopPollStep. It returns false when the loop
// should exit.
func (r *Runner) waitNextCycle(stopCh <-chan struct{}) bool {
	deadline := time.Now().Add(r.cfg.PollDuration())
	ticker := time.NewTicker(stopPollStep)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return false
		case <-ticker.C:
			if !time.Now().Before(deadline) {
				return true
			}
		}
	}
}

// runCycle performs one Scanning → ProcessingFile → Routing → Reporting
// pass. Every failure is contained at row or file granularity; the cycle
// itself never returns an error.
func (r *Runner) runCycle(runID string, agg *Aggregator) {
	entries, err := os.ReadDir(r.cfg.InputDir)
	if err != nil {
		// The directory may be transiently unavailable; retry next cycle.
		r.log.Warn().Err(err).Str("dir", r.cfg.InputDir).Msg("input directory unavailable")
		store.SavePipelineLog(runID, "warning", "input directory unavailable", map[string]interface{}{
			"dir":   r.cfg.InputDir,
			"error": err.Error(),
		})
		return
	}

	var paths []string
	for _, entry := range entries {
		if !entry.IsDir() {
			paths = append(paths, filepath.Join(r.cfg.InputDir, entry.Name()))
		}
	}
	files := utils.SortedCSVFiles(paths)

	if len(files) == 0 {
		r.log.Info().Str("dir", r.cfg.InputDir).Msg("no CSV files found")
		return
	}

	r.log.Info().Str("run_id", runID).Int("files", len(files)).Msg("cycle started")

	rejected := 0
	for _, path := range files {
		outcome := r.processFile(runID, path, agg)
		if outcome.Route == model.RouteRejected {
			rejected++
		}
	}

	snap := agg.Snapshot()
	if err := r.reports.Append(runID, snap); err != nil {
		r.log.Error().Err(err).Msg("failed to append reports")
		store.SavePipelineLog(runID, "error", "failed to append reports", map[string]interface{}{
			"error": err.Error(),
		})
	}

	r.updateStatus(snap, int64(len(files)), int64(rejected))

	r.log.Info().
		Str("run_id", runID).
		Int64("rows", snap.Rows).
		Int64("valid", snap.Valid).
		Int64("invalid", snap.Invalid).
		Str("revenue", snap.Revenue.StringFixed(2)).
		Msg("cycle completed")
	store.SavePipelineLog(runID, "info", "cycle completed", map[string]interface{}{
		"files":   snap.Files,
		"rows":    snap.Rows,
		"valid":   snap.Valid,
		"invalid": snap.Invalid,
		"revenue": snap.Revenue.StringFixed(2),
	})
}

// processFile streams one file through validation and aggregation, then
// routes it. Structural read failures mark the file with the sentinel error
// count so it lands in the error area without crashing the loop.
func (r *Runner) processFile(runID, path string, agg *Aggregator) model.FileOutcome {
	outcome := model.FileOutcome{
		RunID:   runID,
		File:    filepath.Base(path),
		Reasons: make(map[model.Reason]int),
	}

	errorCount, structural := r.readRows(runID, path, agg, &outcome)
	agg.FileDone()

	if structural {
		outcome.Invalid = model.StructuralErrorCount
		errorCount = model.StructuralErrorCount
	}

	route, movedTo, err := r.router.Route(path, errorCount)
	outcome.Route = route
	outcome.MovedTo = movedTo
	outcome.CompletedAt = time.Now()
	if err != nil {
		r.log.Error().Err(err).Str("file", outcome.File).Msg("failed to move file")
		store.SavePipelineLog(runID, "error", "failed to move file", map[string]interface{}{
			"file":  outcome.File,
			"error": err.Error(),
		})
	}

	if route == model.RouteRejected {
		r.log.Warn().
			Str("file", outcome.File).
			Int("errors", errorCount).
			Int("threshold", r.router.Threshold).
			Msg("file routed to error area")
	} else {
		r.log.Info().
			Str("file", outcome.File).
			Int("rows", outcome.Rows).
			Int("errors", errorCount).
			Msg("file processed")
	}
	store.SavePipelineLog(runID, "info", "file completed", map[string]interface{}{
		"file":    outcome.File,
		"rows":    outcome.Rows,
		"valid":   outcome.Valid,
		"invalid": outcome.Invalid,
		"route":   string(route),
	})

	if err := store.SaveFileOutcome(outcome); err != nil {
		r.log.Error().Err(err).Str("file", outcome.File).Msg("failed to save file outcome")
	}
	return outcome
}

// readRows reads every data row of the file, skipping the header and fully
// blank rows, and folds valid rows into the aggregate. It returns the
// row-error count and whether the file failed structurally.
func (r *Runner) readRows(runID, path string, agg *Aggregator, outcome *model.FileOutcome) (int, bool) {
	f, err := os.Open(path)
	if err != nil {
		r.log.Error().Err(err).Str("file", path).Msg("failed to open file")
		store.SavePipelineLog(runID, "error", "failed to open file", map[string]interface{}{
			"file":  outcome.File,
			"error": err.Error(),
		})
		return 0, true
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return 0, false // empty file: zero rows, zero errors
	}
	if err != nil {
		r.log.Error().Err(err).Str("file", path).Msg("failed to read header")
		return 0, true
	}

	errorCount := 0
	for lineno := 2; ; lineno++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// The reader itself rejected the line; count it like any
			// other bad row and keep going.
			agg.Skip()
			outcome.Rows++
			outcome.Invalid++
			outcome.Reasons[model.ReasonTooFewColumns]++
			errorCount++
			r.log.Warn().Str("file", outcome.File).Int("line", lineno).Err(err).Msg("unreadable row")
			continue
		}

		if blankRecord(record) {
			continue
		}

		raw := make(model.RawRecord, len(header))
		for i, name := range header {
			if i < len(record) {
				raw[name] = record[i]
			}
		}

		tx, verdict := Validate(Normalize(raw))
		outcome.Rows++
		if !verdict.Valid {
			agg.Skip()
			outcome.Invalid++
			outcome.Reasons[verdict.Reason]++
			errorCount++
			r.log.Warn().
				Str("file", outcome.File).
				Int("line", lineno).
				Str("reason", string(verdict.Reason)).
				Msg("invalid row")
			continue
		}

		agg.Fold(tx)
		outcome.Valid++
	}

	return errorCount, false
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func (r *Runner) updateStatus(snap model.Snapshot, cycleFiles, cycleRejected int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.Cycles++
	r.status.FilesProcessed += cycleFiles - cycleRejected
	r.status.FilesRejected += cycleRejected
	r.status.Rows = snap.Rows
	r.status.ValidRows = snap.Valid
	r.status.InvalidRows = snap.Invalid
	r.status.TotalQuantity = snap.Quantity
	r.status.TotalRevenue = snap.Revenue.StringFixed(2)
}
