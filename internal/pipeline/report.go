package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"sales-pipeline/internal/model"
)

// Report file names inside the report directory. External analytics reads
// these while the pipeline appends to them.
const (
	SummaryFileName = "summary.csv"
	ProductFileName = "by_product.csv"
	DateFileName    = "by_date.csv"
)

var (
	summaryHeader = []string{"run_id", "files", "rows", "valid", "invalid", "total_quantity", "total_revenue"}
	productHeader = []string{"run_id", "product", "total_quantity", "total_revenue"}
	dateHeader    = []string{"run_id", "date", "total_quantity", "total_revenue"}
)

// ReportWriter persists cumulative run statistics in append-only mode.
// Existing content is never rewritten; each Append only adds rows, flushed
// before returning so a concurrent reader sees whole lines.
type ReportWriter struct {
	Dir string
}

// NewReportWriter creates a writer rooted at dir.
func NewReportWriter(dir string) *ReportWriter {
	return &ReportWriter{Dir: dir}
}

// Init creates the report directory and the three report files with their
// header rows. Initialization is idempotent: a file that already exists and
// is non-empty is left untouched, so headers are never duplicated and prior
// runs' rows are never erased.
func (rw *ReportWriter) Init() error {
	if err := os.MkdirAll(rw.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	files := map[string][]string{
		SummaryFileName: summaryHeader,
		ProductFileName: productHeader,
		DateFileName:    dateHeader,
	}
	for name, header := range files {
		if err := initReportFile(filepath.Join(rw.Dir, name), header); err != nil {
			return err
		}
	}
	return nil
}

func initReportFile(path string, header []string) error {
	info, err := os.Stat(path)
	if err == nil && info.Size() > 0 {
		return nil
	}
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat report file %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create report file %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header to %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Sync()
}

// Append writes one summary line, one line per product and one line per date
// for the given run, all keyed by runID so multiple runs' outputs coexist.
func (rw *ReportWriter) Append(runID string, snap model.Snapshot) error {
	if err := rw.Init(); err != nil {
		return err
	}

	summary := [][]string{{
		runID,
		fmt.Sprintf("%d", snap.Files),
		fmt.Sprintf("%d", snap.Rows),
		fmt.Sprintf("%d", snap.Valid),
		fmt.Sprintf("%d", snap.Invalid),
		fmt.Sprintf("%d", snap.Quantity),
		snap.Revenue.StringFixed(2),
	}}
	if err := appendRows(filepath.Join(rw.Dir, SummaryFileName), summary); err != nil {
		return err
	}

	if err := appendRows(filepath.Join(rw.Dir, ProductFileName), productRows(runID, snap)); err != nil {
		return err
	}
	return appendRows(filepath.Join(rw.Dir, DateFileName), dateRows(runID, snap))
}

// productRows sorts products by revenue, highest first.
func productRows(runID string, snap model.Snapshot) [][]string {
	products := make([]string, 0, len(snap.ByProduct))
	for product := range snap.ByProduct {
		products = append(products, product)
	}
	sort.Slice(products, func(i, j int) bool {
		ri := snap.ByProduct[products[i]].Revenue
		rj := snap.ByProduct[products[j]].Revenue
		if ri.Equal(rj) {
			return products[i] < products[j]
		}
		return ri.GreaterThan(rj)
	})

	rows := make([][]string, 0, len(products))
	for _, product := range products {
		t := snap.ByProduct[product]
		rows = append(rows, []string{runID, product, fmt.Sprintf("%d", t.Quantity), t.Revenue.StringFixed(2)})
	}
	return rows
}

// dateRows sorts dates ascending.
func dateRows(runID string, snap model.Snapshot) [][]string {
	dates := make([]string, 0, len(snap.ByDate))
	for date := range snap.ByDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	rows := make([][]string, 0, len(dates))
	for _, date := range dates {
		t := snap.ByDate[date]
		rows = append(rows, []string{runID, date, fmt.Sprintf("%d", t.Quantity), t.Revenue.StringFixed(2)})
	}
	return rows
}

func appendRows(path string, rows [][]string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open report file %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to append to %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Sync()
}
