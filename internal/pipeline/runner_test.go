package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"sales-pipeline/internal/config"
	"sales-pipeline/internal/model"
	"sales-pipeline/internal/store"
)

func newTestRunner(t *testing.T) (*Runner, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.InputDir = filepath.Join(dir, "in")
	cfg.ProcessedDir = filepath.Join(dir, "out")
	cfg.ErrorDir = filepath.Join(dir, "err")
	cfg.ReportDir = filepath.Join(dir, "reports")
	cfg.DatabasePath = filepath.Join(dir, "pipeline.db")
	cfg.PollInterval = "10s"

	if err := store.InitDB(cfg.DatabasePath); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.CloseDB() })

	r := NewRunner(cfg, zerolog.Nop())
	if err := os.MkdirAll(cfg.InputDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := r.router.Archive.EnsureDirs(); err != nil {
		t.Fatal(err)
	}
	return r, cfg
}

func writeCSV(t *testing.T, dir, name, header string, rows [][]string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString(header + "\n")
	for _, row := range rows {
		b.WriteString(strings.Join(row, ",") + "\n")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	return len(entries)
}

// Scenario: a file with two bad rows among five stays within the threshold,
// contributes its three valid rows and lands in the processed area.
func TestCycleAcceptsFileWithinThreshold(t *testing.T) {
	r, cfg := newTestRunner(t)
	writeCSV(t, cfg.InputDir, "ok.csv", "date,product,qty,price", [][]string{
		{"2025-01-01", "A", "1", "10.0"},
		{"BAD_DATE", "B", "1", "10.0"},
		{"2025-01-01", "C", "x", "10.0"},
		{"2025-01-01", "D", "2", "20.0"},
		{"2025-01-01", "E", "3", "30.0"},
	})

	agg := NewAggregator()
	r.runCycle("run-a", agg)

	snap := agg.Snapshot()
	if snap.Valid != 3 || snap.Invalid != 2 {
		t.Errorf("valid/invalid = %d/%d, want 3/2", snap.Valid, snap.Invalid)
	}
	if want := decimal.NewFromInt(140); !snap.Revenue.Equal(want) {
		t.Errorf("revenue = %s, want %s", snap.Revenue, want)
	}
	if got := countFiles(t, cfg.ProcessedDir); got != 1 {
		t.Errorf("processed area has %d files, want 1", got)
	}
	if got := countFiles(t, cfg.ErrorDir); got != 0 {
		t.Errorf("error area has %d files, want 0", got)
	}
	if got := countFiles(t, cfg.InputDir); got != 0 {
		t.Errorf("input still has %d files", got)
	}
}

// Scenario: six invalid rows exceed the threshold of five, so the file is
// rejected and contributes nothing.
func TestCycleRejectsFileOverThreshold(t *testing.T) {
	r, cfg := newTestRunner(t)
	rows := make([][]string, 6)
	for i, p := range []string{"A", "B", "C", "D", "E", "F"} {
		rows[i] = []string{"BAD", p, "1", "10.0"}
	}
	writeCSV(t, cfg.InputDir, "bad.csv", "date,product,quantity,price", rows)

	agg := NewAggregator()
	r.runCycle("run-b", agg)

	snap := agg.Snapshot()
	if snap.Valid != 0 || snap.Invalid != 6 {
		t.Errorf("valid/invalid = %d/%d, want 0/6", snap.Valid, snap.Invalid)
	}
	if got := countFiles(t, cfg.ErrorDir); got != 1 {
		t.Errorf("error area has %d files, want 1", got)
	}
	if got := countFiles(t, cfg.ProcessedDir); got != 0 {
		t.Errorf("processed area has %d files, want 0", got)
	}
}

// Scenario: two files in one run both contribute to the same product bucket.
func TestCycleMergesBucketsAcrossFiles(t *testing.T) {
	r, cfg := newTestRunner(t)
	writeCSV(t, cfg.InputDir, "a.csv", "date,product,quantity,price", [][]string{
		{"2025-01-01", "X", "5", "10.0"},
	})
	writeCSV(t, cfg.InputDir, "b.csv", "date,product,quantity,price", [][]string{
		{"2025-01-02", "X", "3", "10.0"},
	})

	agg := NewAggregator()
	r.runCycle("run-c", agg)

	snap := agg.Snapshot()
	x := snap.ByProduct["X"]
	if x.Quantity != 8 {
		t.Errorf("X quantity = %d, want 8", x.Quantity)
	}
	if !x.Revenue.Equal(decimal.NewFromInt(80)) {
		t.Errorf("X revenue = %s, want 80", x.Revenue)
	}
	if snap.Files != 2 {
		t.Errorf("files = %d, want 2", snap.Files)
	}
}

// Aggregates accumulate across cycles within one run: the second cycle's
// report line includes the first cycle's rows.
func TestAggregatesAccumulateAcrossCycles(t *testing.T) {
	r, cfg := newTestRunner(t)
	agg := NewAggregator()

	writeCSV(t, cfg.InputDir, "c1.csv", "date,product,quantity,price", [][]string{
		{"2025-01-01", "A", "1", "10.0"},
	})
	r.runCycle("run-d", agg)

	writeCSV(t, cfg.InputDir, "c2.csv", "date,product,quantity,price", [][]string{
		{"2025-01-02", "B", "2", "5.0"},
	})
	r.runCycle("run-d", agg)

	snap := agg.Snapshot()
	if snap.Rows != 2 {
		t.Errorf("rows = %d, want 2 (cumulative)", snap.Rows)
	}
	if want := decimal.NewFromInt(20); !snap.Revenue.Equal(want) {
		t.Errorf("revenue = %s, want %s", snap.Revenue, want)
	}

	summaries, err := LoadRunSummaries(cfg.ReportDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 2 {
		t.Fatalf("summary has %d lines, want one per cycle", len(summaries))
	}
	if summaries[1].Rows != 2 {
		t.Errorf("second cycle summary rows = %d, want cumulative 2", summaries[1].Rows)
	}
}

// Blank rows and aliased headers are handled while streaming.
func TestCycleSkipsBlankRowsAndNormalizesHeaders(t *testing.T) {
	r, cfg := newTestRunner(t)
	writeCSV(t, cfg.InputDir, "mixed.csv", "Date,Product,Qty,Price", [][]string{
		{"2025-01-01", "A", "1", "10.0"},
		{"", "", "", ""},
		{"2025-01-01", "B", "2", "5.0"},
	})

	agg := NewAggregator()
	r.runCycle("run-e", agg)

	snap := agg.Snapshot()
	if snap.Rows != 2 || snap.Valid != 2 {
		t.Errorf("rows/valid = %d/%d, want 2/2 (blank row skipped)", snap.Rows, snap.Valid)
	}
}

// Cells past the end of the header row carry no column name: they are
// dropped, and the row is still validated on its named fields.
func TestCycleIgnoresCellsBeyondHeader(t *testing.T) {
	r, cfg := newTestRunner(t)
	writeCSV(t, cfg.InputDir, "wide.csv", "date,product,quantity,price", [][]string{
		{"2025-01-01", "A", "2", "10.0", "stray"},
	})

	agg := NewAggregator()
	r.runCycle("run-w", agg)

	snap := agg.Snapshot()
	if snap.Rows != 1 || snap.Valid != 1 {
		t.Errorf("rows/valid = %d/%d, want 1/1", snap.Rows, snap.Valid)
	}
	if want := decimal.NewFromInt(20); !snap.Revenue.Equal(want) {
		t.Errorf("revenue = %s, want %s", snap.Revenue, want)
	}
}

// A file that cannot be opened gets the sentinel error count and is routed
// to the error area without touching the aggregate.
func TestProcessFileStructuralFailure(t *testing.T) {
	r, cfg := newTestRunner(t)
	agg := NewAggregator()

	outcome := r.processFile("run-f", filepath.Join(cfg.InputDir, "missing.csv"), agg)

	if outcome.Invalid != model.StructuralErrorCount {
		t.Errorf("invalid = %d, want sentinel %d", outcome.Invalid, model.StructuralErrorCount)
	}
	if outcome.Route != model.RouteRejected {
		t.Errorf("route = %q, want error", outcome.Route)
	}
	if snap := agg.Snapshot(); snap.Rows != 0 {
		t.Errorf("aggregate rows = %d, structural failure must not add rows", snap.Rows)
	}
}

// A missing input directory is a cycle-level condition: logged, retried next
// cycle, never fatal.
func TestCycleSurvivesMissingInputDir(t *testing.T) {
	r, cfg := newTestRunner(t)
	if err := os.RemoveAll(cfg.InputDir); err != nil {
		t.Fatal(err)
	}

	agg := NewAggregator()
	r.runCycle("run-g", agg) // must not panic

	if snap := agg.Snapshot(); snap.Rows != 0 {
		t.Errorf("rows = %d, want 0", snap.Rows)
	}
}

func TestStartStopLifecycle(t *testing.T) {
	r, _ := newTestRunner(t)

	runID, err := r.Start()
	if err != nil {
		t.Fatal(err)
	}
	if runID == "" {
		t.Error("Start returned empty run id")
	}
	if !r.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}
	if got := r.Status().TotalRevenue; got != "0.00" {
		t.Errorf("initial status revenue = %q, want 0.00", got)
	}
	if _, err := r.Start(); err == nil {
		t.Error("second Start did not fail")
	}

	stopped := time.Now()
	r.Stop()
	r.Wait()
	if elapsed := time.Since(stopped); elapsed > 2*time.Second {
		t.Errorf("stop latency %v exceeds bound", elapsed)
	}
	if r.IsRunning() {
		t.Error("IsRunning() = true after Wait")
	}

	// A fresh run can be started afterwards.
	if _, err := r.Start(); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	r.Stop()
	r.Wait()
}

func TestStatusReflectsCycleTotals(t *testing.T) {
	r, cfg := newTestRunner(t)
	writeCSV(t, cfg.InputDir, "s.csv", "date,product,quantity,price", [][]string{
		{"2025-01-01", "A", "2", "10.0"},
	})

	agg := NewAggregator()
	r.runCycle("run-h", agg)

	status := r.Status()
	if status.Rows != 1 || status.ValidRows != 1 {
		t.Errorf("status rows/valid = %d/%d, want 1/1", status.Rows, status.ValidRows)
	}
	if status.TotalRevenue != "20.00" {
		t.Errorf("status revenue = %s, want 20.00", status.TotalRevenue)
	}
	if status.FilesProcessed != 1 || status.FilesRejected != 0 {
		t.Errorf("files processed/rejected = %d/%d", status.FilesProcessed, status.FilesRejected)
	}
}
