package pipeline

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"sales-pipeline/internal/model"
)

func sampleSnapshot() model.Snapshot {
	return model.Snapshot{
		Files:    1,
		Rows:     3,
		Valid:    2,
		Invalid:  1,
		Quantity: 5,
		Revenue:  decimal.RequireFromString("140.00"),
		ByProduct: map[string]model.Totals{
			"A": {Quantity: 2, Revenue: decimal.RequireFromString("100.00")},
			"B": {Quantity: 3, Revenue: decimal.RequireFromString("40.00")},
		},
		ByDate: map[string]model.Totals{
			"2025-01-02": {Quantity: 3, Revenue: decimal.RequireFromString("40.00")},
			"2025-01-01": {Quantity: 2, Revenue: decimal.RequireFromString("100.00")},
		},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func TestReportInitIdempotent(t *testing.T) {
	dir := t.TempDir()
	rw := NewReportWriter(dir)

	if err := rw.Init(); err != nil {
		t.Fatal(err)
	}
	if err := rw.Append("run-1", sampleSnapshot()); err != nil {
		t.Fatal(err)
	}
	// A second Init must not duplicate headers or erase prior rows.
	if err := rw.Init(); err != nil {
		t.Fatal(err)
	}

	rows := readCSV(t, filepath.Join(dir, SummaryFileName))
	if len(rows) != 2 {
		t.Fatalf("summary has %d rows, want header + 1", len(rows))
	}
	if rows[0][0] != "run_id" {
		t.Errorf("first row is %v, want header", rows[0])
	}
	if rows[1][0] != "run-1" {
		t.Errorf("data row lost after re-init: %v", rows[1])
	}
}

func TestReportAppendAccumulates(t *testing.T) {
	dir := t.TempDir()
	rw := NewReportWriter(dir)

	if err := rw.Append("run-1", sampleSnapshot()); err != nil {
		t.Fatal(err)
	}
	if err := rw.Append("run-2", sampleSnapshot()); err != nil {
		t.Fatal(err)
	}

	summary := readCSV(t, filepath.Join(dir, SummaryFileName))
	if len(summary) != 3 {
		t.Fatalf("summary has %d rows, want header + 2", len(summary))
	}
	if summary[1][0] != "run-1" || summary[2][0] != "run-2" {
		t.Errorf("summary run ids = %s, %s", summary[1][0], summary[2][0])
	}
	if summary[1][6] != "140.00" {
		t.Errorf("summary revenue = %s, want 140.00", summary[1][6])
	}

	products := readCSV(t, filepath.Join(dir, ProductFileName))
	if len(products) != 5 {
		t.Fatalf("by_product has %d rows, want header + 4", len(products))
	}
	// Products sorted by revenue descending within each run.
	if products[1][1] != "A" || products[2][1] != "B" {
		t.Errorf("product order = %s, %s, want A, B", products[1][1], products[2][1])
	}

	dates := readCSV(t, filepath.Join(dir, DateFileName))
	if dates[1][1] != "2025-01-01" || dates[2][1] != "2025-01-02" {
		t.Errorf("date order = %s, %s, want ascending", dates[1][1], dates[2][1])
	}
}

func TestReportAnalyticsAggregateAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	rw := NewReportWriter(dir)

	if err := rw.Append("run-1", sampleSnapshot()); err != nil {
		t.Fatal(err)
	}
	if err := rw.Append("run-2", sampleSnapshot()); err != nil {
		t.Fatal(err)
	}

	products, err := LoadProductTotals(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 2 {
		t.Fatalf("got %d products, want 2", len(products))
	}
	if products[0].Product != "A" || products[0].Revenue != "200.00" || products[0].Quantity != 4 {
		t.Errorf("top product = %+v, want A with 200.00 / 4", products[0])
	}

	dates, err := LoadDateTotals(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(dates) != 2 || dates[0].Date != "2025-01-01" {
		t.Fatalf("dates = %+v", dates)
	}
	if dates[0].Revenue != "200.00" {
		t.Errorf("date revenue = %s, want 200.00", dates[0].Revenue)
	}

	summaries, err := LoadRunSummaries(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 2 || summaries[0].RunID != "run-1" || summaries[0].Rows != 3 {
		t.Errorf("summaries = %+v", summaries)
	}
}

// Each cycle appends a cumulative snapshot under the same run ID, so the
// cross-run loaders must count only a run's latest line per key, not every
// cycle's line.
func TestAnalyticsCountLatestCycleLinePerRun(t *testing.T) {
	dir := t.TempDir()
	rw := NewReportWriter(dir)

	cumulative := func(qty int64, revenue, date string) model.Snapshot {
		return model.Snapshot{
			Files:    1,
			Rows:     qty,
			Valid:    qty,
			Quantity: qty,
			Revenue:  decimal.RequireFromString(revenue),
			ByProduct: map[string]model.Totals{
				"X": {Quantity: qty, Revenue: decimal.RequireFromString(revenue)},
			},
			ByDate: map[string]model.Totals{
				date: {Quantity: qty, Revenue: decimal.RequireFromString(revenue)},
			},
		}
	}

	// Two cycles of one run: the second snapshot already contains the first.
	if err := rw.Append("run-1", cumulative(5, "50.00", "2025-01-01")); err != nil {
		t.Fatal(err)
	}
	if err := rw.Append("run-1", cumulative(8, "80.00", "2025-01-01")); err != nil {
		t.Fatal(err)
	}
	// A second run contributes its own final line.
	if err := rw.Append("run-2", cumulative(2, "20.00", "2025-01-01")); err != nil {
		t.Fatal(err)
	}

	products, err := LoadProductTotals(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 1 {
		t.Fatalf("got %d products, want 1", len(products))
	}
	if products[0].Quantity != 10 || products[0].Revenue != "100.00" {
		t.Errorf("X totals = qty %d revenue %s, want qty 10 revenue 100.00",
			products[0].Quantity, products[0].Revenue)
	}

	dates, err := LoadDateTotals(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(dates) != 1 {
		t.Fatalf("got %d dates, want 1", len(dates))
	}
	if dates[0].Quantity != 10 || dates[0].Revenue != "100.00" {
		t.Errorf("date totals = qty %d revenue %s, want qty 10 revenue 100.00",
			dates[0].Quantity, dates[0].Revenue)
	}
}

func TestAnalyticsMissingReportsAreEmpty(t *testing.T) {
	dir := t.TempDir()
	products, err := LoadProductTotals(dir)
	if err != nil {
		t.Fatalf("LoadProductTotals on empty dir: %v", err)
	}
	if len(products) != 0 {
		t.Errorf("got %d products from missing report", len(products))
	}
}
