package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"sales-pipeline/internal/model"
)

// ProductTotal is one per-product line aggregated across runs.
type ProductTotal struct {
	Product  string `json:"product"`
	Quantity int64  `json:"total_quantity"`
	Revenue  string `json:"total_revenue"`
}

// DateTotal is one per-date line aggregated across runs.
type DateTotal struct {
	Date     string `json:"date"`
	Quantity int64  `json:"total_quantity"`
	Revenue  string `json:"total_revenue"`
}

// RunSummary is one summary report line.
type RunSummary struct {
	RunID    string `json:"run_id"`
	Files    int64  `json:"files"`
	Rows     int64  `json:"rows"`
	Valid    int64  `json:"valid"`
	Invalid  int64  `json:"invalid"`
	Quantity int64  `json:"total_quantity"`
	Revenue  string `json:"total_revenue"`
}

// LoadProductTotals reads the by-product report and sums quantity and
// revenue per product across all runs, sorted by revenue descending. This is
// the view the chart front end consumes.
func LoadProductTotals(reportDir string) ([]ProductTotal, error) {
	rows, err := readReport(filepath.Join(reportDir, ProductFileName))
	if err != nil {
		return nil, err
	}

	totals := sumLatestPerRun(rows)

	out := make([]ProductTotal, 0, len(totals))
	for product, t := range totals {
		out = append(out, ProductTotal{Product: product, Quantity: t.Quantity, Revenue: t.Revenue.StringFixed(2)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue == out[j].Revenue {
			return out[i].Product < out[j].Product
		}
		ri, _ := decimal.NewFromString(out[i].Revenue)
		rj, _ := decimal.NewFromString(out[j].Revenue)
		return ri.GreaterThan(rj)
	})
	return out, nil
}

// LoadDateTotals reads the by-date report and sums per date across runs,
// sorted by date ascending.
func LoadDateTotals(reportDir string) ([]DateTotal, error) {
	rows, err := readReport(filepath.Join(reportDir, DateFileName))
	if err != nil {
		return nil, err
	}

	totals := sumLatestPerRun(rows)

	out := make([]DateTotal, 0, len(totals))
	for date, t := range totals {
		out = append(out, DateTotal{Date: date, Quantity: t.Quantity, Revenue: t.Revenue.StringFixed(2)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// LoadRunSummaries reads the summary report, one line per appended cycle.
func LoadRunSummaries(reportDir string) ([]RunSummary, error) {
	rows, err := readReport(filepath.Join(reportDir, SummaryFileName))
	if err != nil {
		return nil, err
	}

	out := make([]RunSummary, 0, len(rows))
	for _, row := range rows {
		if len(row) < 7 {
			continue
		}
		s := RunSummary{RunID: row[0], Revenue: row[6]}
		s.Files, _ = strconv.ParseInt(row[1], 10, 64)
		s.Rows, _ = strconv.ParseInt(row[2], 10, 64)
		s.Valid, _ = strconv.ParseInt(row[3], 10, 64)
		s.Invalid, _ = strconv.ParseInt(row[4], 10, 64)
		s.Quantity, _ = strconv.ParseInt(row[5], 10, 64)
		out = append(out, s)
	}
	return out, nil
}

// readReport returns the data rows of a report file, header excluded. A
// missing report is an empty result, not an error.
func readReport(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open report %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	all, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read report %s: %w", path, err)
	}
	if len(all) <= 1 {
		return nil, nil
	}
	return all[1:], nil
}

// sumLatestPerRun reduces per-cycle report rows (run_id, key, quantity,
// revenue) to one totals bucket per key. Each cycle appends a cumulative
// snapshot, so within a run only its latest line for a key counts; those
// final lines are then summed across runs.
func sumLatestPerRun(rows [][]string) map[string]model.Totals {
	latest := make(map[string]map[string]model.Totals)
	for _, row := range rows {
		if len(row) < 4 {
			continue
		}
		qty, revenue, err := parseTotals(row[2], row[3])
		if err != nil {
			continue
		}
		byKey := latest[row[0]]
		if byKey == nil {
			byKey = make(map[string]model.Totals)
			latest[row[0]] = byKey
		}
		byKey[row[1]] = model.Totals{Quantity: qty, Revenue: revenue}
	}

	totals := make(map[string]model.Totals)
	for _, byKey := range latest {
		for key, final := range byKey {
			t := totals[key]
			t.Quantity += final.Quantity
			t.Revenue = t.Revenue.Add(final.Revenue)
			totals[key] = t
		}
	}
	return totals
}

func parseTotals(qtyStr, revenueStr string) (int64, decimal.Decimal, error) {
	qty, err := strconv.ParseInt(qtyStr, 10, 64)
	if err != nil {
		return 0, decimal.Zero, err
	}
	revenue, err := decimal.NewFromString(revenueStr)
	if err != nil {
		return 0, decimal.Zero, err
	}
	return qty, revenue, nil
}
