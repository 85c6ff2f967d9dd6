package pipeline

import (
	"github.com/shopspring/decimal"

	"sales-pipeline/internal/model"
)

// Aggregator maintains running totals across every row folded into it.
// It is owned by the ingestion loop and must not be mutated concurrently;
// callers needing a stable view take a Snapshot.
type Aggregator struct {
	files   int64
	rows    int64
	valid   int64
	invalid int64

	totalQuantity int64
	totalRevenue  decimal.Decimal

	byProduct map[string]model.Totals
	byDate    map[string]model.Totals
}

// NewAggregator returns an empty aggregate state.
func NewAggregator() *Aggregator {
	return &Aggregator{
		totalRevenue: decimal.Zero,
		byProduct:    make(map[string]model.Totals),
		byDate:       make(map[string]model.Totals),
	}
}

// Fold applies one validated transaction to the overall totals and to the
// per-product and per-date buckets. Buckets are created on first occurrence.
// The caller guarantees the row already passed validation; there is no
// failure mode here, so a row is always applied to all three aggregates.
func (a *Aggregator) Fold(tx model.Transaction) {
	revenue := tx.Revenue()

	p := a.byProduct[tx.Product]
	p.Quantity += tx.Quantity
	p.Revenue = p.Revenue.Add(revenue)
	a.byProduct[tx.Product] = p

	d := a.byDate[tx.Date]
	d.Quantity += tx.Quantity
	d.Revenue = d.Revenue.Add(revenue)
	a.byDate[tx.Date] = d

	a.totalQuantity += tx.Quantity
	a.totalRevenue = a.totalRevenue.Add(revenue)

	a.rows++
	a.valid++
}

// Skip counts a rejected row. Nothing else changes.
func (a *Aggregator) Skip() {
	a.rows++
	a.invalid++
}

// FileDone counts one fully-read input file.
func (a *Aggregator) FileDone() {
	a.files++
}

// Snapshot returns a deep copy of the current aggregate state.
func (a *Aggregator) Snapshot() model.Snapshot {
	snap := model.Snapshot{
		Files:     a.files,
		Rows:      a.rows,
		Valid:     a.valid,
		Invalid:   a.invalid,
		Quantity:  a.totalQuantity,
		Revenue:   a.totalRevenue,
		ByProduct: make(map[string]model.Totals, len(a.byProduct)),
		ByDate:    make(map[string]model.Totals, len(a.byDate)),
	}
	for product, totals := range a.byProduct {
		snap.ByProduct[product] = totals
	}
	for date, totals := range a.byDate {
		snap.ByDate[date] = totals
	}
	return snap
}
