package model

import "github.com/shopspring/decimal"

// Totals is one aggregation bucket: quantity and revenue.
type Totals struct {
	Quantity int64           `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// Snapshot is a point-in-time copy of the aggregate state, handed to the
// report writer at the end of each polling cycle. Maps are deep copies, so a
// snapshot stays stable while the loop keeps folding.
type Snapshot struct {
	Files     int64             `json:"files"`
	Rows      int64             `json:"rows"`
	Valid     int64             `json:"valid"`
	Invalid   int64             `json:"invalid"`
	Quantity  int64             `json:"quantity"`
	Revenue   decimal.Decimal   `json:"revenue"`
	ByProduct map[string]Totals `json:"by_product"`
	ByDate    map[string]Totals `json:"by_date"`
}
