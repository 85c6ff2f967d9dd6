package model

import "github.com/shopspring/decimal"

// RawRecord is a schema-agnostic map for one CSV row, keyed by header name.
type RawRecord map[string]string

// Transaction is one validated sales row.
type Transaction struct {
	Date     string          `json:"date"` // YYYY-MM-DD
	Product  string          `json:"product"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Revenue returns quantity * price.
func (t Transaction) Revenue() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}

// Reason is a closed set of row rejection codes.
type Reason string

const (
	ReasonInvalidDate        Reason = "invalid_date"
	ReasonEmptyProduct       Reason = "empty_product"
	ReasonQuantityNonPos     Reason = "quantity_non_positive"
	ReasonQuantityNotInteger Reason = "quantity_not_integer"
	ReasonPriceNonPositive   Reason = "price_non_positive"
	ReasonPriceNotNumber     Reason = "price_not_number"
	ReasonTooFewColumns      Reason = "too_few_columns"
)

// Verdict is the outcome of validating one row. Invalid rows carry exactly
// one reason code: the first check that failed.
type Verdict struct {
	Valid  bool   `json:"valid"`
	Reason Reason `json:"reason,omitempty"`
}

// Accept returns a passing verdict.
func Accept() Verdict {
	return Verdict{Valid: true}
}

// Reject returns a failing verdict with the given reason.
func Reject(r Reason) Verdict {
	return Verdict{Valid: false, Reason: r}
}
