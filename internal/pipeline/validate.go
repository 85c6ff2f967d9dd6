package pipeline

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sales-pipeline/internal/model"
)

const dateLayout = "2006-01-02"

// Validate type-checks and range-checks one normalized row. Checks run in a
// fixed order (columns present, date, product, quantity, price) and stop at
// the first failure, so a rejected row carries exactly one reason code.
// On success the parsed transaction is returned alongside the verdict.
func Validate(row model.RawRecord) (model.Transaction, model.Verdict) {
	var tx model.Transaction

	for _, field := range CanonicalFields {
		if _, ok := row[field]; !ok {
			return tx, model.Reject(model.ReasonTooFewColumns)
		}
	}

	dateStr := strings.TrimSpace(row["date"])
	if _, err := time.Parse(dateLayout, dateStr); err != nil {
		return tx, model.Reject(model.ReasonInvalidDate)
	}

	product := strings.TrimSpace(row["product"])
	if product == "" {
		return tx, model.Reject(model.ReasonEmptyProduct)
	}

	qty, err := strconv.ParseInt(strings.TrimSpace(row["quantity"]), 10, 64)
	if err != nil {
		return tx, model.Reject(model.ReasonQuantityNotInteger)
	}
	if qty <= 0 {
		return tx, model.Reject(model.ReasonQuantityNonPos)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(row["price"]))
	if err != nil {
		return tx, model.Reject(model.ReasonPriceNotNumber)
	}
	if !price.IsPositive() {
		return tx, model.Reject(model.ReasonPriceNonPositive)
	}

	tx = model.Transaction{
		Date:     dateStr,
		Product:  product,
		Quantity: qty,
		Price:    price,
	}
	return tx, model.Accept()
}
