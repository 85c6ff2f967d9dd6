package pipeline

import (
	"strings"

	"sales-pipeline/internal/model"
)

// headerAliases maps recognized header spellings to canonical field names.
// Lookup happens after lowercasing and trimming, so "Qty" and " QTY " both
// land on "quantity".
var headerAliases = map[string]string{
	"date":       "date",
	"day":        "date",
	"product":    "product",
	"item":       "product",
	"quantity":   "quantity",
	"qty":        "quantity",
	"price":      "price",
	"unit_price": "price",
}

// CanonicalFields are the four fields validation reads, in column order.
var CanonicalFields = []string{"date", "product", "quantity", "price"}

// Normalize lowercases and trims every column name and rewrites known
// aliases to canonical names. Unrecognized keys pass through unchanged
// (aside from the lowercase/trim); no structural validation happens here.
func Normalize(raw model.RawRecord) model.RawRecord {
	out := make(model.RawRecord, len(raw))
	for key, value := range raw {
		clean := strings.ToLower(strings.TrimSpace(key))
		clean = strings.ReplaceAll(clean, `"`, "")
		if canonical, ok := headerAliases[clean]; ok {
			clean = canonical
		}
		out[clean] = value
	}
	return out
}
