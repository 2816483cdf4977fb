// Package parse holds the deterministic extraction strategies: amount and
// date normalization, the CSV statement parser, the tabular PDF text parser
// and the heuristic regex extractor for free-form message text.
package parse

import (
	"strings"

	"github.com/shopspring/decimal"
)

// amountCleaner strips thousands separators, currency symbols and
// parentheses before decimal parsing. The literal token "PHP" is removed
// too; it marks currency in some exports but must contribute nothing to
// the numeric value.
var amountCleaner = strings.NewReplacer(
	",", "",
	"$", "",
	"₱", "",
	"(", "",
	")", "",
	" ", "",
	"PHP", "",
	"php", "",
)

// ParseAmount parses a raw amount string, keeping the sign. Callers take
// the absolute value and use the raw sign for direction inference.
func ParseAmount(s string) (decimal.Decimal, bool) {
	cleaned := amountCleaner.Replace(strings.TrimSpace(s))
	if cleaned == "" || cleaned == "-" || cleaned == "+" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
