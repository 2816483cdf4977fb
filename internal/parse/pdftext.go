package parse

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/tx-extractor/internal/domain"
)

var (
	// A line only qualifies as a transaction row when it carries both a
	// date-shaped and an amount-shaped token. Reference numbers and page
	// furniture fail one of the two.
	pdfDateRe   = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`)
	pdfAmountRe = regexp.MustCompile(`[+-]?\$?\d{1,3}(?:,\d{3})*(?:\.\d{2})?`)
)

// maxPlausibleAmount rejects false positives where a reference or account
// number matched the amount pattern.
var maxPlausibleAmount = decimal.NewFromInt(1_000_000)

const pdfDescriptionLimit = 100

// ParsePDFStatementText extracts transactions from text pulled out of a
// PDF's text layer. It is lower-confidence than the CSV parser: rows are
// gated on a date token plus an amount token, and same-day same-amount rows
// collapse to one.
func ParsePDFStatementText(text string) *domain.StatementExtraction {
	result := &domain.StatementExtraction{ImportFormat: domain.FormatPDF}
	seen := make(map[string]bool)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		dateToken := pdfDateRe.FindString(line)
		if dateToken == "" {
			continue
		}
		// Date tokens are amount-shaped to the amount pattern ("01" out of
		// "01/05/2025"), so they are removed before the amount search.
		amountToken := pdfAmountRe.FindString(pdfDateRe.ReplaceAllString(line, ""))
		if amountToken == "" {
			continue
		}

		raw, ok := ParseAmount(amountToken)
		if !ok || raw.IsZero() || raw.Abs().GreaterThanOrEqual(maxPlausibleAmount) {
			continue
		}

		date, dateOK := ParseDate(dateToken)

		// Same-day same-amount entries collapse to one.
		dedupKey := dateToken + "|" + raw.Abs().String()
		if dateOK {
			dedupKey = date.Format("2006-01-02") + "|" + raw.Abs().String()
		}
		if seen[dedupKey] {
			continue
		}
		seen[dedupKey] = true

		desc := line
		if len(desc) > pdfDescriptionLimit {
			desc = desc[:pdfDescriptionLimit]
		}

		txType := domain.TypeDebit
		if strings.HasPrefix(amountToken, "+") {
			txType = domain.TypeCredit
		}

		tx := &domain.ExtractedTransaction{
			Amount:      raw.Abs(),
			DateText:    dateToken,
			Description: desc,
			Type:        txType,
			Source:      domain.SourcePDFText,
		}
		if dateOK {
			tx.DateTime = date
			if result.StatementStart.IsZero() || date.Before(result.StatementStart) {
				result.StatementStart = date
			}
			if date.After(result.StatementEnd) {
				result.StatementEnd = date
			}
		}
		result.Transactions = append(result.Transactions, tx)
	}
	return result
}
