package parse

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/tx-extractor/internal/domain"
)

// Column heading fragments, matched case-insensitively as substrings.
var (
	typeHeadings = []string{"type", "debit", "credit"}
	descHeadings = []string{"description", "details", "memo"}
	refHeadings  = []string{"reference", "ref"}
)

var (
	creditMarkers = []string{"CREDIT", "DEPOSIT", "INCOME"}
	debitMarkers  = []string{"DEBIT", "WITHDRAWAL", "PAYMENT"}
)

// ParseCSVStatement extracts transactions from CSV statement text. It never
// fails: inputs it cannot interpret (too few lines, no date or amount
// column) produce an empty result, and individual rows with unparsable
// dates or non-positive amounts are skipped, so one bad row never sinks a
// file.
func ParseCSVStatement(text string) *domain.StatementExtraction {
	result := &domain.StatementExtraction{ImportFormat: domain.FormatCSV}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 {
		return result
	}

	header := splitCSVLine(lines[0])
	dateIdx := findColumn(header, "date")
	amountIdx := findColumn(header, "amount")
	if dateIdx < 0 || amountIdx < 0 {
		return result
	}
	typeIdx := findColumnAny(header, typeHeadings)
	descIdx := findColumnAny(header, descHeadings)
	refIdx := findColumnAny(header, refHeadings)
	balanceIdx := findColumn(header, "balance")

	var firstBalance, lastBalance *decimal.Decimal

	for _, line := range lines[1:] {
		fields := splitCSVLine(line)

		date, ok := ParseDate(field(fields, dateIdx))
		if !ok {
			continue
		}
		raw, ok := ParseAmount(field(fields, amountIdx))
		if !ok || raw.IsZero() {
			continue
		}

		tx := &domain.ExtractedTransaction{
			Amount:   raw.Abs(),
			DateText: field(fields, dateIdx),
			DateTime: date,
			Type:     rowType(field(fields, typeIdx), raw),
			Source:   domain.SourceCSV,
		}

		tx.Description = field(fields, descIdx)
		if tx.Description == "" {
			tx.Description = field(fields, refIdx)
		}

		if bal, ok := ParseAmount(field(fields, balanceIdx)); ok {
			b := bal
			tx.BalanceAfter = &b
			if firstBalance == nil {
				firstBalance = &b
			}
			lastBalance = &b
		}

		if result.StatementStart.IsZero() || date.Before(result.StatementStart) {
			result.StatementStart = date
		}
		if date.After(result.StatementEnd) {
			result.StatementEnd = date
		}
		result.Transactions = append(result.Transactions, tx)
	}

	if firstBalance != nil && firstBalance.IsPositive() {
		result.OpeningBalance = firstBalance
	}
	if lastBalance != nil && lastBalance.IsPositive() {
		result.ClosingBalance = lastBalance
	}
	return result
}

// rowType classifies a row from its type column when one exists, otherwise
// from the sign of the raw amount (negative = money out).
func rowType(typeField string, raw decimal.Decimal) domain.TransactionType {
	if typeField != "" {
		if domain.ContainsAny(typeField, creditMarkers) {
			return domain.TypeCredit
		}
		if domain.ContainsAny(typeField, debitMarkers) {
			return domain.TypeDebit
		}
	}
	if raw.IsNegative() {
		return domain.TypeDebit
	}
	return domain.TypeCredit
}

// splitCSVLine splits one CSV line with quote awareness: a quoted field may
// contain commas, and a doubled quote inside a quoted field is an escaped
// literal quote. Intentionally tolerant of ragged rows — a malformed line
// yields whatever fields it has and the row-level checks discard it.
func splitCSVLine(line string) []string {
	var fields []string
	var b strings.Builder
	inQuotes := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				b.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case c == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(b.String()))
			b.Reset()
		default:
			b.WriteByte(c)
		}
	}
	fields = append(fields, strings.TrimSpace(b.String()))
	return fields
}

func findColumn(header []string, fragment string) int {
	for i, h := range header {
		if strings.Contains(strings.ToLower(h), fragment) {
			return i
		}
	}
	return -1
}

func findColumnAny(header []string, fragments []string) int {
	for _, f := range fragments {
		if i := findColumn(header, f); i >= 0 {
			return i
		}
	}
	return -1
}

func field(fields []string, idx int) string {
	if idx < 0 || idx >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[idx])
}
