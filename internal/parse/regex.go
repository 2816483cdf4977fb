package parse

import (
	"regexp"
	"strings"

	"github.com/dvloznov/tx-extractor/internal/domain"
)

// The heuristic extractor pulls fields out of free-form notification text.
// Every field is independent and best-effort: patterns are tried in order,
// the first hit wins, and a miss just leaves the field empty. Only the
// amount is mandatory for the result to count as an extraction.

const numberPattern = `\d[\d,]*(?:\.\d+)?`

var (
	currencyAlternation = strings.Join(isoCurrencyCodes, "|")

	amountRes = []*regexp.Regexp{
		// "SAR 84.30"
		regexp.MustCompile(`(?i)\b(?:` + currencyAlternation + `)\s*(` + numberPattern + `)`),
		// "84.30 SAR"
		regexp.MustCompile(`(?i)(` + numberPattern + `)\s*(?:` + currencyAlternation + `)\b`),
		// "Amount: 84.30"
		regexp.MustCompile(`(?i)\bAmount\s*:?\s*(` + numberPattern + `)`),
		// "$84.30"
		regexp.MustCompile(`\$\s*(` + numberPattern + `)`),
		// "84.30 dollars"
		regexp.MustCompile(`(?i)(` + numberPattern + `)\s+dollars\b`),
	}

	currencyRe = regexp.MustCompile(`(?i)\b(` + currencyAlternation + `)\b`)

	cardRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bCard:\s*(?:Visa\s+card\s+)?(?:XX|\*+)?(\d{4})\b`),
		regexp.MustCompile(`(?i)\bVisa\s+card\s+(?:XX|\*+)?(\d{4})\b`),
		regexp.MustCompile(`(?i)\bCard\s+ending\s+in\s+(\d{4})\b`),
		regexp.MustCompile(`(?i)(?:XX|\*+)(\d{4})\b`),
		// Whitespace-delimited so the year of an ISO date never matches.
		regexp.MustCompile(`(?:^|\s)(\d{4})(?:\s|$)`),
	}

	merchantRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bMerchant:\s*([^\n]+)`),
		regexp.MustCompile(`(?i)\b(?:At|From):\s*([^\n]+)`),
	}

	locationRe = regexp.MustCompile(`(?i)\bIn:\s*([^\n]+)`)

	// Combined "On: 2025-11-14 21:31:17" style, preferred over the
	// date-only fallbacks.
	dateTimeRe = regexp.MustCompile(`(?i)(?:\b(?:On|Date):\s*)?(\d{4}-\d{2}-\d{2})[ T](\d{1,2}:\d{2}(?::\d{2})?)`)

	dateRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:On|Date):\s*(\d{4}-\d{2}-\d{2})`),
		regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`),
		regexp.MustCompile(`\b(\d{2}/\d{2}/\d{4})\b`),
		regexp.MustCompile(`\b(\d{2}-\d{2}-\d{4})\b`),
	}

	timeRe = regexp.MustCompile(`\b(\d{1,2}:\d{2}(?::\d{2})?)\b`)

	descriptionRe = regexp.MustCompile(`(?i)\b((?:POS Purchase|Purchase|Transaction|Payment)\b[^\n]*)`)
)

// fieldMarkers end a merchant/location capture; text after them belongs to
// an adjacent field, not the value.
var fieldMarkers = []string{
	" On:", " In:", " At:", " Date:", " Time:", " Card:", " Amount:", " Remaining", " Apple Pay",
}

// rejectedMerchantFragments indicate the merchant match drifted into an
// adjacent field and the candidate must be discarded.
var rejectedMerchantFragments = []string{"SAUDI ARABIA", "On:", "Remaining", "limit"}

var regexCreditMarkers = []string{"CREDIT", "DEPOSIT", "REFUND", "RECEIVED", "SALARY", "CREDITED"}

// ExtractMessage applies the pattern library to free-form SMS/notification
// text. Returns nil when no positive amount could be found; every other
// field is optional.
func ExtractMessage(text string) *domain.ExtractedTransaction {
	tx := &domain.ExtractedTransaction{
		Type:   domain.TypeDebit,
		Source: domain.SourceRegex,
	}

	for _, re := range amountRes {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if amount, ok := ParseAmount(m[1]); ok && amount.Abs().IsPositive() {
			tx.Amount = amount.Abs()
			break
		}
	}
	if !tx.HasAmount() {
		return nil
	}

	if m := currencyRe.FindStringSubmatch(text); m != nil {
		tx.Currency = strings.ToUpper(m[1])
	}

	for _, re := range cardRes {
		if m := re.FindStringSubmatch(text); m != nil {
			tx.CardLast4 = m[1]
			break
		}
	}

	for _, re := range merchantRes {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		candidate := truncateAtMarkers(m[1])
		if candidate == "" || domain.ContainsAny(candidate, rejectedMerchantFragments) {
			continue
		}
		tx.Merchant = candidate
		break
	}

	if m := locationRe.FindStringSubmatch(text); m != nil {
		tx.Location = truncateAtMarkers(m[1])
	}

	if m := dateTimeRe.FindStringSubmatch(text); m != nil {
		tx.DateText = m[1]
		tx.TimeText = m[2]
	} else {
		for _, re := range dateRes {
			if m := re.FindStringSubmatch(text); m != nil {
				tx.DateText = m[1]
				break
			}
		}
		if m := timeRe.FindStringSubmatch(text); m != nil {
			tx.TimeText = m[1]
		}
	}

	if m := descriptionRe.FindStringSubmatch(text); m != nil {
		tx.Description = strings.TrimSpace(m[1])
	}

	tx.IsApplePay = strings.Contains(strings.ToLower(text), "apple pay")

	if domain.ContainsAny(text, regexCreditMarkers) {
		tx.Type = domain.TypeCredit
	}
	return tx
}

func truncateAtMarkers(s string) string {
	cut := len(s)
	for _, marker := range fieldMarkers {
		if idx := strings.Index(s, marker); idx >= 0 && idx < cut {
			cut = idx
		}
	}
	return strings.TrimSpace(s[:cut])
}
