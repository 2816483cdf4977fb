package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a transaction.
type TransactionType string

const (
	TypeDebit  TransactionType = "DEBIT"
	TypeCredit TransactionType = "CREDIT"
)

// SourceStrategy tags which extraction stage produced a candidate.
// Diagnostic only; never used for duplicate detection.
type SourceStrategy string

const (
	SourceCSV     SourceStrategy = "CSV"
	SourcePDFText SourceStrategy = "PDF_TEXT"
	SourceRegex   SourceStrategy = "REGEX"
	SourceAI      SourceStrategy = "AI"
)

// ImportFormat identifies the file format of a statement import.
type ImportFormat string

const (
	FormatCSV ImportFormat = "CSV"
	FormatPDF ImportFormat = "PDF"
)

// ExtractedTransaction is one candidate transaction produced by the
// extraction pipeline. It is ephemeral: created per extraction attempt,
// discarded on validation failure or duplicate rejection, and only
// persisted once accepted.
//
// Invariants once a candidate is accepted:
//   - Amount is strictly positive (absolute value taken during parsing)
//   - Currency is a 3-letter uppercase code (defaulted from the account)
//   - DateTime is concrete (defaulted to now UTC when unresolvable)
//   - CardLast4 contains only digits
type ExtractedTransaction struct {
	Amount   decimal.Decimal
	Currency string

	CardLast4 string

	Merchant    string
	Location    string
	Description string
	Category    string

	// DateText and TimeText hold the raw strings the strategy matched;
	// parse.ResolveDateTime combines them into DateTime.
	DateText string
	TimeText string
	DateTime time.Time

	Type       TransactionType
	IsApplePay bool

	// BalanceAfter is only populated by statement-line extraction.
	BalanceAfter *decimal.Decimal

	Source SourceStrategy
}

// HasAmount reports whether the candidate carries a usable amount.
// A candidate without a positive amount is never accepted.
func (t *ExtractedTransaction) HasAmount() bool {
	return t.Amount.IsPositive()
}

// StatementExtraction is the result of a bulk file import: the accepted
// transactions plus statement-level summary fields.
type StatementExtraction struct {
	Transactions []*ExtractedTransaction

	StatementStart time.Time
	StatementEnd   time.Time
	OpeningBalance *decimal.Decimal
	ClosingBalance *decimal.Decimal

	ImportFormat ImportFormat
	ImportSource string // original filename

	// Import audit counts, filled by the orchestrator.
	Accepted   int
	Duplicates int
	Skipped    int
}

// BankAccount is the slice of the account entity this pipeline needs for
// resolution; full account CRUD lives elsewhere.
type BankAccount struct {
	ID            string
	UserID        string
	Name          string
	IBAN          string
	AccountNumber string
	Currency      string
	Active        bool
}

// PersistedTransaction is an accepted candidate after it has been handed
// to the persistence layer.
type PersistedTransaction struct {
	ID        string
	AccountID string
	UserID    string

	Amount       decimal.Decimal
	Currency     string
	DateTime     time.Time
	Type         TransactionType
	Merchant     string
	Location     string
	Description  string
	Category     string
	CardLast4    string
	IsApplePay   bool
	BalanceAfter *decimal.Decimal
	Source       SourceStrategy

	CreatedAt time.Time
}
