package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptStatus tracks background OCR processing of an uploaded receipt.
type ReceiptStatus string

const (
	ReceiptPending   ReceiptStatus = "PENDING"
	ReceiptProcessed ReceiptStatus = "PROCESSED"
	ReceiptFailed    ReceiptStatus = "FAILED"
)

// Receipt is an uploaded receipt image. The upload response returns it in
// PENDING state; a background worker runs OCR and fills the extracted
// fields in place. Callers re-fetch by ID to observe completion.
type Receipt struct {
	ID       string
	UserID   string
	Filename string
	MimeType string
	BlobURI  string

	Status ReceiptStatus
	Error  string

	// Best-effort OCR fields, populated asynchronously.
	Amount      *decimal.Decimal
	Merchant    string
	Date        *time.Time
	LineItems   []string
	OCRProvider string

	UploadedAt  time.Time
	ProcessedAt *time.Time
}
