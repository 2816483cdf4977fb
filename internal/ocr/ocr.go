// Package ocr defines the OCR collaborator contract used by text
// acquisition and receipt processing, plus a Gemini-backed implementation.
package ocr

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Result is what an OCR provider returns for one document. FullText is
// always the primary output; the structured fields are best-effort and may
// be absent.
type Result struct {
	FullText string

	Amount    *decimal.Decimal
	Date      *time.Time
	Merchant  string
	LineItems []string

	// Provider tags which backend produced the result, for diagnostics.
	Provider string
}

// Provider recognizes text in images and scanned PDFs.
type Provider interface {
	RecognizeImage(ctx context.Context, data []byte, mimeType string) (*Result, error)
	RecognizePDF(ctx context.Context, data []byte) (*Result, error)
}
