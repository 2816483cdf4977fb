package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Sentinel errors for the terminal failure modes of the pipeline.
// Provider-level failures are represented by the typed errors below and are
// normally converted into "try the next strategy" by the orchestrator;
// these sentinels abort the request.
var (
	// ErrAcquisitionFailed: no text could be derived from the input, even
	// after OCR fallback. Fatal for the request, never retried.
	ErrAcquisitionFailed = errors.New("no text could be derived from input")

	// ErrUnsupportedFormat: file extension or MIME type outside the
	// accepted set. The caller must resubmit with a supported format.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrExtractionEmpty: every strategy in the chain returned nothing
	// usable. The message names what a submission must contain.
	ErrExtractionEmpty = errors.New("could not extract a transaction: text must contain at least an amount, a date/time and a merchant")

	// ErrAccountNotResolved: neither the explicit account id nor the card
	// suffix matched an active account for the user.
	ErrAccountNotResolved = errors.New("no matching bank account found; provide an explicit account id")
)

// DuplicateError is the normal rejection outcome when a candidate matches an
// already-stored transaction (same account, amount, date-minute and, when
// present on the candidate, merchant).
type DuplicateError struct {
	Amount   decimal.Decimal
	DateTime time.Time
	Merchant string
}

func (e *DuplicateError) Error() string {
	if e.Merchant != "" {
		return fmt.Sprintf("duplicate transaction: %s at %s (%s) already recorded",
			e.Amount.StringFixed(2), e.DateTime.Format("2006-01-02 15:04"), e.Merchant)
	}
	return fmt.Sprintf("duplicate transaction: %s at %s already recorded",
		e.Amount.StringFixed(2), e.DateTime.Format("2006-01-02 15:04"))
}

// ProviderError is a non-success, non-rate-limit response from the AI or OCR
// provider. It carries enough context to diagnose without re-running; the
// body is truncated by the adapter before it gets here.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error: status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// RateLimitError is returned once the rate-limit retry budget is exhausted.
// Before that point the adapter retries internally and callers never see it.
type RateLimitError struct {
	Provider string
	Attempts int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s provider rate limited after %d attempts", e.Provider, e.Attempts)
}
