// Package dedup decides whether a candidate transaction was already
// recorded for the account.
package dedup

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/tx-extractor/internal/domain"
	"github.com/dvloznov/tx-extractor/internal/store"
)

// Detector checks candidates against the transaction repository. Two
// transactions collide when the amount matches exactly, the timestamps agree
// down to the minute, and the merchants agree. A candidate without a merchant
// matches any stored merchant.
type Detector struct {
	repo store.TransactionRepository
	log  zerolog.Logger
}

func NewDetector(repo store.TransactionRepository, log zerolog.Logger) *Detector {
	return &Detector{repo: repo, log: log}
}

// Check returns a *domain.DuplicateError when a matching transaction already
// exists, nil when the candidate is new.
func (d *Detector) Check(ctx context.Context, accountID, userID string, amount decimal.Decimal, dateTime time.Time, merchant string) error {
	exists, err := d.repo.Exists(ctx, accountID, userID, amount, dateTime, merchant)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	d.log.Debug().
		Str("account_id", accountID).
		Str("amount", amount.String()).
		Time("date_time", dateTime).
		Str("merchant", merchant).
		Msg("duplicate transaction detected")
	return &domain.DuplicateError{
		Amount:   amount,
		DateTime: dateTime,
		Merchant: merchant,
	}
}
