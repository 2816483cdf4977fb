package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/tx-extractor/internal/domain"
)

const transactionsTable = "transactions"

// TransactionRow mirrors the transactions table schema.
type TransactionRow struct {
	TransactionID string    `bigquery:"transaction_id"`
	AccountID     string    `bigquery:"account_id"`
	UserID        string    `bigquery:"user_id"`
	BookingTS     time.Time `bigquery:"booking_ts"`
	Amount        float64   `bigquery:"amount"`
	Currency      string    `bigquery:"currency"`
	Direction     string    `bigquery:"direction"`
	Merchant      string    `bigquery:"merchant"`
	Location      string    `bigquery:"location"`
	Description   string    `bigquery:"description"`
	Category      string    `bigquery:"category"`
	CardLast4     string    `bigquery:"card_last4"`
	IsApplePay    bool      `bigquery:"is_apple_pay"`

	BalanceAfter bigquery.NullFloat64 `bigquery:"balance_after"`

	Source    string    `bigquery:"source_strategy"`
	CreatedTS time.Time `bigquery:"created_ts"`
}

// Exists answers the duplicate-window query: exact amount, same account and
// user, timestamp equal down to the minute, and merchant equality only when
// the candidate has one.
func (r *Repository) Exists(ctx context.Context, accountID, userID string, amount decimal.Decimal, dateTime time.Time, merchant string) (bool, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT COUNT(*) AS n
		FROM %s
		WHERE account_id = @account_id
		  AND user_id = @user_id
		  AND amount = @amount
		  AND TIMESTAMP_TRUNC(booking_ts, MINUTE) = TIMESTAMP_TRUNC(@booking_ts, MINUTE)
		  AND (@merchant = '' OR merchant = @merchant)
	`, r.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "account_id", Value: accountID},
		{Name: "user_id", Value: userID},
		{Name: "amount", Value: amount.InexactFloat64()},
		{Name: "booking_ts", Value: dateTime.UTC()},
		{Name: "merchant", Value: merchant},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return false, fmt.Errorf("Exists: query read: %w", err)
	}

	var row struct {
		N int64 `bigquery:"n"`
	}
	if err := it.Next(&row); err != nil && err != iterator.Done {
		return false, fmt.Errorf("Exists: iterating: %w", err)
	}
	return row.N > 0, nil
}

// Create streams one accepted transaction into the table.
func (r *Repository) Create(ctx context.Context, tx *domain.PersistedTransaction) error {
	row := &TransactionRow{
		TransactionID: tx.ID,
		AccountID:     tx.AccountID,
		UserID:        tx.UserID,
		BookingTS:     tx.DateTime.UTC(),
		Amount:        tx.Amount.InexactFloat64(),
		Currency:      tx.Currency,
		Direction:     string(tx.Type),
		Merchant:      tx.Merchant,
		Location:      tx.Location,
		Description:   tx.Description,
		Category:      tx.Category,
		CardLast4:     tx.CardLast4,
		IsApplePay:    tx.IsApplePay,
		Source:        string(tx.Source),
		CreatedTS:     tx.CreatedAt.UTC(),
	}
	if tx.BalanceAfter != nil {
		row.BalanceAfter = bigquery.NullFloat64{Float64: tx.BalanceAfter.InexactFloat64(), Valid: true}
	}

	inserter := r.client.Dataset(r.dataset).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("Create: inserting row: %w", err)
	}
	return nil
}
