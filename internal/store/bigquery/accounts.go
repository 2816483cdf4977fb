package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/tx-extractor/internal/domain"
)

const accountsTable = "accounts"

// AccountRow mirrors the accounts table schema.
type AccountRow struct {
	AccountID     string `bigquery:"account_id"`
	UserID        string `bigquery:"user_id"`
	AccountName   string `bigquery:"account_name"`
	IBAN          string `bigquery:"iban"`
	AccountNumber string `bigquery:"account_number"`
	Currency      string `bigquery:"currency"`
	IsActive      bool   `bigquery:"is_active"`
}

func (row *AccountRow) toDomain() *domain.BankAccount {
	return &domain.BankAccount{
		ID:            row.AccountID,
		UserID:        row.UserID,
		Name:          row.AccountName,
		IBAN:          row.IBAN,
		AccountNumber: row.AccountNumber,
		Currency:      row.Currency,
		Active:        row.IsActive,
	}
}

// FindByID returns the account scoped to the user, or (nil, nil).
func (r *Repository) FindByID(ctx context.Context, userID, accountID string) (*domain.BankAccount, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT account_id, user_id, account_name, iban, account_number, currency, is_active
		FROM %s
		WHERE account_id = @account_id AND user_id = @user_id
		LIMIT 1
	`, r.table(accountsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "account_id", Value: accountID},
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindByID: query read: %w", err)
	}

	var row AccountRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindByID: iterating: %w", err)
	}
	return row.toDomain(), nil
}

// ListActiveByUser returns every active account of the user.
func (r *Repository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.BankAccount, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT account_id, user_id, account_name, iban, account_number, currency, is_active
		FROM %s
		WHERE user_id = @user_id AND is_active = TRUE
		ORDER BY account_id
	`, r.table(accountsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListActiveByUser: query read: %w", err)
	}

	var accounts []*domain.BankAccount
	for {
		var row AccountRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListActiveByUser: iterating: %w", err)
		}
		accounts = append(accounts, row.toDomain())
	}
	return accounts, nil
}
