// Package store defines the narrow persistence contracts the extraction
// pipeline consumes. Entity CRUD beyond these lives in other services.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/tx-extractor/internal/domain"
)

// AccountRepository resolves bank accounts for one user.
type AccountRepository interface {
	// FindByID returns the account only when it belongs to userID;
	// (nil, nil) when nothing matches.
	FindByID(ctx context.Context, userID, accountID string) (*domain.BankAccount, error)

	// ListActiveByUser returns the user's active accounts.
	ListActiveByUser(ctx context.Context, userID string) ([]*domain.BankAccount, error)
}

// TransactionRepository persists accepted transactions and answers the
// duplicate-window query.
type TransactionRepository interface {
	// Exists reports whether a transaction is already stored for the
	// account and user with an exactly equal amount, the same date and the
	// same hour:minute (seconds ignored). A non-empty merchant narrows the
	// match to equal merchants; an empty merchant is a wildcard.
	Exists(ctx context.Context, accountID, userID string, amount decimal.Decimal, dateTime time.Time, merchant string) (bool, error)

	// Create stores an accepted transaction.
	Create(ctx context.Context, tx *domain.PersistedTransaction) error
}

// ReceiptRepository stores receipt metadata; the OCR fields are written
// asynchronously by the worker.
type ReceiptRepository interface {
	Insert(ctx context.Context, r *domain.Receipt) error
	Get(ctx context.Context, userID, receiptID string) (*domain.Receipt, error)

	// UpdateOCR overwrites status, error and the extracted fields of the
	// receipt identified by r.ID.
	UpdateOCR(ctx context.Context, r *domain.Receipt) error
}
