// Package inmemory is the map-backed store used by tests, the CLI and
// local runs without Google Cloud credentials. Data does not survive a
// restart.
package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/tx-extractor/internal/domain"
	"github.com/dvloznov/tx-extractor/internal/store"
)

// Store implements every repository interface in package store. Safe for
// concurrent use.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]*domain.BankAccount
	transactions []*domain.PersistedTransaction
	receipts     map[string]*domain.Receipt
}

func New() *Store {
	return &Store{
		accounts: make(map[string]*domain.BankAccount),
		receipts: make(map[string]*domain.Receipt),
	}
}

// AddAccount seeds an account (tests and CLI runs).
func (s *Store) AddAccount(a *domain.BankAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.accounts[a.ID] = &cp
}

func (s *Store) FindByID(ctx context.Context, userID, accountID string) (*domain.BankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[accountID]
	if !ok || a.UserID != userID {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (s *Store) ListActiveByUser(ctx context.Context, userID string) ([]*domain.BankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.BankAccount
	for _, a := range s.accounts {
		if a.UserID == userID && a.Active {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) Exists(ctx context.Context, accountID, userID string, amount decimal.Decimal, dateTime time.Time, merchant string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tx := range s.transactions {
		if tx.AccountID != accountID || tx.UserID != userID {
			continue
		}
		if !tx.Amount.Equal(amount) {
			continue
		}
		if !sameMinute(tx.DateTime, dateTime) {
			continue
		}
		// Empty candidate merchant is a wildcard.
		if merchant != "" && tx.Merchant != merchant {
			continue
		}
		return true, nil
	}
	return false, nil
}

func (s *Store) Create(ctx context.Context, tx *domain.PersistedTransaction) error {
	if tx.ID == "" {
		return fmt.Errorf("inmemory: transaction id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tx
	s.transactions = append(s.transactions, &cp)
	return nil
}

// Transactions returns a copy of everything stored (test helper).
func (s *Store) Transactions() []*domain.PersistedTransaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.PersistedTransaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		cp := *tx
		out = append(out, &cp)
	}
	return out
}

func (s *Store) Insert(ctx context.Context, r *domain.Receipt) error {
	if r.ID == "" {
		return fmt.Errorf("inmemory: receipt id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.receipts[r.ID] = &cp
	return nil
}

func (s *Store) Get(ctx context.Context, userID, receiptID string) (*domain.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.receipts[receiptID]
	if !ok || r.UserID != userID {
		return nil, fmt.Errorf("inmemory: receipt not found: %s", receiptID)
	}
	cp := *r
	return &cp, nil
}

func (s *Store) UpdateOCR(ctx context.Context, r *domain.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.receipts[r.ID]
	if !ok {
		return fmt.Errorf("inmemory: receipt not found: %s", r.ID)
	}
	existing.Status = r.Status
	existing.Error = r.Error
	existing.Amount = r.Amount
	existing.Merchant = r.Merchant
	existing.Date = r.Date
	existing.LineItems = r.LineItems
	existing.OCRProvider = r.OCRProvider
	existing.ProcessedAt = r.ProcessedAt
	return nil
}

func sameMinute(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day() &&
		a.Hour() == b.Hour() && a.Minute() == b.Minute()
}

var (
	_ store.AccountRepository     = (*Store)(nil)
	_ store.TransactionRepository = (*Store)(nil)
	_ store.ReceiptRepository     = (*Store)(nil)
)
