package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dvloznov/tx-extractor/internal/domain"
	"github.com/dvloznov/tx-extractor/internal/store/inmemory"
)

func newTestResolver() (*Resolver, *inmemory.Store) {
	s := inmemory.New()
	s.AddAccount(&domain.BankAccount{
		ID:            "acc-main",
		UserID:        "user-1",
		Name:          "Main",
		IBAN:          "SA4420000001234567891234",
		AccountNumber: "000012341234",
		Currency:      "SAR",
		Active:        true,
	})
	s.AddAccount(&domain.BankAccount{
		ID:            "acc-savings",
		UserID:        "user-1",
		Name:          "Savings",
		AccountNumber: "000098765678",
		Currency:      "SAR",
		Active:        true,
	})
	s.AddAccount(&domain.BankAccount{
		ID:            "acc-closed",
		UserID:        "user-1",
		AccountNumber: "000011110000",
		Active:        false,
	})
	return NewResolver(s, zerolog.Nop()), s
}

func TestResolve_ExplicitAccountID(t *testing.T) {
	r, _ := newTestResolver()

	account, err := r.Resolve(context.Background(), "user-1", "acc-main", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.ID != "acc-main" {
		t.Errorf("account = %s, want acc-main", account.ID)
	}
}

func TestResolve_ExplicitAccountFailures(t *testing.T) {
	r, _ := newTestResolver()

	tests := []struct {
		name      string
		userID    string
		accountID string
	}{
		{"unknown account", "user-1", "acc-missing"},
		{"other user's account", "user-2", "acc-main"},
		{"inactive account", "user-1", "acc-closed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), tt.userID, tt.accountID, "")
			if !errors.Is(err, domain.ErrAccountNotResolved) {
				t.Errorf("expected ErrAccountNotResolved, got %v", err)
			}
		})
	}
}

func TestResolve_CardSuffix(t *testing.T) {
	r, _ := newTestResolver()

	account, err := r.Resolve(context.Background(), "user-1", "", "1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.ID != "acc-main" {
		t.Errorf("account = %s, want acc-main (IBAN suffix)", account.ID)
	}

	account, err = r.Resolve(context.Background(), "user-1", "", "5678")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.ID != "acc-savings" {
		t.Errorf("account = %s, want acc-savings (account number suffix)", account.ID)
	}
}

func TestResolve_CardSuffixNormalized(t *testing.T) {
	r, _ := newTestResolver()

	// Masked card strings resolve through their trailing digits.
	account, err := r.Resolve(context.Background(), "user-1", "", "XX1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.ID != "acc-main" {
		t.Errorf("account = %s, want acc-main", account.ID)
	}
}

func TestResolve_NoMatch(t *testing.T) {
	r, _ := newTestResolver()

	tests := []struct {
		name      string
		cardLast4 string
	}{
		{"no suffix at all", ""},
		{"unknown suffix", "0001"},
		{"inactive account suffix", "0000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), "user-1", "", tt.cardLast4)
			if !errors.Is(err, domain.ErrAccountNotResolved) {
				t.Errorf("expected ErrAccountNotResolved, got %v", err)
			}
		})
	}
}

func TestResolve_CachesAccountListing(t *testing.T) {
	r, s := newTestResolver()

	if _, err := r.Resolve(context.Background(), "user-1", "", "1234"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A new account does not appear until the cache entry expires.
	s.AddAccount(&domain.BankAccount{
		ID:            "acc-new",
		UserID:        "user-1",
		AccountNumber: "000000004444",
		Active:        true,
	})
	if _, err := r.Resolve(context.Background(), "user-1", "", "4444"); !errors.Is(err, domain.ErrAccountNotResolved) {
		t.Errorf("expected cached listing to miss the new account, got %v", err)
	}

	r.cache.Flush()
	account, err := r.Resolve(context.Background(), "user-1", "", "4444")
	if err != nil {
		t.Fatalf("unexpected error after cache flush: %v", err)
	}
	if account.ID != "acc-new" {
		t.Errorf("account = %s, want acc-new", account.ID)
	}
}
