package dedup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/tx-extractor/internal/domain"
	"github.com/dvloznov/tx-extractor/internal/store/inmemory"
)

func TestCheck(t *testing.T) {
	s := inmemory.New()
	base := time.Date(2025, 11, 14, 21, 31, 0, 0, time.UTC)
	amount := decimal.NewFromFloat(84.30)

	existing := &domain.PersistedTransaction{
		ID:        "tx-1",
		AccountID: "acc-1",
		UserID:    "user-1",
		Amount:    amount,
		DateTime:  base,
		Merchant:  "Dan Beverage Company",
	}
	if err := s.Create(context.Background(), existing); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	d := NewDetector(s, zerolog.Nop())

	err := d.Check(context.Background(), "acc-1", "user-1", amount, base.Add(30*time.Second), "Dan Beverage Company")
	var dup *domain.DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateError, got %v", err)
	}
	if !dup.Amount.Equal(amount) {
		t.Errorf("duplicate error amount = %s", dup.Amount)
	}

	if err := d.Check(context.Background(), "acc-1", "user-1", amount, base.Add(2*time.Minute), "Dan Beverage Company"); err != nil {
		t.Errorf("different minute should pass, got %v", err)
	}
	if err := d.Check(context.Background(), "acc-1", "user-1", decimal.NewFromInt(999), base, "Dan Beverage Company"); err != nil {
		t.Errorf("different amount should pass, got %v", err)
	}

	// A candidate without a merchant matches any stored merchant.
	err = d.Check(context.Background(), "acc-1", "user-1", amount, base, "")
	if !errors.As(err, &dup) {
		t.Errorf("empty candidate merchant should act as wildcard, got %v", err)
	}
}
