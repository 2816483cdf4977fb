// Package resolve maps an extraction result onto one of the user's bank
// accounts.
package resolve

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/dvloznov/tx-extractor/internal/domain"
	"github.com/dvloznov/tx-extractor/internal/store"
)

const (
	cacheTTL     = 30 * time.Second
	cacheCleanup = time.Minute
)

// Resolver picks the target account for a transaction. An explicit account id
// wins; otherwise the card suffix from the message is matched against the
// tail of each active account's IBAN or account number. Account listings are
// cached per user for a short window so statement imports do not hammer the
// store once per row.
type Resolver struct {
	accounts store.AccountRepository
	cache    *gocache.Cache
	log      zerolog.Logger
}

func NewResolver(accounts store.AccountRepository, log zerolog.Logger) *Resolver {
	return &Resolver{
		accounts: accounts,
		cache:    gocache.New(cacheTTL, cacheCleanup),
		log:      log,
	}
}

// Resolve returns the account the transaction belongs to.
//
// When accountID is set the account must exist, belong to the user and be
// active. When only cardLast4 is available the user's active accounts are
// scanned for a matching suffix and the first match wins. Everything else is
// domain.ErrAccountNotResolved.
func (r *Resolver) Resolve(ctx context.Context, userID, accountID, cardLast4 string) (*domain.BankAccount, error) {
	if accountID != "" {
		account, err := r.accounts.FindByID(ctx, userID, accountID)
		if err != nil {
			return nil, err
		}
		if account == nil || !account.Active {
			return nil, domain.ErrAccountNotResolved
		}
		return account, nil
	}

	suffix := domain.NormalizeCardLast4(cardLast4)
	if suffix == "" {
		return nil, domain.ErrAccountNotResolved
	}

	accounts, err := r.listActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, account := range accounts {
		if matchesSuffix(account, suffix) {
			return account, nil
		}
	}
	r.log.Debug().Str("user_id", userID).Str("card_last4", suffix).Msg("no account matches card suffix")
	return nil, domain.ErrAccountNotResolved
}

func (r *Resolver) listActive(ctx context.Context, userID string) ([]*domain.BankAccount, error) {
	if cached, ok := r.cache.Get(userID); ok {
		return cached.([]*domain.BankAccount), nil
	}
	accounts, err := r.accounts.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	r.cache.Set(userID, accounts, gocache.DefaultExpiration)
	return accounts, nil
}

func matchesSuffix(account *domain.BankAccount, suffix string) bool {
	if account.IBAN != "" && strings.HasSuffix(account.IBAN, suffix) {
		return true
	}
	return account.AccountNumber != "" && strings.HasSuffix(account.AccountNumber, suffix)
}
