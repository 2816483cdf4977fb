// Package extract orchestrates the extraction strategies: which stages run
// for which entry point, in what order, and what happens to their output.
package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/tx-extractor/internal/ai"
	"github.com/dvloznov/tx-extractor/internal/dedup"
	"github.com/dvloznov/tx-extractor/internal/domain"
	"github.com/dvloznov/tx-extractor/internal/parse"
	"github.com/dvloznov/tx-extractor/internal/ratelimit"
	"github.com/dvloznov/tx-extractor/internal/resolve"
	"github.com/dvloznov/tx-extractor/internal/store"
	"github.com/dvloznov/tx-extractor/internal/textacq"
)

// MessageHint carries optional caller-supplied routing for the message path.
type MessageHint struct {
	// AccountID, when set, bypasses card-suffix resolution.
	AccountID string
}

// MessageResult is the outcome of a single-message extraction.
type MessageResult struct {
	Transaction *domain.PersistedTransaction
	Account     *domain.BankAccount
	Strategy    domain.SourceStrategy
}

// Service runs the extraction pipeline end to end: acquire text, run the
// strategy chain for the entry point, resolve the account, reject
// duplicates, persist.
type Service struct {
	acquirer     *textacq.Acquirer
	aiExtractor  *ai.Extractor
	resolver     *resolve.Resolver
	detector     *dedup.Detector
	transactions store.TransactionRepository
	limiter      *ratelimit.PerUser
	log          zerolog.Logger

	// now and newID are swapped out by tests.
	now   func() time.Time
	newID func() string
}

func NewService(
	acquirer *textacq.Acquirer,
	aiExtractor *ai.Extractor,
	resolver *resolve.Resolver,
	detector *dedup.Detector,
	transactions store.TransactionRepository,
	limiter *ratelimit.PerUser,
	log zerolog.Logger,
) *Service {
	return &Service{
		acquirer:     acquirer,
		aiExtractor:  aiExtractor,
		resolver:     resolver,
		detector:     detector,
		transactions: transactions,
		limiter:      limiter,
		log:          log,
		now:          time.Now,
		newID:        func() string { return uuid.New().String() },
	}
}

// ExtractFromMessage handles bank notification text. The model runs first;
// any model failure, including exhausted rate-limit retries, silently falls
// back to the regex stage. Both stages empty is domain.ErrExtractionEmpty.
func (s *Service) ExtractFromMessage(ctx context.Context, userID, text string, hint MessageHint) (*MessageResult, error) {
	if err := s.limiter.Allow(userID); err != nil {
		return nil, err
	}

	tx, err := s.aiExtractor.ExtractMessage(ctx, text)
	if err != nil {
		s.log.Warn().Err(err).Msg("model extraction failed, falling back to regex")
	}
	if tx == nil {
		tx = parse.ExtractMessage(text)
	}
	if tx == nil || !tx.HasAmount() {
		return nil, domain.ErrExtractionEmpty
	}

	tx.DateTime = parse.ResolveDateTime(tx.DateText, tx.TimeText, s.now())

	account, err := s.resolver.Resolve(ctx, userID, hint.AccountID, tx.CardLast4)
	if err != nil {
		return nil, err
	}
	if tx.Currency == "" {
		tx.Currency = account.Currency
	}

	if err := s.detector.Check(ctx, account.ID, userID, tx.Amount, tx.DateTime, tx.Merchant); err != nil {
		return nil, err
	}

	persisted := s.persistable(tx, account, userID)
	if err := s.transactions.Create(ctx, persisted); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("transaction_id", persisted.ID).
		Str("account_id", account.ID).
		Str("strategy", string(tx.Source)).
		Str("amount", tx.Amount.String()).
		Msg("message transaction recorded")
	return &MessageResult{Transaction: persisted, Account: account, Strategy: tx.Source}, nil
}

// ExtractFromFile handles a statement file import into one explicit account.
// The deterministic parser for the detected format runs alone; the model
// statement pass is consulted only when it produces zero rows, and the two
// outputs are never merged. Both passes empty is domain.ErrExtractionEmpty.
// Duplicate rows are counted, not fatal.
func (s *Service) ExtractFromFile(ctx context.Context, userID, accountID, filename string, data []byte) (*domain.StatementExtraction, error) {
	if err := s.limiter.Allow(userID); err != nil {
		return nil, err
	}

	account, err := s.resolver.Resolve(ctx, userID, accountID, "")
	if err != nil {
		return nil, err
	}

	text, format, err := s.acquirer.FromFile(ctx, filename, data)
	if err != nil {
		return nil, err
	}

	var result *domain.StatementExtraction
	switch format {
	case domain.FormatCSV:
		result = parse.ParseCSVStatement(text)
	case domain.FormatPDF:
		result = parse.ParsePDFStatementText(text)
	}
	if result == nil {
		result = &domain.StatementExtraction{}
	}

	if len(result.Transactions) == 0 {
		s.log.Info().Str("filename", filename).Msg("deterministic parse empty, trying model statement pass")
		aiResult, aiErr := s.statementFromModel(ctx, text)
		if aiErr != nil {
			s.log.Warn().Err(aiErr).Msg("model statement pass failed")
		} else if aiResult != nil {
			result = aiResult
		}
	}
	if len(result.Transactions) == 0 {
		return nil, fmt.Errorf("%s: %w", filename, domain.ErrExtractionEmpty)
	}

	result.ImportFormat = format
	result.ImportSource = filename

	now := s.now()
	for _, tx := range result.Transactions {
		if !tx.HasAmount() {
			result.Skipped++
			continue
		}
		if tx.DateTime.IsZero() {
			tx.DateTime = parse.ResolveDateTime(tx.DateText, tx.TimeText, now)
		}
		if tx.Currency == "" {
			tx.Currency = account.Currency
		}

		err := s.detector.Check(ctx, account.ID, userID, tx.Amount, tx.DateTime, tx.Merchant)
		var dup *domain.DuplicateError
		if errors.As(err, &dup) {
			result.Duplicates++
			continue
		}
		if err != nil {
			return nil, err
		}

		if err := s.transactions.Create(ctx, s.persistable(tx, account, userID)); err != nil {
			return nil, err
		}
		result.Accepted++
	}

	s.log.Info().
		Str("filename", filename).
		Str("format", string(format)).
		Int("accepted", result.Accepted).
		Int("duplicates", result.Duplicates).
		Int("skipped", result.Skipped).
		Msg("statement import finished")
	return result, nil
}

// statementFromModel adapts the model's statement output into the common
// import result shape.
func (s *Service) statementFromModel(ctx context.Context, text string) (*domain.StatementExtraction, error) {
	out, err := s.aiExtractor.ExtractStatement(ctx, text)
	if err != nil {
		return nil, err
	}
	if out == nil || len(out.Transactions) == 0 {
		return nil, nil
	}

	result := &domain.StatementExtraction{
		Transactions:   out.Transactions,
		OpeningBalance: out.OpeningBalance,
		ClosingBalance: out.ClosingBalance,
	}
	if t, ok := parse.ParseDate(out.StartDateText); ok {
		result.StatementStart = t
	}
	if t, ok := parse.ParseDate(out.EndDateText); ok {
		result.StatementEnd = t
	}
	return result, nil
}

func (s *Service) persistable(tx *domain.ExtractedTransaction, account *domain.BankAccount, userID string) *domain.PersistedTransaction {
	return &domain.PersistedTransaction{
		ID:           s.newID(),
		AccountID:    account.ID,
		UserID:       userID,
		Amount:       tx.Amount,
		Currency:     tx.Currency,
		DateTime:     tx.DateTime.UTC(),
		Type:         tx.Type,
		Merchant:     tx.Merchant,
		Location:     tx.Location,
		Description:  tx.Description,
		Category:     tx.Category,
		CardLast4:    tx.CardLast4,
		IsApplePay:   tx.IsApplePay,
		BalanceAfter: tx.BalanceAfter,
		Source:       tx.Source,
		CreatedAt:    s.now().UTC(),
	}
}
