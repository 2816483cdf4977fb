// Package ai adapts a large-language-model completion endpoint into the
// extraction pipeline. It is always a fallback or enhancement stage: a
// malformed model response never raises past this boundary, it degrades to
// "no result" so the orchestrator can move on.
package ai

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/tx-extractor/internal/domain"
)

const (
	// statementTextLimit bounds how much raw text is sent on the
	// statement path.
	statementTextLimit = 15000

	// rateLimitAttempts is the total attempt budget on a 429.
	rateLimitAttempts = 3
)

// backoffSchedule holds the delays slept before the second and third
// attempts; the final attempt's failure is returned, not slept on.
var backoffSchedule = []time.Duration{time.Second, 2 * time.Second}

// StatementOutput is the parsed statement-level model response. Date fields
// stay raw; the date/time resolver owns parsing them.
type StatementOutput struct {
	Name           string
	StartDateText  string
	EndDateText    string
	OpeningBalance *decimal.Decimal
	ClosingBalance *decimal.Decimal
	Transactions   []*domain.ExtractedTransaction
}

// Options tune the extractor; zero values take the defaults below.
type Options struct {
	Temperature        float32
	MessageMaxTokens   int32
	StatementMaxTokens int32
}

// Extractor turns completion responses into transaction candidates.
type Extractor struct {
	client CompletionClient
	log    zerolog.Logger
	opts   Options

	// sleep is swapped out by tests.
	sleep func(time.Duration)
}

// NewExtractor wires an Extractor over any CompletionClient.
func NewExtractor(client CompletionClient, log zerolog.Logger, opts Options) *Extractor {
	if opts.Temperature == 0 {
		opts.Temperature = 0.1
	}
	if opts.MessageMaxTokens == 0 {
		opts.MessageMaxTokens = 500
	}
	if opts.StatementMaxTokens == 0 {
		opts.StatementMaxTokens = 4000
	}
	return &Extractor{client: client, log: log, opts: opts, sleep: time.Sleep}
}

// ExtractMessage asks the model for a single transaction from free-form
// message text. Rate-limit responses are retried with exponential backoff;
// any other provider failure is terminal for this stage. A response that
// does not parse, or whose amount is not positive, returns (nil, nil).
func (e *Extractor) ExtractMessage(ctx context.Context, text string) (*domain.ExtractedTransaction, error) {
	req := CompletionRequest{
		SystemPrompt: messageSystemPrompt,
		UserPrompt:   text,
		Temperature:  e.opts.Temperature,
		MaxTokens:    e.opts.MessageMaxTokens,
		JSONMode:     true,
	}

	var resp *CompletionResponse
	var err error
	for attempt := 1; attempt <= rateLimitAttempts; attempt++ {
		resp, err = e.client.Complete(ctx, req)
		if err == nil {
			break
		}
		if !IsRateLimited(err) {
			return nil, err
		}
		if attempt == rateLimitAttempts {
			return nil, &domain.RateLimitError{Provider: "gemini", Attempts: attempt}
		}
		delay := backoffSchedule[attempt-1]
		e.log.Warn().
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("completion rate limited, backing off")
		e.sleep(delay)
	}

	var obj map[string]interface{}
	if jerr := json.Unmarshal([]byte(CleanModelJSON(resp.Content)), &obj); jerr != nil {
		e.log.Warn().Err(jerr).Int32("tokens", resp.TokensUsed).Msg("discarding unparsable model output")
		return nil, nil
	}

	tx := transactionFromModel(obj, false)
	if tx == nil || !tx.HasAmount() {
		return nil, nil
	}
	return tx, nil
}

// ExtractStatement asks the model for a full statement object from raw
// statement text (first 15,000 characters). There is no retry on this path.
// A malformed response returns (nil, nil).
func (e *Extractor) ExtractStatement(ctx context.Context, text string) (*StatementOutput, error) {
	if len(text) > statementTextLimit {
		text = text[:statementTextLimit]
	}

	resp, err := e.client.Complete(ctx, CompletionRequest{
		SystemPrompt: statementSystemPrompt,
		UserPrompt:   text,
		Temperature:  e.opts.Temperature,
		MaxTokens:    e.opts.StatementMaxTokens,
		JSONMode:     true,
	})
	if err != nil {
		return nil, err
	}

	var obj map[string]interface{}
	if jerr := json.Unmarshal([]byte(CleanModelJSON(resp.Content)), &obj); jerr != nil {
		e.log.Warn().Err(jerr).Msg("discarding unparsable statement model output")
		return nil, nil
	}

	out := &StatementOutput{
		Name:          OptionalString(obj, "name"),
		StartDateText: OptionalString(obj, "startDate"),
		EndDateText:   OptionalString(obj, "endDate"),
	}
	if v, ok := OptionalFloat(obj, "openingBalance"); ok {
		d := decimal.NewFromFloat(v)
		out.OpeningBalance = &d
	}
	if v, ok := OptionalFloat(obj, "closingBalance"); ok {
		d := decimal.NewFromFloat(v)
		out.ClosingBalance = &d
	}

	items, _ := obj["transactions"].([]interface{})
	for _, item := range items {
		txObj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		tx := transactionFromModel(txObj, true)
		if tx == nil || !tx.HasAmount() {
			continue
		}
		if v, ok := OptionalFloat(txObj, "balanceAfterTransaction"); ok {
			d := decimal.NewFromFloat(v)
			tx.BalanceAfter = &d
		}
		out.Transactions = append(out.Transactions, tx)
	}
	return out, nil
}

// creditKeywords mark an inflow when they appear in the model's description
// or category; everything else defaults to DEBIT.
var creditKeywords = []string{"CREDIT", "DEPOSIT", "INCOME", "REFUND", "RECEIVED", "SALARY"}

// transactionFromModel validates and coerces one untrusted model object into
// a candidate. Returns nil when no usable amount is present: statement rows
// may carry a signed amount (money out printed negative), but on the message
// path the contract asks for a plain positive number, so anything else is a
// non-result and the caller falls through to the next strategy.
func transactionFromModel(obj map[string]interface{}, signedAmount bool) *domain.ExtractedTransaction {
	raw, ok := OptionalFloat(obj, "amount")
	if !ok || raw == 0 {
		return nil
	}
	if raw < 0 && !signedAmount {
		return nil
	}

	tx := &domain.ExtractedTransaction{
		Amount:      decimal.NewFromFloat(raw).Abs(),
		Currency:    domain.NormalizeCurrency(OptionalString(obj, "currency")),
		CardLast4:   domain.NormalizeCardLast4(OptionalString(obj, "cardLast4")),
		Merchant:    OptionalString(obj, "merchant"),
		Location:    OptionalString(obj, "location"),
		Description: OptionalString(obj, "description"),
		Category:    OptionalString(obj, "category"),
		DateText:    OptionalString(obj, "dateText"),
		TimeText:    OptionalString(obj, "timeText"),
		IsApplePay:  OptionalBool(obj, "isApplePay"),
		Type:        domain.TypeDebit,
		Source:      domain.SourceAI,
	}

	if domain.ContainsAny(tx.Description+" "+tx.Category, creditKeywords) {
		tx.Type = domain.TypeCredit
	}
	return tx
}
