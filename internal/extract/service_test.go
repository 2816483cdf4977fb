package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/tx-extractor/internal/ai"
	"github.com/dvloznov/tx-extractor/internal/dedup"
	"github.com/dvloznov/tx-extractor/internal/domain"
	"github.com/dvloznov/tx-extractor/internal/ratelimit"
	"github.com/dvloznov/tx-extractor/internal/resolve"
	"github.com/dvloznov/tx-extractor/internal/store/inmemory"
	"github.com/dvloznov/tx-extractor/internal/textacq"
)

// stubClient returns the same completion (or error) for every call.
type stubClient struct {
	content string
	err     error
}

func (s *stubClient) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.CompletionResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &ai.CompletionResponse{Content: s.content}, nil
}

var testNow = time.Date(2025, 11, 14, 21, 31, 17, 0, time.UTC)

func newTestService(client ai.CompletionClient, limit int) (*Service, *inmemory.Store) {
	store := inmemory.New()
	store.AddAccount(&domain.BankAccount{
		ID:            "acc-1",
		UserID:        "u1",
		Name:          "Main",
		AccountNumber: "000012341234",
		Currency:      "SAR",
		Active:        true,
	})

	log := zerolog.Nop()
	svc := NewService(
		textacq.New(nil, log),
		ai.NewExtractor(client, log, ai.Options{}),
		resolve.NewResolver(store, log),
		dedup.NewDetector(store, log),
		store,
		ratelimit.New(limit, time.Hour),
		log,
	)
	svc.now = func() time.Time { return testNow }

	id := 0
	svc.newID = func() string {
		id++
		return fmt.Sprintf("tx-%d", id)
	}
	return svc, store
}

const messageText = "POS Purchase Card: Visa card XX1234 Amount: SAR 84.30 " +
	"Merchant: Dan Beverage Company On: 2025-11-14 21:31:17 In: Riyadh"

func TestExtractFromMessage_ModelFirst(t *testing.T) {
	client := &stubClient{content: `{
		"amount": 84.30,
		"currency": "SAR",
		"cardLast4": "1234",
		"merchant": "Dan Beverage Company",
		"dateText": "2025-11-14",
		"timeText": "21:31:17"
	}`}
	svc, store := newTestService(client, 100)

	result, err := svc.ExtractFromMessage(context.Background(), "u1", messageText, MessageHint{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Strategy != domain.SourceAI {
		t.Errorf("strategy = %s, want AI", result.Strategy)
	}
	if result.Account.ID != "acc-1" {
		t.Errorf("account = %s, want acc-1 (card suffix)", result.Account.ID)
	}

	tx := result.Transaction
	if !tx.Amount.Equal(decimal.NewFromFloat(84.30)) {
		t.Errorf("amount = %s", tx.Amount)
	}
	want := time.Date(2025, 11, 14, 21, 31, 17, 0, time.UTC)
	if !tx.DateTime.Equal(want) {
		t.Errorf("date_time = %s, want %s", tx.DateTime, want)
	}

	if got := store.Transactions(); len(got) != 1 {
		t.Errorf("persisted %d transactions, want 1", len(got))
	}
}

func TestExtractFromMessage_FallsBackToRegexOnModelError(t *testing.T) {
	client := &stubClient{err: &domain.ProviderError{Provider: "gemini", StatusCode: http.StatusInternalServerError, Body: "boom"}}
	svc, _ := newTestService(client, 100)

	result, err := svc.ExtractFromMessage(context.Background(), "u1", messageText, MessageHint{})
	if err != nil {
		t.Fatalf("model failure must fall back, got %v", err)
	}
	if result.Strategy != domain.SourceRegex {
		t.Errorf("strategy = %s, want REGEX", result.Strategy)
	}
	if result.Transaction.Merchant != "Dan Beverage Company" {
		t.Errorf("merchant = %q", result.Transaction.Merchant)
	}
}

func TestExtractFromMessage_FallsBackWhenModelOutputUnusable(t *testing.T) {
	client := &stubClient{content: "sorry, I cannot help with that"}
	svc, _ := newTestService(client, 100)

	result, err := svc.ExtractFromMessage(context.Background(), "u1", messageText, MessageHint{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Strategy != domain.SourceRegex {
		t.Errorf("strategy = %s, want REGEX", result.Strategy)
	}
}

func TestExtractFromMessage_NegativeModelAmountFallsBack(t *testing.T) {
	client := &stubClient{content: `{"amount": -84.30, "merchant": "Dan Beverage Company"}`}
	svc, _ := newTestService(client, 100)

	result, err := svc.ExtractFromMessage(context.Background(), "u1", messageText, MessageHint{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Strategy != domain.SourceRegex {
		t.Errorf("strategy = %s, want REGEX (negative model amount is a non-result)", result.Strategy)
	}
	if !result.Transaction.Amount.Equal(decimal.NewFromFloat(84.30)) {
		t.Errorf("amount = %s, want 84.30 from the message text", result.Transaction.Amount)
	}
}

func TestExtractFromMessage_BothStagesEmpty(t *testing.T) {
	client := &stubClient{content: "{}"}
	svc, _ := newTestService(client, 100)

	_, err := svc.ExtractFromMessage(context.Background(), "u1", "no transaction in here", MessageHint{})
	if !errors.Is(err, domain.ErrExtractionEmpty) {
		t.Fatalf("expected ErrExtractionEmpty, got %v", err)
	}
}

func TestExtractFromMessage_DuplicateOnResubmit(t *testing.T) {
	client := &stubClient{content: `{
		"amount": 84.30,
		"merchant": "Dan Beverage Company",
		"cardLast4": "1234",
		"dateText": "2025-11-14",
		"timeText": "21:31:17"
	}`}
	svc, store := newTestService(client, 100)

	if _, err := svc.ExtractFromMessage(context.Background(), "u1", messageText, MessageHint{}); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}

	_, err := svc.ExtractFromMessage(context.Background(), "u1", messageText, MessageHint{})
	var dup *domain.DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateError on resubmit, got %v", err)
	}

	if got := store.Transactions(); len(got) != 1 {
		t.Errorf("persisted %d transactions, want 1", len(got))
	}
}

func TestExtractFromMessage_CurrencyDefaultsFromAccount(t *testing.T) {
	client := &stubClient{content: `{"amount": 10, "cardLast4": "1234"}`}
	svc, _ := newTestService(client, 100)

	result, err := svc.ExtractFromMessage(context.Background(), "u1", "msg", MessageHint{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Transaction.Currency != "SAR" {
		t.Errorf("currency = %q, want SAR from account", result.Transaction.Currency)
	}
}

func TestExtractFromMessage_ExplicitAccountHint(t *testing.T) {
	client := &stubClient{content: `{"amount": 10}`}
	svc, _ := newTestService(client, 100)

	result, err := svc.ExtractFromMessage(context.Background(), "u1", "msg", MessageHint{AccountID: "acc-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Account.ID != "acc-1" {
		t.Errorf("account = %s", result.Account.ID)
	}
}

func TestExtractFromMessage_NoAccountMatch(t *testing.T) {
	client := &stubClient{content: `{"amount": 10, "cardLast4": "9999"}`}
	svc, _ := newTestService(client, 100)

	_, err := svc.ExtractFromMessage(context.Background(), "u1", "msg", MessageHint{})
	if !errors.Is(err, domain.ErrAccountNotResolved) {
		t.Fatalf("expected ErrAccountNotResolved, got %v", err)
	}
}

func TestExtractFromMessage_RateLimited(t *testing.T) {
	client := &stubClient{content: `{"amount": 10, "cardLast4": "1234"}`}
	svc, _ := newTestService(client, 1)

	if _, err := svc.ExtractFromMessage(context.Background(), "u1", "msg", MessageHint{}); err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	_, err := svc.ExtractFromMessage(context.Background(), "u1", "msg 2", MessageHint{})
	if !errors.Is(err, ratelimit.ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}
}

func TestExtractFromFile_CSV(t *testing.T) {
	client := &stubClient{content: "{}"}
	svc, store := newTestService(client, 100)

	csv := "Date,Amount,Type,Description,Balance\n" +
		"2025-01-05,\"1,500.00\",CREDIT,Salary,5000.00\n" +
		"2025-01-07,-120.50,DEBIT,Groceries,4879.50\n"

	result, err := svc.ExtractFromFile(context.Background(), "u1", "acc-1", "january.csv", []byte(csv))
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}

	if result.ImportFormat != domain.FormatCSV {
		t.Errorf("format = %s, want CSV", result.ImportFormat)
	}
	if result.ImportSource != "january.csv" {
		t.Errorf("source = %q", result.ImportSource)
	}
	if result.Accepted != 2 || result.Duplicates != 0 || result.Skipped != 0 {
		t.Errorf("counts = %d/%d/%d, want 2/0/0", result.Accepted, result.Duplicates, result.Skipped)
	}

	persisted := store.Transactions()
	if len(persisted) != 2 {
		t.Fatalf("persisted %d transactions, want 2", len(persisted))
	}
	for _, tx := range persisted {
		if tx.AccountID != "acc-1" || tx.UserID != "u1" {
			t.Errorf("transaction scoped wrong: %+v", tx)
		}
		if tx.Currency != "SAR" {
			t.Errorf("currency = %q, want account default", tx.Currency)
		}
	}
}

func TestExtractFromFile_ReimportCountsDuplicates(t *testing.T) {
	client := &stubClient{content: "{}"}
	svc, store := newTestService(client, 100)

	csv := "Date,Amount,Description\n2025-01-05,10.00,coffee\n2025-01-06,20.00,lunch\n"

	if _, err := svc.ExtractFromFile(context.Background(), "u1", "acc-1", "s.csv", []byte(csv)); err != nil {
		t.Fatalf("first import failed: %v", err)
	}
	result, err := svc.ExtractFromFile(context.Background(), "u1", "acc-1", "s.csv", []byte(csv))
	if err != nil {
		t.Fatalf("second import failed: %v", err)
	}

	if result.Accepted != 0 || result.Duplicates != 2 {
		t.Errorf("counts = %d accepted / %d duplicates, want 0/2", result.Accepted, result.Duplicates)
	}
	if got := store.Transactions(); len(got) != 2 {
		t.Errorf("persisted %d transactions, want 2", len(got))
	}
}

func TestExtractFromFile_ModelFallbackWhenDeterministicEmpty(t *testing.T) {
	client := &stubClient{content: `{
		"startDate": "2025-01-01",
		"endDate": "2025-01-31",
		"transactions": [
			{"amount": 42.00, "description": "from the model", "dateText": "2025-01-10"}
		]
	}`}
	svc, store := newTestService(client, 100)

	// A CSV the deterministic parser cannot interpret.
	csv := "This is not really a statement\njust some prose\n"

	result, err := svc.ExtractFromFile(context.Background(), "u1", "acc-1", "odd.csv", []byte(csv))
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}

	if result.Accepted != 1 {
		t.Fatalf("accepted = %d, want 1", result.Accepted)
	}
	persisted := store.Transactions()
	if len(persisted) != 1 || persisted[0].Source != domain.SourceAI {
		t.Errorf("persisted = %+v, want one AI-sourced row", persisted)
	}
	if result.StatementStart.Format("2006-01-02") != "2025-01-01" {
		t.Errorf("statement start = %s", result.StatementStart.Format("2006-01-02"))
	}
}

func TestExtractFromFile_NothingParseable(t *testing.T) {
	client := &stubClient{content: "{}"}
	svc, store := newTestService(client, 100)

	_, err := svc.ExtractFromFile(context.Background(), "u1", "acc-1", "odd.csv", []byte("just some prose\nno table here\n"))
	if !errors.Is(err, domain.ErrExtractionEmpty) {
		t.Fatalf("expected ErrExtractionEmpty when both passes find nothing, got %v", err)
	}
	if got := store.Transactions(); len(got) != 0 {
		t.Errorf("persisted %d transactions, want 0", len(got))
	}
}

func TestExtractFromFile_UnsupportedExtension(t *testing.T) {
	client := &stubClient{content: "{}"}
	svc, _ := newTestService(client, 100)

	_, err := svc.ExtractFromFile(context.Background(), "u1", "acc-1", "statement.xlsx", []byte("x"))
	if !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtractFromFile_UnknownAccount(t *testing.T) {
	client := &stubClient{content: "{}"}
	svc, _ := newTestService(client, 100)

	_, err := svc.ExtractFromFile(context.Background(), "u1", "acc-nope", "s.csv", []byte("Date,Amount\n2025-01-05,10.00\n"))
	if !errors.Is(err, domain.ErrAccountNotResolved) {
		t.Fatalf("expected ErrAccountNotResolved, got %v", err)
	}
}
