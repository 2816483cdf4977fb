package receipts

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/tx-extractor/internal/blobstore"
	"github.com/dvloznov/tx-extractor/internal/domain"
	"github.com/dvloznov/tx-extractor/internal/jobs"
	"github.com/dvloznov/tx-extractor/internal/ocr"
	"github.com/dvloznov/tx-extractor/internal/store/inmemory"
)

// capturingPublisher records published jobs instead of queueing them.
type capturingPublisher struct {
	jobs []*jobs.ReceiptOCRJob
	err  error
}

func (p *capturingPublisher) PublishReceiptOCR(ctx context.Context, job *jobs.ReceiptOCRJob) error {
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, job)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

type scriptedOCR struct {
	result *ocr.Result
	err    error
	panics bool
}

func (s *scriptedOCR) RecognizeImage(ctx context.Context, data []byte, mimeType string) (*ocr.Result, error) {
	if s.panics {
		panic("provider bug")
	}
	return s.result, s.err
}

func (s *scriptedOCR) RecognizePDF(ctx context.Context, data []byte) (*ocr.Result, error) {
	if s.panics {
		panic("provider bug")
	}
	return s.result, s.err
}

func newTestService(provider ocr.Provider) (*Service, *inmemory.Store, *capturingPublisher) {
	store := inmemory.New()
	publisher := &capturingPublisher{}
	svc := NewService(blobstore.NewInMemory(), store, publisher, provider, zerolog.Nop())
	return svc, store, publisher
}

func TestUpload(t *testing.T) {
	svc, store, publisher := newTestService(&scriptedOCR{})

	receipt, err := svc.Upload(context.Background(), "u1", "lunch.jpg", "image/jpeg", []byte("img"))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	if receipt.Status != domain.ReceiptPending {
		t.Errorf("status = %s, want PENDING", receipt.Status)
	}
	if receipt.BlobURI == "" {
		t.Error("expected a blob URI")
	}

	saved, err := store.Get(context.Background(), "u1", receipt.ID)
	if err != nil {
		t.Fatalf("receipt not recorded: %v", err)
	}
	if saved.Filename != "lunch.jpg" {
		t.Errorf("filename = %q", saved.Filename)
	}

	if len(publisher.jobs) != 1 {
		t.Fatalf("published jobs = %d, want 1", len(publisher.jobs))
	}
	job := publisher.jobs[0]
	if job.ReceiptID != receipt.ID || job.UserID != "u1" || job.BlobURI != receipt.BlobURI {
		t.Errorf("job = %+v", job)
	}
}

func TestUpload_Rejections(t *testing.T) {
	svc, _, _ := newTestService(&scriptedOCR{})

	if _, err := svc.Upload(context.Background(), "u1", "notes.txt", "text/plain", []byte("x")); !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat for text/plain, got %v", err)
	}
	if _, err := svc.Upload(context.Background(), "u1", "empty.jpg", "image/jpeg", nil); err == nil {
		t.Error("expected an error for an empty upload")
	}
}

func TestUpload_AcceptsPDF(t *testing.T) {
	svc, _, publisher := newTestService(&scriptedOCR{})

	if _, err := svc.Upload(context.Background(), "u1", "scan.pdf", "application/pdf", []byte("pdf")); err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if publisher.jobs[0].MimeType != "application/pdf" {
		t.Errorf("job mime = %q", publisher.jobs[0].MimeType)
	}
}

func uploadAndJob(t *testing.T, svc *Service, publisher *capturingPublisher, mime string) *jobs.ReceiptOCRJob {
	t.Helper()
	filename := "receipt.jpg"
	if strings.Contains(mime, "pdf") {
		filename = "receipt.pdf"
	}
	if _, err := svc.Upload(context.Background(), "u1", filename, mime, []byte("data")); err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	return publisher.jobs[len(publisher.jobs)-1]
}

func TestProcessJob(t *testing.T) {
	amount := decimal.NewFromFloat(12.50)
	date := time.Date(2025, 11, 14, 0, 0, 0, 0, time.UTC)
	provider := &scriptedOCR{result: &ocr.Result{
		FullText:  "COFFEE CART 12.50",
		Amount:    &amount,
		Date:      &date,
		Merchant:  "Coffee Cart",
		LineItems: []string{"flat white 12.50"},
		Provider:  "gemini",
	}}
	svc, store, publisher := newTestService(provider)
	job := uploadAndJob(t, svc, publisher, "image/jpeg")

	if err := svc.ProcessJob(context.Background(), job); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	receipt, err := store.Get(context.Background(), "u1", job.ReceiptID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if receipt.Status != domain.ReceiptProcessed {
		t.Errorf("status = %s, want PROCESSED", receipt.Status)
	}
	if receipt.Amount == nil || !receipt.Amount.Equal(amount) {
		t.Errorf("amount = %v, want 12.50", receipt.Amount)
	}
	if receipt.Merchant != "Coffee Cart" {
		t.Errorf("merchant = %q", receipt.Merchant)
	}
	if receipt.OCRProvider != "gemini" {
		t.Errorf("provider = %q", receipt.OCRProvider)
	}
	if receipt.ProcessedAt == nil {
		t.Error("expected processed_at to be set")
	}
}

func TestProcessJob_OCRFailure(t *testing.T) {
	provider := &scriptedOCR{err: errors.New("vision outage")}
	svc, store, publisher := newTestService(provider)
	job := uploadAndJob(t, svc, publisher, "image/jpeg")

	if err := svc.ProcessJob(context.Background(), job); err == nil {
		t.Fatal("expected an error so the queue can retry")
	}

	receipt, _ := store.Get(context.Background(), "u1", job.ReceiptID)
	if receipt.Status != domain.ReceiptFailed {
		t.Errorf("status = %s, want FAILED", receipt.Status)
	}
	if !strings.Contains(receipt.Error, "vision outage") {
		t.Errorf("error = %q", receipt.Error)
	}
}

func TestProcessJob_EmptyOCRText(t *testing.T) {
	provider := &scriptedOCR{result: &ocr.Result{FullText: "   ", Provider: "gemini"}}
	svc, store, publisher := newTestService(provider)
	job := uploadAndJob(t, svc, publisher, "image/jpeg")

	err := svc.ProcessJob(context.Background(), job)
	if !errors.Is(err, domain.ErrAcquisitionFailed) {
		t.Fatalf("expected ErrAcquisitionFailed for whitespace-only text, got %v", err)
	}

	receipt, _ := store.Get(context.Background(), "u1", job.ReceiptID)
	if receipt.Status != domain.ReceiptFailed {
		t.Errorf("status = %s, want FAILED", receipt.Status)
	}
}

func TestProcessJob_ProviderPanic(t *testing.T) {
	provider := &scriptedOCR{panics: true}
	svc, store, publisher := newTestService(provider)
	job := uploadAndJob(t, svc, publisher, "image/jpeg")

	err := svc.ProcessJob(context.Background(), job)
	if err == nil {
		t.Fatal("expected the panic to surface as an error")
	}
	if !strings.Contains(err.Error(), "panicked") {
		t.Errorf("error = %v", err)
	}

	receipt, _ := store.Get(context.Background(), "u1", job.ReceiptID)
	if receipt.Status != domain.ReceiptFailed {
		t.Errorf("status = %s, want FAILED", receipt.Status)
	}
}

func TestProcessJob_PDFRoute(t *testing.T) {
	provider := &scriptedOCR{result: &ocr.Result{FullText: "scanned", Provider: "gemini"}}
	svc, store, publisher := newTestService(provider)
	job := uploadAndJob(t, svc, publisher, "application/pdf")

	if err := svc.ProcessJob(context.Background(), job); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	receipt, _ := store.Get(context.Background(), "u1", job.ReceiptID)
	if receipt.Status != domain.ReceiptProcessed {
		t.Errorf("status = %s, want PROCESSED", receipt.Status)
	}
}
