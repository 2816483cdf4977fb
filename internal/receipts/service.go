// Package receipts handles receipt uploads and the background OCR that
// turns them into structured fields.
package receipts

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/tx-extractor/internal/blobstore"
	"github.com/dvloznov/tx-extractor/internal/domain"
	"github.com/dvloznov/tx-extractor/internal/jobs"
	"github.com/dvloznov/tx-extractor/internal/ocr"
	"github.com/dvloznov/tx-extractor/internal/store"
)

// allowedMIMEs are the upload types we accept. Receipts arrive as photos or
// scanned PDFs.
var allowedMIMEs = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// Service uploads receipt files and processes the resulting OCR jobs.
type Service struct {
	blobs     blobstore.Store
	receipts  store.ReceiptRepository
	publisher jobs.Publisher
	ocr       ocr.Provider
	log       zerolog.Logger
}

func NewService(blobs blobstore.Store, receipts store.ReceiptRepository, publisher jobs.Publisher, provider ocr.Provider, log zerolog.Logger) *Service {
	return &Service{
		blobs:     blobs,
		receipts:  receipts,
		publisher: publisher,
		ocr:       provider,
		log:       log,
	}
}

// Upload stores the file, records the receipt as PENDING and enqueues an OCR
// job. It returns immediately; callers poll Get to observe completion.
func (s *Service) Upload(ctx context.Context, userID, filename, mimeType string, data []byte) (*domain.Receipt, error) {
	if !allowedMIMEs[strings.ToLower(mimeType)] {
		return nil, domain.ErrUnsupportedFormat
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("receipts: empty upload")
	}

	receipt := &domain.Receipt{
		ID:         uuid.New().String(),
		UserID:     userID,
		Filename:   filename,
		MimeType:   strings.ToLower(mimeType),
		Status:     domain.ReceiptPending,
		UploadedAt: time.Now().UTC(),
	}

	objectName := fmt.Sprintf("receipts/%s/%s%s", userID, receipt.ID, path.Ext(filename))
	uri, err := s.blobs.Upload(ctx, objectName, data)
	if err != nil {
		return nil, fmt.Errorf("receipts: storing blob: %w", err)
	}
	receipt.BlobURI = uri

	if err := s.receipts.Insert(ctx, receipt); err != nil {
		return nil, fmt.Errorf("receipts: recording upload: %w", err)
	}

	job := &jobs.ReceiptOCRJob{
		ReceiptID: receipt.ID,
		UserID:    userID,
		BlobURI:   uri,
		MimeType:  receipt.MimeType,
	}
	if err := s.publisher.PublishReceiptOCR(ctx, job); err != nil {
		return nil, fmt.Errorf("receipts: enqueueing job: %w", err)
	}

	s.log.Info().
		Str("receipt_id", receipt.ID).
		Str("user_id", userID).
		Str("blob_uri", uri).
		Msg("receipt uploaded, OCR queued")
	return receipt, nil
}

// Get fetches one receipt scoped to the user.
func (s *Service) Get(ctx context.Context, userID, receiptID string) (*domain.Receipt, error) {
	return s.receipts.Get(ctx, userID, receiptID)
}

// ProcessJob is the worker-side handler. It fetches the blob, runs OCR and
// writes the outcome back onto the receipt. A panic inside the provider is
// converted to a failed job rather than killing the worker.
func (s *Service) ProcessJob(ctx context.Context, job jobs.Job) (err error) {
	ocrJob, ok := job.(*jobs.ReceiptOCRJob)
	if !ok {
		return fmt.Errorf("receipts: unexpected job type %s", job.GetType())
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("receipts: OCR panicked: %v", r)
			s.failReceipt(ctx, ocrJob, err)
		}
	}()

	data, err := s.blobs.Fetch(ctx, ocrJob.BlobURI)
	if err != nil {
		err = fmt.Errorf("receipts: fetching blob: %w", err)
		s.failReceipt(ctx, ocrJob, err)
		return err
	}

	var result *ocr.Result
	if ocrJob.MimeType == "application/pdf" {
		result, err = s.ocr.RecognizePDF(ctx, data)
	} else {
		result, err = s.ocr.RecognizeImage(ctx, data, ocrJob.MimeType)
	}
	if err != nil {
		err = fmt.Errorf("receipts: recognizing: %w", err)
		s.failReceipt(ctx, ocrJob, err)
		return err
	}
	if strings.TrimSpace(result.FullText) == "" {
		// The provider answered but read nothing; an empty PROCESSED
		// receipt would look like success to the caller.
		err = fmt.Errorf("receipts: recognizing: %w", domain.ErrAcquisitionFailed)
		s.failReceipt(ctx, ocrJob, err)
		return err
	}

	now := time.Now().UTC()
	receipt := &domain.Receipt{
		ID:          ocrJob.ReceiptID,
		UserID:      ocrJob.UserID,
		Status:      domain.ReceiptProcessed,
		Amount:      result.Amount,
		Merchant:    result.Merchant,
		Date:        result.Date,
		LineItems:   result.LineItems,
		OCRProvider: result.Provider,
		ProcessedAt: &now,
	}
	if err := s.receipts.UpdateOCR(ctx, receipt); err != nil {
		return fmt.Errorf("receipts: saving OCR result: %w", err)
	}

	s.log.Info().
		Str("receipt_id", ocrJob.ReceiptID).
		Str("provider", result.Provider).
		Msg("receipt processed")
	return nil
}

// failReceipt marks the receipt FAILED. The job queue still handles retries;
// a later successful attempt overwrites this state.
func (s *Service) failReceipt(ctx context.Context, job *jobs.ReceiptOCRJob, cause error) {
	now := time.Now().UTC()
	receipt := &domain.Receipt{
		ID:          job.ReceiptID,
		UserID:      job.UserID,
		Status:      domain.ReceiptFailed,
		Error:       cause.Error(),
		ProcessedAt: &now,
	}
	if err := s.receipts.UpdateOCR(ctx, receipt); err != nil {
		s.log.Error().Err(err).Str("receipt_id", job.ReceiptID).Msg("failed to record receipt failure")
	}
}
