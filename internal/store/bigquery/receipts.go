package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/tx-extractor/internal/domain"
)

const receiptsTable = "receipts"

// ReceiptRow mirrors the receipts table schema.
type ReceiptRow struct {
	ReceiptID string `bigquery:"receipt_id"`
	UserID    string `bigquery:"user_id"`
	Filename  string `bigquery:"filename"`
	MimeType  string `bigquery:"mime_type"`
	BlobURI   string `bigquery:"blob_uri"`

	Status       string `bigquery:"status"`
	ErrorMessage string `bigquery:"error_message"`

	Amount      bigquery.NullFloat64 `bigquery:"amount"`
	Merchant    string               `bigquery:"merchant"`
	ReceiptDate bigquery.NullDate    `bigquery:"receipt_date"`
	LineItems   []string             `bigquery:"line_items"`
	OCRProvider string               `bigquery:"ocr_provider"`

	UploadedTS  time.Time              `bigquery:"uploaded_ts"`
	ProcessedTS bigquery.NullTimestamp `bigquery:"processed_ts"`
}

func (row *ReceiptRow) toDomain() *domain.Receipt {
	r := &domain.Receipt{
		ID:          row.ReceiptID,
		UserID:      row.UserID,
		Filename:    row.Filename,
		MimeType:    row.MimeType,
		BlobURI:     row.BlobURI,
		Status:      domain.ReceiptStatus(row.Status),
		Error:       row.ErrorMessage,
		Merchant:    row.Merchant,
		LineItems:   row.LineItems,
		OCRProvider: row.OCRProvider,
		UploadedAt:  row.UploadedTS,
	}
	if row.Amount.Valid {
		d := decimal.NewFromFloat(row.Amount.Float64)
		r.Amount = &d
	}
	if row.ReceiptDate.Valid {
		t := row.ReceiptDate.Date.In(time.UTC)
		r.Date = &t
	}
	if row.ProcessedTS.Valid {
		t := row.ProcessedTS.Timestamp
		r.ProcessedAt = &t
	}
	return r
}

// Insert stores the metadata of a freshly uploaded receipt.
func (r *Repository) Insert(ctx context.Context, receipt *domain.Receipt) error {
	row := &ReceiptRow{
		ReceiptID:  receipt.ID,
		UserID:     receipt.UserID,
		Filename:   receipt.Filename,
		MimeType:   receipt.MimeType,
		BlobURI:    receipt.BlobURI,
		Status:     string(receipt.Status),
		UploadedTS: receipt.UploadedAt.UTC(),
	}
	inserter := r.client.Dataset(r.dataset).Table(receiptsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("Insert: inserting receipt: %w", err)
	}
	return nil
}

// Get fetches one receipt scoped to the user.
func (r *Repository) Get(ctx context.Context, userID, receiptID string) (*domain.Receipt, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT *
		FROM %s
		WHERE receipt_id = @receipt_id AND user_id = @user_id
		LIMIT 1
	`, r.table(receiptsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "receipt_id", Value: receiptID},
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("Get: query read: %w", err)
	}

	var row ReceiptRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, fmt.Errorf("Get: receipt not found: %s", receiptID)
	}
	if err != nil {
		return nil, fmt.Errorf("Get: iterating: %w", err)
	}
	return row.toDomain(), nil
}

// UpdateOCR writes the worker's outcome back onto the receipt row.
func (r *Repository) UpdateOCR(ctx context.Context, receipt *domain.Receipt) error {
	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    error_message = @error_message,
		    amount = @amount,
		    merchant = @merchant,
		    receipt_date = @receipt_date,
		    line_items = @line_items,
		    ocr_provider = @ocr_provider,
		    processed_ts = @processed_ts
		WHERE receipt_id = @receipt_id
	`, r.table(receiptsTable)))

	amount := bigquery.NullFloat64{}
	if receipt.Amount != nil {
		amount = bigquery.NullFloat64{Float64: receipt.Amount.InexactFloat64(), Valid: true}
	}
	receiptDate := bigquery.NullDate{}
	if receipt.Date != nil {
		receiptDate = bigquery.NullDate{Date: civil.DateOf(*receipt.Date), Valid: true}
	}
	processedTS := bigquery.NullTimestamp{}
	if receipt.ProcessedAt != nil {
		processedTS = bigquery.NullTimestamp{Timestamp: receipt.ProcessedAt.UTC(), Valid: true}
	}
	lineItems := receipt.LineItems
	if lineItems == nil {
		lineItems = []string{}
	}

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: string(receipt.Status)},
		{Name: "error_message", Value: receipt.Error},
		{Name: "amount", Value: amount},
		{Name: "merchant", Value: receipt.Merchant},
		{Name: "receipt_date", Value: receiptDate},
		{Name: "line_items", Value: lineItems},
		{Name: "ocr_provider", Value: receipt.OCRProvider},
		{Name: "processed_ts", Value: processedTS},
		{Name: "receipt_id", Value: receipt.ID},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("UpdateOCR: running update: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("UpdateOCR: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("UpdateOCR: job error: %w", err)
	}
	return nil
}
