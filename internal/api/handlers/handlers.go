// Package handlers exposes the extraction pipeline over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/tx-extractor/internal/api/middleware"
	"github.com/dvloznov/tx-extractor/internal/domain"
	"github.com/dvloznov/tx-extractor/internal/extract"
	"github.com/dvloznov/tx-extractor/internal/jobs"
	"github.com/dvloznov/tx-extractor/internal/ratelimit"
	"github.com/dvloznov/tx-extractor/internal/receipts"
)

// maxUploadBytes bounds statement and receipt uploads.
const maxUploadBytes = 20 << 20

// writeDomainError maps pipeline errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, log zerolog.Logger, err error) {
	var dup *domain.DuplicateError
	var provider *domain.ProviderError
	var rateLimited *domain.RateLimitError

	switch {
	case errors.As(err, &dup):
		middleware.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrExtractionEmpty):
		middleware.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrAcquisitionFailed):
		middleware.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrUnsupportedFormat):
		middleware.WriteError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, domain.ErrAccountNotResolved):
		middleware.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ratelimit.ErrLimitExceeded):
		middleware.WriteError(w, http.StatusTooManyRequests, err.Error())
	case errors.As(err, &rateLimited), errors.As(err, &provider):
		log.Error().Err(err).Msg("upstream provider failure")
		middleware.WriteError(w, http.StatusBadGateway, "Extraction provider unavailable")
	default:
		log.Error().Err(err).Msg("request failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// transactionResponse is the wire shape of an accepted transaction.
type transactionResponse struct {
	ID           string           `json:"id"`
	AccountID    string           `json:"account_id"`
	Amount       decimal.Decimal  `json:"amount"`
	Currency     string           `json:"currency"`
	DateTime     time.Time        `json:"date_time"`
	Type         string           `json:"type"`
	Merchant     string           `json:"merchant,omitempty"`
	Location     string           `json:"location,omitempty"`
	Description  string           `json:"description,omitempty"`
	Category     string           `json:"category,omitempty"`
	CardLast4    string           `json:"card_last4,omitempty"`
	IsApplePay   bool             `json:"is_apple_pay,omitempty"`
	BalanceAfter *decimal.Decimal `json:"balance_after,omitempty"`
	Source       string           `json:"source"`
}

func toTransactionResponse(tx *domain.PersistedTransaction) *transactionResponse {
	return &transactionResponse{
		ID:           tx.ID,
		AccountID:    tx.AccountID,
		Amount:       tx.Amount,
		Currency:     tx.Currency,
		DateTime:     tx.DateTime,
		Type:         string(tx.Type),
		Merchant:     tx.Merchant,
		Location:     tx.Location,
		Description:  tx.Description,
		Category:     tx.Category,
		CardLast4:    tx.CardLast4,
		IsApplePay:   tx.IsApplePay,
		BalanceAfter: tx.BalanceAfter,
		Source:       string(tx.Source),
	}
}

// ExtractHandler handles message and statement extraction endpoints.
type ExtractHandler struct {
	service *extract.Service
	log     zerolog.Logger
}

func NewExtractHandler(service *extract.Service, log zerolog.Logger) *ExtractHandler {
	return &ExtractHandler{service: service, log: log}
}

// ExtractMessage handles POST /api/extract/message
func (h *ExtractHandler) ExtractMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text      string `json:"text"`
		AccountID string `json:"account_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "text is required")
		return
	}

	userID := middleware.UserID(r.Context())
	result, err := h.service.ExtractFromMessage(r.Context(), userID, req.Text, extract.MessageHint{AccountID: req.AccountID})
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"transaction": toTransactionResponse(result.Transaction),
		"account":     map[string]string{"id": result.Account.ID, "name": result.Account.Name},
		"strategy":    string(result.Strategy),
	})
}

// ImportStatement handles POST /api/statements/import
func (h *ExtractHandler) ImportStatement(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	accountID := r.FormValue("account_id")
	if accountID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "account_id is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read file")
		return
	}

	userID := middleware.UserID(r.Context())
	result, err := h.service.ExtractFromFile(r.Context(), userID, accountID, header.Filename, data)
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}

	resp := map[string]interface{}{
		"format":     string(result.ImportFormat),
		"source":     result.ImportSource,
		"accepted":   result.Accepted,
		"duplicates": result.Duplicates,
		"skipped":    result.Skipped,
	}
	if !result.StatementStart.IsZero() {
		resp["statement_start"] = result.StatementStart.Format("2006-01-02")
	}
	if !result.StatementEnd.IsZero() {
		resp["statement_end"] = result.StatementEnd.Format("2006-01-02")
	}
	if result.OpeningBalance != nil {
		resp["opening_balance"] = result.OpeningBalance
	}
	if result.ClosingBalance != nil {
		resp["closing_balance"] = result.ClosingBalance
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// ReceiptsHandler handles receipt upload and status endpoints.
type ReceiptsHandler struct {
	service *receipts.Service
	log     zerolog.Logger
}

func NewReceiptsHandler(service *receipts.Service, log zerolog.Logger) *ReceiptsHandler {
	return &ReceiptsHandler{service: service, log: log}
}

// Upload handles POST /api/receipts
func (h *ReceiptsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read file")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	userID := middleware.UserID(r.Context())

	receipt, err := h.service.Upload(r.Context(), userID, header.Filename, mimeType, data)
	if err != nil {
		writeDomainError(w, h.log, err)
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"receipt_id": receipt.ID,
		"status":     string(receipt.Status),
	})
}

// Get handles GET /api/receipts/{id}
func (h *ReceiptsHandler) Get(w http.ResponseWriter, r *http.Request, receiptID string) {
	userID := middleware.UserID(r.Context())

	receipt, err := h.service.Get(r.Context(), userID, receiptID)
	if err != nil {
		h.log.Warn().Err(err).Str("receipt_id", receiptID).Msg("receipt lookup failed")
		middleware.WriteError(w, http.StatusNotFound, "Receipt not found")
		return
	}

	resp := map[string]interface{}{
		"receipt_id":  receipt.ID,
		"filename":    receipt.Filename,
		"status":      string(receipt.Status),
		"uploaded_at": receipt.UploadedAt,
	}
	if receipt.Error != "" {
		resp["error"] = receipt.Error
	}
	if receipt.Amount != nil {
		resp["amount"] = receipt.Amount
	}
	if receipt.Merchant != "" {
		resp["merchant"] = receipt.Merchant
	}
	if receipt.Date != nil {
		resp["date"] = receipt.Date.Format("2006-01-02")
	}
	if len(receipt.LineItems) > 0 {
		resp["line_items"] = receipt.LineItems
	}
	if receipt.ProcessedAt != nil {
		resp["processed_at"] = receipt.ProcessedAt
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// JobsHandler exposes background-job status.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		h.log.Warn().Err(err).Str("job_id", jobID).Msg("job lookup failed")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		ReceiptID: query.Get("receipt_id"),
		UserID:    middleware.UserID(r.Context()),
		Status:    jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
