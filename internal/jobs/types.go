// Package jobs defines the background-job contracts used for asynchronous
// receipt processing.
package jobs

import (
	"context"
	"time"
)

// JobType identifies what kind of work a job carries.
type JobType string

const (
	// JobTypeReceiptOCR is an OCR pass over an uploaded receipt.
	JobTypeReceiptOCR JobType = "receipt_ocr"
)

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// ReceiptOCRJob asks a worker to run OCR over a stored receipt blob and
// write the recognized fields back onto the receipt.
type ReceiptOCRJob struct {
	JobID string `json:"job_id"`

	ReceiptID string `json:"receipt_id"`
	UserID    string `json:"user_id"`

	// BlobURI locates the uploaded file in blob storage.
	BlobURI  string `json:"blob_uri"`
	MimeType string `json:"mime_type"`

	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Error      string `json:"error,omitempty"`
	RetryCount int    `json:"retry_count"`
	MaxRetries int    `json:"max_retries"`
}

// Job is the generic view the queue machinery works with.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *ReceiptOCRJob) GetID() string        { return j.JobID }
func (j *ReceiptOCRJob) GetType() JobType     { return JobTypeReceiptOCR }
func (j *ReceiptOCRJob) GetStatus() JobStatus { return j.Status }

// Publisher enqueues jobs. Implementations may be in-memory channels or a
// real broker such as Cloud Tasks or Pub/Sub.
type Publisher interface {
	PublishReceiptOCR(ctx context.Context, job *ReceiptOCRJob) error
	Close() error
}

// Consumer pulls jobs and hands them to a handler.
type Consumer interface {
	// Start begins consuming. The handler is invoked once per delivered job
	// and returning an error marks the attempt failed.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming and waits for in-flight jobs to finish.
	Stop(ctx context.Context) error
}

// JobHandler processes one job. A non-nil error triggers a retry when the
// job has retries left.
type JobHandler func(ctx context.Context, job Job) error

// JobStore tracks job state so callers can poll progress.
type JobStore interface {
	SaveJob(ctx context.Context, job *ReceiptOCRJob) error
	GetJob(ctx context.Context, jobID string) (*ReceiptOCRJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ReceiptOCRJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter narrows ListJobs results.
type JobFilter struct {
	ReceiptID string
	UserID    string
	Status    JobStatus
	Limit     int
	Offset    int
}
