// Package bigquery implements the store repositories against BigQuery,
// following the parameterized-query style of the rest of the platform.
package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// Repository implements store.AccountRepository, store.TransactionRepository
// and store.ReceiptRepository over one shared BigQuery client.
type Repository struct {
	client  *bigquery.Client
	dataset string
}

// NewRepository creates a Repository with a shared client; call Close when
// the repository is no longer needed.
func NewRepository(ctx context.Context, projectID, dataset string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("bigquery: creating client: %w", err)
	}
	return &Repository{client: client, dataset: dataset}, nil
}

// Close closes the underlying BigQuery client.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *Repository) table(name string) string {
	return fmt.Sprintf("%s.%s", r.dataset, name)
}
