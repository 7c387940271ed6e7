package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/txn-features/internal/domain"
	"github.com/dvloznov/txn-features/internal/features"
	"github.com/google/uuid"
)

// Repository reads transaction tables and writes feature tables through a
// shared BigQuery client.
type Repository struct {
	client *bigquery.Client
}

// NewRepository creates a Repository with a client for projectID.
func NewRepository(ctx context.Context, projectID string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return &Repository{client: client}, nil
}

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// LoadTransactions delegates to ReadTransactions with the shared client.
func (r *Repository) LoadTransactions(ctx context.Context, ref TableRef, policy domain.BadRowPolicy) ([]domain.Transaction, error) {
	return ReadTransactions(ctx, r.client, ref, policy)
}

// EnsureFeatures creates the feature table at ref if it is missing.
func (r *Repository) EnsureFeatures(ctx context.Context, ref TableRef) error {
	return EnsureFeatureTable(ctx, r.client, ref)
}

// SaveFeatures creates the feature table if needed and appends ft as a new
// run. It returns the run id stamped on the rows.
func (r *Repository) SaveFeatures(ctx context.Context, ref TableRef, ft *features.FeatureTable) (string, error) {
	if err := EnsureFeatureTable(ctx, r.client, ref); err != nil {
		return "", err
	}
	runID := uuid.NewString()
	rows := FeatureRowsFromTable(ft, runID, time.Now().UTC())
	if err := InsertFeatureRows(ctx, r.client, ref, rows); err != nil {
		return "", fmt.Errorf("SaveFeatures: %w", err)
	}
	return runID, nil
}
