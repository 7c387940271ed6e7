package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/txn-features/internal/features"
	"google.golang.org/api/googleapi"
)

// insertBatchSize keeps streaming insert requests well under the API limits.
const insertBatchSize = 500

// CategoryShare is one entry of a repeated share column.
type CategoryShare struct {
	Value string  `bigquery:"value"`
	Share float64 `bigquery:"share"`
}

// FeatureRow is one user's features as stored in BigQuery. Category shares
// are kept as repeated records because category values are data, not valid
// column names.
type FeatureRow struct {
	RunID     string  `bigquery:"run_id"`  // REQUIRED, one per build
	UserID    string  `bigquery:"user_id"` // REQUIRED
	AmountUSD float64 `bigquery:"amount_usd"`
	AvgTxn    float64 `bigquery:"avg_txn"`

	TransactionsType []CategoryShare `bigquery:"transactions_type"` // REPEATED RECORD
	Direction        []CategoryShare `bigquery:"direction"`         // REPEATED RECORD

	DiffMeanAmountSent bigquery.NullFloat64 `bigquery:"diff_mean_amount_sent"` // NULLABLE
	DiffDaysBetweenTxn bigquery.NullFloat64 `bigquery:"diff_days_between_txn"` // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"`
}

// FeatureRowsFromTable maps a feature table onto storage rows stamped with
// runID and createdTS.
func FeatureRowsFromTable(ft *features.FeatureTable, runID string, createdTS time.Time) []*FeatureRow {
	rows := make([]*FeatureRow, 0, ft.Len())
	for _, r := range ft.Rows {
		row := &FeatureRow{
			RunID:            runID,
			UserID:           r.UserID,
			AmountUSD:        r.AmountUSD,
			AvgTxn:           r.AvgTxn,
			TransactionsType: shares(ft.TypeValues, r.TypeShares),
			Direction:        shares(ft.DirectionValues, r.DirectionShares),
			CreatedTS:        createdTS,
		}
		if r.Trend != nil {
			row.DiffMeanAmountSent = bigquery.NullFloat64{Float64: r.Trend.DiffMeanAmountSent, Valid: true}
			if r.Trend.DiffDaysBetweenTxn != nil {
				row.DiffDaysBetweenTxn = bigquery.NullFloat64{Float64: *r.Trend.DiffDaysBetweenTxn, Valid: true}
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func shares(values []string, s []float64) []CategoryShare {
	out := make([]CategoryShare, len(values))
	for i, v := range values {
		out[i] = CategoryShare{Value: v, Share: s[i]}
	}
	return out
}

// FeatureSchema is the table schema inferred from FeatureRow.
func FeatureSchema() (bigquery.Schema, error) {
	schema, err := bigquery.InferSchema(FeatureRow{})
	if err != nil {
		return nil, fmt.Errorf("FeatureSchema: %w", err)
	}
	return schema, nil
}

// EnsureFeatureTable creates the feature table if it does not exist yet.
func EnsureFeatureTable(ctx context.Context, client *bigquery.Client, ref TableRef) error {
	table := client.DatasetInProject(ref.ProjectID, ref.DatasetID).Table(ref.TableID)

	_, err := table.Metadata(ctx)
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusNotFound {
		return fmt.Errorf("EnsureFeatureTable: metadata %s: %w", ref, err)
	}

	schema, err := FeatureSchema()
	if err != nil {
		return err
	}
	if err := table.Create(ctx, &bigquery.TableMetadata{Schema: schema}); err != nil {
		return fmt.Errorf("EnsureFeatureTable: create %s: %w", ref, err)
	}
	return nil
}

// RowPutter is the part of *bigquery.Inserter used for streaming rows.
type RowPutter interface {
	Put(ctx context.Context, src interface{}) error
}

// InsertFeatureRows streams rows into ref using the provided client.
func InsertFeatureRows(ctx context.Context, client *bigquery.Client, ref TableRef, rows []*FeatureRow) error {
	inserter := client.DatasetInProject(ref.ProjectID, ref.DatasetID).Table(ref.TableID).Inserter()
	return PutFeatureRows(ctx, inserter, rows)
}

// PutFeatureRows writes rows through putter in batches.
func PutFeatureRows(ctx context.Context, putter RowPutter, rows []*FeatureRow) error {
	for start := 0; start < len(rows); start += insertBatchSize {
		end := min(start+insertBatchSize, len(rows))
		if err := putter.Put(ctx, rows[start:end]); err != nil {
			return fmt.Errorf("PutFeatureRows: rows %d-%d: %w", start, end-1, err)
		}
	}
	return nil
}
