package bigquery

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/txn-features/internal/domain"
	"github.com/dvloznov/txn-features/internal/logger"
	"google.golang.org/api/iterator"
)

// TransactionRow is one row of a raw transactions table as selected by
// ReadTransactions. Every column is nullable on the BigQuery side; nulls are
// rejected when converting to a domain.Transaction.
type TransactionRow struct {
	UserID           bigquery.NullString    `bigquery:"user_id"`
	CreatedDate      bigquery.NullTimestamp `bigquery:"created_date"`
	AmountUSD        bigquery.NullFloat64   `bigquery:"amount_usd"`
	Direction        bigquery.NullString    `bigquery:"direction"`
	TransactionsType bigquery.NullString    `bigquery:"transactions_type"`
	TransactionID    bigquery.NullString    `bigquery:"transaction_id"`
}

var (
	// ErrNullUserID marks a row without user_id.
	ErrNullUserID = errors.New("null user_id")
	// ErrNullCreatedDate marks a row whose created_date is null or could not
	// be cast to TIMESTAMP.
	ErrNullCreatedDate = errors.New("null or unparsable created_date")
	// ErrNullAmount marks a row whose amount_usd is null or not numeric.
	ErrNullAmount = errors.New("null or non-numeric amount_usd")
)

// ToTransaction converts the row into the domain model.
func (r *TransactionRow) ToTransaction() (domain.Transaction, error) {
	switch {
	case !r.UserID.Valid || r.UserID.StringVal == "":
		return domain.Transaction{}, ErrNullUserID
	case !r.CreatedDate.Valid:
		return domain.Transaction{}, ErrNullCreatedDate
	case !r.AmountUSD.Valid:
		return domain.Transaction{}, ErrNullAmount
	}
	return domain.Transaction{
		UserID:           r.UserID.StringVal,
		CreatedDate:      r.CreatedDate.Timestamp,
		AmountUSD:        r.AmountUSD.Float64,
		Direction:        r.Direction.StringVal,
		TransactionsType: r.TransactionsType.StringVal,
		TransactionID:    r.TransactionID.StringVal,
	}, nil
}

// transactionsQuery selects the feature columns, casting timestamps and
// amounts so that values of the wrong type surface as NULL instead of
// failing the whole query.
func transactionsQuery(ref TableRef) string {
	return fmt.Sprintf(`
		SELECT
			CAST(user_id AS STRING) AS user_id,
			SAFE_CAST(created_date AS TIMESTAMP) AS created_date,
			SAFE_CAST(amount_usd AS FLOAT64) AS amount_usd,
			CAST(direction AS STRING) AS direction,
			CAST(transactions_type AS STRING) AS transactions_type,
			CAST(transaction_id AS STRING) AS transaction_id
		FROM `+"`%s`"+`
		ORDER BY user_id, created_date
	`, ref.String())
}

// RowIterator is the part of *bigquery.RowIterator used when reading rows.
type RowIterator interface {
	Next(dst interface{}) error
}

// ReadTransactions runs the transactions query against ref using the
// provided client.
func ReadTransactions(ctx context.Context, client *bigquery.Client, ref TableRef, policy domain.BadRowPolicy) ([]domain.Transaction, error) {
	it, err := client.Query(transactionsQuery(ref)).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ReadTransactions: query read: %w", err)
	}
	return CollectTransactions(ctx, it, policy)
}

// CollectTransactions drains it into domain transactions, applying policy to
// rows that cannot be converted.
func CollectTransactions(ctx context.Context, it RowIterator, policy domain.BadRowPolicy) ([]domain.Transaction, error) {
	log := logger.FromContext(ctx)

	var (
		txs     []domain.Transaction
		skipped int
	)
	for i := 0; ; i++ {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("CollectTransactions: iter next: %w", err)
		}

		tx, err := r.ToTransaction()
		if err != nil {
			if policy != domain.BadRowSkip {
				return nil, fmt.Errorf("CollectTransactions: row %d: %w", i, err)
			}
			skipped++
			log.Warn().Err(err).Int("row", i).Msg("Skipping transaction row")
			continue
		}
		txs = append(txs, tx)
	}

	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Int("kept", len(txs)).Msg("Dropped unusable transaction rows")
	}
	return txs, nil
}
