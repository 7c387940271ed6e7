package tableio

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dvloznov/txn-features/internal/domain"
	"github.com/dvloznov/txn-features/internal/features"
	"github.com/dvloznov/txn-features/internal/logger"
	"github.com/dvloznov/txn-features/internal/timebucket"
)

var requiredColumns = []string{
	domain.ColumnUserID,
	domain.ColumnCreatedDate,
	domain.ColumnAmountUSD,
	domain.ColumnDirection,
	domain.ColumnTransactionsType,
}

// RowError describes a CSV record that could not become a Transaction.
type RowError struct {
	Line   int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d, column %s: %v", e.Line, e.Column, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// ReadCSV reads a transaction table with a header row. Columns are matched
// by name, case-insensitively; extra columns are ignored and transaction_id
// is optional. Records that fail to parse are handled per opts.BadRows.
func ReadCSV(ctx context.Context, r io.Reader, opts Options) ([]domain.Transaction, error) {
	log := logger.FromContext(ctx)

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("ReadCSV: empty input, expected a header row")
	}
	if err != nil {
		return nil, fmt.Errorf("ReadCSV: header: %w", err)
	}

	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := pos[c]; !ok {
			return nil, fmt.Errorf("ReadCSV: %w", &domain.MissingColumnError{Column: c})
		}
	}
	idCol, hasID := pos[domain.ColumnTransactionID]

	var (
		txs     []domain.Transaction
		skipped int
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ReadCSV: line %d: %w", line, err)
		}

		tx, rowErr := parseRecord(rec, pos, opts.TimeLayout, line)
		if rowErr == nil && hasID {
			tx.TransactionID = strings.TrimSpace(rec[idCol])
		}
		if rowErr != nil {
			if opts.BadRows != domain.BadRowSkip {
				return nil, fmt.Errorf("ReadCSV: %w", rowErr)
			}
			skipped++
			log.Warn().Err(rowErr).Msg("Skipping transaction row")
			continue
		}
		txs = append(txs, tx)
	}

	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Int("kept", len(txs)).Msg("Dropped unusable transaction rows")
	}
	return txs, nil
}

func parseRecord(rec []string, pos map[string]int, layout string, line int) (domain.Transaction, *RowError) {
	field := func(name string) string {
		return strings.TrimSpace(rec[pos[name]])
	}

	user := field(domain.ColumnUserID)
	if user == "" {
		return domain.Transaction{}, &RowError{Line: line, Column: domain.ColumnUserID, Err: errors.New("empty value")}
	}

	res := timebucket.Parse(field(domain.ColumnCreatedDate), layout)
	if !res.OK() {
		return domain.Transaction{}, &RowError{Line: line, Column: domain.ColumnCreatedDate, Err: res.Err}
	}

	amount, err := strconv.ParseFloat(field(domain.ColumnAmountUSD), 64)
	if err != nil {
		return domain.Transaction{}, &RowError{Line: line, Column: domain.ColumnAmountUSD, Err: err}
	}

	return domain.Transaction{
		UserID:           user,
		CreatedDate:      res.Time,
		AmountUSD:        amount,
		Direction:        field(domain.ColumnDirection),
		TransactionsType: field(domain.ColumnTransactionsType),
	}, nil
}

// WriteCSV writes the feature table with its header.
func WriteCSV(w io.Writer, ft *features.FeatureTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ft.Columns()); err != nil {
		return fmt.Errorf("WriteCSV: header: %w", err)
	}
	if err := cw.WriteAll(ft.Records()); err != nil {
		return fmt.Errorf("WriteCSV: %w", err)
	}
	return nil
}
