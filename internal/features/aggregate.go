package features

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/txn-features/internal/domain"
	"gonum.org/v1/gonum/stat"
)

// ErrEmptyGroup is returned when a per-user reduction sees no rows.
var ErrEmptyGroup = errors.New("empty user group")

// AverageAmount returns the mean amount_usd per user.
func AverageAmount(t *Table) (map[string]float64, error) {
	groups := groupByUser(t)
	out := make(map[string]float64, len(groups))
	for _, g := range groups {
		amounts := make([]float64, len(g.Rows))
		for i, idx := range g.Rows {
			amounts[i] = t.rows[idx].AmountUSD
		}
		m, err := mean(amounts)
		if err != nil {
			return nil, fmt.Errorf("AverageAmount: user %q: %w", g.UserID, err)
		}
		out[g.UserID] = m
	}
	return out, nil
}

// AverageDailyCount returns, per user, the number of transactions divided by
// the number of distinct days with at least one transaction. The table must
// carry transaction_day (see Table.WithCalendarDays).
func AverageDailyCount(t *Table) (map[string]float64, error) {
	if !t.HasColumn(domain.ColumnTransactionDay) {
		return nil, fmt.Errorf("AverageDailyCount: %w", &domain.MissingColumnError{Column: domain.ColumnTransactionDay})
	}
	groups := groupByUser(t)
	out := make(map[string]float64, len(groups))
	for _, g := range groups {
		days := make(map[civil.Date]struct{})
		for _, idx := range g.Rows {
			days[t.days[idx]] = struct{}{}
		}
		out[g.UserID] = float64(len(g.Rows)) / float64(len(days))
	}
	return out, nil
}

// mean is the arithmetic mean of xs. Every per-user reduction goes through
// it, so an empty group fails here with ErrEmptyGroup.
func mean(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, ErrEmptyGroup
	}
	return stat.Mean(xs, nil), nil
}
