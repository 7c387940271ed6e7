package features

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dvloznov/txn-features/internal/domain"
)

// ErrInvalidWindow is returned for first/last window sizes below one.
var ErrInvalidWindow = errors.New("window size must be at least 1")

const day = 24 * time.Hour

// Trend is the drift between a user's earliest and latest transactions.
type Trend struct {
	// DiffMeanAmountSent is mean(last amounts) - mean(first amounts).
	DiffMeanAmountSent float64
	// DiffDaysBetweenTxn is the change in mean gap (whole days) between
	// consecutive transactions. nil when either window has a single row.
	DiffDaysBetweenTxn *float64
}

// TrendStats computes a Trend per user using the first firstN and last lastN
// transactions by created_date. The windows overlap when a user has fewer
// than firstN+lastN transactions; shared rows count in both.
func TrendStats(t *Table, firstN, lastN int) (map[string]Trend, error) {
	if firstN < 1 || lastN < 1 {
		return nil, fmt.Errorf("TrendStats: first=%d last=%d: %w", firstN, lastN, ErrInvalidWindow)
	}
	groups := groupByUser(t)
	out := make(map[string]Trend, len(groups))
	for _, g := range groups {
		txs := make([]domain.Transaction, len(g.Rows))
		for i, idx := range g.Rows {
			txs[i] = t.rows[idx]
		}
		tr, err := WindowTrend(txs, firstN, lastN)
		if err != nil {
			return nil, fmt.Errorf("TrendStats: user %q: %w", g.UserID, err)
		}
		out[g.UserID] = tr
	}
	return out, nil
}

// WindowTrend computes the Trend of a single user's transactions. The input
// is not modified; a sorted copy is used.
func WindowTrend(txs []domain.Transaction, firstN, lastN int) (Trend, error) {
	if firstN < 1 || lastN < 1 {
		return Trend{}, ErrInvalidWindow
	}
	if len(txs) == 0 {
		return Trend{}, ErrEmptyGroup
	}

	sorted := make([]domain.Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedDate.Before(sorted[j].CreatedDate)
	})

	first := sorted[:min(firstN, len(sorted))]
	last := sorted[len(sorted)-min(lastN, len(sorted)):]

	meanFirst, err := mean(amounts(first))
	if err != nil {
		return Trend{}, err
	}
	meanLast, err := mean(amounts(last))
	if err != nil {
		return Trend{}, err
	}

	tr := Trend{DiffMeanAmountSent: meanLast - meanFirst}
	gapFirst, okFirst := meanGapDays(first)
	gapLast, okLast := meanGapDays(last)
	if okFirst && okLast {
		d := gapLast - gapFirst
		tr.DiffDaysBetweenTxn = &d
	}
	return tr, nil
}

func amounts(txs []domain.Transaction) []float64 {
	out := make([]float64, len(txs))
	for i, tx := range txs {
		out[i] = tx.AmountUSD
	}
	return out
}

// meanGapDays averages the whole-day gaps between consecutive, time-ordered
// transactions. ok is false when there is no pair to measure.
func meanGapDays(txs []domain.Transaction) (float64, bool) {
	if len(txs) < 2 {
		return 0, false
	}
	gaps := make([]float64, 0, len(txs)-1)
	for i := 1; i < len(txs); i++ {
		gap := txs[i].CreatedDate.Sub(txs[i-1].CreatedDate)
		gaps = append(gaps, float64(gap/day))
	}
	m, err := mean(gaps)
	if err != nil {
		return 0, false
	}
	return m, true
}
