package features

import (
	"sort"
	"strconv"

	"github.com/dvloznov/txn-features/internal/domain"
)

// Output column names besides the per-category share columns.
const (
	ColumnAvgTxn             = "avg_txn"
	ColumnDiffMeanAmountSent = "diff_mean_amount_sent"
	ColumnDiffDaysBetweenTxn = "diff_days_between_txn"
)

// FeatureRow is one user's features.
type FeatureRow struct {
	UserID    string
	AmountUSD float64 // mean amount
	AvgTxn    float64 // transactions per active day

	TypeShares      []float64 // aligned with FeatureTable.TypeValues
	DirectionShares []float64 // aligned with FeatureTable.DirectionValues

	Trend *Trend // nil unless the pipeline ran with trend enabled
}

// FeatureTable is the merged, one-row-per-user output of the pipeline, rows
// sorted by user id.
type FeatureTable struct {
	TypeValues      []string
	DirectionValues []string
	HasTrend        bool
	Rows            []FeatureRow
}

// Len returns the number of users.
func (ft *FeatureTable) Len() int {
	return len(ft.Rows)
}

// Row looks up a user's features.
func (ft *FeatureTable) Row(userID string) (FeatureRow, bool) {
	i := sort.Search(len(ft.Rows), func(i int) bool { return ft.Rows[i].UserID >= userID })
	if i < len(ft.Rows) && ft.Rows[i].UserID == userID {
		return ft.Rows[i], true
	}
	return FeatureRow{}, false
}

// Columns returns the header: user_id, the aggregates, the transactions_type
// block, the direction block and, if present, the trend block. A name that
// already exists when a block is appended is suffixed "_x" on the existing
// column and "_y" on the new one.
func (ft *FeatureTable) Columns() []string {
	cols := []string{domain.ColumnUserID, domain.ColumnAmountUSD, ColumnAvgTxn}
	cols = appendBlock(cols, ft.TypeValues)
	cols = appendBlock(cols, ft.DirectionValues)
	if ft.HasTrend {
		cols = appendBlock(cols, []string{ColumnDiffMeanAmountSent, ColumnDiffDaysBetweenTxn})
	}
	return cols
}

func appendBlock(cols, block []string) []string {
	incoming := make(map[string]struct{}, len(block))
	for _, b := range block {
		incoming[b] = struct{}{}
	}
	existing := make(map[string]struct{}, len(cols))
	out := make([]string, 0, len(cols)+len(block))
	out = append(out, cols[0])
	for _, c := range cols[1:] {
		existing[c] = struct{}{}
		if _, clash := incoming[c]; clash {
			c += "_x"
		}
		out = append(out, c)
	}
	for _, b := range block {
		if _, clash := existing[b]; clash || b == cols[0] {
			b += "_y"
		}
		out = append(out, b)
	}
	return out
}

// Records renders every row as strings aligned with Columns. Undefined
// values render as the empty string.
func (ft *FeatureTable) Records() [][]string {
	out := make([][]string, 0, len(ft.Rows))
	for _, r := range ft.Rows {
		rec := make([]string, 0, 3+len(r.TypeShares)+len(r.DirectionShares)+2)
		rec = append(rec, r.UserID, formatFloat(r.AmountUSD), formatFloat(r.AvgTxn))
		for _, s := range r.TypeShares {
			rec = append(rec, formatFloat(s))
		}
		for _, s := range r.DirectionShares {
			rec = append(rec, formatFloat(s))
		}
		if ft.HasTrend {
			if r.Trend == nil {
				rec = append(rec, "", "")
			} else {
				rec = append(rec, formatFloat(r.Trend.DiffMeanAmountSent), formatOptional(r.Trend.DiffDaysBetweenTxn))
			}
		}
		out = append(out, rec)
	}
	return out
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func formatOptional(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}
