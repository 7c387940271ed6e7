package features

import (
	"fmt"
	"math"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/txn-features/internal/domain"
	"github.com/dvloznov/txn-features/internal/timebucket"
)

// Table is an immutable in-memory transaction table. Derived columns are
// added by returning a new Table, never by mutating the receiver.
type Table struct {
	rows []domain.Transaction
	days []civil.Date // transaction_day, nil until derived
}

// NewTable copies rows into a new table.
func NewTable(rows []domain.Transaction) *Table {
	cp := make([]domain.Transaction, len(rows))
	copy(cp, rows)
	return &Table{rows: cp}
}

// Len returns the number of transactions.
func (t *Table) Len() int {
	return len(t.rows)
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	switch name {
	case domain.ColumnUserID, domain.ColumnCreatedDate, domain.ColumnAmountUSD,
		domain.ColumnDirection, domain.ColumnTransactionsType, domain.ColumnTransactionID:
		return true
	case domain.ColumnTransactionDay:
		return t.days != nil
	default:
		return false
	}
}

// WithCalendarDays returns a copy of the table with transaction_day derived
// from created_date.
func (t *Table) WithCalendarDays() *Table {
	out := NewTable(t.rows)
	out.days = make([]civil.Date, len(t.rows))
	for i, r := range out.rows {
		out.days[i] = timebucket.ToCalendarDay(r.CreatedDate)
	}
	return out
}

// InvariantError describes a row that breaks the transaction data model.
type InvariantError struct {
	Row    int
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// Validate checks every row against the data model: a user, a real
// timestamp, a finite non-negative amount and no repeated transaction ids.
func (t *Table) Validate() error {
	seen := make(map[string]int, len(t.rows))
	for i, r := range t.rows {
		switch {
		case r.UserID == "":
			return &InvariantError{Row: i, Reason: "empty user_id"}
		case r.CreatedDate.IsZero():
			return &InvariantError{Row: i, Reason: "missing created_date"}
		case math.IsNaN(r.AmountUSD) || math.IsInf(r.AmountUSD, 0):
			return &InvariantError{Row: i, Reason: fmt.Sprintf("amount_usd is not finite: %v", r.AmountUSD)}
		case r.AmountUSD < 0:
			return &InvariantError{Row: i, Reason: fmt.Sprintf("negative amount_usd %v", r.AmountUSD)}
		}
		if r.TransactionID == "" {
			continue
		}
		if prev, dup := seen[r.TransactionID]; dup {
			return &InvariantError{Row: i, Reason: fmt.Sprintf("transaction_id %q already used by row %d", r.TransactionID, prev)}
		}
		seen[r.TransactionID] = i
	}
	return nil
}

// userGroup is the ordered bucket of row indices belonging to one user.
// Indices keep input order.
type userGroup struct {
	UserID string
	Rows   []int
}

// groupByUser folds the table into one bucket per user, sorted by user id.
func groupByUser(t *Table) []userGroup {
	pos := make(map[string]int)
	var groups []userGroup
	for i, r := range t.rows {
		g, ok := pos[r.UserID]
		if !ok {
			g = len(groups)
			pos[r.UserID] = g
			groups = append(groups, userGroup{UserID: r.UserID})
		}
		groups[g].Rows = append(groups[g].Rows, i)
	}
	sort.Slice(groups, func(a, b int) bool { return groups[a].UserID < groups[b].UserID })
	return groups
}
