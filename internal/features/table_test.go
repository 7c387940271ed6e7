package features

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/dvloznov/txn-features/internal/domain"
)

func TestTable_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(rows []domain.Transaction)
		wantErr bool
		wantRow int
	}{
		{
			name:   "valid",
			mutate: func(rows []domain.Transaction) {},
		},
		{
			name:    "empty user",
			mutate:  func(rows []domain.Transaction) { rows[2].UserID = "" },
			wantErr: true,
			wantRow: 2,
		},
		{
			name:    "zero date",
			mutate:  func(rows []domain.Transaction) { rows[1].CreatedDate = time.Time{} },
			wantErr: true,
			wantRow: 1,
		},
		{
			name:    "negative amount",
			mutate:  func(rows []domain.Transaction) { rows[3].AmountUSD = -0.01 },
			wantErr: true,
			wantRow: 3,
		},
		{
			name:    "NaN amount",
			mutate:  func(rows []domain.Transaction) { rows[0].AmountUSD = math.NaN() },
			wantErr: true,
			wantRow: 0,
		},
		{
			name:    "duplicate transaction id",
			mutate:  func(rows []domain.Transaction) { rows[4].TransactionID = "t1" },
			wantErr: true,
			wantRow: 4,
		},
		{
			name: "empty transaction ids are not duplicates",
			mutate: func(rows []domain.Transaction) {
				rows[0].TransactionID = ""
				rows[1].TransactionID = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := sampleRows()
			tt.mutate(rows)
			err := NewTable(rows).Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			var ie *InvariantError
			if !errors.As(err, &ie) {
				t.Fatalf("expected *InvariantError, got %T", err)
			}
			if ie.Row != tt.wantRow {
				t.Errorf("InvariantError.Row = %d, want %d", ie.Row, tt.wantRow)
			}
		})
	}
}

func TestNewTable_CopiesInput(t *testing.T) {
	rows := sampleRows()
	table := NewTable(rows)
	rows[0].AmountUSD = 999

	if got := table.rows[0].AmountUSD; got != 10 {
		t.Errorf("table changed with its input: amount = %v", got)
	}
}

func TestTable_WithCalendarDays(t *testing.T) {
	table := NewTable(sampleRows())
	if table.HasColumn(domain.ColumnTransactionDay) {
		t.Fatal("fresh table should not have transaction_day")
	}
	if table.days != nil {
		t.Fatal("fresh table should carry no days")
	}

	withDays := table.WithCalendarDays()
	if table.HasColumn(domain.ColumnTransactionDay) {
		t.Error("WithCalendarDays mutated the receiver")
	}
	if !withDays.HasColumn(domain.ColumnTransactionDay) {
		t.Fatal("derived table lacks transaction_day")
	}

	if d := withDays.days[4]; d.Year != 2024 || d.Month != time.January || d.Day != 5 {
		t.Errorf("day of row 4 = %v, want 2024-01-05", d)
	}
}

func TestGroupByUser(t *testing.T) {
	groups := groupByUser(NewTable(sampleRows()))

	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3", len(groups))
	}
	wantUsers := []string{"U1", "U2", "U3"}
	wantRows := [][]int{{0, 2, 4}, {1, 3, 6}, {5}}
	for i, g := range groups {
		if g.UserID != wantUsers[i] {
			t.Errorf("group %d user = %q, want %q", i, g.UserID, wantUsers[i])
		}
		if len(g.Rows) != len(wantRows[i]) {
			t.Fatalf("group %d rows = %v, want %v", i, g.Rows, wantRows[i])
		}
		for j := range g.Rows {
			if g.Rows[j] != wantRows[i][j] {
				t.Errorf("group %d rows = %v, want %v", i, g.Rows, wantRows[i])
				break
			}
		}
	}
}
