package features

import (
	"fmt"
	"sort"

	"github.com/dvloznov/txn-features/internal/domain"
	"gonum.org/v1/gonum/floats"
)

// Distribution is a user × category matrix of transaction shares for one
// categorical column. Values holds every category observed anywhere in the
// input, sorted, so all users share the same columns.
type Distribution struct {
	Column string
	Values []string
	Shares map[string][]float64 // user -> share per Values entry
}

// CategoryDistribution counts transactions per (user, value of column),
// pivots the counts into one row per user and normalises each row to sum
// to 1.
func CategoryDistribution(t *Table, column string) (*Distribution, error) {
	if _, ok := (domain.Transaction{}).Categorical(column); !ok {
		return nil, fmt.Errorf("CategoryDistribution: %w", &domain.MissingColumnError{Column: column})
	}

	valueSet := make(map[string]struct{})
	for _, r := range t.rows {
		v, _ := r.Categorical(column)
		valueSet[v] = struct{}{}
	}
	values := make([]string, 0, len(valueSet))
	for v := range valueSet {
		values = append(values, v)
	}
	sort.Strings(values)
	col := make(map[string]int, len(values))
	for i, v := range values {
		col[v] = i
	}

	d := &Distribution{
		Column: column,
		Values: values,
		Shares: make(map[string][]float64),
	}
	for _, g := range groupByUser(t) {
		counts := make([]float64, len(values))
		for _, idx := range g.Rows {
			v, _ := t.rows[idx].Categorical(column)
			counts[col[v]]++
		}
		floats.Scale(1/floats.Sum(counts), counts)
		d.Shares[g.UserID] = counts
	}
	return d, nil
}
