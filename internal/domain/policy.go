package domain

import "fmt"

// BadRowPolicy decides what a source does with a row it cannot turn into a
// Transaction, typically an unparsable created_date.
type BadRowPolicy string

const (
	// BadRowAbort fails the whole load on the first bad row.
	BadRowAbort BadRowPolicy = "abort"
	// BadRowSkip drops the row and keeps loading.
	BadRowSkip BadRowPolicy = "skip"
)

// ParseBadRowPolicy reads a policy name. An empty name means BadRowAbort.
func ParseBadRowPolicy(s string) (BadRowPolicy, error) {
	switch BadRowPolicy(s) {
	case "", BadRowAbort:
		return BadRowAbort, nil
	case BadRowSkip:
		return BadRowSkip, nil
	default:
		return "", fmt.Errorf("unknown bad row policy %q (want %q or %q)", s, BadRowAbort, BadRowSkip)
	}
}
