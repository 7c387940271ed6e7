package domain

import "fmt"

// MissingColumnError is returned when a computation needs a column the table
// does not have, e.g. an unknown categorical column or the derived
// transaction_day before day derivation ran.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing column %q", e.Column)
}
