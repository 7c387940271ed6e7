package domain

import (
	"time"
)

// Column names of the raw transaction table. Sources map their own schema
// onto these names and the feature pipeline refers to columns by them.
const (
	ColumnUserID           = "user_id"
	ColumnCreatedDate      = "created_date"
	ColumnAmountUSD        = "amount_usd"
	ColumnDirection        = "direction"
	ColumnTransactionsType = "transactions_type"
	ColumnTransactionID    = "transaction_id"

	// ColumnTransactionDay is derived from created_date by the pipeline.
	ColumnTransactionDay = "transaction_day"
)

// Transaction is one row of the raw event log.
type Transaction struct {
	UserID           string    // owner of the transaction, never empty
	CreatedDate      time.Time // full timestamp, used for ordering and day bucketing
	AmountUSD        float64   // non-negative
	Direction        string    // e.g. inbound / outbound
	TransactionsType string    // domain-defined type, e.g. TRANSFER, CARD_PAYMENT
	TransactionID    string    // unique per row, only counted
}

// Categorical returns the value of a categorical column by name.
// ok is false for columns that are not categorical.
func (t Transaction) Categorical(column string) (value string, ok bool) {
	switch column {
	case ColumnDirection:
		return t.Direction, true
	case ColumnTransactionsType:
		return t.TransactionsType, true
	default:
		return "", false
	}
}
