package features

import (
	"time"

	"github.com/dvloznov/txn-features/internal/domain"
)

var baseDay = time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)

// txn builds a transaction on baseDay + dayOffset days (+ extra time).
func txn(id, user string, dayOffset int, amount float64, typ, dir string) domain.Transaction {
	return domain.Transaction{
		UserID:           user,
		CreatedDate:      baseDay.AddDate(0, 0, dayOffset),
		AmountUSD:        amount,
		Direction:        dir,
		TransactionsType: typ,
		TransactionID:    id,
	}
}

// sampleRows is a small multi-user log used across tests.
func sampleRows() []domain.Transaction {
	return []domain.Transaction{
		txn("t1", "U1", 0, 10, "TRANSFER", "OUTBOUND"),
		txn("t2", "U2", 0, 100, "CARD_PAYMENT", "OUTBOUND"),
		txn("t3", "U1", 1, 20, "TRANSFER", "INBOUND"),
		txn("t4", "U2", 0, 50, "TOPUP", "INBOUND"),
		txn("t5", "U1", 4, 30, "CARD_PAYMENT", "OUTBOUND"),
		txn("t6", "U3", 7, 5, "TRANSFER", "OUTBOUND"),
		txn("t7", "U2", 3, 75, "CARD_PAYMENT", "OUTBOUND"),
	}
}
