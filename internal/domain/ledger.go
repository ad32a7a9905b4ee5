package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntryKind distinguishes the two sides of a double-entry ledger line.
type EntryKind string

const (
	Credit EntryKind = "credit"
	Debit  EntryKind = "debit"
)

// LedgerEntry is one line of an append-only double-entry ledger. Every
// transaction creates exactly one Credit and one Debit entry sharing the
// same TransactionID and Money amount; over any subset of entries sharing a
// transactionId, the sum of Credit amounts must equal the sum of Debit
// amounts (W4 in the testable properties).
type LedgerEntry struct {
	ID            uuid.UUID `json:"id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Amount        Money     `json:"amount"`
	Kind          EntryKind `json:"kind"`
	Description   string    `json:"description"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewLedgerPair builds the paired Credit+Debit entries for a single
// transaction, both carrying the same amount and transactionId.
func NewLedgerPair(transactionID uuid.UUID, amount Money, creditDesc, debitDesc string, at time.Time) (credit, debit LedgerEntry) {
	credit = LedgerEntry{
		ID:            uuid.New(),
		TransactionID: transactionID,
		Amount:        amount,
		Kind:          Credit,
		Description:   creditDesc,
		Timestamp:     at,
	}
	debit = LedgerEntry{
		ID:            uuid.New(),
		TransactionID: transactionID,
		Amount:        amount,
		Kind:          Debit,
		Description:   debitDesc,
		Timestamp:     at,
	}
	return credit, debit
}

// LedgerBalances sums Credit and Debit amounts (same currency assumed)
// across a slice of entries — used by tests asserting W4.
func LedgerBalances(entries []LedgerEntry) (creditTotal, debitTotal Money) {
	creditTotal = Zero("")
	debitTotal = Zero("")
	for _, e := range entries {
		if creditTotal.Currency == "" {
			creditTotal.Currency = e.Amount.Currency
		}
		if debitTotal.Currency == "" {
			debitTotal.Currency = e.Amount.Currency
		}
		switch e.Kind {
		case Credit:
			creditTotal, _ = creditTotal.Add(e.Amount)
		case Debit:
			debitTotal, _ = debitTotal.Add(e.Amount)
		}
	}
	return creditTotal, debitTotal
}
