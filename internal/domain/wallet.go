package domain

import (
	"time"

	"github.com/google/uuid"
)

// TxType enumerates wallet transaction types (§3 Wallet transaction).
type TxType string

const (
	TxDeposit            TxType = "deposit"
	TxWithdrawal         TxType = "withdrawal"
	TxReservation        TxType = "reservation"
	TxReservationCommit  TxType = "reservation_commit"
	TxReservationRelease TxType = "reservation_release"
	TxBetWin             TxType = "bet_win"
	TxBetLoss            TxType = "bet_loss"
	TxBetRefund          TxType = "bet_refund"
)

// TxStatus is the lifecycle state of a wallet transaction.
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxCompleted TxStatus = "completed"
	TxFailed    TxStatus = "failed"
	TxCancelled TxStatus = "cancelled"
)

// Transaction is an immutable audit record for a wallet balance change.
// Idempotency is scoped to (userId, referenceId) — see §4.2.
type Transaction struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	Type         TxType    `json:"type"`
	Amount       Money     `json:"amount"`
	Status       TxStatus  `json:"status"`
	Description  string    `json:"description"`
	Timestamp    time.Time `json:"timestamp"`
	ReferenceID  string    `json:"reference_id,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Reservation is a hold on wallet funds for a pending bet: not yet deducted
// from Total but unavailable for other operations.
type Reservation struct {
	BetID  uuid.UUID `json:"bet_id"`
	Amount Money     `json:"amount"`
}

// WalletState is the durable state of one user's wallet (per userId).
// Invariants (W1-W3): Total >= Reserved >= 0; Available = Total - Reserved;
// sum of active Reservations == Reserved.
type WalletState struct {
	UserID       uuid.UUID              `json:"user_id"`
	Total        Money                  `json:"total"`
	Reserved     Money                  `json:"reserved"`
	Reservations map[uuid.UUID]Money    `json:"reservations"` // betId -> amount
	Idempotency  map[string]uuid.UUID   `json:"idempotency"`  // referenceId -> transactionId
	Transactions []Transaction          `json:"transactions"`
	Ledger       []LedgerEntry          `json:"ledger"`
	Version      int                    `json:"version"`
}

// Clone returns a deep copy of w, safe to mutate without affecting the
// original — the actor layer mutates a clone and only swaps it into the
// live mailbox state after a successful persist (spec.md: "a write failure
// surfaces as PersistenceError and leaves in-memory state untouched").
func (w *WalletState) Clone() *WalletState {
	cp := *w
	cp.Reservations = make(map[uuid.UUID]Money, len(w.Reservations))
	for k, v := range w.Reservations {
		cp.Reservations[k] = v
	}
	cp.Idempotency = make(map[string]uuid.UUID, len(w.Idempotency))
	for k, v := range w.Idempotency {
		cp.Idempotency[k] = v
	}
	cp.Transactions = append([]Transaction(nil), w.Transactions...)
	cp.Ledger = append([]LedgerEntry(nil), w.Ledger...)
	return &cp
}

// NewWalletState returns a freshly initialized, zero-balance wallet.
func NewWalletState(userID uuid.UUID, currency string) *WalletState {
	return &WalletState{
		UserID:       userID,
		Total:        Zero(currency),
		Reserved:     Zero(currency),
		Reservations: make(map[uuid.UUID]Money),
		Idempotency:  make(map[string]uuid.UUID),
	}
}

// Available returns Total - Reserved (W2).
func (w *WalletState) Available() Money {
	avail, err := w.Total.Subtract(w.Reserved)
	if err != nil {
		// Reserved should never legitimately exceed Total (W1); surface zero
		// rather than panic if that invariant was somehow violated upstream.
		return Zero(w.Total.Currency)
	}
	return avail
}

// TransactionResult is the outcome of a wallet operation (§4.2).
type TransactionResult struct {
	Success       bool        `json:"success"`
	TransactionID uuid.UUID   `json:"transaction_id,omitempty"`
	ErrorMessage  string      `json:"error_message,omitempty"`
	Transaction   Transaction `json:"transaction,omitempty"`
}
