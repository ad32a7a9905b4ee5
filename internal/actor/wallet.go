package actor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/oddsforge/sportsbook/internal/domain"
	"github.com/oddsforge/sportsbook/internal/eventbus"
	"github.com/oddsforge/sportsbook/internal/snapshot"
)

// WalletClient is the typed handle injected into the bet actor so it never
// constructs or looks up another actor itself (§9: grain-factory lookups
// are replaced by constructor-injected client handles).
type WalletClient interface {
	Deposit(ctx context.Context, userID uuid.UUID, amount domain.Money, referenceID string) (domain.TransactionResult, error)
	Withdraw(ctx context.Context, userID uuid.UUID, amount domain.Money, referenceID string) (domain.TransactionResult, error)
	Reserve(ctx context.Context, userID uuid.UUID, amount domain.Money, betID uuid.UUID) (domain.TransactionResult, error)
	CommitReservation(ctx context.Context, userID, betID uuid.UUID) (domain.TransactionResult, error)
	ReleaseReservation(ctx context.Context, userID, betID uuid.UUID) (domain.TransactionResult, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (domain.Money, error)
	GetAvailableBalance(ctx context.Context, userID uuid.UUID) (domain.Money, error)
	GetTransactionHistory(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Transaction, error)
	GetLedgerEntries(ctx context.Context, userID uuid.UUID, limit int) ([]domain.LedgerEntry, error)
	ListUserIDs() []uuid.UUID
}

// WalletActor is the per-userId logical actor for wallet operations (§4.2).
type WalletActor struct {
	manager  *Manager[uuid.UUID, domain.WalletState]
	snaps    snapshot.Store
	bus      eventbus.Publisher
	currency string
}

// NewWalletActor constructs a WalletActor backed by snaps for persistence
// and bus for fire-and-forget domain event publication.
func NewWalletActor(snaps snapshot.Store, bus eventbus.Publisher, currency string) *WalletActor {
	w := &WalletActor{snaps: snaps, bus: bus, currency: currency}
	w.manager = NewManager(func(userID uuid.UUID) domain.WalletState {
		loaded, ok := loadWalletSnapshot(snaps, userID)
		if ok {
			return loaded
		}
		return *domain.NewWalletState(userID, currency)
	})
	return w
}

func loadWalletSnapshot(store snapshot.Store, userID uuid.UUID) (domain.WalletState, bool) {
	var ws domain.WalletState
	ok, err := store.Load(context.Background(), "wallet", userID.String(), &ws)
	if err != nil || !ok {
		return domain.WalletState{}, false
	}
	return ws, true
}

func (w *WalletActor) persist(ctx context.Context, ws *domain.WalletState) error {
	return w.snaps.Save(ctx, "wallet", ws.UserID.String(), ws)
}

func (w *WalletActor) publish(eventType string, payload interface{}) {
	w.bus.Publish(context.Background(), "wallet", eventType, payload)
}

// Deposit implements §4.2 Deposit: idempotent on (userId, referenceId).
func (w *WalletActor) Deposit(ctx context.Context, userID uuid.UUID, amount domain.Money, referenceID string) (domain.TransactionResult, error) {
	return ManagerCall(ctx, w.manager, userID, func(ws *domain.WalletState) domain.TransactionResult {
		if amount.Amount.Sign() <= 0 {
			return failResult(domain.ErrNonPositiveAmount)
		}
		if referenceID != "" {
			if txID, ok := ws.Idempotency[referenceID]; ok {
				return replayResult(ws, txID)
			}
		}

		next := ws.Clone()
		txID := uuid.New()
		now := time.Now()
		newTotal, err := next.Total.Add(amount)
		if err != nil {
			return failResult(err)
		}

		txn := domain.Transaction{
			ID: txID, UserID: userID, Type: domain.TxDeposit, Amount: amount,
			Status: domain.TxCompleted, Description: "deposit", Timestamp: now, ReferenceID: referenceID,
		}
		credit, debit := domain.NewLedgerPair(txID, amount, "wallet credit: deposit", "external counterparty debit", now)

		next.Total = newTotal
		next.Transactions = append(next.Transactions, txn)
		next.Ledger = append(next.Ledger, credit, debit)
		if referenceID != "" {
			next.Idempotency[referenceID] = txID
		}
		next.Version++

		if err := w.persist(ctx, next); err != nil {
			return failResult(domain.ErrPersistenceError)
		}
		*ws = *next
		w.publish("deposited", txn)
		return domain.TransactionResult{Success: true, TransactionID: txID, Transaction: txn}
	})
}

// Withdraw implements §4.2 Withdraw: mirrors Deposit's entries in reverse.
func (w *WalletActor) Withdraw(ctx context.Context, userID uuid.UUID, amount domain.Money, referenceID string) (domain.TransactionResult, error) {
	return ManagerCall(ctx, w.manager, userID, func(ws *domain.WalletState) domain.TransactionResult {
		if amount.Amount.Sign() <= 0 {
			return failResult(domain.ErrNonPositiveAmount)
		}
		if referenceID != "" {
			if txID, ok := ws.Idempotency[referenceID]; ok {
				return replayResult(ws, txID)
			}
		}
		if ws.Available().LessThan(amount) {
			return failResult(domain.ErrInsufficientAvailableBalance)
		}

		next := ws.Clone()
		txID := uuid.New()
		now := time.Now()
		newTotal, err := next.Total.Subtract(amount)
		if err != nil {
			return failResult(err)
		}

		txn := domain.Transaction{
			ID: txID, UserID: userID, Type: domain.TxWithdrawal, Amount: amount,
			Status: domain.TxCompleted, Description: "withdrawal", Timestamp: now, ReferenceID: referenceID,
		}
		credit, debit := domain.NewLedgerPair(txID, amount, "external counterparty credit", "wallet debit: withdrawal", now)

		next.Total = newTotal
		next.Transactions = append(next.Transactions, txn)
		next.Ledger = append(next.Ledger, credit, debit)
		if referenceID != "" {
			next.Idempotency[referenceID] = txID
		}
		next.Version++

		if err := w.persist(ctx, next); err != nil {
			return failResult(domain.ErrPersistenceError)
		}
		*ws = *next
		w.publish("withdrawn", txn)
		return domain.TransactionResult{Success: true, TransactionID: txID, Transaction: txn}
	})
}

// Reserve implements §4.2 Reserve: at most one active reservation per betId.
func (w *WalletActor) Reserve(ctx context.Context, userID uuid.UUID, amount domain.Money, betID uuid.UUID) (domain.TransactionResult, error) {
	return ManagerCall(ctx, w.manager, userID, func(ws *domain.WalletState) domain.TransactionResult {
		if _, exists := ws.Reservations[betID]; exists {
			return failResult(domain.ErrDuplicateReservation)
		}
		if ws.Available().LessThan(amount) {
			return failResult(domain.ErrInsufficientAvailableBalance)
		}

		next := ws.Clone()
		txID := uuid.New()
		now := time.Now()
		newReserved, err := next.Reserved.Add(amount)
		if err != nil {
			return failResult(err)
		}

		txn := domain.Transaction{
			ID: txID, UserID: userID, Type: domain.TxReservation, Amount: amount,
			Status: domain.TxCompleted, Description: "bet reservation", Timestamp: now, ReferenceID: betID.String(),
		}

		next.Reserved = newReserved
		next.Reservations[betID] = amount
		next.Transactions = append(next.Transactions, txn)
		next.Version++

		if err := w.persist(ctx, next); err != nil {
			return failResult(domain.ErrPersistenceError)
		}
		*ws = *next
		w.publish("reserved", txn)
		return domain.TransactionResult{Success: true, TransactionID: txID, Transaction: txn}
	})
}

// CommitReservation implements §4.2 CommitReservation: decreases both Total
// and Reserved, removing the mapping.
func (w *WalletActor) CommitReservation(ctx context.Context, userID, betID uuid.UUID) (domain.TransactionResult, error) {
	return ManagerCall(ctx, w.manager, userID, func(ws *domain.WalletState) domain.TransactionResult {
		amount, ok := ws.Reservations[betID]
		if !ok {
			return failResult(domain.ErrReservationNotFound)
		}

		next := ws.Clone()
		txID := uuid.New()
		now := time.Now()
		newTotal, err := next.Total.Subtract(amount)
		if err != nil {
			return failResult(err)
		}
		newReserved, err := next.Reserved.Subtract(amount)
		if err != nil {
			return failResult(err)
		}

		txn := domain.Transaction{
			ID: txID, UserID: userID, Type: domain.TxReservationCommit, Amount: amount,
			Status: domain.TxCompleted, Description: "reservation committed", Timestamp: now, ReferenceID: betID.String(),
		}

		next.Total = newTotal
		next.Reserved = newReserved
		delete(next.Reservations, betID)
		next.Transactions = append(next.Transactions, txn)
		next.Version++

		if err := w.persist(ctx, next); err != nil {
			return failResult(domain.ErrPersistenceError)
		}
		*ws = *next
		w.publish("reservation_committed", txn)
		return domain.TransactionResult{Success: true, TransactionID: txID, Transaction: txn}
	})
}

// ReleaseReservation implements §4.2 ReleaseReservation: decreases Reserved
// only, Total is unaffected.
func (w *WalletActor) ReleaseReservation(ctx context.Context, userID, betID uuid.UUID) (domain.TransactionResult, error) {
	return ManagerCall(ctx, w.manager, userID, func(ws *domain.WalletState) domain.TransactionResult {
		amount, ok := ws.Reservations[betID]
		if !ok {
			return failResult(domain.ErrReservationNotFound)
		}

		next := ws.Clone()
		txID := uuid.New()
		now := time.Now()
		newReserved, err := next.Reserved.Subtract(amount)
		if err != nil {
			return failResult(err)
		}

		txn := domain.Transaction{
			ID: txID, UserID: userID, Type: domain.TxReservationRelease, Amount: amount,
			Status: domain.TxCompleted, Description: "reservation released", Timestamp: now, ReferenceID: betID.String(),
		}

		next.Reserved = newReserved
		delete(next.Reservations, betID)
		next.Transactions = append(next.Transactions, txn)
		next.Version++

		if err := w.persist(ctx, next); err != nil {
			return failResult(domain.ErrPersistenceError)
		}
		*ws = *next
		w.publish("reservation_released", txn)
		return domain.TransactionResult{Success: true, TransactionID: txID, Transaction: txn}
	})
}

// GetBalance returns the wallet's total balance.
func (w *WalletActor) GetBalance(ctx context.Context, userID uuid.UUID) (domain.Money, error) {
	return ManagerCall(ctx, w.manager, userID, func(ws *domain.WalletState) domain.Money {
		return ws.Total
	})
}

// GetAvailableBalance returns Total - Reserved (W2).
func (w *WalletActor) GetAvailableBalance(ctx context.Context, userID uuid.UUID) (domain.Money, error) {
	return ManagerCall(ctx, w.manager, userID, func(ws *domain.WalletState) domain.Money {
		return ws.Available()
	})
}

// GetTransactionHistory returns up to limit transactions, descending by
// timestamp, as a read-only copy.
func (w *WalletActor) GetTransactionHistory(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Transaction, error) {
	return ManagerCall(ctx, w.manager, userID, func(ws *domain.WalletState) []domain.Transaction {
		return latestN(ws.Transactions, limit)
	})
}

// GetLedgerEntries returns up to limit ledger entries, descending by
// timestamp, as a read-only copy.
func (w *WalletActor) GetLedgerEntries(ctx context.Context, userID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	return ManagerCall(ctx, w.manager, userID, func(ws *domain.WalletState) []domain.LedgerEntry {
		return latestNLedger(ws.Ledger, limit)
	})
}

// ListUserIDs returns every userId with a live wallet mailbox. Used by the
// finance report to aggregate across all wallets. Any wallet call for a
// userId, including a read, creates that user's mailbox.
func (w *WalletActor) ListUserIDs() []uuid.UUID {
	return w.manager.Keys()
}

func failResult(err error) domain.TransactionResult {
	return domain.TransactionResult{Success: false, ErrorMessage: err.Error()}
}

func replayResult(ws *domain.WalletState, txID uuid.UUID) domain.TransactionResult {
	for _, txn := range ws.Transactions {
		if txn.ID == txID {
			return domain.TransactionResult{Success: true, TransactionID: txID, Transaction: txn}
		}
	}
	return domain.TransactionResult{Success: true, TransactionID: txID}
}

func latestN(txns []domain.Transaction, limit int) []domain.Transaction {
	n := len(txns)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.Transaction, limit)
	for i := 0; i < limit; i++ {
		out[i] = txns[n-1-i]
	}
	return out
}

func latestNLedger(entries []domain.LedgerEntry, limit int) []domain.LedgerEntry {
	n := len(entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.LedgerEntry, limit)
	for i := 0; i < limit; i++ {
		out[i] = entries[n-1-i]
	}
	return out
}
