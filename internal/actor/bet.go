package actor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/oddsforge/sportsbook/internal/domain"
	"github.com/oddsforge/sportsbook/internal/eventbus"
	"github.com/oddsforge/sportsbook/internal/eventstore"
	"github.com/shopspring/decimal"
)

// BetClient is the typed handle the HTTP layer and the settlement-dispatch
// scheduler use to drive one bet's lifecycle (§4.4).
type BetClient interface {
	PlaceBet(ctx context.Context, userID, eventID, marketID uuid.UUID, selectionID string, stake domain.Money, acceptableOdds decimal.Decimal, idempotencyKey string) (domain.BetAggregate, bool, error)
	GetBetDetails(ctx context.Context, betID uuid.UUID) (domain.BetAggregate, error)
	GetBetHistory(ctx context.Context, betID uuid.UUID) ([]domain.BetSnapshot, error)
	VoidBet(ctx context.Context, betID uuid.UUID, reason string) (domain.BetAggregate, error)
	CashOut(ctx context.Context, betID uuid.UUID) (domain.BetAggregate, error)
	ApplySettlement(ctx context.Context, betID uuid.UUID, outcome domain.BetStatus) (domain.BetAggregate, error)
}

// betState is the mailbox-held state for one betId: the aggregate folded
// from the events already appended to the event store.
type betState struct {
	agg *domain.BetAggregate
}

// BetActor is the per-betId logical actor (§4.4), event-sourced via
// eventstore.EventStore and depending on the wallet/odds/bet-index actors
// through injected client handles rather than grain-factory lookups (§9).
type BetActor struct {
	manager *Manager[uuid.UUID, betState]
	store   eventstore.EventStore
	bus     eventbus.Publisher
	wallet  WalletClient
	odds    OddsClient
	index   BetIndexClient

	cashoutDiscount decimal.Decimal
	cashoutFloor    decimal.Decimal
}

// NewBetActor constructs a BetActor. cashoutDiscount/cashoutFloor come from
// config.CashoutConfig (§9 Open Question: the discount curve's parameters
// are configuration, not hardcoded).
func NewBetActor(store eventstore.EventStore, bus eventbus.Publisher, wallet WalletClient, odds OddsClient, index BetIndexClient, cashoutDiscount, cashoutFloor decimal.Decimal) *BetActor {
	b := &BetActor{
		store: store, bus: bus, wallet: wallet, odds: odds, index: index,
		cashoutDiscount: cashoutDiscount, cashoutFloor: cashoutFloor,
	}
	b.manager = NewManager(func(betID uuid.UUID) betState {
		events, err := store.Read(context.Background(), eventstore.StreamKey(betID))
		if err != nil {
			return betState{agg: &domain.BetAggregate{BetID: betID, Type: domain.BetTypeSingle}}
		}
		return betState{agg: domain.FoldBet(betID, events)}
	})
	return b
}

func (b *BetActor) publish(eventType string, payload interface{}) {
	b.bus.Publish(context.Background(), "bet", eventType, payload)
}

func (b *BetActor) append(ctx context.Context, betID uuid.UUID, events ...domain.BetEvent) error {
	if err := b.store.Append(ctx, eventstore.StreamKey(betID), events); err != nil {
		return domain.ErrPersistenceError
	}
	return nil
}

type betResult struct {
	agg domain.BetAggregate
	err error
}

// rejectionSentinels enumerates the domain errors a rejected bet's
// RejectionReason can encode, so a replayed idempotency lookup (and the HTTP
// layer) can recover the original sentinel from the persisted reason string
// instead of just its prose.
var rejectionSentinels = []error{
	domain.ErrInsufficientAvailableBalance,
	domain.ErrMarketSuspended,
	domain.ErrUnknownSelection,
	domain.ErrOddsChanged,
}

func rejectionError(reason string) error {
	for _, e := range rejectionSentinels {
		if e.Error() == reason {
			return e
		}
	}
	return domain.ErrInvalidRequest
}

// PlaceBet implements §4.4 PlaceBet: reserve funds, lock odds, and accept or
// reject the bet. Each step compensates the prior one on failure so neither
// the wallet nor the odds actor is left holding state for a bet that never
// gets accepted. A non-empty idempotencyKey makes repeated calls with the
// same key replay the original bet's result (§8 Scenario 4) instead of
// placing a second bet; the returned bool is true exactly when the call
// replayed rather than placed.
func (b *BetActor) PlaceBet(ctx context.Context, userID, eventID, marketID uuid.UUID, selectionID string, stake domain.Money, acceptableOdds decimal.Decimal, idempotencyKey string) (domain.BetAggregate, bool, error) {
	if idempotencyKey != "" {
		if existingID, ok, err := b.index.LookupIdempotencyKey(ctx, userID, idempotencyKey); err == nil && ok {
			existing, err := b.GetBetDetails(ctx, existingID)
			if err != nil {
				return domain.BetAggregate{}, false, err
			}
			if existing.Status == domain.BetRejected {
				return domain.BetAggregate{}, false, rejectionError(existing.RejectionReason)
			}
			return existing, true, nil
		}
	}

	betID := uuid.New()

	r, err := ManagerCall(ctx, b.manager, betID, func(s *betState) betResult {
		if s.agg.Exists() {
			return betResult{err: domain.ErrAlreadyExists}
		}
		if stake.Amount.Sign() <= 0 {
			return betResult{err: domain.ErrNonPositiveAmount}
		}
		if acceptableOdds.LessThan(domain.MinOdds) {
			return betResult{err: domain.ErrInvalidOdds}
		}

		now := time.Now()
		placed := domain.BetEvent{
			EventID: uuid.New(), Type: domain.EventBetPlaced, Timestamp: now, AggregateID: betID,
			Payload: domain.BetPlacedPayload{
				UserID: userID, EventID: eventID, MarketID: marketID, SelectionID: selectionID,
				Stake: stake, AcceptableOdds: acceptableOdds,
			},
		}
		if err := b.append(ctx, betID, placed); err != nil {
			return betResult{err: err}
		}
		domain.ApplyBetEvent(s.agg, placed)
		b.publish("placed", placed.Payload)

		if idempotencyKey != "" {
			if err := b.index.ReserveIdempotencyKey(ctx, userID, idempotencyKey, betID); err != nil {
				return betResult{err: err}
			}
		}

		// Step 1: reserve the stake.
		resResult, resErr := b.wallet.Reserve(ctx, userID, stake, betID)
		if resErr != nil {
			return b.reject(ctx, s, betID, resErr)
		}
		if !resResult.Success {
			return b.reject(ctx, s, betID, domain.ErrInsufficientAvailableBalance)
		}

		// Step 2: lock odds for this selection; compensate the reservation if
		// the market has been suspended or the selection is unknown.
		_, lockedOdds, lockErr := b.odds.LockOddsForBet(ctx, marketID, betID, selectionID)
		if lockErr != nil {
			b.wallet.ReleaseReservation(ctx, userID, betID)
			return b.reject(ctx, s, betID, lockErr)
		}

		// §4.4: the odds actor may have moved since AcceptableOdds was set by
		// the caller; reject (and compensate both prior steps) if it no
		// longer meets the caller's acceptable-odds floor.
		if lockedOdds.Decimal.LessThan(acceptableOdds) {
			b.odds.UnlockOddsAsync(ctx, marketID, betID)
			b.wallet.ReleaseReservation(ctx, userID, betID)
			return b.reject(ctx, s, betID, domain.ErrOddsChanged)
		}

		potential := domain.PotentialPayout(stake, lockedOdds.Decimal)
		accepted := domain.BetEvent{
			EventID: uuid.New(), Type: domain.EventBetAccepted, Timestamp: time.Now(), AggregateID: betID,
			Payload: domain.BetAcceptedPayload{FinalOdds: lockedOdds.Decimal, PotentialPayout: potential},
		}
		if err := b.append(ctx, betID, accepted); err != nil {
			b.odds.UnlockOddsAsync(ctx, marketID, betID)
			b.wallet.ReleaseReservation(ctx, userID, betID)
			return betResult{err: err}
		}
		domain.ApplyBetEvent(s.agg, accepted)
		b.publish("accepted", accepted.Payload)

		if err := b.index.AddBet(ctx, userID, betID); err != nil {
			// Indexing is best-effort read-model bookkeeping; the bet itself
			// is already accepted and authoritative in its own stream.
			b.publish("index_failed", betID)
		}

		return betResult{agg: *s.agg}
	})
	if err != nil {
		return domain.BetAggregate{}, false, err
	}
	return r.agg, false, r.err
}

// reject appends a BetRejected event and folds it, used by PlaceBet after a
// compensating release/unlock. cause is the sentinel describing why the bet
// was rejected; it is both persisted (as the event's Reason) and returned as
// the result's error, so the HTTP layer maps it to the correct status (§6).
func (b *BetActor) reject(ctx context.Context, s *betState, betID uuid.UUID, cause error) betResult {
	rejected := domain.BetEvent{
		EventID: uuid.New(), Type: domain.EventBetRejected, Timestamp: time.Now(), AggregateID: betID,
		Payload: domain.BetRejectedPayload{Reason: cause.Error()},
	}
	if err := b.append(ctx, betID, rejected); err != nil {
		return betResult{err: err}
	}
	domain.ApplyBetEvent(s.agg, rejected)
	b.publish("rejected", rejected.Payload)
	return betResult{agg: *s.agg, err: cause}
}

// GetBetDetails implements §4.4 GetBetDetails.
func (b *BetActor) GetBetDetails(ctx context.Context, betID uuid.UUID) (domain.BetAggregate, error) {
	r, err := ManagerCall(ctx, b.manager, betID, func(s *betState) betResult {
		if !s.agg.Exists() {
			return betResult{err: domain.ErrBetNotFound}
		}
		return betResult{agg: *s.agg}
	})
	if err != nil {
		return domain.BetAggregate{}, err
	}
	return r.agg, r.err
}

// GetBetHistory implements §4.4 GetBetHistory: the chronological sequence of
// aggregate snapshots, one per applied event.
func (b *BetActor) GetBetHistory(ctx context.Context, betID uuid.UUID) ([]domain.BetSnapshot, error) {
	events, err := b.store.Read(ctx, eventstore.StreamKey(betID))
	if err != nil {
		return nil, domain.ErrPersistenceError
	}
	return domain.SnapshotHistory(betID, events), nil
}

// VoidBet implements §4.4 VoidBet: refunds the stake and releases the odds
// lock. Only legal from Pending or Accepted.
func (b *BetActor) VoidBet(ctx context.Context, betID uuid.UUID, reason string) (domain.BetAggregate, error) {
	r, err := ManagerCall(ctx, b.manager, betID, func(s *betState) betResult {
		if !s.agg.Exists() {
			return betResult{err: domain.ErrBetNotFound}
		}
		if s.agg.Status != domain.BetPending && s.agg.Status != domain.BetAccepted {
			return betResult{err: domain.ErrCannotVoidInStatus}
		}

		refundResult, refundErr := b.wallet.ReleaseReservation(ctx, s.agg.UserID, betID)
		if refundErr != nil {
			return betResult{err: refundErr}
		}
		b.odds.UnlockOddsAsync(ctx, s.agg.MarketID, betID)

		refund := refundResult.Transaction.Amount
		voided := domain.BetEvent{
			EventID: uuid.New(), Type: domain.EventBetVoided, Timestamp: time.Now(), AggregateID: betID,
			Payload: domain.BetVoidedPayload{Reason: reason, Refund: &refund},
		}
		if err := b.append(ctx, betID, voided); err != nil {
			return betResult{err: err}
		}
		domain.ApplyBetEvent(s.agg, voided)
		b.publish("voided", voided.Payload)
		return betResult{agg: *s.agg}
	})
	if err != nil {
		return domain.BetAggregate{}, err
	}
	return r.agg, r.err
}

// CashOut implements §4.4 CashOut: pays out stake * discount *
// (lockedDecimal/currentDecimal), floored, then credits the wallet and
// releases the odds lock. Only legal while Accepted and the market is not
// suspended.
func (b *BetActor) CashOut(ctx context.Context, betID uuid.UUID) (domain.BetAggregate, error) {
	r, err := ManagerCall(ctx, b.manager, betID, func(s *betState) betResult {
		if !s.agg.Exists() {
			return betResult{err: domain.ErrBetNotFound}
		}
		if s.agg.Status != domain.BetAccepted {
			return betResult{err: domain.ErrCannotCashOutInStatus}
		}

		suspended, err := b.odds.IsMarketSuspended(ctx, s.agg.MarketID)
		if err != nil {
			return betResult{err: err}
		}
		if suspended {
			return betResult{err: domain.ErrMarketSuspended}
		}

		current, err := b.odds.GetCurrentOdds(ctx, s.agg.MarketID)
		if err != nil {
			return betResult{err: err}
		}
		currentDecimal, ok := current.Odds[s.agg.SelectionID]
		if !ok {
			return betResult{err: domain.ErrUnknownSelection}
		}

		payout := domain.CashoutAmount(s.agg.Stake, s.agg.FinalOdds, currentDecimal, b.cashoutDiscount, b.cashoutFloor)

		// Commit the original reservation (it is no longer "pending a bet
		// outcome") then credit the cashout payout as a deposit.
		if _, err := b.wallet.CommitReservation(ctx, s.agg.UserID, betID); err != nil {
			return betResult{err: err}
		}
		if _, err := b.wallet.Deposit(ctx, s.agg.UserID, payout, "cashout:"+betID.String()); err != nil {
			return betResult{err: domain.ErrWalletDepositFailed}
		}
		b.odds.UnlockOddsAsync(ctx, s.agg.MarketID, betID)

		cashedOut := domain.BetEvent{
			EventID: uuid.New(), Type: domain.EventBetCashedOut, Timestamp: time.Now(), AggregateID: betID,
			Payload: domain.BetCashedOutPayload{Payout: payout},
		}
		if err := b.append(ctx, betID, cashedOut); err != nil {
			return betResult{err: err}
		}
		domain.ApplyBetEvent(s.agg, cashedOut)
		b.publish("cashed_out", cashedOut.Payload)
		return betResult{agg: *s.agg}
	})
	if err != nil {
		return domain.BetAggregate{}, err
	}
	return r.agg, r.err
}

// ApplySettlement implements §4.4 ApplySettlement, invoked by the sport
// event actor's settlement fan-out (§9) with the market's outcome for this
// bet's selection. outcome must be domain.BetWon or domain.BetLost.
func (b *BetActor) ApplySettlement(ctx context.Context, betID uuid.UUID, outcome domain.BetStatus) (domain.BetAggregate, error) {
	r, err := ManagerCall(ctx, b.manager, betID, func(s *betState) betResult {
		if !s.agg.Exists() {
			return betResult{err: domain.ErrBetNotFound}
		}
		if s.agg.Status.IsTerminal() {
			return betResult{err: domain.ErrAlreadyProcessed}
		}
		if s.agg.Status != domain.BetAccepted {
			return betResult{err: domain.ErrInvalidTransition}
		}

		var payout *domain.Money
		switch outcome {
		case domain.BetWon:
			win := domain.PotentialPayout(s.agg.Stake, s.agg.FinalOdds)
			if _, err := b.wallet.CommitReservation(ctx, s.agg.UserID, betID); err != nil {
				return betResult{err: err}
			}
			if _, err := b.wallet.Deposit(ctx, s.agg.UserID, win, "settlement:"+betID.String()); err != nil {
				return betResult{err: domain.ErrWalletDepositFailed}
			}
			payout = &win
		case domain.BetLost:
			if _, err := b.wallet.CommitReservation(ctx, s.agg.UserID, betID); err != nil {
				return betResult{err: err}
			}
		default:
			return betResult{err: domain.ErrInvalidRequest}
		}
		b.odds.UnlockOddsAsync(ctx, s.agg.MarketID, betID)

		settled := domain.BetEvent{
			EventID: uuid.New(), Type: domain.EventBetSettled, Timestamp: time.Now(), AggregateID: betID,
			Payload: domain.BetSettledPayload{Outcome: outcome, Payout: payout},
		}
		if err := b.append(ctx, betID, settled); err != nil {
			return betResult{err: err}
		}
		domain.ApplyBetEvent(s.agg, settled)
		b.publish("settled", settled.Payload)
		return betResult{agg: *s.agg}
	})
	if err != nil {
		return domain.BetAggregate{}, err
	}
	return r.agg, r.err
}
