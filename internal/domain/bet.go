package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BetStatus is a node in the bet state machine (§4.4).
type BetStatus string

const (
	BetPending  BetStatus = "pending"
	BetAccepted BetStatus = "accepted"
	BetRejected BetStatus = "rejected"
	BetVoid     BetStatus = "void"
	BetWon      BetStatus = "won"
	BetLost     BetStatus = "lost"
	BetCashedOut BetStatus = "cashed_out"
)

// IsTerminal reports whether status is one of the terminal states a bet may
// reach at most once (B2): Rejected, Void, Won, Lost, CashOut.
func (s BetStatus) IsTerminal() bool {
	switch s {
	case BetRejected, BetVoid, BetWon, BetLost, BetCashedOut:
		return true
	}
	return false
}

// BetType enumerates supported bet structures. Only Single is defined by
// the spec; the field exists so a future combination/parlay type has
// somewhere to land without changing the aggregate shape.
type BetType string

const BetTypeSingle BetType = "single"

// EventType enumerates the bet aggregate's event-sourced event kinds (§4.4).
type EventType string

const (
	EventBetPlaced    EventType = "BetPlaced"
	EventBetAccepted  EventType = "BetAccepted"
	EventBetRejected  EventType = "BetRejected"
	EventBetSettled   EventType = "BetSettled"
	EventBetVoided    EventType = "BetVoided"
	EventBetCashedOut EventType = "BetCashedOut"
)

// BetEvent is one entry in a bet's append-only event stream, keyed by
// "bet:<betId>" in the event store (§6 Persistence layout).
type BetEvent struct {
	EventID       uuid.UUID   `json:"event_id"`
	Type          EventType   `json:"type"`
	Timestamp     time.Time   `json:"timestamp"`
	AggregateID   uuid.UUID   `json:"aggregate_id"`
	Payload       interface{} `json:"payload"`
}

// BetPlacedPayload is the payload of an EventBetPlaced event.
type BetPlacedPayload struct {
	UserID         uuid.UUID       `json:"user_id"`
	EventID        uuid.UUID       `json:"event_id"`
	MarketID       uuid.UUID       `json:"market_id"`
	SelectionID    string          `json:"selection_id"`
	Stake          Money           `json:"stake"`
	AcceptableOdds decimal.Decimal `json:"acceptable_odds"`
}

// BetAcceptedPayload is the payload of an EventBetAccepted event.
type BetAcceptedPayload struct {
	FinalOdds        decimal.Decimal `json:"final_odds"`
	PotentialPayout  Money           `json:"potential_payout"`
}

// BetRejectedPayload is the payload of an EventBetRejected event.
type BetRejectedPayload struct {
	Reason string `json:"reason"`
}

// BetSettledPayload is the payload of an EventBetSettled event.
type BetSettledPayload struct {
	Outcome BetStatus `json:"outcome"` // Won or Lost
	Payout  *Money    `json:"payout,omitempty"`
}

// BetVoidedPayload is the payload of an EventBetVoided event.
type BetVoidedPayload struct {
	Reason string `json:"reason"`
	Refund *Money `json:"refund,omitempty"`
}

// BetCashedOutPayload is the payload of an EventBetCashedOut event.
type BetCashedOutPayload struct {
	Payout Money `json:"payout"`
}

// BetAggregate is the in-memory state of one bet, reconstructed by folding
// its event stream (§3 Bet aggregate). Version increments by one per
// applied event (B1).
type BetAggregate struct {
	BetID           uuid.UUID
	UserID          uuid.UUID
	EventIDRef      uuid.UUID
	MarketID        uuid.UUID
	SelectionID     string
	Stake           Money
	AcceptableOdds  decimal.Decimal
	FinalOdds       decimal.Decimal
	Type            BetType
	Status          BetStatus
	PlacedAt        time.Time
	SettledAt       *time.Time
	Payout          *Money
	RejectionReason string
	VoidReason      string
	Version         int
}

// Exists reports whether the aggregate has been initialized from a
// non-empty event stream.
func (a *BetAggregate) Exists() bool {
	return a != nil && a.Version > 0
}

// FoldBet rebuilds a BetAggregate by applying events in order. Folding the
// same stream any number of times produces the same aggregate (B1).
func FoldBet(betID uuid.UUID, events []BetEvent) *BetAggregate {
	agg := &BetAggregate{BetID: betID, Type: BetTypeSingle}
	for _, e := range events {
		applyBetEvent(agg, e)
	}
	return agg
}

// ApplyBetEvent folds a single event into agg in place. Used by the bet
// actor to incrementally update its in-memory aggregate as it appends each
// event of a saga, without re-reading the whole stream.
func ApplyBetEvent(agg *BetAggregate, e BetEvent) {
	applyBetEvent(agg, e)
}

func applyBetEvent(agg *BetAggregate, e BetEvent) {
	agg.Version++
	switch e.Type {
	case EventBetPlaced:
		p := e.Payload.(BetPlacedPayload)
		agg.UserID = p.UserID
		agg.EventIDRef = p.EventID
		agg.MarketID = p.MarketID
		agg.SelectionID = p.SelectionID
		agg.Stake = p.Stake
		agg.AcceptableOdds = p.AcceptableOdds
		agg.Status = BetPending
		agg.PlacedAt = e.Timestamp
	case EventBetAccepted:
		p := e.Payload.(BetAcceptedPayload)
		agg.FinalOdds = p.FinalOdds
		agg.Status = BetAccepted
	case EventBetRejected:
		p := e.Payload.(BetRejectedPayload)
		agg.Status = BetRejected
		agg.RejectionReason = p.Reason
		t := e.Timestamp
		agg.SettledAt = &t
	case EventBetSettled:
		p := e.Payload.(BetSettledPayload)
		agg.Status = p.Outcome
		agg.Payout = p.Payout
		t := e.Timestamp
		agg.SettledAt = &t
	case EventBetVoided:
		p := e.Payload.(BetVoidedPayload)
		agg.Status = BetVoid
		agg.VoidReason = p.Reason
		agg.Payout = p.Refund
		t := e.Timestamp
		agg.SettledAt = &t
	case EventBetCashedOut:
		p := e.Payload.(BetCashedOutPayload)
		agg.Status = BetCashedOut
		agg.Payout = &p.Payout
		t := e.Timestamp
		agg.SettledAt = &t
	}
}

// PotentialPayout returns stake * decimal, the standard "stake inclusive of
// stake" payout formula (Glossary: Decimal odds).
func PotentialPayout(stake Money, oddsDecimal decimal.Decimal) Money {
	return Money{Amount: stake.Amount.Mul(oddsDecimal), Currency: stake.Currency}
}

// CashoutAmount computes the early-exit payout per the configured discount
// curve (§4.4, §9 Open Question): payout = stake * discount *
// (lockedDecimal/currentDecimal), floored at floor.
func CashoutAmount(stake Money, lockedDecimal, currentDecimal, discount, floor decimal.Decimal) Money {
	if lockedDecimal.IsZero() || currentDecimal.IsZero() {
		return Money{Amount: floor, Currency: stake.Currency}
	}
	gross := stake.Amount.Mul(discount).Mul(lockedDecimal).Div(currentDecimal)
	if gross.LessThan(floor) {
		gross = floor
	}
	return Money{Amount: gross.RoundDown(4), Currency: stake.Currency}
}

// BetSnapshot is a point-in-time view of the aggregate, used to build
// GetBetHistory's chronological sequence of aggregate states (§4.4).
type BetSnapshot struct {
	Version int          `json:"version"`
	Status  BetStatus    `json:"status"`
	At      time.Time    `json:"at"`
}

// SnapshotHistory replays a stream and records one BetSnapshot per applied
// event, in chronological order.
func SnapshotHistory(betID uuid.UUID, events []BetEvent) []BetSnapshot {
	agg := &BetAggregate{BetID: betID, Type: BetTypeSingle}
	out := make([]BetSnapshot, 0, len(events))
	for _, e := range events {
		applyBetEvent(agg, e)
		out = append(out, BetSnapshot{Version: agg.Version, Status: agg.Status, At: e.Timestamp})
	}
	return out
}
