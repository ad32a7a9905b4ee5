// Package ws holds WebSocket message types and the Hub implementation.
// messages.go defines all message structs broadcast to connected clients.
package ws

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MsgType identifies the kind of WS message so clients can switch on it.
type MsgType string

const (
	MsgTypeOddsUpdate    MsgType = "odds_update"
	MsgTypeBetPlaced     MsgType = "bet_placed"
	MsgTypeMarketStatus  MsgType = "market_status"
	MsgTypeMarketSettled MsgType = "market_settled"
	MsgTypeError         MsgType = "error"
)

// ──────────────────────────────────────────────────────────────────────────────
// OddsUpdateMessage — sent by BroadcastOddsUpdate for a market's odds
// snapshot (§4.3 UpdateOdds), including auto-suspension.
// ──────────────────────────────────────────────────────────────────────────────

// OddsUpdateMessage carries a market's current odds, suspension state, and
// volatility classification.
type OddsUpdateMessage struct {
	Type             MsgType                    `json:"type"`
	MarketID         uuid.UUID                  `json:"market_id"`
	Odds             map[string]decimal.Decimal `json:"odds"`
	Suspended        bool                       `json:"suspended"`
	SuspensionReason string                     `json:"suspension_reason,omitempty"`
	VolatilityLevel  string                     `json:"volatility_level"`
	Timestamp        time.Time                  `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// BetPlacedMessage — sent by BroadcastBetPlaced for an accepted bet so other
// clients see the selection's lock state change.
// ──────────────────────────────────────────────────────────────────────────────

// BetPlacedMessage notifies clients watching a market that a bet was
// accepted against one of its selections.
type BetPlacedMessage struct {
	Type        MsgType         `json:"type"`
	BetID       uuid.UUID       `json:"bet_id"`
	MarketID    uuid.UUID       `json:"market_id"`
	SelectionID string          `json:"selection_id"`
	Stake       decimal.Decimal `json:"stake"`
	FinalOdds   decimal.Decimal `json:"final_odds"`
	Timestamp   time.Time       `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// MarketStatusMessage — sent by BroadcastMarketStatus for a market lifecycle
// transition (Open/Suspended/Closed) other than final settlement.
// ──────────────────────────────────────────────────────────────────────────────

// MarketStatusMessage tells clients a market's lifecycle status changed.
type MarketStatusMessage struct {
	Type      MsgType   `json:"type"`
	EventID   uuid.UUID `json:"event_id"`
	MarketID  uuid.UUID `json:"market_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// MarketSettledMessage — sent by BroadcastMarketSettled for a market resolved
// by SetMarketResult.
// ──────────────────────────────────────────────────────────────────────────────

// MarketSettledMessage tells clients which selection won.
type MarketSettledMessage struct {
	Type           MsgType   `json:"type"`
	EventID        uuid.UUID `json:"event_id"`
	MarketID       uuid.UUID `json:"market_id"`
	WinningOutcome string    `json:"winning_outcome"`
	Timestamp      time.Time `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// ErrorMessage — sent to a single client on a non-fatal error.
// ──────────────────────────────────────────────────────────────────────────────

// ErrorMessage is sent directly to one client (not broadcast).
type ErrorMessage struct {
	Type    MsgType `json:"type"`
	Code    string  `json:"code"`
	Message string  `json:"message"`
}
