package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventStatus is a node in the sport-event state machine (§4.6).
type EventStatus string

const (
	EventScheduled EventStatus = "scheduled"
	EventLive      EventStatus = "live"
	EventSuspended EventStatus = "suspended"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

// eventTransitions enumerates the allowed event-status edges; all other
// transitions are rejected with ErrInvalidTransition.
var eventTransitions = map[EventStatus]map[EventStatus]bool{
	EventScheduled: {EventLive: true, EventSuspended: true, EventCancelled: true},
	EventLive:      {EventCompleted: true, EventSuspended: true},
	EventSuspended: {EventScheduled: true, EventCancelled: true},
}

// CanTransitionEvent reports whether from -> to is an allowed event edge.
func CanTransitionEvent(from, to EventStatus) bool {
	return eventTransitions[from][to]
}

// SportEvent is the owning aggregate for a single sporting fixture and its
// markets (§3 Sport event).
type SportEvent struct {
	EventID      uuid.UUID         `json:"event_id"`
	Name         string            `json:"name"`
	SportType    string            `json:"sport_type"`
	Competition  string            `json:"competition"`
	StartTime    time.Time         `json:"start_time"`
	EndTime      *time.Time        `json:"end_time,omitempty"`
	Status       EventStatus       `json:"status"`
	Participants map[string]string `json:"participants"` // role -> name
	Markets      map[uuid.UUID]*Market `json:"markets"`
	CreatedAt    time.Time         `json:"created_at"`
	LastModified time.Time         `json:"last_modified"`
}

// NewSportEvent constructs a SportEvent in Scheduled status.
func NewSportEvent(eventID uuid.UUID, name, sportType, competition string, startTime time.Time, participants map[string]string, now time.Time) *SportEvent {
	return &SportEvent{
		EventID:      eventID,
		Name:         name,
		SportType:    sportType,
		Competition:  competition,
		StartTime:    startTime,
		Status:       EventScheduled,
		Participants: participants,
		Markets:      make(map[uuid.UUID]*Market),
		CreatedAt:    now,
		LastModified: now,
	}
}

// MarketStatus is a node in the market state machine (§4.6).
type MarketStatus string

const (
	MarketOpen      MarketStatus = "open"
	MarketSuspendedStatus MarketStatus = "suspended"
	MarketClosed    MarketStatus = "closed"
	MarketSettled   MarketStatus = "settled"
)

// marketTransitions enumerates the allowed market-status edges:
// Open<->Suspended; Open->Closed; Suspended->Closed; Closed->Settled.
var marketTransitions = map[MarketStatus]map[MarketStatus]bool{
	MarketOpen:            {MarketSuspendedStatus: true, MarketClosed: true},
	MarketSuspendedStatus: {MarketOpen: true, MarketClosed: true},
	MarketClosed:          {MarketSettled: true},
}

// CanTransitionMarket reports whether from -> to is an allowed market edge.
func CanTransitionMarket(from, to MarketStatus) bool {
	return marketTransitions[from][to]
}

// Market is one betting market within a sport event (§3 Market) — distinct
// from the bet-actor's per-bet reading of odds; this is the catalog entry
// (outcomes, lifecycle, eventual winner).
type Market struct {
	MarketID       uuid.UUID                  `json:"market_id"`
	EventID        uuid.UUID                  `json:"event_id"`
	Name           string                     `json:"name"`
	Description    string                     `json:"description"`
	Outcomes       map[string]decimal.Decimal `json:"outcomes"` // selectionId -> opening odds
	Status         MarketStatus               `json:"status"`
	WinningOutcome *string                    `json:"winning_outcome,omitempty"`
	CreatedAt      time.Time                  `json:"created_at"`
	LastModified   time.Time                  `json:"last_modified"`
}

// NewMarket constructs a Market in Open status.
func NewMarket(marketID, eventID uuid.UUID, name, description string, outcomes map[string]decimal.Decimal, now time.Time) *Market {
	return &Market{
		MarketID:     marketID,
		EventID:      eventID,
		Name:         name,
		Description:  description,
		Outcomes:     outcomes,
		Status:       MarketOpen,
		CreatedAt:    now,
		LastModified: now,
	}
}

// HasOutcome reports whether selectionID is one of the market's outcomes.
func (m *Market) HasOutcome(selectionID string) bool {
	_, ok := m.Outcomes[selectionID]
	return ok
}

// Clone returns a deep copy of m.
func (m *Market) Clone() *Market {
	cp := *m
	cp.Outcomes = make(map[string]decimal.Decimal, len(m.Outcomes))
	for k, v := range m.Outcomes {
		cp.Outcomes[k] = v
	}
	if m.WinningOutcome != nil {
		w := *m.WinningOutcome
		cp.WinningOutcome = &w
	}
	return &cp
}

// Clone returns a deep copy of se, including every market, so the actor
// layer can mutate speculatively before a persist attempt and only commit
// the clone into the mailbox's live state once persist succeeds.
func (se *SportEvent) Clone() *SportEvent {
	cp := *se
	cp.Participants = make(map[string]string, len(se.Participants))
	for k, v := range se.Participants {
		cp.Participants[k] = v
	}
	cp.Markets = make(map[uuid.UUID]*Market, len(se.Markets))
	for id, m := range se.Markets {
		cp.Markets[id] = m.Clone()
	}
	if se.EndTime != nil {
		t := *se.EndTime
		cp.EndTime = &t
	}
	return &cp
}
