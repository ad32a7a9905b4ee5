package actor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/oddsforge/sportsbook/internal/domain"
	"github.com/oddsforge/sportsbook/internal/eventbus"
	"github.com/oddsforge/sportsbook/internal/snapshot"
	"github.com/shopspring/decimal"
)

// SportEventClient is the typed handle the HTTP layer and scheduler use to
// drive a sport event's lifecycle and markets (§4.6).
type SportEventClient interface {
	CreateEvent(ctx context.Context, eventID uuid.UUID, name, sportType, competition string, startTime time.Time, participants map[string]string) (domain.SportEvent, error)
	UpdateEvent(ctx context.Context, eventID uuid.UUID, name, competition string, startTime time.Time) (domain.SportEvent, error)
	StartEvent(ctx context.Context, eventID uuid.UUID) (domain.SportEvent, error)
	CompleteEvent(ctx context.Context, eventID uuid.UUID) (domain.SportEvent, error)
	CancelEvent(ctx context.Context, eventID uuid.UUID, reason string) (domain.SportEvent, error)
	AddMarket(ctx context.Context, eventID, marketID uuid.UUID, name, description string, outcomes map[string]decimal.Decimal) (domain.SportEvent, error)
	UpdateMarketStatus(ctx context.Context, eventID, marketID uuid.UUID, status domain.MarketStatus) (domain.SportEvent, error)
	SetMarketResult(ctx context.Context, eventID, marketID uuid.UUID, winningOutcome string) (domain.SportEvent, []SettlementOutcome, error)
	GetEvent(ctx context.Context, eventID uuid.UUID) (domain.SportEvent, error)
	ListEventIDs() []uuid.UUID
	PendingSettlements(ctx context.Context, eventID uuid.UUID) ([]SettlementOutcome, error)
}

// SettlementOutcome is one (betId, outcome) pair the sport-event actor's
// settlement fan-out computed for a just-resolved market (§9 Open Question:
// the sport-event actor computes outcomes and drives the bet actor
// one-at-a-time; the bet actor stays authoritative for its own terminal
// state).
type SettlementOutcome struct {
	BetID   uuid.UUID
	Outcome domain.BetStatus
}

// SportEventActor is the per-eventId logical actor for event/market
// lifecycle operations (§4.6).
type SportEventActor struct {
	manager *Manager[uuid.UUID, domain.SportEvent]
	snaps   snapshot.Store
	bus     eventbus.Publisher
	odds    OddsClient
}

// NewSportEventActor constructs a SportEventActor. odds is used at
// SetMarketResult time to discover which bets are locked against the
// resolved market's selections.
func NewSportEventActor(snaps snapshot.Store, bus eventbus.Publisher, odds OddsClient) *SportEventActor {
	e := &SportEventActor{snaps: snaps, bus: bus, odds: odds}
	e.manager = NewManager(func(eventID uuid.UUID) domain.SportEvent {
		var se domain.SportEvent
		ok, err := snaps.Load(context.Background(), "sportevent", eventID.String(), &se)
		if err == nil && ok {
			return se
		}
		return domain.SportEvent{EventID: eventID, Markets: make(map[uuid.UUID]*domain.Market)}
	})
	return e
}

func (a *SportEventActor) persist(ctx context.Context, se *domain.SportEvent) error {
	return a.snaps.Save(ctx, "sportevent", se.EventID.String(), se)
}

func (a *SportEventActor) publish(eventType string, payload interface{}) {
	a.bus.Publish(context.Background(), "sportevent", eventType, payload)
}

type eventResult struct {
	event       domain.SportEvent
	settlements []SettlementOutcome
	err         error
}

// CreateEvent implements §4.6 CreateEvent.
func (a *SportEventActor) CreateEvent(ctx context.Context, eventID uuid.UUID, name, sportType, competition string, startTime time.Time, participants map[string]string) (domain.SportEvent, error) {
	r, err := ManagerCall(ctx, a.manager, eventID, func(se *domain.SportEvent) eventResult {
		if se.Status != "" {
			return eventResult{err: domain.ErrAlreadyExists}
		}
		now := time.Now()
		next := domain.NewSportEvent(eventID, name, sportType, competition, startTime, participants, now)

		if err := a.persist(ctx, next); err != nil {
			return eventResult{err: domain.ErrPersistenceError}
		}
		*se = *next
		a.publish("created", *se)
		return eventResult{event: *se}
	})
	if err != nil {
		return domain.SportEvent{}, err
	}
	return r.event, r.err
}

// UpdateEvent implements §4.6 UpdateEvent: only legal while the event is
// Scheduled (naming/scheduling does not change once it has left Scheduled).
func (a *SportEventActor) UpdateEvent(ctx context.Context, eventID uuid.UUID, name, competition string, startTime time.Time) (domain.SportEvent, error) {
	r, err := ManagerCall(ctx, a.manager, eventID, func(se *domain.SportEvent) eventResult {
		if se.Status == "" {
			return eventResult{err: domain.ErrBetNotFound}
		}
		if se.Status != domain.EventScheduled {
			return eventResult{err: domain.ErrInvalidTransition}
		}
		next := se.Clone()
		next.Name = name
		next.Competition = competition
		next.StartTime = startTime
		next.LastModified = time.Now()

		if err := a.persist(ctx, next); err != nil {
			return eventResult{err: domain.ErrPersistenceError}
		}
		*se = *next
		a.publish("updated", *se)
		return eventResult{event: *se}
	})
	if err != nil {
		return domain.SportEvent{}, err
	}
	return r.event, r.err
}

func (a *SportEventActor) transition(ctx context.Context, eventID uuid.UUID, to domain.EventStatus, eventType string) (domain.SportEvent, error) {
	r, err := ManagerCall(ctx, a.manager, eventID, func(se *domain.SportEvent) eventResult {
		if se.Status == "" {
			return eventResult{err: domain.ErrBetNotFound}
		}
		if !domain.CanTransitionEvent(se.Status, to) {
			return eventResult{err: domain.ErrInvalidTransition}
		}
		next := se.Clone()
		next.Status = to
		next.LastModified = time.Now()
		if to == domain.EventCompleted || to == domain.EventCancelled {
			now := next.LastModified
			next.EndTime = &now
		}

		if err := a.persist(ctx, next); err != nil {
			return eventResult{err: domain.ErrPersistenceError}
		}
		*se = *next
		a.publish(eventType, *se)
		return eventResult{event: *se}
	})
	if err != nil {
		return domain.SportEvent{}, err
	}
	return r.event, r.err
}

// StartEvent implements §4.6 StartEvent: Scheduled -> Live.
func (a *SportEventActor) StartEvent(ctx context.Context, eventID uuid.UUID) (domain.SportEvent, error) {
	return a.transition(ctx, eventID, domain.EventLive, "started")
}

// CompleteEvent implements §4.6 CompleteEvent: Live -> Completed.
func (a *SportEventActor) CompleteEvent(ctx context.Context, eventID uuid.UUID) (domain.SportEvent, error) {
	return a.transition(ctx, eventID, domain.EventCompleted, "completed")
}

// CancelEvent implements §4.6 CancelEvent: Scheduled/Suspended -> Cancelled.
func (a *SportEventActor) CancelEvent(ctx context.Context, eventID uuid.UUID, reason string) (domain.SportEvent, error) {
	r, err := ManagerCall(ctx, a.manager, eventID, func(se *domain.SportEvent) eventResult {
		if se.Status == "" {
			return eventResult{err: domain.ErrBetNotFound}
		}
		if !domain.CanTransitionEvent(se.Status, domain.EventCancelled) {
			return eventResult{err: domain.ErrInvalidTransition}
		}
		next := se.Clone()
		next.Status = domain.EventCancelled
		now := time.Now()
		next.EndTime = &now
		next.LastModified = now

		if err := a.persist(ctx, next); err != nil {
			return eventResult{err: domain.ErrPersistenceError}
		}
		*se = *next
		a.publish("cancelled", struct {
			Event  domain.SportEvent `json:"event"`
			Reason string            `json:"reason"`
		}{*se, reason})
		return eventResult{event: *se}
	})
	if err != nil {
		return domain.SportEvent{}, err
	}
	return r.event, r.err
}

// AddMarket implements §4.6 AddMarket.
func (a *SportEventActor) AddMarket(ctx context.Context, eventID, marketID uuid.UUID, name, description string, outcomes map[string]decimal.Decimal) (domain.SportEvent, error) {
	r, err := ManagerCall(ctx, a.manager, eventID, func(se *domain.SportEvent) eventResult {
		if se.Status == "" {
			return eventResult{err: domain.ErrBetNotFound}
		}
		if _, exists := se.Markets[marketID]; exists {
			return eventResult{err: domain.ErrAlreadyExists}
		}
		next := se.Clone()
		next.Markets[marketID] = domain.NewMarket(marketID, eventID, name, description, outcomes, time.Now())
		next.LastModified = time.Now()

		if err := a.persist(ctx, next); err != nil {
			return eventResult{err: domain.ErrPersistenceError}
		}
		*se = *next
		a.publish("market_added", *se.Markets[marketID])
		return eventResult{event: *se}
	})
	if err != nil {
		return domain.SportEvent{}, err
	}
	return r.event, r.err
}

// UpdateMarketStatus implements §4.6 UpdateMarketStatus.
func (a *SportEventActor) UpdateMarketStatus(ctx context.Context, eventID, marketID uuid.UUID, status domain.MarketStatus) (domain.SportEvent, error) {
	r, err := ManagerCall(ctx, a.manager, eventID, func(se *domain.SportEvent) eventResult {
		m, ok := se.Markets[marketID]
		if !ok {
			return eventResult{err: domain.ErrUnknownSelection}
		}
		if !domain.CanTransitionMarket(m.Status, status) {
			return eventResult{err: domain.ErrInvalidTransition}
		}
		next := se.Clone()
		nm := next.Markets[marketID]
		nm.Status = status
		nm.LastModified = time.Now()
		next.LastModified = nm.LastModified

		if err := a.persist(ctx, next); err != nil {
			return eventResult{err: domain.ErrPersistenceError}
		}
		*se = *next
		a.publish("market_status_changed", *nm)
		return eventResult{event: *se}
	})
	if err != nil {
		return domain.SportEvent{}, err
	}
	return r.event, r.err
}

// SetMarketResult implements §4.6 SetMarketResult and the §9 settlement
// fan-out: once the market is Closed, it is moved to Settled and, for every
// outcome of the market, the bets the odds actor holds locked on it are
// paired with Won (the winning outcome) or Lost (any other). Returned
// SettlementOutcome pairs are what the caller (the SetMarketResult HTTP
// handler) drives through the bet actor one at a time; this actor does
// not call the bet actor itself so it stays decoupled from bet-actor
// concurrency.
func (a *SportEventActor) SetMarketResult(ctx context.Context, eventID, marketID uuid.UUID, winningOutcome string) (domain.SportEvent, []SettlementOutcome, error) {
	r, err := ManagerCall(ctx, a.manager, eventID, func(se *domain.SportEvent) eventResult {
		m, ok := se.Markets[marketID]
		if !ok {
			return eventResult{err: domain.ErrUnknownSelection}
		}
		if !m.HasOutcome(winningOutcome) {
			return eventResult{err: domain.ErrUnknownSelection}
		}
		if !domain.CanTransitionMarket(m.Status, domain.MarketSettled) {
			return eventResult{err: domain.ErrInvalidTransition}
		}

		next := se.Clone()
		nm := next.Markets[marketID]
		winner := winningOutcome
		nm.WinningOutcome = &winner
		nm.Status = domain.MarketSettled
		nm.LastModified = time.Now()
		next.LastModified = nm.LastModified

		if err := a.persist(ctx, next); err != nil {
			return eventResult{err: domain.ErrPersistenceError}
		}
		*se = *next

		var outcomes []SettlementOutcome
		for selectionID := range nm.Outcomes {
			outcomeStatus := domain.BetLost
			if selectionID == winningOutcome {
				outcomeStatus = domain.BetWon
			}
			betIDs, err := a.odds.GetLockedBetIDs(ctx, marketID, selectionID)
			if err != nil {
				continue
			}
			for _, betID := range betIDs {
				outcomes = append(outcomes, SettlementOutcome{BetID: betID, Outcome: outcomeStatus})
			}
		}

		a.publish("market_settled", *nm)
		return eventResult{event: *se, settlements: outcomes}
	})
	if err != nil {
		return domain.SportEvent{}, nil, err
	}
	return r.event, r.settlements, r.err
}

// ListEventIDs returns every event id the actor has seen, for the
// scheduler's settlement-dispatch poll (§D Background scheduler).
func (a *SportEventActor) ListEventIDs() []uuid.UUID {
	return a.manager.Keys()
}

// PendingSettlements recomputes the settlement fan-out for every Settled
// market of eventID without re-transitioning anything. This is the
// scheduler's crash-recovery path: if a process died after SetMarketResult
// persisted a Settled market but before every SettlementOutcome was driven
// through the bet actor, GetLockedBetIDs still reflects the bets that were
// never unlocked, so re-querying it naturally yields only the outstanding
// ones (a bet already settled was unlocked and drops out of the lock set).
func (a *SportEventActor) PendingSettlements(ctx context.Context, eventID uuid.UUID) ([]SettlementOutcome, error) {
	r, err := ManagerCall(ctx, a.manager, eventID, func(se *domain.SportEvent) eventResult {
		if se.Status == "" {
			return eventResult{err: domain.ErrBetNotFound}
		}
		var outcomes []SettlementOutcome
		for marketID, m := range se.Markets {
			if m.Status != domain.MarketSettled || m.WinningOutcome == nil {
				continue
			}
			for selectionID := range m.Outcomes {
				outcomeStatus := domain.BetLost
				if selectionID == *m.WinningOutcome {
					outcomeStatus = domain.BetWon
				}
				betIDs, err := a.odds.GetLockedBetIDs(ctx, marketID, selectionID)
				if err != nil {
					continue
				}
				for _, betID := range betIDs {
					outcomes = append(outcomes, SettlementOutcome{BetID: betID, Outcome: outcomeStatus})
				}
			}
		}
		return eventResult{settlements: outcomes}
	})
	if err != nil {
		return nil, err
	}
	return r.settlements, r.err
}

// GetEvent returns the current event/market state.
func (a *SportEventActor) GetEvent(ctx context.Context, eventID uuid.UUID) (domain.SportEvent, error) {
	r, err := ManagerCall(ctx, a.manager, eventID, func(se *domain.SportEvent) eventResult {
		if se.Status == "" {
			return eventResult{err: domain.ErrBetNotFound}
		}
		return eventResult{event: *se}
	})
	if err != nil {
		return domain.SportEvent{}, err
	}
	return r.event, r.err
}
