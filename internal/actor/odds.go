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

// OddsClient is the typed handle injected into the bet actor (§9: no
// grain-factory lookups — dependencies are constructor-injected).
type OddsClient interface {
	InitializeMarket(ctx context.Context, marketID uuid.UUID, selectionOdds map[string]decimal.Decimal, source domain.OddsSource) (domain.OddsSnapshot, error)
	UpdateOdds(ctx context.Context, marketID uuid.UUID, updates map[string]decimal.Decimal, source domain.OddsSource, reason string) (domain.OddsSnapshot, error)
	SuspendOdds(ctx context.Context, marketID uuid.UUID, reason, actor string) (domain.OddsSnapshot, error)
	ResumeOdds(ctx context.Context, marketID uuid.UUID, reason, actor string) (domain.OddsSnapshot, error)
	LockOddsForBet(ctx context.Context, marketID, betID uuid.UUID, selectionID string) (domain.OddsSnapshot, domain.OddsValue, error)
	UnlockOddsAsync(ctx context.Context, marketID, betID uuid.UUID) (domain.OddsSnapshot, error)
	IsMarketSuspended(ctx context.Context, marketID uuid.UUID) (bool, error)
	IsSelectionLocked(ctx context.Context, marketID uuid.UUID, selectionID string) (bool, error)
	GetLockedSelections(ctx context.Context, marketID uuid.UUID) ([]string, error)
	GetLockedBetIDs(ctx context.Context, marketID uuid.UUID, selectionID string) ([]uuid.UUID, error)
	GetCurrentOdds(ctx context.Context, marketID uuid.UUID) (domain.OddsSnapshot, error)
	GetCurrentVolatility(ctx context.Context, marketID uuid.UUID) (domain.VolatilityLevel, error)
	GetVolatilityScore(ctx context.Context, marketID uuid.UUID, window time.Duration) (decimal.Decimal, error)
	GetOddsHistory(ctx context.Context, marketID uuid.UUID, selectionID string) (domain.OddsHistory, error)
	GetAllOddsHistory(ctx context.Context, marketID uuid.UUID) (map[string]domain.OddsHistory, error)
}

// oddsState is the durable state owned by one marketId (§3 Odds snapshot,
// Odds history, Market lock set).
type oddsState struct {
	initialized bool
	snapshot    domain.OddsSnapshot
	history     map[string]*domain.OddsHistory
	locks       *domain.MarketLockSet
}

func newOddsState(marketID uuid.UUID) oddsState {
	return oddsState{
		snapshot: domain.OddsSnapshot{MarketID: marketID, Odds: make(map[string]decimal.Decimal)},
		history:  make(map[string]*domain.OddsHistory),
		locks:    domain.NewMarketLockSet(),
	}
}

// persistableOdds is the JSON-serializable projection of oddsState used for
// snapshotting (§6: snapshot written after every successful operation).
type persistableOdds struct {
	Initialized bool                            `json:"initialized"`
	Snapshot    domain.OddsSnapshot             `json:"snapshot"`
	History     map[string]*domain.OddsHistory  `json:"history"`
	LockedOdds  map[uuid.UUID]domain.OddsValue  `json:"locked_odds"`
	BySelection map[string][]uuid.UUID          `json:"by_selection"`
}

func (s *oddsState) toPersistable() persistableOdds {
	bySel := make(map[string][]uuid.UUID, len(s.locks.BySelection))
	for sel, set := range s.locks.BySelection {
		ids := make([]uuid.UUID, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		bySel[sel] = ids
	}
	return persistableOdds{
		Initialized: s.initialized,
		Snapshot:    s.snapshot,
		History:     s.history,
		LockedOdds:  s.locks.LockedOdds,
		BySelection: bySel,
	}
}

func fromPersistable(p persistableOdds) oddsState {
	locks := domain.NewMarketLockSet()
	for sel, ids := range p.BySelection {
		if locks.BySelection[sel] == nil {
			locks.BySelection[sel] = make(map[uuid.UUID]struct{})
		}
		for _, id := range ids {
			locks.BySelection[sel][id] = struct{}{}
		}
	}
	for id, v := range p.LockedOdds {
		locks.LockedOdds[id] = v
	}
	if p.History == nil {
		p.History = make(map[string]*domain.OddsHistory)
	}
	if p.Snapshot.Odds == nil {
		p.Snapshot.Odds = make(map[string]decimal.Decimal)
	}
	return oddsState{
		initialized: p.Initialized,
		snapshot:    p.Snapshot,
		history:     p.History,
		locks:       locks,
	}
}

// OddsActor is the per-marketId logical actor for odds operations (§4.3).
type OddsActor struct {
	manager    *Manager[uuid.UUID, oddsState]
	snaps      snapshot.Store
	bus        eventbus.Publisher
	thresholds domain.VolatilityThresholds
	window     time.Duration
	minOdds    decimal.Decimal
}

// NewOddsActor constructs an OddsActor. thresholds/window/minOdds come from
// config.OddsConfig (§9 Open Question: volatility thresholds are
// configuration, not hardcoded).
func NewOddsActor(snaps snapshot.Store, bus eventbus.Publisher, thresholds domain.VolatilityThresholds, window time.Duration, minOdds decimal.Decimal) *OddsActor {
	o := &OddsActor{snaps: snaps, bus: bus, thresholds: thresholds, window: window, minOdds: minOdds}
	o.manager = NewManager(func(marketID uuid.UUID) oddsState {
		var p persistableOdds
		ok, err := snaps.Load(context.Background(), "odds", marketID.String(), &p)
		if err == nil && ok {
			return fromPersistable(p)
		}
		return newOddsState(marketID)
	})
	return o
}

// clone returns a deep copy of s. Every mutator below computes its change
// into the clone and only swaps it into the mailbox's live state after
// persist succeeds, so a write failure never leaves the in-memory state
// ahead of the durable snapshot (spec.md: "a write failure surfaces as
// PersistenceError and leaves in-memory state untouched").
func (s *oddsState) clone() *oddsState {
	cp := &oddsState{
		initialized: s.initialized,
		snapshot:    s.snapshot.Copy(),
		history:     make(map[string]*domain.OddsHistory, len(s.history)),
		locks:       s.locks.Clone(),
	}
	for sel, h := range s.history {
		cp.history[sel] = h.Clone()
	}
	return cp
}

func (o *OddsActor) persist(ctx context.Context, marketID uuid.UUID, s *oddsState) error {
	return o.snaps.Save(ctx, "odds", marketID.String(), s.toPersistable())
}

func (o *OddsActor) publish(eventType string, payload interface{}) {
	o.bus.Publish(context.Background(), "odds", eventType, payload)
}

type oddsResult struct {
	snapshot domain.OddsSnapshot
	locked   domain.OddsValue
	err      error
}

// InitializeMarket implements §4.3 InitializeMarket.
func (o *OddsActor) InitializeMarket(ctx context.Context, marketID uuid.UUID, selectionOdds map[string]decimal.Decimal, source domain.OddsSource) (domain.OddsSnapshot, error) {
	r, err := ManagerCall(ctx, o.manager, marketID, func(s *oddsState) oddsResult {
		if s.initialized {
			return oddsResult{err: domain.ErrAlreadyInitialized}
		}
		for _, odds := range selectionOdds {
			if odds.LessThan(o.minOdds) {
				return oddsResult{err: domain.ErrInvalidOdds}
			}
		}

		next := s.clone()
		now := time.Now()
		for sel, odds := range selectionOdds {
			next.snapshot.Odds[sel] = odds
			next.history[sel] = &domain.OddsHistory{MarketID: marketID, SelectionID: sel, Initial: odds}
		}
		next.initialized = true
		next.snapshot.SnapshotTimestamp = now
		next.snapshot.VolatilityLevel = domain.VolatilityLow

		if err := o.persist(ctx, marketID, next); err != nil {
			return oddsResult{err: domain.ErrPersistenceError}
		}
		*s = *next
		o.publish("initialized", s.snapshot.Copy())
		return oddsResult{snapshot: s.snapshot.Copy()}
	})
	if err != nil {
		return domain.OddsSnapshot{}, err
	}
	return r.snapshot, r.err
}

// UpdateOdds implements §4.3 UpdateOdds, including the auto-suspension check.
func (o *OddsActor) UpdateOdds(ctx context.Context, marketID uuid.UUID, updates map[string]decimal.Decimal, source domain.OddsSource, reason string) (domain.OddsSnapshot, error) {
	r, err := ManagerCall(ctx, o.manager, marketID, func(s *oddsState) oddsResult {
		if s.snapshot.Suspended {
			return oddsResult{err: domain.ErrMarketSuspended}
		}
		for sel, newOdds := range updates {
			if _, ok := s.snapshot.Odds[sel]; !ok {
				return oddsResult{err: domain.ErrUnknownSelection}
			}
			if newOdds.LessThan(o.minOdds) {
				return oddsResult{err: domain.ErrInvalidOdds}
			}
		}

		next := s.clone()
		now := time.Now()
		for sel, newOdds := range updates {
			previous := next.snapshot.Odds[sel]
			h := next.history[sel]
			h.Updates = append(h.Updates, domain.OddsUpdate{
				Previous: previous, New: newOdds, Source: source, Reason: reason, UpdatedAt: now,
			})
			next.snapshot.Odds[sel] = newOdds
		}
		next.snapshot.SnapshotTimestamp = now

		level := o.recomputeVolatility(next, now)
		next.snapshot.VolatilityLevel = level
		if level == domain.VolatilityExtreme && !next.snapshot.Suspended {
			next.snapshot.Suspended = true
			next.snapshot.SuspensionReason = "auto:volatility"
		}

		if err := o.persist(ctx, marketID, next); err != nil {
			return oddsResult{err: domain.ErrPersistenceError}
		}
		*s = *next
		o.publish("updated", s.snapshot.Copy())
		return oddsResult{snapshot: s.snapshot.Copy()}
	})
	if err != nil {
		return domain.OddsSnapshot{}, err
	}
	return r.snapshot, r.err
}

// recomputeVolatility returns the market-wide volatility level: the highest
// level among any selection's per-window score (§4.3: "applied to the
// per-market max of per-selection scores").
func (o *OddsActor) recomputeVolatility(s *oddsState, now time.Time) domain.VolatilityLevel {
	best := domain.VolatilityLow
	rank := map[domain.VolatilityLevel]int{domain.VolatilityLow: 0, domain.VolatilityMedium: 1, domain.VolatilityHigh: 2, domain.VolatilityExtreme: 3}
	for _, h := range s.history {
		window := h.InWindow(now, o.window)
		score := domain.VolatilityScore(window, o.window)
		level := domain.LevelForScore(score, o.thresholds)
		if rank[level] > rank[best] {
			best = level
		}
	}
	return best
}

// SuspendOdds implements §4.3 SuspendOdds: idempotent, preserving the
// original reason if already suspended.
func (o *OddsActor) SuspendOdds(ctx context.Context, marketID uuid.UUID, reason, actorID string) (domain.OddsSnapshot, error) {
	r, err := ManagerCall(ctx, o.manager, marketID, func(s *oddsState) oddsResult {
		if !s.snapshot.Suspended {
			next := s.clone()
			next.snapshot.Suspended = true
			next.snapshot.SuspensionReason = reason
			next.snapshot.SnapshotTimestamp = time.Now()
			if err := o.persist(ctx, marketID, next); err != nil {
				return oddsResult{err: domain.ErrPersistenceError}
			}
			*s = *next
			o.publish("suspended", s.snapshot.Copy())
		}
		return oddsResult{snapshot: s.snapshot.Copy()}
	})
	if err != nil {
		return domain.OddsSnapshot{}, err
	}
	return r.snapshot, r.err
}

// ResumeOdds implements §4.3 ResumeOdds: idempotent in the reverse sense.
func (o *OddsActor) ResumeOdds(ctx context.Context, marketID uuid.UUID, reason, actorID string) (domain.OddsSnapshot, error) {
	r, err := ManagerCall(ctx, o.manager, marketID, func(s *oddsState) oddsResult {
		if s.snapshot.Suspended {
			next := s.clone()
			next.snapshot.Suspended = false
			next.snapshot.SuspensionReason = ""
			next.snapshot.SnapshotTimestamp = time.Now()
			if err := o.persist(ctx, marketID, next); err != nil {
				return oddsResult{err: domain.ErrPersistenceError}
			}
			*s = *next
			o.publish("resumed", s.snapshot.Copy())
		}
		return oddsResult{snapshot: s.snapshot.Copy()}
	})
	if err != nil {
		return domain.OddsSnapshot{}, err
	}
	return r.snapshot, r.err
}

// LockOddsForBet implements §4.3 LockOddsForBet.
func (o *OddsActor) LockOddsForBet(ctx context.Context, marketID, betID uuid.UUID, selectionID string) (domain.OddsSnapshot, domain.OddsValue, error) {
	r, err := ManagerCall(ctx, o.manager, marketID, func(s *oddsState) oddsResult {
		if s.snapshot.Suspended {
			return oddsResult{err: domain.ErrMarketSuspended}
		}
		odds, ok := s.snapshot.Odds[selectionID]
		if !ok {
			return oddsResult{err: domain.ErrUnknownSelection}
		}
		value := domain.OddsValue{
			Decimal: odds, MarketID: marketID, SelectionID: selectionID,
			Source: domain.SourceManual, Timestamp: time.Now(),
		}
		next := s.clone()
		next.locks.Lock(betID, selectionID, value)

		if err := o.persist(ctx, marketID, next); err != nil {
			return oddsResult{err: domain.ErrPersistenceError}
		}
		*s = *next
		o.publish("locked", value)
		return oddsResult{snapshot: s.snapshot.Copy(), locked: value}
	})
	if err != nil {
		return domain.OddsSnapshot{}, domain.OddsValue{}, err
	}
	return r.snapshot, r.locked, r.err
}

// UnlockOddsAsync implements §4.3 UnlockOddsAsync: silent no-op if unknown.
func (o *OddsActor) UnlockOddsAsync(ctx context.Context, marketID, betID uuid.UUID) (domain.OddsSnapshot, error) {
	r, err := ManagerCall(ctx, o.manager, marketID, func(s *oddsState) oddsResult {
		next := s.clone()
		next.locks.Unlock(betID)
		if err := o.persist(ctx, marketID, next); err != nil {
			return oddsResult{err: domain.ErrPersistenceError}
		}
		*s = *next
		o.publish("unlocked", betID)
		return oddsResult{snapshot: s.snapshot.Copy()}
	})
	if err != nil {
		return domain.OddsSnapshot{}, err
	}
	return r.snapshot, r.err
}

// IsMarketSuspended reports the market's current suspension state.
func (o *OddsActor) IsMarketSuspended(ctx context.Context, marketID uuid.UUID) (bool, error) {
	return ManagerCall(ctx, o.manager, marketID, func(s *oddsState) bool {
		return s.snapshot.Suspended
	})
}

// IsSelectionLocked reports whether any bet currently locks selectionID.
func (o *OddsActor) IsSelectionLocked(ctx context.Context, marketID uuid.UUID, selectionID string) (bool, error) {
	return ManagerCall(ctx, o.manager, marketID, func(s *oddsState) bool {
		return s.locks.IsLocked(selectionID)
	})
}

// GetLockedSelections returns the selections currently holding a lock.
func (o *OddsActor) GetLockedSelections(ctx context.Context, marketID uuid.UUID) ([]string, error) {
	return ManagerCall(ctx, o.manager, marketID, func(s *oddsState) []string {
		return s.locks.LockedSelections()
	})
}

// GetLockedBetIDs returns the bet ids currently holding a lock on
// selectionID, used by the sport-event actor's settlement fan-out (§9) to
// discover which bets to drive to ApplySettlement without a separate
// market-scoped bet index.
func (o *OddsActor) GetLockedBetIDs(ctx context.Context, marketID uuid.UUID, selectionID string) ([]uuid.UUID, error) {
	return ManagerCall(ctx, o.manager, marketID, func(s *oddsState) []uuid.UUID {
		set := s.locks.BySelection[selectionID]
		out := make([]uuid.UUID, 0, len(set))
		for betID := range set {
			out = append(out, betID)
		}
		return out
	})
}

// GetCurrentOdds returns a read-only copy of the current snapshot.
func (o *OddsActor) GetCurrentOdds(ctx context.Context, marketID uuid.UUID) (domain.OddsSnapshot, error) {
	return ManagerCall(ctx, o.manager, marketID, func(s *oddsState) domain.OddsSnapshot {
		return s.snapshot.Copy()
	})
}

// GetCurrentVolatility returns the snapshot's last-computed volatility level.
func (o *OddsActor) GetCurrentVolatility(ctx context.Context, marketID uuid.UUID) (domain.VolatilityLevel, error) {
	return ManagerCall(ctx, o.manager, marketID, func(s *oddsState) domain.VolatilityLevel {
		return s.snapshot.VolatilityLevel
	})
}

// GetVolatilityScore recomputes the market-wide score over an arbitrary
// window, without mutating suspension state.
func (o *OddsActor) GetVolatilityScore(ctx context.Context, marketID uuid.UUID, window time.Duration) (decimal.Decimal, error) {
	return ManagerCall(ctx, o.manager, marketID, func(s *oddsState) decimal.Decimal {
		best := decimal.Zero
		now := time.Now()
		for _, h := range s.history {
			score := domain.VolatilityScore(h.InWindow(now, window), window)
			if score.GreaterThan(best) {
				best = score
			}
		}
		return best
	})
}

// GetOddsHistory returns a copy of one selection's history.
func (o *OddsActor) GetOddsHistory(ctx context.Context, marketID uuid.UUID, selectionID string) (domain.OddsHistory, error) {
	return ManagerCall(ctx, o.manager, marketID, func(s *oddsState) domain.OddsHistory {
		h, ok := s.history[selectionID]
		if !ok {
			return domain.OddsHistory{MarketID: marketID, SelectionID: selectionID}
		}
		cp := *h
		cp.Updates = append([]domain.OddsUpdate(nil), h.Updates...)
		return cp
	})
}

// GetAllOddsHistory returns a copy of every selection's history.
func (o *OddsActor) GetAllOddsHistory(ctx context.Context, marketID uuid.UUID) (map[string]domain.OddsHistory, error) {
	return ManagerCall(ctx, o.manager, marketID, func(s *oddsState) map[string]domain.OddsHistory {
		out := make(map[string]domain.OddsHistory, len(s.history))
		for sel, h := range s.history {
			cp := *h
			cp.Updates = append([]domain.OddsUpdate(nil), h.Updates...)
			out[sel] = cp
		}
		return out
	})
}
