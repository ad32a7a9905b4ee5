package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MinOdds is the minimum legal decimal odds value (§3 Odds value).
var MinOdds = decimal.NewFromFloat(1.01)

// OddsSource identifies who or what produced an odds update.
type OddsSource string

const (
	SourceManual   OddsSource = "manual"
	SourceFeed     OddsSource = "feed"
	SourceProvider OddsSource = "provider"
)

// VolatilityLevel is a discrete classification of odds-change volatility.
type VolatilityLevel string

const (
	VolatilityLow     VolatilityLevel = "low"
	VolatilityMedium  VolatilityLevel = "medium"
	VolatilityHigh    VolatilityLevel = "high"
	VolatilityExtreme VolatilityLevel = "extreme"
)

// OddsValue is a single decimal-odds reading for one selection in one market.
type OddsValue struct {
	Decimal     decimal.Decimal `json:"decimal"`
	MarketID    uuid.UUID       `json:"market_id"`
	SelectionID string          `json:"selection_id"`
	Source      OddsSource      `json:"source"`
	Timestamp   time.Time       `json:"timestamp"`
}

// ImpliedProbability returns 1/decimal.
func (v OddsValue) ImpliedProbability() decimal.Decimal {
	if v.Decimal.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromInt(1).Div(v.Decimal)
}

// IsValid reports whether the decimal odds meet the platform minimum.
func (v OddsValue) IsValid() bool {
	return v.Decimal.GreaterThanOrEqual(MinOdds)
}

// OddsUpdate records one applied change to a selection's odds.
type OddsUpdate struct {
	Previous  decimal.Decimal `json:"previous"`
	New       decimal.Decimal `json:"new"`
	Source    OddsSource      `json:"source"`
	Reason    string          `json:"reason,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PercentageChange returns |new-previous|/previous * 100.
func (u OddsUpdate) PercentageChange() decimal.Decimal {
	if u.Previous.IsZero() {
		return decimal.Zero
	}
	diff := u.New.Sub(u.Previous).Abs()
	return diff.Div(u.Previous).Mul(decimal.NewFromInt(100))
}

// OddsHistory is the ordered update log for one (marketId, selectionId) pair.
type OddsHistory struct {
	MarketID    uuid.UUID    `json:"market_id"`
	SelectionID string       `json:"selection_id"`
	Initial     decimal.Decimal `json:"initial"`
	Updates     []OddsUpdate `json:"updates"`
}

// Clone returns a deep copy of h, safe for the actor layer to mutate
// speculatively before a persist attempt.
func (h *OddsHistory) Clone() *OddsHistory {
	cp := *h
	cp.Updates = append([]OddsUpdate(nil), h.Updates...)
	return &cp
}

// Current returns the last applied odds value, or Initial if no updates
// have been applied yet.
func (h *OddsHistory) Current() decimal.Decimal {
	if len(h.Updates) == 0 {
		return h.Initial
	}
	return h.Updates[len(h.Updates)-1].New
}

// InWindow returns the updates whose UpdatedAt falls within [now-window, now].
func (h *OddsHistory) InWindow(now time.Time, window time.Duration) []OddsUpdate {
	cutoff := now.Add(-window)
	var out []OddsUpdate
	for _, u := range h.Updates {
		if !u.UpdatedAt.Before(cutoff) {
			out = append(out, u)
		}
	}
	return out
}

// VolatilityScore implements the §4.3 algorithm: given updates U in a window
// W (minutes), if |U| < 2 the score is 0; otherwise
// score = meanChange * (1 + min(frequency, 5)) where
// frequency = |U| / W(minutes).
func VolatilityScore(updates []OddsUpdate, window time.Duration) decimal.Decimal {
	if len(updates) < 2 {
		return decimal.Zero
	}
	var sum decimal.Decimal
	for _, u := range updates {
		sum = sum.Add(u.PercentageChange())
	}
	meanChange := sum.Div(decimal.NewFromInt(int64(len(updates))))

	windowMinutes := decimal.NewFromFloat(window.Minutes())
	if windowMinutes.IsZero() {
		windowMinutes = decimal.NewFromInt(1)
	}
	frequency := decimal.NewFromInt(int64(len(updates))).Div(windowMinutes)
	capFive := decimal.NewFromInt(5)
	if frequency.GreaterThan(capFive) {
		frequency = capFive
	}
	multiplier := decimal.NewFromInt(1).Add(frequency)
	return meanChange.Mul(multiplier)
}

// LevelForScore maps a volatility score to a discrete level per §4.3:
// Low<10, Medium∈[10,25), High∈[25,50), Extreme>=50.
func LevelForScore(score decimal.Decimal, cfg VolatilityThresholds) VolatilityLevel {
	switch {
	case score.GreaterThanOrEqual(cfg.Extreme):
		return VolatilityExtreme
	case score.GreaterThanOrEqual(cfg.High):
		return VolatilityHigh
	case score.GreaterThanOrEqual(cfg.Medium):
		return VolatilityMedium
	default:
		return VolatilityLow
	}
}

// VolatilityThresholds holds the configurable score boundaries (§9 Open
// Questions: thresholds are a design choice exposed as configuration).
type VolatilityThresholds struct {
	Medium  decimal.Decimal
	High    decimal.Decimal
	Extreme decimal.Decimal
}

// DefaultVolatilityThresholds returns the spec's literal defaults:
// Medium=10, High=25, Extreme=50.
func DefaultVolatilityThresholds() VolatilityThresholds {
	return VolatilityThresholds{
		Medium:  decimal.NewFromInt(10),
		High:    decimal.NewFromInt(25),
		Extreme: decimal.NewFromInt(50),
	}
}

// OddsSnapshot is the per-market read model: current odds per selection,
// suspension state, and volatility level (§3 Odds snapshot).
type OddsSnapshot struct {
	MarketID          uuid.UUID                  `json:"market_id"`
	Odds              map[string]decimal.Decimal `json:"odds"`
	Suspended         bool                       `json:"suspended"`
	SuspensionReason  string                     `json:"suspension_reason,omitempty"`
	VolatilityLevel   VolatilityLevel            `json:"volatility_level"`
	SnapshotTimestamp time.Time                  `json:"snapshot_timestamp"`
}

// Copy returns a deep, read-only-safe copy of the snapshot so callers cannot
// mutate actor-internal state (§9: "generic mutable dictionary returns" are
// replaced by copy-on-return containers).
func (s OddsSnapshot) Copy() OddsSnapshot {
	cp := s
	cp.Odds = make(map[string]decimal.Decimal, len(s.Odds))
	for k, v := range s.Odds {
		cp.Odds[k] = v
	}
	return cp
}

// MarketLockSet tracks which bets have locked odds for which selections in
// one market (§3 Market lock set).
type MarketLockSet struct {
	// selectionId -> set of betIds locked against it
	BySelection map[string]map[uuid.UUID]struct{}
	// betId -> the odds value captured at lock time
	LockedOdds map[uuid.UUID]OddsValue
}

// NewMarketLockSet returns an empty lock set.
func NewMarketLockSet() *MarketLockSet {
	return &MarketLockSet{
		BySelection: make(map[string]map[uuid.UUID]struct{}),
		LockedOdds:  make(map[uuid.UUID]OddsValue),
	}
}

// Clone returns a deep copy of the lock set.
func (s *MarketLockSet) Clone() *MarketLockSet {
	cp := NewMarketLockSet()
	for sel, set := range s.BySelection {
		copied := make(map[uuid.UUID]struct{}, len(set))
		for id := range set {
			copied[id] = struct{}{}
		}
		cp.BySelection[sel] = copied
	}
	for id, v := range s.LockedOdds {
		cp.LockedOdds[id] = v
	}
	return cp
}

// Lock records betId as holding a lock on selectionId at the given odds value.
func (s *MarketLockSet) Lock(betID uuid.UUID, selectionID string, value OddsValue) {
	if s.BySelection[selectionID] == nil {
		s.BySelection[selectionID] = make(map[uuid.UUID]struct{})
	}
	s.BySelection[selectionID][betID] = struct{}{}
	s.LockedOdds[betID] = value
}

// Unlock removes betId from whichever selection lock set holds it. No-op if
// the bet is not locked anywhere.
func (s *MarketLockSet) Unlock(betID uuid.UUID) {
	for _, set := range s.BySelection {
		delete(set, betID)
	}
	delete(s.LockedOdds, betID)
}

// IsLocked reports whether any bet currently holds a lock on selectionID.
func (s *MarketLockSet) IsLocked(selectionID string) bool {
	return len(s.BySelection[selectionID]) > 0
}

// LockedSelections returns the selection ids that currently have at least
// one active lock.
func (s *MarketLockSet) LockedSelections() []string {
	var out []string
	for sel, set := range s.BySelection {
		if len(set) > 0 {
			out = append(out, sel)
		}
	}
	return out
}
