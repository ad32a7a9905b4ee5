package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

// BetIndexState is a thin per-user registry of bet ids (§3 Bet index,
// §4.5). Ordering is insertion order; "descending by placedAt" is resolved
// by the HTTP layer (bet_handler.go's GetUserHistory) against each
// referenced bet's aggregate, since the index itself only stores ids.
type BetIndexState struct {
	UserID uuid.UUID
	BetIDs []uuid.UUID
	seen   map[uuid.UUID]struct{}
	// Idempotency maps a caller-supplied PlaceBet idempotency key to the
	// betId it originally produced (§8 Scenario 4), scoped per user the
	// same way the wallet scopes (userId, referenceId).
	Idempotency map[string]uuid.UUID
}

// NewBetIndexState returns an empty index for userID.
func NewBetIndexState(userID uuid.UUID) *BetIndexState {
	return &BetIndexState{UserID: userID, seen: make(map[uuid.UUID]struct{}), Idempotency: make(map[string]uuid.UUID)}
}

// LookupIdempotencyKey returns the betId previously registered under key, if any.
func (s *BetIndexState) LookupIdempotencyKey(key string) (uuid.UUID, bool) {
	id, ok := s.Idempotency[key]
	return id, ok
}

// SetIdempotencyKey registers key as having produced betID.
func (s *BetIndexState) SetIdempotencyKey(key string, betID uuid.UUID) {
	if s.Idempotency == nil {
		s.Idempotency = make(map[string]uuid.UUID)
	}
	s.Idempotency[key] = betID
}

// Add registers betID, idempotently.
func (s *BetIndexState) Add(betID uuid.UUID) {
	if s.seen == nil {
		s.seen = make(map[uuid.UUID]struct{})
	}
	if _, ok := s.seen[betID]; ok {
		return
	}
	s.seen[betID] = struct{}{}
	s.BetIDs = append(s.BetIDs, betID)
}

// Has reports whether betID is registered.
func (s *BetIndexState) Has(betID uuid.UUID) bool {
	if s.seen == nil {
		return false
	}
	_, ok := s.seen[betID]
	return ok
}

// Clone returns a deep copy of s, safe for the actor layer to mutate
// speculatively before a persist attempt.
func (s *BetIndexState) Clone() *BetIndexState {
	cp := &BetIndexState{
		UserID:      s.UserID,
		BetIDs:      append([]uuid.UUID(nil), s.BetIDs...),
		seen:        make(map[uuid.UUID]struct{}, len(s.seen)),
		Idempotency: make(map[string]uuid.UUID, len(s.Idempotency)),
	}
	for id := range s.seen {
		cp.seen[id] = struct{}{}
	}
	for k, v := range s.Idempotency {
		cp.Idempotency[k] = v
	}
	return cp
}

// All returns a copy of the registered bet ids, most-recent-first.
func (s *BetIndexState) All() []uuid.UUID {
	out := make([]uuid.UUID, len(s.BetIDs))
	for i, id := range s.BetIDs {
		out[len(s.BetIDs)-1-i] = id
	}
	return out
}

// betIndexWire is the JSON wire shape for BetIndexState; seen is derived,
// never serialized.
type betIndexWire struct {
	UserID      uuid.UUID            `json:"user_id"`
	BetIDs      []uuid.UUID          `json:"bet_ids"`
	Idempotency map[string]uuid.UUID `json:"idempotency,omitempty"`
}

// MarshalJSON serializes the exported fields only; seen is a derived index.
func (s BetIndexState) MarshalJSON() ([]byte, error) {
	return json.Marshal(betIndexWire{UserID: s.UserID, BetIDs: s.BetIDs, Idempotency: s.Idempotency})
}

// UnmarshalJSON restores BetIDs and rebuilds seen from it, so Has/Add stay
// correct for state loaded back from a snapshot store.
func (s *BetIndexState) UnmarshalJSON(data []byte) error {
	var w betIndexWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	s.UserID = w.UserID
	s.BetIDs = w.BetIDs
	s.seen = make(map[uuid.UUID]struct{}, len(w.BetIDs))
	for _, id := range w.BetIDs {
		s.seen[id] = struct{}{}
	}
	s.Idempotency = w.Idempotency
	if s.Idempotency == nil {
		s.Idempotency = make(map[string]uuid.UUID)
	}
	return nil
}
