package actor

import (
	"context"

	"github.com/google/uuid"
	"github.com/oddsforge/sportsbook/internal/domain"
	"github.com/oddsforge/sportsbook/internal/eventbus"
	"github.com/oddsforge/sportsbook/internal/snapshot"
)

// BetIndexClient is the typed handle the bet actor uses to register newly
// placed bets against their owning user, and the HTTP layer uses to list a
// user's bets (§4.5).
type BetIndexClient interface {
	AddBet(ctx context.Context, userID, betID uuid.UUID) error
	HasBet(ctx context.Context, userID, betID uuid.UUID) (bool, error)
	GetUserBets(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	LookupIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (uuid.UUID, bool, error)
	ReserveIdempotencyKey(ctx context.Context, userID uuid.UUID, key string, betID uuid.UUID) error
}

// BetIndexActor is the per-userId logical actor tracking which bets belong
// to a user (§4.5). It holds only ids — bet details live in the bet actor's
// own event stream — so it is a thin registry, not a projection.
type BetIndexActor struct {
	manager *Manager[uuid.UUID, domain.BetIndexState]
	snaps   snapshot.Store
	bus     eventbus.Publisher
}

// NewBetIndexActor constructs a BetIndexActor backed by snaps.
func NewBetIndexActor(snaps snapshot.Store, bus eventbus.Publisher) *BetIndexActor {
	b := &BetIndexActor{snaps: snaps, bus: bus}
	b.manager = NewManager(func(userID uuid.UUID) domain.BetIndexState {
		var state domain.BetIndexState
		ok, err := snaps.Load(context.Background(), "betindex", userID.String(), &state)
		if err == nil && ok {
			return state
		}
		return *domain.NewBetIndexState(userID)
	})
	return b
}

func (b *BetIndexActor) persist(ctx context.Context, s *domain.BetIndexState) error {
	return b.snaps.Save(ctx, "betindex", s.UserID.String(), s)
}

// AddBet implements §4.5 AddBet: idempotent, no-op if the bet is already
// indexed for this user.
func (b *BetIndexActor) AddBet(ctx context.Context, userID, betID uuid.UUID) error {
	domainErr, err := ManagerCall(ctx, b.manager, userID, func(s *domain.BetIndexState) error {
		if s.Has(betID) {
			return nil
		}
		next := s.Clone()
		next.Add(betID)
		if err := b.persist(ctx, next); err != nil {
			return domain.ErrPersistenceError
		}
		*s = *next
		b.bus.Publish(context.Background(), "betindex", "bet_added", struct {
			UserID uuid.UUID `json:"user_id"`
			BetID  uuid.UUID `json:"bet_id"`
		}{userID, betID})
		return nil
	})
	if err != nil {
		return err
	}
	return domainErr
}

// HasBet implements §4.5 HasBet.
func (b *BetIndexActor) HasBet(ctx context.Context, userID, betID uuid.UUID) (bool, error) {
	return ManagerCall(ctx, b.manager, userID, func(s *domain.BetIndexState) bool {
		return s.Has(betID)
	})
}

// idempotencyLookup is the result type for LookupIdempotencyKey's ManagerCall.
type idempotencyLookup struct {
	betID uuid.UUID
	found bool
}

// LookupIdempotencyKey reports whether key was previously used in a PlaceBet
// call for userID, returning the betId it produced (§8 Scenario 4).
func (b *BetIndexActor) LookupIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (uuid.UUID, bool, error) {
	r, err := ManagerCall(ctx, b.manager, userID, func(s *domain.BetIndexState) idempotencyLookup {
		id, ok := s.LookupIdempotencyKey(key)
		return idempotencyLookup{betID: id, found: ok}
	})
	if err != nil {
		return uuid.UUID{}, false, err
	}
	return r.betID, r.found, nil
}

// ReserveIdempotencyKey registers key as having produced betID, so a retried
// PlaceBet call with the same key replays the original result instead of
// placing a second bet.
func (b *BetIndexActor) ReserveIdempotencyKey(ctx context.Context, userID uuid.UUID, key string, betID uuid.UUID) error {
	domainErr, err := ManagerCall(ctx, b.manager, userID, func(s *domain.BetIndexState) error {
		if existing, ok := s.LookupIdempotencyKey(key); ok {
			if existing != betID {
				return domain.ErrAlreadyExists
			}
			return nil
		}
		next := s.Clone()
		next.SetIdempotencyKey(key, betID)
		if err := b.persist(ctx, next); err != nil {
			return domain.ErrPersistenceError
		}
		*s = *next
		return nil
	})
	if err != nil {
		return err
	}
	return domainErr
}

// GetUserBets implements §4.5 GetUserBets, returning ids most-recent-first.
func (b *BetIndexActor) GetUserBets(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return ManagerCall(ctx, b.manager, userID, func(s *domain.BetIndexState) []uuid.UUID {
		return s.All()
	})
}
