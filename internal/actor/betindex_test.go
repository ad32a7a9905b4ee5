package actor_test

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/oddsforge/sportsbook/internal/actor"
	"github.com/oddsforge/sportsbook/internal/eventbus"
	"github.com/oddsforge/sportsbook/internal/snapshot"
)

func newTestBetIndexActor() *actor.BetIndexActor {
	return actor.NewBetIndexActor(snapshot.NewInMemoryStore(), eventbus.NoopPublisher{})
}

func TestBetIndexAddBet_IsIdempotent(t *testing.T) {
	idx := newTestBetIndexActor()
	ctx := context.Background()
	userID, betID := uuid.New(), uuid.New()

	if err := idx.AddBet(ctx, userID, betID); err != nil {
		t.Fatalf("AddBet: %v", err)
	}
	if err := idx.AddBet(ctx, userID, betID); err != nil {
		t.Fatalf("duplicate AddBet: %v", err)
	}

	bets, err := idx.GetUserBets(ctx, userID)
	if err != nil {
		t.Fatalf("GetUserBets: %v", err)
	}
	if len(bets) != 1 {
		t.Errorf("GetUserBets returned %d ids, want 1 (duplicate AddBet should not double-index)", len(bets))
	}
}

func TestBetIndexHasBet(t *testing.T) {
	idx := newTestBetIndexActor()
	ctx := context.Background()
	userID, betID := uuid.New(), uuid.New()

	has, err := idx.HasBet(ctx, userID, betID)
	if err != nil || has {
		t.Fatalf("HasBet before AddBet = %v %v, want false", has, err)
	}

	idx.AddBet(ctx, userID, betID)

	has, err = idx.HasBet(ctx, userID, betID)
	if err != nil || !has {
		t.Fatalf("HasBet after AddBet = %v %v, want true", has, err)
	}
}

func TestBetIndexGetUserBets_IsolatedPerUser(t *testing.T) {
	idx := newTestBetIndexActor()
	ctx := context.Background()
	userA, userB := uuid.New(), uuid.New()
	betA, betB := uuid.New(), uuid.New()

	idx.AddBet(ctx, userA, betA)
	idx.AddBet(ctx, userB, betB)

	betsA, _ := idx.GetUserBets(ctx, userA)
	if len(betsA) != 1 || betsA[0] != betA {
		t.Errorf("userA bets = %v, want [%v]", betsA, betA)
	}
}
