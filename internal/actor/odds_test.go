package actor_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oddsforge/sportsbook/internal/actor"
	"github.com/oddsforge/sportsbook/internal/domain"
	"github.com/oddsforge/sportsbook/internal/eventbus"
	"github.com/oddsforge/sportsbook/internal/snapshot"
)

func newTestOddsActor() *actor.OddsActor {
	thresholds := domain.VolatilityThresholds{
		Medium:  decimal.NewFromInt(10),
		High:    decimal.NewFromInt(25),
		Extreme: decimal.NewFromInt(50),
	}
	return actor.NewOddsActor(snapshot.NewInMemoryStore(), eventbus.NoopPublisher{}, thresholds, 5*time.Minute, decimal.NewFromFloat(1.01))
}

func TestOddsInitializeMarket_ThenGetCurrent(t *testing.T) {
	o := newTestOddsActor()
	ctx := context.Background()
	marketID := uuid.New()

	_, err := o.InitializeMarket(ctx, marketID, map[string]decimal.Decimal{
		"home": decimal.NewFromFloat(2.00),
		"away": decimal.NewFromFloat(3.50),
	}, domain.SourceManual)
	if err != nil {
		t.Fatalf("InitializeMarket: %v", err)
	}

	snap, err := o.GetCurrentOdds(ctx, marketID)
	if err != nil {
		t.Fatalf("GetCurrentOdds: %v", err)
	}
	if !snap.Odds["home"].Equal(decimal.NewFromFloat(2.00)) {
		t.Errorf("home odds = %s, want 2.00", snap.Odds["home"])
	}
	if snap.Suspended {
		t.Error("freshly initialized market should not be suspended")
	}
}

func TestOddsInitializeMarket_Twice_Fails(t *testing.T) {
	o := newTestOddsActor()
	ctx := context.Background()
	marketID := uuid.New()

	odds := map[string]decimal.Decimal{"home": decimal.NewFromFloat(2.00)}
	if _, err := o.InitializeMarket(ctx, marketID, odds, domain.SourceManual); err != nil {
		t.Fatalf("first InitializeMarket: %v", err)
	}
	if _, err := o.InitializeMarket(ctx, marketID, odds, domain.SourceManual); err != domain.ErrAlreadyInitialized {
		t.Errorf("second InitializeMarket error = %v, want ErrAlreadyInitialized", err)
	}
}

func TestOddsUpdateOdds_UnknownSelection_Fails(t *testing.T) {
	o := newTestOddsActor()
	ctx := context.Background()
	marketID := uuid.New()

	o.InitializeMarket(ctx, marketID, map[string]decimal.Decimal{"home": decimal.NewFromFloat(2.00)}, domain.SourceManual)
	_, err := o.UpdateOdds(ctx, marketID, map[string]decimal.Decimal{"draw": decimal.NewFromFloat(4.00)}, domain.SourceFeed, "test")
	if err != domain.ErrUnknownSelection {
		t.Errorf("UpdateOdds on unknown selection error = %v, want ErrUnknownSelection", err)
	}
}

func TestOddsSuspendResume_Idempotent(t *testing.T) {
	o := newTestOddsActor()
	ctx := context.Background()
	marketID := uuid.New()
	o.InitializeMarket(ctx, marketID, map[string]decimal.Decimal{"home": decimal.NewFromFloat(2.00)}, domain.SourceManual)

	snap, err := o.SuspendOdds(ctx, marketID, "manual review", "trader-1")
	if err != nil || !snap.Suspended {
		t.Fatalf("SuspendOdds: err=%v suspended=%v", err, snap.Suspended)
	}
	// Suspending again should be a no-op that preserves the original reason.
	snap2, err := o.SuspendOdds(ctx, marketID, "a different reason", "trader-2")
	if err != nil || snap2.SuspensionReason != "manual review" {
		t.Errorf("re-suspend should preserve original reason, got %q", snap2.SuspensionReason)
	}

	snap3, err := o.ResumeOdds(ctx, marketID, "cleared", "trader-1")
	if err != nil || snap3.Suspended {
		t.Fatalf("ResumeOdds: err=%v suspended=%v", err, snap3.Suspended)
	}
}

func TestOddsLockOddsForBet_WhileSuspended_Fails(t *testing.T) {
	o := newTestOddsActor()
	ctx := context.Background()
	marketID := uuid.New()
	o.InitializeMarket(ctx, marketID, map[string]decimal.Decimal{"home": decimal.NewFromFloat(2.00)}, domain.SourceManual)
	o.SuspendOdds(ctx, marketID, "volatility", "system")

	_, _, err := o.LockOddsForBet(ctx, marketID, uuid.New(), "home")
	if err != domain.ErrMarketSuspended {
		t.Errorf("LockOddsForBet on suspended market error = %v, want ErrMarketSuspended", err)
	}
}

func TestOddsLockThenUnlock_RemovesFromLockedBetIDs(t *testing.T) {
	o := newTestOddsActor()
	ctx := context.Background()
	marketID := uuid.New()
	betID := uuid.New()
	o.InitializeMarket(ctx, marketID, map[string]decimal.Decimal{"home": decimal.NewFromFloat(2.00)}, domain.SourceManual)

	if _, _, err := o.LockOddsForBet(ctx, marketID, betID, "home"); err != nil {
		t.Fatalf("LockOddsForBet: %v", err)
	}
	ids, err := o.GetLockedBetIDs(ctx, marketID, "home")
	if err != nil || len(ids) != 1 || ids[0] != betID {
		t.Fatalf("GetLockedBetIDs after lock = %v, err=%v", ids, err)
	}

	if _, err := o.UnlockOddsAsync(ctx, marketID, betID); err != nil {
		t.Fatalf("UnlockOddsAsync: %v", err)
	}
	ids, _ = o.GetLockedBetIDs(ctx, marketID, "home")
	if len(ids) != 0 {
		t.Errorf("GetLockedBetIDs after unlock = %v, want empty", ids)
	}
}

func TestOddsAutoSuspendOnExtremeVolatility(t *testing.T) {
	o := newTestOddsActor()
	ctx := context.Background()
	marketID := uuid.New()
	o.InitializeMarket(ctx, marketID, map[string]decimal.Decimal{"home": decimal.NewFromFloat(2.00)}, domain.SourceManual)

	// A burst of large swings within the volatility window should push the
	// score past the extreme threshold and trigger auto-suspension.
	odds := 2.00
	for i := 0; i < 20; i++ {
		odds += 1.0
		snap, err := o.UpdateOdds(ctx, marketID, map[string]decimal.Decimal{"home": decimal.NewFromFloat(odds)}, domain.SourceFeed, "burst")
		if err == domain.ErrMarketSuspended {
			return // auto-suspended partway through the burst: expected outcome
		}
		if err != nil {
			t.Fatalf("UpdateOdds: %v", err)
		}
		if snap.Suspended {
			return
		}
	}
	t.Error("expected the market to auto-suspend under extreme volatility")
}
