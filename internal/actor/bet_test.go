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
	"github.com/oddsforge/sportsbook/internal/eventstore"
	"github.com/oddsforge/sportsbook/internal/snapshot"
)

// betTestRig wires a bet actor against real wallet/odds/index actors backed
// by in-memory stores, mirroring internal/api's smoke test harness rather
// than mocking the collaborators.
type betTestRig struct {
	wallet *actor.WalletActor
	odds   *actor.OddsActor
	index  *actor.BetIndexActor
	bets   *actor.BetActor
}

func newBetTestRig() *betTestRig {
	snaps := snapshot.NewInMemoryStore()
	bus := eventbus.NoopPublisher{}
	wallet := actor.NewWalletActor(snaps, bus, "USD")
	thresholds := domain.VolatilityThresholds{
		Medium: decimal.NewFromInt(10), High: decimal.NewFromInt(25), Extreme: decimal.NewFromInt(50),
	}
	odds := actor.NewOddsActor(snaps, bus, thresholds, 5*time.Minute, decimal.NewFromFloat(1.01))
	index := actor.NewBetIndexActor(snaps, bus)
	bets := actor.NewBetActor(eventstore.NewInMemoryEventStore(), bus, wallet, odds, index,
		decimal.NewFromFloat(0.95), decimal.NewFromFloat(0.01))
	return &betTestRig{wallet: wallet, odds: odds, index: index, bets: bets}
}

func (r *betTestRig) seedMarket(ctx context.Context, marketID uuid.UUID, oddsBySelection map[string]decimal.Decimal) {
	r.odds.InitializeMarket(ctx, marketID, oddsBySelection, domain.SourceManual)
}

func TestPlaceBet_Accepted_ReservesAndLocks(t *testing.T) {
	rig := newBetTestRig()
	ctx := context.Background()
	userID, eventID, marketID := uuid.New(), uuid.New(), uuid.New()

	rig.wallet.Deposit(ctx, userID, usd("100.00"), "")
	rig.seedMarket(ctx, marketID, map[string]decimal.Decimal{"home": decimal.NewFromFloat(2.00)})

	bet, _, err := rig.bets.PlaceBet(ctx, userID, eventID, marketID, "home", usd("10.00"), decimal.NewFromFloat(1.50), "")
	if err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	if bet.Status != domain.BetAccepted {
		t.Fatalf("bet status = %s, want accepted", bet.Status)
	}

	avail, _ := rig.wallet.GetAvailableBalance(ctx, userID)
	if !avail.Amount.Equal(decimal.RequireFromString("90.00")) {
		t.Errorf("available balance after placing bet = %s, want 90.00", avail.Amount)
	}

	locked, _ := rig.odds.GetLockedBetIDs(ctx, marketID, "home")
	if len(locked) != 1 || locked[0] != bet.BetID {
		t.Errorf("locked bet ids = %v, want [%v]", locked, bet.BetID)
	}

	indexed, _ := rig.index.GetUserBets(ctx, userID)
	if len(indexed) != 1 || indexed[0] != bet.BetID {
		t.Errorf("bet index = %v, want [%v]", indexed, bet.BetID)
	}
}

func TestPlaceBet_IdempotentOnKey_ReplaysSameBet(t *testing.T) {
	rig := newBetTestRig()
	ctx := context.Background()
	userID, eventID, marketID := uuid.New(), uuid.New(), uuid.New()

	rig.wallet.Deposit(ctx, userID, usd("100.00"), "")
	rig.seedMarket(ctx, marketID, map[string]decimal.Decimal{"home": decimal.NewFromFloat(2.00)})

	first, replayed, err := rig.bets.PlaceBet(ctx, userID, eventID, marketID, "home", usd("10.00"), decimal.NewFromFloat(1.50), "k1")
	if err != nil {
		t.Fatalf("first PlaceBet: %v", err)
	}
	if replayed {
		t.Fatalf("first PlaceBet with a fresh key should not be reported as a replay")
	}

	second, replayed, err := rig.bets.PlaceBet(ctx, userID, eventID, marketID, "home", usd("10.00"), decimal.NewFromFloat(1.50), "k1")
	if err != nil {
		t.Fatalf("second PlaceBet: %v", err)
	}
	if !replayed {
		t.Errorf("second PlaceBet with the same key should be reported as a replay")
	}
	if second.BetID != first.BetID {
		t.Errorf("replayed betId = %v, want %v", second.BetID, first.BetID)
	}
	firstPayout := domain.PotentialPayout(first.Stake, first.FinalOdds)
	secondPayout := domain.PotentialPayout(second.Stake, second.FinalOdds)
	if !secondPayout.Amount.Equal(firstPayout.Amount) {
		t.Errorf("replayed potentialPayout = %s, want %s", secondPayout.Amount, firstPayout.Amount)
	}

	history, _ := rig.bets.GetBetHistory(ctx, first.BetID)
	if len(history) != 2 {
		t.Errorf("bet event stream length = %d, want 2 (placed, accepted — unchanged by the replay)", len(history))
	}

	avail, _ := rig.wallet.GetAvailableBalance(ctx, userID)
	if !avail.Amount.Equal(decimal.RequireFromString("90.00")) {
		t.Errorf("available balance after replay = %s, want 90.00 (exactly one reservation)", avail.Amount)
	}
}

func TestPlaceBet_OddsMovedBelowAcceptable_Rejected(t *testing.T) {
	rig := newBetTestRig()
	ctx := context.Background()
	userID, eventID, marketID := uuid.New(), uuid.New(), uuid.New()

	rig.wallet.Deposit(ctx, userID, usd("100.00"), "")
	rig.seedMarket(ctx, marketID, map[string]decimal.Decimal{"home": decimal.NewFromFloat(1.50)})

	_, _, err := rig.bets.PlaceBet(ctx, userID, eventID, marketID, "home", usd("10.00"), decimal.NewFromFloat(2.00), "")
	if err != domain.ErrOddsChanged {
		t.Fatalf("PlaceBet error = %v, want ErrOddsChanged", err)
	}

	// Both compensations must have fired: no reservation, no lock left behind.
	avail, _ := rig.wallet.GetAvailableBalance(ctx, userID)
	if !avail.Amount.Equal(decimal.RequireFromString("100.00")) {
		t.Errorf("available balance after rejected bet = %s, want 100.00 (reservation released)", avail.Amount)
	}
	locked, _ := rig.odds.GetLockedBetIDs(ctx, marketID, "home")
	if len(locked) != 0 {
		t.Errorf("locked bet ids after rejected bet = %v, want empty", locked)
	}
}

func TestPlaceBet_InsufficientFunds_Rejected(t *testing.T) {
	rig := newBetTestRig()
	ctx := context.Background()
	userID, eventID, marketID := uuid.New(), uuid.New(), uuid.New()

	rig.wallet.Deposit(ctx, userID, usd("5.00"), "")
	rig.seedMarket(ctx, marketID, map[string]decimal.Decimal{"home": decimal.NewFromFloat(2.00)})

	_, _, err := rig.bets.PlaceBet(ctx, userID, eventID, marketID, "home", usd("10.00"), decimal.NewFromFloat(1.50), "")
	if err != domain.ErrInsufficientAvailableBalance {
		t.Fatalf("PlaceBet error = %v, want ErrInsufficientAvailableBalance", err)
	}
}

func TestVoidBet_RefundsAndUnlocks(t *testing.T) {
	rig := newBetTestRig()
	ctx := context.Background()
	userID, eventID, marketID := uuid.New(), uuid.New(), uuid.New()

	rig.wallet.Deposit(ctx, userID, usd("100.00"), "")
	rig.seedMarket(ctx, marketID, map[string]decimal.Decimal{"home": decimal.NewFromFloat(2.00)})
	bet, _, _ := rig.bets.PlaceBet(ctx, userID, eventID, marketID, "home", usd("10.00"), decimal.NewFromFloat(1.50), "")

	voided, err := rig.bets.VoidBet(ctx, bet.BetID, "trading error")
	if err != nil {
		t.Fatalf("VoidBet: %v", err)
	}
	if voided.Status != domain.BetVoid {
		t.Fatalf("status after void = %s, want void", voided.Status)
	}

	avail, _ := rig.wallet.GetAvailableBalance(ctx, userID)
	if !avail.Amount.Equal(decimal.RequireFromString("100.00")) {
		t.Errorf("available balance after void = %s, want 100.00", avail.Amount)
	}
	locked, _ := rig.odds.GetLockedBetIDs(ctx, marketID, "home")
	if len(locked) != 0 {
		t.Errorf("locked bet ids after void = %v, want empty", locked)
	}
}

func TestApplySettlement_Won_PaysOut(t *testing.T) {
	rig := newBetTestRig()
	ctx := context.Background()
	userID, eventID, marketID := uuid.New(), uuid.New(), uuid.New()

	rig.wallet.Deposit(ctx, userID, usd("100.00"), "")
	rig.seedMarket(ctx, marketID, map[string]decimal.Decimal{"home": decimal.NewFromFloat(2.00)})
	bet, _, _ := rig.bets.PlaceBet(ctx, userID, eventID, marketID, "home", usd("10.00"), decimal.NewFromFloat(1.50), "")

	settled, err := rig.bets.ApplySettlement(ctx, bet.BetID, domain.BetWon)
	if err != nil {
		t.Fatalf("ApplySettlement: %v", err)
	}
	if settled.Status != domain.BetWon {
		t.Fatalf("status after settlement = %s, want won", settled.Status)
	}

	// Stake was reserved (90 available / 100 total); winning at 2.00 pays 20,
	// committed reservation drops total to 90, then the 20 payout lands it at 110.
	total, _ := rig.wallet.GetBalance(ctx, userID)
	if !total.Amount.Equal(decimal.RequireFromString("110.00")) {
		t.Errorf("total balance after winning settlement = %s, want 110.00", total.Amount)
	}
}

func TestApplySettlement_Lost_NoPayout(t *testing.T) {
	rig := newBetTestRig()
	ctx := context.Background()
	userID, eventID, marketID := uuid.New(), uuid.New(), uuid.New()

	rig.wallet.Deposit(ctx, userID, usd("100.00"), "")
	rig.seedMarket(ctx, marketID, map[string]decimal.Decimal{"home": decimal.NewFromFloat(2.00)})
	bet, _, _ := rig.bets.PlaceBet(ctx, userID, eventID, marketID, "home", usd("10.00"), decimal.NewFromFloat(1.50), "")

	settled, err := rig.bets.ApplySettlement(ctx, bet.BetID, domain.BetLost)
	if err != nil {
		t.Fatalf("ApplySettlement: %v", err)
	}
	if settled.Status != domain.BetLost {
		t.Fatalf("status after settlement = %s, want lost", settled.Status)
	}

	total, _ := rig.wallet.GetBalance(ctx, userID)
	if !total.Amount.Equal(decimal.RequireFromString("90.00")) {
		t.Errorf("total balance after losing settlement = %s, want 90.00", total.Amount)
	}
}

func TestApplySettlement_Twice_SecondIsRejected(t *testing.T) {
	rig := newBetTestRig()
	ctx := context.Background()
	userID, eventID, marketID := uuid.New(), uuid.New(), uuid.New()

	rig.wallet.Deposit(ctx, userID, usd("100.00"), "")
	rig.seedMarket(ctx, marketID, map[string]decimal.Decimal{"home": decimal.NewFromFloat(2.00)})
	bet, _, _ := rig.bets.PlaceBet(ctx, userID, eventID, marketID, "home", usd("10.00"), decimal.NewFromFloat(1.50), "")

	if _, err := rig.bets.ApplySettlement(ctx, bet.BetID, domain.BetWon); err != nil {
		t.Fatalf("first ApplySettlement: %v", err)
	}
	if _, err := rig.bets.ApplySettlement(ctx, bet.BetID, domain.BetWon); err != domain.ErrAlreadyProcessed {
		t.Errorf("second ApplySettlement error = %v, want ErrAlreadyProcessed", err)
	}
}

func TestGetBetDetails_UnknownBet_NotFound(t *testing.T) {
	rig := newBetTestRig()
	ctx := context.Background()

	_, err := rig.bets.GetBetDetails(ctx, uuid.New())
	if err != domain.ErrBetNotFound {
		t.Errorf("GetBetDetails for unknown bet error = %v, want ErrBetNotFound", err)
	}
}

func TestGetBetHistory_TracksEachTransition(t *testing.T) {
	rig := newBetTestRig()
	ctx := context.Background()
	userID, eventID, marketID := uuid.New(), uuid.New(), uuid.New()

	rig.wallet.Deposit(ctx, userID, usd("100.00"), "")
	rig.seedMarket(ctx, marketID, map[string]decimal.Decimal{"home": decimal.NewFromFloat(2.00)})
	bet, _, _ := rig.bets.PlaceBet(ctx, userID, eventID, marketID, "home", usd("10.00"), decimal.NewFromFloat(1.50), "")
	rig.bets.ApplySettlement(ctx, bet.BetID, domain.BetWon)

	history, err := rig.bets.GetBetHistory(ctx, bet.BetID)
	if err != nil {
		t.Fatalf("GetBetHistory: %v", err)
	}
	// placed -> accepted -> settled: three snapshots.
	if len(history) != 3 {
		t.Errorf("history length = %d, want 3", len(history))
	}
	if history[len(history)-1].Status != domain.BetWon {
		t.Errorf("final history snapshot status = %s, want won", history[len(history)-1].Status)
	}
}
