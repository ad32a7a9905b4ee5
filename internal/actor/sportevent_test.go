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

func newTestSportEventActor(odds actor.OddsClient) *actor.SportEventActor {
	return actor.NewSportEventActor(snapshot.NewInMemoryStore(), eventbus.NoopPublisher{}, odds)
}

func TestCreateEvent_ThenGetEvent(t *testing.T) {
	oddsActor := newTestOddsActor()
	events := newTestSportEventActor(oddsActor)
	ctx := context.Background()
	eventID := uuid.New()

	se, err := events.CreateEvent(ctx, eventID, "Finals", "football", "Cup", time.Now().Add(24*time.Hour), map[string]string{"home": "A", "away": "B"})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if se.Status != domain.EventScheduled {
		t.Fatalf("status after create = %s, want scheduled", se.Status)
	}

	got, err := events.GetEvent(ctx, eventID)
	if err != nil || got.EventID != eventID {
		t.Fatalf("GetEvent: %v %+v", err, got)
	}
}

func TestCreateEvent_Duplicate_Fails(t *testing.T) {
	oddsActor := newTestOddsActor()
	events := newTestSportEventActor(oddsActor)
	ctx := context.Background()
	eventID := uuid.New()

	events.CreateEvent(ctx, eventID, "Finals", "football", "Cup", time.Now(), nil)
	if _, err := events.CreateEvent(ctx, eventID, "Finals", "football", "Cup", time.Now(), nil); err != domain.ErrAlreadyExists {
		t.Errorf("duplicate CreateEvent error = %v, want ErrAlreadyExists", err)
	}
}

func TestEventLifecycle_ScheduledToLiveToCompleted(t *testing.T) {
	oddsActor := newTestOddsActor()
	events := newTestSportEventActor(oddsActor)
	ctx := context.Background()
	eventID := uuid.New()

	events.CreateEvent(ctx, eventID, "Finals", "football", "Cup", time.Now(), nil)

	if _, err := events.StartEvent(ctx, eventID); err != nil {
		t.Fatalf("StartEvent: %v", err)
	}
	se, err := events.CompleteEvent(ctx, eventID)
	if err != nil {
		t.Fatalf("CompleteEvent: %v", err)
	}
	if se.Status != domain.EventCompleted {
		t.Fatalf("status = %s, want completed", se.Status)
	}
	if se.EndTime == nil {
		t.Error("EndTime should be set once completed")
	}
}

func TestCompleteEvent_FromScheduled_InvalidTransition(t *testing.T) {
	oddsActor := newTestOddsActor()
	events := newTestSportEventActor(oddsActor)
	ctx := context.Background()
	eventID := uuid.New()

	events.CreateEvent(ctx, eventID, "Finals", "football", "Cup", time.Now(), nil)
	if _, err := events.CompleteEvent(ctx, eventID); err != domain.ErrInvalidTransition {
		t.Errorf("CompleteEvent directly from scheduled error = %v, want ErrInvalidTransition", err)
	}
}

func TestAddMarket_ThenUpdateMarketStatus(t *testing.T) {
	oddsActor := newTestOddsActor()
	events := newTestSportEventActor(oddsActor)
	ctx := context.Background()
	eventID, marketID := uuid.New(), uuid.New()

	events.CreateEvent(ctx, eventID, "Finals", "football", "Cup", time.Now(), nil)
	se, err := events.AddMarket(ctx, eventID, marketID, "Match Winner", "who wins",
		map[string]decimal.Decimal{"home": decimal.NewFromFloat(2.00), "away": decimal.NewFromFloat(3.50)})
	if err != nil {
		t.Fatalf("AddMarket: %v", err)
	}
	if se.Markets[marketID].Status != domain.MarketOpen {
		t.Fatalf("market status after add = %s, want open", se.Markets[marketID].Status)
	}

	se, err = events.UpdateMarketStatus(ctx, eventID, marketID, domain.MarketClosed)
	if err != nil {
		t.Fatalf("UpdateMarketStatus: %v", err)
	}
	if se.Markets[marketID].Status != domain.MarketClosed {
		t.Errorf("market status after close = %s, want closed", se.Markets[marketID].Status)
	}
}

func TestSetMarketResult_ComputesSettlementFanOut(t *testing.T) {
	oddsActor := newTestOddsActor()
	events := newTestSportEventActor(oddsActor)
	ctx := context.Background()
	eventID, marketID := uuid.New(), uuid.New()

	events.CreateEvent(ctx, eventID, "Finals", "football", "Cup", time.Now(), nil)
	events.AddMarket(ctx, eventID, marketID, "Match Winner", "who wins",
		map[string]decimal.Decimal{"home": decimal.NewFromFloat(2.00), "away": decimal.NewFromFloat(3.50)})
	oddsActor.InitializeMarket(ctx, marketID, map[string]decimal.Decimal{
		"home": decimal.NewFromFloat(2.00), "away": decimal.NewFromFloat(3.50),
	}, domain.SourceManual)

	homeBet := uuid.New()
	awayBet := uuid.New()
	oddsActor.LockOddsForBet(ctx, marketID, homeBet, "home")
	oddsActor.LockOddsForBet(ctx, marketID, awayBet, "away")

	events.UpdateMarketStatus(ctx, eventID, marketID, domain.MarketClosed)
	se, outcomes, err := events.SetMarketResult(ctx, eventID, marketID, "home")
	if err != nil {
		t.Fatalf("SetMarketResult: %v", err)
	}
	if se.Markets[marketID].Status != domain.MarketSettled {
		t.Fatalf("market status after result = %s, want settled", se.Markets[marketID].Status)
	}
	if len(outcomes) != 2 {
		t.Fatalf("settlement outcomes = %v, want 2 entries", outcomes)
	}

	byBet := map[uuid.UUID]domain.BetStatus{}
	for _, o := range outcomes {
		byBet[o.BetID] = o.Outcome
	}
	if byBet[homeBet] != domain.BetWon {
		t.Errorf("home bet outcome = %s, want won", byBet[homeBet])
	}
	if byBet[awayBet] != domain.BetLost {
		t.Errorf("away bet outcome = %s, want lost", byBet[awayBet])
	}
}

func TestPendingSettlements_ShrinksAsBetsAreUnlocked(t *testing.T) {
	oddsActor := newTestOddsActor()
	events := newTestSportEventActor(oddsActor)
	ctx := context.Background()
	eventID, marketID := uuid.New(), uuid.New()

	events.CreateEvent(ctx, eventID, "Finals", "football", "Cup", time.Now(), nil)
	events.AddMarket(ctx, eventID, marketID, "Match Winner", "who wins",
		map[string]decimal.Decimal{"home": decimal.NewFromFloat(2.00), "away": decimal.NewFromFloat(3.50)})
	oddsActor.InitializeMarket(ctx, marketID, map[string]decimal.Decimal{
		"home": decimal.NewFromFloat(2.00), "away": decimal.NewFromFloat(3.50),
	}, domain.SourceManual)

	homeBet := uuid.New()
	oddsActor.LockOddsForBet(ctx, marketID, homeBet, "home")

	events.UpdateMarketStatus(ctx, eventID, marketID, domain.MarketClosed)
	events.SetMarketResult(ctx, eventID, marketID, "home")

	pending, err := events.PendingSettlements(ctx, eventID)
	if err != nil {
		t.Fatalf("PendingSettlements: %v", err)
	}
	if len(pending) != 1 || pending[0].BetID != homeBet {
		t.Fatalf("pending settlements = %v, want one entry for %v", pending, homeBet)
	}

	// Simulate the scheduler having driven it through the bet actor, which
	// unlocks the bet; a second poll should find nothing left to do.
	oddsActor.UnlockOddsAsync(ctx, marketID, homeBet)
	pending, err = events.PendingSettlements(ctx, eventID)
	if err != nil {
		t.Fatalf("PendingSettlements (second poll): %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending settlements after unlock = %v, want empty", pending)
	}
}

func TestListEventIDs_TracksCreatedEvents(t *testing.T) {
	oddsActor := newTestOddsActor()
	events := newTestSportEventActor(oddsActor)
	ctx := context.Background()
	eventID := uuid.New()

	events.CreateEvent(ctx, eventID, "Finals", "football", "Cup", time.Now(), nil)

	ids := events.ListEventIDs()
	found := false
	for _, id := range ids {
		if id == eventID {
			found = true
		}
	}
	if !found {
		t.Errorf("ListEventIDs = %v, want to include %v", ids, eventID)
	}
}
