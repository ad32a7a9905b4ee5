package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oddsforge/sportsbook/internal/domain"
	"github.com/shopspring/decimal"
)

// TestVolatilityScore_FewUpdates verifies that scores below the 2-update
// threshold are always zero.
func TestVolatilityScore_FewUpdates(t *testing.T) {
	h := &domain.OddsHistory{Initial: decimal.NewFromFloat(2.0)}
	h.Updates = append(h.Updates, domain.OddsUpdate{
		Previous: decimal.NewFromFloat(2.0), New: decimal.NewFromFloat(2.5), UpdatedAt: time.Now(),
	})
	score := domain.VolatilityScore(h.Updates, 5*time.Minute)
	if !score.IsZero() {
		t.Errorf("VolatilityScore() with 1 update = %s, want 0", score)
	}
}

// TestVolatilityScore_AutoSuspension mirrors scenario 6 in §8: six updates
// alternating +40%/-30% within 30 seconds should classify as Extreme.
func TestVolatilityScore_AutoSuspension(t *testing.T) {
	start := time.Now()
	odds := decimal.NewFromFloat(2.0)
	var updates []domain.OddsUpdate
	for i := 0; i < 6; i++ {
		var next decimal.Decimal
		if i%2 == 0 {
			next = odds.Mul(decimal.NewFromFloat(1.4))
		} else {
			next = odds.Mul(decimal.NewFromFloat(0.7))
		}
		updates = append(updates, domain.OddsUpdate{
			Previous:  odds,
			New:       next,
			UpdatedAt: start.Add(time.Duration(i) * 5 * time.Second),
		})
		odds = next
	}

	score := domain.VolatilityScore(updates, 30*time.Second)
	level := domain.LevelForScore(score, domain.DefaultVolatilityThresholds())
	if level != domain.VolatilityExtreme {
		t.Errorf("LevelForScore(%s) = %s, want Extreme", score, level)
	}
}

func TestLevelForScore_Thresholds(t *testing.T) {
	th := domain.DefaultVolatilityThresholds()
	cases := []struct {
		score decimal.Decimal
		want  domain.VolatilityLevel
	}{
		{decimal.NewFromInt(5), domain.VolatilityLow},
		{decimal.NewFromInt(10), domain.VolatilityMedium},
		{decimal.NewFromInt(25), domain.VolatilityHigh},
		{decimal.NewFromInt(50), domain.VolatilityExtreme},
		{decimal.NewFromInt(100), domain.VolatilityExtreme},
	}
	for _, c := range cases {
		got := domain.LevelForScore(c.score, th)
		if got != c.want {
			t.Errorf("LevelForScore(%s) = %s, want %s", c.score, got, c.want)
		}
	}
}

// TestMarketLockSet_O2 verifies property O2: lock then unlock restores
// IsLocked to its prior (false) value.
func TestMarketLockSet_O2(t *testing.T) {
	set := domain.NewMarketLockSet()
	betID := uuid.New()
	selection := "home"

	if set.IsLocked(selection) {
		t.Fatalf("selection should start unlocked")
	}
	set.Lock(betID, selection, domain.OddsValue{Decimal: decimal.NewFromFloat(2.1), SelectionID: selection})
	if !set.IsLocked(selection) {
		t.Errorf("selection should be locked after Lock()")
	}
	set.Unlock(betID)
	if set.IsLocked(selection) {
		t.Errorf("selection should be unlocked after Unlock(), O2 violated")
	}
}

func TestMarketLockSet_MultipleBetsSameSelection(t *testing.T) {
	set := domain.NewMarketLockSet()
	selection := "home"
	betA, betB := uuid.New(), uuid.New()

	set.Lock(betA, selection, domain.OddsValue{Decimal: decimal.NewFromFloat(2.0)})
	set.Lock(betB, selection, domain.OddsValue{Decimal: decimal.NewFromFloat(2.2)})

	if !set.IsLocked(selection) {
		t.Fatalf("selection should be locked")
	}
	set.Unlock(betA)
	if !set.IsLocked(selection) {
		t.Errorf("selection should still be locked while betB holds a lock")
	}
	if _, ok := set.LockedOdds[betB]; !ok {
		t.Errorf("betB's locked odds should be retained independently of betA's unlock")
	}
}
