package handler

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

func usdReport(amount string) domain.Money {
	d, _ := decimal.NewFromString(amount)
	m, _ := domain.NewMoney(d, "USD")
	return m
}

// TestFinanceReport_PaidOutReflectsSettlementAndCashoutDeposits verifies
// that TotalPaidOut (and therefore NetRevenue) actually moves when a bet
// settles or cashes out — both land in the wallet via Deposit, distinguished
// only by their settlement:/cashout: referenceId prefix (internal/actor/
// bet.go), since WalletActor.Deposit always stamps TxDeposit.
func TestFinanceReport_PaidOutReflectsSettlementAndCashoutDeposits(t *testing.T) {
	snaps := snapshot.NewInMemoryStore()
	bus := eventbus.NoopPublisher{}
	wallet := actor.NewWalletActor(snaps, bus, "USD")
	ctx := context.Background()

	userA, userB := uuid.New(), uuid.New()
	betA, betB := uuid.New(), uuid.New()

	if _, err := wallet.Deposit(ctx, userA, usdReport("100.00"), "ext-deposit-1"); err != nil {
		t.Fatalf("seed deposit: %v", err)
	}
	if _, err := wallet.Reserve(ctx, userA, usdReport("10.00"), betA); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := wallet.CommitReservation(ctx, userA, betA); err != nil {
		t.Fatalf("commit reservation: %v", err)
	}
	if _, err := wallet.Deposit(ctx, userA, usdReport("20.00"), "settlement:"+betA.String()); err != nil {
		t.Fatalf("settlement deposit: %v", err)
	}

	if _, err := wallet.Deposit(ctx, userB, usdReport("50.00"), "ext-deposit-2"); err != nil {
		t.Fatalf("seed deposit: %v", err)
	}
	if _, err := wallet.Reserve(ctx, userB, usdReport("5.00"), betB); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := wallet.CommitReservation(ctx, userB, betB); err != nil {
		t.Fatalf("commit reservation: %v", err)
	}
	if _, err := wallet.Deposit(ctx, userB, usdReport("4.50"), "cashout:"+betB.String()); err != nil {
		t.Fatalf("cashout deposit: %v", err)
	}

	h := NewReportHandler(wallet, "USD")
	from := time.Now().Add(-time.Hour)
	to := time.Now().Add(time.Hour)

	report, err := h.aggregate(ctx, from, to)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	if report.TotalDeposits != "150.00" {
		t.Errorf("TotalDeposits = %s, want 150.00 (payout deposits must not be double-counted as external deposits)", report.TotalDeposits)
	}
	if report.TotalStaked != "15.00" {
		t.Errorf("TotalStaked = %s, want 15.00", report.TotalStaked)
	}
	if report.TotalPaidOut != "24.50" {
		t.Errorf("TotalPaidOut = %s, want 24.50 (settlement + cashout deposits)", report.TotalPaidOut)
	}
	if report.NetRevenue != "-9.50" {
		t.Errorf("NetRevenue = %s, want -9.50 (staked 15.00 - paidOut 24.50)", report.NetRevenue)
	}
}
