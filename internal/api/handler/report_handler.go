package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/oddsforge/sportsbook/internal/actor"
	"github.com/oddsforge/sportsbook/internal/domain"
)

// FinanceReport aggregates wallet ledger activity over a date range. It is a
// read-only backoffice view over the ledger and never feeds back into any
// CORE invariant.
type FinanceReport struct {
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
	TotalDeposits string    `json:"total_deposits"`
	TotalWithdraw string    `json:"total_withdrawals"`
	TotalStaked   string    `json:"total_staked"`
	TotalPaidOut  string    `json:"total_paid_out"`
	NetRevenue    string    `json:"net_revenue"`
	WalletCount   int       `json:"wallet_count"`
	Currency      string    `json:"currency"`
}

// ReportHandler serves /api/admin/finance read-only reporting endpoints.
type ReportHandler struct {
	wallet   actor.WalletClient
	currency string
}

// NewReportHandler creates a ReportHandler.
func NewReportHandler(wallet actor.WalletClient, currency string) *ReportHandler {
	return &ReportHandler{wallet: wallet, currency: currency}
}

// Finance godoc
// GET /api/admin/finance/report?from=2026-01-01&to=2026-01-31
//
// Walks every wallet's ledger (there is no separate financial ledger table —
// the per-user wallet actors are the ledger, per §3) and sums transactions
// falling within [from, to) by type, mirroring the teacher's
// MarketRepository.GetFinanceReport SQL aggregation one mailbox at a time
// instead of one SQL scan.
func (h *ReportHandler) Finance(c *gin.Context) {
	from, to, ok := parseReportRange(c)
	if !ok {
		return
	}

	report, err := h.aggregate(c.Request.Context(), from, to)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, report)
}

func (h *ReportHandler) aggregate(ctx context.Context, from, to time.Time) (FinanceReport, error) {
	deposits := decimal.Zero
	withdrawals := decimal.Zero
	staked := decimal.Zero
	paidOut := decimal.Zero
	walletCount := 0

	for _, userID := range h.wallet.ListUserIDs() {
		txs, err := h.wallet.GetTransactionHistory(ctx, userID, 0)
		if err != nil {
			return FinanceReport{}, err
		}
		touched := false
		for _, tx := range txs {
			if tx.Status != domain.TxCompleted {
				continue
			}
			if tx.Timestamp.Before(from) || !tx.Timestamp.Before(to) {
				continue
			}
			touched = true
			switch {
			case tx.Type == domain.TxDeposit && isPayoutReference(tx.ReferenceID):
				// Settlement wins and cashouts are credited via Deposit (the
				// bet actor has no wallet-side notion of "this deposit is a
				// payout"), distinguished only by the settlement:/cashout:
				// referenceId prefix the bet actor stamps on them.
				paidOut = paidOut.Add(tx.Amount.Amount)
			case tx.Type == domain.TxDeposit:
				deposits = deposits.Add(tx.Amount.Amount)
			case tx.Type == domain.TxWithdrawal:
				withdrawals = withdrawals.Add(tx.Amount.Amount)
			case tx.Type == domain.TxReservationCommit:
				staked = staked.Add(tx.Amount.Amount)
			case tx.Type == domain.TxBetWin, tx.Type == domain.TxBetRefund:
				paidOut = paidOut.Add(tx.Amount.Amount)
			}
		}
		if touched {
			walletCount++
		}
	}

	return FinanceReport{
		From:          from,
		To:            to,
		TotalDeposits: deposits.StringFixed(2),
		TotalWithdraw: withdrawals.StringFixed(2),
		TotalStaked:   staked.StringFixed(2),
		TotalPaidOut:  paidOut.StringFixed(2),
		NetRevenue:    staked.Sub(paidOut).StringFixed(2),
		WalletCount:   walletCount,
		Currency:      h.currency,
	}, nil
}

// isPayoutReference reports whether referenceID marks a deposit as a bet
// payout (settlement win or cashout) rather than an external deposit — the
// bet actor stamps these prefixes on the Deposit calls it makes (internal/
// actor/bet.go), since WalletActor.Deposit has no TxBetWin/TxBetRefund type
// of its own.
func isPayoutReference(referenceID string) bool {
	return strings.HasPrefix(referenceID, "settlement:") || strings.HasPrefix(referenceID, "cashout:")
}

// parseReportRange parses ?from=&to= as YYYY-MM-DD, defaulting to the
// trailing calendar month, same calendar convention as the teacher's finance
// handler ("to" is treated inclusive of the named day).
func parseReportRange(c *gin.Context) (from, to time.Time, ok bool) {
	fromStr := c.Query("from")
	toStr := c.Query("to")

	var err error
	if fromStr != "" {
		from, err = time.Parse("2006-01-02", fromStr)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_DATE", "from must be YYYY-MM-DD")
			return time.Time{}, time.Time{}, false
		}
	} else {
		from = time.Now().UTC().AddDate(0, -1, 0).Truncate(24 * time.Hour)
	}
	if toStr != "" {
		to, err = time.Parse("2006-01-02", toStr)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_INVALID_DATE", "to must be YYYY-MM-DD")
			return time.Time{}, time.Time{}, false
		}
		to = to.Add(24 * time.Hour)
	} else {
		to = time.Now().UTC()
	}
	return from, to, true
}
