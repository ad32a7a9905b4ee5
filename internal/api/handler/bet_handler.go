package handler

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oddsforge/sportsbook/internal/actor"
	"github.com/oddsforge/sportsbook/internal/api/middleware"
	"github.com/oddsforge/sportsbook/internal/config"
	"github.com/oddsforge/sportsbook/internal/domain"
)

// BetHandler serves the bet lifecycle endpoints (§6: POST/GET /api/bets...).
type BetHandler struct {
	bets     actor.BetClient
	index    actor.BetIndexClient
	currency string
}

// NewBetHandler creates a BetHandler.
func NewBetHandler(bets actor.BetClient, index actor.BetIndexClient, cfg *config.Config) *BetHandler {
	return &BetHandler{bets: bets, index: index, currency: cfg.Currency}
}

// GetUserBets godoc
// GET /api/bets/users/:userId?limit=
func (h *BetHandler) GetUserBets(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid user id")
		return
	}
	bets, err := h.loadUserBets(c, userID)
	if err != nil {
		return
	}
	respondSuccess(c, http.StatusOK, bets)
}

// GetUserActiveBets godoc
// GET /api/bets/users/:userId/active
func (h *BetHandler) GetUserActiveBets(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid user id")
		return
	}
	bets, err := h.loadUserBets(c, userID)
	if err != nil {
		return
	}
	active := make([]domain.BetAggregate, 0, len(bets))
	for _, b := range bets {
		if !b.Status.IsTerminal() {
			active = append(active, b)
		}
	}
	respondSuccess(c, http.StatusOK, active)
}

// GetUserHistory godoc
// GET /api/bets/users/:userId/history — terminal bets, newest first.
func (h *BetHandler) GetUserHistory(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid user id")
		return
	}
	bets, err := h.loadUserBets(c, userID)
	if err != nil {
		return
	}
	history := make([]domain.BetAggregate, 0, len(bets))
	for _, b := range bets {
		if b.Status.IsTerminal() {
			history = append(history, b)
		}
	}
	sort.Slice(history, func(i, j int) bool {
		return history[i].PlacedAt.After(history[j].PlacedAt)
	})
	respondSuccess(c, http.StatusOK, history)
}

// loadUserBets resolves a user's bet ids via the bet index and fetches each
// bet's current aggregate. On error it writes the HTTP response itself so
// callers only need to check for a non-nil error and return.
func (h *BetHandler) loadUserBets(c *gin.Context, userID uuid.UUID) ([]domain.BetAggregate, error) {
	ids, err := h.index.GetUserBets(c.Request.Context(), userID)
	if err != nil {
		respondDomainError(c, err)
		return nil, err
	}
	out := make([]domain.BetAggregate, 0, len(ids))
	for _, id := range ids {
		bet, err := h.bets.GetBetDetails(c.Request.Context(), id)
		if err != nil {
			continue
		}
		out = append(out, bet)
	}
	return out, nil
}

// placeBetRequest is the POST /api/bets body.
type placeBetRequest struct {
	EventID        uuid.UUID `json:"event_id" binding:"required"`
	MarketID       uuid.UUID `json:"market_id" binding:"required"`
	SelectionID    string    `json:"selection_id" binding:"required"`
	Stake          string    `json:"stake" binding:"required"`
	AcceptableOdds string    `json:"acceptable_odds" binding:"required"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
}

// PlaceBet godoc
// POST /api/bets
func (h *BetHandler) PlaceBet(c *gin.Context) {
	var req placeBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	stakeAmt, err := decimal.NewFromString(req.Stake)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "invalid stake")
		return
	}
	stake, err := domain.NewMoney(stakeAmt, h.currency)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	acceptableOdds, err := decimal.NewFromString(req.AcceptableOdds)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "invalid acceptable_odds")
		return
	}

	userID := middleware.GetUserID(c)
	bet, replayed, err := h.bets.PlaceBet(c.Request.Context(), userID, req.EventID, req.MarketID, req.SelectionID, stake, acceptableOdds, req.IdempotencyKey)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	respondSuccess(c, status, bet)
}

// GetByID godoc
// GET /api/bets/:betId
func (h *BetHandler) GetByID(c *gin.Context) {
	betID, err := uuid.Parse(c.Param("betId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid bet id")
		return
	}
	bet, err := h.bets.GetBetDetails(c.Request.Context(), betID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, bet)
}

// GetHistory godoc
// GET /api/bets/:betId/history
func (h *BetHandler) GetHistory(c *gin.Context) {
	betID, err := uuid.Parse(c.Param("betId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid bet id")
		return
	}
	snapshots, err := h.bets.GetBetHistory(c.Request.Context(), betID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, snapshots)
}

// Void godoc
// POST /api/bets/:betId/void
func (h *BetHandler) Void(c *gin.Context) {
	betID, err := uuid.Parse(c.Param("betId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid bet id")
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)

	bet, err := h.bets.VoidBet(c.Request.Context(), betID, body.Reason)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, bet)
}

// CashOut godoc
// POST /api/bets/:betId/cashout
func (h *BetHandler) CashOut(c *gin.Context) {
	betID, err := uuid.Parse(c.Param("betId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid bet id")
		return
	}
	bet, err := h.bets.CashOut(c.Request.Context(), betID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, bet)
}
