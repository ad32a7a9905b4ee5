package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oddsforge/sportsbook/internal/actor"
)

// OddsHandler serves the per-market odds endpoints (§6: GET/PUT/POST
// /api/odds/{marketId}[/history|/suspend|/resume|/lock|/unlock|/volatility]).
type OddsHandler struct {
	odds actor.OddsClient
}

// NewOddsHandler creates an OddsHandler.
func NewOddsHandler(odds actor.OddsClient) *OddsHandler {
	return &OddsHandler{odds: odds}
}

// GetCurrent godoc
// GET /api/odds/:marketId
func (h *OddsHandler) GetCurrent(c *gin.Context) {
	marketID, ok := parseMarketID(c)
	if !ok {
		return
	}
	snapshot, err := h.odds.GetCurrentOdds(c.Request.Context(), marketID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, snapshot)
}

// GetHistory godoc
// GET /api/odds/:marketId/history?selection=
func (h *OddsHandler) GetHistory(c *gin.Context) {
	marketID, ok := parseMarketID(c)
	if !ok {
		return
	}
	if sel := c.Query("selection"); sel != "" {
		hist, err := h.odds.GetOddsHistory(c.Request.Context(), marketID, sel)
		if err != nil {
			respondDomainError(c, err)
			return
		}
		respondSuccess(c, http.StatusOK, hist)
		return
	}
	all, err := h.odds.GetAllOddsHistory(c.Request.Context(), marketID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, all)
}

// GetVolatility godoc
// GET /api/odds/:marketId/volatility?window=5m
func (h *OddsHandler) GetVolatility(c *gin.Context) {
	marketID, ok := parseMarketID(c)
	if !ok {
		return
	}
	level, err := h.odds.GetCurrentVolatility(c.Request.Context(), marketID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	window := 5 * time.Minute
	if w, err := time.ParseDuration(c.Query("window")); err == nil {
		window = w
	}
	score, err := h.odds.GetVolatilityScore(c.Request.Context(), marketID, window)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"level": level,
		"score": score,
	})
}

// Suspend godoc
// POST /api/odds/:marketId/suspend
func (h *OddsHandler) Suspend(c *gin.Context) {
	marketID, ok := parseMarketID(c)
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason"`
		Actor  string `json:"actor"`
	}
	_ = c.ShouldBindJSON(&body)
	snapshot, err := h.odds.SuspendOdds(c.Request.Context(), marketID, body.Reason, body.Actor)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, snapshot)
}

// Resume godoc
// POST /api/odds/:marketId/resume
func (h *OddsHandler) Resume(c *gin.Context) {
	marketID, ok := parseMarketID(c)
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason"`
		Actor  string `json:"actor"`
	}
	_ = c.ShouldBindJSON(&body)
	snapshot, err := h.odds.ResumeOdds(c.Request.Context(), marketID, body.Reason, body.Actor)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, snapshot)
}

// Lock godoc
// POST /api/odds/:marketId/lock — locks current odds for a selection against
// a bet id. Exposed mainly for operational/testing use; PlaceBet already
// performs this step internally as part of its saga.
func (h *OddsHandler) Lock(c *gin.Context) {
	marketID, ok := parseMarketID(c)
	if !ok {
		return
	}
	var body struct {
		BetID       uuid.UUID `json:"bet_id" binding:"required"`
		SelectionID string    `json:"selection_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	snapshot, locked, err := h.odds.LockOddsForBet(c.Request.Context(), marketID, body.BetID, body.SelectionID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"snapshot": snapshot, "locked": locked})
}

// Unlock godoc
// POST /api/odds/:marketId/unlock
func (h *OddsHandler) Unlock(c *gin.Context) {
	marketID, ok := parseMarketID(c)
	if !ok {
		return
	}
	var body struct {
		BetID uuid.UUID `json:"bet_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	snapshot, err := h.odds.UnlockOddsAsync(c.Request.Context(), marketID, body.BetID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, snapshot)
}

func parseMarketID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("marketId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid market id")
		return uuid.Nil, false
	}
	return id, true
}
