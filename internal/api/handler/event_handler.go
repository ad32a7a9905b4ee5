package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oddsforge/sportsbook/internal/actor"
	"github.com/oddsforge/sportsbook/internal/domain"
)

// EventHandler serves the sport event/market endpoints (§6: POST/PUT/GET
// /api/events, /api/events/{id}/{start|complete|cancel}, /api/events/{id}/markets).
type EventHandler struct {
	events actor.SportEventClient
	bets   actor.BetClient
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(events actor.SportEventClient, bets actor.BetClient) *EventHandler {
	return &EventHandler{events: events, bets: bets}
}

type createEventRequest struct {
	Name         string            `json:"name" binding:"required"`
	SportType    string            `json:"sport_type" binding:"required"`
	Competition  string            `json:"competition"`
	StartTime    time.Time         `json:"start_time" binding:"required"`
	Participants map[string]string `json:"participants"`
}

// Create godoc
// POST /api/events
func (h *EventHandler) Create(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	eventID := uuid.New()
	event, err := h.events.CreateEvent(c.Request.Context(), eventID, req.Name, req.SportType, req.Competition, req.StartTime, req.Participants)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, event)
}

// GetByID godoc
// GET /api/events/:eventId
func (h *EventHandler) GetByID(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}
	event, err := h.events.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, event)
}

type updateEventRequest struct {
	Name        string    `json:"name" binding:"required"`
	Competition string    `json:"competition"`
	StartTime   time.Time `json:"start_time" binding:"required"`
}

// Update godoc
// PUT /api/events/:eventId
func (h *EventHandler) Update(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}
	var req updateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	event, err := h.events.UpdateEvent(c.Request.Context(), eventID, req.Name, req.Competition, req.StartTime)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, event)
}

// Start godoc
// POST /api/events/:eventId/start
func (h *EventHandler) Start(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}
	event, err := h.events.StartEvent(c.Request.Context(), eventID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, event)
}

// Complete godoc
// POST /api/events/:eventId/complete
func (h *EventHandler) Complete(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}
	event, err := h.events.CompleteEvent(c.Request.Context(), eventID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, event)
}

// Cancel godoc
// POST /api/events/:eventId/cancel
func (h *EventHandler) Cancel(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)
	event, err := h.events.CancelEvent(c.Request.Context(), eventID, body.Reason)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, event)
}

type addMarketRequest struct {
	Name        string                     `json:"name" binding:"required"`
	Description string                     `json:"description"`
	Outcomes    map[string]decimal.Decimal `json:"outcomes" binding:"required"`
}

// AddMarket godoc
// POST /api/events/:eventId/markets
func (h *EventHandler) AddMarket(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}
	var req addMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	marketID := uuid.New()
	event, err := h.events.AddMarket(c.Request.Context(), eventID, marketID, req.Name, req.Description, req.Outcomes)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, event)
}

// UpdateMarketStatus godoc
// PUT /api/events/:eventId/markets/:marketId/status
func (h *EventHandler) UpdateMarketStatus(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}
	marketID, err := uuid.Parse(c.Param("marketId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid market id")
		return
	}
	var body struct {
		Status domain.MarketStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	event, err := h.events.UpdateMarketStatus(c.Request.Context(), eventID, marketID, body.Status)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, event)
}

// SetMarketResult godoc
// POST /api/events/:eventId/markets/:marketId/result — settles the market
// and drives the resulting (betId, outcome) pairs through the bet actor
// sequentially (§9 Open Question: sport-event actor computes, bet actor
// stays authoritative for its own terminal state).
func (h *EventHandler) SetMarketResult(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}
	marketID, err := uuid.Parse(c.Param("marketId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid market id")
		return
	}
	var body struct {
		WinningOutcome string `json:"winning_outcome" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	event, outcomes, err := h.events.SetMarketResult(c.Request.Context(), eventID, marketID, body.WinningOutcome)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	settled := 0
	for _, o := range outcomes {
		if _, err := h.bets.ApplySettlement(c.Request.Context(), o.BetID, o.Outcome); err == nil {
			settled++
		}
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"event":          event,
		"bets_settled":   settled,
		"bets_discovered": len(outcomes),
	})
}

func parseEventID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid event id")
		return uuid.Nil, false
	}
	return id, true
}
