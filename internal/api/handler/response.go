// Package handler implements the gin HTTP handlers for the sportsbook HTTP
// surface (§6): bets, wallet, odds, and sport events/markets.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oddsforge/sportsbook/internal/domain"
)

// ──────────────────────────────────────────────────────────────────────────────
// Standard response helpers
// ──────────────────────────────────────────────────────────────────────────────

// respondSuccess writes {"success": true, "data": data} with the given status.
func respondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError writes {"success": false, "error": msg, "code": code}.
func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
		"code":    code,
	})
}

// respondList writes {"success": true, "data": items, "meta": {...}}.
func respondList(c *gin.Context, items interface{}, total, page, limit int) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"meta": gin.H{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// respondDomainError maps a domain sentinel error to an HTTP status and a
// stable error code (§7: "the HTTP mapper translates domain codes to HTTP
// status per §6"). Falls back to 500 ERR_INTERNAL for anything unrecognized.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, errCode(err), err.Error())
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, errCode(err), err.Error())
	case domain.IsBadRequest(err):
		respondError(c, http.StatusBadRequest, errCode(err), err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "internal error")
	}
}

// errCode maps each known sentinel error, by identity, to a stable
// SCREAMING_SNAKE code so clients get a machine-readable discriminator, not just prose.
func errCode(err error) string {
	switch err {
	case domain.ErrBetNotFound:
		return "ERR_BET_NOT_FOUND"
	case domain.ErrMarketSuspended:
		return "ERR_MARKET_SUSPENDED"
	case domain.ErrOddsChanged:
		return "ERR_ODDS_CHANGED"
	case domain.ErrInsufficientBalance:
		return "ERR_INSUFFICIENT_BALANCE"
	case domain.ErrInsufficientAvailableBalance:
		return "ERR_INSUFFICIENT_AVAILABLE_BALANCE"
	case domain.ErrCannotVoidInStatus:
		return "ERR_CANNOT_VOID"
	case domain.ErrCannotCashOutInStatus:
		return "ERR_CANNOT_CASHOUT"
	case domain.ErrAlreadyExists:
		return "ERR_ALREADY_EXISTS"
	case domain.ErrAlreadyProcessed:
		return "ERR_ALREADY_PROCESSED"
	case domain.ErrInvalidTransition:
		return "ERR_INVALID_TRANSITION"
	case domain.ErrInvalidOdds:
		return "ERR_INVALID_ODDS"
	case domain.ErrUnknownSelection:
		return "ERR_UNKNOWN_SELECTION"
	case domain.ErrNonPositiveAmount, domain.ErrNegativeAmount:
		return "ERR_INVALID_AMOUNT"
	case domain.ErrCurrencyMismatch:
		return "ERR_CURRENCY_MISMATCH"
	default:
		return "ERR_BAD_REQUEST"
	}
}

// ── pagination ──────────────────────────────────────────────────────────────

func parseLimit(c *gin.Context, def, max int) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 1 || limit > max {
		limit = def
	}
	return limit
}

func parsePagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return
}
