package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oddsforge/sportsbook/internal/actor"
	"github.com/oddsforge/sportsbook/internal/config"
	"github.com/oddsforge/sportsbook/internal/domain"
)

// WalletHandler serves the per-user wallet endpoints (§6: POST/GET
// /api/wallet/{userId}/...).
type WalletHandler struct {
	wallet   actor.WalletClient
	currency string
}

// NewWalletHandler creates a WalletHandler.
func NewWalletHandler(wallet actor.WalletClient, cfg *config.Config) *WalletHandler {
	return &WalletHandler{wallet: wallet, currency: cfg.Currency}
}

type walletTxRequest struct {
	Amount        string `json:"amount" binding:"required"`
	Currency      string `json:"currency"`
	TransactionID string `json:"transaction_id" binding:"required"`
}

// Deposit godoc
// POST /api/wallet/:userId/deposit
func (h *WalletHandler) Deposit(c *gin.Context) {
	userID, amount, referenceID, ok := h.bindTxRequest(c)
	if !ok {
		return
	}
	result, err := h.wallet.Deposit(c.Request.Context(), userID, amount, referenceID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, result)
}

// Withdraw godoc
// POST /api/wallet/:userId/withdraw
func (h *WalletHandler) Withdraw(c *gin.Context) {
	userID, amount, referenceID, ok := h.bindTxRequest(c)
	if !ok {
		return
	}
	result, err := h.wallet.Withdraw(c.Request.Context(), userID, amount, referenceID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, result)
}

// bindTxRequest parses the :userId path param and a walletTxRequest body
// shared by Deposit/Withdraw. Writes the HTTP error itself on failure.
func (h *WalletHandler) bindTxRequest(c *gin.Context) (uuid.UUID, domain.Money, string, bool) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid user id")
		return uuid.Nil, domain.Money{}, "", false
	}
	var req walletTxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return uuid.Nil, domain.Money{}, "", false
	}
	amt, err := decimalFromRequest(req.Amount)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "invalid amount")
		return uuid.Nil, domain.Money{}, "", false
	}
	currency := req.Currency
	if currency == "" {
		currency = h.currency
	}
	amount, err := domain.NewMoney(amt, currency)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return uuid.Nil, domain.Money{}, "", false
	}
	return userID, amount, req.TransactionID, true
}

// GetBalance godoc
// GET /api/wallet/:userId/balance
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid user id")
		return
	}
	total, err := h.wallet.GetBalance(c.Request.Context(), userID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	available, err := h.wallet.GetAvailableBalance(c.Request.Context(), userID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"total":     total,
		"available": available,
	})
}

// GetTransactions godoc
// GET /api/wallet/:userId/transactions?limit=
func (h *WalletHandler) GetTransactions(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid user id")
		return
	}
	limit := parseLimit(c, 50, 500)
	txs, err := h.wallet.GetTransactionHistory(c.Request.Context(), userID, limit)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, txs)
}

// GetLedger godoc
// GET /api/wallet/:userId/ledger?limit=
func (h *WalletHandler) GetLedger(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid user id")
		return
	}
	limit := parseLimit(c, 50, 500)
	entries, err := h.wallet.GetLedgerEntries(c.Request.Context(), userID, limit)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, entries)
}

func decimalFromRequest(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(raw)
}
