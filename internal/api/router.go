// Package api wires the gin router for the sportsbook HTTP surface (§6).
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oddsforge/sportsbook/internal/actor"
	"github.com/oddsforge/sportsbook/internal/api/handler"
	"github.com/oddsforge/sportsbook/internal/api/middleware"
	"github.com/oddsforge/sportsbook/internal/config"
	"github.com/oddsforge/sportsbook/internal/ws"
)

// RouterDeps bundles every dependency needed to build the router. Populated
// once in main() and passed to SetupRouter.
type RouterDeps struct {
	Wallet    actor.WalletClient
	Odds      actor.OddsClient
	Bets      actor.BetClient
	BetIndex  actor.BetIndexClient
	Events    actor.SportEventClient
	Hub       *ws.Hub
	Cfg       *config.Config
}

// SetupRouter creates and configures the main Gin engine with all routes,
// middleware, CORS, and rate limiting rules.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.Use(corsMiddleware(deps.Cfg))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	betH := handler.NewBetHandler(deps.Bets, deps.BetIndex, deps.Cfg)
	walletH := handler.NewWalletHandler(deps.Wallet, deps.Cfg)
	oddsH := handler.NewOddsHandler(deps.Odds)
	eventH := handler.NewEventHandler(deps.Events, deps.Bets)
	reportH := handler.NewReportHandler(deps.Wallet, deps.Cfg.Currency)

	jwtMW := middleware.JWTMiddleware(deps.Cfg.JWT.AccessSecret)

	betRL := middleware.RateLimitMiddleware(deps.Cfg.RateLimit.BetRPS)
	defaultRL := middleware.RateLimitMiddleware(deps.Cfg.RateLimit.DefaultRPS)

	apiGroup := r.Group("/api")
	apiGroup.Use(defaultRL)
	{
		// Odds are public read surfaces.
		odds := apiGroup.Group("/odds")
		{
			odds.GET("/:marketId", oddsH.GetCurrent)
			odds.GET("/:marketId/history", oddsH.GetHistory)
			odds.GET("/:marketId/volatility", oddsH.GetVolatility)
			odds.POST("/:marketId/suspend", oddsH.Suspend)
			odds.POST("/:marketId/resume", oddsH.Resume)
			odds.POST("/:marketId/lock", oddsH.Lock)
			odds.POST("/:marketId/unlock", oddsH.Unlock)
		}

		// Events/markets are public read and operator-driven write surfaces.
		events := apiGroup.Group("/events")
		{
			events.POST("", eventH.Create)
			events.GET("/:eventId", eventH.GetByID)
			events.PUT("/:eventId", eventH.Update)
			events.POST("/:eventId/start", eventH.Start)
			events.POST("/:eventId/complete", eventH.Complete)
			events.POST("/:eventId/cancel", eventH.Cancel)
			events.POST("/:eventId/markets", eventH.AddMarket)
			events.PUT("/:eventId/markets/:marketId/status", eventH.UpdateMarketStatus)
			events.POST("/:eventId/markets/:marketId/result", eventH.SetMarketResult)
		}

		// Authenticated caller routes (§1 Non-goals: identity is
		// pre-validated by jwtMW, the CORE never inspects the token itself).
		authed := apiGroup.Group("")
		authed.Use(jwtMW)
		{
			bets := authed.Group("/bets")
			bets.Use(betRL)
			{
				bets.POST("", betH.PlaceBet)
				bets.GET("/:betId", betH.GetByID)
				bets.GET("/:betId/history", betH.GetHistory)
				bets.POST("/:betId/void", betH.Void)
				bets.POST("/:betId/cashout", betH.CashOut)
				bets.GET("/users/:userId", betH.GetUserBets)
				bets.GET("/users/:userId/active", betH.GetUserActiveBets)
				bets.GET("/users/:userId/history", betH.GetUserHistory)
			}

			wallet := authed.Group("/wallet")
			{
				wallet.POST("/:userId/deposit", walletH.Deposit)
				wallet.POST("/:userId/withdraw", walletH.Withdraw)
				wallet.GET("/:userId/balance", walletH.GetBalance)
				wallet.GET("/:userId/transactions", walletH.GetTransactions)
				wallet.GET("/:userId/ledger", walletH.GetLedger)
			}

			admin := authed.Group("/admin")
			{
				admin.GET("/finance/report", reportH.Finance)
			}
		}
	}

	if deps.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			deps.Hub.ServeWs(c.Writer, c.Request)
		})
	}

	return r
}

// corsMiddleware returns a gin middleware that sets appropriate CORS
// headers. In development all origins are allowed; in production only
// configured origins.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if !cfg.IsProd() {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
