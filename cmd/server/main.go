// Package main is the entry point for the sportsbook core API server. It
// wires together the wallet/odds/bet/event actors and starts the HTTP
// server alongside the WebSocket hub and background settlement scheduler.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/shopspring/decimal"

	"github.com/oddsforge/sportsbook/internal/actor"
	"github.com/oddsforge/sportsbook/internal/api"
	"github.com/oddsforge/sportsbook/internal/config"
	"github.com/oddsforge/sportsbook/internal/domain"
	"github.com/oddsforge/sportsbook/internal/eventbus"
	"github.com/oddsforge/sportsbook/internal/eventstore"
	"github.com/oddsforge/sportsbook/internal/scheduler"
	"github.com/oddsforge/sportsbook/internal/snapshot"
	"github.com/oddsforge/sportsbook/internal/ws"
)

func main() {
	// ── 1. Config + logger ────────────────────────────────────────────────────
	cfg := config.MustLoad()

	var logHandler slog.Handler
	if cfg.IsProd() {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("starting sportsbook core server", "env", cfg.Server.Env, "port", cfg.Server.Port)

	// ── 2. Database ───────────────────────────────────────────────────────────
	db, err := sqlx.Connect("postgres", cfg.DB.DSN)
	if err != nil {
		logger.Error("database connection failed", "err", err)
		os.Exit(1)
	}
	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	if err = db.Ping(); err != nil {
		logger.Error("database ping failed", "err", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	// ── 3. Migrations ─────────────────────────────────────────────────────────
	if err = runMigrations(db, "migrations"); err != nil {
		logger.Error("migrations failed", "err", err)
		os.Exit(1)
	}
	logger.Info("migrations applied")

	// ── 4. Persistence + event bus ────────────────────────────────────────────
	snaps := snapshot.NewPostgresStore(db)
	events := eventstore.NewPostgresEventStore(db)
	bus := eventbus.NewRedisPublisher(cfg.EventBus.RedisAddr, cfg.EventBus.RedisPassword, cfg.EventBus.RedisDB)

	// ── 5. Actors (order matters: wallet/odds/index have no actor deps; bet
	// depends on all three; sport event depends on odds for lock fan-out) ─────
	walletActor := actor.NewWalletActor(snaps, bus, cfg.Currency)

	thresholds := domain.VolatilityThresholds{
		Medium:  decimal.NewFromFloat(cfg.Odds.MediumThreshold),
		High:    decimal.NewFromFloat(cfg.Odds.HighThreshold),
		Extreme: decimal.NewFromFloat(cfg.Odds.ExtremeThreshold),
	}
	oddsActor := actor.NewOddsActor(snaps, bus, thresholds, cfg.Odds.VolatilityWindow, decimal.NewFromFloat(cfg.Odds.MinDecimalOdds))

	betIndexActor := actor.NewBetIndexActor(snaps, bus)

	betActor := actor.NewBetActor(events, bus, walletActor, oddsActor, betIndexActor,
		decimal.NewFromFloat(cfg.Cashout.DiscountRate), decimal.NewFromFloat(cfg.Cashout.FloorAmount))

	eventActor := actor.NewSportEventActor(snaps, bus, oddsActor)

	// ── 6. WebSocket hub ───────────────────────────────────────────────────────
	jwtSecret := []byte(cfg.JWT.AccessSecret)
	var allowedOrigins []string
	if ori := os.Getenv("WS_ALLOWED_ORIGINS"); ori != "" {
		for _, o := range strings.Split(ori, ",") {
			allowedOrigins = append(allowedOrigins, strings.TrimSpace(o))
		}
	}
	hub := ws.NewHub(jwtSecret, allowedOrigins)

	// ── 7. Root context + signal handling ─────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 8. Start WS hub ────────────────────────────────────────────────────────
	go hub.Run()
	logger.Info("websocket hub started")

	// ── 9. Background settlement scheduler ────────────────────────────────────
	sched := scheduler.NewScheduler(eventActor, betActor, 5*time.Second, logger)
	sched.Start(ctx)

	// ── 10. HTTP router ────────────────────────────────────────────────────────
	router := api.SetupRouter(api.RouterDeps{
		Wallet:   walletActor,
		Odds:     oddsActor,
		Bets:     betActor,
		BetIndex: betIndexActor,
		Events:   eventActor,
		Hub:      hub,
		Cfg:      cfg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ── 11. Start server ───────────────────────────────────────────────────────
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
			stop()
		}
	}()

	// ── 12. Graceful shutdown ──────────────────────────────────────────────────
	<-ctx.Done()
	logger.Info("shutdown signal received, draining connections…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "err", err)
	}

	db.Close()
	logger.Info("server stopped cleanly")
}

// runMigrations reads all *.sql files from dir, sorted by name, and executes
// them sequentially. Idempotent: SQL files should use IF NOT EXISTS / ON CONFLICT.
func runMigrations(db *sqlx.DB, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("runMigrations: read dir %q: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("runMigrations: read %q: %w", f, err)
		}
		if _, err = db.Exec(string(data)); err != nil {
			return fmt.Errorf("runMigrations: exec %q: %w", f, err)
		}
		slog.Info("migration applied", "file", filepath.Base(f))
	}
	return nil
}
