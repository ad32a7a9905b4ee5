// Package scheduler runs the background settlement-dispatch poller (§D
// Background scheduler): a sport event, whatever its status, may have
// Settled markets whose SettlementOutcome fan-out was only partially driven
// through the bet actor (e.g. the process restarted mid-dispatch); the
// poller re-derives and re-drives the outstanding outcomes on an interval.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/oddsforge/sportsbook/internal/actor"
)

// Scheduler periodically re-drives settlement fan-out for every known sport
// event. Call Start(ctx) once from main(); cancel the context to shut it
// down gracefully.
type Scheduler struct {
	events   actor.SportEventClient
	bets     actor.BetClient
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(events actor.SportEventClient, bets actor.BetClient, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{events: events, bets: bets, interval: interval, logger: logger}
}

// Start launches the settlement-dispatch loop. It returns immediately; the
// loop runs until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.dispatchLoop(ctx)
	s.logger.Info("scheduler started", "interval", s.interval)
}

// dispatchLoop re-derives pending settlements for every known event id on
// each tick and drives them through the bet actor one bet at a time.
func (s *Scheduler) dispatchLoop(ctx context.Context) {
	defer s.recoverAndLog("dispatchLoop")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("dispatchLoop: shutting down")
			return
		case <-ticker.C:
			s.dispatchOnce(ctx)
		}
	}
}

// dispatchOnce performs a single pass over every known event.
func (s *Scheduler) dispatchOnce(ctx context.Context) {
	for _, eventID := range s.events.ListEventIDs() {
		outcomes, err := s.events.PendingSettlements(ctx, eventID)
		if err != nil {
			s.logger.Warn("dispatchOnce: PendingSettlements failed", "event_id", eventID, "err", err)
			continue
		}
		for _, o := range outcomes {
			if _, err := s.bets.ApplySettlement(ctx, o.BetID, o.Outcome); err != nil {
				s.logger.Warn("dispatchOnce: ApplySettlement failed", "bet_id", o.BetID, "outcome", o.Outcome, "err", err)
			}
		}
	}
}

// recoverAndLog is deferred inside the loop goroutine to catch unexpected
// panics and log them instead of crashing the process. The loop that
// panicked has already exited and is not restarted.
func (s *Scheduler) recoverAndLog(loop string) {
	if r := recover(); r != nil {
		s.logger.Error("PANIC recovered in scheduler loop", "loop", loop, "panic", r)
	}
}
