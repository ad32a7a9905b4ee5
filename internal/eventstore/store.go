// Package eventstore implements the abstract event store described in §9:
// Append(streamKey, [events]) and Read(streamKey) -> []event. The bet actor
// is the only CORE component with event-sourced persistence (§4.4); streams
// are keyed "bet:<betId>" (§6 Persistence layout) and are append-only —
// nothing in this package ever deletes or rewrites a prior event.
package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/oddsforge/sportsbook/internal/domain"
)

// EventStore is the abstract persistence boundary for the bet aggregate's
// event stream. Implementers may back it with an append-only log, a
// relational table, or an object store (§9).
type EventStore interface {
	// Append writes events to streamKey in order, in a single atomic write.
	Append(ctx context.Context, streamKey string, events []domain.BetEvent) error
	// Read returns every event on streamKey in append order. An unknown
	// stream returns an empty, non-nil slice and no error.
	Read(ctx context.Context, streamKey string) ([]domain.BetEvent, error)
}

// StreamKey builds the "bet:<betId>" stream key used by the bet actor.
func StreamKey(betID uuid.UUID) string {
	return "bet:" + betID.String()
}

// ──────────────────────────────────────────────────────────────────────────────
// Payload encode/decode — BetEvent.Payload is interface{}, so a generic JSON
// round-trip would decode it into map[string]interface{} and break the type
// assertions in domain.applyBetEvent. Every event type is decoded into its
// concrete payload struct based on the stored Type tag.
// ──────────────────────────────────────────────────────────────────────────────

func decodePayload(eventType domain.EventType, raw []byte) (interface{}, error) {
	switch eventType {
	case domain.EventBetPlaced:
		var p domain.BetPlacedPayload
		return p, json.Unmarshal(raw, &p)
	case domain.EventBetAccepted:
		var p domain.BetAcceptedPayload
		return p, json.Unmarshal(raw, &p)
	case domain.EventBetRejected:
		var p domain.BetRejectedPayload
		return p, json.Unmarshal(raw, &p)
	case domain.EventBetSettled:
		var p domain.BetSettledPayload
		return p, json.Unmarshal(raw, &p)
	case domain.EventBetVoided:
		var p domain.BetVoidedPayload
		return p, json.Unmarshal(raw, &p)
	case domain.EventBetCashedOut:
		var p domain.BetCashedOutPayload
		return p, json.Unmarshal(raw, &p)
	default:
		return nil, fmt.Errorf("eventstore: unknown event type %q", eventType)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Postgres-backed store
// ──────────────────────────────────────────────────────────────────────────────

type eventRow struct {
	StreamKey   string `db:"stream_key"`
	Seq         int    `db:"seq"`
	EventID     string `db:"event_id"`
	Type        string `db:"type"`
	AggregateID string `db:"aggregate_id"`
	Timestamp   string `db:"timestamp"`
	Payload     []byte `db:"payload"`
}

// PostgresEventStore persists events in a single append-only table:
//
//	CREATE TABLE bet_events (
//	  stream_key   TEXT NOT NULL,
//	  seq          INT NOT NULL,
//	  event_id     UUID NOT NULL,
//	  type         TEXT NOT NULL,
//	  aggregate_id UUID NOT NULL,
//	  timestamp    TIMESTAMPTZ NOT NULL,
//	  payload      JSONB NOT NULL,
//	  PRIMARY KEY (stream_key, seq)
//	);
//
// Grounded on the teacher's repository NamedExecContext/SelectContext idiom
// (internal/repository/bet_repo.go), generalized to an append-only stream
// table instead of a mutable bets table.
type PostgresEventStore struct {
	db *sqlx.DB
}

// NewPostgresEventStore wraps db.
func NewPostgresEventStore(db *sqlx.DB) *PostgresEventStore {
	return &PostgresEventStore{db: db}
}

// Append writes events to streamKey inside one transaction, assigning each a
// sequence number one past the current stream length.
func (s *PostgresEventStore) Append(ctx context.Context, streamKey string, events []domain.BetEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("eventstore.Append: begin: %w", err)
	}
	defer tx.Rollback()

	var nextSeq int
	if err := tx.GetContext(ctx, &nextSeq, `SELECT COALESCE(MAX(seq), 0) + 1 FROM bet_events WHERE stream_key = $1`, streamKey); err != nil {
		return fmt.Errorf("eventstore.Append: next seq: %w", err)
	}

	const insert = `
		INSERT INTO bet_events (stream_key, seq, event_id, type, aggregate_id, timestamp, payload)
		VALUES (:stream_key, :seq, :event_id, :type, :aggregate_id, :timestamp, :payload)`

	for i, e := range events {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("eventstore.Append: marshal payload: %w", err)
		}
		r := eventRow{
			StreamKey:   streamKey,
			Seq:         nextSeq + i,
			EventID:     e.EventID.String(),
			Type:        string(e.Type),
			AggregateID: e.AggregateID.String(),
			Timestamp:   e.Timestamp.Format(time.RFC3339Nano),
			Payload:     payload,
		}
		if _, err := tx.NamedExecContext(ctx, insert, r); err != nil {
			return fmt.Errorf("eventstore.Append: insert seq %d: %w", r.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("eventstore.Append: commit: %w", err)
	}
	return nil
}

// Read returns all events on streamKey in sequence order.
func (s *PostgresEventStore) Read(ctx context.Context, streamKey string) ([]domain.BetEvent, error) {
	var rows []eventRow
	err := s.db.SelectContext(ctx, &rows, `SELECT stream_key, seq, event_id, type, aggregate_id, timestamp, payload FROM bet_events WHERE stream_key = $1 ORDER BY seq ASC`, streamKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("eventstore.Read(%s): %w", streamKey, err)
	}
	return decodeRows(rows)
}

func decodeRows(rows []eventRow) ([]domain.BetEvent, error) {
	out := make([]domain.BetEvent, 0, len(rows))
	for _, r := range rows {
		eventID, err := uuid.Parse(r.EventID)
		if err != nil {
			return nil, fmt.Errorf("eventstore: bad event_id %q: %w", r.EventID, err)
		}
		aggID, err := uuid.Parse(r.AggregateID)
		if err != nil {
			return nil, fmt.Errorf("eventstore: bad aggregate_id %q: %w", r.AggregateID, err)
		}
		ts, err := parseTimestamp(r.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("eventstore: bad timestamp %q: %w", r.Timestamp, err)
		}
		payload, err := decodePayload(domain.EventType(r.Type), r.Payload)
		if err != nil {
			return nil, fmt.Errorf("eventstore: decode payload seq %d: %w", r.Seq, err)
		}
		out = append(out, domain.BetEvent{
			EventID:     eventID,
			Type:        domain.EventType(r.Type),
			Timestamp:   ts,
			AggregateID: aggID,
			Payload:     payload,
		})
	}
	return out, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// In-memory store — tests and local development without Postgres
// ──────────────────────────────────────────────────────────────────────────────

// InMemoryEventStore keeps streams in a process-local map, round-tripping
// payloads through JSON so tests exercise the same decode path as
// PostgresEventStore (catching payload-shape bugs that a direct in-memory
// append would miss).
type InMemoryEventStore struct {
	mu      sync.Mutex
	streams map[string][]storedEvent
}

type storedEvent struct {
	EventID     uuid.UUID
	Type        domain.EventType
	AggregateID uuid.UUID
	Timestamp   string
	Payload     []byte
}

// NewInMemoryEventStore returns an empty store.
func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{streams: make(map[string][]storedEvent)}
}

// Append appends events to streamKey.
func (s *InMemoryEventStore) Append(_ context.Context, streamKey string, events []domain.BetEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("eventstore.InMemoryEventStore.Append: marshal: %w", err)
		}
		s.streams[streamKey] = append(s.streams[streamKey], storedEvent{
			EventID:     e.EventID,
			Type:        e.Type,
			AggregateID: e.AggregateID,
			Timestamp:   e.Timestamp.Format(time.RFC3339Nano),
			Payload:     payload,
		})
	}
	return nil
}

// Read returns all events on streamKey in append order.
func (s *InMemoryEventStore) Read(_ context.Context, streamKey string) ([]domain.BetEvent, error) {
	s.mu.Lock()
	stored := append([]storedEvent(nil), s.streams[streamKey]...)
	s.mu.Unlock()

	rows := make([]eventRow, len(stored))
	for i, se := range stored {
		rows[i] = eventRow{
			EventID:     se.EventID.String(),
			Type:        string(se.Type),
			AggregateID: se.AggregateID.String(),
			Timestamp:   se.Timestamp,
			Payload:     se.Payload,
		}
	}
	return decodeRows(rows)
}

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
