// Package snapshot persists the latest serialized state of a per-key actor
// (wallet, odds, sport-event, bet-index) under "{entity}:{id}" (§6
// Persistence layout). Snapshots are overwritten after each successful
// operation; unlike the event store, there is no history here — the actor's
// canonical state IS the snapshot.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
)

// Store persists and loads opaque actor state under an (entity, id) key.
// Implementers may back it by a relational table, an object store, or — as
// InMemoryStore does — nothing durable at all. Grounded on the repository
// NamedExecContext/GetContext idiom seen throughout the teacher's
// internal/repository package, generalized from typed per-entity tables to
// one (entity_type, entity_id, payload) table per §9's "abstract EventStore"
// design note applied symmetrically to snapshots.
type Store interface {
	// Save serializes state as JSON and upserts it under (entity, id).
	Save(ctx context.Context, entity, id string, state interface{}) error
	// Load deserializes the snapshot for (entity, id) into dest. ok is false
	// if no snapshot exists yet; dest is left untouched in that case.
	Load(ctx context.Context, entity, id string, dest interface{}) (ok bool, err error)
}

// ──────────────────────────────────────────────────────────────────────────────
// Postgres-backed store
// ──────────────────────────────────────────────────────────────────────────────

// row mirrors the snapshots table.
type row struct {
	EntityType string `db:"entity_type"`
	EntityID   string `db:"entity_id"`
	Payload    []byte `db:"payload"`
	Version    int    `db:"version"`
}

// PostgresStore persists snapshots in a single generic table:
//
//	CREATE TABLE snapshots (
//	  entity_type TEXT NOT NULL,
//	  entity_id   TEXT NOT NULL,
//	  payload     JSONB NOT NULL,
//	  version     INT NOT NULL DEFAULT 1,
//	  updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
//	  PRIMARY KEY (entity_type, entity_id)
//	);
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps db.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Save upserts the JSON-encoded state, incrementing version on conflict.
func (s *PostgresStore) Save(ctx context.Context, entity, id string, state interface{}) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("snapshot.Save: marshal: %w", err)
	}
	const query = `
		INSERT INTO snapshots (entity_type, entity_id, payload, version, updated_at)
		VALUES ($1, $2, $3, 1, now())
		ON CONFLICT (entity_type, entity_id)
		DO UPDATE SET payload = $3, version = snapshots.version + 1, updated_at = now()`
	if _, err := s.db.ExecContext(ctx, query, entity, id, payload); err != nil {
		return fmt.Errorf("snapshot.Save(%s:%s): %w", entity, id, err)
	}
	return nil
}

// Load fetches and decodes the snapshot, if any.
func (s *PostgresStore) Load(ctx context.Context, entity, id string, dest interface{}) (bool, error) {
	var r row
	err := s.db.GetContext(ctx, &r, `SELECT entity_type, entity_id, payload, version FROM snapshots WHERE entity_type = $1 AND entity_id = $2`, entity, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("snapshot.Load(%s:%s): %w", entity, id, err)
	}
	if err := json.Unmarshal(r.Payload, dest); err != nil {
		return false, fmt.Errorf("snapshot.Load(%s:%s): unmarshal: %w", entity, id, err)
	}
	return true, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// In-memory store — tests and local development without Postgres
// ──────────────────────────────────────────────────────────────────────────────

// InMemoryStore is a process-local Store backed by a map of marshalled
// JSON blobs, so it exercises the same encode/decode path the Postgres
// implementation does.
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewInMemoryStore returns an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: make(map[string][]byte)}
}

func key(entity, id string) string { return entity + ":" + id }

// Save marshals and stores state under (entity, id).
func (s *InMemoryStore) Save(_ context.Context, entity, id string, state interface{}) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("snapshot.InMemoryStore.Save: marshal: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key(entity, id)] = payload
	return nil
}

// Load decodes the stored snapshot for (entity, id) into dest.
func (s *InMemoryStore) Load(_ context.Context, entity, id string, dest interface{}) (bool, error) {
	s.mu.RLock()
	payload, ok := s.data[key(entity, id)]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("snapshot.InMemoryStore.Load: unmarshal: %w", err)
	}
	return true, nil
}
