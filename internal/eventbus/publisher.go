// Package eventbus publishes fire-and-forget domain event notifications.
// Publish failures are logged and swallowed — they never fail a domain
// operation (§5, §7). Topic convention: sportsbook.events.<aggregate>.<event-type>
// (§6), e.g. "sportsbook.events.bet.placed".
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Publisher publishes a domain event notification for aggregate/eventType.
// Implementations MUST NOT return an error that callers are expected to act
// on — publication failure is an operational concern, not a domain one.
type Publisher interface {
	Publish(ctx context.Context, aggregate, eventType string, payload interface{})
}

// envelope wraps a published payload with the correlationId required by §6.
type envelope struct {
	Topic         string      `json:"topic"`
	CorrelationID uuid.UUID   `json:"correlation_id"`
	PublishedAt   time.Time   `json:"published_at"`
	Payload       interface{} `json:"payload"`
}

// ──────────────────────────────────────────────────────────────────────────────
// Redis-backed publisher
// ──────────────────────────────────────────────────────────────────────────────

// RedisPublisher publishes events to Redis Pub/Sub channels named per the
// §6 topic convention. Grounded on the optional-connection-failure client
// wrapper idiom (cache.Service in the retrieval pack's aviator repo):
// a nil/unreachable client degrades the publisher to a no-op rather than
// crashing the caller.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher connects to addr. If the initial ping fails, it logs the
// failure and returns a Publisher that silently drops every event — matching
// §7's "event-bus publication failures never fail the operation".
func NewRedisPublisher(addr, password string, db int) Publisher {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     50,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Printf("[eventbus] redis connection failed: %v — publishing disabled", err)
		return NoopPublisher{}
	}
	log.Println("[eventbus] redis connected")
	return &RedisPublisher{client: client}
}

// Publish serializes payload and publishes it on
// "sportsbook.events.<aggregate>.<eventType>". Any error (marshal, network)
// is logged and swallowed.
func (p *RedisPublisher) Publish(ctx context.Context, aggregate, eventType string, payload interface{}) {
	topic := fmt.Sprintf("sportsbook.events.%s.%s", aggregate, eventType)
	body, err := json.Marshal(envelope{
		Topic:         topic,
		CorrelationID: uuid.New(),
		PublishedAt:   time.Now(),
		Payload:       payload,
	})
	if err != nil {
		log.Printf("[eventbus] marshal failed for %s: %v", topic, err)
		return
	}
	if err := p.client.Publish(ctx, topic, body).Err(); err != nil {
		log.Printf("[eventbus] publish failed for %s: %v", topic, err)
	}
}

// Close releases the underlying Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// ──────────────────────────────────────────────────────────────────────────────
// No-op publisher — used in tests and when Redis is unreachable
// ──────────────────────────────────────────────────────────────────────────────

// NoopPublisher discards every event. Safe zero value.
type NoopPublisher struct{}

// Publish is a no-op.
func (NoopPublisher) Publish(context.Context, string, string, interface{}) {}
