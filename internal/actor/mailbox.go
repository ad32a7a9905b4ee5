// Package actor implements the per-key single-threaded logical actors that
// make up the CORE: one goroutine and mailbox per key (userId, betId,
// marketId, eventId), serializing all calls addressed to that key. Calls
// across actors are ordinary asynchronous function calls from the caller's
// perspective — the caller's own mailbox goroutine blocks on the channel
// round-trip, never holding any lock while it does.
package actor

import (
	"context"
	"sync"

	"github.com/oddsforge/sportsbook/internal/domain"
)

// job is one unit of serialized work submitted to a Mailbox.
type job struct {
	run  func()
	done chan struct{}
}

// Mailbox serializes access to a single piece of state S via a dedicated
// goroutine. All calls against one key run through exactly one Mailbox,
// giving the actor a strict total order over its own operations.
type Mailbox[S any] struct {
	state S
	jobs  chan job
	quit  chan struct{}
	once  sync.Once
}

// NewMailbox starts a Mailbox goroutine owning the given initial state.
func NewMailbox[S any](initial S) *Mailbox[S] {
	m := &Mailbox[S]{
		state: initial,
		jobs:  make(chan job, 64),
		quit:  make(chan struct{}),
	}
	go m.loop()
	return m
}

func (m *Mailbox[S]) loop() {
	for {
		select {
		case j := <-m.jobs:
			j.run()
			close(j.done)
		case <-m.quit:
			return
		}
	}
}

// Stop terminates the mailbox goroutine. Safe to call multiple times.
func (m *Mailbox[S]) Stop() {
	m.once.Do(func() { close(m.quit) })
}

// Call submits fn to run with exclusive access to the mailbox's state and
// blocks until it completes or ctx is cancelled. On cancellation the job
// may still run to completion in the background (the mailbox goroutine does
// not abandon in-flight work), but the caller observes ErrOperationCancelled
// immediately and must treat its own operation as not having completed.
func Call[S, R any](ctx context.Context, m *Mailbox[S], fn func(*S) R) (R, error) {
	var zero R
	result := make(chan R, 1)
	done := make(chan struct{})
	j := job{
		run: func() {
			result <- fn(&m.state)
		},
		done: done,
	}

	select {
	case m.jobs <- j:
	case <-ctx.Done():
		return zero, domain.ErrOperationCancelled
	case <-m.quit:
		return zero, context.Canceled
	}

	select {
	case r := <-result:
		return r, nil
	case <-ctx.Done():
		return zero, domain.ErrOperationCancelled
	}
}

// Manager shards a population of actors keyed by K, lazily creating a new
// Mailbox[S] the first time a key is addressed. This is the "pool of worker
// threads" the spec describes at the population level; each key still gets
// its own single-threaded mailbox.
type Manager[K comparable, S any] struct {
	mu       sync.Mutex
	boxes    map[K]*Mailbox[S]
	newState func(K) S
}

// NewManager returns a Manager that lazily constructs state for unseen keys
// via newState.
func NewManager[K comparable, S any](newState func(K) S) *Manager[K, S] {
	return &Manager[K, S]{
		boxes:    make(map[K]*Mailbox[S]),
		newState: newState,
	}
}

// mailboxFor returns (creating if necessary) the Mailbox for key.
func (m *Manager[K, S]) mailboxFor(key K) *Mailbox[S] {
	m.mu.Lock()
	defer m.mu.Unlock()
	if box, ok := m.boxes[key]; ok {
		return box
	}
	box := NewMailbox(m.newState(key))
	m.boxes[key] = box
	return box
}

// ManagerCall addresses the actor for key on m, creating it on first use,
// and runs fn with exclusive access to its state. Defined as a free function
// (rather than a Manager method) because Go methods cannot introduce new
// type parameters.
func ManagerCall[K comparable, S, R any](ctx context.Context, m *Manager[K, S], key K, fn func(*S) R) (R, error) {
	box := m.mailboxFor(key)
	return Call(ctx, box, fn)
}

// Keys returns a snapshot of the currently known actor keys.
func (m *Manager[K, S]) Keys() []K {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]K, 0, len(m.boxes))
	for k := range m.boxes {
		keys = append(keys, k)
	}
	return keys
}

// Stop tears down every mailbox the manager has created.
func (m *Manager[K, S]) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, box := range m.boxes {
		box.Stop()
	}
}
