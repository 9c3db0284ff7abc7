// Package events defines the transition event contract. Delivery, ordering,
// and retry are the emitter's responsibility, not the engine's: a committed
// transition stands whether or not its event ever reaches a consumer.
package events

import (
	"context"
	"sync"
	"time"
)

// TransitionEvent is published after every committed transition.
type TransitionEvent struct {
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	FromState  string    `json:"from_state"`
	ToState    string    `json:"to_state"`
	ActorID    string    `json:"actor_id"`
	ActorRole  string    `json:"actor_role"`
	Version    int64     `json:"version"`
	Timestamp  time.Time `json:"timestamp"`
}

// Emitter publishes committed transitions for notification and indexing
// collaborators. Implementations must never block the caller on delivery.
type Emitter interface {
	Publish(ctx context.Context, event TransitionEvent)
}

// NopEmitter drops every event. Used when no broker is configured.
type NopEmitter struct{}

func (NopEmitter) Publish(context.Context, TransitionEvent) {}

// MemoryEmitter records events for assertions in tests.
type MemoryEmitter struct {
	mu     sync.Mutex
	events []TransitionEvent
}

func NewMemoryEmitter() *MemoryEmitter {
	return &MemoryEmitter{}
}

func (m *MemoryEmitter) Publish(_ context.Context, event TransitionEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

// Events returns a snapshot of everything published so far.
func (m *MemoryEmitter) Events() []TransitionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TransitionEvent, len(m.events))
	copy(out, m.events)
	return out
}
