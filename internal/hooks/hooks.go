// Package hooks fans call and turn lifecycle events out to subscribers.
//
// Inline subscribers run on the emitting goroutine, in registration order,
// before Emit returns. Detached subscribers run on their own goroutine with
// a context that outlives the caller's cancellation, so a slow database or
// WebSocket peer never holds up a phone call. Wait drains them.
package hooks

import (
	"context"
	"sync"

	"github.com/soyeahso/matrix/internal/logging"
)

// Event names.
const (
	EventCallReceived      = "call_received"
	EventTurnStarted       = "turn_started"
	EventActionInvoked     = "action_invoked"
	EventActionFailed      = "action_failed"
	EventTurnCompleted     = "turn_completed"
	EventPersistenceFailed = "persistence_failed"
	EventGatewayStart      = "gateway_start"
	EventGatewayStop       = "gateway_stop"
)

// Payload carries event data to subscribers.
type Payload struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
}

// Handler handles one event. A returned error or a panic is logged and
// never reaches the emitter.
type Handler func(ctx context.Context, p Payload) error

type subscriber struct {
	name     string
	handler  Handler
	detached bool
}

// Manager holds the subscriptions and dispatches events.
type Manager struct {
	mu   sync.RWMutex
	subs map[string][]subscriber
	wg   sync.WaitGroup
	log  *logging.Logger
}

// NewManager creates a hook manager.
func NewManager(log *logging.Logger) *Manager {
	return &Manager{
		subs: make(map[string][]subscriber),
		log:  log.Sub("hooks"),
	}
}

// On subscribes an inline handler to event.
func (m *Manager) On(event, name string, h Handler) {
	m.subscribe(event, subscriber{name: name, handler: h})
}

// OnDetached subscribes a handler that runs in the background.
func (m *Manager) OnDetached(event, name string, h Handler) {
	m.subscribe(event, subscriber{name: name, handler: h, detached: true})
}

func (m *Manager) subscribe(event string, s subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[event] = append(m.subs[event], s)
	m.log.Debug().Str("event", event).Str("handler", s.name).Bool("detached", s.detached).Msg("hook registered")
}

// Emit delivers an event to every subscriber. Inline handlers have
// finished when Emit returns; detached ones may still be running.
func (m *Manager) Emit(ctx context.Context, event string, data map[string]any) {
	m.mu.RLock()
	subs := append([]subscriber(nil), m.subs[event]...)
	m.mu.RUnlock()

	p := Payload{Event: event, Data: data}
	for _, s := range subs {
		if !s.detached {
			m.call(ctx, s, p)
			continue
		}
		m.wg.Add(1)
		go func(s subscriber) {
			defer m.wg.Done()
			m.call(context.WithoutCancel(ctx), s, p)
		}(s)
	}
}

// Wait blocks until every detached handler started so far has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) call(ctx context.Context, s subscriber, p Payload) {
	defer func() {
		if rec := recover(); rec != nil {
			m.log.Error().
				Interface("panic", rec).
				Str("event", p.Event).
				Str("handler", s.name).
				Msg("hook handler panicked")
		}
	}()
	if err := s.handler(ctx, p); err != nil {
		m.log.Warn().
			Err(err).
			Str("event", p.Event).
			Str("handler", s.name).
			Msg("hook handler error")
	}
}

// Count returns the number of subscribers for an event.
func (m *Manager) Count(event string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs[event])
}
