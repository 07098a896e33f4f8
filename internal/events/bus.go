// Package events provides a small typed publish/subscribe bus.
//
// The analytics pipeline publishes explicit events instead of exposing any
// ambient mutable state; the HTTP streaming surfaces subscribe here.
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType identifies a category of event.
type EventType string

const (
	// AnalyticsComputing fires when a computation has been accepted and
	// dispatched to the bridge.
	AnalyticsComputing EventType = "analytics_computing"
	// AnalyticsUpdated fires when a new result snapshot was published.
	AnalyticsUpdated EventType = "analytics_updated"
	// AnalyticsError fires when a computation failed; the previous result
	// stays visible.
	AnalyticsError EventType = "analytics_error"
	// AnalyticsCleared fires when the published result was reset because
	// the trade set became empty.
	AnalyticsCleared EventType = "analytics_cleared"
	// TradesImported fires after a batch of trades was written to the ledger.
	TradesImported EventType = "trades_imported"
	// CacheInvalidated fires when the result cache was explicitly cleared.
	CacheInvalidated EventType = "cache_invalidated"
)

// Event is a single bus message.
type Event struct {
	Type      EventType   `json:"type"`
	Module    string      `json:"module"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// Handler receives published events. Handlers run synchronously on the
// publisher's goroutine and must not block; slow consumers should hand off
// to a buffered channel.
type Handler func(*Event)

// Bus fans events out to subscribers by type.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	log      zerolog.Logger
}

// NewBus creates an event bus.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
		log:      log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers a handler for an event type.
func (b *Bus) Subscribe(t EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// Emit publishes an event to every subscriber of its type.
func (b *Bus) Emit(t EventType, module string, data interface{}) {
	event := &Event{
		Type:      t,
		Module:    module,
		Timestamp: time.Now(),
		Data:      data,
	}

	b.mu.RLock()
	handlers := b.handlers[t]
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}

	b.log.Debug().
		Str("event_type", string(t)).
		Str("module", module).
		Int("subscribers", len(handlers)).
		Msg("Event emitted")
}
