package orchestrator

import (
	"sync"

	"github.com/aristath/tradepulse/internal/analytics"
	"github.com/aristath/tradepulse/internal/bridge"
)

// Snapshot is the externally visible analytics state. Version increases
// monotonically with every publish so consumers can detect staleness.
type Snapshot struct {
	Result        *analytics.Result `json:"result"`
	Computing     bool              `json:"computing"`
	Error         string            `json:"error,omitempty"`
	LastComputeMs float64           `json:"lastComputeMs"`
	Mode          bridge.Mode       `json:"mode,omitempty"`
	Version       uint64            `json:"version"`
}

// Subscriber receives every published snapshot.
type Subscriber func(Snapshot)

// store holds the current snapshot behind a single writer. All
// mutations go through publish, which bumps the version and fans the
// new snapshot out to subscribers synchronously.
type store struct {
	mu          sync.RWMutex
	current     Snapshot
	subscribers []Subscriber
}

func newStore() *store {
	return &store{}
}

func (s *store) snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *store) subscribe(fn Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// publish applies mutate to a copy of the current snapshot, installs it
// with a bumped version, and notifies subscribers.
func (s *store) publish(mutate func(*Snapshot)) Snapshot {
	s.mu.Lock()
	next := s.current
	mutate(&next)
	next.Version = s.current.Version + 1
	s.current = next
	subs := make([]Subscriber, len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return next
}
