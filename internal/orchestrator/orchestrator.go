package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/tradepulse/internal/analytics"
	"github.com/aristath/tradepulse/internal/bridge"
	"github.com/aristath/tradepulse/internal/domain"
	"github.com/aristath/tradepulse/internal/events"
)

// DefaultDebounce is how long the orchestrator waits for the trade list
// to settle before dispatching a compute. Rapid successive calls within
// the window collapse into a single pipeline run over the latest data.
const DefaultDebounce = 300 * time.Millisecond

// computer is the slice of the bridge the orchestrator needs.
type computer interface {
	Compute(ctx context.Context, trades []domain.Trade, settings analytics.Settings) (*bridge.ComputeResult, error)
	Mode() bridge.Mode
	Terminate()
}

// Options configure orchestrator construction.
type Options struct {
	// Debounce overrides the settle window. Zero means DefaultDebounce.
	Debounce time.Duration
	// CacheSize bounds the result cache. Zero means DefaultCacheSize.
	CacheSize int
}

type pendingCompute struct {
	trades   []domain.Trade
	settings analytics.Settings
	force    bool
}

// Orchestrator is the single entry point for analytics computation. It
// serializes requests, short-circuits unchanged data by fingerprint,
// debounces bursts, serves repeats from a bounded cache, and publishes
// accepted results to its snapshot store and the event bus. Discarded
// bridge results are never published.
type Orchestrator struct {
	bridge computer
	cache  *resultCache
	store  *store
	bus    *events.Bus
	log    zerolog.Logger

	debounce time.Duration

	mu              sync.Mutex
	lastFingerprint string
	lastSettingsKey string
	pending         *pendingCompute
	timer           *time.Timer
	terminated      bool

	// Dispatch order for in-flight runs. A run whose bridge round-trip
	// outlasts the debounce window may still be executing when the next
	// run starts; acceptedSeq keeps the older one from publishing over
	// the newer result.
	runSeq      uint64
	acceptedSeq uint64
}

func New(b computer, bus *events.Bus, log zerolog.Logger, opts Options) *Orchestrator {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Orchestrator{
		bridge:   b,
		cache:    newResultCache(opts.CacheSize),
		store:    newStore(),
		bus:      bus,
		log:      log.With().Str("component", "orchestrator").Logger(),
		debounce: debounce,
	}
}

// Snapshot returns the current analytics state.
func (o *Orchestrator) Snapshot() Snapshot {
	return o.store.snapshot()
}

// Subscribe registers fn to receive every published snapshot.
func (o *Orchestrator) Subscribe(fn Subscriber) {
	o.store.subscribe(fn)
}

// ComputeAndStore requests analytics over the given trades. Empty input
// clears the published state immediately. Input whose fingerprint and
// settings match the last accepted compute is a no-op. Everything else
// is debounced; only the latest request in a burst reaches the bridge.
func (o *Orchestrator) ComputeAndStore(trades []domain.Trade, settings analytics.Settings) {
	o.schedule(trades, settings, false)
}

// ForceRecompute bypasses the unchanged-data short-circuit and the
// result cache for one compute. The debounce window still applies.
func (o *Orchestrator) ForceRecompute(trades []domain.Trade, settings analytics.Settings) {
	o.schedule(trades, settings, true)
}

func (o *Orchestrator) schedule(trades []domain.Trade, settings analytics.Settings, force bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.terminated {
		return
	}

	if len(trades) == 0 {
		o.clearLocked()
		return
	}

	if !force {
		fp := Fingerprint(trades)
		key := settings.Normalized().Key()
		if fp == o.lastFingerprint && key == o.lastSettingsKey {
			o.log.Debug().Str("fingerprint", fp).Msg("Data unchanged, skipping compute")
			return
		}
	}

	// Latest-wins: replace the pending request and restart the timer.
	copied := make([]domain.Trade, len(trades))
	copy(copied, trades)
	o.pending = &pendingCompute{trades: copied, settings: settings, force: force}
	if o.timer != nil {
		o.timer.Stop()
	}
	o.timer = time.AfterFunc(o.debounce, o.run)
}

func (o *Orchestrator) clearLocked() {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.pending = nil
	o.lastFingerprint = ""
	o.lastSettingsKey = ""

	o.store.publish(func(s *Snapshot) {
		s.Result = nil
		s.Computing = false
		s.Error = ""
		s.LastComputeMs = 0
	})
	o.emit(events.AnalyticsCleared, nil)
	o.log.Info().Msg("Analytics cleared for empty trade list")
}

// run fires after the debounce window settles.
func (o *Orchestrator) run() {
	o.mu.Lock()
	req := o.pending
	o.pending = nil
	o.timer = nil
	terminated := o.terminated
	o.runSeq++
	seq := o.runSeq
	o.mu.Unlock()

	if req == nil || terminated {
		return
	}

	fp := Fingerprint(req.trades)
	settings := req.settings.Normalized()
	key := settings.Key()

	if !req.force {
		// Re-check after the wait: an accepted compute may have landed
		// for this exact data while we debounced.
		o.mu.Lock()
		unchanged := fp == o.lastFingerprint && key == o.lastSettingsKey
		o.mu.Unlock()
		if unchanged {
			return
		}

		if cached, ms, ok := o.cache.get(cacheKey(fp, key)); ok {
			o.log.Debug().Str("fingerprint", fp).Msg("Serving analytics from cache")
			o.accept(seq, fp, key, cached, ms)
			return
		}
	}

	o.store.publish(func(s *Snapshot) {
		s.Computing = true
		s.Error = ""
	})
	o.emit(events.AnalyticsComputing, map[string]interface{}{"trades": len(req.trades)})

	res, err := o.bridge.Compute(context.Background(), req.trades, settings)
	if err != nil {
		o.log.Error().Err(err).Msg("Analytics compute failed")
		o.store.publish(func(s *Snapshot) {
			s.Computing = false
			s.Error = err.Error()
		})
		o.emit(events.AnalyticsError, map[string]interface{}{"error": err.Error()})
		return
	}
	if res.Discarded {
		// A newer request superseded this one; its own run publishes.
		o.log.Debug().Str("fingerprint", fp).Msg("Dropping superseded result")
		return
	}

	o.cache.put(cacheKey(fp, key), res.Data, res.Ms)
	o.accept(seq, fp, key, res.Data, res.Ms)
}

func (o *Orchestrator) accept(seq uint64, fp, key string, result *analytics.Result, ms float64) {
	o.mu.Lock()
	if seq < o.acceptedSeq {
		// A later run already published; this result is stale.
		o.mu.Unlock()
		o.log.Debug().Str("fingerprint", fp).Msg("Dropping out-of-order result")
		return
	}
	o.acceptedSeq = seq
	o.lastFingerprint = fp
	o.lastSettingsKey = key
	o.mu.Unlock()

	o.store.publish(func(s *Snapshot) {
		s.Result = result
		s.Computing = false
		s.Error = ""
		s.LastComputeMs = ms
		s.Mode = o.bridge.Mode()
	})
	o.emit(events.AnalyticsUpdated, map[string]interface{}{"ms": ms})
}

// InvalidateCache drops every cached result. The current snapshot is
// left in place; the next compute goes through the pipeline.
func (o *Orchestrator) InvalidateCache() {
	o.cache.clear()
	o.mu.Lock()
	o.lastFingerprint = ""
	o.lastSettingsKey = ""
	o.mu.Unlock()
	o.emit(events.CacheInvalidated, nil)
	o.log.Info().Msg("Analytics cache invalidated")
}

// Terminate cancels pending work and shuts the bridge down. Safe to
// call more than once.
func (o *Orchestrator) Terminate() {
	o.mu.Lock()
	if o.terminated {
		o.mu.Unlock()
		return
	}
	o.terminated = true
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.pending = nil
	o.mu.Unlock()

	o.bridge.Terminate()
	o.log.Info().Msg("Orchestrator terminated")
}

func (o *Orchestrator) emit(eventType events.EventType, data map[string]interface{}) {
	if o.bus == nil {
		return
	}
	o.bus.Emit(eventType, "analytics", data)
}
