package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/tradepulse/internal/analytics"
	"github.com/aristath/tradepulse/internal/domain"
)

// Mode identifies which execution path serves compute requests.
type Mode string

const (
	// ModeWorker runs the pipeline on a dedicated goroutine behind the
	// msgpack message protocol.
	ModeWorker Mode = "worker"
	// ModeSync runs the pipeline inline on the caller's goroutine.
	ModeSync Mode = "sync"
)

type state int

const (
	stateUninitialized state = iota
	stateReady
	stateDisposed
)

var (
	// ErrNotReady is returned when Compute is called before Init or
	// after Terminate.
	ErrNotReady = errors.New("bridge: not initialized")
	// ErrDisposed is returned when Init is called on a terminated bridge.
	ErrDisposed = errors.New("bridge: disposed")
)

// pingTimeout bounds how long Init waits for the worker handshake
// before falling back to sync mode.
const pingTimeout = 1 * time.Second

// ComputeResult is the outcome of one bridge dispatch.
type ComputeResult struct {
	// Data is the computed analytics, nil when the input was empty.
	Data *analytics.Result
	// Ms is the pipeline execution time in milliseconds.
	Ms float64
	// Mode records which path executed the request.
	Mode Mode
	// Discarded is true when a newer request was issued while this one
	// was in flight. Discarded results must not be published.
	Discarded bool
}

// Options configure bridge construction.
type Options struct {
	// ForceSync skips the worker entirely and runs every request inline.
	ForceSync bool
}

// Bridge routes compute requests to the analytics pipeline, preferring
// a dedicated worker goroutine and degrading to inline execution when
// the worker handshake fails. Requests carry monotonic sequence numbers
// so a slow result that was superseded by a newer request comes back
// flagged as discarded.
type Bridge struct {
	mu     sync.Mutex
	state  state
	mode   Mode
	worker *worker
	opts   Options
	log    zerolog.Logger

	seq    atomic.Uint64
	latest atomic.Uint64
}

func New(log zerolog.Logger, opts Options) *Bridge {
	return &Bridge{
		opts: opts,
		log:  log.With().Str("component", "bridge").Logger(),
	}
}

// Init transitions the bridge to ready, selecting worker or sync mode.
// Worker mode is confirmed with a ping/pong handshake; any failure or
// timeout degrades to sync mode rather than erroring. Init on an
// already-ready bridge is a no-op.
func (b *Bridge) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateReady:
		return nil
	case stateDisposed:
		return ErrDisposed
	}

	if b.opts.ForceSync {
		b.mode = ModeSync
		b.state = stateReady
		b.log.Info().Msg("Bridge ready in sync mode (forced)")
		return nil
	}

	w := newWorker(b.log)
	if err := b.ping(w); err != nil {
		b.log.Warn().Err(err).Msg("Worker handshake failed, falling back to sync mode")
		w.shutdown()
		b.mode = ModeSync
		b.state = stateReady
		return nil
	}

	b.worker = w
	b.mode = ModeWorker
	b.state = stateReady
	b.log.Info().Msg("Bridge ready in worker mode")
	return nil
}

func (b *Bridge) ping(w *worker) error {
	payload, err := msgpack.Marshal(request{Type: msgPing})
	if err != nil {
		return fmt.Errorf("encode ping: %w", err)
	}

	env := envelope{payload: payload, reply: make(chan []byte, 1)}
	timer := time.NewTimer(pingTimeout)
	defer timer.Stop()

	select {
	case w.requests <- env:
	case <-timer.C:
		return errors.New("ping dispatch timed out")
	}

	select {
	case raw := <-env.reply:
		var resp response
		if err := msgpack.Unmarshal(raw, &resp); err != nil {
			return fmt.Errorf("decode pong: %w", err)
		}
		if resp.Type != msgPong {
			return fmt.Errorf("unexpected handshake response %q", resp.Type)
		}
		return nil
	case <-timer.C:
		return errors.New("ping reply timed out")
	}
}

// Mode reports the execution mode selected during Init.
func (b *Bridge) Mode() Mode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mode
}

// Compute runs the analytics pipeline over the given trades. Empty
// input resolves immediately with nil data and never reaches the
// worker. Issuing a new request marks earlier in-flight requests as
// superseded; their results come back with Discarded set.
func (b *Bridge) Compute(ctx context.Context, trades []domain.Trade, settings analytics.Settings) (*ComputeResult, error) {
	b.mu.Lock()
	if b.state != stateReady {
		b.mu.Unlock()
		return nil, ErrNotReady
	}
	mode := b.mode
	w := b.worker
	b.mu.Unlock()

	if len(trades) == 0 {
		return &ComputeResult{Data: nil, Mode: mode}, nil
	}

	id := b.seq.Add(1)
	b.latest.Store(id)
	trace := uuid.New().String()
	b.log.Debug().Str("trace", trace).Uint64("seq", id).Int("trades", len(trades)).Msg("Dispatching compute")

	var (
		data *analytics.Result
		ms   float64
		err  error
	)
	if mode == ModeWorker {
		data, ms, err = b.computeWorker(ctx, w, trades, settings, id)
	} else {
		start := time.Now()
		data = analytics.Compute(trades, settings)
		ms = float64(time.Since(start).Microseconds()) / 1000.0
	}
	if err != nil {
		b.log.Error().Str("trace", trace).Err(err).Msg("Compute failed")
		return nil, err
	}

	res := &ComputeResult{
		Data:      data,
		Ms:        ms,
		Mode:      mode,
		Discarded: b.latest.Load() != id,
	}
	if res.Discarded {
		b.log.Debug().Str("trace", trace).Uint64("seq", id).Msg("Result superseded, marking discarded")
	}
	return res, nil
}

func (b *Bridge) computeWorker(ctx context.Context, w *worker, trades []domain.Trade, settings analytics.Settings, id uint64) (*analytics.Result, float64, error) {
	payload, err := msgpack.Marshal(request{Type: msgCompute, Trades: trades, Settings: settings, ID: id})
	if err != nil {
		return nil, 0, fmt.Errorf("encode request: %w", err)
	}

	env := envelope{payload: payload, reply: make(chan []byte, 1)}
	select {
	case w.requests <- env:
	case <-w.stopped:
		// Terminate closed the loop while we were queued; without this
		// branch a caller dispatching against a stopped worker blocks
		// forever.
		return nil, 0, ErrDisposed
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	}

	select {
	case raw := <-env.reply:
		var resp response
		if err := msgpack.Unmarshal(raw, &resp); err != nil {
			return nil, 0, fmt.Errorf("decode response: %w", err)
		}
		if resp.Type == msgError {
			return nil, 0, errors.New(resp.Error)
		}
		if resp.Type != msgResult {
			return nil, 0, fmt.Errorf("unexpected response type %q", resp.Type)
		}
		return resp.Data, resp.Ms, nil
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	}
}

// Terminate shuts the worker down and moves the bridge to disposed.
// Safe to call more than once.
func (b *Bridge) Terminate() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateDisposed {
		return
	}
	if b.worker != nil {
		b.worker.shutdown()
		b.worker = nil
	}
	b.state = stateDisposed
	b.log.Info().Msg("Bridge terminated")
}
