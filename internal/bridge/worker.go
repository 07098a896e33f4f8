package bridge

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/tradepulse/internal/analytics"
)

// envelope carries one encoded request into the worker loop together
// with the channel its encoded response must be written to.
type envelope struct {
	payload []byte
	reply   chan []byte
}

// worker runs the analytics pipeline on a dedicated goroutine. All
// traffic in and out is msgpack bytes so the loop never shares trade
// slices or results with its callers.
type worker struct {
	requests chan envelope
	stop     chan struct{}
	stopped  chan struct{}
	log      zerolog.Logger
}

func newWorker(log zerolog.Logger) *worker {
	w := &worker{
		requests: make(chan envelope),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
		log:      log.With().Str("component", "bridge-worker").Logger(),
	}
	go w.run()
	return w
}

func (w *worker) run() {
	defer close(w.stopped)
	for {
		select {
		case <-w.stop:
			return
		case env := <-w.requests:
			env.reply <- w.handle(env.payload)
		}
	}
}

func (w *worker) handle(payload []byte) []byte {
	var req request
	if err := msgpack.Unmarshal(payload, &req); err != nil {
		w.log.Error().Err(err).Msg("Failed to decode worker request")
		return encodeResponse(response{Type: msgError, Error: "decode: " + err.Error()})
	}

	switch req.Type {
	case msgPing:
		return encodeResponse(response{Type: msgPong, ID: req.ID})
	case msgCompute:
		start := time.Now()
		result := analytics.Compute(req.Trades, req.Settings)
		ms := float64(time.Since(start).Microseconds()) / 1000.0
		return encodeResponse(response{Type: msgResult, Data: result, ID: req.ID, Ms: ms})
	default:
		w.log.Warn().Str("type", req.Type).Msg("Unknown worker request type")
		return encodeResponse(response{Type: msgError, Error: "unknown request type: " + req.Type, ID: req.ID})
	}
}

// shutdown stops the loop and waits for it to drain.
func (w *worker) shutdown() {
	close(w.stop)
	<-w.stopped
}

func encodeResponse(resp response) []byte {
	data, err := msgpack.Marshal(resp)
	if err != nil {
		// A response that cannot encode is a programming error in the
		// message types themselves, not a runtime condition.
		panic("bridge: encode response: " + err.Error())
	}
	return data
}
