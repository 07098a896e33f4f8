package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/aristath/tradepulse/internal/orchestrator"
)

// LiveHandler streams analytics snapshots over a websocket. Clients get
// the current snapshot on connect and every accepted update after that.
type LiveHandler struct {
	orch *orchestrator.Orchestrator
	log  zerolog.Logger
}

// NewLiveHandler creates a new live analytics handler.
func NewLiveHandler(orch *orchestrator.Orchestrator, log zerolog.Logger) *LiveHandler {
	return &LiveHandler{
		orch: orch,
		log:  log.With().Str("component", "live_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/analytics/live websocket upgrades.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "connection closed")

	h.log.Info().Msg("Client connected to live analytics stream")

	// Buffered so a slow client drops snapshots instead of blocking the
	// orchestrator's publish path. Versions are monotonic, so the client
	// can detect gaps.
	snapshots := make(chan orchestrator.Snapshot, 8)
	h.orch.Subscribe(func(s orchestrator.Snapshot) {
		select {
		case snapshots <- s:
		default:
		}
	})

	ctx := r.Context()

	if err := h.write(ctx, conn, h.orch.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			h.log.Info().Msg("Client disconnected from live analytics stream")
			return
		case snap := <-snapshots:
			if err := h.write(ctx, conn, snap); err != nil {
				h.log.Debug().Err(err).Msg("Live stream write failed, closing")
				return
			}
		}
	}
}

func (h *LiveHandler) write(ctx context.Context, conn *websocket.Conn, snap orchestrator.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
