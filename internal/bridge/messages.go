package bridge

import (
	"github.com/aristath/tradepulse/internal/analytics"
	"github.com/aristath/tradepulse/internal/domain"
)

// Message types of the worker transport protocol. Requests and responses
// cross the worker boundary as msgpack-encoded envelopes, keeping the
// transport honest: nothing is shared by reference with the worker.
const (
	msgCompute = "compute"
	msgPing    = "ping"
	msgResult  = "result"
	msgError   = "error"
	msgPong    = "pong"
)

// request is a message sent to the worker.
type request struct {
	Type     string             `msgpack:"type"`
	Trades   []domain.Trade     `msgpack:"trades,omitempty"`
	Settings analytics.Settings `msgpack:"settings,omitempty"`
	ID       uint64             `msgpack:"id,omitempty"`
}

// response is a message received from the worker.
type response struct {
	Type  string            `msgpack:"type"`
	Data  *analytics.Result `msgpack:"data,omitempty"`
	Error string            `msgpack:"error,omitempty"`
	ID    uint64            `msgpack:"id,omitempty"`
	Ms    float64           `msgpack:"ms,omitempty"`
}
