// Package domain contains the core types shared across modules.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Side identifies the direction of a trade.
type Side string

const (
	// SideLong is a long position (profit when price rises)
	SideLong Side = "long"
	// SideShort is a short position (profit when price falls)
	SideShort Side = "short"
)

// ParseSide normalizes a side string. Unknown values default to long.
func ParseSide(s string) Side {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "short", "sell":
		return SideShort
	default:
		return SideLong
	}
}

// Trade represents a single closed trade. Trades are immutable once handed
// to the analytics pipeline - the engine never mutates them.
type Trade struct {
	ID       string    `json:"id" msgpack:"id"`
	Date     time.Time `json:"date" msgpack:"date"`
	Symbol   string    `json:"symbol" msgpack:"symbol"`
	Side     Side      `json:"side" msgpack:"side"`
	PnL      float64   `json:"pnl" msgpack:"pnl"`   // Realized profit/loss in account fiat currency
	Fees     float64   `json:"fees" msgpack:"fees"` // Commissions and fees, fiat
	Playbook string    `json:"playbook,omitempty" msgpack:"playbook"`
	Emotion  string    `json:"emotion,omitempty" msgpack:"emotion"`

	// RMultiple is the trade's result expressed in initial-risk units.
	// Nil when the trader did not record a risk amount.
	RMultiple *float64 `json:"rMultiple,omitempty" msgpack:"r_multiple"`

	RuleBreak bool `json:"ruleBreak" msgpack:"rule_break"`

	// Price and Quantity are optional instrument fields. For crypto
	// instruments they carry up to 8 decimals.
	Price    float64 `json:"price,omitempty" msgpack:"price"`
	Quantity float64 `json:"quantity,omitempty" msgpack:"quantity"`
}

// Validate checks the fields required for a trade to be persisted.
// The analytics engine itself is more forgiving (malformed fields fall back
// to documented defaults), so this is only enforced at the ledger boundary.
func (t *Trade) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("trade ID cannot be empty")
	}
	if strings.TrimSpace(t.Symbol) == "" {
		return fmt.Errorf("trade %s: symbol cannot be empty", t.ID)
	}
	if t.Side != SideLong && t.Side != SideShort {
		return fmt.Errorf("trade %s: invalid side %q", t.ID, t.Side)
	}
	return nil
}

// NetPnL returns the trade's profit after fees.
func (t *Trade) NetPnL() float64 {
	return t.PnL - t.Fees
}

// HasDate reports whether the trade carries a usable timestamp.
// Trades without one are excluded from time-bucketed breakdowns.
func (t *Trade) HasDate() bool {
	return !t.Date.IsZero()
}
