package analytics

import "fmt"

// Default configuration values. Missing or invalid settings fall back to
// these rather than being rejected.
const (
	DefaultMCRuns         = 0
	DefaultRiskFreeRate   = 0.0
	DefaultStartingEquity = 10_000.0
	DefaultRuinFloorPct   = 0.0
)

// Settings configures a computation. It is a plain value - unknown JSON
// keys are ignored on decode, and negative values are clamped rather than
// rejected.
type Settings struct {
	// MCRuns is the number of Monte Carlo resampling runs for the
	// risk-of-ruin estimate. 0 skips the simulation entirely.
	MCRuns int `json:"mcRuns" msgpack:"mc_runs"`

	// RiskFreeRate is the per-trade hurdle subtracted from mean P&L when
	// computing Sharpe and Sortino.
	RiskFreeRate float64 `json:"riskFreeRate" msgpack:"risk_free_rate"`

	// StartingEquity is the account balance each simulated equity path
	// starts from.
	StartingEquity float64 `json:"startingEquity" msgpack:"starting_equity"`

	// RuinFloorPct is the fraction of starting equity (0..1) below which
	// a simulated path counts as ruined. 0 means ruin at zero.
	RuinFloorPct float64 `json:"ruinFloorPct" msgpack:"ruin_floor_pct"`

	// Seed makes the simulation deterministic when non-zero. Production
	// leaves it at 0 for a time-seeded RNG.
	Seed int64 `json:"seed,omitempty" msgpack:"seed"`
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() Settings {
	return Settings{
		MCRuns:         DefaultMCRuns,
		RiskFreeRate:   DefaultRiskFreeRate,
		StartingEquity: DefaultStartingEquity,
		RuinFloorPct:   DefaultRuinFloorPct,
	}
}

// Normalized returns a copy with invalid values clamped to the nearest
// valid value (negative run counts become 0, and so on).
func (s Settings) Normalized() Settings {
	if s.MCRuns < 0 {
		s.MCRuns = 0
	}
	if s.RiskFreeRate < 0 {
		s.RiskFreeRate = 0
	}
	if s.StartingEquity <= 0 {
		s.StartingEquity = DefaultStartingEquity
	}
	if s.RuinFloorPct < 0 {
		s.RuinFloorPct = 0
	}
	if s.RuinFloorPct > 1 {
		s.RuinFloorPct = 1
	}
	return s
}

// Key returns a canonical string identifying every setting that affects
// the computed result. Used alongside the trade fingerprint for cache
// invalidation.
func (s Settings) Key() string {
	n := s.Normalized()
	return fmt.Sprintf("mc=%d|rf=%.6f|eq=%.2f|floor=%.4f|seed=%d",
		n.MCRuns, n.RiskFreeRate, n.StartingEquity, n.RuinFloorPct, n.Seed)
}
