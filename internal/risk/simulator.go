// Package risk estimates the probability of ruin by Monte Carlo
// resampling of the historical P&L distribution.
package risk

import (
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Config controls a Simulator.
type Config struct {
	// Seed makes runs deterministic when non-zero. Production uses 0,
	// which seeds from the clock.
	Seed int64

	// StartingEquity is the balance each synthetic path starts from.
	StartingEquity float64

	// RuinFloorPct is the fraction of starting equity (0..1) at or below
	// which a path counts as ruined. 0 means ruin at zero equity.
	RuinFloorPct float64
}

// Estimate is the outcome of a simulation batch.
type Estimate struct {
	RoR float64 // Fraction of runs that hit ruin, in percent [0,100]
	P10 float64 // Percentiles of final equity across runs
	P50 float64
	P90 float64
}

// Simulator resamples a P&L sequence into synthetic equity paths.
type Simulator struct {
	cfg Config
	rng *rand.Rand
}

// NewSimulator creates a simulator. A zero StartingEquity falls back to
// a nominal account of 10,000 so the ruin threshold stays meaningful.
func NewSimulator(cfg Config) *Simulator {
	if cfg.StartingEquity <= 0 {
		cfg.StartingEquity = 10_000
	}
	if cfg.RuinFloorPct < 0 {
		cfg.RuinFloorPct = 0
	}
	if cfg.RuinFloorPct > 1 {
		cfg.RuinFloorPct = 1
	}

	var rng *rand.Rand
	if cfg.Seed != 0 {
		rng = rand.New(rand.NewSource(cfg.Seed))
	} else {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Simulator{cfg: cfg, rng: rng}
}

// SimulateRuin runs the Monte Carlo estimate. Each run resamples the
// historical P&L sequence with replacement into a synthetic path of the
// same length and records whether equity ever crossed the ruin floor.
//
// runs == 0 skips simulation entirely and returns a zero estimate; this
// keeps unit tests that don't care about ruin deterministic and fast.
// The returned RoR is always within [0,100].
func (s *Simulator) SimulateRuin(pnls []float64, runs int) Estimate {
	if runs <= 0 || len(pnls) == 0 {
		return Estimate{}
	}

	floor := s.cfg.StartingEquity * s.cfg.RuinFloorPct
	finals := make([]float64, runs)
	ruined := 0

	for i := 0; i < runs; i++ {
		equity := s.cfg.StartingEquity
		hitRuin := false

		for step := 0; step < len(pnls); step++ {
			equity += pnls[s.rng.Intn(len(pnls))]
			if equity <= floor {
				hitRuin = true
				break
			}
		}

		if hitRuin {
			ruined++
		}
		finals[i] = equity
	}

	sort.Float64s(finals)

	return Estimate{
		RoR: float64(ruined) / float64(runs) * 100,
		P10: stat.Quantile(0.10, stat.Empirical, finals, nil),
		P50: stat.Quantile(0.50, stat.Empirical, finals, nil),
		P90: stat.Quantile(0.90, stat.Empirical, finals, nil),
	}
}
