// Package analytics computes the deterministic trading-performance report.
//
// Compute is a pure function over an immutable trade set: one sort by date,
// one accumulation pass, then derived metrics. All monetary sums route
// through integer-unit accumulation (see the money package) so results
// match bit-for-bit across runs and execution modes.
package analytics

import (
	"math"
	"sort"

	"github.com/aristath/tradepulse/internal/domain"
	"github.com/aristath/tradepulse/internal/money"
	"github.com/aristath/tradepulse/internal/risk"
)

// outcome classifies a trade by realized P&L.
type outcome int

const (
	outcomeWin outcome = iota
	outcomeLoss
	outcomeFlat
)

// bucketAccum is the in-pass accumulator behind a BucketStats entry.
type bucketAccum struct {
	trades int
	wins   int
	losses int
	pnl    *money.Accumulator
}

func newBucketAccum() *bucketAccum {
	return &bucketAccum{pnl: money.NewAccumulator(money.FiatScale)}
}

func (b *bucketAccum) add(pnl float64, oc outcome) {
	b.trades++
	b.pnl.Add(pnl)
	switch oc {
	case outcomeWin:
		b.wins++
	case outcomeLoss:
		b.losses++
	}
}

func (b *bucketAccum) stats() BucketStats {
	s := BucketStats{
		Trades: b.trades,
		Wins:   b.wins,
		Losses: b.losses,
		PnL:    b.pnl.Result(),
	}
	if b.trades > 0 {
		s.WinRate = float64(b.wins) / float64(b.trades) * 100
	}
	return s
}

// Compute produces the full analytics report for a set of closed trades.
// It returns nil for an empty or nil input - "no data" is distinct from a
// zero-valued result over all-flat trades. The input slice is never
// mutated; trades are copied before sorting.
func Compute(trades []domain.Trade, settings Settings) *Result {
	if len(trades) == 0 {
		return nil
	}
	settings = settings.Normalized()

	// Sort a copy by date ascending. Undated trades sort first (zero time)
	// and keep their relative order.
	sorted := make([]domain.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	var (
		totalPnL   = money.NewAccumulator(money.FiatScale)
		totalFees  = money.NewAccumulator(money.FiatScale)
		grossWin   = money.NewAccumulator(money.FiatScale)
		grossLoss  = money.NewAccumulator(money.FiatScale) // Accumulates magnitudes
		equity     = money.NewAccumulator(money.FiatScale)
		wins       = 0
		losses     = 0
		peakEquity = 0.0
		maxDd      = 0.0

		curWinStreak  = 0
		curLossStreak = 0
		bestStreak    = 0
		worstStreak   = 0

		pnls       = make([]float64, 0, len(sorted))
		curve      = make([]EquityPoint, 0, len(sorted))
		byDay      [7]*bucketAccum
		byHour     [24]*bucketAccum
		byStrategy = map[string]*bucketAccum{}
		byEmotion  = map[string]*bucketAccum{}

		// R-multiple series, collected only from trades that carry one.
		rWins      = money.NewAccumulator(money.FiatScale)
		rLosses    = money.NewAccumulator(money.FiatScale)
		rWinCount  = 0
		rLossCount = 0
	)
	for i := range byDay {
		byDay[i] = newBucketAccum()
	}
	for i := range byHour {
		byHour[i] = newBucketAccum()
	}

	for i := range sorted {
		t := &sorted[i]

		// Malformed numeric input degrades to the documented default of 0
		// rather than poisoning every aggregate with NaN.
		pnl := t.PnL
		if math.IsNaN(pnl) || math.IsInf(pnl, 0) {
			pnl = 0
		}
		fees := t.Fees
		if math.IsNaN(fees) || math.IsInf(fees, 0) {
			fees = 0
		}

		oc := outcomeFlat
		switch {
		case pnl > 0:
			oc = outcomeWin
		case pnl < 0:
			oc = outcomeLoss
		}

		totalPnL.Add(pnl)
		totalFees.Add(fees)
		pnls = append(pnls, money.Round(pnl, money.FiatScale))

		switch oc {
		case outcomeWin:
			wins++
			grossWin.Add(pnl)
			curWinStreak++
			curLossStreak = 0
			if curWinStreak > bestStreak {
				bestStreak = curWinStreak
			}
		case outcomeLoss:
			losses++
			grossLoss.Add(-pnl)
			curLossStreak++
			curWinStreak = 0
			if curLossStreak > worstStreak {
				worstStreak = curLossStreak
			}
		default:
			// Flat trades are neither outcome; they break both streaks.
			curWinStreak = 0
			curLossStreak = 0
		}

		equity.Add(pnl)
		eq := equity.Result()
		curve = append(curve, EquityPoint{PnL: money.Round(pnl, money.FiatScale), Cumulative: eq})
		if eq > peakEquity {
			peakEquity = eq
		}
		if peakEquity > 0 {
			dd := (peakEquity - eq) / peakEquity * 100
			if dd > maxDd {
				maxDd = dd
			}
		}

		if t.HasDate() {
			byDay[int(t.Date.Weekday())].add(pnl, oc)
			byHour[t.Date.Hour()].add(pnl, oc)
		}
		if t.Playbook != "" {
			acc, ok := byStrategy[t.Playbook]
			if !ok {
				acc = newBucketAccum()
				byStrategy[t.Playbook] = acc
			}
			acc.add(pnl, oc)
		}
		if t.Emotion != "" {
			acc, ok := byEmotion[t.Emotion]
			if !ok {
				acc = newBucketAccum()
				byEmotion[t.Emotion] = acc
			}
			acc.add(pnl, oc)
		}

		if t.RMultiple != nil && !math.IsNaN(*t.RMultiple) && !math.IsInf(*t.RMultiple, 0) {
			r := *t.RMultiple
			switch {
			case r > 0:
				rWins.Add(r)
				rWinCount++
			case r < 0:
				rLosses.Add(-r)
				rLossCount++
			}
		}
	}

	res := &Result{
		TradeCount:  len(sorted),
		TotalPnL:    totalPnL.Result(),
		TotalFees:   totalFees.Result(),
		WinCount:    wins,
		LossCount:   losses,
		MaxDrawdown: maxDd,
		BestStreak:  bestStreak,
		WorstStreak: worstStreak,
		EquityCurve: curve,
		ByStrategy:  map[string]BucketStats{},
		ByEmotion:   map[string]BucketStats{},
	}

	for i, acc := range byDay {
		res.ByDayOfWeek[i] = acc.stats()
	}
	for i, acc := range byHour {
		res.ByHourOfDay[i] = acc.stats()
	}
	for name, acc := range byStrategy {
		res.ByStrategy[name] = acc.stats()
	}
	for name, acc := range byEmotion {
		res.ByEmotion[name] = acc.stats()
	}

	deriveMetrics(res, derivedInput{
		grossWin:   grossWin.Result(),
		grossLoss:  grossLoss.Result(),
		pnls:       pnls,
		rAvgWin:    safeDiv(rWins.Result(), float64(rWinCount)),
		rAvgLoss:   safeDiv(rLosses.Result(), float64(rLossCount)),
		rWinCount:  rWinCount,
		rLossCount: rLossCount,
		settings:   settings,
	})

	if settings.MCRuns > 0 {
		sim := risk.NewSimulator(risk.Config{
			Seed:           settings.Seed,
			StartingEquity: settings.StartingEquity,
			RuinFloorPct:   settings.RuinFloorPct,
		})
		est := sim.SimulateRuin(pnls, settings.MCRuns)
		res.RiskOfRuin = est.RoR
		res.Ruin = &RuinEstimate{RoR: est.RoR, P10: est.P10, P50: est.P50, P90: est.P90}
	}

	return res
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
