package analytics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Minimum sample sizes below which a metric gets a quality warning.
// The metric is still computed - small samples are flagged, not blocked.
const (
	MinTradesExpectancy = 10
	MinTradesKelly      = 20
	MinTradesSharpe     = 30
	MinTradesRuin       = 10
)

// derivedInput carries the pass totals needed to finish the report.
type derivedInput struct {
	grossWin   float64
	grossLoss  float64 // Magnitude
	pnls       []float64
	rAvgWin    float64
	rAvgLoss   float64 // Magnitude
	rWinCount  int
	rLossCount int
	settings   Settings
}

// deriveMetrics fills in every metric computed after the accumulation pass.
// All guards here are required behavior: no field may ever be NaN, and the
// only permitted infinity is the documented ProfitFactor = +Inf case.
func deriveMetrics(res *Result, in derivedInput) {
	total := res.TradeCount
	if total > 0 {
		res.WinRate = float64(res.WinCount) / float64(total) * 100
	}
	if res.WinCount > 0 {
		res.AvgWin = in.grossWin / float64(res.WinCount)
	}
	if res.LossCount > 0 {
		res.AvgLoss = in.grossLoss / float64(res.LossCount)
	}

	// Profit factor edge cases: wins with zero losses is infinitely
	// profitable; zero wins is zero regardless of losses.
	switch {
	case res.WinCount == 0:
		res.ProfitFactor = 0
	case in.grossLoss == 0:
		res.ProfitFactor = math.Inf(1)
	default:
		res.ProfitFactor = in.grossWin / in.grossLoss
	}

	p := res.WinRate / 100
	res.Expectancy = p*res.AvgWin - (1-p)*res.AvgLoss

	// ExpectancyR uses the same formula over the subset of trades that
	// carry an R-multiple, with that subset's own win rate.
	if rTotal := in.rWinCount + in.rLossCount; rTotal > 0 {
		rp := float64(in.rWinCount) / float64(rTotal)
		res.ExpectancyR = rp*in.rAvgWin - (1-rp)*in.rAvgLoss
	}

	// Kelly fraction, clamped to [0,1]. Zero average loss means no edge
	// denominator, reported as 0.
	if res.AvgLoss > 0 {
		b := res.AvgWin / res.AvgLoss
		if b > 0 {
			kelly := p - (1-p)/b
			res.Kelly = clamp(kelly, 0, 1)
		}
	}

	res.Sharpe = sharpeRatio(in.pnls, in.settings.RiskFreeRate)
	res.Sortino = sortinoRatio(in.pnls, in.settings.RiskFreeRate)

	res.Warnings = qualityWarnings(total, in.settings)
}

// sharpeRatio computes mean excess P&L over sample standard deviation.
// Returns 0 for fewer than 2 observations or zero variance - never NaN.
func sharpeRatio(pnls []float64, riskFree float64) float64 {
	if len(pnls) < 2 {
		return 0
	}
	mean := stat.Mean(pnls, nil)
	sd := stat.StdDev(pnls, nil)
	if sd == 0 || math.IsNaN(sd) {
		return 0
	}
	return (mean - riskFree) / sd
}

// sortinoRatio penalizes only downside deviation (returns below zero).
func sortinoRatio(pnls []float64, riskFree float64) float64 {
	if len(pnls) < 2 {
		return 0
	}
	var sumSq float64
	var n int
	for _, v := range pnls {
		if v < 0 {
			sumSq += v * v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	downside := math.Sqrt(sumSq / float64(n))
	if downside == 0 {
		return 0
	}
	return (stat.Mean(pnls, nil) - riskFree) / downside
}

// qualityWarnings lists metrics whose sample is too small to trust.
func qualityWarnings(total int, settings Settings) []Warning {
	var warnings []Warning
	if total < MinTradesExpectancy {
		warnings = append(warnings, Warning{
			Metric: "expectancy",
			Reason: fmt.Sprintf("needs at least %d trades, have %d", MinTradesExpectancy, total),
		})
	}
	if total < MinTradesKelly {
		warnings = append(warnings, Warning{
			Metric: "kelly",
			Reason: fmt.Sprintf("needs at least %d trades, have %d", MinTradesKelly, total),
		})
	}
	if total < MinTradesSharpe {
		warnings = append(warnings, Warning{
			Metric: "sharpe",
			Reason: fmt.Sprintf("needs at least %d trades, have %d", MinTradesSharpe, total),
		})
		warnings = append(warnings, Warning{
			Metric: "sortino",
			Reason: fmt.Sprintf("needs at least %d trades, have %d", MinTradesSharpe, total),
		})
	}
	if settings.MCRuns > 0 && total < MinTradesRuin {
		warnings = append(warnings, Warning{
			Metric: "ror",
			Reason: fmt.Sprintf("resampling %d trades is unreliable below %d", total, MinTradesRuin),
		})
	}
	return warnings
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
