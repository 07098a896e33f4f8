package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/aristath/tradepulse/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tradesFromPnLs builds a dated trade sequence from raw P&L values.
func tradesFromPnLs(pnls ...float64) []domain.Trade {
	base := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	trades := make([]domain.Trade, len(pnls))
	for i, pnl := range pnls {
		trades[i] = domain.Trade{
			ID:     string(rune('a' + i)),
			Date:   base.Add(time.Duration(i) * time.Hour),
			Symbol: "ES",
			Side:   domain.SideLong,
			PnL:    pnl,
		}
	}
	return trades
}

func TestCompute_EmptyInput(t *testing.T) {
	assert.Nil(t, Compute(nil, DefaultSettings()))
	assert.Nil(t, Compute([]domain.Trade{}, DefaultSettings()))
}

func TestCompute_ZeroPnLTradesAreNotNoData(t *testing.T) {
	res := Compute(tradesFromPnLs(0, 0, 0), DefaultSettings())
	require.NotNil(t, res)
	assert.Equal(t, 3, res.TradeCount)
	assert.Equal(t, 0, res.WinCount)
	assert.Equal(t, 0, res.LossCount)
	assert.Equal(t, 0.0, res.TotalPnL)
	assert.Equal(t, 0.0, res.ProfitFactor)
}

func TestCompute_ReferenceScenario(t *testing.T) {
	res := Compute(tradesFromPnLs(500, -200, 300, -100, 700, -50, 400, -150, 250, -80), DefaultSettings())
	require.NotNil(t, res)

	assert.Equal(t, 10, res.TradeCount)
	assert.Equal(t, 1570.0, res.TotalPnL)
	assert.Equal(t, 6, res.WinCount)
	assert.Equal(t, 4, res.LossCount)
	assert.Equal(t, 60.0, res.WinRate)
	assert.Equal(t, 0.0, res.RiskOfRuin) // MCRuns defaults to 0: simulation skipped
	assert.Nil(t, res.Ruin)
}

func TestCompute_SingleWinningTrade(t *testing.T) {
	res := Compute(tradesFromPnLs(500), DefaultSettings())
	require.NotNil(t, res)

	assert.Equal(t, 100.0, res.WinRate)
	assert.True(t, math.IsInf(res.ProfitFactor, 1))
	assert.Equal(t, 0.0, res.AvgLoss)
	assert.Equal(t, 1, res.BestStreak)
	assert.Equal(t, 0, res.WorstStreak)
	assert.Equal(t, 0.0, res.Sharpe) // fewer than 2 observations
}

func TestCompute_AllWinners(t *testing.T) {
	res := Compute(tradesFromPnLs(100, 200, 50, 75), DefaultSettings())
	require.NotNil(t, res)

	assert.Equal(t, 100.0, res.WinRate)
	assert.True(t, math.IsInf(res.ProfitFactor, 1))
	assert.Equal(t, 0.0, res.MaxDrawdown)
	assert.Equal(t, 4, res.BestStreak)
	assert.Equal(t, 0.0, res.Kelly) // AvgLoss == 0 reports no Kelly fraction
}

func TestCompute_AllLosers(t *testing.T) {
	res := Compute(tradesFromPnLs(-100, -50, -25), DefaultSettings())
	require.NotNil(t, res)

	assert.Equal(t, 0.0, res.WinRate)
	assert.Equal(t, 0.0, res.ProfitFactor)
	assert.Equal(t, 3, res.WorstStreak)
	assert.Equal(t, 0, res.BestStreak)
}

func TestCompute_Deterministic(t *testing.T) {
	trades := tradesFromPnLs(500, -200, 300, -100, 700)
	settings := DefaultSettings()
	settings.MCRuns = 500
	settings.Seed = 7

	first := Compute(trades, settings)
	second := Compute(trades, settings)

	assert.Equal(t, first, second)
}

func TestCompute_InputNeverMutated(t *testing.T) {
	trades := tradesFromPnLs(300, -100, 200)
	// Deliberately unsorted: swap first and last.
	trades[0], trades[2] = trades[2], trades[0]
	firstID := trades[0].ID

	Compute(trades, DefaultSettings())

	assert.Equal(t, firstID, trades[0].ID)
}

func TestCompute_SortsByDateBeforeWalking(t *testing.T) {
	base := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	trades := []domain.Trade{
		{ID: "late", Date: base.Add(2 * time.Hour), PnL: -50},
		{ID: "early", Date: base, PnL: 100},
		{ID: "mid", Date: base.Add(time.Hour), PnL: 100},
	}

	res := Compute(trades, DefaultSettings())
	require.NotNil(t, res)

	// Walked in date order the curve is 100, 200, 150.
	require.Len(t, res.EquityCurve, 3)
	assert.Equal(t, 100.0, res.EquityCurve[0].Cumulative)
	assert.Equal(t, 200.0, res.EquityCurve[1].Cumulative)
	assert.Equal(t, 150.0, res.EquityCurve[2].Cumulative)
	assert.Equal(t, 2, res.BestStreak)
	assert.Equal(t, 1, res.WorstStreak)
	assert.InDelta(t, 25.0, res.MaxDrawdown, 1e-9) // 50 off a peak of 200
}

func TestCompute_TimeBucketsAlwaysFullSize(t *testing.T) {
	res := Compute(tradesFromPnLs(10), DefaultSettings())
	require.NotNil(t, res)

	assert.Len(t, res.ByDayOfWeek, 7)
	assert.Len(t, res.ByHourOfDay, 24)

	var bucketed int
	for _, b := range res.ByDayOfWeek {
		bucketed += b.Trades
	}
	assert.Equal(t, 1, bucketed)
}

func TestCompute_UndatedTradeSkipsTimeBuckets(t *testing.T) {
	trades := []domain.Trade{{ID: "x", Symbol: "ES", Side: domain.SideLong, PnL: 50}}

	res := Compute(trades, DefaultSettings())
	require.NotNil(t, res)

	var dayTotal, hourTotal int
	for _, b := range res.ByDayOfWeek {
		dayTotal += b.Trades
	}
	for _, b := range res.ByHourOfDay {
		hourTotal += b.Trades
	}
	assert.Equal(t, 0, dayTotal)
	assert.Equal(t, 0, hourTotal)
	// Still counted in the headline stats.
	assert.Equal(t, 1, res.TradeCount)
	assert.Equal(t, 1, res.WinCount)
}

func TestCompute_StrategyAndEmotionBreakdowns(t *testing.T) {
	base := time.Date(2024, 2, 5, 9, 30, 0, 0, time.UTC)
	trades := []domain.Trade{
		{ID: "1", Date: base, PnL: 100, Playbook: "breakout", Emotion: "calm"},
		{ID: "2", Date: base.Add(time.Hour), PnL: -40, Playbook: "breakout", Emotion: "fomo"},
		{ID: "3", Date: base.Add(2 * time.Hour), PnL: 60, Playbook: "reversal", Emotion: "calm"},
	}

	res := Compute(trades, DefaultSettings())
	require.NotNil(t, res)

	breakout := res.ByStrategy["breakout"]
	assert.Equal(t, 2, breakout.Trades)
	assert.Equal(t, 1, breakout.Wins)
	assert.Equal(t, 60.0, breakout.PnL)
	assert.Equal(t, 50.0, breakout.WinRate)

	calm := res.ByEmotion["calm"]
	assert.Equal(t, 2, calm.Trades)
	assert.Equal(t, 2, calm.Wins)
	assert.Equal(t, 160.0, calm.PnL)
}

func TestCompute_MalformedPnLDegradesToZero(t *testing.T) {
	trades := tradesFromPnLs(100, 50)
	trades[1].PnL = math.NaN()

	res := Compute(trades, DefaultSettings())
	require.NotNil(t, res)

	assert.Equal(t, 100.0, res.TotalPnL)
	assert.Equal(t, 1, res.WinCount)
	assert.False(t, math.IsNaN(res.Expectancy))
	assert.False(t, math.IsNaN(res.Sharpe))
}

func TestCompute_MoneySumsExact(t *testing.T) {
	res := Compute(tradesFromPnLs(0.1, 0.2, 0.3), DefaultSettings())
	require.NotNil(t, res)
	assert.Equal(t, 0.6, res.TotalPnL)
}

func TestCompute_NegativeMCRunsClamped(t *testing.T) {
	settings := DefaultSettings()
	settings.MCRuns = -5

	res := Compute(tradesFromPnLs(100, -50), settings)
	require.NotNil(t, res)
	assert.Equal(t, 0.0, res.RiskOfRuin)
	assert.Nil(t, res.Ruin)
}
