package analytics

import (
	"encoding/json"
	"math"
)

// BucketStats aggregates trades that share a time slot, strategy or emotion.
type BucketStats struct {
	Trades  int     `json:"trades" msgpack:"trades"`
	Wins    int     `json:"wins" msgpack:"wins"`
	Losses  int     `json:"losses" msgpack:"losses"`
	PnL     float64 `json:"pnl" msgpack:"pnl"`
	WinRate float64 `json:"winRate" msgpack:"win_rate"`
}

// EquityPoint is one step of the cumulative equity curve.
type EquityPoint struct {
	PnL        float64 `json:"pnl" msgpack:"pnl"`
	Cumulative float64 `json:"cumulative" msgpack:"cumulative"`
}

// Warning flags a metric whose sample size is too small to be
// statistically meaningful. Warnings never block computation.
type Warning struct {
	Metric string `json:"metric" msgpack:"metric"`
	Reason string `json:"reason" msgpack:"reason"`
}

// RuinEstimate is the Monte Carlo risk-of-ruin output composed into the
// result when MCRuns > 0.
type RuinEstimate struct {
	RoR float64 `json:"ror" msgpack:"ror"` // Probability of ruin, percent [0,100]
	P10 float64 `json:"p10" msgpack:"p10"` // 10th percentile final equity
	P50 float64 `json:"p50" msgpack:"p50"`
	P90 float64 `json:"p90" msgpack:"p90"`
}

// Result is the immutable snapshot produced by a computation. It is
// replaced wholesale on every accepted compute, never patched in place.
type Result struct {
	TradeCount int     `json:"tradeCount" msgpack:"trade_count"`
	TotalPnL   float64 `json:"totalPnl" msgpack:"total_pnl"`
	TotalFees  float64 `json:"totalFees" msgpack:"total_fees"`
	WinCount   int     `json:"winCount" msgpack:"win_count"`
	LossCount  int     `json:"lossCount" msgpack:"loss_count"`
	WinRate    float64 `json:"winRate" msgpack:"win_rate"`

	AvgWin  float64 `json:"avgWin" msgpack:"avg_win"`
	AvgLoss float64 `json:"avgLoss" msgpack:"avg_loss"` // Positive magnitude

	// ProfitFactor is gross profit / gross loss. +Inf when there are wins
	// and no losses, 0 when there are no wins. Serialized to JSON as null
	// when infinite.
	ProfitFactor float64 `json:"profitFactor" msgpack:"profit_factor"`

	Expectancy  float64 `json:"expectancy" msgpack:"expectancy"`
	ExpectancyR float64 `json:"expectancyR" msgpack:"expectancy_r"`
	Kelly       float64 `json:"kelly" msgpack:"kelly"`
	Sharpe      float64 `json:"sharpe" msgpack:"sharpe"`
	Sortino     float64 `json:"sortino" msgpack:"sortino"`

	// MaxDrawdown is the largest peak-to-trough equity decline, as a
	// positive percentage of the peak.
	MaxDrawdown float64 `json:"maxDd" msgpack:"max_dd"`

	// RiskOfRuin is the Monte Carlo ruin probability in percent.
	// Always 0 when MCRuns is 0 (simulation skipped).
	RiskOfRuin float64       `json:"ror" msgpack:"ror"`
	Ruin       *RuinEstimate `json:"ruin,omitempty" msgpack:"ruin"`

	BestStreak  int `json:"bestStreak" msgpack:"best_streak"`   // Longest run of consecutive wins
	WorstStreak int `json:"worstStreak" msgpack:"worst_streak"` // Longest run of consecutive losses

	EquityCurve []EquityPoint `json:"equityCurve" msgpack:"equity_curve"`

	ByDayOfWeek [7]BucketStats  `json:"byDayOfWeek" msgpack:"by_day_of_week"`
	ByHourOfDay [24]BucketStats `json:"byHourOfDay" msgpack:"by_hour_of_day"`

	ByStrategy map[string]BucketStats `json:"byStrategy" msgpack:"by_strategy"`
	ByEmotion  map[string]BucketStats `json:"byEmotion" msgpack:"by_emotion"`

	Warnings []Warning `json:"warnings" msgpack:"warnings"`
}

// MarshalJSON handles the documented ProfitFactor = +Inf edge case, which
// encoding/json cannot represent. Infinite profit factor serializes as null.
func (r *Result) MarshalJSON() ([]byte, error) {
	type alias Result
	aux := struct {
		ProfitFactor *float64 `json:"profitFactor"`
		*alias
	}{alias: (*alias)(r)}

	if !math.IsInf(r.ProfitFactor, 0) {
		pf := r.ProfitFactor
		aux.ProfitFactor = &pf
	}
	return json.Marshal(aux)
}

// UnmarshalJSON mirrors MarshalJSON: a null profit factor decodes to +Inf.
func (r *Result) UnmarshalJSON(data []byte) error {
	type alias Result
	aux := struct {
		ProfitFactor *float64 `json:"profitFactor"`
		*alias
	}{alias: (*alias)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.ProfitFactor == nil {
		r.ProfitFactor = math.Inf(1)
	} else {
		r.ProfitFactor = *aux.ProfitFactor
	}
	return nil
}
