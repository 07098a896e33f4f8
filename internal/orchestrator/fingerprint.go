package orchestrator

import (
	"fmt"

	"github.com/aristath/tradepulse/internal/domain"
	"github.com/aristath/tradepulse/internal/money"
)

// Fingerprint summarizes a trade list into a cheap change-detection key:
// trade count, first and last trade IDs, and the integer-cent sum of
// P&L. Two lists that differ only in interior trades with offsetting
// P&L collide, which is an accepted tradeoff: the fingerprint exists to
// skip recomputes on identical data, not to prove identity.
func Fingerprint(trades []domain.Trade) string {
	if len(trades) == 0 {
		return "0"
	}
	cents := int64(0)
	for _, t := range trades {
		cents += money.ToUnits(t.PnL, money.FiatScale)
	}
	return fmt.Sprintf("%d:%s:%s:%d", len(trades), trades[0].ID, trades[len(trades)-1].ID, cents)
}
