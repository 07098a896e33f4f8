package money

import "github.com/aristath/tradepulse/internal/domain"

// MigrateTrade returns a copy of the trade with every monetary field
// re-rounded to its canonical scale: fiat precision for P&L and fees,
// crypto precision for price and quantity. The pass is idempotent -
// migrating an already-migrated trade is a no-op - and never mutates
// the input.
func MigrateTrade(t domain.Trade) domain.Trade {
	t.PnL = Round(t.PnL, FiatScale)
	t.Fees = Round(t.Fees, FiatScale)
	t.Price = Round(t.Price, CryptoScale)
	t.Quantity = Round(t.Quantity, CryptoScale)
	if t.RMultiple != nil {
		r := Round(*t.RMultiple, FiatScale)
		t.RMultiple = &r
	}
	return t
}
