// Package money provides integer-unit monetary arithmetic.
//
// All summation routes through int64 unit accumulation so that adding
// thousands of monetary floats never picks up binary-fraction drift:
// Sum([]float64{0.1, 0.2}, FiatScale) is exactly 0.3.
package money

import "math"

const (
	// FiatScale is the unit scale for fiat-denominated fields (cents).
	// P&L and fees always use this scale regardless of instrument.
	FiatScale int64 = 100

	// CryptoScale is the unit scale for crypto price/quantity fields
	// (8 decimal places, satoshi-style).
	CryptoScale int64 = 100_000_000
)

// ToUnits converts a float value to integer units at the given scale,
// rounding half to even at the unit boundary.
func ToUnits(value float64, scale int64) int64 {
	return int64(math.RoundToEven(value * float64(scale)))
}

// FromUnits converts integer units back to a float value.
func FromUnits(units int64, scale int64) float64 {
	return float64(units) / float64(scale)
}

// Round rounds a monetary value to the given scale's precision.
func Round(value float64, scale int64) float64 {
	return FromUnits(ToUnits(value, scale), scale)
}

// Sum adds monetary values through integer accumulation. The result is
// independent of input order.
func Sum(values []float64, scale int64) float64 {
	var units int64
	for _, v := range values {
		units += ToUnits(v, scale)
	}
	return FromUnits(units, scale)
}

// Accumulator keeps a drift-free running total in integer units.
// The zero value is not usable - construct with NewAccumulator.
type Accumulator struct {
	units int64
	scale int64
}

// NewAccumulator creates an accumulator for the given scale.
func NewAccumulator(scale int64) *Accumulator {
	if scale <= 0 {
		scale = FiatScale
	}
	return &Accumulator{scale: scale}
}

// Add adds a value to the running total.
func (a *Accumulator) Add(value float64) {
	a.units += ToUnits(value, a.scale)
}

// Subtract removes a value from the running total.
func (a *Accumulator) Subtract(value float64) {
	a.units -= ToUnits(value, a.scale)
}

// Result returns the current total as a float.
func (a *Accumulator) Result() float64 {
	return FromUnits(a.units, a.scale)
}

// Units returns the current total in raw integer units.
func (a *Accumulator) Units() int64 {
	return a.units
}
