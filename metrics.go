package skinledger

import "github.com/shopspring/decimal"

// SellFactor is what remains of a sale on the market once the platform fee
// (5%) and the game fee (10%) are deducted.
var SellFactor = decimal.RequireFromString("0.85")

// zeroGuard replaces a zero base in PercentChange.
var zeroGuard = decimal.RequireFromString("0.01")

// PercentChange returns (new-old)/old as a fraction.
//
// A zero old value is replaced by 0.01 so the result is always defined, and
// no change at all (zero to zero) is 0.
func PercentChange(old, new Money) Percent {
	base := old.value
	if base.IsZero() {
		if new.value.IsZero() {
			return 0
		}
		base = zeroGuard
	}
	return Percent(new.value.Sub(base).Div(base).InexactFloat64())
}

// ExpectedProfit returns the profit expected from selling every unsold row
// at its current value, after market fees.
//
// Sold rows are ignored: their profit is already realised.
func ExpectedProfit(rows []Row) Money {
	var sum Money
	for _, r := range rows {
		if r.IsSold() {
			continue
		}
		sum = sum.Add(r.Difference())
	}
	return sum.MulFactor(SellFactor)
}
