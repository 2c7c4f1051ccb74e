package service

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// SplitAmount returns percent% of base. The product is computed in decimal so
// that e.g. 30% of 0.1 is 0.03 and not 0.030000000000000002.
func SplitAmount(base, percent float64) float64 {
	share := decimal.NewFromFloat(base).
		Mul(decimal.NewFromFloat(percent)).
		Div(hundred)
	return share.InexactFloat64()
}

// ToTokens converts a naira amount into BPT at the configured price.
func ToTokens(naira, bptPrice float64) float64 {
	if bptPrice <= 0 {
		return 0
	}
	return decimal.NewFromFloat(naira).
		Div(decimal.NewFromFloat(bptPrice)).
		InexactFloat64()
}

// FromTokens values a BPT amount in naira.
func FromTokens(tokens, bptPrice float64) float64 {
	return decimal.NewFromFloat(tokens).
		Mul(decimal.NewFromFloat(bptPrice)).
		InexactFloat64()
}

// PoolShare is one slice of a revenue split.
type PoolShare struct {
	Percent float64
	Amount  float64
}

// SplitPools applies the company / executive / strategic percentages to base.
// No remainder is carried between pools.
func SplitPools(base float64, company, executive, strategic float64) (c, e, s PoolShare) {
	c = PoolShare{Percent: company, Amount: SplitAmount(base, company)}
	e = PoolShare{Percent: executive, Amount: SplitAmount(base, executive)}
	s = PoolShare{Percent: strategic, Amount: SplitAmount(base, strategic)}
	return c, e, s
}
