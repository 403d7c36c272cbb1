// Package payout holds the pure payout rules for every game. Nothing here
// touches balances or I/O; callers feed outcomes in and get multipliers or
// chip amounts back.
package payout

import (
	"math"

	"github.com/shopspring/decimal"
)

// Floor2 truncates a multiplier to two decimals.
func Floor2(x float64) float64 {
	return floorProduct(x)
}

// Apply returns floor(stake × multiplier) as a chip amount. Multipliers are
// total-return: 2.0 on a 100 stake pays 200 including the stake.
func Apply(stake int64, multiplier float64) int64 {
	if stake <= 0 || multiplier <= 0 {
		return 0
	}
	return decimal.NewFromInt(stake).Mul(decimal.NewFromFloat(multiplier)).Floor().IntPart()
}

// floorProduct truncates to cents with a tolerance for float products like 1.27×100.
func floorProduct(x float64) float64 {
	return math.Floor(x*100+1e-9) / 100
}
