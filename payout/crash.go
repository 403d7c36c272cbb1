package payout

import "math/rand"

const (
	// CrashInstantChance is the probability the round crashes at 1.00.
	CrashInstantChance = 0.03
	// CrashMax caps the crash point.
	CrashMax = 50.0
)

// DrawCrashPoint draws the hidden crash point: 3% instant crash, otherwise
// 0.99/(1−U) clamped to [1.00, 50.00] and floored to two decimals.
func DrawCrashPoint(rng *rand.Rand) float64 {
	if rng.Float64() < CrashInstantChance {
		return 1.00
	}
	return CrashPointFromUniform(rng.Float64())
}

// CrashPointFromUniform maps U in [0,1) onto the crash distribution.
func CrashPointFromUniform(u float64) float64 {
	if u >= 1 {
		return CrashMax
	}
	cp := 0.99 / (1 - u)
	if cp < 1 {
		cp = 1
	}
	if cp > CrashMax {
		cp = CrashMax
	}
	return floorProduct(cp)
}

// NextCrashMultiplier grows the live multiplier by one tick: ×1.25 below 2,
// ×1.2 below 5, ×1.1 above.
func NextCrashMultiplier(m float64) float64 {
	switch {
	case m < 2:
		return floorProduct(m * 1.25)
	case m < 5:
		return floorProduct(m * 1.2)
	default:
		return floorProduct(m * 1.1)
	}
}
