package payout

// MinesHouseEdge is applied once to the fair multiplier.
const MinesHouseEdge = 0.95

// MinesMultiplier returns floor2(0.95 × Π_{i<revealed} (total−i)/(total−mines−i)),
// the inverse survival probability of revealed safe picks minus the edge.
func MinesMultiplier(total, mines, revealed int) float64 {
	if revealed <= 0 {
		return 1
	}
	m := 1.0
	for i := 0; i < revealed; i++ {
		m *= float64(total-i) / float64(total-mines-i)
	}
	return floorProduct(MinesHouseEdge * m)
}
