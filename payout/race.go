package payout

// RaceMultiplier pays every bet on the winning horse.
const RaceMultiplier = 3

// RacePayout returns the total return for a bet on picked when winner won.
func RacePayout(stake int64, picked, winner int) int64 {
	if picked != winner {
		return 0
	}
	return stake * RaceMultiplier
}
