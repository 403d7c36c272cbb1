package payout

import "math/rand"

// SlotSymbol is one reel face with its draw weight and three-of-a-kind multiplier.
type SlotSymbol struct {
	Emoji      string
	Weight     int
	Multiplier float64
}

var slotSymbols = []SlotSymbol{
	{Emoji: "🍒", Weight: 30, Multiplier: 2},
	{Emoji: "🍋", Weight: 25, Multiplier: 3},
	{Emoji: "🍊", Weight: 20, Multiplier: 4},
	{Emoji: "🍇", Weight: 15, Multiplier: 5},
	{Emoji: "💎", Weight: 8, Multiplier: 10},
	{Emoji: sevenEmoji, Weight: 2, Multiplier: 50},
}

const (
	sevenEmoji             = "7️⃣"
	slotsJackpotMultiplier = 100
	slotsPairMultiplier    = 1.5
)

// SpinSlots draws three weighted reels.
func SpinSlots(rng *rand.Rand) [3]SlotSymbol {
	total := 0
	for _, s := range slotSymbols {
		total += s.Weight
	}
	var reels [3]SlotSymbol
	for i := range reels {
		pick := rng.Intn(total)
		for _, s := range slotSymbols {
			if pick < s.Weight {
				reels[i] = s
				break
			}
			pick -= s.Weight
		}
	}
	return reels
}

// SlotsMultiplier scores a spin: triple seven 100×, other triples their
// symbol value, any pair 1.5×, otherwise 0.
func SlotsMultiplier(reels [3]SlotSymbol) float64 {
	a, b, c := reels[0].Emoji, reels[1].Emoji, reels[2].Emoji
	if a == b && b == c {
		if a == sevenEmoji {
			return slotsJackpotMultiplier
		}
		return reels[0].Multiplier
	}
	if a == b || b == c || a == c {
		return slotsPairMultiplier
	}
	return 0
}
