// Package slots is a three-reel instant spin.
package slots

import (
	"math/rand"
	"strings"

	"hrc-casino/payout"
)

// Game plays one spin per bet.
type Game struct{}

// Name implements engine.InstantGame.
func (Game) Name() string { return "slots" }

// Validate accepts any selection; slots have no bet options.
func (Game) Validate(string) error { return nil }

// Play spins the reels and scores them.
func (Game) Play(rng *rand.Rand, _ string) (float64, string) {
	reels := payout.SpinSlots(rng)
	faces := make([]string, len(reels))
	for i, r := range reels {
		faces[i] = r.Emoji
	}
	return payout.SlotsMultiplier(reels), strings.Join(faces, " ")
}
