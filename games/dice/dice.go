// Package dice is an instant two-dice roll against the house.
package dice

import (
	"fmt"
	"math/rand"
	"strings"

	"hrc-casino/payout"
)

// Faces renders die values.
var Faces = map[int]string{1: "⚀", 2: "⚁", 3: "⚂", 4: "⚃", 5: "⚄", 6: "⚅"}

// Game plays one roll per bet. Selections: seven, over_7, under_7, even,
// odd, doubles.
type Game struct{}

// Name implements engine.InstantGame.
func (Game) Name() string { return "dice" }

// Validate checks the bet kind.
func (Game) Validate(selection string) error {
	return payout.ValidDiceBet(normalize(selection))
}

// Play rolls two dice and scores the bet.
func (Game) Play(rng *rand.Rand, selection string) (float64, string) {
	d1, d2 := rng.Intn(6)+1, rng.Intn(6)+1
	return payout.DiceMultiplier(normalize(selection), d1, d2),
		fmt.Sprintf("%s %s (%d)", Faces[d1], Faces[d2], d1+d2)
}

func normalize(selection string) string {
	s := strings.ToLower(strings.TrimSpace(selection))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}
