// Package roulette is a single-zero wheel shared by everyone in a channel.
package roulette

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"hrc-casino/engine"
	"hrc-casino/games/round"
	"hrc-casino/payout"
)

// DefaultWindow is how long bets stay open.
const DefaultWindow = 30 * time.Second

// Config tunes a roulette table.
type Config struct {
	Window time.Duration
	// Spin overrides the wheel, mainly for tests.
	Spin func(rng *rand.Rand) int
}

// New returns the roulette session factory.
func New(cfg Config) engine.Factory {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Spin == nil {
		cfg.Spin = func(rng *rand.Rand) int { return rng.Intn(37) }
	}
	return round.NewFactory(round.Rules{
		Window: cfg.Window,
		Normalize: func(raw string) (string, error) {
			sel, err := payout.ParseRouletteSelection(raw)
			if err != nil {
				return "", err
			}
			return sel.String(), nil
		},
		Draw: func(rng *rand.Rand) round.Draw {
			n := cfg.Spin(rng)
			return Result(n)
		},
	})
}

// Result builds the shared draw for a wheel number.
func Result(n int) round.Draw {
	color := payout.RouletteColor(n)
	return round.Draw{
		Outcome: fmt.Sprintf("%d %s", n, color),
		Board:   []string{strconv.Itoa(n), color},
		Payout: func(selection string, stake int64) int64 {
			sel, err := payout.ParseRouletteSelection(selection)
			if err != nil {
				return 0
			}
			return stake * payout.RouletteMultiplier(sel, n)
		},
	}
}
