// Package horse_racing is a channel-wide race: bets pick one of four horses
// and every bet on the winner returns three times its stake.
package horse_racing

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"hrc-casino/engine"
	"hrc-casino/games/round"
	"hrc-casino/payout"
)

// DefaultWindow is how long bets stay open before the gates open.
const DefaultWindow = 45 * time.Second

// Horse is one runner.
type Horse struct {
	ID   int
	Name string
	Icon string
}

// Horses is the fixed field.
var Horses = []Horse{
	{ID: 1, Name: "Seabiscuit", Icon: "🐴"},
	{ID: 2, Name: "Glue Factory", Icon: "🏇"},
	{ID: 3, Name: "Hoof Hearted", Icon: "🐎"},
	{ID: 4, Name: "Galloping Ghost", Icon: "🦄"},
}

// Config tunes a race.
type Config struct {
	Window time.Duration
	// Order overrides the finishing order (horse ids, winner first), mainly for tests.
	Order func(rng *rand.Rand) []int
}

// New returns the race session factory.
func New(cfg Config) engine.Factory {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Order == nil {
		cfg.Order = func(rng *rand.Rand) []int {
			order := make([]int, len(Horses))
			for i, p := range rng.Perm(len(Horses)) {
				order[i] = Horses[p].ID
			}
			return order
		}
	}
	return round.NewFactory(round.Rules{
		Window:    cfg.Window,
		Normalize: normalizePick,
		Draw: func(rng *rand.Rand) round.Draw {
			return Result(cfg.Order(rng))
		},
	})
}

// ParseHorse accepts a horse number or name.
func ParseHorse(raw string) (Horse, error) {
	raw = strings.TrimSpace(raw)
	if id, err := strconv.Atoi(raw); err == nil {
		for _, h := range Horses {
			if h.ID == id {
				return h, nil
			}
		}
	}
	for _, h := range Horses {
		if strings.EqualFold(h.Name, raw) {
			return h, nil
		}
	}
	return Horse{}, fmt.Errorf("unknown horse %q (pick 1-%d)", raw, len(Horses))
}

func normalizePick(raw string) (string, error) {
	h, err := ParseHorse(raw)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(h.ID), nil
}

// Result builds the shared draw for a finishing order.
func Result(order []int) round.Draw {
	board := make([]string, 0, len(order))
	for place, id := range order {
		h := Horses[id-1]
		board = append(board, fmt.Sprintf("%d. %s %s", place+1, h.Icon, h.Name))
	}
	winner := Horses[order[0]-1]
	return round.Draw{
		Outcome: fmt.Sprintf("%s %s wins", winner.Icon, winner.Name),
		Board:   board,
		Payout: func(selection string, stake int64) int64 {
			picked, _ := strconv.Atoi(selection)
			return payout.RacePayout(stake, picked, winner.ID)
		},
	}
}
