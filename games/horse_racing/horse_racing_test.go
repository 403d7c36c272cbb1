package horse_racing

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"hrc-casino/engine"
	"hrc-casino/engine/enginetest"
)

func TestParseHorse(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"1", 1, true},
		{" 4 ", 4, true},
		{"hoof hearted", 3, true},
		{"5", 0, false},
		{"Pegasus", 0, false},
	}
	for _, tt := range tests {
		h, err := ParseHorse(tt.in)
		if (err == nil) != tt.ok || (tt.ok && h.ID != tt.want) {
			t.Errorf("ParseHorse(%q) = %d, %v", tt.in, h.ID, err)
		}
	}
}

func TestRaceWinnerPaysThreeTimes(t *testing.T) {
	e, l := enginetest.New(t, map[int64]int64{1: 1000, 2: 1000})
	e.Register(engine.HorseRace, New(Config{
		Window: time.Hour,
		Order:  func(*rand.Rand) []int { return []int{3, 1, 4, 2} },
	}))
	ctx := context.Background()
	key := engine.ChannelKey(engine.HorseRace, "track")

	if _, err := e.StartSession(ctx, key, 1, engine.StartRequest{Bet: engine.Bet{Amount: 100, Selection: "3"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.JoinSession(ctx, key, 2, engine.Bet{Amount: 100, Selection: "Seabiscuit"}); err != nil {
		t.Fatal(err)
	}

	snap, err := enginetest.Session(t, e, key).Expire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Outcome != "🐎 Hoof Hearted wins" || len(snap.Board) != 4 {
		t.Errorf("unexpected outcome %q board %v", snap.Outcome, snap.Board)
	}
	if got := enginetest.Balance(t, l, 1); got != 1200 {
		t.Errorf("winner balance = %d, want 1200", got)
	}
	if got := enginetest.Balance(t, l, 2); got != 900 {
		t.Errorf("loser balance = %d, want 900", got)
	}
}

func TestDefaultOrderPlacesEveryHorseOnce(t *testing.T) {
	e, _ := enginetest.New(t, map[int64]int64{1: 1000}, engine.WithSeed(func() int64 { return 42 }))
	e.Register(engine.HorseRace, New(Config{Window: time.Hour}))
	ctx := context.Background()
	key := engine.ChannelKey(engine.HorseRace, "track")

	if _, err := e.StartSession(ctx, key, 1, engine.StartRequest{Bet: engine.Bet{Amount: 10, Selection: "1"}}); err != nil {
		t.Fatal(err)
	}
	snap, err := enginetest.Session(t, e, key).Expire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[string]bool)
	for _, line := range snap.Board {
		seen[line[3:]] = true
	}
	if len(seen) != len(Horses) {
		t.Errorf("expected every horse placed once, board %v", snap.Board)
	}
}
