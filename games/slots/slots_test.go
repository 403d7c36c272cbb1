package slots

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"hrc-casino/engine"
	"hrc-casino/engine/enginetest"
	"hrc-casino/payout"
)

func TestPlayShowsThreeReels(t *testing.T) {
	_, outcome := Game{}.Play(rand.New(rand.NewSource(1)), "")
	if n := len(strings.Fields(outcome)); n != 3 {
		t.Errorf("expected three reels, got %q", outcome)
	}
}

func TestSpinsSettleThroughLedger(t *testing.T) {
	e, l := enginetest.New(t, map[int64]int64{1: 10_000})
	ctx := context.Background()

	expected := int64(10_000)
	for i := 0; i < 20; i++ {
		res, err := e.PlayInstant(ctx, Game{}, 1, engine.Bet{Amount: 100})
		if err != nil {
			t.Fatalf("spin %d: %v", i, err)
		}
		expected += payout.Apply(100, res.Multiplier) - 100
		if res.Settlement.Net() != payout.Apply(100, res.Multiplier)-100 {
			t.Errorf("settlement %+v for %.2fx", res.Settlement, res.Multiplier)
		}
	}
	if got := enginetest.Balance(t, l, 1); got != expected {
		t.Errorf("balance %d, want %d", got, expected)
	}
	acct, _ := l.Account(ctx, 1)
	if acct.GamesPlayed != 20 {
		t.Errorf("games played %d", acct.GamesPlayed)
	}
}
