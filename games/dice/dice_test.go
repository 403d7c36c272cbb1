package dice

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"hrc-casino/engine"
	"hrc-casino/engine/enginetest"
	"hrc-casino/payout"
)

func TestValidate(t *testing.T) {
	for _, ok := range []string{"seven", "Over 7", "under-7", "DOUBLES"} {
		if err := (Game{}).Validate(ok); err != nil {
			t.Errorf("%q: %v", ok, err)
		}
	}
	if err := (Game{}).Validate("snake eyes"); err == nil {
		t.Error("expected error for unknown bet")
	}
}

func TestPlayScoresRoll(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		mult, outcome := Game{}.Play(rng, "doubles")
		if mult != 0 && mult != 5 {
			t.Fatalf("doubles paid %.2f on %s", mult, outcome)
		}
	}
}

func TestPlayInstantSettlesOnce(t *testing.T) {
	e, l := enginetest.New(t, map[int64]int64{1: 1000})
	ctx := context.Background()

	res, err := e.PlayInstant(ctx, Game{}, 1, engine.Bet{Amount: 100, Selection: "even"})
	if err != nil {
		t.Fatal(err)
	}
	want := 900 + payout.Apply(100, res.Multiplier)
	if res.Balance != want || enginetest.Balance(t, l, 1) != want {
		t.Errorf("balance %d, want %d", res.Balance, want)
	}
	acct, _ := l.Account(ctx, 1)
	if acct.GamesPlayed != 1 {
		t.Errorf("games played %d", acct.GamesPlayed)
	}
}

func TestPlayInstantRejects(t *testing.T) {
	e, l := enginetest.New(t, map[int64]int64{1: 50})
	ctx := context.Background()

	if _, err := e.PlayInstant(ctx, Game{}, 1, engine.Bet{Amount: 10, Selection: "boxcars"}); !errors.Is(err, engine.ErrInvalidAction) {
		t.Errorf("bad selection: %v", err)
	}
	if _, err := e.PlayInstant(ctx, Game{}, 1, engine.Bet{Amount: 100, Selection: "odd"}); err == nil {
		t.Error("expected insufficient funds")
	}
	if got := enginetest.Balance(t, l, 1); got != 50 {
		t.Errorf("balance %d", got)
	}
}
