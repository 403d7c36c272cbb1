package roulette

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"hrc-casino/engine"
	"hrc-casino/engine/enginetest"
	"hrc-casino/ledger"
)

func fixedWheel(n int) func(*rand.Rand) int {
	return func(*rand.Rand) int { return n }
}

func TestRoundSettlesAgainstSharedNumber(t *testing.T) {
	e, l := enginetest.New(t, map[int64]int64{1: 1000, 2: 1000, 3: 1000})
	e.Register(engine.Roulette, New(Config{Window: time.Hour, Spin: fixedWheel(7)}))
	ctx := context.Background()
	key := engine.ChannelKey(engine.Roulette, "chan")

	if _, err := e.StartSession(ctx, key, 1, engine.StartRequest{Bet: engine.Bet{Amount: 100, Selection: "7"}}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := e.JoinSession(ctx, key, 1, engine.Bet{Amount: 50, Selection: "red"}); err != nil {
		t.Fatalf("join red: %v", err)
	}
	if _, err := e.JoinSession(ctx, key, 2, engine.Bet{Amount: 200, Selection: "black"}); err != nil {
		t.Fatalf("join black: %v", err)
	}
	if _, err := e.JoinSession(ctx, key, 3, engine.Bet{Amount: 30, Selection: "dozen1"}); err != nil {
		t.Fatalf("join dozen: %v", err)
	}
	if got := enginetest.Balance(t, l, 1); got != 850 {
		t.Fatalf("stakes should be reserved on join, balance %d", got)
	}

	s := enginetest.Session(t, e, key)
	snap, err := s.Expire(ctx)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if snap.Status != engine.StatusSettled || snap.Outcome != "7 red" {
		t.Errorf("unexpected final snapshot: %s %q", snap.Status, snap.Outcome)
	}

	// 100 on 7 returns 3600, 50 on red returns 100.
	if got := enginetest.Balance(t, l, 1); got != 850+3600+100 {
		t.Errorf("user 1 balance = %d, want %d", got, 850+3600+100)
	}
	if got := enginetest.Balance(t, l, 2); got != 800 {
		t.Errorf("user 2 balance = %d, want 800", got)
	}
	if got := enginetest.Balance(t, l, 3); got != 970+90 {
		t.Errorf("user 3 balance = %d, want %d", got, 970+90)
	}
	if len(snap.Settlements) != 4 {
		t.Errorf("expected a settlement per bet, got %d", len(snap.Settlements))
	}

	acct, _ := l.Account(ctx, 2)
	if acct.LifetimeLost != 200 || acct.GamesPlayed != 1 {
		t.Errorf("loser stats not recorded: %+v", acct)
	}
}

func TestJoinAfterCloseIsRejected(t *testing.T) {
	e, l := enginetest.New(t, map[int64]int64{1: 1000, 2: 1000})
	e.Register(engine.Roulette, New(Config{Window: time.Hour, Spin: fixedWheel(0)}))
	ctx := context.Background()
	key := engine.ChannelKey(engine.Roulette, "chan")

	if _, err := e.StartSession(ctx, key, 1, engine.StartRequest{Bet: engine.Bet{Amount: 100, Selection: "odd"}}); err != nil {
		t.Fatal(err)
	}
	s := enginetest.Session(t, e, key)
	if _, err := s.Expire(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Join(ctx, 2, engine.Bet{Amount: 100, Selection: "red"}); !errors.Is(err, engine.ErrRoundClosed) {
		t.Errorf("expected ErrRoundClosed, got %v", err)
	}
	if got := enginetest.Balance(t, l, 2); got != 1000 {
		t.Errorf("rejected join must not reserve, balance %d", got)
	}
	// Zero loses every outside bet.
	if got := enginetest.Balance(t, l, 1); got != 900 {
		t.Errorf("odd on zero should lose, balance %d", got)
	}
}

func TestJoinAfterDeadlineIsRejected(t *testing.T) {
	now := time.Now()
	e, l := enginetest.New(t, map[int64]int64{1: 1000, 2: 1000}, engine.WithClock(func() time.Time { return now }))
	e.Register(engine.Roulette, New(Config{Window: time.Minute, Spin: fixedWheel(7)}))
	ctx := context.Background()
	key := engine.ChannelKey(engine.Roulette, "late")

	if _, err := e.StartSession(ctx, key, 1, engine.StartRequest{Bet: engine.Bet{Amount: 100, Selection: "red"}}); err != nil {
		t.Fatal(err)
	}
	// The close timer has not fired, but the window is over.
	now = now.Add(time.Minute)
	if _, err := e.JoinSession(ctx, key, 2, engine.Bet{Amount: 100, Selection: "red"}); !errors.Is(err, engine.ErrRoundClosed) {
		t.Errorf("expected ErrRoundClosed, got %v", err)
	}
	if got := enginetest.Balance(t, l, 2); got != 1000 {
		t.Errorf("late bet reserved chips, balance %d", got)
	}
}

func TestEmptyRoundIsDiscarded(t *testing.T) {
	e, l := enginetest.New(t, map[int64]int64{1: 1000})
	spun := false
	e.Register(engine.Roulette, New(Config{Window: time.Hour, Spin: func(*rand.Rand) int { spun = true; return 1 }}))
	ctx := context.Background()
	key := engine.ChannelKey(engine.Roulette, "empty")

	if _, err := e.StartSession(ctx, key, 1, engine.StartRequest{}); err != nil {
		t.Fatal(err)
	}
	snap, err := enginetest.Session(t, e, key).Expire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Status != engine.StatusCancelled || spun {
		t.Errorf("empty round should cancel without spinning, status %s spun %v", snap.Status, spun)
	}
	hist, _ := l.History(ctx, 1, 10)
	for _, tx := range hist {
		if tx.Kind != ledger.KindExchange && tx.Kind != ledger.KindDeposit {
			t.Errorf("empty round wrote a ledger record: %+v", tx)
		}
	}
}

func TestJoinWithoutFundsLeavesNoBet(t *testing.T) {
	e, _ := enginetest.New(t, map[int64]int64{1: 1000, 2: 10})
	e.Register(engine.Roulette, New(Config{Window: time.Hour}))
	ctx := context.Background()
	key := engine.ChannelKey(engine.Roulette, "chan")

	if _, err := e.StartSession(ctx, key, 1, engine.StartRequest{Bet: engine.Bet{Amount: 100, Selection: "red"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.JoinSession(ctx, key, 2, engine.Bet{Amount: 100, Selection: "black"}); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	snap, _ := e.Snapshot(key)
	if len(snap.Players) != 1 {
		t.Errorf("failed join should not add a participant, got %d", len(snap.Players))
	}
}

func TestInvalidSelection(t *testing.T) {
	e, _ := enginetest.New(t, map[int64]int64{1: 1000})
	e.Register(engine.Roulette, New(Config{Window: time.Hour}))
	_, err := e.StartSession(context.Background(), engine.ChannelKey(engine.Roulette, "c"), 1,
		engine.StartRequest{Bet: engine.Bet{Amount: 10, Selection: "purple"}})
	if !errors.Is(err, engine.ErrInvalidAction) {
		t.Errorf("expected ErrInvalidAction, got %v", err)
	}
}

func TestWindowTimerResolvesRound(t *testing.T) {
	e, l := enginetest.New(t, map[int64]int64{1: 1000})
	e.Register(engine.Roulette, New(Config{Window: 20 * time.Millisecond, Spin: fixedWheel(2)}))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	final := make(chan engine.Snapshot, 1)
	e.Subscribe(engine.ListenerFunc(func(s engine.Snapshot) {
		if s.Terminal {
			final <- s
		}
	}))
	go e.Run(ctx, time.Hour)

	key := engine.ChannelKey(engine.Roulette, "timed")
	if _, err := e.StartSession(ctx, key, 1, engine.StartRequest{Bet: engine.Bet{Amount: 100, Selection: "black"}}); err != nil {
		t.Fatal(err)
	}
	select {
	case snap := <-final:
		if snap.Status != engine.StatusSettled {
			t.Errorf("status %s", snap.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("round never resolved")
	}
	if got := enginetest.Balance(t, l, 1); got != 1100 {
		t.Errorf("black on 2 should pay 200, balance %d", got)
	}
}
