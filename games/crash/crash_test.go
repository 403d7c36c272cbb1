package crash

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

func crashAt(cp float64) func(*rand.Rand) float64 {
	return func(*rand.Rand) float64 { return cp }
}

// launch starts a round with the given bets and moves it to running.
func launch(t *testing.T, cp float64, bets map[int64]engine.Bet) (*Game, *engine.Engine, *ledger.Ledger) {
	t.Helper()
	chips := map[int64]int64{}
	for u := range bets {
		chips[u] = 1000
	}
	e, l := enginetest.New(t, chips)
	e.Register(engine.Crash, New(Config{Window: time.Hour, Tick: time.Hour, CrashPoint: crashAt(cp)}))
	ctx := context.Background()
	key := engine.ChannelKey(engine.Crash, "rocket")

	if _, err := e.StartSession(ctx, key, 0, engine.StartRequest{}); err != nil {
		t.Fatal(err)
	}
	for u, b := range bets {
		if _, err := e.JoinSession(ctx, key, u, b); err != nil {
			t.Fatalf("join %d: %v", u, err)
		}
	}
	g := enginetest.Session(t, e, key).(*Game)
	snap, err := g.Expire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Status != engine.StatusRunning && !snap.Terminal {
		t.Fatalf("round did not launch: %s", snap.Status)
	}
	return g, e, l
}

func TestCrashPointWinsTies(t *testing.T) {
	g, _, l := launch(t, 2.43, map[int64]engine.Bet{
		1: {Amount: 100, AutoCashout: 2.43},
		2: {Amount: 100, AutoCashout: 2.00},
	})
	for i := 0; i < 4; i++ {
		g.onTick()
	}
	snap := g.Snapshot()
	if snap.Status != engine.StatusCrashed || snap.Multiplier != 2.43 {
		t.Fatalf("expected crash at 2.43, got %s at %.2f", snap.Status, snap.Multiplier)
	}
	if got := enginetest.Balance(t, l, 1); got != 900 {
		t.Errorf("target equal to crash point must lose, balance %d", got)
	}
	if got := enginetest.Balance(t, l, 2); got != 1100 {
		t.Errorf("target crossed below crash point pays at target, balance %d", got)
	}
}

func TestAutoCashoutPaysExactTarget(t *testing.T) {
	g, _, l := launch(t, 10, map[int64]engine.Bet{1: {Amount: 100, AutoCashout: 1.5}})

	// 1.00 -> 1.25 -> 1.56; the target is paid on the tick that sees 1.56.
	for i := 0; i < 3; i++ {
		g.onTick()
	}
	if got := enginetest.Balance(t, l, 1); got != 1050 {
		t.Errorf("balance %d, want 1050", got)
	}
	snap := g.Snapshot()
	if snap.Players[0].State != "cashed_out" || snap.Outcome != "" {
		t.Errorf("player %+v outcome %q", snap.Players[0], snap.Outcome)
	}
}

func TestInstantCrash(t *testing.T) {
	g, _, l := launch(t, 1.00, map[int64]engine.Bet{1: {Amount: 100, AutoCashout: 1.01}})
	if g.onTick() {
		t.Error("ticker should stop after the crash")
	}
	if snap := g.Snapshot(); snap.Status != engine.StatusCrashed || snap.Outcome != "crashed @ 1.00x" {
		t.Errorf("status %s outcome %q", snap.Status, snap.Outcome)
	}
	if got := enginetest.Balance(t, l, 1); got != 900 {
		t.Errorf("balance %d", got)
	}
}

func TestInstantCrashAllowsNoCashOut(t *testing.T) {
	g, e, l := launch(t, 1.00, map[int64]engine.Bet{1: {Amount: 100}})
	if snap := g.Snapshot(); snap.Status != engine.StatusCrashed || !snap.Terminal {
		t.Fatalf("a 1.00x round must crash at launch, got %s", snap.Status)
	}
	if _, err := e.CashOut(context.Background(), g.Key(), 1); err == nil {
		t.Error("cash out after an instant crash should fail")
	}
	if _, err := g.CashOut(context.Background(), 1); !errors.Is(err, engine.ErrAlreadyActed) {
		t.Errorf("direct cash out: %v", err)
	}
	if got := enginetest.Balance(t, l, 1); got != 900 {
		t.Errorf("stake should be lost, balance %d", got)
	}
}

func TestManualCashOut(t *testing.T) {
	g, e, l := launch(t, 5, map[int64]engine.Bet{1: {Amount: 100}, 2: {Amount: 100}})
	ctx := context.Background()
	g.onTick()
	g.onTick()

	snap, err := e.CashOut(ctx, g.Key(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Multiplier != 1.56 {
		t.Errorf("multiplier %.2f", snap.Multiplier)
	}
	if _, err := e.CashOut(ctx, g.Key(), 1); !errors.Is(err, engine.ErrAlreadyActed) {
		t.Errorf("second cash out: %v", err)
	}
	if got := enginetest.Balance(t, l, 1); got != 1056 {
		t.Errorf("balance %d, want 1056", got)
	}
	if _, err := e.JoinSession(ctx, g.Key(), 2, engine.Bet{Amount: 10}); !errors.Is(err, engine.ErrRoundClosed) {
		t.Errorf("join while running: %v", err)
	}
}

func TestCrashPointHiddenUntilReached(t *testing.T) {
	g, _, _ := launch(t, 3.33, map[int64]engine.Bet{1: {Amount: 100}})
	g.onTick()
	if snap := g.Snapshot(); snap.Outcome != "" {
		t.Errorf("crash point leaked: %q", snap.Outcome)
	}
}

func TestExpireRunningPlaysOut(t *testing.T) {
	g, _, l := launch(t, 3.0, map[int64]engine.Bet{1: {Amount: 100, AutoCashout: 2.5}, 2: {Amount: 100}})
	snap, err := g.Expire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.Status != engine.StatusCrashed || snap.Multiplier != 3.0 {
		t.Errorf("status %s at %.2f", snap.Status, snap.Multiplier)
	}
	if got := enginetest.Balance(t, l, 1); got != 1150 {
		t.Errorf("auto target 2.5 should pay 250, balance %d", got)
	}
	if got := enginetest.Balance(t, l, 2); got != 900 {
		t.Errorf("rider should lose, balance %d", got)
	}
}

func TestEmptyRoundDiscarded(t *testing.T) {
	e, _ := enginetest.New(t, map[int64]int64{1: 1000})
	e.Register(engine.Crash, New(Config{Window: time.Hour}))
	key := engine.ChannelKey(engine.Crash, "empty")
	if _, err := e.StartSession(context.Background(), key, 1, engine.StartRequest{}); err != nil {
		t.Fatal(err)
	}
	snap, err := enginetest.Session(t, e, key).Expire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.Status != engine.StatusCancelled {
		t.Errorf("status %s", snap.Status)
	}
}

func TestTargetValidation(t *testing.T) {
	e, _ := enginetest.New(t, map[int64]int64{1: 1000})
	e.Register(engine.Crash, New(Config{Window: time.Hour}))
	_, err := e.StartSession(context.Background(), engine.ChannelKey(engine.Crash, "c"), 1,
		engine.StartRequest{Bet: engine.Bet{Amount: 100, AutoCashout: 1.0}})
	if !errors.Is(err, engine.ErrInvalidAction) {
		t.Errorf("expected ErrInvalidAction, got %v", err)
	}
}
