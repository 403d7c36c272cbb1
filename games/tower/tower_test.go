package tower

import (
	"context"
	"errors"
	"testing"
	"time"

	"hrc-casino/engine"
	"hrc-casino/engine/enginetest"
	"hrc-casino/payout"
)

func firstCellTrapped(int, payout.TowerDifficulty) []int { return []int{0} }

func start(t *testing.T, cfg Config, difficulty string) (*engine.Engine, engine.Key, func() int64) {
	t.Helper()
	if cfg.Traps == nil {
		cfg.Traps = firstCellTrapped
	}
	cfg.IdleTimeout = time.Hour
	e, l := enginetest.New(t, map[int64]int64{1: 1000})
	e.Register(engine.Tower, New(cfg))
	key := engine.UserKey(engine.Tower, 1)
	_, err := e.StartSession(context.Background(), key, 1, engine.StartRequest{
		Bet:     engine.Bet{Amount: 100},
		Options: map[string]string{"difficulty": difficulty},
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return e, key, func() int64 { return enginetest.Balance(t, l, 1) }
}

func climb(idx int) engine.Action { return engine.Action{Name: engine.ActionClimb, Index: idx} }

func TestClimbAndCashOut(t *testing.T) {
	e, key, balance := start(t, Config{}, "medium")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := e.Act(ctx, key, 1, climb(1)); err != nil {
			t.Fatalf("climb: %v", err)
		}
	}
	snap, err := e.CashOut(ctx, key, 1)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Multiplier != 2.01 || snap.Status != engine.StatusCashedOut {
		t.Errorf("got %.2fx %s, want 2.01x cashed out", snap.Multiplier, snap.Status)
	}
	if got := balance(); got != 900+201 {
		t.Errorf("balance = %d, want %d", got, 900+201)
	}
}

func TestNoCashOutOnGroundFloor(t *testing.T) {
	e, key, _ := start(t, Config{}, "easy")
	if _, err := e.CashOut(context.Background(), key, 1); !errors.Is(err, engine.ErrInvalidAction) {
		t.Errorf("expected ErrInvalidAction, got %v", err)
	}
	if CanCashOut(0) || !CanCashOut(1) {
		t.Error("cash out allowed only after the first level")
	}
}

func TestTrapBusts(t *testing.T) {
	e, key, balance := start(t, Config{}, "hard")
	ctx := context.Background()

	if _, err := e.Act(ctx, key, 1, climb(1)); err != nil {
		t.Fatal(err)
	}
	snap, err := e.Act(ctx, key, 1, climb(0))
	if err != nil {
		t.Fatal(err)
	}
	if snap.Status != engine.StatusBusted {
		t.Errorf("expected busted, got %s", snap.Status)
	}
	if got := balance(); got != 900 {
		t.Errorf("balance = %d, want 900", got)
	}
}

func TestTopLevelAutoCashesOut(t *testing.T) {
	e, key, balance := start(t, Config{}, "medium")
	ctx := context.Background()

	var snap engine.Snapshot
	var err error
	for i := 0; i < payout.TowerLevels; i++ {
		if snap, err = e.Act(ctx, key, 1, climb(2)); err != nil {
			t.Fatalf("climb %d: %v", i, err)
		}
	}
	if snap.Status != engine.StatusCashedOut || snap.Multiplier != 16.53 {
		t.Fatalf("got %s at %.2fx", snap.Status, snap.Multiplier)
	}
	if got := balance(); got != 900+1653 {
		t.Errorf("balance = %d, want %d", got, 900+1653)
	}
}

func TestClimbValidation(t *testing.T) {
	e, key, _ := start(t, Config{}, "hard")
	ctx := context.Background()

	if _, err := e.Act(ctx, key, 1, climb(2)); !errors.Is(err, engine.ErrInvalidAction) {
		t.Errorf("hard has two cells, got %v", err)
	}
	if _, err := e.Act(ctx, key, 1, engine.Action{Name: engine.ActionReveal}); !errors.Is(err, engine.ErrInvalidAction) {
		t.Errorf("wrong action name, got %v", err)
	}
	if _, err := e.Act(ctx, key, 9, climb(1)); !errors.Is(err, engine.ErrNotParticipant) {
		t.Errorf("stranger, got %v", err)
	}
}

func TestUnknownDifficulty(t *testing.T) {
	e, _ := enginetest.New(t, map[int64]int64{1: 1000})
	e.Register(engine.Tower, New(Config{}))
	_, err := e.StartSession(context.Background(), engine.UserKey(engine.Tower, 1), 1, engine.StartRequest{
		Bet:     engine.Bet{Amount: 100},
		Options: map[string]string{"difficulty": "nightmare"},
	})
	if !errors.Is(err, engine.ErrInvalidAction) {
		t.Errorf("expected ErrInvalidAction, got %v", err)
	}
}

func TestAbandonAtGroundFloorRefunds(t *testing.T) {
	e, key, balance := start(t, Config{Abandon: engine.PolicyCashOut}, "medium")
	snap, err := enginetest.Session(t, e, key).Expire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.Status != engine.StatusCancelled {
		t.Errorf("status = %s", snap.Status)
	}
	if got := balance(); got != 1000 {
		t.Errorf("balance = %d, want 1000", got)
	}
}
