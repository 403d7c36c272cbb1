// Package tower is a solo climb: each level hides traps among a row of
// cells, picking a safe cell moves up one level and multiplies the stake.
package tower

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hrc-casino/engine"
	"hrc-casino/payout"

	"go.uber.org/zap"
)

// DefaultIdleTimeout abandons a tower nobody touches.
const DefaultIdleTimeout = 10 * time.Minute

// Config tunes tower sessions.
type Config struct {
	IdleTimeout time.Duration
	Abandon     engine.AbandonPolicy
	// Traps overrides trap placement per level, mainly for tests.
	Traps func(level int, d payout.TowerDifficulty) []int
}

// Game is one tower climb.
type Game struct {
	*engine.Base
	cfg        Config
	owner      int64
	bet        int64
	difficulty payout.TowerDifficulty
	traps      [payout.TowerLevels][]bool
	picks      []int
	level      int
	settlement *engine.Settlement
}

// New returns the tower session factory.
func New(cfg Config) engine.Factory {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Abandon == "" {
		cfg.Abandon = engine.PolicyCashOut
	}
	return func(env engine.Env, key engine.Key) engine.Session {
		return &Game{Base: engine.NewBase(env, key, engine.StatusInProgress), cfg: cfg}
	}
}

// CanCashOut reports whether a tower at level may be cashed out. The first
// level must be cleared.
func CanCashOut(level int) bool { return level > 0 }

// Begin reserves the stake and hides the traps. Options: "difficulty"
// (easy, medium, hard, expert).
func (g *Game) Begin(ctx context.Context, owner int64, req engine.StartRequest) (engine.Snapshot, error) {
	g.Lock()
	defer g.Unlock()

	d, err := payout.LookupTowerDifficulty(req.Option("difficulty", "medium"))
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("%w: %v", engine.ErrInvalidAction, err)
	}
	if _, err := g.Reserve(ctx, owner, req.Bet.Amount, 0); err != nil {
		return engine.Snapshot{}, err
	}
	g.owner, g.bet, g.difficulty = owner, req.Bet.Amount, d

	for lvl := range g.traps {
		row := make([]bool, d.Cells)
		var cells []int
		if g.cfg.Traps != nil {
			cells = g.cfg.Traps(lvl, d)
		} else {
			cells = g.Rand().Perm(d.Cells)[:d.Traps]
		}
		for _, c := range cells {
			row[c] = true
		}
		g.traps[lvl] = row
	}
	g.touchLocked()
	return g.snapshotLocked(), nil
}

func (g *Game) touchLocked() {
	g.Touch(g.cfg.IdleTimeout)
	g.After("idle", g.cfg.IdleTimeout, func() {
		if _, err := g.Expire(context.Background()); err != nil {
			g.Log().Error("abandon tower failed", zap.String("session_id", g.ID()), zap.Error(err))
		}
	})
}

// Join is not used by solo climbs.
func (g *Game) Join(context.Context, int64, engine.Bet) (engine.Snapshot, error) {
	return engine.Snapshot{}, engine.ErrInvalidAction
}

// Act picks cell action.Index on the current level.
func (g *Game) Act(ctx context.Context, userID int64, action engine.Action) (engine.Snapshot, error) {
	g.Lock()
	defer g.Unlock()

	if err := g.CheckLive(); err != nil {
		return engine.Snapshot{}, err
	}
	if userID != g.owner {
		return engine.Snapshot{}, engine.ErrNotParticipant
	}
	if action.Name != engine.ActionClimb || action.Index < 0 || action.Index >= g.difficulty.Cells {
		return engine.Snapshot{}, engine.ErrInvalidAction
	}

	g.picks = append(g.picks, action.Index)
	if g.traps[g.level][action.Index] {
		st, err := g.Pay(ctx, g.owner, 0, g.bet, 0)
		g.settlement = &st
		g.Finish(engine.StatusBusted, g.snapshotLocked)
		return g.snapshotLocked(), err
	}

	g.level++
	if g.level == payout.TowerLevels {
		return g.cashOutLocked(ctx)
	}
	g.touchLocked()
	return g.snapshotLocked(), nil
}

// CashOut pays the stake at the current level's multiplier.
func (g *Game) CashOut(ctx context.Context, userID int64) (engine.Snapshot, error) {
	g.Lock()
	defer g.Unlock()

	if err := g.CheckLive(); err != nil {
		return engine.Snapshot{}, err
	}
	if userID != g.owner {
		return engine.Snapshot{}, engine.ErrNotParticipant
	}
	if !CanCashOut(g.level) {
		return engine.Snapshot{}, fmt.Errorf("%w: clear the first level first", engine.ErrInvalidAction)
	}
	return g.cashOutLocked(ctx)
}

func (g *Game) cashOutLocked(ctx context.Context) (engine.Snapshot, error) {
	st, err := g.Pay(ctx, g.owner, payout.Apply(g.bet, g.multiplierLocked()), g.bet, 0)
	g.settlement = &st
	g.Finish(engine.StatusCashedOut, g.snapshotLocked)
	return g.snapshotLocked(), err
}

// Expire applies the abandon policy to an unfinished climb.
func (g *Game) Expire(ctx context.Context) (engine.Snapshot, error) {
	g.Lock()
	defer g.Unlock()

	if g.Terminal() {
		return g.snapshotLocked(), nil
	}
	status, st, err := g.Abandon(ctx, g.cfg.Abandon, g.owner, g.bet,
		payout.Apply(g.bet, g.multiplierLocked()), CanCashOut(g.level))
	g.settlement = &st
	g.Finish(status, g.snapshotLocked)
	return g.snapshotLocked(), err
}

func (g *Game) multiplierLocked() float64 {
	return payout.TowerMultiplier(g.difficulty, g.level)
}

// Snapshot returns the current tower.
func (g *Game) Snapshot() engine.Snapshot {
	g.Lock()
	defer g.Unlock()
	return g.snapshotLocked()
}

// snapshotLocked renders levels top-down; traps show once the climb is over.
func (g *Game) snapshotLocked() engine.Snapshot {
	snap := g.BaseSnapshot()
	snap.Multiplier = g.multiplierLocked()
	snap.Outcome = fmt.Sprintf("level %d/%d (%s)", g.level, payout.TowerLevels, g.difficulty.Name)
	over := g.Terminal()
	for lvl := payout.TowerLevels - 1; lvl >= 0; lvl-- {
		cells := make([]string, g.difficulty.Cells)
		for c := range cells {
			cells[c] = "⬛"
			trap := g.traps[lvl] != nil && g.traps[lvl][c]
			picked := lvl < len(g.picks) && g.picks[lvl] == c
			switch {
			case picked && trap:
				cells[c] = "💥"
			case picked:
				cells[c] = "🟩"
			case over && trap:
				cells[c] = "💀"
			}
		}
		snap.Board = append(snap.Board, strings.Join(cells, ""))
	}
	next := payout.TowerMultiplier(g.difficulty, g.level+1)
	snap.Players = []engine.PlayerView{{
		UserID: g.owner,
		Stake:  g.bet,
		State:  string(g.Status()),
		Detail: fmt.Sprintf("next %.2fx, cash out %v", next, CanCashOut(g.level) && !over),
	}}
	if g.settlement != nil {
		snap.Settlements = []engine.Settlement{*g.settlement}
	}
	return snap
}
