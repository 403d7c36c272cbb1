// Package mines is a solo 4x5 grid with hidden mines. Each safe reveal raises
// the multiplier; hitting a mine loses the stake.
package mines

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"hrc-casino/engine"
	"hrc-casino/payout"

	"go.uber.org/zap"
)

const (
	Rows  = 4
	Cols  = 5
	Tiles = Rows * Cols

	MinMines     = 1
	MaxMines     = Tiles - 1
	DefaultMines = 3
)

// DefaultIdleTimeout abandons a board nobody touches.
const DefaultIdleTimeout = 10 * time.Minute

// Config tunes mines sessions.
type Config struct {
	IdleTimeout time.Duration
	Abandon     engine.AbandonPolicy
	// Layout overrides mine placement with tile indexes, mainly for tests.
	Layout func(mines int) []int
}

// Tile is a single cell in the grid.
type Tile struct {
	Row        int
	Col        int
	IsMine     bool
	IsRevealed bool
}

// Game is one mines board.
type Game struct {
	*engine.Base
	cfg        Config
	owner      int64
	bet        int64
	mineCount  int
	grid       [Tiles]*Tile
	revealed   int
	settlement *engine.Settlement
}

// New returns the mines session factory.
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

// Begin reserves the stake and lays the mines. Options: "mines" (1-19).
func (g *Game) Begin(ctx context.Context, owner int64, req engine.StartRequest) (engine.Snapshot, error) {
	g.Lock()
	defer g.Unlock()

	count, err := strconv.Atoi(req.Option("mines", strconv.Itoa(DefaultMines)))
	if err != nil || count < MinMines || count > MaxMines {
		return engine.Snapshot{}, fmt.Errorf("%w: mines must be %d-%d", engine.ErrInvalidAction, MinMines, MaxMines)
	}
	if _, err := g.Reserve(ctx, owner, req.Bet.Amount, 0); err != nil {
		return engine.Snapshot{}, err
	}
	g.owner, g.bet, g.mineCount = owner, req.Bet.Amount, count

	for i := range g.grid {
		g.grid[i] = &Tile{Row: i / Cols, Col: i % Cols}
	}
	var layout []int
	if g.cfg.Layout != nil {
		layout = g.cfg.Layout(count)
	} else {
		layout = g.Rand().Perm(Tiles)[:count]
	}
	for _, idx := range layout {
		g.grid[idx].IsMine = true
	}
	g.touchLocked()
	return g.snapshotLocked(), nil
}

func (g *Game) touchLocked() {
	g.Touch(g.cfg.IdleTimeout)
	g.After("idle", g.cfg.IdleTimeout, func() {
		if _, err := g.Expire(context.Background()); err != nil {
			g.Log().Error("abandon mines failed", zap.String("session_id", g.ID()), zap.Error(err))
		}
	})
}

// Join is not used by solo boards.
func (g *Game) Join(context.Context, int64, engine.Bet) (engine.Snapshot, error) {
	return engine.Snapshot{}, engine.ErrInvalidAction
}

// Act reveals the tile at action.Index (row*5+col).
func (g *Game) Act(ctx context.Context, userID int64, action engine.Action) (engine.Snapshot, error) {
	g.Lock()
	defer g.Unlock()

	if err := g.CheckLive(); err != nil {
		return engine.Snapshot{}, err
	}
	if userID != g.owner {
		return engine.Snapshot{}, engine.ErrNotParticipant
	}
	if action.Name != engine.ActionReveal || action.Index < 0 || action.Index >= Tiles {
		return engine.Snapshot{}, engine.ErrInvalidAction
	}
	tile := g.grid[action.Index]
	if tile.IsRevealed {
		return engine.Snapshot{}, fmt.Errorf("%w: tile already revealed", engine.ErrInvalidAction)
	}
	tile.IsRevealed = true

	if tile.IsMine {
		st, err := g.Pay(ctx, g.owner, 0, g.bet, 0)
		g.settlement = &st
		g.Finish(engine.StatusBusted, g.snapshotLocked)
		return g.snapshotLocked(), err
	}

	g.revealed++
	if g.revealed == Tiles-g.mineCount {
		return g.cashOutLocked(ctx)
	}
	g.touchLocked()
	return g.snapshotLocked(), nil
}

// CashOut pays the stake at the current multiplier. At least one tile must
// have been revealed.
func (g *Game) CashOut(ctx context.Context, userID int64) (engine.Snapshot, error) {
	g.Lock()
	defer g.Unlock()

	if err := g.CheckLive(); err != nil {
		return engine.Snapshot{}, err
	}
	if userID != g.owner {
		return engine.Snapshot{}, engine.ErrNotParticipant
	}
	if g.revealed == 0 {
		return engine.Snapshot{}, fmt.Errorf("%w: reveal a tile first", engine.ErrInvalidAction)
	}
	return g.cashOutLocked(ctx)
}

func (g *Game) cashOutLocked(ctx context.Context) (engine.Snapshot, error) {
	st, err := g.Pay(ctx, g.owner, payout.Apply(g.bet, g.multiplierLocked()), g.bet, 0)
	g.settlement = &st
	g.Finish(engine.StatusCashedOut, g.snapshotLocked)
	return g.snapshotLocked(), err
}

// Expire applies the abandon policy to an unfinished board.
func (g *Game) Expire(ctx context.Context) (engine.Snapshot, error) {
	g.Lock()
	defer g.Unlock()

	if g.Terminal() {
		return g.snapshotLocked(), nil
	}
	status, st, err := g.Abandon(ctx, g.cfg.Abandon, g.owner, g.bet,
		payout.Apply(g.bet, g.multiplierLocked()), g.revealed > 0)
	g.settlement = &st
	g.Finish(status, g.snapshotLocked)
	return g.snapshotLocked(), err
}

func (g *Game) multiplierLocked() float64 {
	return payout.MinesMultiplier(Tiles, g.mineCount, g.revealed)
}

// Snapshot returns the current board.
func (g *Game) Snapshot() engine.Snapshot {
	g.Lock()
	defer g.Unlock()
	return g.snapshotLocked()
}

func (g *Game) snapshotLocked() engine.Snapshot {
	snap := g.BaseSnapshot()
	snap.Multiplier = g.multiplierLocked()
	snap.Outcome = fmt.Sprintf("%d/%d safe tiles, %d mines", g.revealed, Tiles-g.mineCount, g.mineCount)
	snap.Board = make([]string, 0, Tiles)
	over := g.Terminal()
	for _, t := range g.grid {
		switch {
		case t == nil:
			snap.Board = append(snap.Board, "?")
		case t.IsRevealed && t.IsMine:
			snap.Board = append(snap.Board, "💥")
		case t.IsRevealed:
			snap.Board = append(snap.Board, "💎")
		case over && t.IsMine:
			snap.Board = append(snap.Board, "💣")
		default:
			snap.Board = append(snap.Board, "?")
		}
	}
	snap.Players = []engine.PlayerView{{
		UserID: g.owner,
		Stake:  g.bet,
		State:  string(g.Status()),
		Detail: fmt.Sprintf("next %.2fx", payout.MinesMultiplier(Tiles, g.mineCount, g.revealed+1)),
	}}
	if g.settlement != nil {
		snap.Settlements = []engine.Settlement{*g.settlement}
	}
	return snap
}
