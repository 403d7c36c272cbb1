// Package crash is a channel-wide rising multiplier. Players bet while the
// round waits, then cash out manually or at an automatic target before the
// hidden crash point is reached.
package crash

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"hrc-casino/engine"
	"hrc-casino/payout"

	"go.uber.org/zap"
)

const (
	DefaultWindow = 20 * time.Second
	DefaultTick   = 2 * time.Second
	// MinTarget is the lowest automatic cash-out target.
	MinTarget = 1.01
)

// Config tunes crash rounds.
type Config struct {
	Window time.Duration
	Tick   time.Duration
	// CrashPoint overrides the draw, mainly for tests.
	CrashPoint func(rng *rand.Rand) float64
}

type player struct {
	userID   int64
	stake    int64
	target   float64
	cashedAt float64
	done     bool
}

// Game is one crash round.
type Game struct {
	*engine.Base
	cfg         Config
	players     []*player
	multiplier  float64
	crashPoint  float64
	settlements []engine.Settlement
}

// New returns the crash session factory.
func New(cfg Config) engine.Factory {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.CrashPoint == nil {
		cfg.CrashPoint = payout.DrawCrashPoint
	}
	return func(env engine.Env, key engine.Key) engine.Session {
		return &Game{Base: engine.NewBase(env, key, engine.StatusWaiting), cfg: cfg, multiplier: 1}
	}
}

// Begin opens the betting window, placing the owner's bet if any.
func (g *Game) Begin(ctx context.Context, owner int64, req engine.StartRequest) (engine.Snapshot, error) {
	g.Lock()
	defer g.Unlock()

	if req.Bet.Amount > 0 {
		if err := g.placeLocked(ctx, owner, req.Bet); err != nil {
			return engine.Snapshot{}, err
		}
	}
	g.SetDeadline(g.Now().Add(g.cfg.Window))
	g.After("launch", g.cfg.Window, func() {
		if _, err := g.Expire(context.Background()); err != nil {
			g.Log().Error("crash launch failed", zap.String("session_id", g.ID()), zap.Error(err))
		}
	})
	return g.snapshotLocked(), nil
}

// Join places a bet while the round is waiting.
func (g *Game) Join(ctx context.Context, userID int64, bet engine.Bet) (engine.Snapshot, error) {
	g.Lock()
	defer g.Unlock()

	if g.Terminal() || g.Status() != engine.StatusWaiting {
		return engine.Snapshot{}, engine.ErrRoundClosed
	}
	if err := g.placeLocked(ctx, userID, bet); err != nil {
		return engine.Snapshot{}, err
	}
	snap := g.snapshotLocked()
	g.Publish(snap)
	return snap, nil
}

func (g *Game) placeLocked(ctx context.Context, userID int64, bet engine.Bet) error {
	if g.playerOf(userID) != nil {
		return fmt.Errorf("%w: one bet per round", engine.ErrInvalidAction)
	}
	if bet.AutoCashout != 0 && (bet.AutoCashout < MinTarget || bet.AutoCashout > payout.CrashMax) {
		return fmt.Errorf("%w: auto cash-out must be %.2f-%.2f", engine.ErrInvalidAction, MinTarget, payout.CrashMax)
	}
	if _, err := g.Reserve(ctx, userID, bet.Amount, 0); err != nil {
		return err
	}
	g.players = append(g.players, &player{userID: userID, stake: bet.Amount, target: payout.Floor2(bet.AutoCashout)})
	return nil
}

func (g *Game) playerOf(userID int64) *player {
	for _, p := range g.players {
		if p.userID == userID {
			return p
		}
	}
	return nil
}

// Act is not used by crash rounds.
func (g *Game) Act(context.Context, int64, engine.Action) (engine.Snapshot, error) {
	return engine.Snapshot{}, engine.ErrInvalidAction
}

// CashOut pays the user at the current multiplier while the round runs.
func (g *Game) CashOut(ctx context.Context, userID int64) (engine.Snapshot, error) {
	g.Lock()
	defer g.Unlock()

	if err := g.CheckLive(); err != nil {
		return engine.Snapshot{}, err
	}
	p := g.playerOf(userID)
	if p == nil {
		return engine.Snapshot{}, engine.ErrNotParticipant
	}
	if g.Status() != engine.StatusRunning {
		return engine.Snapshot{}, fmt.Errorf("%w: round has not launched", engine.ErrInvalidAction)
	}
	if p.done {
		return engine.Snapshot{}, engine.ErrAlreadyActed
	}
	if g.multiplier >= g.crashPoint {
		return engine.Snapshot{}, engine.ErrRoundClosed
	}
	err := g.payLocked(ctx, p, g.multiplier)
	snap := g.snapshotLocked()
	g.Publish(snap)
	return snap, err
}

func (g *Game) payLocked(ctx context.Context, p *player, at float64) error {
	p.done, p.cashedAt = true, at
	st, err := g.Pay(ctx, p.userID, payout.Apply(p.stake, at), p.stake, 0)
	g.settlements = append(g.settlements, st)
	return err
}

// Expire launches a waiting round, or discards it when nobody bet. A
// running round past its deadline is played out to the crash at once.
func (g *Game) Expire(ctx context.Context) (engine.Snapshot, error) {
	g.Lock()
	defer g.Unlock()

	if g.Terminal() {
		return g.snapshotLocked(), nil
	}
	switch g.Status() {
	case engine.StatusWaiting:
		if len(g.players) == 0 {
			g.Finish(engine.StatusCancelled, g.snapshotLocked)
			return g.snapshotLocked(), nil
		}
		err := g.launchLocked(ctx)
		return g.snapshotLocked(), err
	default:
		var failed error
		for !g.Terminal() {
			if err := g.tickLocked(ctx); err != nil && failed == nil {
				failed = err
			}
		}
		return g.snapshotLocked(), failed
	}
}

// launchLocked starts the climb. A crash point of 1.00 is already reached,
// so the round crashes before anyone can cash out.
func (g *Game) launchLocked(ctx context.Context) error {
	g.crashPoint = g.cfg.CrashPoint(g.Rand())
	g.multiplier = 1
	g.SetStatus(engine.StatusRunning)
	if g.multiplier >= g.crashPoint {
		return g.crashLocked(ctx)
	}
	// Growth from 1.00 to the cap takes well under 64 ticks.
	g.SetDeadline(g.Now().Add(64 * g.cfg.Tick))
	g.Every("tick", g.cfg.Tick, g.onTick)
	g.Publish(g.snapshotLocked())
	return nil
}

func (g *Game) onTick() bool {
	g.Lock()
	defer g.Unlock()
	if g.Terminal() {
		return false
	}
	if err := g.tickLocked(context.Background()); err != nil {
		g.Log().Error("crash tick settlement failed", zap.String("session_id", g.ID()), zap.Error(err))
	}
	if g.Terminal() {
		return false
	}
	g.Publish(g.snapshotLocked())
	return true
}

// tickLocked advances the round by one step. The crash point wins ties: a
// target equal to it loses.
func (g *Game) tickLocked(ctx context.Context) error {
	if g.multiplier >= g.crashPoint {
		return g.crashLocked(ctx)
	}

	var failed error
	for _, p := range g.players {
		if !p.done && p.target > 0 && p.target <= g.multiplier {
			if err := g.payLocked(ctx, p, p.target); err != nil && failed == nil {
				failed = err
			}
		}
	}

	next := payout.NextCrashMultiplier(g.multiplier)
	if next >= g.crashPoint {
		for _, p := range g.players {
			if !p.done && p.target > 0 && p.target < g.crashPoint {
				if err := g.payLocked(ctx, p, p.target); err != nil && failed == nil {
					failed = err
				}
			}
		}
		g.multiplier = g.crashPoint
		if err := g.crashLocked(ctx); err != nil && failed == nil {
			failed = err
		}
		return failed
	}
	g.multiplier = next
	return failed
}

func (g *Game) crashLocked(ctx context.Context) error {
	var failed error
	for _, p := range g.players {
		if p.done {
			continue
		}
		p.done = true
		st, err := g.Pay(ctx, p.userID, 0, p.stake, 0)
		if err != nil && failed == nil {
			failed = err
		}
		g.settlements = append(g.settlements, st)
	}
	g.Finish(engine.StatusCrashed, g.snapshotLocked)
	return failed
}

// Snapshot returns the round. The crash point is only shown once reached.
func (g *Game) Snapshot() engine.Snapshot {
	g.Lock()
	defer g.Unlock()
	return g.snapshotLocked()
}

func (g *Game) snapshotLocked() engine.Snapshot {
	snap := g.BaseSnapshot()
	snap.Multiplier = g.multiplier
	if g.Status() == engine.StatusCrashed {
		snap.Outcome = fmt.Sprintf("crashed @ %.2fx", g.crashPoint)
	}
	for _, p := range g.players {
		view := engine.PlayerView{UserID: p.userID, Stake: p.stake, State: "riding"}
		if p.target > 0 {
			view.Selection = fmt.Sprintf("auto %.2fx", p.target)
		}
		switch {
		case p.cashedAt > 0:
			view.State = "cashed_out"
			view.Detail = fmt.Sprintf("%.2fx", p.cashedAt)
		case p.done:
			view.State = "crashed"
		}
		snap.Players = append(snap.Players, view)
	}
	snap.Settlements = append([]engine.Settlement(nil), g.settlements...)
	return snap
}
