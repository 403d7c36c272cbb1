// Package duel settles player-versus-player challenges: dice, coinflip and
// rock-paper-scissors. Stakes are reserved only once the challenge is
// accepted; the winner takes the pot less the house rake.
package duel

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"hrc-casino/engine"
	"hrc-casino/ledger"
	"hrc-casino/payout"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Duel variants.
const (
	Dice     = "dice"
	Coinflip = "coinflip"
	RPS      = "rps"
)

// DefaultTimeout is how long the opponent has to answer.
const DefaultTimeout = 30 * time.Second

// DefaultRake is the house share of the pot.
var DefaultRake = decimal.NewFromFloat(0.05)

// Config tunes duels.
type Config struct {
	Timeout time.Duration
	// Rake is the house share of the pot; zero takes nothing.
	Rake decimal.Decimal
	// Roll overrides the dice and coin, mainly for tests. sides is 6 for a
	// die and 2 for a coin; the result is 1-based.
	Roll func(rng *rand.Rand, sides int) int
}

// Duel is one challenge between two players.
type Duel struct {
	*engine.Base
	cfg         Config
	variant     string
	challenger  int64
	opponent    int64
	stake       int64
	rake        decimal.Decimal
	picks       [2]string
	outcome     string
	board       []string
	settlements []engine.Settlement
}

// New returns the duel session factory.
func New(cfg Config) engine.Factory {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Roll == nil {
		cfg.Roll = func(rng *rand.Rand, sides int) int { return rng.Intn(sides) + 1 }
	}
	return func(env engine.Env, key engine.Key) engine.Session {
		return &Duel{Base: engine.NewBase(env, key, engine.StatusChallenged), cfg: cfg}
	}
}

// Begin issues the challenge. Options: "game" (dice, coinflip, rps) and
// "event" ("true" waives the rake). For rps the challenger's pick may be
// given as the bet selection.
func (d *Duel) Begin(ctx context.Context, owner int64, req engine.StartRequest) (engine.Snapshot, error) {
	d.Lock()
	defer d.Unlock()

	if req.Opponent == 0 || req.Opponent == owner {
		return engine.Snapshot{}, fmt.Errorf("%w: pick someone else to challenge", engine.ErrInvalidAction)
	}
	if req.Bet.Amount <= 0 {
		return engine.Snapshot{}, fmt.Errorf("%w: stake must be positive", engine.ErrInvalidAction)
	}
	variant := strings.ToLower(req.Option("game", Dice))
	switch variant {
	case Dice, Coinflip, RPS:
	default:
		return engine.Snapshot{}, fmt.Errorf("%w: unknown duel %q", engine.ErrInvalidAction, variant)
	}
	if variant == RPS && req.Bet.Selection != "" {
		pick, err := payout.ParseRPS(req.Bet.Selection)
		if err != nil {
			return engine.Snapshot{}, fmt.Errorf("%w: %v", engine.ErrInvalidAction, err)
		}
		d.picks[0] = pick
	}

	d.variant, d.challenger, d.opponent, d.stake = variant, owner, req.Opponent, req.Bet.Amount
	d.rake = d.cfg.Rake
	if event, _ := strconv.ParseBool(req.Option("event", "false")); event {
		d.rake = decimal.Zero
	}
	d.SetDeadline(d.Now().Add(d.cfg.Timeout))
	d.After("answer", d.cfg.Timeout, func() {
		if _, err := d.Expire(context.Background()); err != nil {
			d.Log().Error("duel timeout failed", zap.String("session_id", d.ID()), zap.Error(err))
		}
	})
	return d.snapshotLocked(), nil
}

// Join is not used by duels.
func (d *Duel) Join(context.Context, int64, engine.Bet) (engine.Snapshot, error) {
	return engine.Snapshot{}, engine.ErrInvalidAction
}

// Act handles accept (opponent only, with an optional rps pick in Value)
// and decline (either party).
func (d *Duel) Act(ctx context.Context, userID int64, action engine.Action) (engine.Snapshot, error) {
	d.Lock()
	defer d.Unlock()

	if err := d.CheckLive(); err != nil {
		return engine.Snapshot{}, err
	}
	if userID != d.challenger && userID != d.opponent {
		return engine.Snapshot{}, engine.ErrNotParticipant
	}

	switch action.Name {
	case engine.ActionDecline:
		d.outcome = "declined"
		d.Finish(engine.StatusCancelled, d.snapshotLocked)
		return d.snapshotLocked(), nil
	case engine.ActionAccept:
		if userID != d.opponent {
			return engine.Snapshot{}, fmt.Errorf("%w: only the challenged player can accept", engine.ErrNotParticipant)
		}
		if d.variant == RPS && action.Value != "" {
			pick, err := payout.ParseRPS(action.Value)
			if err != nil {
				return engine.Snapshot{}, fmt.Errorf("%w: %v", engine.ErrInvalidAction, err)
			}
			d.picks[1] = pick
		}
		return d.resolveLocked(ctx)
	}
	return engine.Snapshot{}, engine.ErrInvalidAction
}

// CashOut is not used by duels.
func (d *Duel) CashOut(context.Context, int64) (engine.Snapshot, error) {
	return engine.Snapshot{}, engine.ErrInvalidAction
}

func (d *Duel) resolveLocked(ctx context.Context) (engine.Snapshot, error) {
	if _, err := d.Reserve(ctx, d.challenger, d.stake, 0); err != nil {
		d.outcome = "challenger cannot cover the stake"
		d.Finish(engine.StatusCancelled, d.snapshotLocked)
		return d.snapshotLocked(), err
	}
	if _, err := d.Reserve(ctx, d.opponent, d.stake, 0); err != nil {
		st, refundErr := d.Refund(ctx, d.challenger, d.stake, 0)
		d.settlements = append(d.settlements, st)
		d.outcome = "opponent cannot cover the stake"
		d.Finish(engine.StatusCancelled, d.snapshotLocked)
		return d.snapshotLocked(), errors.Join(err, refundErr)
	}
	d.SetStatus(engine.StatusResolving)

	winner := d.playLocked()
	if winner == 0 {
		return d.refundBothLocked(ctx, engine.StatusSettled, nil)
	}
	loser := d.challenger
	if winner == d.challenger {
		loser = d.opponent
	}
	res, err := d.Env().Wallet.PvPTransfer(ctx, ledger.PvPRequest{
		WinnerID:      winner,
		LoserID:       loser,
		Stake:         d.stake,
		Rake:          d.rake,
		CorrelationID: d.ID(),
	})
	if err != nil {
		d.outcome = "settlement failed, stakes refunded"
		return d.refundBothLocked(ctx, engine.StatusCancelled, err)
	}
	d.settlements = append(d.settlements,
		engine.Settlement{UserID: winner, Staked: d.stake, Paid: res.Split.Prize, Kind: ledger.KindPvPTransfer},
		engine.Settlement{UserID: loser, Staked: d.stake, Kind: ledger.KindPvPTransfer},
	)
	if res.Split.Fee > 0 {
		d.board = append(d.board, fmt.Sprintf("house fee %d", res.Split.Fee))
	}
	d.Finish(engine.StatusSettled, d.snapshotLocked)
	return d.snapshotLocked(), nil
}

func (d *Duel) refundBothLocked(ctx context.Context, status engine.Status, cause error) (engine.Snapshot, error) {
	errs := []error{cause}
	for _, uid := range []int64{d.challenger, d.opponent} {
		st, err := d.Refund(ctx, uid, d.stake, 0)
		errs = append(errs, err)
		d.settlements = append(d.settlements, st)
	}
	d.Finish(status, d.snapshotLocked)
	return d.snapshotLocked(), errors.Join(errs...)
}

// playLocked draws the result and returns the winner, or 0 on a tie.
func (d *Duel) playLocked() int64 {
	rng := d.Rand()
	var cmp int
	switch d.variant {
	case Dice:
		a, b := d.cfg.Roll(rng, 6), d.cfg.Roll(rng, 6)
		d.board = []string{fmt.Sprintf("🎲 %d", a), fmt.Sprintf("🎲 %d", b)}
		cmp = payout.CompareDice(a, b)
	case Coinflip:
		// The challenger calls heads.
		side := "heads"
		cmp = 1
		if d.cfg.Roll(rng, 2) == 2 {
			side, cmp = "tails", -1
		}
		d.board = []string{"🪙 " + side}
	case RPS:
		moves := []string{payout.Rock, payout.Paper, payout.Scissors}
		for i := range d.picks {
			if d.picks[i] == "" {
				d.picks[i] = moves[rng.Intn(len(moves))]
			}
		}
		d.board = []string{d.picks[0], d.picks[1]}
		cmp = payout.CompareRPS(d.picks[0], d.picks[1])
	}
	switch cmp {
	case 1:
		d.outcome = "challenger wins"
		return d.challenger
	case -1:
		d.outcome = "opponent wins"
		return d.opponent
	}
	d.outcome = "tie"
	return 0
}

// Expire cancels an unanswered challenge. No stake was reserved yet.
func (d *Duel) Expire(ctx context.Context) (engine.Snapshot, error) {
	d.Lock()
	defer d.Unlock()

	if d.Terminal() {
		return d.snapshotLocked(), nil
	}
	d.outcome = "timed out"
	d.Finish(engine.StatusCancelled, d.snapshotLocked)
	return d.snapshotLocked(), nil
}

// Snapshot returns the challenge.
func (d *Duel) Snapshot() engine.Snapshot {
	d.Lock()
	defer d.Unlock()
	return d.snapshotLocked()
}

func (d *Duel) snapshotLocked() engine.Snapshot {
	snap := d.BaseSnapshot()
	snap.Outcome = d.outcome
	snap.Board = append([]string(nil), d.board...)
	split := payout.SplitPot(d.stake, d.rake)
	snap.Players = []engine.PlayerView{
		{UserID: d.challenger, Stake: d.stake, Selection: d.variant, State: "challenger", Detail: fmt.Sprintf("prize %d", split.Prize)},
		{UserID: d.opponent, Stake: d.stake, Selection: d.variant, State: "opponent", Detail: fmt.Sprintf("fee %d", split.Fee)},
	}
	snap.Settlements = append([]engine.Settlement(nil), d.settlements...)
	return snap
}
