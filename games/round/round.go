// Package round runs timed multiplayer betting rounds: bets are taken while
// the round is open, one shared outcome is drawn when the window closes and
// every bet is settled against it. Roulette and the horse race plug their
// wheel in through Rules.
package round

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"hrc-casino/engine"

	"go.uber.org/zap"
)

// Draw is one shared outcome.
type Draw struct {
	Outcome string
	Board   []string
	// Payout returns the total return of a stake on selection.
	Payout func(selection string, stake int64) int64
}

// Rules is what a game supplies to a round.
type Rules struct {
	Window time.Duration
	// Normalize validates a raw selection and returns its canonical form.
	Normalize func(raw string) (string, error)
	Draw      func(rng *rand.Rand) Draw
}

type bet struct {
	userID    int64
	stake     int64
	selection string
	n         int
	paid      int64
	settled   bool
}

// Session is one betting round.
type Session struct {
	*engine.Base
	rules       Rules
	bets        []*bet
	perUser     map[int64]int
	draw        *Draw
	settlements []engine.Settlement
}

// NewFactory builds round sessions with the given rules.
func NewFactory(rules Rules) engine.Factory {
	return func(env engine.Env, key engine.Key) engine.Session {
		return &Session{
			Base:    engine.NewBase(env, key, engine.StatusOpen),
			rules:   rules,
			perUser: make(map[int64]int),
		}
	}
}

// Begin opens the betting window. A non-zero opening bet from the owner is
// placed right away.
func (s *Session) Begin(ctx context.Context, owner int64, req engine.StartRequest) (engine.Snapshot, error) {
	s.Lock()
	defer s.Unlock()

	s.SetDeadline(s.Now().Add(s.rules.Window))
	if req.Bet.Amount > 0 {
		if err := s.placeLocked(ctx, owner, req.Bet); err != nil {
			return engine.Snapshot{}, err
		}
	}
	s.After("close", s.rules.Window, s.onClose)
	return s.snapshotLocked(), nil
}

// Join places a bet while the round is open. The deadline is authoritative
// even if the close timer has not fired yet.
func (s *Session) Join(ctx context.Context, userID int64, b engine.Bet) (engine.Snapshot, error) {
	s.Lock()
	defer s.Unlock()

	if s.Terminal() || s.Status() != engine.StatusOpen || !s.Now().Before(s.ExpiresAt()) {
		return engine.Snapshot{}, engine.ErrRoundClosed
	}
	if err := s.placeLocked(ctx, userID, b); err != nil {
		return engine.Snapshot{}, err
	}
	snap := s.snapshotLocked()
	s.Publish(snap)
	return snap, nil
}

func (s *Session) placeLocked(ctx context.Context, userID int64, b engine.Bet) error {
	selection, err := s.rules.Normalize(b.Selection)
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrInvalidAction, err)
	}
	n := s.perUser[userID]
	if _, err := s.Reserve(ctx, userID, b.Amount, n); err != nil {
		return err
	}
	s.perUser[userID] = n + 1
	s.bets = append(s.bets, &bet{userID: userID, stake: b.Amount, selection: selection, n: n})
	s.Log().Info("bet placed",
		zap.String("session_id", s.ID()),
		zap.Int64("user_id", userID),
		zap.Int64("amount", b.Amount),
		zap.String("selection", selection),
	)
	return nil
}

// Act is not used by betting rounds.
func (s *Session) Act(context.Context, int64, engine.Action) (engine.Snapshot, error) {
	return engine.Snapshot{}, engine.ErrInvalidAction
}

// CashOut is not used by betting rounds.
func (s *Session) CashOut(context.Context, int64) (engine.Snapshot, error) {
	return engine.Snapshot{}, engine.ErrInvalidAction
}

func (s *Session) onClose() {
	if _, err := s.Expire(context.Background()); err != nil {
		s.Log().Error("round resolution failed", zap.String("session_id", s.ID()), zap.Error(err))
	}
}

// Expire closes the window: an empty round is discarded, otherwise the
// outcome is drawn and every bet settled.
func (s *Session) Expire(ctx context.Context) (engine.Snapshot, error) {
	s.Lock()
	defer s.Unlock()

	if s.Terminal() || s.Status() != engine.StatusOpen {
		return s.snapshotLocked(), nil
	}
	if len(s.bets) == 0 {
		s.Finish(engine.StatusCancelled, s.snapshotLocked)
		return s.snapshotLocked(), nil
	}
	return s.resolveLocked(ctx)
}

func (s *Session) resolveLocked(ctx context.Context) (engine.Snapshot, error) {
	s.SetStatus(engine.StatusLocked)
	d := s.rules.Draw(s.Rand())
	s.draw = &d
	s.SetStatus(engine.StatusResolving)

	var failed error
	for _, b := range s.bets {
		amount := d.Payout(b.selection, b.stake)
		st, err := s.Pay(ctx, b.userID, amount, b.stake, b.n)
		if err != nil && failed == nil {
			failed = err
		}
		b.paid, b.settled = st.Paid, true
		s.settlements = append(s.settlements, st)
	}
	s.Finish(engine.StatusSettled, s.snapshotLocked)
	return s.snapshotLocked(), failed
}

// Snapshot returns the current view of the round.
func (s *Session) Snapshot() engine.Snapshot {
	s.Lock()
	defer s.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() engine.Snapshot {
	snap := s.BaseSnapshot()
	for _, b := range s.bets {
		state := "pending"
		if b.settled {
			state = "lost"
			if b.paid > 0 {
				state = "won"
			}
		}
		snap.Players = append(snap.Players, engine.PlayerView{
			UserID:    b.userID,
			Stake:     b.stake,
			Selection: b.selection,
			State:     state,
		})
	}
	if s.draw != nil {
		snap.Outcome = s.draw.Outcome
		snap.Board = append([]string(nil), s.draw.Board...)
	}
	snap.Settlements = append([]engine.Settlement(nil), s.settlements...)
	return snap
}
