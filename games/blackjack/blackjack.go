// Package blackjack is a shared table: players sit with a bet in the lobby,
// any seated player deals, everyone plays their own hand and the dealer
// draws to 17.
package blackjack

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"hrc-casino/engine"
	"hrc-casino/payout"
	"hrc-casino/utils"

	"go.uber.org/zap"
)

const (
	// DefaultIdleTimeout closes a table nobody acts on.
	DefaultIdleTimeout = 5 * time.Minute
	// MaxSeats bounds a table.
	MaxSeats = 6
	// DeckCount is the number of decks in the shoe.
	DeckCount = 6
)

// Config tunes blackjack tables.
type Config struct {
	IdleTimeout time.Duration
	// Abandon applies to a lobby that never deals.
	Abandon engine.AbandonPolicy
	// Shoe overrides the shoe, mainly for tests.
	Shoe func(rng *rand.Rand) *utils.Deck
}

type seat struct {
	userID int64
	bet    int64
	hand   *utils.Hand
	done   bool
	result payout.BlackjackResult
}

// Table is one blackjack table.
type Table struct {
	*engine.Base
	cfg         Config
	shoe        *utils.Deck
	seats       []*seat
	dealer      *utils.Hand
	settlements []engine.Settlement
}

// New returns the blackjack session factory.
func New(cfg Config) engine.Factory {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Abandon == "" {
		cfg.Abandon = engine.PolicyRefund
	}
	if cfg.Shoe == nil {
		cfg.Shoe = func(rng *rand.Rand) *utils.Deck { return utils.NewDeck(DeckCount, rng) }
	}
	return func(env engine.Env, key engine.Key) engine.Session {
		return &Table{Base: engine.NewBase(env, key, engine.StatusLobby), cfg: cfg}
	}
}

// Begin opens the table with the owner seated.
func (t *Table) Begin(ctx context.Context, owner int64, req engine.StartRequest) (engine.Snapshot, error) {
	t.Lock()
	defer t.Unlock()

	if err := t.seatLocked(ctx, owner, req.Bet.Amount); err != nil {
		return engine.Snapshot{}, err
	}
	t.touchLocked()
	return t.snapshotLocked(), nil
}

// Join seats a player while the table is in the lobby.
func (t *Table) Join(ctx context.Context, userID int64, bet engine.Bet) (engine.Snapshot, error) {
	t.Lock()
	defer t.Unlock()

	if t.Terminal() || t.Status() != engine.StatusLobby {
		return engine.Snapshot{}, engine.ErrRoundClosed
	}
	if err := t.seatLocked(ctx, userID, bet.Amount); err != nil {
		return engine.Snapshot{}, err
	}
	t.touchLocked()
	snap := t.snapshotLocked()
	t.Publish(snap)
	return snap, nil
}

func (t *Table) seatLocked(ctx context.Context, userID, amount int64) error {
	if t.seatOf(userID) != nil {
		return fmt.Errorf("%w: already seated", engine.ErrInvalidAction)
	}
	if len(t.seats) >= MaxSeats {
		return fmt.Errorf("%w: table is full", engine.ErrInvalidAction)
	}
	if _, err := t.Reserve(ctx, userID, amount, 0); err != nil {
		return err
	}
	t.seats = append(t.seats, &seat{userID: userID, bet: amount, hand: &utils.Hand{}})
	return nil
}

func (t *Table) seatOf(userID int64) *seat {
	for _, s := range t.seats {
		if s.userID == userID {
			return s
		}
	}
	return nil
}

func (t *Table) touchLocked() {
	t.Touch(t.cfg.IdleTimeout)
	t.After("idle", t.cfg.IdleTimeout, func() {
		if _, err := t.Expire(context.Background()); err != nil {
			t.Log().Error("idle table settlement failed", zap.String("session_id", t.ID()), zap.Error(err))
		}
	})
}

// Act handles start, hit and stand.
func (t *Table) Act(ctx context.Context, userID int64, action engine.Action) (engine.Snapshot, error) {
	t.Lock()
	defer t.Unlock()

	if err := t.CheckLive(); err != nil {
		return engine.Snapshot{}, err
	}
	s := t.seatOf(userID)
	if s == nil {
		return engine.Snapshot{}, engine.ErrNotParticipant
	}

	switch action.Name {
	case engine.ActionStart:
		if t.Status() != engine.StatusLobby {
			return engine.Snapshot{}, fmt.Errorf("%w: cards already dealt", engine.ErrInvalidAction)
		}
		t.dealLocked()
	case engine.ActionHit, engine.ActionStand:
		if t.Status() != engine.StatusPlaying {
			return engine.Snapshot{}, fmt.Errorf("%w: table is not in play", engine.ErrInvalidAction)
		}
		if s.done {
			return engine.Snapshot{}, fmt.Errorf("%w: hand is finished", engine.ErrInvalidAction)
		}
		if action.Name == engine.ActionHit {
			s.hand.AddCard(t.shoe.Deal())
			if s.hand.Value() >= 21 {
				s.done = true
			}
		} else {
			s.done = true
		}
	default:
		return engine.Snapshot{}, engine.ErrInvalidAction
	}

	if t.Status() == engine.StatusPlaying && t.allDoneLocked() {
		return t.dealerTurnLocked(ctx)
	}
	t.touchLocked()
	snap := t.snapshotLocked()
	t.Publish(snap)
	return snap, nil
}

func (t *Table) dealLocked() {
	t.shoe = t.cfg.Shoe(t.Rand())
	t.dealer = &utils.Hand{}
	for round := 0; round < 2; round++ {
		for _, s := range t.seats {
			s.hand.AddCard(t.shoe.Deal())
		}
		t.dealer.AddCard(t.shoe.Deal())
	}
	for _, s := range t.seats {
		if s.hand.Value() == 21 {
			s.done = true
		}
	}
	t.SetStatus(engine.StatusPlaying)
}

func (t *Table) allDoneLocked() bool {
	for _, s := range t.seats {
		if !s.done {
			return false
		}
	}
	return true
}

// CashOut is not used at the table.
func (t *Table) CashOut(context.Context, int64) (engine.Snapshot, error) {
	return engine.Snapshot{}, engine.ErrInvalidAction
}

func (t *Table) dealerTurnLocked(ctx context.Context) (engine.Snapshot, error) {
	t.SetStatus(engine.StatusDealerTurn)
	for payout.DealerShouldDraw(t.dealer) {
		t.dealer.AddCard(t.shoe.Deal())
	}

	var failed error
	for _, s := range t.seats {
		result, mult := payout.SettleBlackjack(s.hand, t.dealer)
		s.result = result
		var st engine.Settlement
		var err error
		if result == payout.BlackjackPush {
			st, err = t.Refund(ctx, s.userID, s.bet, 0)
			st.Note = "push"
		} else {
			st, err = t.Pay(ctx, s.userID, payout.Apply(s.bet, mult), s.bet, 0)
		}
		if err != nil && failed == nil {
			failed = err
		}
		t.settlements = append(t.settlements, st)
	}
	t.Finish(engine.StatusSettled, t.snapshotLocked)
	return t.snapshotLocked(), failed
}

// Expire handles an idle table: a lobby is settled by the abandon policy,
// a hand in play stands every open seat and lets the dealer finish.
func (t *Table) Expire(ctx context.Context) (engine.Snapshot, error) {
	t.Lock()
	defer t.Unlock()

	if t.Terminal() {
		return t.snapshotLocked(), nil
	}
	if t.Status() == engine.StatusPlaying {
		for _, s := range t.seats {
			s.done = true
		}
		return t.dealerTurnLocked(ctx)
	}

	var failed error
	status := engine.StatusCancelled
	for _, s := range t.seats {
		st, stSettle, err := t.Abandon(ctx, t.cfg.Abandon, s.userID, s.bet, s.bet, false)
		status = st
		if err != nil && failed == nil {
			failed = err
		}
		t.settlements = append(t.settlements, stSettle)
	}
	t.Finish(status, t.snapshotLocked)
	return t.snapshotLocked(), failed
}

// Snapshot returns the table; the dealer's hole card stays hidden until
// the dealer plays.
func (t *Table) Snapshot() engine.Snapshot {
	t.Lock()
	defer t.Unlock()
	return t.snapshotLocked()
}

func (t *Table) snapshotLocked() engine.Snapshot {
	snap := t.BaseSnapshot()
	if t.dealer != nil {
		reveal := t.Status() == engine.StatusDealerTurn || t.Status() == engine.StatusSettled
		if reveal {
			snap.Board = []string{fmt.Sprintf("Dealer: %s (%d)", t.dealer.String(), t.dealer.Value())}
		} else {
			snap.Board = []string{fmt.Sprintf("Dealer: %s 🂠", t.dealer.Cards[0])}
		}
	}
	for _, s := range t.seats {
		state := "seated"
		switch {
		case s.result != "":
			state = string(s.result)
		case s.done && s.hand.IsBusted():
			state = "bust"
		case s.done:
			state = "standing"
		case len(s.hand.Cards) > 0:
			state = "playing"
		}
		detail := ""
		if len(s.hand.Cards) > 0 {
			detail = fmt.Sprintf("%s (%d)", s.hand.String(), s.hand.Value())
		}
		snap.Players = append(snap.Players, engine.PlayerView{
			UserID: s.userID,
			Stake:  s.bet,
			State:  state,
			Detail: detail,
		})
	}
	snap.Settlements = append([]engine.Settlement(nil), t.settlements...)
	return snap
}
