package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"hrc-casino/ledger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is one live game. Implementations serialize every method on their
// own mutex and reject moves once terminal.
type Session interface {
	ID() string
	Key() Key
	Begin(ctx context.Context, owner int64, req StartRequest) (Snapshot, error)
	Join(ctx context.Context, userID int64, bet Bet) (Snapshot, error)
	Act(ctx context.Context, userID int64, action Action) (Snapshot, error)
	CashOut(ctx context.Context, userID int64) (Snapshot, error)
	// Expire handles a passed deadline or an abandoned session.
	Expire(ctx context.Context) (Snapshot, error)
	Snapshot() Snapshot
	Terminal() bool
	ExpiresAt() time.Time
}

// Factory builds an unstarted session for key.
type Factory func(env Env, key Key) Session

// Wallet is the slice of the ledger sessions settle through.
type Wallet interface {
	Reserve(ctx context.Context, req ledger.Request) (ledger.Result, error)
	Credit(ctx context.Context, req ledger.Request) (ledger.Result, error)
	Refund(ctx context.Context, req ledger.Request) (ledger.Result, error)
	PvPTransfer(ctx context.Context, req ledger.PvPRequest) (ledger.PvPResult, error)
}

// Env is what the engine hands each session.
type Env struct {
	Wallet    Wallet
	Scheduler *Scheduler
	Log       *zap.Logger
	Rand      *rand.Rand
	Now       func() time.Time

	notify func(Snapshot)
	done   func(Key, string, Snapshot)
}

// Base carries the bookkeeping every session needs: identity, status,
// deadline and the ledger helpers keyed by session id. Games embed it and
// hold its mutex around every state change.
type Base struct {
	sync.Mutex

	id        string
	key       Key
	env       Env
	status    Status
	terminal  atomic.Bool
	createdAt time.Time
	expiresAt atomic.Int64
}

// NewBase creates session bookkeeping in the given initial status.
func NewBase(env Env, key Key, status Status) *Base {
	b := &Base{
		id:        uuid.NewString(),
		key:       key,
		env:       env,
		status:    status,
		createdAt: env.now(),
	}
	return b
}

func (e Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (b *Base) ID() string           { return b.id }
func (b *Base) Key() Key             { return b.key }
func (b *Base) Env() Env             { return b.env }
func (b *Base) Log() *zap.Logger     { return b.env.Log }
func (b *Base) Rand() *rand.Rand     { return b.env.Rand }
func (b *Base) Now() time.Time       { return b.env.now() }
func (b *Base) CreatedAt() time.Time { return b.createdAt }

// Status must be read with the session lock held.
func (b *Base) Status() Status { return b.status }

// SetStatus must be called with the session lock held.
func (b *Base) SetStatus(s Status) {
	if b.status != s {
		b.env.Log.Debug("session transition",
			zap.String("session_id", b.id),
			zap.String("key", b.key.String()),
			zap.String("from", string(b.status)),
			zap.String("to", string(s)),
		)
	}
	b.status = s
}

// Terminal is safe without the session lock.
func (b *Base) Terminal() bool { return b.terminal.Load() }

// ExpiresAt is safe without the session lock. It is zero until a deadline
// is set.
func (b *Base) ExpiresAt() time.Time {
	ns := b.expiresAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Touch pushes the idle deadline d into the future.
func (b *Base) Touch(d time.Duration) {
	b.expiresAt.Store(b.Now().Add(d).UnixNano())
}

// SetDeadline fixes the deadline to t.
func (b *Base) SetDeadline(t time.Time) {
	b.expiresAt.Store(t.UnixNano())
}

// CheckLive returns ErrAlreadyActed once the session is terminal.
func (b *Base) CheckLive() error {
	if b.terminal.Load() {
		return ErrAlreadyActed
	}
	return nil
}

// After schedules fn for this session.
func (b *Base) After(name string, d time.Duration, fn func()) {
	if b.env.Scheduler != nil {
		b.env.Scheduler.After(b.id, name, d, fn)
	}
}

// Every schedules fn repeatedly for this session until it returns false.
func (b *Base) Every(name string, d time.Duration, fn func() bool) {
	if b.env.Scheduler != nil {
		b.env.Scheduler.Every(b.id, name, d, fn)
	}
}

func (b *Base) betKey(kind ledger.Kind, userID int64, n int) string {
	return fmt.Sprintf("%s:%s:%d:%d", kind, b.id, userID, n)
}

// Reserve debits a stake for the user's n-th bet in this session.
func (b *Base) Reserve(ctx context.Context, userID, amount int64, n int) (ledger.Result, error) {
	return b.env.Wallet.Reserve(ctx, ledger.Request{
		Key:           b.betKey(ledger.KindBet, userID, n),
		UserID:        userID,
		Amount:        amount,
		CorrelationID: b.id,
	})
}

// Pay settles bet n with amount (zero records a loss). If the credit
// fails the stake is refunded and the error is still returned.
func (b *Base) Pay(ctx context.Context, userID, amount, stake int64, n int) (Settlement, error) {
	_, err := b.env.Wallet.Credit(ctx, ledger.Request{
		Key:           b.betKey(ledger.KindPayout, userID, n),
		UserID:        userID,
		Amount:        amount,
		Stake:         stake,
		CorrelationID: b.id,
	})
	if err == nil {
		return Settlement{UserID: userID, Staked: stake, Paid: amount, Kind: ledger.KindPayout}, nil
	}

	b.env.Log.Error("payout failed, refunding stake",
		zap.String("session_id", b.id), zap.Int64("user_id", userID), zap.Int64("amount", amount), zap.Error(err))
	settlement, refundErr := b.Refund(ctx, userID, stake, n)
	if refundErr != nil {
		b.env.Log.Error("compensating refund failed",
			zap.String("session_id", b.id), zap.Int64("user_id", userID), zap.Error(refundErr))
		return Settlement{UserID: userID, Staked: stake, Kind: ledger.KindPayout, Note: "unsettled"}, errors.Join(err, refundErr)
	}
	settlement.Note = "payout failed, stake refunded"
	return settlement, err
}

// Refund returns the stake of bet n.
func (b *Base) Refund(ctx context.Context, userID, stake int64, n int) (Settlement, error) {
	_, err := b.env.Wallet.Refund(ctx, ledger.Request{
		Key:           b.betKey(ledger.KindRefund, userID, n),
		UserID:        userID,
		Amount:        stake,
		CorrelationID: b.id,
	})
	if err != nil {
		return Settlement{UserID: userID, Staked: stake, Kind: ledger.KindRefund, Note: "unsettled"}, err
	}
	return Settlement{UserID: userID, Staked: stake, Paid: stake, Kind: ledger.KindRefund}, nil
}

// Publish pushes an intermediate snapshot to listeners.
func (b *Base) Publish(snap Snapshot) {
	if b.env.notify != nil {
		b.env.notify(snap)
	}
}

// Finish marks the session terminal in status, cancels its timers and hands
// the final snapshot to the engine. It must be called with the session lock
// held and returns false if the session was already terminal.
func (b *Base) Finish(status Status, snap func() Snapshot) bool {
	if !b.terminal.CompareAndSwap(false, true) {
		return false
	}
	b.SetStatus(status)
	if b.env.Scheduler != nil {
		b.env.Scheduler.Cancel(b.id)
	}
	final := snap()
	b.env.Log.Info("session finished",
		zap.String("session_id", b.id),
		zap.String("key", b.key.String()),
		zap.String("status", string(status)),
		zap.Int("settlements", len(final.Settlements)),
	)
	if b.env.done != nil {
		b.env.done(b.key, b.id, final)
	}
	return true
}

// BaseSnapshot fills the fields every snapshot shares.
func (b *Base) BaseSnapshot() Snapshot {
	return Snapshot{
		SessionID: b.id,
		Key:       b.key,
		Status:    b.status,
		Terminal:  b.terminal.Load(),
		Deadline:  b.ExpiresAt(),
	}
}
