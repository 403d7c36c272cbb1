// Package engine hosts live game sessions: a typed registry, a timer
// scheduler and the facade the presentation layer calls. Game rules live in
// the games/* packages and are plugged in through factories.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"hrc-casino/utils"

	"go.uber.org/zap"
)

// Listener receives snapshots pushed by timers and terminal settlements.
type Listener interface {
	SessionUpdated(snap Snapshot)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Snapshot)

func (f ListenerFunc) SessionUpdated(snap Snapshot) { f(snap) }

// Engine is the entry point for every session operation.
type Engine struct {
	registry  *Registry
	scheduler *Scheduler
	wallet    Wallet
	log       *zap.Logger
	now       func() time.Time
	seed      func() int64

	mu        sync.RWMutex
	factories map[GameType]Factory
	listeners []Listener
	events    chan Snapshot

	finalMu sync.Mutex
	final   []Snapshot
	wake    chan struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithSeed replaces the per-session RNG seed source.
func WithSeed(seed func() int64) Option { return func(e *Engine) { e.seed = seed } }

// New creates an engine settling through wallet.
func New(wallet Wallet, log *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		registry:  NewRegistry(log.Named("registry")),
		scheduler: NewScheduler(log.Named("scheduler")),
		wallet:    wallet,
		log:       log,
		now:       time.Now,
		seed:      func() int64 { return time.Now().UnixNano() },
		factories: make(map[GameType]Factory),
		events:    make(chan Snapshot, 256),
		wake:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register installs the factory for a game type.
func (e *Engine) Register(game GameType, f Factory) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.factories[game] = f
}

// Subscribe adds a listener for pushed snapshots.
func (e *Engine) Subscribe(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Registry exposes the session registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Scheduler exposes the timer scheduler.
func (e *Engine) Scheduler() *Scheduler { return e.scheduler }

func (e *Engine) env(game GameType) Env {
	return Env{
		Wallet:    e.wallet,
		Scheduler: e.scheduler,
		Log:       e.log.Named(string(game)),
		Rand:      rand.New(rand.NewSource(e.seed())),
		Now:       e.now,
		notify:    e.emit,
		done:      e.finished,
	}
}

// StartSession creates the session for key and begins it on behalf of userID.
// Other callers cannot reach the session until Begin has succeeded.
func (e *Engine) StartSession(ctx context.Context, key Key, userID int64, req StartRequest) (Snapshot, error) {
	e.mu.RLock()
	factory, ok := e.factories[key.Game]
	e.mu.RUnlock()
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownGame, key.Game)
	}

	s := factory(e.env(key.Game), key)
	if err := e.registry.Create(key, s); err != nil {
		return Snapshot{}, err
	}
	snap, err := s.Begin(ctx, userID, req)
	if err != nil {
		e.scheduler.Cancel(s.ID())
		e.registry.Remove(key, s.ID())
		return Snapshot{}, err
	}
	e.registry.Activate(key, s.ID())
	e.registry.Track(userID, key)
	if req.Opponent != 0 {
		e.registry.Track(req.Opponent, key)
	}
	e.log.Info("session started",
		zap.String("session_id", s.ID()), zap.String("key", key.String()), zap.Int64("user_id", userID))
	return snap, nil
}

// JoinSession places userID's bet in the session under key.
func (e *Engine) JoinSession(ctx context.Context, key Key, userID int64, bet Bet) (Snapshot, error) {
	s, err := e.registry.Get(key)
	if err != nil {
		return Snapshot{}, err
	}
	snap, err := s.Join(ctx, userID, bet)
	if err != nil {
		return Snapshot{}, err
	}
	e.registry.Track(userID, key)
	return snap, nil
}

// Act applies a player move to the session under key.
func (e *Engine) Act(ctx context.Context, key Key, userID int64, action Action) (Snapshot, error) {
	s, err := e.registry.Get(key)
	if err != nil {
		return Snapshot{}, err
	}
	return s.Act(ctx, userID, action)
}

// CashOut takes userID's winnings from the session under key.
func (e *Engine) CashOut(ctx context.Context, key Key, userID int64) (Snapshot, error) {
	s, err := e.registry.Get(key)
	if err != nil {
		return Snapshot{}, err
	}
	return s.CashOut(ctx, userID)
}

// Snapshot returns the current view of the session under key.
func (e *Engine) Snapshot(key Key) (Snapshot, error) {
	s, err := e.registry.Get(key)
	if err != nil {
		return Snapshot{}, err
	}
	return s.Snapshot(), nil
}

// Stats returns live session counts.
func (e *Engine) Stats() map[string]int {
	return e.registry.Stats()
}

// emit queues snap for listeners. Intermediate updates are dropped when the
// buffer is full; terminal snapshots are always kept.
func (e *Engine) emit(snap Snapshot) {
	if snap.Terminal {
		e.finalMu.Lock()
		e.final = append(e.final, snap)
		e.finalMu.Unlock()
		select {
		case e.wake <- struct{}{}:
		default:
		}
		return
	}
	select {
	case e.events <- snap:
	default:
		e.log.Warn("dropping session update, listeners are behind", zap.String("session_id", snap.SessionID))
	}
}

func (e *Engine) finished(key Key, id string, snap Snapshot) {
	e.registry.Remove(key, id)
	utils.RecordSessionEnd(string(key.Game), string(snap.Status))
	e.emit(snap)
}

// Run delivers snapshots to listeners and sweeps expired sessions every
// sweepInterval until ctx is done.
func (e *Engine) Run(ctx context.Context, sweepInterval time.Duration) error {
	go e.registry.Run(ctx, sweepInterval, e.now)
	for {
		select {
		case snap := <-e.events:
			e.deliver(snap)
		case <-e.wake:
			// Updates queued before a final snapshot go out first.
			for drained := false; !drained; {
				select {
				case snap := <-e.events:
					e.deliver(snap)
				default:
					drained = true
				}
			}
			e.finalMu.Lock()
			final := e.final
			e.final = nil
			e.finalMu.Unlock()
			for _, snap := range final {
				e.deliver(snap)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (e *Engine) deliver(snap Snapshot) {
	e.mu.RLock()
	listeners := append([]Listener(nil), e.listeners...)
	e.mu.RUnlock()
	for _, l := range listeners {
		l.SessionUpdated(snap)
	}
}

// Close stops every pending timer.
func (e *Engine) Close() {
	e.scheduler.Close()
}
