// Package ledger is the single path for every chip and cash balance change.
// Each operation becomes one store transaction of conditional updates plus
// append-only transaction records keyed by an idempotency key.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hrc-casino/payout"
	"hrc-casino/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ledger applies balance mutations through a Store.
type Ledger struct {
	store        Store
	cache        *AccountCache
	publisher    Publisher
	log          *zap.Logger
	chipPrice    decimal.Decimal
	startingCash int64
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithCache reads accounts through c.
func WithCache(c *AccountCache) Option { return func(l *Ledger) { l.cache = c } }

// WithPublisher announces every applied transaction through p.
func WithPublisher(p Publisher) Option { return func(l *Ledger) { l.publisher = p } }

// WithChipPrice sets the price of one chip in currency units.
func WithChipPrice(price decimal.Decimal) Option { return func(l *Ledger) { l.chipPrice = price } }

// WithStartingCash sets the cash, in minor units, granted when an account is opened.
func WithStartingCash(minor int64) Option { return func(l *Ledger) { l.startingCash = minor } }

// New creates a Ledger over store.
func New(store Store, log *zap.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		store:     store,
		publisher: nopPublisher{},
		log:       log,
		chipPrice: decimal.NewFromInt(1),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Request describes a single-user chip mutation. Key is the idempotency key;
// when empty it is derived from the kind, correlation id and user.
type Request struct {
	Key           string
	UserID        int64
	Amount        int64
	Stake         int64
	CorrelationID string
}

// Result is the outcome of a single-user mutation.
type Result struct {
	TransactionID string
	UserID        int64
	Delta         int64
	Balance       int64
	Replayed      bool
}

func (r Request) key(kind Kind) string {
	if r.Key != "" {
		return r.Key
	}
	return fmt.Sprintf("%s:%s:%d", kind, r.CorrelationID, r.UserID)
}

func resultOf(t Transaction) Result {
	return Result{TransactionID: t.ID, UserID: t.UserID, Delta: t.Delta, Balance: t.BalanceAfter, Replayed: t.Replayed}
}

// Reserve debits a stake. It fails with ErrInsufficientFunds, changing
// nothing, when the balance does not cover the amount.
func (l *Ledger) Reserve(ctx context.Context, req Request) (Result, error) {
	if req.Amount <= 0 {
		return Result{}, fmt.Errorf("%w: stake must be positive, got %d", ErrInvalidAmount, req.Amount)
	}
	txns, err := l.apply(ctx, "reserve", []Entry{{
		ID:            req.key(KindBet),
		UserID:        req.UserID,
		Asset:         AssetChips,
		Kind:          KindBet,
		Delta:         -req.Amount,
		CorrelationID: req.CorrelationID,
	}})
	if err != nil {
		return Result{}, err
	}
	return resultOf(txns[0]), nil
}

// Credit settles a stake with a payout of req.Amount, which may be zero for
// a loss. Lifetime statistics move by the difference to req.Stake.
func (l *Ledger) Credit(ctx context.Context, req Request) (Result, error) {
	if req.Amount < 0 || req.Stake < 0 {
		return Result{}, fmt.Errorf("%w: payout %d stake %d", ErrInvalidAmount, req.Amount, req.Stake)
	}
	e := Entry{
		ID:            req.key(KindPayout),
		UserID:        req.UserID,
		Asset:         AssetChips,
		Kind:          KindPayout,
		Delta:         req.Amount,
		Played:        1,
		CorrelationID: req.CorrelationID,
	}
	if net := req.Amount - req.Stake; net >= 0 {
		e.Won = net
	} else {
		e.Lost = -net
	}
	txns, err := l.apply(ctx, "credit", []Entry{e})
	if err != nil {
		return Result{}, err
	}
	return resultOf(txns[0]), nil
}

// Refund returns a reserved stake without touching statistics.
func (l *Ledger) Refund(ctx context.Context, req Request) (Result, error) {
	if req.Amount <= 0 {
		return Result{}, fmt.Errorf("%w: refund must be positive, got %d", ErrInvalidAmount, req.Amount)
	}
	txns, err := l.apply(ctx, "refund", []Entry{{
		ID:            req.key(KindRefund),
		UserID:        req.UserID,
		Asset:         AssetChips,
		Kind:          KindRefund,
		Delta:         req.Amount,
		CorrelationID: req.CorrelationID,
	}})
	if err != nil {
		return Result{}, err
	}
	return resultOf(txns[0]), nil
}

// PvPRequest settles a duel whose stakes were both reserved.
type PvPRequest struct {
	WinnerID      int64
	LoserID       int64
	Stake         int64
	Rake          decimal.Decimal
	CorrelationID string
}

// PvPResult reports the pot split and both ledger records.
type PvPResult struct {
	Split  payout.DuelSplit
	Winner Result
	Loser  Result
}

// PvPTransfer pays the winner pot minus rake and records the loser's loss in
// one store transaction: both records land or neither does.
func (l *Ledger) PvPTransfer(ctx context.Context, req PvPRequest) (PvPResult, error) {
	if req.Stake <= 0 || req.WinnerID == req.LoserID {
		return PvPResult{}, fmt.Errorf("%w: pvp stake %d between %d and %d", ErrInvalidAmount, req.Stake, req.WinnerID, req.LoserID)
	}
	split := payout.SplitPot(req.Stake, req.Rake)
	txns, err := l.apply(ctx, "pvp_transfer", []Entry{
		{
			ID:            fmt.Sprintf("%s:%s:%d", KindPvPTransfer, req.CorrelationID, req.WinnerID),
			UserID:        req.WinnerID,
			Asset:         AssetChips,
			Kind:          KindPvPTransfer,
			Delta:         split.Prize,
			Won:           split.Prize - req.Stake,
			Played:        1,
			CorrelationID: req.CorrelationID,
		},
		{
			ID:            fmt.Sprintf("%s:%s:%d", KindPvPTransfer, req.CorrelationID, req.LoserID),
			UserID:        req.LoserID,
			Asset:         AssetChips,
			Kind:          KindPvPTransfer,
			Delta:         0,
			Lost:          req.Stake,
			Played:        1,
			CorrelationID: req.CorrelationID,
		},
	})
	if err != nil {
		return PvPResult{}, err
	}
	return PvPResult{Split: split, Winner: resultOf(txns[0]), Loser: resultOf(txns[1])}, nil
}

// Direction of a currency exchange.
type Direction string

const (
	Buy  Direction = "buy"
	Sell Direction = "sell"
)

// ExchangeRequest converts chips to or from cash at the configured price.
type ExchangeRequest struct {
	Key       string
	UserID    int64
	Chips     int64
	Direction Direction
}

// ExchangeResult holds both legs of an exchange.
type ExchangeResult struct {
	Chips     Result
	Cash      Result
	CashMinor int64
}

// CashValue is the minor-unit currency value of chips at the chip price.
func (l *Ledger) CashValue(chips int64) int64 {
	return l.chipPrice.Mul(decimal.NewFromInt(chips)).Shift(2).Floor().IntPart()
}

// Exchange buys or sells chips. The leg that gives value to the user is
// ordered first and both legs commit together, so the user never ends up
// holding neither the chips nor the currency.
func (l *Ledger) Exchange(ctx context.Context, req ExchangeRequest) (ExchangeResult, error) {
	if req.Chips <= 0 {
		return ExchangeResult{}, fmt.Errorf("%w: exchange chips must be positive, got %d", ErrInvalidAmount, req.Chips)
	}
	key := req.Key
	if key == "" {
		key = fmt.Sprintf("%s-%d", req.Direction, time.Now().UnixNano())
	}
	minor := l.CashValue(req.Chips)
	prefix := fmt.Sprintf("%s:%d:%s", KindExchange, req.UserID, key)
	chips := Entry{ID: prefix + ":chips", UserID: req.UserID, Asset: AssetChips, Kind: KindExchange, CorrelationID: key}
	cash := Entry{ID: prefix + ":cash", UserID: req.UserID, Asset: AssetCash, Kind: KindExchange, CorrelationID: key}

	var entries []Entry
	switch req.Direction {
	case Buy:
		chips.Delta, cash.Delta = req.Chips, -minor
		entries = []Entry{chips, cash}
	case Sell:
		chips.Delta, cash.Delta = -req.Chips, minor
		entries = []Entry{cash, chips}
	default:
		return ExchangeResult{}, fmt.Errorf("unknown exchange direction %q", req.Direction)
	}

	txns, err := l.apply(ctx, "exchange", entries)
	if err != nil {
		return ExchangeResult{}, err
	}
	res := ExchangeResult{CashMinor: minor}
	for _, t := range txns {
		if t.Asset == AssetCash {
			res.Cash = resultOf(t)
		} else {
			res.Chips = resultOf(t)
		}
	}
	return res, nil
}

// Open creates the user's account and grants the starting cash once. The
// opening entry is written even when there is no starting cash so the row
// always exists; an account opened under a different grant is left as is.
func (l *Ledger) Open(ctx context.Context, userID int64) (Account, error) {
	_, err := l.apply(ctx, "open", []Entry{{
		ID:     fmt.Sprintf("%s:open:%d", KindDeposit, userID),
		UserID: userID,
		Asset:  AssetCash,
		Kind:   KindDeposit,
		Delta:  l.startingCash,
	}})
	if err != nil && !errors.Is(err, ErrKeyConflict) {
		return Account{}, err
	}
	return l.Account(ctx, userID)
}

// Account reads a user's account, through the cache when configured. A read
// that overlaps a write is returned but not cached.
func (l *Ledger) Account(ctx context.Context, userID int64) (Account, error) {
	var gen uint64
	if l.cache != nil {
		if a, ok := l.cache.Get(userID); ok {
			return a, nil
		}
		gen = l.cache.Generation()
	}
	a, err := l.store.Account(ctx, userID)
	if err != nil {
		return Account{}, err
	}
	if l.cache != nil {
		l.cache.SetIfCurrent(a, gen)
	}
	return a, nil
}

// Balance returns the chip balance, zero for users without an account.
func (l *Ledger) Balance(ctx context.Context, userID int64) (int64, error) {
	a, err := l.Account(ctx, userID)
	if errors.Is(err, ErrAccountNotFound) {
		return 0, nil
	}
	return a.ChipBalance, err
}

// History lists the user's most recent transactions, newest first.
func (l *Ledger) History(ctx context.Context, userID int64, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 10
	}
	return l.store.History(ctx, userID, limit)
}

func (l *Ledger) apply(ctx context.Context, op string, entries []Entry) ([]Transaction, error) {
	started := time.Now()
	txns, err := l.store.Apply(ctx, entries)
	if err != nil {
		utils.RecordLedgerOp(op, "fail", started)
		if errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrKeyConflict) {
			l.log.Info("ledger mutation rejected", zap.String("op", op), zap.String("key", entries[0].ID), zap.Error(err))
			return nil, err
		}
		l.log.Error("ledger write failed", zap.String("op", op), zap.String("key", entries[0].ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %s %s: %v", ErrLedgerWrite, op, entries[0].ID, err)
	}

	replayed := true
	for _, t := range txns {
		if t.Replayed {
			continue
		}
		replayed = false
		if l.cache != nil {
			l.cache.Delete(t.UserID)
		}
		l.publisher.PublishBalance(ctx, t)
		l.log.Debug("ledger entry applied",
			zap.String("id", t.ID),
			zap.Int64("user_id", t.UserID),
			zap.String("kind", string(t.Kind)),
			zap.Int64("delta", t.Delta),
			zap.Int64("balance_after", t.BalanceAfter),
		)
	}
	if replayed {
		utils.RecordLedgerOp(op, "replay", started)
	} else {
		utils.RecordLedgerOp(op, "success", started)
	}
	return txns, nil
}
