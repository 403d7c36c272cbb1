package ledger

import (
	"context"
	"fmt"
	"time"
)

// Kind classifies a balance mutation.
type Kind string

const (
	KindBet         Kind = "bet"
	KindPayout      Kind = "payout"
	KindRefund      Kind = "refund"
	KindExchange    Kind = "exchange"
	KindPvPTransfer Kind = "pvp_transfer"
	KindDeposit     Kind = "deposit"
)

// Asset is the balance an entry moves.
type Asset string

const (
	AssetChips Asset = "chips"
	AssetCash  Asset = "cash"
)

// Account is a user's ledger row. Cash is held in minor units.
type Account struct {
	UserID       int64     `json:"user_id"`
	ChipBalance  int64     `json:"chip_balance"`
	CashBalance  int64     `json:"cash_balance"`
	LifetimeWon  int64     `json:"lifetime_won"`
	LifetimeLost int64     `json:"lifetime_lost"`
	GamesPlayed  int64     `json:"games_played"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Entry is one conditional balance change. Won, Lost and Played only apply
// to chip entries and feed the lifetime statistics.
type Entry struct {
	ID            string
	UserID        int64
	Asset         Asset
	Kind          Kind
	Delta         int64
	Won           int64
	Lost          int64
	Played        int64
	CorrelationID string
}

// Transaction is the stored record of an applied entry.
type Transaction struct {
	ID            string    `json:"id"`
	UserID        int64     `json:"user_id"`
	Asset         Asset     `json:"asset"`
	Kind          Kind      `json:"kind"`
	Delta         int64     `json:"delta"`
	BalanceAfter  int64     `json:"balance_after"`
	CorrelationID string    `json:"correlation_id"`
	CreatedAt     time.Time `json:"created_at"`
	Replayed      bool      `json:"-"`
}

// Store persists accounts and the append-only transaction log.
//
// Apply runs every entry in one transaction: each balance update is
// conditional on the result staying non-negative, and any failure rolls the
// whole batch back. An entry whose ID already exists is not applied again;
// the stored transaction is returned with Replayed set.
type Store interface {
	Apply(ctx context.Context, entries []Entry) ([]Transaction, error)
	Account(ctx context.Context, userID int64) (Account, error)
	History(ctx context.Context, userID int64, limit int) ([]Transaction, error)
	Close() error
}

// matches reports whether a stored transaction was produced by the same entry.
func (t Transaction) matches(e Entry) bool {
	return t.UserID == e.UserID && t.Asset == e.Asset && t.Kind == e.Kind && t.Delta == e.Delta
}

func conflictError(e Entry) error {
	return fmt.Errorf("%w: %s", ErrKeyConflict, e.ID)
}

func insufficientError(e Entry) error {
	return fmt.Errorf("%w: user %d %s delta %d", ErrInsufficientFunds, e.UserID, e.Asset, e.Delta)
}
