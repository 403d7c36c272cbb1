package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists the ledger in a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// OpenSQLite opens a SQLite ledger and applies embedded migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer keeps the read-check-update sequence in Apply serialized.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite migrate driver: %w", err)
	}
	if err := runMigrations(driver, sqliteMigrations, "migrations/sqlite", "sqlite"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func withTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	err = fn(tx)
	if err != nil {
		rbErr := tx.Rollback()
		if rbErr != nil {
			return fmt.Errorf("rollback after fn error: %v (fn err: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const (
	sqliteSelectTxn = `SELECT id, user_id, asset, kind, delta, balance_after, correlation_id, created_at
		FROM ledger_transactions WHERE id = ?`
	sqliteEnsureAccount = `INSERT INTO ledger_accounts (user_id, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING`
	sqliteUpdateChips = `UPDATE ledger_accounts
		SET chip_balance = chip_balance + ?2, lifetime_won = lifetime_won + ?3,
			lifetime_lost = lifetime_lost + ?4, games_played = games_played + ?5, updated_at = ?6
		WHERE user_id = ?1 AND chip_balance + ?2 >= 0
		RETURNING chip_balance`
	sqliteUpdateCash = `UPDATE ledger_accounts
		SET cash_balance = cash_balance + ?2, updated_at = ?3
		WHERE user_id = ?1 AND cash_balance + ?2 >= 0
		RETURNING cash_balance`
	sqliteInsertTxn = `INSERT INTO ledger_transactions
		(id, user_id, asset, kind, delta, balance_after, correlation_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
)

func scanSQLiteTxn(row interface{ Scan(...any) error }) (Transaction, error) {
	var t Transaction
	var created int64
	if err := row.Scan(&t.ID, &t.UserID, &t.Asset, &t.Kind, &t.Delta, &t.BalanceAfter, &t.CorrelationID, &created); err != nil {
		return Transaction{}, err
	}
	t.CreatedAt = fromMillis(created)
	return t, nil
}

func (s *SQLiteStore) Apply(ctx context.Context, entries []Entry) ([]Transaction, error) {
	out := make([]Transaction, 0, len(entries))
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		for _, e := range entries {
			prior, err := scanSQLiteTxn(tx.QueryRowContext(ctx, sqliteSelectTxn, e.ID))
			switch {
			case err == nil:
				if !prior.matches(e) {
					return conflictError(e)
				}
				prior.Replayed = true
				out = append(out, prior)
				continue
			case !errors.Is(err, sql.ErrNoRows):
				return fmt.Errorf("lookup transaction %s: %w", e.ID, err)
			}

			if _, err := tx.ExecContext(ctx, sqliteEnsureAccount, e.UserID, toMillis(now), toMillis(now)); err != nil {
				return fmt.Errorf("ensure account %d: %w", e.UserID, err)
			}

			var after int64
			if e.Asset == AssetCash {
				err = tx.QueryRowContext(ctx, sqliteUpdateCash, e.UserID, e.Delta, toMillis(now)).Scan(&after)
			} else {
				err = tx.QueryRowContext(ctx, sqliteUpdateChips, e.UserID, e.Delta, e.Won, e.Lost, e.Played, toMillis(now)).Scan(&after)
			}
			if errors.Is(err, sql.ErrNoRows) {
				return insufficientError(e)
			}
			if err != nil {
				return fmt.Errorf("update balance %d: %w", e.UserID, err)
			}

			if _, err := tx.ExecContext(ctx, sqliteInsertTxn, e.ID, e.UserID, e.Asset, e.Kind, e.Delta, after, e.CorrelationID, toMillis(now)); err != nil {
				return fmt.Errorf("insert transaction %s: %w", e.ID, err)
			}
			out = append(out, Transaction{
				ID:            e.ID,
				UserID:        e.UserID,
				Asset:         e.Asset,
				Kind:          e.Kind,
				Delta:         e.Delta,
				BalanceAfter:  after,
				CorrelationID: e.CorrelationID,
				CreatedAt:     fromMillis(toMillis(now)),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) Account(ctx context.Context, userID int64) (Account, error) {
	var a Account
	var created, updated int64
	err := s.db.QueryRowContext(ctx, `SELECT user_id, chip_balance, cash_balance, lifetime_won, lifetime_lost, games_played, created_at, updated_at
		FROM ledger_accounts WHERE user_id = ?`, userID).
		Scan(&a.UserID, &a.ChipBalance, &a.CashBalance, &a.LifetimeWon, &a.LifetimeLost, &a.GamesPlayed, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("get account %d: %w", userID, err)
	}
	a.CreatedAt = fromMillis(created)
	a.UpdatedAt = fromMillis(updated)
	return a, nil
}

func (s *SQLiteStore) History(ctx context.Context, userID int64, limit int) ([]Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, asset, kind, delta, balance_after, correlation_id, created_at
		FROM ledger_transactions WHERE user_id = ? ORDER BY rowid DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history %d: %w", userID, err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanSQLiteTxn(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
