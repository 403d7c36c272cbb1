package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore persists the ledger in PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects, tunes the pool and applies embedded migrations.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database url is required")
	}

	if err := migratePostgres(databaseURL); err != nil {
		return nil, err
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 30
	config.MinConns = 8
	config.MaxConnLifetime = 45 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second
	config.ConnConfig.RuntimeParams = map[string]string{
		"application_name":                    "hrc-casino",
		"timezone":                            "UTC",
		"statement_timeout":                   "30s",
		"idle_in_transaction_session_timeout": "60s",
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	conn.Release()

	return &PostgresStore{pool: pool}, nil
}

func migratePostgres(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open migration db: %w", err)
	}
	//nolint:errcheck
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "ledger_schema_migrations"})
	if err != nil {
		return fmt.Errorf("init postgres driver: %w", err)
	}
	if err := runMigrations(driver, postgresMigrations, "migrations/postgres", "postgres"); err != nil {
		return fmt.Errorf("ledger migrations failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

const (
	pgSelectTxn = `SELECT id, user_id, asset, kind, delta, balance_after, correlation_id, created_at
		FROM ledger_transactions WHERE id = $1`
	pgEnsureAccount = `INSERT INTO ledger_accounts (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`
	pgUpdateChips   = `UPDATE ledger_accounts
		SET chip_balance = chip_balance + $2, lifetime_won = lifetime_won + $3,
			lifetime_lost = lifetime_lost + $4, games_played = games_played + $5, updated_at = now()
		WHERE user_id = $1 AND chip_balance + $2 >= 0
		RETURNING chip_balance`
	pgUpdateCash = `UPDATE ledger_accounts
		SET cash_balance = cash_balance + $2, updated_at = now()
		WHERE user_id = $1 AND cash_balance + $2 >= 0
		RETURNING cash_balance`
	pgInsertTxn = `INSERT INTO ledger_transactions
		(id, user_id, asset, kind, delta, balance_after, correlation_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`
)

func scanPgTxn(row pgx.Row) (Transaction, error) {
	var t Transaction
	var asset, kind string
	if err := row.Scan(&t.ID, &t.UserID, &asset, &kind, &t.Delta, &t.BalanceAfter, &t.CorrelationID, &t.CreatedAt); err != nil {
		return Transaction{}, err
	}
	t.Asset = Asset(asset)
	t.Kind = Kind(kind)
	return t, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Apply retries once when a concurrent writer inserted the same key between
// our lookup and insert; the retry then sees the stored row as a replay.
func (s *PostgresStore) Apply(ctx context.Context, entries []Entry) ([]Transaction, error) {
	txns, err := s.apply(ctx, entries)
	if err != nil && isUniqueViolation(err) {
		return s.apply(ctx, entries)
	}
	return txns, err
}

func (s *PostgresStore) apply(ctx context.Context, entries []Entry) ([]Transaction, error) {
	out := make([]Transaction, 0, len(entries))
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, e := range entries {
			prior, err := scanPgTxn(tx.QueryRow(ctx, pgSelectTxn, e.ID))
			switch {
			case err == nil:
				if !prior.matches(e) {
					return conflictError(e)
				}
				prior.Replayed = true
				out = append(out, prior)
				continue
			case !errors.Is(err, pgx.ErrNoRows):
				return fmt.Errorf("lookup transaction %s: %w", e.ID, err)
			}

			if _, err := tx.Exec(ctx, pgEnsureAccount, e.UserID); err != nil {
				return fmt.Errorf("ensure account %d: %w", e.UserID, err)
			}

			var after int64
			if e.Asset == AssetCash {
				err = tx.QueryRow(ctx, pgUpdateCash, e.UserID, e.Delta).Scan(&after)
			} else {
				err = tx.QueryRow(ctx, pgUpdateChips, e.UserID, e.Delta, e.Won, e.Lost, e.Played).Scan(&after)
			}
			if errors.Is(err, pgx.ErrNoRows) {
				return insufficientError(e)
			}
			if err != nil {
				return fmt.Errorf("update balance %d: %w", e.UserID, err)
			}

			txn := Transaction{
				ID:            e.ID,
				UserID:        e.UserID,
				Asset:         e.Asset,
				Kind:          e.Kind,
				Delta:         e.Delta,
				BalanceAfter:  after,
				CorrelationID: e.CorrelationID,
			}
			err = tx.QueryRow(ctx, pgInsertTxn, e.ID, e.UserID, string(e.Asset), string(e.Kind), e.Delta, after, e.CorrelationID).Scan(&txn.CreatedAt)
			if err != nil {
				return fmt.Errorf("insert transaction %s: %w", e.ID, err)
			}
			out = append(out, txn)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) Account(ctx context.Context, userID int64) (Account, error) {
	var a Account
	err := s.pool.QueryRow(ctx, `SELECT user_id, chip_balance, cash_balance, lifetime_won, lifetime_lost, games_played, created_at, updated_at
		FROM ledger_accounts WHERE user_id = $1`, userID).
		Scan(&a.UserID, &a.ChipBalance, &a.CashBalance, &a.LifetimeWon, &a.LifetimeLost, &a.GamesPlayed, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("get account %d: %w", userID, err)
	}
	return a, nil
}

func (s *PostgresStore) History(ctx context.Context, userID int64, limit int) ([]Transaction, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, user_id, asset, kind, delta, balance_after, correlation_id, created_at
		FROM ledger_transactions WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history %d: %w", userID, err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanPgTxn(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
