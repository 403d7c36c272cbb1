// Package enginetest wires an engine over an in-memory ledger for game tests.
package enginetest

import (
	"context"
	"fmt"
	"testing"

	"hrc-casino/engine"
	"hrc-casino/ledger"

	"go.uber.org/zap"
)

// New returns an engine and its ledger with each user in chips opened and
// funded with the given chip balance.
func New(t testing.TB, chips map[int64]int64, opts ...engine.Option) (*engine.Engine, *ledger.Ledger) {
	t.Helper()
	l := ledger.New(ledger.NewMemoryStore(), zap.NewNop(), ledger.WithStartingCash(100_000_000))
	ctx := context.Background()
	for uid, amount := range chips {
		if _, err := l.Open(ctx, uid); err != nil {
			t.Fatalf("open %d: %v", uid, err)
		}
		if amount == 0 {
			continue
		}
		if _, err := l.Exchange(ctx, ledger.ExchangeRequest{
			Key:       fmt.Sprintf("fund-%d", uid),
			UserID:    uid,
			Chips:     amount,
			Direction: ledger.Buy,
		}); err != nil {
			t.Fatalf("fund %d: %v", uid, err)
		}
	}
	e := engine.New(l, zap.NewNop(), opts...)
	t.Cleanup(e.Close)
	return e, l
}

// Balance returns a user's chip balance or fails the test.
func Balance(t testing.TB, l *ledger.Ledger, userID int64) int64 {
	t.Helper()
	bal, err := l.Balance(context.Background(), userID)
	if err != nil {
		t.Fatalf("balance %d: %v", userID, err)
	}
	return bal
}

// Session returns the live session under key or fails the test.
func Session(t testing.TB, e *engine.Engine, key engine.Key) engine.Session {
	t.Helper()
	s, err := e.Registry().Get(key)
	if err != nil {
		t.Fatalf("get %s: %v", key, err)
	}
	return s
}
