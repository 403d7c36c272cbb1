package ledger

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps the ledger in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[int64]*Account
	txns     map[string]Transaction
	byUser   map[int64][]string
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[int64]*Account),
		txns:     make(map[string]Transaction),
		byUser:   make(map[int64][]string),
		now:      time.Now,
	}
}

func (s *MemoryStore) Apply(ctx context.Context, entries []Entry) ([]Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	staged := make(map[int64]Account)
	out := make([]Transaction, 0, len(entries))
	pending := make([]Transaction, 0, len(entries))

	for _, e := range entries {
		if prior, ok := s.txns[e.ID]; ok {
			if !prior.matches(e) {
				return nil, conflictError(e)
			}
			prior.Replayed = true
			out = append(out, prior)
			continue
		}

		acct, ok := staged[e.UserID]
		if !ok {
			if existing, found := s.accounts[e.UserID]; found {
				acct = *existing
			} else {
				acct = Account{UserID: e.UserID, CreatedAt: now}
			}
		}

		var after int64
		switch e.Asset {
		case AssetCash:
			if acct.CashBalance+e.Delta < 0 {
				return nil, insufficientError(e)
			}
			acct.CashBalance += e.Delta
			after = acct.CashBalance
		default:
			if acct.ChipBalance+e.Delta < 0 {
				return nil, insufficientError(e)
			}
			acct.ChipBalance += e.Delta
			acct.LifetimeWon += e.Won
			acct.LifetimeLost += e.Lost
			acct.GamesPlayed += e.Played
			after = acct.ChipBalance
		}
		acct.UpdatedAt = now
		staged[e.UserID] = acct

		txn := Transaction{
			ID:            e.ID,
			UserID:        e.UserID,
			Asset:         e.Asset,
			Kind:          e.Kind,
			Delta:         e.Delta,
			BalanceAfter:  after,
			CorrelationID: e.CorrelationID,
			CreatedAt:     now,
		}
		pending = append(pending, txn)
		out = append(out, txn)
	}

	for id, acct := range staged {
		a := acct
		s.accounts[id] = &a
	}
	for _, txn := range pending {
		s.txns[txn.ID] = txn
		s.byUser[txn.UserID] = append(s.byUser[txn.UserID], txn.ID)
	}
	return out, nil
}

func (s *MemoryStore) Account(ctx context.Context, userID int64) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[userID]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return *acct, nil
}

func (s *MemoryStore) History(ctx context.Context, userID int64, limit int) ([]Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.byUser[userID]
	out := make([]Transaction, 0, min(limit, len(ids)))
	for i := len(ids) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.txns[ids[i]])
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
