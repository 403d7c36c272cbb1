package ledger

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type cacheEntry struct {
	account   Account
	expiresAt time.Time
}

// AccountCache keeps recently read accounts. Every mutation through the
// Ledger drops the user's entry and bumps the generation, so a read that
// raced a write is never cached.
type AccountCache struct {
	data  map[int64]*cacheEntry
	gen   uint64
	mutex sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
}

// NewAccountCache creates a cache whose entries live for ttl.
func NewAccountCache(ttl time.Duration) *AccountCache {
	return &AccountCache{
		data: make(map[int64]*cacheEntry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Get retrieves an account from cache
func (c *AccountCache) Get(userID int64) (Account, bool) {
	c.mutex.RLock()
	entry, exists := c.data[userID]
	c.mutex.RUnlock()
	if !exists {
		return Account{}, false
	}

	if c.now().After(entry.expiresAt) {
		c.Delete(userID)
		return Account{}, false
	}
	return entry.account, true
}

// Generation changes every time an entry is invalidated.
func (c *AccountCache) Generation() uint64 {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.gen
}

// SetIfCurrent stores account unless an entry was invalidated since gen was
// read, in which case the account may predate that write.
func (c *AccountCache) SetIfCurrent(account Account, gen uint64) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.gen != gen {
		return false
	}
	c.data[account.UserID] = &cacheEntry{account: account, expiresAt: c.now().Add(c.ttl)}
	return true
}

// Delete removes a user from cache
func (c *AccountCache) Delete(userID int64) {
	c.mutex.Lock()
	delete(c.data, userID)
	c.gen++
	c.mutex.Unlock()
}

// Size returns the number of entries in cache
func (c *AccountCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Run removes expired entries every interval until ctx is done.
func (c *AccountCache) Run(ctx context.Context, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := c.cleanup(); n > 0 {
				log.Debug("cleaned up expired cache entries", zap.Int("expired", n), zap.Int("size", c.Size()))
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *AccountCache) cleanup() int {
	now := c.now()
	c.mutex.Lock()
	defer c.mutex.Unlock()
	expired := 0
	for userID, entry := range c.data {
		if now.After(entry.expiresAt) {
			delete(c.data, userID)
			expired++
		}
	}
	return expired
}
