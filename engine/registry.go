package engine

import (
	"context"
	"sync"
	"time"

	"hrc-casino/utils"

	"go.uber.org/zap"
)

// Registry tracks every live session by key, by id and by participant.
// It never holds its own lock while calling into a session. A created
// session stays pending, invisible to lookups, until Activate.
type Registry struct {
	sessions map[Key]Session
	pending  map[Key]struct{}
	byID     map[string]Key
	byUser   map[int64]map[Key]struct{}
	members  map[Key][]int64
	mutex    sync.RWMutex
	log      *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		sessions: make(map[Key]Session),
		pending:  make(map[Key]struct{}),
		byID:     make(map[string]Key),
		byUser:   make(map[int64]map[Key]struct{}),
		members:  make(map[Key][]int64),
		log:      log,
	}
}

// Create claims key for s. A terminal session still parked under the key is
// replaced; a live one yields ErrSessionExists.
func (r *Registry) Create(key Key, s Session) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if existing, ok := r.sessions[key]; ok {
		if !existing.Terminal() {
			return ErrSessionExists
		}
		r.removeLocked(key)
	}
	r.sessions[key] = s
	r.byID[s.ID()] = key
	r.pending[key] = struct{}{}
	r.publishCountLocked(key.Game)
	return nil
}

// Activate makes the pending session with the given id visible to lookups.
func (r *Registry) Activate(key Key, id string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	s, ok := r.sessions[key]
	if !ok || s.ID() != id {
		return false
	}
	delete(r.pending, key)
	return true
}

// Get returns the active session under key.
func (r *Registry) Get(key Key) (Session, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	s, ok := r.sessions[key]
	if _, starting := r.pending[key]; !ok || starting {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// GetByID returns the session with the given id.
func (r *Registry) GetByID(id string) (Session, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	key, ok := r.byID[id]
	if _, starting := r.pending[key]; !ok || starting {
		return nil, ErrSessionNotFound
	}
	return r.sessions[key], nil
}

// Track records userID as a participant of the session under key.
func (r *Registry) Track(userID int64, key Key) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, ok := r.sessions[key]; !ok {
		return
	}
	keys, ok := r.byUser[userID]
	if !ok {
		keys = make(map[Key]struct{})
		r.byUser[userID] = keys
	}
	if _, seen := keys[key]; !seen {
		keys[key] = struct{}{}
		r.members[key] = append(r.members[key], userID)
	}
}

// Remove drops the session under key if it still has the given id.
func (r *Registry) Remove(key Key, id string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	s, ok := r.sessions[key]
	if !ok || s.ID() != id {
		return false
	}
	r.removeLocked(key)
	return true
}

func (r *Registry) removeLocked(key Key) {
	if s, ok := r.sessions[key]; ok {
		delete(r.byID, s.ID())
	}
	delete(r.sessions, key)
	delete(r.pending, key)
	for _, userID := range r.members[key] {
		if keys, ok := r.byUser[userID]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(r.byUser, userID)
			}
		}
	}
	delete(r.members, key)
	r.publishCountLocked(key.Game)
}

func (r *Registry) publishCountLocked(game GameType) {
	n := 0
	for k := range r.sessions {
		if k.Game == game {
			n++
		}
	}
	utils.SetActiveSessions(string(game), n)
}

// UserSessions returns the keys of every session the user takes part in.
func (r *Registry) UserSessions(userID int64) []Key {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	keys := make([]Key, 0, len(r.byUser[userID]))
	for k := range r.byUser[userID] {
		keys = append(keys, k)
	}
	return keys
}

// Stats returns live session counts per game plus totals.
func (r *Registry) Stats() map[string]int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stats := make(map[string]int)
	for key := range r.sessions {
		stats[string(key.Game)]++
	}
	stats["total"] = len(r.sessions)
	stats["unique_users"] = len(r.byUser)
	return stats
}

// Sweep expires every session whose deadline passed before now. Sessions
// are collected under the read lock and expired after releasing it.
func (r *Registry) Sweep(ctx context.Context, now time.Time) int {
	r.mutex.RLock()
	var expired []Session
	for key, s := range r.sessions {
		if _, starting := r.pending[key]; starting {
			continue
		}
		if !s.Terminal() && !s.ExpiresAt().IsZero() && now.After(s.ExpiresAt()) {
			expired = append(expired, s)
		}
	}
	r.mutex.RUnlock()

	cleaned := 0
	for _, s := range expired {
		if _, err := s.Expire(ctx); err != nil {
			r.log.Warn("expire session failed", zap.String("session_id", s.ID()), zap.String("key", s.Key().String()), zap.Error(err))
			continue
		}
		cleaned++
	}
	return cleaned
}

// ForceCleanupUser expires every session the user takes part in.
func (r *Registry) ForceCleanupUser(ctx context.Context, userID int64) int {
	keys := r.UserSessions(userID)
	cleaned := 0
	for _, key := range keys {
		s, err := r.Get(key)
		if err != nil {
			continue
		}
		if _, err := s.Expire(ctx); err == nil {
			cleaned++
		}
	}
	return cleaned
}

// Run sweeps on every tick until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration, now func() time.Time) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := r.Sweep(ctx, now()); n > 10 {
				r.log.Info("swept expired sessions", zap.Int("expired", n))
			}
		case <-ctx.Done():
			return
		}
	}
}
