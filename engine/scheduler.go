package engine

import (
	"sync"
	"time"

	"hrc-casino/utils"

	"go.uber.org/zap"
)

// Scheduler owns every session timer, keyed by session id and timer name.
// Cancelling a session drops all its timers; a callback whose timer was
// cancelled or replaced before it ran is skipped.
type Scheduler struct {
	mu     sync.Mutex
	timers map[string]map[string]*timer
	closed bool
	log    *zap.Logger
}

type timer struct {
	t *time.Timer
}

// NewScheduler creates an empty scheduler.
func NewScheduler(log *zap.Logger) *Scheduler {
	return &Scheduler{
		timers: make(map[string]map[string]*timer),
		log:    log,
	}
}

// After runs fn once after d, replacing any timer with the same name.
func (s *Scheduler) After(sessionID, name string, d time.Duration, fn func()) {
	s.arm(sessionID, name, d, func() bool {
		fn()
		return false
	})
}

// Every runs fn every d until it returns false or the session is cancelled.
func (s *Scheduler) Every(sessionID, name string, d time.Duration, fn func() bool) {
	s.arm(sessionID, name, d, func() bool {
		if !fn() {
			return false
		}
		s.rearm(sessionID, name, d, fn)
		return true
	})
}

func (s *Scheduler) arm(sessionID, name string, d time.Duration, fn func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	named, ok := s.timers[sessionID]
	if !ok {
		named = make(map[string]*timer)
		s.timers[sessionID] = named
	}
	if prev, ok := named[name]; ok {
		prev.t.Stop()
	}

	entry := &timer{}
	named[name] = entry
	entry.t = time.AfterFunc(d, func() {
		if !s.claim(sessionID, name, entry) {
			return
		}
		utils.RecordTimerFire(name)
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("scheduler callback panicked",
					zap.String("session_id", sessionID), zap.String("timer", name), zap.Any("panic", r))
			}
		}()
		fn()
	})
}

// rearm schedules the next tick only if the session was not cancelled while
// the previous tick ran.
func (s *Scheduler) rearm(sessionID, name string, d time.Duration, fn func() bool) {
	s.mu.Lock()
	_, live := s.timers[sessionID]
	s.mu.Unlock()
	if live {
		s.Every(sessionID, name, d, fn)
	}
}

// claim removes entry from the table if it is still the current timer for
// name. The session map itself stays until Cancel so a running Every can
// re-arm.
func (s *Scheduler) claim(sessionID, name string, entry *timer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	named, ok := s.timers[sessionID]
	if !ok || named[name] != entry {
		return false
	}
	delete(named, name)
	return true
}

// Cancel stops every timer belonging to the session.
func (s *Scheduler) Cancel(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.timers[sessionID] {
		entry.t.Stop()
	}
	delete(s.timers, sessionID)
}

// Pending returns the number of armed timers for a session.
func (s *Scheduler) Pending(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers[sessionID])
}

// Close stops all timers and refuses new ones.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, named := range s.timers {
		for _, entry := range named {
			entry.t.Stop()
		}
		delete(s.timers, id)
	}
}
