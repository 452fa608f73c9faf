package app

import (
	"sync"
	"time"
)

// Scheduler runs at most one pending timed transition per game. Scheduling
// again for the same game replaces the previous timer.
type Scheduler struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

func NewScheduler() *Scheduler {
	return &Scheduler{timers: make(map[string]*time.Timer)}
}

// Schedule runs fn after d unless cancelled or replaced first.
func (s *Scheduler) Schedule(gameID string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if t, ok := s.timers[gameID]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.mu.Lock()
		if s.timers[gameID] != t {
			s.mu.Unlock()
			return
		}
		delete(s.timers, gameID)
		s.mu.Unlock()
		fn()
	})
	s.timers[gameID] = t
}

// Cancel drops the pending timer of a game.
func (s *Scheduler) Cancel(gameID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[gameID]; ok {
		t.Stop()
		delete(s.timers, gameID)
	}
}

// Pending reports whether a game has a timer waiting.
func (s *Scheduler) Pending(gameID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[gameID]
	return ok
}

// Stop cancels every timer and refuses new ones.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}
