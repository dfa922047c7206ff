// Package session persists conversation history per session id. The core
// reads a bounded window before routing and appends both turns after the
// reply is computed; it never mutates history in place.
package session

import (
	"sync"
	"time"

	"github.com/farmachile/medagent/types"
)

// Store is the history collaborator the pipeline depends on.
type Store interface {
	// ReadWindow returns the most recent turns, oldest first, capped at limit.
	ReadWindow(sessionID string, limit int) []types.Turn
	// Append adds one turn to the session history.
	Append(sessionID string, turn types.Turn)
}

type entry struct {
	turns     []types.Turn
	updatedAt time.Time
}

// MemoryStore is an in-process Store with TTL expiry. Sessions idle past
// the TTL are dropped lazily on access and by the background sweep.
type MemoryStore struct {
	mu  sync.Mutex
	m   map[string]*entry
	ttl time.Duration
}

// NewMemoryStore creates a store; a zero ttl disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{m: make(map[string]*entry), ttl: ttl}
}

// StartSweep evicts expired sessions periodically until stop is closed.
func (s *MemoryStore) StartSweep(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-stop:
				return
			}
		}
	}()
}

func (s *MemoryStore) ReadWindow(sessionID string, limit int) []types.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[sessionID]
	if !ok || s.expired(e) {
		delete(s.m, sessionID)
		return nil
	}
	turns := e.turns
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]types.Turn, len(turns))
	copy(out, turns)
	return out
}

func (s *MemoryStore) Append(sessionID string, turn types.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	e, ok := s.m[sessionID]
	if !ok || s.expired(e) {
		e = &entry{}
		s.m[sessionID] = e
	}
	e.turns = append(e.turns, turn)
	e.updatedAt = now
}

// Len reports the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

func (s *MemoryStore) expired(e *entry) bool {
	return s.ttl > 0 && time.Since(e.updatedAt) > s.ttl
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.m {
		if s.expired(e) {
			delete(s.m, id)
		}
	}
}
