package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/neexbeast/takeabreak/internal/location"
)

// Session bundles the view state and chat transcript of one app session.
type Session struct {
	ID         string
	State      *ViewState
	Transcript *Transcript

	lastSeen   time.Time
	exchanging atomic.Bool
}

// TryBeginExchange marks the session as having an exchange in progress.
// It returns false if one already is. Pair a true result with EndExchange.
func (s *Session) TryBeginExchange() bool {
	return s.exchanging.CompareAndSwap(false, true)
}

// EndExchange clears the mark set by TryBeginExchange.
func (s *Session) EndExchange() {
	s.exchanging.Store(false)
}

// Registry holds live sessions keyed by session ID.
type Registry struct {
	catalog *location.Catalog
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry constructs an empty Registry whose sessions share catalog.
func NewRegistry(catalog *location.Catalog) *Registry {
	return &Registry{
		catalog:  catalog,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for id, creating it on first use.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		s = &Session{
			ID:         id,
			State:      NewViewState(r.catalog),
			Transcript: NewTranscript(),
		}
		r.sessions[id] = s
	}
	s.lastSeen = r.now()
	return s
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions not used within idle and returns how many were removed.
func (r *Registry) Sweep(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-idle)
	removed := 0
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// SetClock replaces the registry's time source (for tests).
func (r *Registry) SetClock(now func() time.Time) {
	r.mu.Lock()
	r.now = now
	r.mu.Unlock()
}
