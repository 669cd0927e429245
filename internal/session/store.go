package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Store holds every live browser session in memory.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	idleTTL  time.Duration
	onEvict  func(*Session)
	now      func() time.Time
}

// NewStore returns an empty store. Sessions unseen for idleTTL are dropped
// by Sweep; zero disables expiry.
func NewStore(idleTTL time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// OnEvict registers fn to run for each session Sweep drops. It runs
// outside the store lock.
func (st *Store) OnEvict(fn func(*Session)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.onEvict = fn
}

// Get returns the session for id, creating a new one when id is empty,
// malformed or unknown. created reports whether a new id was issued.
func (st *Store) Get(id string) (s *Session, created bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	if _, err := uuid.Parse(id); err == nil {
		if s, ok := st.sessions[id]; ok {
			s.LastSeen = now
			return s, false
		}
	}

	s = newSession(uuid.NewString(), now)
	st.sessions[s.ID] = s
	log.Debug().Str("session_id", s.ID).Msg("Browser session created")
	return s, true
}

// Lookup returns an existing session without creating one.
func (st *Store) Lookup(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep drops sessions idle longer than the TTL and returns how many went.
func (st *Store) Sweep() int {
	if st.idleTTL <= 0 {
		return 0
	}
	st.mu.Lock()
	cutoff := st.now().Add(-st.idleTTL)
	var evicted []*Session
	for id, s := range st.sessions {
		if s.LastSeen.Before(cutoff) {
			delete(st.sessions, id)
			evicted = append(evicted, s)
		}
	}
	remaining, onEvict := len(st.sessions), st.onEvict
	st.mu.Unlock()

	if onEvict != nil {
		for _, s := range evicted {
			onEvict(s)
		}
	}
	if len(evicted) > 0 {
		log.Info().Int("removed", len(evicted)).Int("remaining", remaining).Msg("Expired idle browser sessions")
	}
	return len(evicted)
}
