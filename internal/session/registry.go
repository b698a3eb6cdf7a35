package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// ErrDuplicateSession is returned by Registry.Add when the game id is
// already active.
var ErrDuplicateSession = errors.New("session already active")

// Archiver persists the final snapshot of a removed session. Implementations
// are called from a background goroutine; failures are logged, not
// propagated.
type Archiver interface {
	Archive(snap Snapshot) error
}

// Registry owns every active session. Other components hold only game ids
// and look sessions up here, because a session can be removed at any moment
// by game end or timeout.
type Registry struct {
	mu       sync.RWMutex
	active   map[int64]struct{}
	sessions map[int64]*Session

	archiver Archiver
	log      zerolog.Logger
}

// NewRegistry creates an empty registry. archiver may be nil when
// persistence is disabled.
func NewRegistry(archiver Archiver, log zerolog.Logger) *Registry {
	return &Registry{
		active:   make(map[int64]struct{}),
		sessions: make(map[int64]*Session),
		archiver: archiver,
		log:      log.With().Str("component", "registry").Logger(),
	}
}

// Add inserts a session atomically into the active set and the session map.
func (r *Registry) Add(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[s.ID()]; ok {
		r.log.Error().Str("game", AnonymizeID(s.ID())).Msg("session already exists")
		return fmt.Errorf("%w: %s", ErrDuplicateSession, AnonymizeID(s.ID()))
	}
	r.active[s.ID()] = struct{}{}
	r.sessions[s.ID()] = s
	return nil
}

// Get returns the session for id, or nil. A miss is a normal outcome when a
// message arrives for a game that ended mid-flight.
func (r *Registry) Get(id int64) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.active[id]; !ok {
		return nil
	}
	return r.sessions[id]
}

// Remove deletes the session and hands its final snapshot to the archiver,
// fire-and-forget. Removing an id twice is a logged no-op returning nil.
func (r *Registry) Remove(id int64) *Session {
	r.mu.Lock()
	if _, ok := r.active[id]; !ok {
		r.mu.Unlock()
		r.log.Warn().Str("game", AnonymizeID(id)).Msg("remove: session not found")
		return nil
	}
	delete(r.active, id)
	s := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if r.archiver != nil && s != nil {
		snap := s.Snapshot()
		go func() {
			if err := r.archiver.Archive(snap); err != nil {
				r.log.Error().Err(err).Str("game", AnonymizeID(id)).Msg("failed to archive session")
			}
		}()
	}
	return s
}

// IDs returns the ids of all active sessions.
func (r *Registry) IDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]int64, 0, len(r.active))
	for id := range r.active {
		out = append(out, id)
	}
	return out
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.active)
}
