package persona

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Store publishes registry snapshots. Readers call Snapshot once per
// message and keep using that value; writers swap in a new *Registry.
type Store struct {
	current atomic.Pointer[Registry]

	mu   sync.Mutex
	live map[string]bool // nil publishes every persona
}

// NewStore creates a store holding the given personas.
func NewStore(personas []*Persona) *Store {
	s := &Store{}
	s.current.Store(NewRegistry(personas, nil))
	return s
}

// Snapshot returns the current registry. Never nil.
func (s *Store) Snapshot() *Registry {
	if r := s.current.Load(); r != nil {
		return r
	}
	return NewRegistry(nil, nil)
}

// SetHandle records the transport handle a persona resolved to at startup.
func (s *Store) SetHandle(id, handle string) {
	for {
		old := s.current.Load()
		next := old.WithHandle(id, handle)
		if s.current.CompareAndSwap(old, next) {
			slog.Debug("persona handle resolved", "persona", id, "handle", handle)
			return
		}
	}
}

// Replace publishes a freshly loaded persona list. Handles of personas
// that are still present carry over. After Retain, personas outside the
// retained set are left out.
func (s *Store) Replace(personas []*Persona) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publish(s.filter(personas))
}

// Retain limits the registry to the given persona ids, now and on every
// later Replace. Personas without a running bot must not be routed to.
func (s *Store) Retain(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = make(map[string]bool, len(ids))
	for _, id := range ids {
		s.live[id] = true
	}
	s.publish(s.filter(s.Snapshot().Personas()))
}

func (s *Store) filter(personas []*Persona) []*Persona {
	if s.live == nil {
		return personas
	}
	kept := make([]*Persona, 0, len(personas))
	for _, p := range personas {
		if p == nil {
			continue
		}
		if s.live[p.ID] {
			kept = append(kept, p)
		} else {
			slog.Debug("persona has no running bot, not routable", "persona", p.ID)
		}
	}
	return kept
}

func (s *Store) publish(personas []*Persona) {
	for {
		old := s.current.Load()
		next := NewRegistry(personas, old.Handles())
		if s.current.CompareAndSwap(old, next) {
			slog.Info("persona registry published", "count", next.Len())
			return
		}
	}
}
