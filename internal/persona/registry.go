package persona

import (
	"maps"
	"slices"
)

// Registry is an immutable, ordered snapshot of personas plus the
// transport handle (Telegram username) each one resolved to.
// A nil *Registry behaves as an empty one.
type Registry struct {
	personas []*Persona
	byID     map[string]*Persona
	handles  map[string]string // persona id → username without "@"
}

// NewRegistry builds a snapshot. Order is preserved; on duplicate ids the
// first definition wins. handles may be nil.
func NewRegistry(personas []*Persona, handles map[string]string) *Registry {
	r := &Registry{
		personas: make([]*Persona, 0, len(personas)),
		byID:     make(map[string]*Persona, len(personas)),
		handles:  make(map[string]string, len(handles)),
	}
	for _, p := range personas {
		if p == nil || p.ID == "" {
			continue
		}
		if _, dup := r.byID[p.ID]; dup {
			continue
		}
		r.personas = append(r.personas, p)
		r.byID[p.ID] = p
	}
	for id, h := range handles {
		if _, ok := r.byID[id]; ok && h != "" {
			r.handles[id] = h
		}
	}
	return r
}

// Personas returns the personas in registry order. The slice is a copy;
// the personas themselves must be treated as read-only.
func (r *Registry) Personas() []*Persona {
	if r == nil {
		return nil
	}
	return slices.Clone(r.personas)
}

// Len returns the number of personas.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.personas)
}

// ByID looks up a persona by id.
func (r *Registry) ByID(id string) (*Persona, bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.byID[id]
	return p, ok
}

// ByCredentialPrefix finds the persona whose token starts with the given
// numeric bot id.
func (r *Registry) ByCredentialPrefix(prefix string) (*Persona, bool) {
	if r == nil || prefix == "" {
		return nil, false
	}
	for _, p := range r.personas {
		if p.CredentialPrefix() == prefix {
			return p, true
		}
	}
	return nil, false
}

// Handle returns the resolved transport handle for a persona, or "".
func (r *Registry) Handle(id string) string {
	if r == nil {
		return ""
	}
	return r.handles[id]
}

// Handles returns a copy of the id → handle map.
func (r *Registry) Handles() map[string]string {
	if r == nil {
		return map[string]string{}
	}
	return maps.Clone(r.handles)
}

// WithHandle returns a new snapshot with the handle for id set.
func (r *Registry) WithHandle(id, handle string) *Registry {
	handles := r.Handles()
	handles[id] = handle
	return NewRegistry(r.Personas(), handles)
}
