package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"shiptrack/internal/alerts"
)

// Registry keeps sessions by id.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	defaults alerts.Thresholds
}

func NewRegistry(defaults alerts.Thresholds) *Registry {
	return &Registry{sessions: map[string]*Session{}, defaults: defaults}
}

func (r *Registry) Create() *Session {
	s := New(uuid.NewString(), r.defaults)
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

// List returns sessions oldest first.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Expire removes sessions not updated since cutoff and returns how many.
func (r *Registry) Expire(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.sessions {
		if s.UpdatedAt().Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}
