// Package session keeps one UploadController per browser session.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anime-shed/authenticity-validator-go/internal/controller"
	"github.com/anime-shed/authenticity-validator-go/internal/logger"
)

// Factory builds the controller for a new session
type Factory func(id string) *controller.UploadController

type entry struct {
	ctrl     *controller.UploadController
	lastSeen time.Time
}

// Registry maps session ids to controllers
type Registry struct {
	factory Factory
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

// NewRegistry creates an empty registry
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		factory:  factory,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// NewID returns a fresh random session id
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like one issued by NewID
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Get returns the controller for id, creating it on first use
func (r *Registry) Get(id string) *controller.UploadController {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		e = &entry{ctrl: r.factory(id)}
		r.sessions[id] = e
		logger.WithComponent("session_registry").WithField("session_id", id).Debug("Session created")
	}
	e.lastSeen = r.now()
	return e.ctrl
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than maxIdle. Sessions with a
// submission in flight are kept. It returns the number removed.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-maxIdle)
	removed := 0
	for id, e := range r.sessions {
		if e.lastSeen.After(cutoff) || e.ctrl.IsBusy() {
			continue
		}
		delete(r.sessions, id)
		removed++
	}
	if removed > 0 {
		logger.WithComponent("session_registry").WithField("removed", removed).Info("Idle sessions evicted")
	}
	return removed
}
