package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type registryEntry struct {
	session   *EditSession
	expiresAt time.Time
}

// Registry owns the open sessions of this process, keyed by session id.
// Each entry carries an idle deadline; Sweep expires the ones that lapsed.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*registryEntry
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewRegistry creates a registry whose entries live ttl past their last touch
func NewRegistry(ttl time.Duration, clock func() time.Time, logger *slog.Logger) *Registry {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions: make(map[string]*registryEntry),
		ttl:      ttl,
		now:      clock,
		logger:   logger,
	}
}

// Add registers s, returning false if its id is already taken
func (r *Registry) Add(s *EditSession) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[s.ID()]; exists {
		return false
	}
	r.sessions[s.ID()] = &registryEntry{session: s, expiresAt: r.now().Add(r.ttl)}
	return true
}

// Get returns the session and extends its deadline
func (r *Registry) Get(id string) (*EditSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	entry.expiresAt = r.now().Add(r.ttl)
	return entry.session, true
}

// ExpiresAt reports the idle deadline of a session
func (r *Registry) ExpiresAt(id string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[id]
	if !ok {
		return time.Time{}, false
	}
	return entry.expiresAt, true
}

// Remove drops a session without closing it
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Len returns the number of registered sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes and removes every session past its deadline, releasing their
// locks with reason timeout
func (r *Registry) Sweep(ctx context.Context) int {
	now := r.now()

	r.mu.Lock()
	var expired []*EditSession
	for id, entry := range r.sessions {
		if !now.Before(entry.expiresAt) {
			expired = append(expired, entry.session)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		if err := s.Expire(ctx); err != nil {
			r.logger.Warn("failed to expire session",
				"session_id", s.ID(),
				"document_id", s.DocumentID(),
				"error", err,
			)
			continue
		}
		r.logger.Info("session expired",
			"session_id", s.ID(),
			"document_id", s.DocumentID(),
		)
	}
	return len(expired)
}

// Run sweeps every interval until ctx is cancelled
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// CloseAll closes every session, used on shutdown
func (r *Registry) CloseAll(ctx context.Context) {
	r.mu.Lock()
	all := make([]*EditSession, 0, len(r.sessions))
	for id, entry := range r.sessions {
		all = append(all, entry.session)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, s := range all {
		if err := s.Close(ctx); err != nil {
			r.logger.Warn("failed to close session on shutdown", "session_id", s.ID(), "error", err)
		}
	}
}
