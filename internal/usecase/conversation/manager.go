package conversation

import (
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

const maxCleanupInterval = 10 * time.Minute

// Manager owns the sessions. A session idle for longer than the TTL is forgotten.
type Manager struct {
	cache     *cache.Cache
	defaultID string
}

func NewManager(ttl time.Duration, defaultID string) *Manager {
	return &Manager{
		cache:     cache.New(ttl, min(ttl, maxCleanupInterval)),
		defaultID: defaultID,
	}
}

// ResolveID maps an empty session id to the default session
func (m *Manager) ResolveID(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return m.defaultID
}

// Acquire returns the session for id, creating it on first use
func (m *Manager) Acquire(id string) *Session {
	id = m.ResolveID(id)
	for {
		if x, found := m.cache.Get(id); found {
			s := x.(*Session)
			m.cache.SetDefault(id, s)
			return s
		}

		// Add fails when a concurrent caller created the session first
		s := newSession(id)
		if err := m.cache.Add(id, s, cache.DefaultExpiration); err == nil {
			return s
		}
	}
}

// Lookup returns an existing session without creating one
func (m *Manager) Lookup(id string) (*Session, bool) {
	x, found := m.cache.Get(m.ResolveID(id))
	if !found {
		return nil, false
	}
	return x.(*Session), true
}
