package session

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

// EventKind identifies a session lifecycle change.
type EventKind string

const (
	EventLogin  EventKind = "login"
	EventLogout EventKind = "logout"
)

// Event is published whenever a session's tokens are set or cleared.
type Event struct {
	SessionID string
	Kind      EventKind
}

// Manager hands out one Store per browser session and fans session events
// out to subscribers.
type Manager struct {
	kv     KV
	stores *Registry[*Store]
	logger *logging.Logger

	mu          sync.RWMutex
	subscribers []func(Event)
}

// NewManager creates a manager. Stores idle for longer than ttl are dropped
// from memory; their persisted keys remain readable through kv.
func NewManager(kv KV, ttl time.Duration, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	m := &Manager{kv: kv, logger: logger}
	m.stores = NewRegistry(ttl, func(sid string) *Store {
		return NewStore(sid, kv, m.publish)
	})
	return m
}

// Open returns the store for sessionID, creating it on first use.
func (m *Manager) Open(sessionID string) *Store {
	return m.stores.Get(sessionID)
}

// Subscribe registers fn for every session event. Subscribers run
// synchronously on the goroutine that changed the session.
func (m *Manager) Subscribe(fn func(Event)) {
	m.mu.Lock()
	m.subscribers = append(m.subscribers, fn)
	m.mu.Unlock()
}

func (m *Manager) publish(ev Event) {
	m.mu.RLock()
	subs := append([]func(Event){}, m.subscribers...)
	m.mu.RUnlock()

	m.logger.Debug("session event", "session_id", ev.SessionID, "kind", string(ev.Kind))
	for _, fn := range subs {
		fn(ev)
	}
}

// Registry keeps one value per session id in memory, expiring idle entries.
type Registry[T any] struct {
	mu     sync.Mutex
	cache  *gocache.Cache
	create func(sessionID string) T
}

// NewRegistry creates a registry whose entries expire after ttl without access.
func NewRegistry[T any](ttl time.Duration, create func(sessionID string) T) *Registry[T] {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &Registry[T]{
		cache:  gocache.New(ttl, 5*time.Minute),
		create: create,
	}
}

// Get returns the value for sessionID, creating it when absent. Each access
// extends the entry's lifetime.
func (r *Registry[T]) Get(sessionID string) T {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.cache.Get(sessionID); ok {
		r.cache.Set(sessionID, v, gocache.DefaultExpiration)
		return v.(T)
	}
	v := r.create(sessionID)
	r.cache.Set(sessionID, v, gocache.DefaultExpiration)
	return v
}

// Peek returns the value for sessionID without creating one.
func (r *Registry[T]) Peek(sessionID string) (T, bool) {
	v, ok := r.cache.Get(sessionID)
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// Drop forgets the value for sessionID.
func (r *Registry[T]) Drop(sessionID string) {
	r.cache.Delete(sessionID)
}
