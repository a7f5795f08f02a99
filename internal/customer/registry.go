package customer

import (
	"context"
	"time"

	"github.com/wolfman30/salon-booking/internal/salonapi"
	"github.com/wolfman30/salon-booking/internal/session"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

// LookupFactory builds the customer lookup for one session store.
type LookupFactory func(store *session.Store) Lookup

// SalonLookup returns a factory that authenticates with the session's
// access token.
func SalonLookup(client *salonapi.Client) LookupFactory {
	return func(store *session.Store) Lookup {
		return client.Salon(store)
	}
}

type entry struct {
	resolver  *Resolver
	refresher *Refresher
}

// Registry owns one resolver per browser session and reacts to session
// login and logout events.
type Registry struct {
	sessions *session.Manager
	lookup   LookupFactory
	logger   *logging.Logger
	entries  *session.Registry[*entry]
}

// NewRegistry creates a registry and subscribes it to sessions.
func NewRegistry(sessions *session.Manager, lookup LookupFactory, backoff Backoff, ttl time.Duration, logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Default()
	}
	r := &Registry{sessions: sessions, lookup: lookup, logger: logger}
	r.entries = session.NewRegistry(ttl, func(sid string) *entry {
		store := sessions.Open(sid)
		res := NewResolver(store, lookup(store), logger.With("session_id", sid))
		return &entry{resolver: res, refresher: NewRefresher(res, backoff, logger)}
	})
	sessions.Subscribe(r.handle)
	return r
}

// Resolver returns the resolver for sessionID.
func (r *Registry) Resolver(sessionID string) *Resolver {
	return r.entries.Get(sessionID).resolver
}

// Chain returns the wizard customer-id chain for sessionID.
func (r *Registry) Chain(sessionID string) *Chain {
	return NewChain(r.Resolver(sessionID), r.sessions.Open(sessionID))
}

// Refresher returns the background refresher for sessionID.
func (r *Registry) Refresher(sessionID string) *Refresher {
	return r.entries.Get(sessionID).refresher
}

func (r *Registry) handle(ev session.Event) {
	switch ev.Kind {
	case session.EventLogin:
		e := r.entries.Get(ev.SessionID)
		e.resolver.Invalidate()
		if err := r.sessions.Open(ev.SessionID).ForgetCustomerData(context.Background()); err != nil {
			r.logger.Warn("failed to drop cached customer on login", "session_id", ev.SessionID, "error", err)
		}
		e.refresher.Start(context.Background())
	case session.EventLogout:
		e, ok := r.entries.Peek(ev.SessionID)
		if !ok {
			return
		}
		e.refresher.Stop()
		e.resolver.Invalidate()
		r.entries.Drop(ev.SessionID)
	}
}
