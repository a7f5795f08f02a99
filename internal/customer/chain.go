package customer

import (
	"context"
	"encoding/json"
)

// Chain resolves the customer id used by the booking wizard. It checks the
// resolver, then the persisted cache, then whether a session exists at all.
// The network lookup is deferred to FetchCustomerID.
type Chain struct {
	resolver *Resolver
	store    Session
}

// NewChain creates a chain over a resolver and its session store.
func NewChain(resolver *Resolver, store Session) *Chain {
	return &Chain{resolver: resolver, store: store}
}

// KnownCustomerID returns a customer id without any network call.
// authenticated is true when a session exists even if no id is known yet.
func (c *Chain) KnownCustomerID(ctx context.Context) (id string, authenticated bool) {
	if id, ok := c.resolver.CustomerID(); ok {
		return id, true
	}
	if data, ok := c.store.CustomerData(ctx); ok {
		var cached struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(data, &cached); err == nil && cached.ID != "" {
			return cached.ID, true
		}
	}
	_, authenticated = c.store.Identity(ctx)
	return "", authenticated
}

// FetchCustomerID looks the customer up synchronously. An empty id with a nil
// error means the identity has no linked customer.
func (c *Chain) FetchCustomerID(ctx context.Context) (string, error) {
	snap, err := c.resolver.Load(ctx)
	if err != nil {
		return "", err
	}
	if snap.Customer != nil && snap.Customer.ID != "" {
		return snap.Customer.ID.String(), nil
	}
	if snap.Err != nil {
		return "", snap.Err
	}
	return "", nil
}
