// Package customer resolves the salon customer record linked to the signed-in
// identity of a browser session.
package customer

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/wolfman30/salon-booking/internal/salonapi"
	"github.com/wolfman30/salon-booking/internal/session"
	"github.com/wolfman30/salon-booking/pkg/logging"
	"golang.org/x/sync/singleflight"
)

// State of a resolver.
type State string

const (
	StateAbsent  State = "absent"
	StateLoading State = "loading"
	StatePresent State = "present"
	StateError   State = "error"
)

// Snapshot is a point-in-time view of a resolver. Customer may be set in
// StateError when a previously resolved value is still available.
type Snapshot struct {
	State    State              `json:"state"`
	Customer *salonapi.Customer `json:"customer"`
	Err      error              `json:"-"`
}

// Message returns the failure message, if any.
func (s Snapshot) Message() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// Lookup finds the customer linked to an identity account.
type Lookup interface {
	CustomerByAccountID(ctx context.Context, accountID string) (*salonapi.Customer, error)
}

// Session is the part of a session store the resolver reads and writes.
type Session interface {
	Identity(ctx context.Context) (*session.Claims, bool)
	CustomerData(ctx context.Context) ([]byte, bool)
	SetCustomerData(ctx context.Context, data []byte) error
	ForgetCustomerData(ctx context.Context) error
}

// Resolver tracks the customer of one browser session.
//
// Concurrent loads for the same account share one upstream call. Each
// Invalidate bumps a generation counter; a response that arrives for an
// older generation is discarded.
type Resolver struct {
	store  Session
	lookup Lookup
	logger *logging.Logger
	group  singleflight.Group

	mu         sync.Mutex
	state      State
	customer   *salonapi.Customer
	err        error
	generation uint64
	inflight   int
}

// NewResolver creates a resolver in StateAbsent.
func NewResolver(store Session, lookup Lookup, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{store: store, lookup: lookup, logger: logger, state: StateAbsent}
}

// Snapshot returns the current state.
func (r *Resolver) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Resolver) snapshotLocked() Snapshot {
	return Snapshot{State: r.state, Customer: r.customer, Err: r.err}
}

// Restore seeds the resolver from the persisted cache. Without an identity
// the resolver is absent.
func (r *Resolver) Restore(ctx context.Context) Snapshot {
	if _, ok := r.store.Identity(ctx); !ok {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.state, r.customer, r.err = StateAbsent, nil, nil
		return r.snapshotLocked()
	}

	cached := r.cached(ctx)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateLoading {
		return r.snapshotLocked()
	}
	if cached != nil {
		r.state, r.customer, r.err = StatePresent, cached, nil
	} else if r.customer == nil {
		r.state, r.err = StateAbsent, nil
	}
	return r.snapshotLocked()
}

// Load looks the customer up by the session's account id.
//
// A 404 or an empty payload resolves to absent without error. Any other
// failure moves to StateError and keeps the last known customer, falling
// back to the persisted cache. The returned error is non-nil only when ctx
// ended before the lookup finished; the response is then discarded.
func (r *Resolver) Load(ctx context.Context) (Snapshot, error) {
	claims, ok := r.store.Identity(ctx)
	if !ok || claims.AccountID() == "" {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.state, r.customer, r.err = StateAbsent, nil, nil
		return r.snapshotLocked(), nil
	}
	accountID := claims.AccountID()

	r.mu.Lock()
	gen := r.generation
	r.state, r.err = StateLoading, nil
	r.inflight++
	r.mu.Unlock()

	// Keyed by generation so a load after Invalidate never joins an older lookup.
	key := accountID + "#" + strconv.FormatUint(gen, 10)
	ch := r.group.DoChan(key, func() (any, error) {
		return r.lookup.CustomerByAccountID(context.WithoutCancel(ctx), accountID)
	})

	select {
	case <-ctx.Done():
		r.mu.Lock()
		defer r.mu.Unlock()
		r.inflight--
		if gen == r.generation && r.inflight == 0 && r.state == StateLoading {
			r.state = StateAbsent
			if r.customer != nil {
				r.state = StatePresent
			}
		}
		return r.snapshotLocked(), ctx.Err()
	case res := <-ch:
		c, _ := res.Val.(*salonapi.Customer)
		return r.apply(ctx, gen, c, res.Err), nil
	}
}

func (r *Resolver) apply(ctx context.Context, gen uint64, c *salonapi.Customer, err error) Snapshot {
	var fallback *salonapi.Customer
	if err != nil && !salonapi.IsNotFound(err) {
		r.mu.Lock()
		known := r.customer
		r.mu.Unlock()
		if known == nil {
			fallback = r.cached(ctx)
		}
	}

	r.mu.Lock()
	r.inflight--
	if gen != r.generation {
		snap := r.snapshotLocked()
		r.mu.Unlock()
		r.logger.Debug("discarding stale customer lookup")
		return snap
	}

	persist, forget := false, false
	switch {
	case err == nil && c != nil:
		r.state, r.customer, r.err = StatePresent, c, nil
		persist = true
	case err == nil || salonapi.IsNotFound(err):
		r.state, r.customer, r.err = StateAbsent, nil, nil
		forget = true
	default:
		r.state, r.err = StateError, err
		if r.customer == nil {
			r.customer = fallback
		}
	}
	snap := r.snapshotLocked()
	r.mu.Unlock()

	switch {
	case persist:
		if data, mErr := json.Marshal(c); mErr == nil {
			if wErr := r.store.SetCustomerData(ctx, data); wErr != nil {
				r.logger.Warn("failed to cache customer", "error", wErr)
			}
		}
	case forget:
		if fErr := r.store.ForgetCustomerData(ctx); fErr != nil {
			r.logger.Warn("failed to forget cached customer", "error", fErr)
		}
	}
	return snap
}

// Invalidate discards in-flight results and resets the resolver to absent.
// The persisted cache is left alone.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	r.state, r.customer, r.err = StateAbsent, nil, nil
}

// CustomerID returns the resolved customer id, if any.
func (r *Resolver) CustomerID() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.customer == nil || r.customer.ID == "" {
		return "", false
	}
	return r.customer.ID.String(), true
}

func (r *Resolver) cached(ctx context.Context) *salonapi.Customer {
	data, ok := r.store.CustomerData(ctx)
	if !ok {
		return nil
	}
	var c salonapi.Customer
	if err := json.Unmarshal(data, &c); err != nil || c.ID == "" {
		return nil
	}
	return &c
}
