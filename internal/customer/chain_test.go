package customer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/salon-booking/internal/salonapi"
)

func TestChain_KnownCustomerID(t *testing.T) {
	ctx := context.Background()

	t.Run("resolver value first", func(t *testing.T) {
		store := newStore(t, "acc-1")
		require.NoError(t, store.SetCustomerData(ctx, []byte(`{"id":"cached"}`)))
		r := NewResolver(store, &fakeLookup{customer: &salonapi.Customer{ID: "live"}}, nil)
		_, err := r.Load(ctx)
		require.NoError(t, err)

		id, authed := NewChain(r, store).KnownCustomerID(ctx)
		assert.Equal(t, "live", id)
		assert.True(t, authed)
	})

	t.Run("persisted cache second", func(t *testing.T) {
		store := newStore(t, "acc-1")
		require.NoError(t, store.SetCustomerData(ctx, []byte(`{"id":"cached"}`)))
		r := NewResolver(store, &fakeLookup{}, nil)

		id, _ := NewChain(r, store).KnownCustomerID(ctx)
		assert.Equal(t, "cached", id)
	})

	t.Run("session only", func(t *testing.T) {
		store := newStore(t, "acc-1")
		id, authed := NewChain(NewResolver(store, &fakeLookup{}, nil), store).KnownCustomerID(ctx)
		assert.Empty(t, id)
		assert.True(t, authed)
	})

	t.Run("anonymous", func(t *testing.T) {
		store := newStore(t, "")
		id, authed := NewChain(NewResolver(store, &fakeLookup{}, nil), store).KnownCustomerID(ctx)
		assert.Empty(t, id)
		assert.False(t, authed)
	})
}

func TestChain_FetchCustomerID(t *testing.T) {
	ctx := context.Background()

	store := newStore(t, "acc-1")
	lookup := &fakeLookup{customer: &salonapi.Customer{ID: "42"}}
	id, err := NewChain(NewResolver(store, lookup, nil), store).FetchCustomerID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "42", id)

	store = newStore(t, "acc-1")
	id, err = NewChain(NewResolver(store, &fakeLookup{err: notFound()}, nil), store).FetchCustomerID(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)

	store = newStore(t, "acc-1")
	_, err = NewChain(NewResolver(store, &fakeLookup{err: errors.New("down")}, nil), store).FetchCustomerID(ctx)
	assert.EqualError(t, err, "down")
}
