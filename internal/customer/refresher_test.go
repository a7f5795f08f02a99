package customer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/salon-booking/internal/salonapi"
	"github.com/wolfman30/salon-booking/internal/session"
)

func TestBackoff_Delay(t *testing.T) {
	b := Backoff{Base: 5 * time.Second, Max: time.Minute, MaxAttempts: 6}
	want := []time.Duration{0, 5 * time.Second, 10 * time.Second, 20 * time.Second, 40 * time.Second, time.Minute, time.Minute}
	for n, d := range want {
		assert.Equal(t, d, b.Delay(n), "attempt %d", n)
	}
}

func instantRefresher(r *Resolver, attempts int) *Refresher {
	f := NewRefresher(r, Backoff{Base: time.Millisecond, Max: time.Millisecond, MaxAttempts: attempts}, nil)
	f.sleep = func(ctx context.Context, _ time.Duration) bool { return ctx.Err() == nil }
	return f
}

func TestRefresher_StopsOncePresent(t *testing.T) {
	lookup := &fakeLookup{customer: &salonapi.Customer{ID: "42"}}
	r := NewResolver(newStore(t, "acc-1"), lookup, nil)
	f := instantRefresher(r, 5)

	f.Start(context.Background())
	f.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&lookup.calls))
	assert.Equal(t, StatePresent, r.Snapshot().State)
}

func TestRefresher_BoundedAttempts(t *testing.T) {
	lookup := &fakeLookup{err: errors.New("unavailable")}
	r := NewResolver(newStore(t, "acc-1"), lookup, nil)
	f := instantRefresher(r, 3)

	f.Start(context.Background())
	f.Wait()

	assert.EqualValues(t, 3, atomic.LoadInt32(&lookup.calls))
	assert.Equal(t, StateError, r.Snapshot().State)
}

func TestRefresher_NoopWhenAlreadyPresent(t *testing.T) {
	lookup := &fakeLookup{customer: &salonapi.Customer{ID: "42"}}
	r := NewResolver(newStore(t, "acc-1"), lookup, nil)
	_, err := r.Load(context.Background())
	require.NoError(t, err)

	f := instantRefresher(r, 5)
	f.Start(context.Background())
	f.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&lookup.calls))
}

func TestRefresher_StopCancelsRun(t *testing.T) {
	lookup := &fakeLookup{err: errors.New("unavailable")}
	r := NewResolver(newStore(t, "acc-1"), lookup, nil)
	f := NewRefresher(r, Backoff{Base: time.Hour, Max: time.Hour, MaxAttempts: 10}, nil)

	f.Start(context.Background())
	require.Eventually(t, func() bool { return atomic.LoadInt32(&lookup.calls) == 1 }, time.Second, time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		f.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&lookup.calls))
}

func TestRegistry_LoginTriggersRefreshAndLogoutDrops(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/Customer/GetDetailByAccountId/acc-1", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":{"id":"42","name":"Ana"}}`))
	}))
	defer ts.Close()

	sessions := session.NewManager(session.NewMemoryKV(time.Hour), time.Hour, nil)
	client := salonapi.NewClient(salonapi.Options{SalonBaseURL: ts.URL})
	reg := NewRegistry(sessions, SalonLookup(client), Backoff{Base: time.Millisecond, Max: time.Millisecond, MaxAttempts: 3}, time.Hour, nil)

	store := sessions.Open("sid-1")
	require.NoError(t, store.SetTokens(context.Background(), session.Tokens{AccessToken: signedToken(t, "acc-1")}))
	reg.Refresher("sid-1").Wait()

	snap := reg.Resolver("sid-1").Snapshot()
	require.Equal(t, StatePresent, snap.State)
	assert.Equal(t, salonapi.ID("42"), snap.Customer.ID)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	id, authed := reg.Chain("sid-1").KnownCustomerID(context.Background())
	assert.Equal(t, "42", id)
	assert.True(t, authed)

	before := reg.Resolver("sid-1")
	require.NoError(t, store.Clear(context.Background()))
	after := reg.Resolver("sid-1")
	assert.NotSame(t, before, after)
	assert.Equal(t, StateAbsent, after.Snapshot().State)
}
