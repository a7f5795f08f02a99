package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_OpenReusesStore(t *testing.T) {
	m := NewManager(NewMemoryKV(time.Hour), time.Hour, nil)

	a := m.Open("sid-1")
	b := m.Open("sid-1")
	c := m.Open("sid-2")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, "sid-2", c.SessionID())
}

func TestManager_PublishesToSubscribers(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryKV(time.Hour), time.Hour, nil)

	var mu sync.Mutex
	var got []Event
	m.Subscribe(func(ev Event) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	})

	store := m.Open("sid-1")
	require.NoError(t, store.SetTokens(ctx, Tokens{AccessToken: "a"}))
	require.NoError(t, store.Clear(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Event{
		{SessionID: "sid-1", Kind: EventLogin},
		{SessionID: "sid-1", Kind: EventLogout},
	}, got)
}

func TestRegistry_GetPeekDrop(t *testing.T) {
	created := 0
	r := NewRegistry(time.Hour, func(sid string) *string {
		created++
		v := "value-" + sid
		return &v
	})

	_, ok := r.Peek("a")
	assert.False(t, ok)

	first := r.Get("a")
	second := r.Get("a")
	assert.Same(t, first, second)
	assert.Equal(t, 1, created)

	peeked, ok := r.Peek("a")
	require.True(t, ok)
	assert.Equal(t, "value-a", *peeked)

	r.Drop("a")
	_, ok = r.Peek("a")
	assert.False(t, ok)
	r.Get("a")
	assert.Equal(t, 2, created)
}
