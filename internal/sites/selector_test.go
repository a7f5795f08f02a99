package sites

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/salon-booking/internal/salonapi"
)

type fakeSource struct {
	calls int
	sites []salonapi.Site
	err   error
}

func (f *fakeSource) ListSites(context.Context) ([]salonapi.Site, error) {
	f.calls++
	return f.sites, f.err
}

func TestSelector_EnsureLoadsOnceAndSelectsFirst(t *testing.T) {
	src := &fakeSource{sites: []salonapi.Site{{ID: "s1", Name: "District 1"}, {ID: "s2", Name: "District 3"}}}
	sel := NewSelector(src, nil)

	v := sel.Ensure(context.Background())
	assert.True(t, v.Loaded)
	assert.Equal(t, "s1", v.SelectedID)
	assert.Len(t, v.Sites, 2)

	sel.Ensure(context.Background())
	assert.Equal(t, 1, src.calls)
}

func TestSelector_KeepsManualSelectionOnRefresh(t *testing.T) {
	src := &fakeSource{sites: []salonapi.Site{{ID: "s1"}, {ID: "s2"}}}
	sel := NewSelector(src, nil)

	sel.SetSelected("s2")
	sel.Ensure(context.Background())
	id, ok := sel.Selected()
	require.True(t, ok)
	assert.Equal(t, "s2", id)

	sel.Refresh(context.Background())
	id, _ = sel.Selected()
	assert.Equal(t, "s2", id)
	assert.Equal(t, 2, src.calls)
}

func TestSelector_FailureSetsFlagWithoutRetry(t *testing.T) {
	src := &fakeSource{err: errors.New("salon api down")}
	sel := NewSelector(src, nil)

	v := sel.Ensure(context.Background())
	assert.True(t, v.Failed)
	assert.Equal(t, "salon api down", v.Error)
	assert.False(t, v.Loaded)

	sel.Ensure(context.Background())
	assert.Equal(t, 1, src.calls, "no automatic retry")

	src.err = nil
	src.sites = []salonapi.Site{{ID: "s9"}}
	v = sel.Refresh(context.Background())
	assert.False(t, v.Failed)
	assert.Equal(t, "s9", v.SelectedID)
	assert.False(t, sel.Failed())
}

func TestSelector_EmptyListSelectsNothing(t *testing.T) {
	sel := NewSelector(&fakeSource{}, nil)
	v := sel.Ensure(context.Background())
	assert.True(t, v.Loaded)
	assert.Empty(t, v.SelectedID)
	_, ok := sel.Selected()
	assert.False(t, ok)
	assert.Empty(t, sel.Sites())
}
