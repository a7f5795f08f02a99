// Package sites tracks the operating sites of the salon and the site an admin
// session is working in.
package sites

import (
	"context"
	"sync"

	"github.com/wolfman30/salon-booking/internal/salonapi"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

// Source lists sites.
type Source interface {
	ListSites(ctx context.Context) ([]salonapi.Site, error)
}

// View is the selector state handed to the front end.
type View struct {
	Sites      []salonapi.Site `json:"sites"`
	SelectedID string          `json:"selectedId"`
	Loaded     bool            `json:"loaded"`
	Failed     bool            `json:"failed"`
	Error      string          `json:"error,omitempty"`
}

// Selector loads the site list once and remembers the selected site.
// A failed load is not retried until Refresh is called.
type Selector struct {
	source Source
	logger *logging.Logger

	mu       sync.Mutex
	sites    []salonapi.Site
	selected string
	loaded   bool
	attempts int
	err      error
}

// NewSelector creates an empty selector.
func NewSelector(source Source, logger *logging.Logger) *Selector {
	if logger == nil {
		logger = logging.Default()
	}
	return &Selector{source: source, logger: logger}
}

// Ensure loads the sites on first use. Later calls, including after a
// failure, return the current view without contacting the API.
func (s *Selector) Ensure(ctx context.Context) View {
	s.mu.Lock()
	tried := s.attempts > 0
	s.mu.Unlock()
	if tried {
		return s.View()
	}
	return s.Refresh(ctx)
}

// Refresh reloads the site list. The current selection is kept; the first
// site is selected only when nothing is selected yet.
func (s *Selector) Refresh(ctx context.Context) View {
	list, err := s.source.ListSites(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if err != nil {
		s.err = err
		s.logger.Warn("failed to load sites", "error", err)
		return s.viewLocked()
	}
	s.err = nil
	s.sites = list
	s.loaded = true
	if s.selected == "" && len(list) > 0 {
		s.selected = list[0].ID.String()
	}
	return s.viewLocked()
}

// SetSelected overrides the selected site.
func (s *Selector) SetSelected(id string) {
	s.mu.Lock()
	s.selected = id
	s.mu.Unlock()
}

// Selected returns the selected site id.
func (s *Selector) Selected() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected, s.selected != ""
}

// Sites returns the loaded sites.
func (s *Selector) Sites() []salonapi.Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]salonapi.Site(nil), s.sites...)
}

// Failed reports whether the last load failed.
func (s *Selector) Failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err != nil
}

// View returns the current state.
func (s *Selector) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Selector) viewLocked() View {
	v := View{
		Sites:      append([]salonapi.Site{}, s.sites...),
		SelectedID: s.selected,
		Loaded:     s.loaded,
		Failed:     s.err != nil,
	}
	if s.err != nil {
		v.Error = s.err.Error()
	}
	return v
}
