// Package pagination drives server-side paginated tables for the admin
// screens.
package pagination

import (
	"context"
	"errors"
	"sync"

	"github.com/wolfman30/salon-booking/internal/salonapi"
)

// NoResults is the text of the placeholder row of an empty table.
const NoResults = "No results"

var (
	ErrNoNextPage     = errors.New("pagination: no next page")
	ErrNoPreviousPage = errors.New("pagination: no previous page")
)

// Column describes one table column. Render wins over Path; Path defaults
// to Key.
type Column[T any] struct {
	Key     string
	Header  string
	Path    string
	Default string
	Render  func(T) string
}

// FetchFunc loads one page.
type FetchFunc[T any] func(ctx context.Context, page, size int) (salonapi.Page[T], error)

// Header is a rendered column header.
type Header struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Cell is one rendered cell. Span is set on the placeholder row.
type Cell struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Span  int    `json:"span,omitempty"`
}

// Row is one rendered row.
type Row struct {
	Cells    []Cell `json:"cells"`
	Skeleton bool   `json:"skeleton,omitempty"`
	Empty    bool   `json:"empty,omitempty"`
}

// View is the rendered table.
type View struct {
	Columns    []Header `json:"columns"`
	Rows       []Row    `json:"rows"`
	Page       int      `json:"page"`
	Size       int      `json:"size"`
	Total      int      `json:"total"`
	TotalPages int      `json:"totalPages"`
	Loading    bool     `json:"loading"`
	CanNext    bool     `json:"canNext"`
	CanPrev    bool     `json:"canPrev"`
	TraceID    string   `json:"traceId,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Table owns the page and size of one listing and re-fetches whenever they
// change. Responses to superseded requests are dropped.
type Table[T any] struct {
	columns []Column[T]
	fetch   FetchFunc[T]

	mu      sync.Mutex
	page    int
	size    int
	seq     uint64
	loading bool
	last    *salonapi.Page[T]
	err     error
}

// NewTable creates a table starting at page 1. A non-positive size uses the
// API default.
func NewTable[T any](columns []Column[T], fetch FetchFunc[T], size int) *Table[T] {
	q := salonapi.PageQuery{Page: 1, Size: size}.Normalized()
	return &Table[T]{columns: columns, fetch: fetch, page: q.Page, size: q.Size}
}

// Load fetches the current page.
func (t *Table[T]) Load(ctx context.Context) error {
	t.mu.Lock()
	page, size := t.page, t.size
	t.mu.Unlock()
	return t.load(ctx, page, size)
}

// load fetches page and size and commits them only when the fetch succeeds,
// so a failed navigation leaves the table on the page it shows.
func (t *Table[T]) load(ctx context.Context, page, size int) error {
	t.mu.Lock()
	t.seq++
	seq := t.seq
	t.loading = true
	t.mu.Unlock()

	result, err := t.fetch(ctx, page, size)

	t.mu.Lock()
	defer t.mu.Unlock()
	if seq != t.seq {
		return nil
	}
	t.loading = false
	if err != nil {
		t.err = err
		return err
	}
	t.err = nil
	t.page, t.size = page, size
	t.last = &result
	return nil
}

// SetPage moves to page p (clamped to 1) and fetches it.
func (t *Table[T]) SetPage(ctx context.Context, p int) error {
	if p < 1 {
		p = 1
	}
	t.mu.Lock()
	size := t.size
	t.mu.Unlock()
	return t.load(ctx, p, size)
}

// SetSize changes the page size, returns to page 1 and fetches.
func (t *Table[T]) SetSize(ctx context.Context, size int) error {
	q := salonapi.PageQuery{Page: 1, Size: size}.Normalized()
	return t.load(ctx, 1, q.Size)
}

// Next fetches the following page when the last result allows it.
func (t *Table[T]) Next(ctx context.Context) error {
	t.mu.Lock()
	if !t.canNextLocked() {
		t.mu.Unlock()
		return ErrNoNextPage
	}
	page, size := t.page+1, t.size
	t.mu.Unlock()
	return t.load(ctx, page, size)
}

// Prev fetches the preceding page when the last result allows it.
func (t *Table[T]) Prev(ctx context.Context) error {
	t.mu.Lock()
	if !t.canPrevLocked() {
		t.mu.Unlock()
		return ErrNoPreviousPage
	}
	page, size := t.page-1, t.size
	t.mu.Unlock()
	return t.load(ctx, page, size)
}

// CanNext reports whether Next is enabled.
func (t *Table[T]) CanNext() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.canNextLocked()
}

// CanPrev reports whether Prev is enabled.
func (t *Table[T]) CanPrev() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.canPrevLocked()
}

func (t *Table[T]) canNextLocked() bool {
	return !t.loading && t.last != nil && t.last.HasNext
}

func (t *Table[T]) canPrevLocked() bool {
	return !t.loading && t.last != nil && t.last.HasPrevious
}

// Page returns the current page and size.
func (t *Table[T]) Page() (page, size int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.page, t.size
}

// View renders the table.
func (t *Table[T]) View() View {
	t.mu.Lock()
	defer t.mu.Unlock()

	v := View{
		Columns: make([]Header, 0, len(t.columns)),
		Page:    t.page,
		Size:    t.size,
		Loading: t.loading,
		CanNext: t.canNextLocked(),
		CanPrev: t.canPrevLocked(),
	}
	for _, c := range t.columns {
		label := c.Header
		if label == "" {
			label = c.Key
		}
		v.Columns = append(v.Columns, Header{Key: c.Key, Label: label})
	}
	if t.err != nil {
		v.Error = t.err.Error()
	}
	if t.last != nil {
		v.Total = t.last.Total
		v.TotalPages = t.last.TotalPages
		v.TraceID = t.last.TraceID
	}

	switch {
	case t.loading:
		v.Rows = make([]Row, 0, t.size)
		for i := 0; i < t.size; i++ {
			cells := make([]Cell, len(t.columns))
			for j, c := range t.columns {
				cells[j] = Cell{Key: c.Key}
			}
			v.Rows = append(v.Rows, Row{Cells: cells, Skeleton: true})
		}
	case t.last == nil || len(t.last.Items) == 0:
		v.Rows = []Row{{
			Cells: []Cell{{Key: "empty", Value: NoResults, Span: len(t.columns)}},
			Empty: true,
		}}
	default:
		v.Rows = make([]Row, 0, len(t.last.Items))
		for _, item := range t.last.Items {
			v.Rows = append(v.Rows, Row{Cells: t.renderRow(item)})
		}
	}
	return v
}

func (t *Table[T]) renderRow(item T) []Cell {
	cells := make([]Cell, len(t.columns))
	for i, c := range t.columns {
		cells[i] = Cell{Key: c.Key, Value: renderCell(c, item)}
	}
	return cells
}

func renderCell[T any](c Column[T], item T) string {
	if c.Render != nil {
		return c.Render(item)
	}
	path := c.Path
	if path == "" {
		path = c.Key
	}
	val := Format(Extract(item, path, nil))
	if val == "" {
		return c.Default
	}
	return val
}
