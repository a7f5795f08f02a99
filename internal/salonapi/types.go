package salonapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ID is an entity identifier. The salon API emits both numeric and string
// ids; they are carried as strings.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("salonapi: id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Timestamp accepts unix seconds or RFC3339 strings.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			t.Time = time.Time{}
			return nil
		}
		if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
			t.Time = time.Unix(sec, 0).UTC()
			return nil
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05"} {
			if parsed, err := time.Parse(layout, s); err == nil {
				t.Time = parsed
				return nil
			}
		}
		return fmt.Errorf("salonapi: unrecognised timestamp %q", s)
	}
	var sec int64
	if err := json.Unmarshal(b, &sec); err != nil {
		return fmt.Errorf("salonapi: timestamp: %w", err)
	}
	t.Time = time.Unix(sec, 0).UTC()
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Unix())
}

// Customer is the salon's customer record linked to an identity account.
type Customer struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Code  string `json:"code,omitempty"`
}

// Site is an operating branch of the salon.
type Site struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

// Service is a bookable treatment offered at a site.
type Service struct {
	ID              ID     `json:"id"`
	Name            string `json:"name"`
	Code            string `json:"code,omitempty"`
	DurationMinutes int    `json:"duration,omitempty"`
}

// Staff is a stylist or other staff member.
type Staff struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

// Order is an admin-facing order record.
type Order struct {
	ID          ID        `json:"id"`
	Code        string    `json:"code,omitempty"`
	Status      string    `json:"status,omitempty"`
	Customer    *Customer `json:"customer,omitempty"`
	Site        *Site     `json:"site,omitempty"`
	TotalAmount float64   `json:"totalAmount"`
	CreatedAt   Timestamp `json:"createdAt"`
}

// BookingHeader is the booking part of a POST /Booking body.
type BookingHeader struct {
	BookingDate int64   `json:"bookingDate"`
	SiteID      string  `json:"siteId"`
	CustomerID  string  `json:"customerId"`
	StaffID     *string `json:"staffId"`
	Note        *string `json:"note"`
}

// ServiceLine is one requested service in a booking or order.
type ServiceLine struct {
	ServiceID string  `json:"serviceId"`
	Quantity  int     `json:"quantity"`
	Note      *string `json:"note"`
}

// BookingRequest is the POST /Booking body.
type BookingRequest struct {
	Booking  BookingHeader `json:"booking"`
	Services []ServiceLine `json:"services"`
}

// BookingResult is what the salon API returns for a created booking.
type BookingResult struct {
	ID     ID     `json:"id"`
	Code   string `json:"code,omitempty"`
	Status string `json:"status,omitempty"`
}

// WalkInOrderRequest is the POST /Order/CreateWalkIn body. Either CustomerID
// or Phone (with an optional name) identifies the customer.
type WalkInOrderRequest struct {
	SiteID       string        `json:"siteId"`
	CustomerID   *string       `json:"customerId"`
	CustomerName string        `json:"customerName,omitempty"`
	Phone        string        `json:"phone"`
	StaffID      *string       `json:"staffId"`
	Note         *string       `json:"note"`
	Services     []ServiceLine `json:"services"`
}

// OptionalString returns nil for blank strings, which the salon API expects
// as JSON null.
func OptionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageQuery is the body of a paginated endpoint: {page, size, ...filters}.
type PageQuery struct {
	Page    int
	Size    int
	Filters map[string]any
}

// Normalized clamps page to >= 1 and size to (0, MaxPageSize].
func (q PageQuery) Normalized() PageQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Size < 1 {
		q.Size = DefaultPageSize
	}
	if q.Size > MaxPageSize {
		q.Size = MaxPageSize
	}
	return q
}

func (q PageQuery) body() map[string]any {
	q = q.Normalized()
	body := make(map[string]any, len(q.Filters)+2)
	for k, v := range q.Filters {
		body[k] = v
	}
	body["page"] = q.Page
	body["size"] = q.Size
	return body
}

// Page is a normalized paginated result.
type Page[T any] struct {
	Items       []T    `json:"items"`
	Page        int    `json:"page"`
	Size        int    `json:"size"`
	Total       int    `json:"total"`
	TotalPages  int    `json:"totalPages"`
	HasNext     bool   `json:"hasNext"`
	HasPrevious bool   `json:"hasPrevious"`
	TraceID     string `json:"traceId,omitempty"`
	Success     bool   `json:"success"`
}

// DecodePage turns a list response into a Page. Flags the server provides are
// kept as-is. When the total is known, missing flags follow
// HasNext == (Page*Size < Total) and HasPrevious == (Page > 1). Without a
// total, a short page ends the listing and fixes the total; a full page
// implies another page and leaves Total and TotalPages at zero (unknown).
func DecodePage[T any](res Result, q PageQuery) (Page[T], error) {
	q = q.Normalized()
	items, err := DecodeList[T](res)
	if err != nil {
		return Page[T]{}, err
	}

	p := Page[T]{
		Items:   items,
		Page:    q.Page,
		Size:    q.Size,
		TraceID: res.TraceID,
		Success: res.Success == nil || *res.Success,
	}
	meta := res.Meta
	if meta == nil {
		meta = &Meta{}
	}
	if meta.Page != nil && *meta.Page > 0 {
		p.Page = *meta.Page
	}
	if meta.Size != nil && *meta.Size > 0 {
		p.Size = *meta.Size
	}

	hasNext := false
	switch {
	case meta.Total != nil:
		p.Total = *meta.Total
		p.TotalPages = (p.Total + p.Size - 1) / p.Size
		hasNext = p.Page*p.Size < p.Total
	case len(items) < p.Size:
		p.Total = (p.Page-1)*p.Size + len(items)
		p.TotalPages = (p.Total + p.Size - 1) / p.Size
	default:
		hasNext = true
	}
	if meta.TotalPages != nil {
		p.TotalPages = *meta.TotalPages
	}
	if meta.HasNext != nil {
		p.HasNext = *meta.HasNext
	} else {
		p.HasNext = hasNext
	}
	if meta.HasPrevious != nil {
		p.HasPrevious = *meta.HasPrevious
	} else {
		p.HasPrevious = p.Page > 1
	}
	return p, nil
}

// DecodeList decodes an array payload. A null payload is an empty list.
func DecodeList[T any](res Result) ([]T, error) {
	items := []T{}
	if res.IsNull() {
		return items, nil
	}
	trimmed := bytes.TrimSpace(res.Data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("salonapi: expected a list payload, got %s", res.Shape)
	}
	if err := res.Decode(&items); err != nil {
		return nil, err
	}
	return items, nil
}
