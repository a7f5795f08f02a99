package salonapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Shape tells whether the server wrapped its payload in a {data, meta} envelope.
type Shape int

const (
	ShapeBare Shape = iota
	ShapeEnvelope
)

func (s Shape) String() string {
	if s == ShapeEnvelope {
		return "envelope"
	}
	return "bare"
}

// Result is a successful response body, classified once at the client
// boundary so call sites never guess at the payload's location.
type Result struct {
	Shape   Shape
	Data    json.RawMessage
	Meta    *Meta
	TraceID string
	Success *bool
	Message string
}

// Meta is the pagination block of an enveloped list response. Nil fields
// were absent from the response.
type Meta struct {
	Page        *int
	Size        *int
	Total       *int
	TotalPages  *int
	HasNext     *bool
	HasPrevious *bool
}

func (m *Meta) UnmarshalJSON(b []byte) error {
	var raw struct {
		Page            *int  `json:"page"`
		CurrentPage     *int  `json:"currentPage"`
		Size            *int  `json:"size"`
		PageSize        *int  `json:"pageSize"`
		Total           *int  `json:"total"`
		TotalCount      *int  `json:"totalCount"`
		TotalPages      *int  `json:"totalPages"`
		HasNext         *bool `json:"hasNext"`
		HasNextPage     *bool `json:"hasNextPage"`
		HasPrevious     *bool `json:"hasPrevious"`
		HasPreviousPage *bool `json:"hasPreviousPage"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*m = Meta{
		Page:        firstInt(raw.Page, raw.CurrentPage),
		Size:        firstInt(raw.Size, raw.PageSize),
		Total:       firstInt(raw.Total, raw.TotalCount),
		TotalPages:  raw.TotalPages,
		HasNext:     firstBool(raw.HasNext, raw.HasNextPage),
		HasPrevious: firstBool(raw.HasPrevious, raw.HasPreviousPage),
	}
	return nil
}

var emptyObject = json.RawMessage(`{}`)

// ParseResult classifies a JSON response body. Objects with a "data" member
// are envelopes; anything else is a bare payload.
func ParseResult(body []byte) (Result, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return Result{Shape: ShapeBare, Data: emptyObject}, nil
	}
	if !json.Valid(body) {
		return Result{}, errors.New("salonapi: response is not valid JSON")
	}
	if body[0] != '{' {
		return Result{Shape: ShapeBare, Data: json.RawMessage(body)}, nil
	}

	var env struct {
		Data    json.RawMessage `json:"data"`
		Meta    *Meta           `json:"meta"`
		TraceID string          `json:"traceId"`
		Success *bool           `json:"success"`
		Message string          `json:"message"`
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(body, &members); err != nil {
		return Result{}, fmt.Errorf("salonapi: decode response: %w", err)
	}
	if _, ok := members["data"]; !ok {
		return Result{Shape: ShapeBare, Data: json.RawMessage(body)}, nil
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return Result{}, fmt.Errorf("salonapi: decode envelope: %w", err)
	}
	return Result{
		Shape:   ShapeEnvelope,
		Data:    env.Data,
		Meta:    env.Meta,
		TraceID: env.TraceID,
		Success: env.Success,
		Message: env.Message,
	}, nil
}

// IsNull reports whether the payload is JSON null.
func (r Result) IsNull() bool {
	return len(r.Data) == 0 || bytes.Equal(bytes.TrimSpace(r.Data), []byte("null"))
}

// Decode unmarshals the payload, whichever shape carried it.
func (r Result) Decode(out any) error {
	if r.IsNull() {
		return nil
	}
	if err := json.Unmarshal(r.Data, out); err != nil {
		return fmt.Errorf("salonapi: decode %s payload: %w", r.Shape, err)
	}
	return nil
}

func firstInt(vals ...*int) *int {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstBool(vals ...*bool) *bool {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
