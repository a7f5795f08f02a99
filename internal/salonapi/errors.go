package salonapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// maxErrorMessage caps, in bytes, the plain text body kept as a message.
const maxErrorMessage = 300

// APIError is returned for every non-2xx response from the identity or
// salon API. Payload holds the response body when it parsed as JSON.
type APIError struct {
	Status  int
	Payload json.RawMessage
	Message string
	Path    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("salonapi: %s returned %d: %s", e.Path, e.Status, msg)
}

// StatusOf returns the HTTP status carried by err, or 0 when err is not an
// upstream response failure.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// IsUnauthorized reports whether err is an upstream 401.
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

func newAPIError(path string, status int, body []byte) *APIError {
	e := &APIError{Status: status, Path: path}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return e
	}
	if json.Valid([]byte(trimmed)) {
		e.Payload = json.RawMessage(trimmed)
		e.Message = errorMessage(e.Payload)
		return e
	}
	if len(trimmed) > maxErrorMessage {
		cut := maxErrorMessage
		for cut > 0 && !utf8.RuneStart(trimmed[cut]) {
			cut--
		}
		trimmed = trimmed[:cut]
	}
	e.Message = trimmed
	return e
}

// errorMessage pulls a human readable message out of common error bodies.
func errorMessage(payload json.RawMessage) string {
	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	for _, key := range []string{"message", "error", "title", "detail"} {
		if s, ok := body[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
