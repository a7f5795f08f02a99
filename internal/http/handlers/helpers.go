package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/wolfman30/salon-booking/internal/http/middleware"
	"github.com/wolfman30/salon-booking/internal/salonapi"
	"github.com/wolfman30/salon-booking/internal/session"
	"github.com/wolfman30/salon-booking/internal/wizard"
)

const maxBodyBytes = 1 << 20

var (
	errNoSession  = errors.New("no browser session")
	errBadRequest = errors.New("invalid request")
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads a JSON request body into v. An empty body leaves v as is.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func storeFrom(r *http.Request) (*session.Store, error) {
	store, ok := middleware.StoreFromContext(r.Context())
	if !ok {
		return nil, errNoSession
	}
	return store, nil
}

// statusFor maps a failure onto the response status. Upstream 401, 403 and
// 404 pass through; other upstream failures become 502.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, errNoSession):
		return http.StatusUnauthorized
	case wizard.IsValidation(err):
		return http.StatusUnprocessableEntity
	}
	switch status := salonapi.StatusOf(err); {
	case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusNotFound:
		return status
	case status >= 400 && status < 500:
		return http.StatusUnprocessableEntity
	case status >= 500:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// messageFor is the text shown to the user for err.
func messageFor(err error) string {
	var stepErr *wizard.StepError
	if errors.As(err, &stepErr) && salonapi.StatusOf(err) == 0 {
		return stepErr.Message()
	}
	var apiErr *salonapi.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return http.StatusText(apiErr.Status)
	}
	if errors.Is(err, errBadRequest) || errors.Is(err, errNoSession) {
		return err.Error()
	}
	return "something went wrong, please try again"
}

func queryInt(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// normalizePhoneDigits extracts just the digits from a phone number.
func normalizePhoneDigits(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return digits.String()
}
