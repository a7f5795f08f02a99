package handlers

import (
	"net/http"
	"strings"

	"github.com/wolfman30/salon-booking/internal/customer"
	"github.com/wolfman30/salon-booking/internal/salonapi"
	"github.com/wolfman30/salon-booking/internal/session"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

// AuthHandler signs browser sessions in and out of the identity service.
type AuthHandler struct {
	client    *salonapi.Client
	customers *customer.Registry
	logger    *logging.Logger
}

func NewAuthHandler(client *salonapi.Client, customers *customer.Registry, logger *logging.Logger) *AuthHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AuthHandler{client: client, customers: customers, logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// MeResponse describes the signed-in identity. Claims are decoded without
// verification and are for display only.
type MeResponse struct {
	Authenticated bool              `json:"authenticated"`
	Claims        *session.Claims   `json:"claims,omitempty"`
	Customer      customer.Snapshot `json:"customer"`
	CustomerError string            `json:"customerError,omitempty"`
}

// Login exchanges credentials for a token pair.
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	store, err := storeFrom(r)
	if err != nil {
		jsonError(w, messageFor(err), statusFor(err))
		return
	}
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, messageFor(err), statusFor(err))
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		jsonError(w, "username and password are required", http.StatusBadRequest)
		return
	}

	tokens, err := h.client.Identity().Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Warn("login failed", "session_id", store.SessionID(), "status", salonapi.StatusOf(err), "error", err)
		jsonError(w, messageFor(err), statusFor(err))
		return
	}
	if err := store.SetTokens(r.Context(), tokens); err != nil {
		h.logger.Error("failed to persist tokens", "session_id", store.SessionID(), "error", err)
		jsonError(w, "failed to start session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.me(r, store))
}

// Logout clears the session's tokens and cached customer.
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	store, err := storeFrom(r)
	if err != nil {
		jsonError(w, messageFor(err), statusFor(err))
		return
	}
	if err := store.Clear(r.Context()); err != nil {
		h.logger.Error("failed to clear session", "session_id", store.SessionID(), "error", err)
		jsonError(w, "failed to sign out", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the decoded identity and the linked customer. With
// ?refresh=true the customer is looked up again before answering.
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	store, err := storeFrom(r)
	if err != nil {
		jsonError(w, messageFor(err), statusFor(err))
		return
	}
	if r.URL.Query().Get("refresh") == "true" {
		if _, err := h.customers.Resolver(store.SessionID()).Load(r.Context()); err != nil {
			jsonError(w, "request cancelled", http.StatusServiceUnavailable)
			return
		}
	}
	writeJSON(w, http.StatusOK, h.me(r, store))
}

func (h *AuthHandler) me(r *http.Request, store *session.Store) MeResponse {
	claims, ok := store.Identity(r.Context())
	resolver := h.customers.Resolver(store.SessionID())
	snap := resolver.Snapshot()
	if snap.State == customer.StateAbsent {
		snap = resolver.Restore(r.Context())
	}
	return MeResponse{
		Authenticated: ok,
		Claims:        claims,
		Customer:      snap,
		CustomerError: snap.Message(),
	}
}
