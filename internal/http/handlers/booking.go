package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/salon-booking/internal/customer"
	"github.com/wolfman30/salon-booking/internal/observability/metrics"
	"github.com/wolfman30/salon-booking/internal/salonapi"
	"github.com/wolfman30/salon-booking/internal/session"
	"github.com/wolfman30/salon-booking/internal/suggest"
	"github.com/wolfman30/salon-booking/internal/wizard"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

// BookingHandler drives the per-session booking wizard.
type BookingHandler struct {
	client    *salonapi.Client
	customers *customer.Registry
	wizards   *session.Registry[*wizard.Wizard]
	suggester *suggest.Suggester
	language  wizard.Language
	metrics   *metrics.BookingMetrics
	logger    *logging.Logger
}

// BookingConfig wires a BookingHandler. Suggester may be nil, which
// disables the suggestions endpoint.
type BookingConfig struct {
	Client    *salonapi.Client
	Customers *customer.Registry
	Location  *time.Location
	Language  wizard.Language
	TTL       time.Duration
	Suggester *suggest.Suggester
	Metrics   *metrics.BookingMetrics
	Logger    *logging.Logger
}

func NewBookingHandler(cfg BookingConfig) *BookingHandler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	loc := cfg.Location
	return &BookingHandler{
		client:    cfg.Client,
		customers: cfg.Customers,
		wizards: session.NewRegistry(cfg.TTL, func(string) *wizard.Wizard {
			return wizard.New(loc)
		}),
		suggester: cfg.Suggester,
		language:  cfg.Language,
		metrics:   cfg.Metrics,
		logger:    logger,
	}
}

type stateResponse struct {
	State wizard.View `json:"state"`
	Error string      `json:"error,omitempty"`
}

// session resolves the wizard of the request's browser session.
func (h *BookingHandler) session(w http.ResponseWriter, r *http.Request) (*session.Store, *wizard.Wizard, bool) {
	store, err := storeFrom(r)
	if err != nil {
		jsonError(w, messageFor(err), statusFor(err))
		return nil, nil, false
	}
	return store, h.wizards.Get(store.SessionID()), true
}

func (h *BookingHandler) respond(w http.ResponseWriter, wz *wizard.Wizard, err error) {
	if err != nil {
		writeJSON(w, statusFor(err), stateResponse{State: wz.State(), Error: messageFor(err)})
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{State: wz.State()})
}

// editHandler decodes the body into req and applies fn to the wizard.
func editHandler[T any](h *BookingHandler, fn func(wz *wizard.Wizard, req T) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, wz, ok := h.session(w, r)
		if !ok {
			return
		}
		var req T
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, messageFor(err), statusFor(err))
			return
		}
		h.respond(w, wz, fn(wz, req))
	}
}

// GET /api/booking
func (h *BookingHandler) State(w http.ResponseWriter, r *http.Request) {
	if _, wz, ok := h.session(w, r); ok {
		h.respond(w, wz, nil)
	}
}

type siteRequest struct {
	SiteID string `json:"siteId"`
}

// POST /api/booking/site
func (h *BookingHandler) SetSite() http.HandlerFunc {
	return editHandler(h, func(wz *wizard.Wizard, req siteRequest) error {
		return wz.SetSite(strings.TrimSpace(req.SiteID))
	})
}

type servicesRequest struct {
	ServiceIDs []string `json:"serviceIds"`
	Toggle     string   `json:"toggle"`
}

// POST /api/booking/services replaces the selection, or flips one service
// when toggle is set.
func (h *BookingHandler) SetServices() http.HandlerFunc {
	return editHandler(h, func(wz *wizard.Wizard, req servicesRequest) error {
		if id := strings.TrimSpace(req.Toggle); id != "" {
			return wz.ToggleService(id)
		}
		return wz.SetServices(req.ServiceIDs)
	})
}

type stylistRequest struct {
	StylistID string `json:"stylistId"`
}

// POST /api/booking/stylist
func (h *BookingHandler) SetStylist() http.HandlerFunc {
	return editHandler(h, func(wz *wizard.Wizard, req stylistRequest) error {
		return wz.SetStylist(strings.TrimSpace(req.StylistID))
	})
}

type dateTimeRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// POST /api/booking/datetime
func (h *BookingHandler) SetDateTime() http.HandlerFunc {
	return editHandler(h, func(wz *wizard.Wizard, req dateTimeRequest) error {
		err := wz.SetDateTime(req.Date, req.Time)
		if err != nil && !wizard.IsValidation(err) {
			return fmt.Errorf("%w: %w", errBadRequest, err)
		}
		return err
	})
}

type noteRequest struct {
	Note string `json:"note"`
}

// POST /api/booking/note
func (h *BookingHandler) SetNote() http.HandlerFunc {
	return editHandler(h, func(wz *wizard.Wizard, req noteRequest) error {
		return wz.SetNote(req.Note)
	})
}

// POST /api/booking/next
func (h *BookingHandler) Next(w http.ResponseWriter, r *http.Request) {
	store, wz, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respond(w, wz, wz.Next(r.Context(), h.customers.Chain(store.SessionID())))
}

// POST /api/booking/back
func (h *BookingHandler) Back(w http.ResponseWriter, r *http.Request) {
	if _, wz, ok := h.session(w, r); ok {
		h.respond(w, wz, wz.Back())
	}
}

// POST /api/booking/submit
func (h *BookingHandler) Submit(w http.ResponseWriter, r *http.Request) {
	store, wz, ok := h.session(w, r)
	if !ok {
		return
	}
	conf, err := wz.Submit(r.Context(), h.customers.Chain(store.SessionID()), h.client.Salon(store))
	switch {
	case err == nil:
		h.metrics.ObserveSubmission("ok")
		h.logger.Info("booking submitted",
			"session_id", store.SessionID(),
			"booking_id", conf.BookingID,
			"site_id", conf.SiteID,
		)
	case wizard.IsValidation(err):
		h.metrics.ObserveSubmission("invalid")
	default:
		h.metrics.ObserveSubmission("error")
		h.logger.Warn("booking submission failed",
			"session_id", store.SessionID(),
			"status", salonapi.StatusOf(err),
			"error", err,
		)
	}
	h.respond(w, wz, err)
}

// POST /api/booking/reset
func (h *BookingHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if _, wz, ok := h.session(w, r); ok {
		wz.Reset()
		h.respond(w, wz, nil)
	}
}

// GET /api/booking/slots
func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	lang := h.language
	if q := r.URL.Query().Get("lang"); q != "" {
		lang = wizard.ParseLanguage(q)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"language": lang,
		"slots":    wizard.TimeSlots(lang),
	})
}

type suggestionsRequest struct {
	Preference string   `json:"preference"`
	Services   []string `json:"services"`
	Stylist    string   `json:"stylist"`
	Date       string   `json:"date"`
}

// Suggestions asks the language model for good slots on the draft's date.
// Service and stylist names from the body take precedence over the draft's
// ids.
// POST /api/booking/suggestions
func (h *BookingHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	if h.suggester == nil {
		jsonError(w, "suggestions are not available", http.StatusServiceUnavailable)
		return
	}
	_, wz, ok := h.session(w, r)
	if !ok {
		return
	}
	var req suggestionsRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, messageFor(err), statusFor(err))
		return
	}

	draft := wz.Draft()
	in := suggest.Request{
		Services:   req.Services,
		Stylist:    req.Stylist,
		Date:       req.Date,
		Preference: strings.TrimSpace(req.Preference),
		Candidates: wizard.TimeSlots(h.language),
		Language:   string(h.language),
	}
	if len(in.Services) == 0 {
		in.Services = draft.Services()
	}
	if in.Stylist == "" {
		in.Stylist = draft.StylistID
	}
	if in.Date == "" {
		in.Date = draft.Date.String()
	}

	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()
	out, err := h.suggester.Suggest(ctx, in)
	if err != nil {
		h.logger.Warn("schedule suggestion failed", "error", err)
		jsonError(w, "could not suggest a time right now", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": nonNil(out)})
}
