package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/salon-booking/internal/observability/metrics"
	"github.com/wolfman30/salon-booking/internal/pagination"
	"github.com/wolfman30/salon-booking/internal/salonapi"
	"github.com/wolfman30/salon-booking/internal/session"
	"github.com/wolfman30/salon-booking/internal/sites"
	"github.com/wolfman30/salon-booking/internal/wizard"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

// AdminHandler serves the back-office screens. Every call carries the
// session's bearer token; the salon API decides what the caller may see.
type AdminHandler struct {
	client    *salonapi.Client
	selectors *session.Registry[*sites.Selector]
	loc       *time.Location
	metrics   *metrics.BookingMetrics
	logger    *logging.Logger
}

func NewAdminHandler(client *salonapi.Client, sessions *session.Manager, ttl time.Duration, loc *time.Location, m *metrics.BookingMetrics, logger *logging.Logger) *AdminHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	h := &AdminHandler{client: client, loc: loc, metrics: m, logger: logger}
	h.selectors = session.NewRegistry(ttl, func(sid string) *sites.Selector {
		return sites.NewSelector(client.Salon(sessions.Open(sid)), logger.With("session_id", sid))
	})
	return h
}

func (h *AdminHandler) selector(r *http.Request) (*session.Store, *sites.Selector, error) {
	store, err := storeFrom(r)
	if err != nil {
		return nil, nil, err
	}
	return store, h.selectors.Get(store.SessionID()), nil
}

// siteFor returns the explicit siteId, falling back to the selected site.
func (h *AdminHandler) siteFor(ctx context.Context, sel *sites.Selector, explicit string) string {
	if id := strings.TrimSpace(explicit); id != "" {
		return id
	}
	sel.Ensure(ctx)
	id, _ := sel.Selected()
	return id
}

// GET /admin/sites
func (h *AdminHandler) Sites(w http.ResponseWriter, r *http.Request) {
	_, sel, err := h.selector(r)
	if err != nil {
		jsonError(w, messageFor(err), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, sel.Ensure(r.Context()))
}

// POST /admin/sites/refresh
func (h *AdminHandler) RefreshSites(w http.ResponseWriter, r *http.Request) {
	_, sel, err := h.selector(r)
	if err != nil {
		jsonError(w, messageFor(err), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, sel.Refresh(r.Context()))
}

// POST /admin/sites/select
func (h *AdminHandler) SelectSite(w http.ResponseWriter, r *http.Request) {
	_, sel, err := h.selector(r)
	if err != nil {
		jsonError(w, messageFor(err), statusFor(err))
		return
	}
	var req siteRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, messageFor(err), statusFor(err))
		return
	}
	id := strings.TrimSpace(req.SiteID)
	if id == "" {
		jsonError(w, "siteId is required", http.StatusBadRequest)
		return
	}
	sel.SetSelected(id)
	writeJSON(w, http.StatusOK, sel.View())
}

var customerColumns = []pagination.Column[salonapi.Customer]{
	{Key: "code", Header: "Code", Default: "-"},
	{Key: "name", Header: "Name"},
	{Key: "phone", Header: "Phone", Default: "-"},
	{Key: "email", Header: "Email", Default: "-"},
}

var serviceColumns = []pagination.Column[salonapi.Service]{
	{Key: "code", Header: "Code", Default: "-"},
	{Key: "name", Header: "Name"},
	{Key: "duration", Header: "Duration", Render: func(s salonapi.Service) string {
		if s.DurationMinutes <= 0 {
			return "-"
		}
		return fmt.Sprintf("%d min", s.DurationMinutes)
	}},
}

var staffColumns = []pagination.Column[salonapi.Staff]{
	{Key: "code", Header: "Code", Default: "-"},
	{Key: "name", Header: "Name"},
}

func orderColumns(loc *time.Location) []pagination.Column[salonapi.Order] {
	return []pagination.Column[salonapi.Order]{
		{Key: "code", Header: "Code", Default: "-"},
		{Key: "customer", Header: "Customer", Path: "customer.name", Default: "Walk-in"},
		{Key: "site", Header: "Site", Path: "site.name", Default: "-"},
		{Key: "status", Header: "Status", Default: "-"},
		{Key: "total", Header: "Total", Render: func(o salonapi.Order) string {
			return strconv.FormatFloat(o.TotalAmount, 'f', -1, 64)
		}},
		{Key: "createdAt", Header: "Created", Render: func(o salonapi.Order) string {
			if o.CreatedAt.IsZero() {
				return "-"
			}
			return o.CreatedAt.In(loc).Format("2006-01-02 15:04")
		}},
	}
}

// serveTable loads the requested page of a listing and writes its view. A
// failed fetch still renders the table, with the error attached.
func serveTable[T any](h *AdminHandler, w http.ResponseWriter, r *http.Request, columns []pagination.Column[T], fetch func(ctx context.Context, q salonapi.PageQuery) (salonapi.Page[T], error)) {
	size := queryInt(r, "size", salonapi.DefaultPageSize)
	table := pagination.NewTable(columns, func(ctx context.Context, page, size int) (salonapi.Page[T], error) {
		return fetch(ctx, salonapi.PageQuery{Page: page, Size: size})
	}, size)

	status := http.StatusOK
	if err := table.SetPage(r.Context(), queryInt(r, "page", 1)); err != nil {
		h.logger.Warn("failed to load admin table", "path", r.URL.Path, "error", err)
		status = statusFor(err)
	}
	writeJSON(w, status, table.View())
}

// GET /admin/customers?page=&size=&q=
func (h *AdminHandler) Customers(w http.ResponseWriter, r *http.Request) {
	store, err := storeFrom(r)
	if err != nil {
		jsonError(w, messageFor(err), statusFor(err))
		return
	}
	api := h.client.Salon(store)
	search := strings.TrimSpace(r.URL.Query().Get("q"))
	serveTable(h, w, r, customerColumns, func(ctx context.Context, q salonapi.PageQuery) (salonapi.Page[salonapi.Customer], error) {
		if search != "" {
			q.Filters = map[string]any{"keyword": search}
		}
		return api.CustomerPage(ctx, q)
	})
}

// GET /admin/services?page=&size=&siteId=
func (h *AdminHandler) Services(w http.ResponseWriter, r *http.Request) {
	store, sel, err := h.selector(r)
	if err != nil {
		jsonError(w, messageFor(err), statusFor(err))
		return
	}
	api := h.client.Salon(store)
	siteID := h.siteFor(r.Context(), sel, r.URL.Query().Get("siteId"))
	serveTable(h, w, r, serviceColumns, func(ctx context.Context, q salonapi.PageQuery) (salonapi.Page[salonapi.Service], error) {
		q.Filters = siteFilters(siteID)
		return api.ServicePage(ctx, q)
	})
}

// GET /admin/staff?page=&size=&siteId=
func (h *AdminHandler) Staff(w http.ResponseWriter, r *http.Request) {
	store, sel, err := h.selector(r)
	if err != nil {
		jsonError(w, messageFor(err), statusFor(err))
		return
	}
	api := h.client.Salon(store)
	siteID := h.siteFor(r.Context(), sel, r.URL.Query().Get("siteId"))
	serveTable(h, w, r, staffColumns, func(ctx context.Context, q salonapi.PageQuery) (salonapi.Page[salonapi.Staff], error) {
		q.Filters = siteFilters(siteID)
		return api.StaffPage(ctx, q)
	})
}

// GET /admin/orders?page=&size=&siteId=
func (h *AdminHandler) Orders(w http.ResponseWriter, r *http.Request) {
	store, sel, err := h.selector(r)
	if err != nil {
		jsonError(w, messageFor(err), statusFor(err))
		return
	}
	api := h.client.Salon(store)
	siteID := h.siteFor(r.Context(), sel, r.URL.Query().Get("siteId"))
	serveTable(h, w, r, orderColumns(h.loc), func(ctx context.Context, q salonapi.PageQuery) (salonapi.Page[salonapi.Order], error) {
		q.Filters = siteFilters(siteID)
		return api.OrderPage(ctx, q)
	})
}

func siteFilters(siteID string) map[string]any {
	if siteID == "" {
		return nil
	}
	return map[string]any{"siteId": siteID}
}

type adminBookingRequest struct {
	SiteID     string   `json:"siteId"`
	CustomerID string   `json:"customerId"`
	StaffID    string   `json:"staffId"`
	ServiceIDs []string `json:"serviceIds"`
	Date       string   `json:"date"`
	Time       string   `json:"time"`
	Note       string   `json:"note"`
}

// CreateBooking books on behalf of an existing customer at the selected site.
// POST /admin/bookings
func (h *AdminHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	store, sel, err := h.selector(r)
	if err != nil {
		jsonError(w, messageFor(err), statusFor(err))
		return
	}
	var req adminBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, messageFor(err), statusFor(err))
		return
	}

	draft := wizard.Draft{
		SiteID:     h.siteFor(r.Context(), sel, req.SiteID),
		ServiceIDs: serviceSet(req.ServiceIDs),
		StylistID:  strings.TrimSpace(req.StaffID),
		Note:       strings.TrimSpace(req.Note),
	}
	customerID := strings.TrimSpace(req.CustomerID)
	bookingDate, msg := h.validateBooking(draft, customerID, req.Date, req.Time)
	if msg != "" {
		jsonError(w, msg, http.StatusUnprocessableEntity)
		return
	}

	res, err := h.client.Salon(store).CreateBooking(r.Context(), wizard.BuildRequest(draft, customerID, bookingDate))
	if err != nil {
		h.metrics.ObserveSubmission("error")
		h.logger.Warn("admin booking failed", "site_id", draft.SiteID, "status", salonapi.StatusOf(err), "error", err)
		jsonError(w, messageFor(err), statusFor(err))
		return
	}
	h.metrics.ObserveSubmission("ok")
	writeJSON(w, http.StatusCreated, res)
}

func (h *AdminHandler) validateBooking(d wizard.Draft, customerID, date, label string) (int64, string) {
	switch {
	case d.SiteID == "":
		return 0, wizard.ErrNoSite.Error()
	case customerID == "":
		return 0, "select a customer"
	case len(d.ServiceIDs) == 0:
		return 0, wizard.ErrNoServices.Error()
	}
	day, err := wizard.ParseDate(date)
	if err != nil {
		return 0, wizard.ErrNoDateTime.Error()
	}
	hour, minute, err := wizard.ParseTimeLabel(label)
	if err != nil {
		return 0, wizard.ErrNoDateTime.Error()
	}
	return wizard.EncodeTimestamp(wizard.ComposeInstant(day, hour, minute, h.loc)), ""
}

type walkInRequest struct {
	SiteID       string   `json:"siteId"`
	CustomerName string   `json:"customerName"`
	Phone        string   `json:"phone"`
	StaffID      string   `json:"staffId"`
	ServiceIDs   []string `json:"serviceIds"`
	Note         string   `json:"note"`
}

// CreateWalkIn records a walk-in order. The customer is matched by phone at
// submission; an unknown phone creates the order under the given name.
// POST /admin/orders/walk-in
func (h *AdminHandler) CreateWalkIn(w http.ResponseWriter, r *http.Request) {
	store, sel, err := h.selector(r)
	if err != nil {
		jsonError(w, messageFor(err), statusFor(err))
		return
	}
	var req walkInRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, messageFor(err), statusFor(err))
		return
	}

	siteID := h.siteFor(r.Context(), sel, req.SiteID)
	phone := normalizePhoneDigits(req.Phone)
	services := serviceSet(req.ServiceIDs)
	switch {
	case siteID == "":
		jsonError(w, wizard.ErrNoSite.Error(), http.StatusUnprocessableEntity)
		return
	case phone == "":
		jsonError(w, "a phone number is required", http.StatusUnprocessableEntity)
		return
	case len(services) == 0:
		jsonError(w, wizard.ErrNoServices.Error(), http.StatusUnprocessableEntity)
		return
	}

	api := h.client.Salon(store)
	order := salonapi.WalkInOrderRequest{
		SiteID:       siteID,
		CustomerName: strings.TrimSpace(req.CustomerName),
		Phone:        phone,
		StaffID:      salonapi.OptionalString(req.StaffID),
		Note:         salonapi.OptionalString(req.Note),
		Services:     wizard.BuildRequest(wizard.Draft{ServiceIDs: services}, "", 0).Services,
	}

	existing, err := api.FindCustomerByPhone(r.Context(), phone)
	if err != nil {
		h.logger.Warn("walk-in customer lookup failed", "error", err)
		jsonError(w, messageFor(err), statusFor(err))
		return
	}
	resolution := "new"
	if existing != nil {
		resolution = "matched"
		order.CustomerID = salonapi.OptionalString(existing.ID.String())
		if order.CustomerName == "" {
			order.CustomerName = existing.Name
		}
	} else if order.CustomerName == "" {
		jsonError(w, "a customer name is required for a new customer", http.StatusUnprocessableEntity)
		return
	}

	res, err := api.CreateWalkInOrder(r.Context(), order)
	if err != nil {
		h.logger.Warn("walk-in order failed", "site_id", siteID, "status", salonapi.StatusOf(err), "error", err)
		jsonError(w, messageFor(err), statusFor(err))
		return
	}
	h.metrics.ObserveWalkIn(resolution)
	writeJSON(w, http.StatusCreated, map[string]any{
		"order":      res,
		"resolution": resolution,
	})
}

func serviceSet(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out[id] = struct{}{}
		}
	}
	return out
}
