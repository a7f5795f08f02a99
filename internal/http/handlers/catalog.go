package handlers

import (
	"net/http"
	"strings"

	"github.com/wolfman30/salon-booking/internal/salonapi"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

// CatalogHandler serves the sites, services and stylists a customer picks
// from in the booking wizard.
type CatalogHandler struct {
	client *salonapi.Client
	logger *logging.Logger
}

func NewCatalogHandler(client *salonapi.Client, logger *logging.Logger) *CatalogHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &CatalogHandler{client: client, logger: logger}
}

// GET /api/catalog/sites
func (h *CatalogHandler) Sites(w http.ResponseWriter, r *http.Request) {
	store, err := storeFrom(r)
	if err != nil {
		jsonError(w, messageFor(err), statusFor(err))
		return
	}
	items, err := h.client.Salon(store).ListSites(r.Context())
	if err != nil {
		h.logger.Warn("failed to list sites", "error", err)
		jsonError(w, messageFor(err), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sites": nonNil(items)})
}

// GET /api/catalog/services?siteId=
func (h *CatalogHandler) Services(w http.ResponseWriter, r *http.Request) {
	store, err := storeFrom(r)
	if err != nil {
		jsonError(w, messageFor(err), statusFor(err))
		return
	}
	siteID := strings.TrimSpace(r.URL.Query().Get("siteId"))
	items, err := h.client.Salon(store).ListServices(r.Context(), siteID)
	if err != nil {
		h.logger.Warn("failed to list services", "site_id", siteID, "error", err)
		jsonError(w, messageFor(err), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": nonNil(items)})
}

// GET /api/catalog/staff?siteId=
func (h *CatalogHandler) Staff(w http.ResponseWriter, r *http.Request) {
	store, err := storeFrom(r)
	if err != nil {
		jsonError(w, messageFor(err), statusFor(err))
		return
	}
	siteID := strings.TrimSpace(r.URL.Query().Get("siteId"))
	items, err := h.client.Salon(store).ListStaff(r.Context(), siteID)
	if err != nil {
		h.logger.Warn("failed to list staff", "site_id", siteID, "error", err)
		jsonError(w, messageFor(err), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"staff": nonNil(items)})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
