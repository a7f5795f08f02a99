package salonapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/wolfman30/salon-booking/internal/session"
)

// IdentityAPI wraps the identity service endpoints.
type IdentityAPI struct {
	caller *Caller
}

// Identity returns the identity service API. Every call carries the
// application code header.
func (c *Client) Identity() *IdentityAPI {
	return &IdentityAPI{caller: c.identityCaller()}
}

// Caller exposes the raw identity caller.
func (a *IdentityAPI) Caller() *Caller { return a.caller }

// Login exchanges credentials for a token pair. The pair may arrive at the
// top level or under "data".
func (a *IdentityAPI) Login(ctx context.Context, username, password string) (session.Tokens, error) {
	res, err := a.caller.Post(ctx, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return session.Tokens{}, err
	}
	var tokens session.Tokens
	if err := res.Decode(&tokens); err != nil {
		return session.Tokens{}, fmt.Errorf("login: %w", err)
	}
	if strings.TrimSpace(tokens.AccessToken) == "" {
		return session.Tokens{}, errors.New("salonapi: login response has no access token")
	}
	return tokens, nil
}

// SalonAPI wraps the salon REST endpoints for one caller identity.
type SalonAPI struct {
	caller *Caller
}

// Salon returns the salon API authenticated with tokens. A missing token
// sends the request without an Authorization header.
func (c *Client) Salon(tokens TokenSource) *SalonAPI {
	return &SalonAPI{caller: c.salonCaller(tokens)}
}

// Caller exposes the raw salon caller.
func (a *SalonAPI) Caller() *Caller { return a.caller }

// CustomerByAccountID resolves the customer linked to an identity account.
// A null payload returns (nil, nil); a 404 is returned as *APIError.
func (a *SalonAPI) CustomerByAccountID(ctx context.Context, accountID string) (*Customer, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, errors.New("salonapi: account id is required")
	}
	res, err := a.caller.Get(ctx, "/Customer/GetDetailByAccountId/"+url.PathEscape(accountID))
	if err != nil {
		return nil, err
	}
	if res.IsNull() {
		return nil, nil
	}
	var c Customer
	if err := res.Decode(&c); err != nil {
		return nil, fmt.Errorf("customer by account: %w", err)
	}
	if c.ID == "" {
		return nil, nil
	}
	return &c, nil
}

// ListCustomers returns every customer matching filters.
func (a *SalonAPI) ListCustomers(ctx context.Context, filters map[string]any) ([]Customer, error) {
	if filters == nil {
		filters = map[string]any{}
	}
	return postList[Customer](ctx, a.caller, "/Customer/GetAll", filters)
}

// CustomerPage lists customers page by page (POST /Customer/GetAll).
func (a *SalonAPI) CustomerPage(ctx context.Context, q PageQuery) (Page[Customer], error) {
	return postPage[Customer](ctx, a.caller, "/Customer/GetAll", q)
}

// FindCustomerByPhone returns the first customer whose phone matches, or nil.
func (a *SalonAPI) FindCustomerByPhone(ctx context.Context, phone string) (*Customer, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, errors.New("salonapi: phone is required")
	}
	page, err := a.CustomerPage(ctx, PageQuery{Page: 1, Size: 1, Filters: map[string]any{"phone": phone}})
	if err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, nil
	}
	return &page.Items[0], nil
}

// ListServices returns the services offered at a site (all sites when empty).
func (a *SalonAPI) ListServices(ctx context.Context, siteID string) ([]Service, error) {
	return postList[Service](ctx, a.caller, "/Service/GetAll", siteFilter(siteID))
}

// ServicePage lists services page by page.
func (a *SalonAPI) ServicePage(ctx context.Context, q PageQuery) (Page[Service], error) {
	return postPage[Service](ctx, a.caller, "/Service/GetPage", q)
}

// ListStaff returns staff, optionally scoped to a site.
func (a *SalonAPI) ListStaff(ctx context.Context, siteID string) ([]Staff, error) {
	return postList[Staff](ctx, a.caller, "/Staff/GetAll", siteFilter(siteID))
}

// StaffPage lists staff page by page.
func (a *SalonAPI) StaffPage(ctx context.Context, q PageQuery) (Page[Staff], error) {
	return postPage[Staff](ctx, a.caller, "/Staff/GetPage", q)
}

// ListSites returns every operating site.
func (a *SalonAPI) ListSites(ctx context.Context) ([]Site, error) {
	return postList[Site](ctx, a.caller, "/Site/GetAll", map[string]any{})
}

// CreateBooking submits a booking.
func (a *SalonAPI) CreateBooking(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	res, err := a.caller.Post(ctx, "/Booking", req)
	if err != nil {
		return nil, err
	}
	return decodeCreated(res)
}

// OrderPage lists orders page by page.
func (a *SalonAPI) OrderPage(ctx context.Context, q PageQuery) (Page[Order], error) {
	return postPage[Order](ctx, a.caller, "/Order/GetPage", q)
}

// CreateWalkInOrder creates an order for a customer without a booking.
func (a *SalonAPI) CreateWalkInOrder(ctx context.Context, req WalkInOrderRequest) (*BookingResult, error) {
	res, err := a.caller.Post(ctx, "/Order/CreateWalkIn", req)
	if err != nil {
		return nil, err
	}
	return decodeCreated(res)
}

func postList[T any](ctx context.Context, caller *Caller, path string, body map[string]any) ([]T, error) {
	res, err := caller.Post(ctx, path, body)
	if err != nil {
		return nil, err
	}
	items, err := DecodeList[T](res)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}

func postPage[T any](ctx context.Context, caller *Caller, path string, q PageQuery) (Page[T], error) {
	q = q.Normalized()
	res, err := caller.Post(ctx, path, q.body())
	if err != nil {
		return Page[T]{}, err
	}
	page, err := DecodePage[T](res, q)
	if err != nil {
		return Page[T]{}, fmt.Errorf("%s: %w", path, err)
	}
	return page, nil
}

// decodeCreated accepts either a created object or a bare id.
func decodeCreated(res Result) (*BookingResult, error) {
	out := &BookingResult{}
	if res.IsNull() {
		return out, nil
	}
	trimmed := bytes.TrimSpace(res.Data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := res.Decode(out); err != nil {
			return nil, err
		}
		return out, nil
	}
	if err := res.Decode(&out.ID); err != nil {
		return nil, err
	}
	return out, nil
}

func siteFilter(siteID string) map[string]any {
	body := map[string]any{}
	if strings.TrimSpace(siteID) != "" {
		body["siteId"] = siteID
	}
	return body
}
