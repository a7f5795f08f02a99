package salonapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestLogin_TokensAtTopLevelOrUnderData(t *testing.T) {
	for _, payload := range []string{
		`{"accessToken":"a1","refreshToken":"r1"}`,
		`{"data":{"accessToken":"a1","refreshToken":"r1"},"success":true}`,
	} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/identity/auth/login", r.URL.Path)
			assert.Equal(t, "SALON_WEB", r.Header.Get("appCode"))
			body := decodeBody(t, r)
			assert.Equal(t, "ana", body["username"])
			assert.Equal(t, "secret", body["password"])
			_, _ = w.Write([]byte(payload))
		})

		tokens, err := client.Identity().Login(context.Background(), "ana", "secret")
		require.NoError(t, err)
		assert.Equal(t, "a1", tokens.AccessToken)
		assert.Equal(t, "r1", tokens.RefreshToken)
	}
}

func TestLogin_MissingAccessToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{}}`))
	})
	_, err := client.Identity().Login(context.Background(), "ana", "secret")
	require.Error(t, err)
}

func TestLogin_Unauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"bad credentials"}`))
	})
	_, err := client.Identity().Login(context.Background(), "ana", "nope")
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
}

func TestCustomerByAccountID(t *testing.T) {
	t.Run("envelope", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/salon/Customer/GetDetailByAccountId/acc 1", r.URL.Path)
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"data":{"id":42,"name":"Ana","phone":"0901"}}`))
		})
		c, err := client.Salon(StaticToken("tok")).CustomerByAccountID(context.Background(), "acc 1")
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, ID("42"), c.ID)
		assert.Equal(t, "0901", c.Phone)
	})

	t.Run("null data", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":null}`))
		})
		c, err := client.Salon(StaticToken("tok")).CustomerByAccountID(context.Background(), "acc")
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("not found", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		c, err := client.Salon(StaticToken("tok")).CustomerByAccountID(context.Background(), "acc")
		assert.Nil(t, c)
		assert.True(t, IsNotFound(err))
	})
}

func TestListServices_SiteFilter(t *testing.T) {
	var bodies []map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/salon/Service/GetAll", r.URL.Path)
		bodies = append(bodies, decodeBody(t, r))
		_, _ = w.Write([]byte(`{"data":[{"id":"1","name":"Precision Haircut","duration":45}]}`))
	})

	services, err := client.Salon(nil).ListServices(context.Background(), "site-1")
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, 45, services[0].DurationMinutes)

	_, err = client.Salon(nil).ListServices(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, bodies, 2)
	assert.Equal(t, "site-1", bodies[0]["siteId"])
	_, hasSite := bodies[1]["siteId"]
	assert.False(t, hasSite)
}

func TestListSitesAndStaff(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/salon/Site/GetAll":
			_, _ = w.Write([]byte(`[{"id":"s1","name":"District 1"},{"id":"s2","name":"District 3"}]`))
		case "/salon/Staff/GetAll":
			_, _ = w.Write([]byte(`{"data":[{"id":"liam-johnson","name":"Liam Johnson"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	sites, err := client.Salon(nil).ListSites(context.Background())
	require.NoError(t, err)
	assert.Len(t, sites, 2)

	staff, err := client.Salon(nil).ListStaff(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, staff, 1)
	assert.Equal(t, ID("liam-johnson"), staff[0].ID)
}

func TestPagedEndpoints_SendPageAndSize(t *testing.T) {
	paths := map[string]func(*SalonAPI) error{
		"/salon/Customer/GetAll": func(a *SalonAPI) error {
			_, err := a.CustomerPage(context.Background(), PageQuery{Page: 2, Size: 5})
			return err
		},
		"/salon/Service/GetPage": func(a *SalonAPI) error {
			_, err := a.ServicePage(context.Background(), PageQuery{Page: 2, Size: 5})
			return err
		},
		"/salon/Staff/GetPage": func(a *SalonAPI) error {
			_, err := a.StaffPage(context.Background(), PageQuery{Page: 2, Size: 5})
			return err
		},
		"/salon/Order/GetPage": func(a *SalonAPI) error {
			_, err := a.OrderPage(context.Background(), PageQuery{Page: 2, Size: 5})
			return err
		},
	}
	for path, call := range paths {
		t.Run(path, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, path, r.URL.Path)
				body := decodeBody(t, r)
				assert.EqualValues(t, 2, body["page"])
				assert.EqualValues(t, 5, body["size"])
				_, _ = w.Write([]byte(`{"data":[],"meta":{"total":0}}`))
			})
			require.NoError(t, call(client.Salon(StaticToken("tok"))))
		})
	}
}

func TestOrderPage_DecodesOrders(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":9,"code":"ORD-9","status":"Paid","totalAmount":350000,"createdAt":1722135600,"customer":{"id":1,"name":"Ana"}}],"meta":{"page":1,"size":10,"total":1}}`))
	})
	page, err := client.Salon(StaticToken("tok")).OrderPage(context.Background(), PageQuery{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "ORD-9", page.Items[0].Code)
	assert.Equal(t, "Ana", page.Items[0].Customer.Name)
	assert.False(t, page.HasNext)
	assert.False(t, page.HasPrevious)
}

func TestCreateBooking_Body(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/salon/Booking", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{
			"booking": {"bookingDate": 1722135600, "siteId": "s1", "customerId": "42", "staffId": "liam-johnson", "note": null},
			"services": [{"serviceId": "1", "quantity": 1, "note": null}]
		}`, string(raw))
		_, _ = w.Write([]byte(`{"data":{"id":"b-1","status":"Pending"}}`))
	})

	staff := "liam-johnson"
	res, err := client.Salon(StaticToken("tok")).CreateBooking(context.Background(), BookingRequest{
		Booking: BookingHeader{
			BookingDate: 1722135600,
			SiteID:      "s1",
			CustomerID:  "42",
			StaffID:     &staff,
		},
		Services: []ServiceLine{{ServiceID: "1", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, ID("b-1"), res.ID)
	assert.Equal(t, "Pending", res.Status)
}

func TestCreateBooking_BareID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":1234}`))
	})
	res, err := client.Salon(nil).CreateBooking(context.Background(), BookingRequest{})
	require.NoError(t, err)
	assert.Equal(t, ID("1234"), res.ID)
}

func TestFindCustomerByPhone(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		if body["phone"] == "0901" {
			_, _ = w.Write([]byte(`{"data":[{"id":5,"name":"Ana","phone":"0901"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	c, err := client.Salon(nil).FindCustomerByPhone(context.Background(), " 0901 ")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, ID("5"), c.ID)

	c, err = client.Salon(nil).FindCustomerByPhone(context.Background(), "0999")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestCreateWalkInOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/salon/Order/CreateWalkIn", r.URL.Path)
		body := decodeBody(t, r)
		assert.Nil(t, body["customerId"])
		assert.Equal(t, "Binh", body["customerName"])
		assert.Equal(t, "0902", body["phone"])
		_, _ = w.Write([]byte(`{"id":"o-1","code":"WI-1"}`))
	})

	res, err := client.Salon(StaticToken("tok")).CreateWalkInOrder(context.Background(), WalkInOrderRequest{
		SiteID:       "s1",
		CustomerName: "Binh",
		Phone:        "0902",
		Services:     []ServiceLine{{ServiceID: "1", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "WI-1", res.Code)
}
