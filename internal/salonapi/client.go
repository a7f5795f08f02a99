// Package salonapi is the HTTP client for the identity service and the salon
// REST API.
package salonapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/salon-booking/internal/observability/metrics"
	"github.com/wolfman30/salon-booking/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTimeout = 15 * time.Second

	targetIdentity = "identity"
	targetSalon    = "salon"

	appCodeHeader = "appCode"
)

var tracer = otel.Tracer("salon.internal.salonapi")

// TokenSource supplies the bearer token for salon API calls.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, bool)
}

// StaticToken is a fixed bearer token, as used by the CLI.
type StaticToken string

func (t StaticToken) AccessToken(context.Context) (string, bool) {
	return string(t), strings.TrimSpace(string(t)) != ""
}

// Options configures a Client.
type Options struct {
	IdentityBaseURL string
	SalonBaseURL    string
	AppCode         string
	Timeout         time.Duration
	HTTPClient      *http.Client
	Logger          *logging.Logger
	Metrics         *metrics.UpstreamMetrics
}

// Client holds the two upstream targets. It never retries and never logs
// failures; callers decide what a failure means to the user.
type Client struct {
	httpClient   *http.Client
	identityBase string
	salonBase    string
	appCode      string
	logger       *logging.Logger
	metrics      *metrics.UpstreamMetrics
}

// NewClient constructs a client for both targets.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		httpClient:   httpClient,
		identityBase: strings.TrimRight(opts.IdentityBaseURL, "/"),
		salonBase:    strings.TrimRight(opts.SalonBaseURL, "/"),
		appCode:      opts.AppCode,
		logger:       logger,
		metrics:      opts.Metrics,
	}
}

// Request is a single upstream call. Body is JSON encoded when non-nil.
type Request struct {
	Method  string
	Path    string
	Body    any
	Headers map[string]string
}

// Caller issues requests against one target.
type Caller struct {
	client  *Client
	target  string
	baseURL string
	headers func(ctx context.Context, h http.Header)
}

func (c *Client) identityCaller() *Caller {
	return &Caller{
		client:  c,
		target:  targetIdentity,
		baseURL: c.identityBase,
		headers: func(_ context.Context, h http.Header) {
			h.Set(appCodeHeader, c.appCode)
		},
	}
}

func (c *Client) salonCaller(tokens TokenSource) *Caller {
	return &Caller{
		client:  c,
		target:  targetSalon,
		baseURL: c.salonBase,
		headers: func(ctx context.Context, h http.Header) {
			if tokens == nil {
				return
			}
			if token, ok := tokens.AccessToken(ctx); ok && token != "" {
				h.Set("Authorization", "Bearer "+token)
			}
		},
	}
}

// Do issues req. Non-2xx responses become *APIError; 204 yields an empty
// object; anything else is parsed into a Result.
func (c *Caller) Do(ctx context.Context, req Request) (Result, error) {
	ctx, span := tracer.Start(ctx, "salonapi."+c.target, trace.WithAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("salonapi.path", req.Path),
	))
	defer span.End()

	start := time.Now()
	status, body, err := c.roundTrip(ctx, req)
	c.client.metrics.ObserveRequest(c.target, req.Method, statusLabel(status, err), time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("http.status_code", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	if status < 200 || status > 299 {
		apiErr := newAPIError(req.Path, status, body)
		span.SetStatus(codes.Error, apiErr.Error())
		return Result{}, apiErr
	}
	if status == http.StatusNoContent {
		return Result{Shape: ShapeBare, Data: emptyObject}, nil
	}

	res, err := ParseResult(body)
	if err != nil {
		span.RecordError(err)
		return Result{}, fmt.Errorf("salonapi: %s: %w", req.Path, err)
	}
	c.client.logger.Debug("upstream call",
		"target", c.target,
		"method", req.Method,
		"path", req.Path,
		"status", status,
		"shape", res.Shape.String(),
	)
	return res, nil
}

func (c *Caller) roundTrip(ctx context.Context, req Request) (int, []byte, error) {
	endpoint := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")

	var bodyReader io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return 0, nil, fmt.Errorf("salonapi: marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("salonapi: build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	c.headers(ctx, httpReq.Header)
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.client.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("salonapi: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("salonapi: read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// Get issues a GET request.
func (c *Caller) Get(ctx context.Context, path string) (Result, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path})
}

// Post issues a POST request with a JSON body.
func (c *Caller) Post(ctx context.Context, path string, body any) (Result, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put issues a PUT request with a JSON body.
func (c *Caller) Put(ctx context.Context, path string, body any) (Result, error) {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body})
}

// Delete issues a DELETE request.
func (c *Caller) Delete(ctx context.Context, path string) (Result, error) {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path})
}

func statusLabel(status int, err error) string {
	if status == 0 || (err != nil && status < 200) {
		return "error"
	}
	return strconv.Itoa(status)
}
