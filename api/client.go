// Package api is the HTTP adapter for the budget REST API.
//
// Every request and response body is JSON. The current access token, when
// present, is attached as a bearer Authorization header. Failed calls are
// returned as *HTTPError or *NetworkError and are never retried.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	// RequestIDHeader carries a unique id per outgoing request.
	RequestIDHeader = "X-Request-ID"

	contentTypeJSON = "application/json"
	maxBodyBytes    = 8 << 20
)

// TokenSource returns the token pair to authenticate with, or nil.
type TokenSource func() *oauth2.Token

// UnauthorizedHook is called when a request that carried an access token is
// answered with 401. sent is the access token the request carried, which may
// no longer be the current one by the time the response arrives.
type UnauthorizedHook func(ctx context.Context, sent string, err *HTTPError)

type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics
	logger     zerolog.Logger

	lock           sync.RWMutex
	tokens         TokenSource
	onUnauthorized UnauthorizedHook
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithHTTPClient replaces http.DefaultClient. Timeouts, if wanted, belong here.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTokenSource(ts TokenSource) ClientOption {
	return func(c *Client) {
		c.tokens = ts
	}
}

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics registers request counters and latency histograms on reg.
func WithMetrics(reg prometheus.Registerer) ClientOption {
	return func(c *Client) {
		c.metrics = newMetrics(reg)
	}
}

// New creates a client for the API rooted at baseURL (scheme and host, with
// an optional path prefix).
func New(baseURL string, options ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("[api.New] invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("[api.New] base URL %q needs scheme and host", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		logger:     log.Logger,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// SetTokenSource swaps the token source after construction.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.tokens = ts
}

// OnUnauthorized installs the hook for 401 responses.
func (c *Client) OnUnauthorized(hook UnauthorizedHook) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.onUnauthorized = hook
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// Do sends one request. body is JSON-encoded when non-nil; a non-empty
// success body is decoded into out when out is non-nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("api: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", contentTypeJSON)
	if body != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)

	tokens, hook := c.hooks()
	var sent string
	if tokens != nil {
		if tok := tokens(); tok != nil && tok.AccessToken != "" {
			tok.SetAuthHeader(req)
			sent = tok.AccessToken
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.observe(method, path, 0, time.Since(start))
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Str("request_id", requestID).Msg("Request failed")
		return &NetworkError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	elapsed := time.Since(start)
	c.metrics.observe(method, path, resp.StatusCode, elapsed)
	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Str("request_id", requestID).
		Dur("duration", elapsed).
		Msg("Request completed")
	if err != nil {
		return &NetworkError{Method: method, Path: path, Err: err}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		httpErr := parseHTTPError(resp.StatusCode, data)
		httpErr.Method, httpErr.Path = method, path
		if resp.StatusCode == http.StatusUnauthorized && sent != "" && hook != nil {
			hook(ctx, sent, httpErr)
		}
		return httpErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("api: decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) hooks() (TokenSource, UnauthorizedHook) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.tokens, c.onUnauthorized
}
