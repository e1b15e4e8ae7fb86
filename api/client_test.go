package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/go-budget-client/api"
	apperrors "github.com/jrsteele09/go-budget-client/internal/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type recorded struct {
	method        string
	path          string
	authorization string
	requestID     string
	contentType   string
	body          map[string]any
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{
			method:        r.Method,
			path:          r.URL.RequestURI(),
			authorization: r.Header.Get("Authorization"),
			requestID:     r.Header.Get(api.RequestIDHeader),
			contentType:   r.Header.Get("Content-Type"),
		}
		_ = json.NewDecoder(r.Body).Decode(&rec.body)
		calls = append(calls, rec)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newClient(t *testing.T, baseURL string, options ...api.ClientOption) *api.Client {
	t.Helper()
	options = append([]api.ClientOption{api.WithLogger(zerolog.Nop())}, options...)
	c, err := api.New(baseURL, options...)
	require.NoError(t, err)
	return c
}

func TestNew_InvalidBaseURL(t *testing.T) {
	_, err := api.New("localhost")
	require.Error(t, err)
	require.Contains(t, err.Error(), "needs scheme and host")
}

func TestClient_AttachesBearerToken(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, `{"id": 7}`)

	t.Run("with token", func(t *testing.T) {
		c := newClient(t, srv.URL, api.WithTokenSource(func() *oauth2.Token {
			return &oauth2.Token{AccessToken: "abc", TokenType: "Bearer"}
		}))
		var out struct {
			ID int64 `json:"id"`
		}
		require.NoError(t, c.Post(context.Background(), "/api/expenses/", map[string]any{"amount": "50"}, &out))
		require.Equal(t, int64(7), out.ID)

		got := (*calls)[len(*calls)-1]
		require.Equal(t, http.MethodPost, got.method)
		require.Equal(t, "/api/expenses/", got.path)
		require.Equal(t, "Bearer abc", got.authorization)
		require.Equal(t, "application/json", got.contentType)
		require.NotEmpty(t, got.requestID)
		require.Equal(t, "50", got.body["amount"])
	})

	t.Run("without token", func(t *testing.T) {
		c := newClient(t, srv.URL, api.WithTokenSource(func() *oauth2.Token { return nil }))
		require.NoError(t, c.Get(context.Background(), "/api/expenses/", nil))
		require.Empty(t, (*calls)[len(*calls)-1].authorization)
	})
}

func TestClient_HTTPErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		message    string
		generic    bool
		validation bool
	}{
		{name: "detail", status: 401, body: `{"detail":"Invalid credentials"}`, message: "Invalid credentials"},
		{name: "message key", status: 500, body: `{"message":"boom"}`, message: "boom"},
		{name: "non field errors", status: 400, body: `{"non_field_errors":["Passwords differ"]}`, message: "Passwords differ"},
		{name: "field errors", status: 400, body: `{"username":["taken"],"email":"bad email"}`, message: "email: bad email; username: taken", validation: true},
		{name: "empty body", status: 503, body: ``, message: "Service Unavailable", generic: true},
		{name: "malformed body", status: 502, body: `<html>`, message: "Bad Gateway", generic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.status, tt.body)
			c := newClient(t, srv.URL)

			err := c.Get(context.Background(), "/api/categories/", nil)
			require.Error(t, err)

			var httpErr *api.HTTPError
			require.ErrorAs(t, err, &httpErr)
			require.Equal(t, tt.status, httpErr.Status)
			require.Equal(t, tt.message, httpErr.Message)
			require.Equal(t, tt.generic, httpErr.Generic)
			require.ErrorIs(t, err, apperrors.ErrServer)
			require.Equal(t, tt.validation, apperrors.Is(err, apperrors.ErrValidation))

			if tt.generic {
				require.Equal(t, "fallback", api.Message(err, "fallback"))
			} else {
				require.Equal(t, tt.message, api.Message(err, "fallback"))
			}
		})
	}
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := newClient(t, srv.URL)
	err := c.Get(context.Background(), "/api/expenses/", nil)

	var netErr *api.NetworkError
	require.ErrorAs(t, err, &netErr)
	require.ErrorIs(t, err, apperrors.ErrNetwork)
	require.Equal(t, "Failed to fetch expenses", api.Message(err, "Failed to fetch expenses"))
}

func TestClient_Cancelled(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `[]`)
	c := newClient(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Get(ctx, "/api/expenses/", nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestClient_UnauthorizedHook(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusUnauthorized, `{"detail":"Token is invalid or expired"}`)

	var (
		hooked []*api.HTTPError
		sent   []string
	)
	c := newClient(t, srv.URL)
	c.OnUnauthorized(func(_ context.Context, token string, err *api.HTTPError) {
		hooked = append(hooked, err)
		sent = append(sent, token)
	})

	t.Run("not called without a token", func(t *testing.T) {
		require.Error(t, c.Get(context.Background(), "/api/accounts/profile/", nil))
		require.Empty(t, hooked)
	})

	t.Run("called when a token was sent", func(t *testing.T) {
		c.SetTokenSource(func() *oauth2.Token { return &oauth2.Token{AccessToken: "stale"} })
		err := c.Get(context.Background(), "/api/accounts/profile/", nil)
		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
		require.Len(t, hooked, 1)
		require.Equal(t, "Token is invalid or expired", hooked[0].Message)
		require.Equal(t, []string{"stale"}, sent)
	})
}

func TestClient_Metrics(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusNotFound, `{"detail":"Not found."}`)
	reg := prometheus.NewRegistry()
	c := newClient(t, srv.URL, api.WithMetrics(reg))

	require.Error(t, c.Get(context.Background(), "/api/expenses/12/", nil))
	require.Error(t, c.Get(context.Background(), "/api/expenses/13/", nil))

	count, err := testutil.GatherAndCount(reg, "budget_client_requests_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestRoute(t *testing.T) {
	require.Equal(t, "/api/templates/{id}/reviews/", api.Route("/api/templates/42/reviews/"))
	require.Equal(t, "/api/templates/search/", api.Route("/api/templates/search/?query=rent"))
}
