package fakeapi

import (
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-budget-client/api"
)

// TestUsername is the account NewTestClient signs in as.
const TestUsername = "tester"

// NewTestServer starts a fake API on a local port for the duration of t and
// returns it together with its base URL.
func NewTestServer(t testing.TB, options ...Option) (*Server, string) {
	t.Helper()

	fake := New(options...)
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return fake, srv.URL
}

// NewTestClient starts a fake API with a TestUsername account and returns an
// API client that is already authenticated as that account.
func NewTestClient(t testing.TB, options ...Option) (*Server, *api.Client) {
	t.Helper()

	options = append([]Option{WithUser(TestUsername, "tester-password"), WithLogger(zerolog.Nop())}, options...)
	fake, baseURL := NewTestServer(t, options...)

	access, err := fake.IssueToken(TestUsername)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	tok := &oauth2.Token{AccessToken: access, TokenType: "Bearer"}

	client, err := api.New(baseURL,
		api.WithLogger(zerolog.Nop()),
		api.WithTokenSource(func() *oauth2.Token { return tok }),
	)
	if err != nil {
		t.Fatalf("api client: %v", err)
	}
	return fake, client
}
