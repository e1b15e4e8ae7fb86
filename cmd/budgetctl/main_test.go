package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-budget-client/expenses"
	"github.com/jrsteele09/go-budget-client/internal/config"
	"github.com/jrsteele09/go-budget-client/internal/fakeapi"
	"github.com/jrsteele09/go-budget-client/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) {
	t.Helper()
	_, baseURL := fakeapi.NewTestServer(t,
		fakeapi.WithUser("demo", "demo-password"),
		fakeapi.WithDemoData(),
		fakeapi.WithLogger(zerolog.Nop()),
	)
	t.Setenv("BUDGET_API_URL", baseURL)
	t.Setenv("BUDGET_TOKEN_FILE", filepath.Join(t.TempDir(), "tokens.json"))
	t.Setenv("BUDGET_TOKEN_PASSPHRASE", "")
	t.Setenv("BUDGET_METRICS", "false")
}

// execute runs one command with a fresh root, as a separate invocation would.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand(config.New(), &out,
		store.WithRegisterer(prometheus.NewRegistry()),
		store.WithOpenLogger(zerolog.Nop()),
	)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommands(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "expenses", "list")
	require.EqualError(t, err, "Authentication credentials were not provided.")

	_, err = execute(t, "login", "-u", "demo", "-p", "wrong")
	require.EqualError(t, err, "Invalid credentials")

	out, err := execute(t, "login", "-u", "demo", "-p", "demo-password")
	require.NoError(t, err)
	require.Equal(t, "Signed in as demo\n", out)

	out, err = execute(t, "expenses", "add", "--amount", "12.50", "--description", "lunch", "--date", "2024-05-01", "--category", "2")
	require.NoError(t, err)
	var created expenses.Expense
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	require.Equal(t, "lunch", created.Description)

	_, err = execute(t, "expenses", "add", "--amount", "0", "--description", "free", "--date", "2024-05-01", "--category", "2")
	require.EqualError(t, err, "amount: Ensure this value is greater than 0.")

	out, err = execute(t, "expenses", "list", "--min", "10")
	require.NoError(t, err)
	var listed []expenses.Expense
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 1)

	out, err = execute(t, "ask", "How do I start an emergency fund?")
	require.NoError(t, err)
	require.Contains(t, out, "Emergency fund")

	out, err = execute(t, "templates", "-q", "student")
	require.NoError(t, err)
	require.Contains(t, out, "Student budget")

	out, err = execute(t, "logout")
	require.NoError(t, err)
	require.Equal(t, "Signed out\n", out)

	_, err = execute(t, "profile")
	require.Error(t, err)
}

func TestParseFilters(t *testing.T) {
	f, err := parseFilters("2024-01-01", "", "3", "", "99.95")
	require.NoError(t, err)
	require.Equal(t, "2024-01-01", *f.StartDate)
	require.Nil(t, f.EndDate)
	require.Equal(t, int64(3), *f.Category)
	require.Nil(t, f.MinAmount)
	require.Equal(t, "99.95", f.MaxAmount.String())

	_, err = parseFilters("", "", "three", "", "")
	require.Error(t, err)
	_, err = parseFilters("", "", "", "lots", "")
	require.Error(t, err)
}
