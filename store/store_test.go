package store_test

import (
	"context"
	"net/http"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jrsteele09/go-budget-client/api"
	"github.com/jrsteele09/go-budget-client/auth"
	"github.com/jrsteele09/go-budget-client/categories"
	"github.com/jrsteele09/go-budget-client/expenses"
	"github.com/jrsteele09/go-budget-client/internal/config"
	apperrors "github.com/jrsteele09/go-budget-client/internal/errors"
	"github.com/jrsteele09/go-budget-client/internal/fakeapi"
	"github.com/jrsteele09/go-budget-client/internal/utils"
	"github.com/jrsteele09/go-budget-client/store"
	"github.com/jrsteele09/go-budget-client/token/storefake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	testUsername = "alice"
	testPassword = "correct-horse"
)

type testFixture struct {
	fake   *fakeapi.Server
	tokens *storefake.FakeStore
	store  *store.Store
}

func setupTestFixture(t *testing.T, opts ...store.Option) *testFixture {
	t.Helper()

	fake, baseURL := fakeapi.NewTestServer(t,
		fakeapi.WithUser(testUsername, testPassword),
		fakeapi.WithLogger(zerolog.Nop()),
	)
	client, err := api.New(baseURL, api.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	tokens := storefake.NewFakeStore()
	opts = append([]store.Option{store.WithLogger(zerolog.Nop())}, opts...)
	return &testFixture{
		fake:   fake,
		tokens: tokens,
		store:  store.New(client, tokens, opts...),
	}
}

func (f *testFixture) login(t *testing.T) {
	t.Helper()
	require.NoError(t, f.store.Auth.Login(context.Background(), testUsername, testPassword))
}

func newExpense(description string) expenses.NewExpense {
	return expenses.NewExpense{
		Category:    1,
		Amount:      decimal.NewFromInt(10),
		Description: description,
		Date:        "2024-05-01",
	}
}

func expenseIDs(list []expenses.Expense) []int64 {
	out := make([]int64, 0, len(list))
	for _, e := range list {
		out = append(out, e.ID)
	}
	return out
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	_, err := f.store.Expenses.FetchAll(ctx)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)

	f.login(t)
	root := f.store.State()
	require.True(t, root.Auth.State.Authenticated)
	require.Equal(t, []string{"access_token", "refresh_token"}, f.tokens.Keys())

	_, err = f.store.Expenses.FetchAll(ctx)
	require.NoError(t, err)

	f.store.Auth.Logout(ctx)
	root = f.store.State()
	require.False(t, root.Auth.State.Authenticated)
	require.Empty(t, f.tokens.Keys())
}

func TestRejectedTokenEndsSession(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.login(t)

	f.fake.InvalidateTokens()
	_, err := f.store.Expenses.FetchAll(ctx)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)

	root := f.store.State()
	require.False(t, root.Auth.State.Authenticated)
	require.Empty(t, root.Auth.State.AccessToken)
	require.Equal(t, "Given token not valid for any token type", root.Auth.Error)
	require.Equal(t, "Given token not valid for any token type", root.Expense.Error)
	require.False(t, root.Expense.Loading)
	require.Empty(t, f.tokens.Keys())
}

// A category fetch and an expense create on the same slice reach the same
// state whichever completes first.
func TestIndependentOperationsCommute(t *testing.T) {
	ctx := context.Background()

	run := func(t *testing.T, holdFetch bool) store.RootState {
		f := setupTestFixture(t)
		f.login(t)
		_, err := f.store.Categories.Create(ctx, categories.NewCategory{Name: "Groceries", Type: "need", BudgetPercentage: 15})
		require.NoError(t, err)

		method, path := http.MethodPost, fakeapi.RouteExpenses
		if holdFetch {
			method, path = http.MethodGet, fakeapi.RouteCategories
		}
		hold := f.fake.Hold(method, path)

		done := make(chan error, 1)
		go func() {
			if holdFetch {
				_, err := f.store.Expenses.FetchCategories(ctx)
				done <- err
				return
			}
			_, err := f.store.Expenses.Create(ctx, newExpense("groceries"))
			done <- err
		}()
		<-hold.Arrived()

		if holdFetch {
			_, err = f.store.Expenses.Create(ctx, newExpense("groceries"))
		} else {
			_, err = f.store.Expenses.FetchCategories(ctx)
		}
		require.NoError(t, err)
		hold.Release()
		require.NoError(t, <-done)
		return f.store.State()
	}

	fetchLast := run(t, true)
	createLast := run(t, false)

	for _, root := range []store.RootState{fetchLast, createLast} {
		require.False(t, root.Expense.Loading)
		require.Empty(t, root.Expense.Error)
	}
	require.Equal(t, expenseIDs(fetchLast.Expense.State.Expenses), expenseIDs(createLast.Expense.State.Expenses))
	require.Len(t, fetchLast.Expense.State.Categories, 1)
	require.Equal(t, fetchLast.Expense.State.Categories[0].Name, createLast.Expense.State.Categories[0].Name)
}

// startStaleFetch dispatches a fetch whose response reflects the server
// before the caller's next writes but is only delivered on release.
func startStaleFetch(t *testing.T, f *testFixture) (release func() error) {
	t.Helper()
	hold := f.fake.Hold(http.MethodGet, fakeapi.RouteExpenses)
	done := make(chan error, 1)
	go func() {
		_, err := f.store.Expenses.FetchAll(context.Background())
		done <- err
	}()
	<-hold.Arrived()
	return func() error {
		hold.Release()
		return <-done
	}
}

func TestLateFetchWins(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.login(t)

	release := startStaleFetch(t, f)

	created, err := f.store.Expenses.Create(ctx, newExpense("rent"))
	require.NoError(t, err)
	_, err = f.store.Expenses.FetchAll(ctx)
	require.NoError(t, err)

	root := f.store.State()
	require.Equal(t, []int64{created.ID}, expenseIDs(root.Expense.State.Expenses))
	require.False(t, root.Expense.Loading, "each completion clears the flag")

	require.NoError(t, release())
	root = f.store.State()
	require.Empty(t, root.Expense.State.Expenses, "the stale list resolved last and replaced the newer one")
	require.False(t, root.Expense.Loading)
}

func TestFencedFetchIsDiscarded(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t, store.WithFencing(true))
	f.login(t)

	release := startStaleFetch(t, f)

	created, err := f.store.Expenses.Create(ctx, newExpense("rent"))
	require.NoError(t, err)
	_, err = f.store.Expenses.FetchAll(ctx)
	require.NoError(t, err)

	root := f.store.State()
	require.True(t, root.Expense.Loading, "the first fetch is still in flight")

	require.NoError(t, release())
	root = f.store.State()
	require.Equal(t, []int64{created.ID}, expenseIDs(root.Expense.State.Expenses))
	require.False(t, root.Expense.Loading)
}

func TestFencedFetchSurvivesOtherCollections(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t, store.WithFencing(true))
	f.login(t)

	created, err := f.store.Expenses.Create(ctx, newExpense("rent"))
	require.NoError(t, err)

	release := startStaleFetch(t, f)
	_, err = f.store.Expenses.FetchStats(ctx)
	require.NoError(t, err)
	_, err = f.store.Expenses.FetchCategories(ctx)
	require.NoError(t, err)

	require.NoError(t, release())
	root := f.store.State()
	require.Equal(t, []int64{created.ID}, expenseIDs(root.Expense.State.Expenses))
	require.False(t, root.Expense.Loading)
}

func TestSlicesAreIndependent(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.login(t)

	hold := f.fake.Hold(http.MethodGet, fakeapi.RouteTemplates)
	done := make(chan error, 1)
	go func() {
		_, err := f.store.Templates.FetchAll(ctx)
		done <- err
	}()
	<-hold.Arrived()

	// A pending template fetch neither blocks nor flags other slices.
	_, err := f.store.Chatbot.FetchKnowledge(ctx)
	require.NoError(t, err)
	root := f.store.State()
	require.True(t, root.Template.Loading)
	require.False(t, root.Chatbot.Loading)
	require.False(t, root.Expense.Loading)

	f.fake.FailNext(http.MethodGet, fakeapi.RouteCategories, http.StatusInternalServerError, nil)
	_, err = f.store.Categories.FetchAll(ctx)
	require.Error(t, err)
	root = f.store.State()
	require.Equal(t, "Failed to fetch categories", root.Category.Error)
	require.Empty(t, root.Chatbot.Error)

	hold.Release()
	require.NoError(t, <-done)
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.login(t)

	var (
		lock    sync.Mutex
		changed []string
	)
	unsubscribe := f.store.Subscribe(func(slice string) {
		lock.Lock()
		changed = append(changed, slice)
		lock.Unlock()
	})

	_, err := f.store.Expenses.FetchAll(ctx)
	require.NoError(t, err)
	f.store.Templates.SetCurrent(nil)

	lock.Lock()
	require.Equal(t, []string{expenses.SliceName, expenses.SliceName, "template"}, changed)
	lock.Unlock()

	unsubscribe()
	f.store.Expenses.ClearError()
	lock.Lock()
	require.Len(t, changed, 3)
	lock.Unlock()
}

func TestStateIsACopy(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.login(t)
	recurring := newExpense("rent")
	recurring.IsRecurring = true
	recurring.RecurringFrequency = utils.Ptr("monthly")
	_, err := f.store.Expenses.Create(ctx, recurring)
	require.NoError(t, err)
	_, err = f.store.Auth.UpdateProfile(ctx, auth.ProfilePatch{City: utils.Ptr("Leeds")})
	require.NoError(t, err)

	root := f.store.State()
	root.Expense.State.Expenses[0].Description = "mutated"
	*root.Expense.State.Expenses[0].RecurringFrequency = "weekly"
	*root.Auth.State.Profile.City = "York"
	root.Auth.State.AccessToken = ""
	root.Expense.State.Expenses = nil

	again := f.store.State()
	require.Equal(t, "rent", again.Expense.State.Expenses[0].Description)
	require.Equal(t, "monthly", utils.Value(again.Expense.State.Expenses[0].RecurringFrequency))
	require.Equal(t, "Leeds", utils.Value(again.Auth.State.Profile.City))
	require.NotEmpty(t, again.Auth.State.AccessToken)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	_, baseURL := fakeapi.NewTestServer(t,
		fakeapi.WithUser(testUsername, testPassword),
		fakeapi.WithLogger(zerolog.Nop()),
	)
	tokenFile := filepath.Join(t.TempDir(), "tokens.json")
	t.Setenv("BUDGET_API_URL", baseURL+"/")
	t.Setenv("BUDGET_TOKEN_FILE", tokenFile)
	t.Setenv("BUDGET_TOKEN_PASSPHRASE", "open sesame")
	t.Setenv("BUDGET_METRICS", "true")

	reg := prometheus.NewRegistry()
	s, err := store.Open(config.New(), store.WithRegisterer(reg), store.WithOpenLogger(zerolog.Nop()))
	require.NoError(t, err)
	require.NoError(t, s.Auth.Login(ctx, testUsername, testPassword))
	require.FileExists(t, tokenFile)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)

	// A second process restores the session from the encrypted file.
	restored, err := store.Open(config.New(), store.WithRegisterer(prometheus.NewRegistry()), store.WithOpenLogger(zerolog.Nop()))
	require.NoError(t, err)
	require.NoError(t, restored.Auth.FetchUserProfile(ctx))
	root := restored.State()
	require.True(t, root.Auth.State.Authenticated)
	require.Equal(t, testUsername, root.Auth.State.User.Username)

	t.Run("bad base URL", func(t *testing.T) {
		t.Setenv("BUDGET_API_URL", "not a url")
		_, err := store.Open(config.New(), store.WithRegisterer(prometheus.NewRegistry()))
		require.Error(t, err)
	})
}
