package categories_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/jrsteele09/go-budget-client/categories"
	"github.com/jrsteele09/go-budget-client/internal/fakeapi"
	"github.com/jrsteele09/go-budget-client/internal/utils"
	"github.com/jrsteele09/go-budget-client/state"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	fake    *fakeapi.Server
	service *categories.Service
}

func setupTestFixture(t *testing.T, options ...fakeapi.Option) *testFixture {
	t.Helper()
	fake, client := fakeapi.NewTestClient(t, options...)
	return &testFixture{
		fake:    fake,
		service: categories.New(client, state.WithLogger(zerolog.Nop())),
	}
}

func names(list []categories.Category) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.Name)
	}
	return out
}

func TestFetchAll(t *testing.T) {
	f := setupTestFixture(t, fakeapi.WithDemoData())

	list, err := f.service.FetchAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"Housing", "Groceries", "Dining out", "Savings"}, names(list))

	st, status := f.service.Read()
	require.Equal(t, list, st.Categories)
	require.False(t, status.Loading)
}

func TestCreateUpdateDelete(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t, fakeapi.WithDemoData())
	_, err := f.service.FetchAll(ctx)
	require.NoError(t, err)

	created, err := f.service.Create(ctx, categories.NewCategory{Name: "Travel", Type: "want", Color: "#00838f", BudgetPercentage: 5})
	require.NoError(t, err)
	st, _ := f.service.Read()
	require.Equal(t, "Travel", st.Categories[len(st.Categories)-1].Name)

	_, err = f.service.Update(ctx, created.ID, categories.CategoryPatch{BudgetPercentage: utils.Ptr(7.5)})
	require.NoError(t, err)
	st, _ = f.service.Read()
	require.Equal(t, 7.5, st.Categories[len(st.Categories)-1].BudgetPercentage)

	require.NoError(t, f.service.Delete(ctx, created.ID))
	st, _ = f.service.Read()
	require.NotContains(t, names(st.Categories), "Travel")

	t.Run("invalid percentage", func(t *testing.T) {
		_, err := f.service.Create(ctx, categories.NewCategory{Name: "Too much", BudgetPercentage: 150})
		require.Error(t, err)
		_, status := f.service.Read()
		require.Equal(t, "budget_percentage: Ensure this value is between 0 and 100.", status.Error)
	})
}

func TestGroups(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t, fakeapi.WithDemoData())

	groups, err := f.service.FetchGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, "Essentials", groups[0].Name)

	created, err := f.service.CreateGroup(ctx, categories.NewGroup{Name: "Fun", Color: "#ff6f00"})
	require.NoError(t, err)

	st, _ := f.service.Read()
	require.Len(t, st.Groups, 2)
	require.Equal(t, created.ID, st.Groups[1].ID)

	_, err = f.service.CreateGroup(ctx, categories.NewGroup{})
	require.Error(t, err)
	st, status := f.service.Read()
	require.Len(t, st.Groups, 2)
	require.False(t, status.Loading)
	require.Equal(t, "name: This field is required.", status.Error)
}

func TestFetchStats(t *testing.T) {
	f := setupTestFixture(t, fakeapi.WithDemoData())

	stats, err := f.service.FetchStats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, stats.TotalCategories)
	require.Equal(t, []categories.TypeCount{{Type: "need", Count: 2}, {Type: "savings", Count: 1}, {Type: "want", Count: 1}}, stats.CategoriesByType)

	// The test account earns 3000 a month; Housing takes 30%.
	require.Equal(t, "Housing", stats.BudgetAllocation[0].Category)
	require.True(t, decimal.NewFromInt(900).Equal(stats.BudgetAllocation[0].Amount))

	st, _ := f.service.Read()
	require.Equal(t, stats, st.Stats)
}

func TestBulkUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces each updated category", func(t *testing.T) {
		f := setupTestFixture(t, fakeapi.WithDemoData())
		list, err := f.service.FetchAll(ctx)
		require.NoError(t, err)

		updated, err := f.service.BulkUpdate(ctx, []categories.BulkUpdate{
			{ID: list[0].ID, Data: categories.CategoryPatch{BudgetPercentage: utils.Ptr(35.0)}},
			{ID: list[2].ID, Data: categories.CategoryPatch{Name: utils.Ptr("Restaurants")}},
		})
		require.NoError(t, err)
		require.Len(t, updated, 2)

		st, status := f.service.Read()
		require.Equal(t, []string{"Housing", "Groceries", "Restaurants", "Savings"}, names(st.Categories))
		require.Equal(t, 35.0, st.Categories[0].BudgetPercentage)
		require.False(t, status.Loading)
	})

	t.Run("unknown id fails the whole batch", func(t *testing.T) {
		f := setupTestFixture(t, fakeapi.WithDemoData())
		list, err := f.service.FetchAll(ctx)
		require.NoError(t, err)

		_, err = f.service.BulkUpdate(ctx, []categories.BulkUpdate{
			{ID: list[0].ID, Data: categories.CategoryPatch{Name: utils.Ptr("Rent")}},
			{ID: 999, Data: categories.CategoryPatch{Name: utils.Ptr("Ghost")}},
		})
		require.Error(t, err)

		st, status := f.service.Read()
		require.Equal(t, names(list), names(st.Categories))
		require.Contains(t, status.Error, "Category 999 does not exist")

		fresh, err := f.service.FetchAll(ctx)
		require.NoError(t, err)
		require.Equal(t, "Housing", fresh[0].Name)
	})

	t.Run("server error", func(t *testing.T) {
		f := setupTestFixture(t)
		f.fake.FailNext(http.MethodPost, fakeapi.RouteCategoryBulkUpdate, http.StatusBadGateway, nil)

		_, err := f.service.BulkUpdate(ctx, []categories.BulkUpdate{{ID: 1}})
		require.Error(t, err)
		_, status := f.service.Read()
		require.Equal(t, "Failed to bulk update categories", status.Error)
	})
}
