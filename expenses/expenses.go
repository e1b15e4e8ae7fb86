// Package expenses is the expense slice: the user's expenses, the category
// list used by the expense screens, spending stats and the active filters.
package expenses

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-budget-client/api"
	"github.com/jrsteele09/go-budget-client/state"
)

const SliceName = "expense"

const (
	expensesPath   = "/api/expenses/"
	statsPath      = "/api/expenses/stats/"
	categoriesPath = "/api/categories/"
)

func expensePath(id int64) string {
	return fmt.Sprintf("%s%d/", expensesPath, id)
}

type Service struct {
	client *api.Client
	slice  *state.Slice[State]
}

func New(client *api.Client, opts ...state.Option) *Service {
	return &Service{
		client: client,
		slice:  state.NewSlice(SliceName, State{}, opts...),
	}
}

func (s *Service) Read() (State, state.Status) {
	return s.slice.Read()
}

// FetchAll replaces the expense list with the server's.
func (s *Service) FetchAll(ctx context.Context) ([]Expense, error) {
	return s.fetch(ctx, "expense/fetchAll", expensesPath, "Failed to fetch expenses")
}

// FetchFiltered replaces the expense list with the expenses matching f.
// The stored filters are not changed; use SetFilters for that.
func (s *Service) FetchFiltered(ctx context.Context, f Filters) ([]Expense, error) {
	return s.fetch(ctx, "expense/fetchFiltered", f.query(expensesPath), "Failed to fetch filtered expenses")
}

func (s *Service) fetch(ctx context.Context, name, path, fallback string) ([]Expense, error) {
	return state.Run(ctx, s.slice, state.Intent[State]{
		Name:       name,
		Collection: "expenses",
		Fallback:   fallback,
		Replace:    true,
	}, func(ctx context.Context) ([]Expense, error) {
		var list []Expense
		if err := s.client.Get(ctx, path, &list); err != nil {
			return nil, err
		}
		return list, nil
	}, func(st *State, list []Expense) {
		st.Expenses = state.Clone(list)
	})
}

// Create appends the created expense. Submitting the same payload twice
// yields two entries.
func (s *Service) Create(ctx context.Context, e NewExpense) (*Expense, error) {
	return state.Run(ctx, s.slice, state.Intent[State]{
		Name:       "expense/create",
		Collection: "expenses",
		Fallback:   "Failed to create expense",
	}, func(ctx context.Context) (*Expense, error) {
		var created Expense
		if err := s.client.Post(ctx, expensesPath, e, &created); err != nil {
			return nil, err
		}
		return &created, nil
	}, func(st *State, created *Expense) {
		st.Expenses = state.Append(st.Expenses, *created)
	})
}

// Update patches an expense and replaces the first entry with its id. An
// entry that is no longer in the list is not re-added.
func (s *Service) Update(ctx context.Context, id int64, patch ExpensePatch) (*Expense, error) {
	return state.Run(ctx, s.slice, state.Intent[State]{
		Name:       "expense/update",
		Collection: "expenses",
		Fallback:   "Failed to update expense",
	}, func(ctx context.Context) (*Expense, error) {
		var updated Expense
		if err := s.client.Patch(ctx, expensePath(id), patch, &updated); err != nil {
			return nil, err
		}
		return &updated, nil
	}, func(st *State, updated *Expense) {
		var found bool
		if st.Expenses, found = state.ReplaceByID(st.Expenses, *updated); !found {
			s.slice.Logger().Debug().Int64("id", updated.ID).Msg("Updated expense not in list")
		}
	})
}

// Delete removes every entry with the id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	_, err := state.Run(ctx, s.slice, state.Intent[State]{
		Name:       "expense/delete",
		Collection: "expenses",
		Fallback:   "Failed to delete expense",
		Quiet:      true,
	}, func(ctx context.Context) (int64, error) {
		return id, s.client.Delete(ctx, expensePath(id))
	}, func(st *State, id int64) {
		st.Expenses = state.RemoveByID(st.Expenses, id)
	})
	return err
}

func (s *Service) FetchStats(ctx context.Context) (*Stats, error) {
	return state.Run(ctx, s.slice, state.Intent[State]{
		Name:     "expense/fetchStats",
		Fallback: "Failed to fetch expense stats",
	}, func(ctx context.Context) (*Stats, error) {
		var stats Stats
		if err := s.client.Get(ctx, statsPath, &stats); err != nil {
			return nil, err
		}
		return &stats, nil
	}, func(st *State, stats *Stats) {
		st.Stats = stats.Clone()
	})
}

func (s *Service) FetchCategories(ctx context.Context) ([]Category, error) {
	return state.Run(ctx, s.slice, state.Intent[State]{
		Name:       "expense/fetchCategories",
		Collection: "categories",
		Fallback:   "Failed to fetch categories",
		Replace:    true,
	}, func(ctx context.Context) ([]Category, error) {
		var list []Category
		if err := s.client.Get(ctx, categoriesPath, &list); err != nil {
			return nil, err
		}
		return list, nil
	}, func(st *State, list []Category) {
		st.Categories = state.Clone(list)
	})
}

func (s *Service) CreateCategory(ctx context.Context, c NewCategory) (*Category, error) {
	return state.Run(ctx, s.slice, state.Intent[State]{
		Name:       "expense/createCategory",
		Collection: "categories",
		Fallback:   "Failed to create category",
		Quiet:      true,
	}, func(ctx context.Context) (*Category, error) {
		var created Category
		if err := s.client.Post(ctx, categoriesPath, c, &created); err != nil {
			return nil, err
		}
		return &created, nil
	}, func(st *State, created *Category) {
		st.Categories = state.Append(st.Categories, *created)
	})
}

// SetFilters merges f into the stored filters.
func (s *Service) SetFilters(f Filters) {
	s.slice.Update(func(st *State) {
		st.Filters = st.Filters.Merge(f.Clone())
	})
}

func (s *Service) ClearFilters() {
	s.slice.Update(func(st *State) {
		st.Filters = Filters{}
	})
}

func (s *Service) ClearError() {
	s.slice.ClearError()
}
