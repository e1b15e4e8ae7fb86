// Package categories is the category slice: spending categories, their
// groups and allocation stats.
package categories

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-budget-client/api"
	"github.com/jrsteele09/go-budget-client/state"
)

const SliceName = "category"

const (
	categoriesPath = "/api/categories/"
	groupsPath     = "/api/categories/groups/"
	statsPath      = "/api/categories/stats/"
	bulkUpdatePath = "/api/categories/bulk-update/"
)

func categoryPath(id int64) string {
	return fmt.Sprintf("%s%d/", categoriesPath, id)
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

func (s *Service) FetchAll(ctx context.Context) ([]Category, error) {
	return state.Run(ctx, s.slice, state.Intent[State]{
		Name:       "category/fetchAll",
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

func (s *Service) Create(ctx context.Context, c NewCategory) (*Category, error) {
	return state.Run(ctx, s.slice, state.Intent[State]{
		Name:       "category/create",
		Collection: "categories",
		Fallback:   "Failed to create category",
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

func (s *Service) Update(ctx context.Context, id int64, patch CategoryPatch) (*Category, error) {
	return state.Run(ctx, s.slice, state.Intent[State]{
		Name:       "category/update",
		Collection: "categories",
		Fallback:   "Failed to update category",
	}, func(ctx context.Context) (*Category, error) {
		var updated Category
		if err := s.client.Patch(ctx, categoryPath(id), patch, &updated); err != nil {
			return nil, err
		}
		return &updated, nil
	}, func(st *State, updated *Category) {
		s.replace(st, *updated)
	})
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	_, err := state.Run(ctx, s.slice, state.Intent[State]{
		Name:       "category/delete",
		Collection: "categories",
		Fallback:   "Failed to delete category",
		Quiet:      true,
	}, func(ctx context.Context) (int64, error) {
		return id, s.client.Delete(ctx, categoryPath(id))
	}, func(st *State, id int64) {
		st.Categories = state.RemoveByID(st.Categories, id)
	})
	return err
}

func (s *Service) FetchGroups(ctx context.Context) ([]Group, error) {
	return state.Run(ctx, s.slice, state.Intent[State]{
		Name:       "category/fetchGroups",
		Collection: "groups",
		Fallback:   "Failed to fetch category groups",
		Replace:    true,
	}, func(ctx context.Context) ([]Group, error) {
		var list []Group
		if err := s.client.Get(ctx, groupsPath, &list); err != nil {
			return nil, err
		}
		return list, nil
	}, func(st *State, list []Group) {
		st.Groups = state.Clone(list)
	})
}

func (s *Service) CreateGroup(ctx context.Context, g NewGroup) (*Group, error) {
	return state.Run(ctx, s.slice, state.Intent[State]{
		Name:       "category/createGroup",
		Collection: "groups",
		Fallback:   "Failed to create category group",
		Quiet:      true,
	}, func(ctx context.Context) (*Group, error) {
		var created Group
		if err := s.client.Post(ctx, groupsPath, g, &created); err != nil {
			return nil, err
		}
		return &created, nil
	}, func(st *State, created *Group) {
		st.Groups = state.Append(st.Groups, *created)
	})
}

func (s *Service) FetchStats(ctx context.Context) (*Stats, error) {
	return state.Run(ctx, s.slice, state.Intent[State]{
		Name:     "category/fetchStats",
		Fallback: "Failed to fetch category stats",
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

// BulkUpdate applies several patches in one request and replaces each
// returned category by id.
func (s *Service) BulkUpdate(ctx context.Context, updates []BulkUpdate) ([]Category, error) {
	return state.Run(ctx, s.slice, state.Intent[State]{
		Name:       "category/bulkUpdate",
		Collection: "categories",
		Fallback:   "Failed to bulk update categories",
		Quiet:      true,
	}, func(ctx context.Context) ([]Category, error) {
		var list []Category
		if err := s.client.Post(ctx, bulkUpdatePath, bulkUpdateRequest{Updates: updates}, &list); err != nil {
			return nil, err
		}
		return list, nil
	}, func(st *State, list []Category) {
		for _, c := range list {
			s.replace(st, c)
		}
	})
}

func (s *Service) ClearError() {
	s.slice.ClearError()
}

func (s *Service) replace(st *State, c Category) {
	var found bool
	if st.Categories, found = state.ReplaceByID(st.Categories, c); !found {
		s.slice.Logger().Debug().Int64("id", c.ID).Msg("Updated category not in list")
	}
}
