// Package templates is the budget template slice: the template catalogue,
// the template being viewed, and that template's allocations and reviews.
package templates

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-budget-client/api"
	"github.com/jrsteele09/go-budget-client/internal/utils"
	"github.com/jrsteele09/go-budget-client/state"
)

const SliceName = "template"

const (
	templatesPath = "/api/templates/"
	searchPath    = "/api/templates/search/"
)

func templatePath(id int64) string {
	return fmt.Sprintf("%s%d/", templatesPath, id)
}

func templateCategoriesPath(id int64) string {
	return templatePath(id) + "categories/"
}

func reviewsPath(id int64) string {
	return templatePath(id) + "reviews/"
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

func (s *Service) FetchAll(ctx context.Context) ([]Template, error) {
	return s.fetchList(ctx, "template/fetchAll", templatesPath, "Failed to fetch templates")
}

// Search replaces the template list with the matching templates.
func (s *Service) Search(ctx context.Context, p SearchParams) ([]Template, error) {
	return s.fetchList(ctx, "template/search", p.query(searchPath), "Failed to search templates")
}

func (s *Service) fetchList(ctx context.Context, name, path, fallback string) ([]Template, error) {
	return state.Run(ctx, s.slice, state.Intent[State]{
		Name:       name,
		Collection: "templates",
		Fallback:   fallback,
		Replace:    true,
	}, func(ctx context.Context) ([]Template, error) {
		var list []Template
		if err := s.client.Get(ctx, path, &list); err != nil {
			return nil, err
		}
		return list, nil
	}, func(st *State, list []Template) {
		st.Templates = state.Clone(list)
	})
}

// FetchByID loads one template into Current. The list is not touched.
func (s *Service) FetchByID(ctx context.Context, id int64) (*Template, error) {
	return state.Run(ctx, s.slice, state.Intent[State]{
		Name:     "template/fetchByID",
		Fallback: "Failed to fetch template",
	}, func(ctx context.Context) (*Template, error) {
		var t Template
		if err := s.client.Get(ctx, templatePath(id), &t); err != nil {
			return nil, err
		}
		return &t, nil
	}, func(st *State, t *Template) {
		st.Current = utils.ClonePtr(t)
	})
}

func (s *Service) Create(ctx context.Context, t NewTemplate) (*Template, error) {
	return state.Run(ctx, s.slice, state.Intent[State]{
		Name:       "template/create",
		Collection: "templates",
		Fallback:   "Failed to create template",
	}, func(ctx context.Context) (*Template, error) {
		var created Template
		if err := s.client.Post(ctx, templatesPath, t, &created); err != nil {
			return nil, err
		}
		return &created, nil
	}, func(st *State, created *Template) {
		st.Templates = state.Append(st.Templates, *created)
	})
}

// Update patches a template, replacing it in the list and in Current when
// Current is the same template.
func (s *Service) Update(ctx context.Context, id int64, patch TemplatePatch) (*Template, error) {
	return state.Run(ctx, s.slice, state.Intent[State]{
		Name:       "template/update",
		Collection: "templates",
		Fallback:   "Failed to update template",
	}, func(ctx context.Context) (*Template, error) {
		var updated Template
		if err := s.client.Patch(ctx, templatePath(id), patch, &updated); err != nil {
			return nil, err
		}
		return &updated, nil
	}, func(st *State, updated *Template) {
		var found bool
		if st.Templates, found = state.ReplaceByID(st.Templates, *updated); !found {
			s.slice.Logger().Debug().Int64("id", updated.ID).Msg("Updated template not in list")
		}
		if st.Current != nil && st.Current.ID == updated.ID {
			st.Current = utils.ClonePtr(updated)
		}
	})
}

// Delete removes a template and clears Current when it was that template.
func (s *Service) Delete(ctx context.Context, id int64) error {
	_, err := state.Run(ctx, s.slice, state.Intent[State]{
		Name:       "template/delete",
		Collection: "templates",
		Fallback:   "Failed to delete template",
		Quiet:      true,
	}, func(ctx context.Context) (int64, error) {
		return id, s.client.Delete(ctx, templatePath(id))
	}, func(st *State, id int64) {
		st.Templates = state.RemoveByID(st.Templates, id)
		if st.Current != nil && st.Current.ID == id {
			st.Current = nil
		}
	})
	return err
}

func (s *Service) FetchCategories(ctx context.Context, templateID int64) ([]TemplateCategory, error) {
	return state.Run(ctx, s.slice, state.Intent[State]{
		Name:       "template/fetchCategories",
		Collection: "templateCategories",
		Fallback:   "Failed to fetch template categories",
		Replace:    true,
	}, func(ctx context.Context) ([]TemplateCategory, error) {
		var list []TemplateCategory
		if err := s.client.Get(ctx, templateCategoriesPath(templateID), &list); err != nil {
			return nil, err
		}
		return list, nil
	}, func(st *State, list []TemplateCategory) {
		st.TemplateCategories = state.Clone(list)
	})
}

func (s *Service) FetchReviews(ctx context.Context, templateID int64) ([]Review, error) {
	return state.Run(ctx, s.slice, state.Intent[State]{
		Name:       "template/fetchReviews",
		Collection: "reviews",
		Fallback:   "Failed to fetch template reviews",
		Replace:    true,
	}, func(ctx context.Context) ([]Review, error) {
		var list []Review
		if err := s.client.Get(ctx, reviewsPath(templateID), &list); err != nil {
			return nil, err
		}
		return list, nil
	}, func(st *State, list []Review) {
		st.Reviews = state.Clone(list)
	})
}

func (s *Service) CreateReview(ctx context.Context, templateID int64, rating int, comment string) (*Review, error) {
	return state.Run(ctx, s.slice, state.Intent[State]{
		Name:       "template/createReview",
		Collection: "reviews",
		Fallback:   "Failed to create template review",
		Quiet:      true,
	}, func(ctx context.Context) (*Review, error) {
		var created Review
		if err := s.client.Post(ctx, reviewsPath(templateID), newReview{Rating: rating, Comment: comment}, &created); err != nil {
			return nil, err
		}
		return &created, nil
	}, func(st *State, created *Review) {
		st.Reviews = state.Append(st.Reviews, *created)
	})
}

// SetCurrent selects the template being viewed; nil clears it.
func (s *Service) SetCurrent(t *Template) {
	s.slice.Update(func(st *State) {
		st.Current = utils.ClonePtr(t)
	})
}

func (s *Service) ClearError() {
	s.slice.ClearError()
}
