package templates

import (
	"time"

	"github.com/jrsteele09/go-budget-client/internal/utils"
	"github.com/jrsteele09/go-budget-client/state"
	"github.com/shopspring/decimal"
)

// Template is a shareable budget plan.
type Template struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	TemplateType string          `json:"template_type"`
	Period       string          `json:"period"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Rating       float64         `json:"rating"`
	UsageCount   int             `json:"usage_count"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (t Template) EntityID() int64 { return t.ID }

// Allocation assigns a share of a new template to a category.
type Allocation struct {
	Category            int64   `json:"category"`
	AllocatedPercentage float64 `json:"allocated_percentage"`
}

type NewTemplate struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	TemplateType string          `json:"template_type"`
	Period       string          `json:"period"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Categories   []Allocation    `json:"categories"`
}

type TemplatePatch struct {
	Name         *string          `json:"name,omitempty"`
	Description  *string          `json:"description,omitempty"`
	TemplateType *string          `json:"template_type,omitempty"`
	Period       *string          `json:"period,omitempty"`
	TotalAmount  *decimal.Decimal `json:"total_amount,omitempty"`
}

// TemplateCategory is a category allocation stored on a template.
type TemplateCategory struct {
	ID                  int64           `json:"id"`
	Template            int64           `json:"template"`
	Category            int64           `json:"category"`
	AllocatedPercentage float64         `json:"allocated_percentage"`
	AllocatedAmount     decimal.Decimal `json:"allocated_amount"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func (c TemplateCategory) EntityID() int64 { return c.ID }

type Review struct {
	ID        int64     `json:"id"`
	Template  int64     `json:"template"`
	User      int64     `json:"user"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r Review) EntityID() int64 { return r.ID }

type newReview struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// SearchParams are the template search criteria. Nil criteria are omitted.
type SearchParams struct {
	Query        *string
	TemplateType *string
	Period       *string
	MinRating    *float64
	MaxAmount    *decimal.Decimal
}

func (p SearchParams) query(path string) string {
	return utils.NewQuery().
		String("query", p.Query).
		String("template_type", p.TemplateType).
		String("period", p.Period).
		Float("min_rating", p.MinRating).
		Decimal("max_amount", p.MaxAmount).
		Apply(path)
}

// State is the template slice.
type State struct {
	Templates          []Template
	TemplateCategories []TemplateCategory
	Reviews            []Review
	Current            *Template
}

func (s State) Clone() State {
	return State{
		Templates:          state.Clone(s.Templates),
		TemplateCategories: state.Clone(s.TemplateCategories),
		Reviews:            state.Clone(s.Reviews),
		Current:            utils.ClonePtr(s.Current),
	}
}
