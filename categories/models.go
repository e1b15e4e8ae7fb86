package categories

import (
	"time"

	"github.com/jrsteele09/go-budget-client/internal/utils"
	"github.com/jrsteele09/go-budget-client/state"
	"github.com/shopspring/decimal"
)

type Category struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	Color            string    `json:"color"`
	BudgetPercentage float64   `json:"budget_percentage"`
	Icon             *string   `json:"icon,omitempty"`
	Group            *int64    `json:"group,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (c Category) EntityID() int64 { return c.ID }

func (c Category) Clone() Category {
	c.Icon = utils.ClonePtr(c.Icon)
	c.Group = utils.ClonePtr(c.Group)
	return c
}

type NewCategory struct {
	Name             string  `json:"name"`
	Type             string  `json:"type"`
	Color            string  `json:"color"`
	BudgetPercentage float64 `json:"budget_percentage"`
	Icon             *string `json:"icon,omitempty"`
	Group            *int64  `json:"group,omitempty"`
}

type CategoryPatch struct {
	Name             *string  `json:"name,omitempty"`
	Type             *string  `json:"type,omitempty"`
	Color            *string  `json:"color,omitempty"`
	BudgetPercentage *float64 `json:"budget_percentage,omitempty"`
	Icon             *string  `json:"icon,omitempty"`
	Group            *int64   `json:"group,omitempty"`
}

// BulkUpdate is one entry of a bulk-update request.
type BulkUpdate struct {
	ID   int64         `json:"id"`
	Data CategoryPatch `json:"data"`
}

type bulkUpdateRequest struct {
	Updates []BulkUpdate `json:"updates"`
}

type Group struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (g Group) EntityID() int64 { return g.ID }

func (g Group) Clone() Group {
	g.Description = utils.ClonePtr(g.Description)
	return g
}

type NewGroup struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Color       string  `json:"color"`
}

type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type Allocation struct {
	Category   string          `json:"category"`
	Percentage float64         `json:"percentage"`
	Amount     decimal.Decimal `json:"amount"`
}

type Stats struct {
	TotalCategories  int          `json:"total_categories"`
	CategoriesByType []TypeCount  `json:"categories_by_type"`
	BudgetAllocation []Allocation `json:"budget_allocation"`
}

func (s *Stats) Clone() *Stats {
	if s == nil {
		return nil
	}
	c := *s
	c.CategoriesByType = state.Clone(s.CategoriesByType)
	c.BudgetAllocation = state.Clone(s.BudgetAllocation)
	return &c
}

// State is the category slice.
type State struct {
	Categories []Category
	Groups     []Group
	Stats      *Stats
}

func (s State) Clone() State {
	return State{
		Categories: state.Clone(s.Categories),
		Groups:     state.Clone(s.Groups),
		Stats:      s.Stats.Clone(),
	}
}
