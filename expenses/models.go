package expenses

import (
	"time"

	"github.com/jrsteele09/go-budget-client/internal/utils"
	"github.com/jrsteele09/go-budget-client/state"
	"github.com/shopspring/decimal"
)

type Expense struct {
	ID                 int64           `json:"id"`
	User               int64           `json:"user"`
	Category           int64           `json:"category"`
	Amount             decimal.Decimal `json:"amount"`
	Description        string          `json:"description"`
	Date               string          `json:"date"` // YYYY-MM-DD
	ExpenseType        string          `json:"expense_type"`
	PaymentMethod      string          `json:"payment_method"`
	IsRecurring        bool            `json:"is_recurring"`
	RecurringFrequency *string         `json:"recurring_frequency,omitempty"`
	RecurringEndDate   *string         `json:"recurring_end_date,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func (e Expense) EntityID() int64 { return e.ID }

func (e Expense) Clone() Expense {
	e.RecurringFrequency = utils.ClonePtr(e.RecurringFrequency)
	e.RecurringEndDate = utils.ClonePtr(e.RecurringEndDate)
	return e
}

// NewExpense is the create payload.
type NewExpense struct {
	Category           int64           `json:"category"`
	Amount             decimal.Decimal `json:"amount"`
	Description        string          `json:"description"`
	Date               string          `json:"date"`
	ExpenseType        string          `json:"expense_type"`
	PaymentMethod      string          `json:"payment_method"`
	IsRecurring        bool            `json:"is_recurring"`
	RecurringFrequency *string         `json:"recurring_frequency,omitempty"`
	RecurringEndDate   *string         `json:"recurring_end_date,omitempty"`
}

// ExpensePatch is a partial update; nil fields are not sent.
type ExpensePatch struct {
	Category           *int64           `json:"category,omitempty"`
	Amount             *decimal.Decimal `json:"amount,omitempty"`
	Description        *string          `json:"description,omitempty"`
	Date               *string          `json:"date,omitempty"`
	ExpenseType        *string          `json:"expense_type,omitempty"`
	PaymentMethod      *string          `json:"payment_method,omitempty"`
	IsRecurring        *bool            `json:"is_recurring,omitempty"`
	RecurringFrequency *string          `json:"recurring_frequency,omitempty"`
	RecurringEndDate   *string          `json:"recurring_end_date,omitempty"`
}

// Category is the category record as the expense screens see it.
type Category struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	Color            string    `json:"color"`
	BudgetPercentage float64   `json:"budget_percentage"`
	Icon             *string   `json:"icon,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (c Category) EntityID() int64 { return c.ID }

func (c Category) Clone() Category {
	c.Icon = utils.ClonePtr(c.Icon)
	return c
}

type NewCategory struct {
	Name             string  `json:"name"`
	Type             string  `json:"type"`
	Color            string  `json:"color"`
	BudgetPercentage float64 `json:"budget_percentage"`
	Icon             *string `json:"icon,omitempty"`
}

type CategoryBreakdown struct {
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage float64         `json:"percentage"`
}

type TrendPoint struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

type Stats struct {
	TotalExpenses     decimal.Decimal     `json:"total_expenses"`
	MonthlyExpenses   decimal.Decimal     `json:"monthly_expenses"`
	CategoryBreakdown []CategoryBreakdown `json:"category_breakdown"`
	TrendData         []TrendPoint        `json:"trend_data"`
}

func (s *Stats) Clone() *Stats {
	if s == nil {
		return nil
	}
	c := *s
	c.CategoryBreakdown = state.Clone(s.CategoryBreakdown)
	c.TrendData = state.Clone(s.TrendData)
	return &c
}

// Filters narrows FetchFiltered. Nil criteria are left out of the query.
type Filters struct {
	StartDate *string          `json:"start_date,omitempty"`
	EndDate   *string          `json:"end_date,omitempty"`
	Category  *int64           `json:"category,omitempty"`
	MinAmount *decimal.Decimal `json:"min_amount,omitempty"`
	MaxAmount *decimal.Decimal `json:"max_amount,omitempty"`
}

// Merge overlays the criteria set in other.
func (f Filters) Merge(other Filters) Filters {
	if other.StartDate != nil {
		f.StartDate = other.StartDate
	}
	if other.EndDate != nil {
		f.EndDate = other.EndDate
	}
	if other.Category != nil {
		f.Category = other.Category
	}
	if other.MinAmount != nil {
		f.MinAmount = other.MinAmount
	}
	if other.MaxAmount != nil {
		f.MaxAmount = other.MaxAmount
	}
	return f
}

func (f Filters) Clone() Filters {
	return Filters{
		StartDate: utils.ClonePtr(f.StartDate),
		EndDate:   utils.ClonePtr(f.EndDate),
		Category:  utils.ClonePtr(f.Category),
		MinAmount: utils.ClonePtr(f.MinAmount),
		MaxAmount: utils.ClonePtr(f.MaxAmount),
	}
}

func (f Filters) query(path string) string {
	return utils.NewQuery().
		String("start_date", f.StartDate).
		String("end_date", f.EndDate).
		Int("category", f.Category).
		Decimal("min_amount", f.MinAmount).
		Decimal("max_amount", f.MaxAmount).
		Apply(path)
}

// State is the expense slice.
type State struct {
	Expenses   []Expense
	Categories []Category
	Stats      *Stats
	Filters    Filters
}

func (s State) Clone() State {
	return State{
		Expenses:   state.Clone(s.Expenses),
		Categories: state.Clone(s.Categories),
		Stats:      s.Stats.Clone(),
		Filters:    s.Filters.Clone(),
	}
}
