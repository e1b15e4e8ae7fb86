package fakeapi

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/jrsteele09/go-budget-client/expenses"
)

func setExpenseID(e *expenses.Expense, id int64) { e.ID = id }

func (s *Server) listExpensesHandler(c *gin.Context) {
	start, hasStart := queryString(c, "start_date")
	end, hasEnd := queryString(c, "end_date")
	category, hasCategory := queryInt(c, "category")
	minAmount, hasMin := queryDecimal(c, "min_amount")
	maxAmount, hasMax := queryDecimal(c, "max_amount")

	s.lock.Lock()
	defer s.lock.Unlock()

	// Dates are YYYY-MM-DD, so string order is date order.
	c.JSON(http.StatusOK, s.expenses.filter(func(e expenses.Expense) bool {
		switch {
		case hasStart && e.Date < start,
			hasEnd && e.Date > end,
			hasCategory && e.Category != category,
			hasMin && e.Amount.LessThan(minAmount),
			hasMax && e.Amount.GreaterThan(maxAmount):
			return false
		}
		return true
	}))
}

func validateExpense(e expenses.NewExpense) fieldErrors {
	fields := fieldErrors{}
	if !e.Amount.IsPositive() {
		fields.add("amount", "Ensure this value is greater than 0.")
	}
	fields.required("description", e.Description)
	fields.required("date", e.Date)
	if e.Category == 0 {
		fields.add("category", "This field is required.")
	}
	return fields
}

func (s *Server) createExpenseHandler(c *gin.Context) {
	var req expenses.NewExpense
	if !bind(c, &req) {
		return
	}
	if fields := validateExpense(req); len(fields) > 0 {
		c.JSON(http.StatusBadRequest, fields)
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	now := s.now().UTC()
	created := s.expenses.insert(expenses.Expense{
		User:               s.currentAccount(c).user.ID,
		Category:           req.Category,
		Amount:             req.Amount,
		Description:        req.Description,
		Date:               req.Date,
		ExpenseType:        req.ExpenseType,
		PaymentMethod:      req.PaymentMethod,
		IsRecurring:        req.IsRecurring,
		RecurringFrequency: req.RecurringFrequency,
		RecurringEndDate:   req.RecurringEndDate,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, setExpenseID)
	c.JSON(http.StatusCreated, created)
}

func (s *Server) patchExpenseHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var patch expenses.ExpensePatch
	if !bind(c, &patch) {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	e, found := s.expenses.get(id)
	if !found {
		c.JSON(http.StatusNotFound, notFound)
		return
	}
	setIf(&e.Category, patch.Category)
	setIf(&e.Amount, patch.Amount)
	setIf(&e.Description, patch.Description)
	setIf(&e.Date, patch.Date)
	setIf(&e.ExpenseType, patch.ExpenseType)
	setIf(&e.PaymentMethod, patch.PaymentMethod)
	setIf(&e.IsRecurring, patch.IsRecurring)
	setPtrIf(&e.RecurringFrequency, patch.RecurringFrequency)
	setPtrIf(&e.RecurringEndDate, patch.RecurringEndDate)
	e.UpdatedAt = s.now().UTC()
	s.expenses.put(e)
	c.JSON(http.StatusOK, e)
}

func (s *Server) deleteExpenseHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if !s.expenses.remove(id) {
		c.JSON(http.StatusNotFound, notFound)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) expenseStatsHandler(c *gin.Context) {
	s.lock.Lock()
	defer s.lock.Unlock()

	month := s.now().UTC().Format("2006-01")
	total, monthly := decimal.Zero, decimal.Zero
	byCategory := map[string]decimal.Decimal{}
	byMonth := map[string]decimal.Decimal{}
	for _, e := range s.expenses.rows {
		total = total.Add(e.Amount)
		if len(e.Date) >= 7 {
			byMonth[e.Date[:7]] = byMonth[e.Date[:7]].Add(e.Amount)
			if e.Date[:7] == month {
				monthly = monthly.Add(e.Amount)
			}
		}
		name := "Uncategorized"
		if cat, ok := s.categories.get(e.Category); ok {
			name = cat.Name
		}
		byCategory[name] = byCategory[name].Add(e.Amount)
	}

	stats := expenses.Stats{
		TotalExpenses:     total,
		MonthlyExpenses:   monthly,
		CategoryBreakdown: []expenses.CategoryBreakdown{},
		TrendData:         []expenses.TrendPoint{},
	}
	for _, name := range sortedKeys(byCategory) {
		stats.CategoryBreakdown = append(stats.CategoryBreakdown, expenses.CategoryBreakdown{
			Category:   name,
			Amount:     byCategory[name],
			Percentage: percentage(byCategory[name], total),
		})
	}
	for _, m := range sortedKeys(byMonth) {
		stats.TrendData = append(stats.TrendData, expenses.TrendPoint{Month: m, Amount: byMonth[m]})
	}
	c.JSON(http.StatusOK, stats)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
