package fakeapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/jrsteele09/go-budget-client/categories"
)

func setCategoryID(c *categories.Category, id int64) { c.ID = id }

func setGroupID(g *categories.Group, id int64) { g.ID = id }

func validateCategory(name string, pct float64) fieldErrors {
	fields := fieldErrors{}
	fields.required("name", name)
	if pct < 0 || pct > 100 {
		fields.add("budget_percentage", "Ensure this value is between 0 and 100.")
	}
	return fields
}

func (s *Server) listCategoriesHandler(c *gin.Context) {
	s.lock.Lock()
	defer s.lock.Unlock()
	c.JSON(http.StatusOK, s.categories.filter(nil))
}

func (s *Server) createCategoryHandler(c *gin.Context) {
	var req categories.NewCategory
	if !bind(c, &req) {
		return
	}
	if fields := validateCategory(req.Name, req.BudgetPercentage); len(fields) > 0 {
		c.JSON(http.StatusBadRequest, fields)
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	now := s.now().UTC()
	created := s.categories.insert(categories.Category{
		Name:             req.Name,
		Type:             req.Type,
		Color:            req.Color,
		BudgetPercentage: req.BudgetPercentage,
		Icon:             req.Icon,
		Group:            req.Group,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, setCategoryID)
	c.JSON(http.StatusCreated, created)
}

// applyCategoryPatch updates a stored category. Caller holds s.lock.
func (s *Server) applyCategoryPatch(id int64, patch categories.CategoryPatch) (categories.Category, bool) {
	cat, found := s.categories.get(id)
	if !found {
		return cat, false
	}
	setIf(&cat.Name, patch.Name)
	setIf(&cat.Type, patch.Type)
	setIf(&cat.Color, patch.Color)
	setIf(&cat.BudgetPercentage, patch.BudgetPercentage)
	setPtrIf(&cat.Icon, patch.Icon)
	setPtrIf(&cat.Group, patch.Group)
	cat.UpdatedAt = s.now().UTC()
	s.categories.put(cat)
	return cat, true
}

func (s *Server) patchCategoryHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var patch categories.CategoryPatch
	if !bind(c, &patch) {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	cat, found := s.applyCategoryPatch(id, patch)
	if !found {
		c.JSON(http.StatusNotFound, notFound)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (s *Server) deleteCategoryHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if !s.categories.remove(id) {
		c.JSON(http.StatusNotFound, notFound)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listGroupsHandler(c *gin.Context) {
	s.lock.Lock()
	defer s.lock.Unlock()
	c.JSON(http.StatusOK, s.groups.filter(nil))
}

func (s *Server) createGroupHandler(c *gin.Context) {
	var req categories.NewGroup
	if !bind(c, &req) {
		return
	}
	fields := fieldErrors{}
	if !fields.required("name", req.Name) {
		c.JSON(http.StatusBadRequest, fields)
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	now := s.now().UTC()
	created := s.groups.insert(categories.Group{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, setGroupID)
	c.JSON(http.StatusCreated, created)
}

func (s *Server) categoryStatsHandler(c *gin.Context) {
	s.lock.Lock()
	defer s.lock.Unlock()

	income := decimal.Zero
	if acct := s.currentAccount(c); acct != nil {
		income = acct.user.MonthlyIncome
	}

	byType := map[string]int{}
	stats := categories.Stats{
		TotalCategories:  len(s.categories.rows),
		CategoriesByType: []categories.TypeCount{},
		BudgetAllocation: []categories.Allocation{},
	}
	for _, cat := range s.categories.rows {
		byType[cat.Type]++
		pct := decimal.NewFromFloat(cat.BudgetPercentage)
		stats.BudgetAllocation = append(stats.BudgetAllocation, categories.Allocation{
			Category:   cat.Name,
			Percentage: cat.BudgetPercentage,
			Amount:     income.Mul(pct).Div(decimal.NewFromInt(100)).Round(2),
		})
	}
	for _, t := range sortedKeys(byType) {
		stats.CategoriesByType = append(stats.CategoriesByType, categories.TypeCount{Type: t, Count: byType[t]})
	}
	c.JSON(http.StatusOK, stats)
}

type bulkUpdateRequest struct {
	Updates []categories.BulkUpdate `json:"updates"`
}

// bulkUpdateCategoriesHandler applies every patch or none: an unknown id
// fails the whole request.
func (s *Server) bulkUpdateCategoriesHandler(c *gin.Context) {
	var req bulkUpdateRequest
	if !bind(c, &req) {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	fields := fieldErrors{}
	for i, u := range req.Updates {
		if _, found := s.categories.get(u.ID); !found {
			fields.add("updates", "Category "+strconv.FormatInt(u.ID, 10)+" does not exist (entry "+strconv.Itoa(i)+").")
		}
	}
	if len(fields) > 0 {
		c.JSON(http.StatusBadRequest, fields)
		return
	}

	updated := make([]categories.Category, 0, len(req.Updates))
	for _, u := range req.Updates {
		cat, _ := s.applyCategoryPatch(u.ID, u.Data)
		updated = append(updated, cat)
	}
	c.JSON(http.StatusOK, updated)
}
