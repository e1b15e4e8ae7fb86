package fakeapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/jrsteele09/go-budget-client/templates"
)

func setTemplateID(t *templates.Template, id int64) { t.ID = id }

func setAllocationID(a *templates.TemplateCategory, id int64) { a.ID = id }

func setReviewID(r *templates.Review, id int64) { r.ID = id }

func (s *Server) listTemplatesHandler(c *gin.Context) {
	s.lock.Lock()
	defer s.lock.Unlock()
	c.JSON(http.StatusOK, s.templates.filter(nil))
}

func (s *Server) searchTemplatesHandler(c *gin.Context) {
	query, hasQuery := queryString(c, "query")
	templateType, hasType := queryString(c, "template_type")
	period, hasPeriod := queryString(c, "period")
	minRating, hasMinRating := queryFloat(c, "min_rating")
	maxAmount, hasMaxAmount := queryDecimal(c, "max_amount")
	query = strings.ToLower(query)

	s.lock.Lock()
	defer s.lock.Unlock()

	c.JSON(http.StatusOK, s.templates.filter(func(t templates.Template) bool {
		text := strings.ToLower(t.Name + " " + t.Description)
		switch {
		case hasQuery && !strings.Contains(text, query),
			hasType && t.TemplateType != templateType,
			hasPeriod && t.Period != period,
			hasMinRating && t.Rating < minRating,
			hasMaxAmount && t.TotalAmount.GreaterThan(maxAmount):
			return false
		}
		return true
	}))
}

func (s *Server) getTemplateHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	t, found := s.templates.get(id)
	if !found {
		c.JSON(http.StatusNotFound, notFound)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) createTemplateHandler(c *gin.Context) {
	var req templates.NewTemplate
	if !bind(c, &req) {
		return
	}

	fields := fieldErrors{}
	fields.required("name", req.Name)
	if req.TotalAmount.IsNegative() {
		fields.add("total_amount", "Ensure this value is greater than or equal to 0.")
	}
	var sum float64
	for _, a := range req.Categories {
		sum += a.AllocatedPercentage
	}
	if sum > 100 {
		fields.add("categories", "Allocated percentages cannot exceed 100.")
	}
	if len(fields) > 0 {
		c.JSON(http.StatusBadRequest, fields)
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	now := s.now().UTC()
	created := s.templates.insert(templates.Template{
		Name:         req.Name,
		Description:  req.Description,
		TemplateType: req.TemplateType,
		Period:       req.Period,
		TotalAmount:  req.TotalAmount,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, setTemplateID)

	for _, a := range req.Categories {
		pct := decimal.NewFromFloat(a.AllocatedPercentage)
		s.allocations.insert(templates.TemplateCategory{
			Template:            created.ID,
			Category:            a.Category,
			AllocatedPercentage: a.AllocatedPercentage,
			AllocatedAmount:     req.TotalAmount.Mul(pct).Div(decimal.NewFromInt(100)).Round(2),
			CreatedAt:           now,
			UpdatedAt:           now,
		}, setAllocationID)
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) patchTemplateHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var patch templates.TemplatePatch
	if !bind(c, &patch) {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	t, found := s.templates.get(id)
	if !found {
		c.JSON(http.StatusNotFound, notFound)
		return
	}
	setIf(&t.Name, patch.Name)
	setIf(&t.Description, patch.Description)
	setIf(&t.TemplateType, patch.TemplateType)
	setIf(&t.Period, patch.Period)
	setIf(&t.TotalAmount, patch.TotalAmount)
	t.UpdatedAt = s.now().UTC()
	s.templates.put(t)
	c.JSON(http.StatusOK, t)
}

func (s *Server) deleteTemplateHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if !s.templates.remove(id) {
		c.JSON(http.StatusNotFound, notFound)
		return
	}
	s.allocations.rows = s.allocations.filter(func(a templates.TemplateCategory) bool { return a.Template != id })
	s.reviews.rows = s.reviews.filter(func(r templates.Review) bool { return r.Template != id })
	c.Status(http.StatusNoContent)
}

// templateExists answers 404 for unknown templates. Caller holds s.lock.
func (s *Server) templateExists(c *gin.Context, id int64) bool {
	if _, found := s.templates.get(id); !found {
		c.JSON(http.StatusNotFound, notFound)
		return false
	}
	return true
}

func (s *Server) listTemplateCategoriesHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if !s.templateExists(c, id) {
		return
	}
	c.JSON(http.StatusOK, s.allocations.filter(func(a templates.TemplateCategory) bool { return a.Template == id }))
}

func (s *Server) listReviewsHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if !s.templateExists(c, id) {
		return
	}
	c.JSON(http.StatusOK, s.reviews.filter(func(r templates.Review) bool { return r.Template == id }))
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// createReviewHandler stores a review and refreshes the template's average
// rating.
func (s *Server) createReviewHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req reviewRequest
	if !bind(c, &req) {
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"rating": []string{"Ensure this value is between 1 and 5."}})
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if !s.templateExists(c, id) {
		return
	}

	now := s.now().UTC()
	created := s.reviews.insert(templates.Review{
		Template:  id,
		User:      s.currentAccount(c).user.ID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		CreatedAt: now,
		UpdatedAt: now,
	}, setReviewID)

	reviews := s.reviews.filter(func(r templates.Review) bool { return r.Template == id })
	total := 0
	for _, r := range reviews {
		total += r.Rating
	}
	t, _ := s.templates.get(id)
	t.Rating = float64(total) / float64(len(reviews))
	s.templates.put(t)

	c.JSON(http.StatusCreated, created)
}
