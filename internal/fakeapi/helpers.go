package fakeapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jrsteele09/go-budget-client/internal/utils"
	"github.com/shopspring/decimal"
)

var notFound = gin.H{"detail": "Not found."}

// fieldErrors is a DRF-style validation body: field -> messages.
type fieldErrors map[string][]string

func (f fieldErrors) add(field, msg string) {
	f[field] = append(f[field], msg)
}

func (f fieldErrors) required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		f.add(field, "This field is required.")
		return false
	}
	return true
}

// setIf overwrites dst when the patch field is present.
func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// setPtrIf is setIf for nullable fields.
func setPtrIf[T any](dst **T, v *T) {
	if v != nil {
		*dst = utils.ClonePtr(v)
	}
}

// idParam reads the :id path parameter, answering 404 when it is not an id.
func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, notFound)
		return 0, false
	}
	return id, true
}

// bind decodes the JSON body, answering 400 when it is malformed.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Malformed request body."})
		return false
	}
	return true
}

func queryString(c *gin.Context, key string) (string, bool) {
	v, ok := c.GetQuery(key)
	return v, ok && v != ""
}

func queryDecimal(c *gin.Context, key string) (decimal.Decimal, bool) {
	raw, ok := queryString(c, key)
	if !ok {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(raw)
	return d, err == nil
}

func queryFloat(c *gin.Context, key string) (float64, bool) {
	raw, ok := queryString(c, key)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	return f, err == nil
}

func queryInt(c *gin.Context, key string) (int64, bool) {
	raw, ok := queryString(c, key)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	return n, err == nil
}

// percentage returns part as a percentage of total, rounded to two places.
func percentage(part, total decimal.Decimal) float64 {
	if total.IsZero() {
		return 0
	}
	f, _ := part.Div(total).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return f
}
