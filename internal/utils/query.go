package utils

import (
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
)

// Query accumulates optional query parameters, skipping nil values.
type Query struct {
	values url.Values
}

func NewQuery() *Query {
	return &Query{values: url.Values{}}
}

func (q *Query) String(key string, v *string) *Query {
	if v != nil {
		q.values.Set(key, *v)
	}
	return q
}

func (q *Query) Int(key string, v *int64) *Query {
	if v != nil {
		q.values.Set(key, strconv.FormatInt(*v, 10))
	}
	return q
}

func (q *Query) Float(key string, v *float64) *Query {
	if v != nil {
		q.values.Set(key, strconv.FormatFloat(*v, 'f', -1, 64))
	}
	return q
}

func (q *Query) Decimal(key string, v *decimal.Decimal) *Query {
	if v != nil {
		q.values.Set(key, v.String())
	}
	return q
}

// Apply appends the encoded parameters to path. A path with no parameters is
// returned unchanged.
func (q *Query) Apply(path string) string {
	if len(q.values) == 0 {
		return path
	}
	return path + "?" + q.values.Encode()
}
