// Package pagination reads list window parameters from requests and wraps
// list responses.
package pagination

import (
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Params struct {
	Limit  int
	Offset int
}

// FromContext reads ?limit= and either ?offset= or a 1-based ?page=.
// offset wins when both are given. Bad values fall back to the defaults.
func FromContext(c echo.Context) Params {
	limit := cast.ToInt(c.QueryParam("limit"))
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	p := Params{Limit: limit}
	if raw := c.QueryParam("offset"); raw != "" {
		p.Offset = max(cast.ToInt(raw), 0)
	} else if page := cast.ToInt(c.QueryParam("page")); page > 1 {
		p.Offset = (page - 1) * limit
	}
	return p
}

// Page is the 1-based page that Offset falls on.
func (p Params) Page() int {
	if p.Limit <= 0 {
		return 1
	}
	return p.Offset/p.Limit + 1
}

type Response struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	Page    int         `json:"page"`
	HasMore bool        `json:"hasMore"`
}

func NewResponse(data interface{}, total, limit, offset int) *Response {
	p := Params{Limit: limit, Offset: offset}
	return &Response{
		Data:    data,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		Page:    p.Page(),
		HasMore: offset+limit < total,
	}
}

// Slice returns the window of items selected by limit and offset. A
// non-positive limit means no upper bound.
func Slice[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
