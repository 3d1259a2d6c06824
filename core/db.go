package core

import "math"

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Page is a 1-based skip/limit window over a result set.
type Page struct {
	Number int64
	Limit  int64
}

// NewPage clamps page and limit to at least 1. A zero limit falls back to DefaultLimit.
func NewPage(number, limit int64) Page {
	if number < 1 {
		number = DefaultPage
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 {
		limit = 1
	}
	return Page{Number: number, Limit: limit}
}

func (p Page) Skip() int64 {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Limit
}

// TotalPages returns the number of pages needed to hold total items.
func (p Page) TotalPages(total int64) int64 {
	if total <= 0 || p.Limit <= 0 {
		return 0
	}
	return int64(math.Ceil(float64(total) / float64(p.Limit)))
}

// PageResult is one page of items plus the totals needed to render pagination.
type PageResult[T any] struct {
	Items      []T
	Total      int64
	TotalPages int64
	Page       int64
}

func NewPageResult[T any](items []T, total int64, page Page) PageResult[T] {
	if items == nil {
		items = []T{}
	}
	return PageResult[T]{
		Items:      items,
		Total:      total,
		TotalPages: page.TotalPages(total),
		Page:       page.Number,
	}
}
