package inmem

import (
	"sort"
	"strings"
	"sync"

	"github.com/rotaract/reportdesk/core"
	"github.com/rotaract/reportdesk/core/report"
)

// collection is an unordered table of records of one Kind.
type collection[T report.Record] struct {
	kind  report.Kind
	mutex sync.RWMutex
	rows  []T
}

func (c *collection[T]) notFound() error {
	return core.NewNotFoundError(c.kind.Resource)
}

// lastIdentifier must be called with the mutex held.
func (c *collection[T]) lastIdentifier(scope string) string {
	var last string
	for _, r := range c.rows {
		if id := r.Identifier(); strings.HasPrefix(id, scope) && id > last {
			last = id
		}
	}
	return last
}

func (c *collection[T]) index(match func(r T) bool) int {
	for i, r := range c.rows {
		if match(r) {
			return i
		}
	}
	return -1
}

func (c *collection[T]) removeAt(i int) {
	c.rows = append(c.rows[:i], c.rows[i+1:]...)
}

// matches reports whether r satisfies the search text of kind.
func matches(kind report.Kind, r report.Record, search string) bool {
	if search == "" {
		return true
	}
	search = strings.ToLower(search)
	if strings.Contains(strings.ToLower(r.Label()), search) {
		return true
	}
	return kind.SearchID && strings.Contains(strings.ToLower(r.Identifier()), search)
}

// newestFirst sorts rows by creation time, newest first.
func newestFirst[T report.Record](rows []T) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Created().After(rows[j].Created()) })
}

// window returns the items of rows covered by page.
func window[T any](rows []T, page core.Page) []T {
	start := page.Skip()
	if start >= int64(len(rows)) {
		return []T{}
	}
	end := start + page.Limit
	if end > int64(len(rows)) {
		end = int64(len(rows))
	}
	return rows[start:end]
}
