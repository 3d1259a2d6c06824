package report

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

var errInvalidDate = errors.New("invalid date")

// dateLayouts are tried in order. Layouts without an offset are read in the reporting timezone.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// ParseDate parses the date formats accepted from report forms.
// An empty string yields the zero time and no error.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errInvalidDate
}
