// Package sequence allocates the human readable identifiers of reports and drafts.
//
// An identifier is PREFIX[YYYY]NNNN: a category prefix, the calendar year for
// year scoped categories and a 4 digit zero padded counter. The counter wraps
// around modulo the category limit.
package sequence

import (
	"fmt"
	"strconv"
	"time"
)

const suffixLen = 4

type Category string

const (
	MeetingReport Category = "meeting_report"
	ProjectReport Category = "project_report"
	MouRecord     Category = "mou_record"
	MeetingDraft  Category = "meeting_draft"
	ProjectDraft  Category = "project_draft"
)

// Scheme describes how identifiers of a Category are built.
type Scheme struct {
	Prefix     string
	YearScoped bool
	Limit      int
}

var schemes = map[Category]Scheme{
	MeetingReport: {Prefix: "RCM", YearScoped: true, Limit: 1000},
	ProjectReport: {Prefix: "PROJ", Limit: 10000},
	MouRecord:     {Prefix: "MOU", YearScoped: true, Limit: 1000},
	MeetingDraft:  {Prefix: "DRAFTM", Limit: 1000},
	ProjectDraft:  {Prefix: "DRAFT", Limit: 1000},
}

// Categories lists every known Category.
func Categories() []Category {
	return []Category{MeetingReport, ProjectReport, MouRecord, MeetingDraft, ProjectDraft}
}

// SchemeOf returns the Scheme of cat.
func SchemeOf(cat Category) (Scheme, error) {
	s, ok := schemes[cat]
	if !ok {
		return Scheme{}, fmt.Errorf("unknown sequence category %q", cat)
	}
	return s, nil
}

// Scope is the identifier prefix shared by the records competing for the same counter.
func (s Scheme) Scope(now time.Time) string {
	if s.YearScoped {
		return s.Prefix + strconv.Itoa(now.Year())
	}
	return s.Prefix
}

// Seed is the virtual identifier that precedes the first one of scope.
func Seed(scope string) string {
	return Format(scope, 0)
}

// Format builds the identifier for seq in scope.
func Format(scope string, seq int) string {
	return fmt.Sprintf("%s%0*d", scope, suffixLen, seq)
}

// Suffix parses the last 4 characters of id as a base 10 integer.
// Malformed suffixes count as 0.
func Suffix(id string) int {
	if len(id) < suffixLen {
		return 0
	}
	n, err := strconv.Atoi(id[len(id)-suffixLen:])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Advance returns the counter value following seq, wrapped around limit.
func Advance(seq, limit int) int {
	if limit <= 0 {
		return seq + 1
	}
	return (seq + 1) % limit
}

// Next computes the identifier that follows last in scope.
// An empty last means the scope holds no record yet.
func Next(scope, last string, limit int) string {
	if last == "" {
		last = Seed(scope)
	}
	return Format(scope, Advance(Suffix(last), limit))
}
