package sqlxrepos

import (
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/rotaract/reportdesk/core"
)

// Executor is satisfied by *sqlx.DB and *sqlx.Tx.
type Executor = sqlx.ExtContext

// Table names
const (
	UsersTable            = "users"
	MeetingReportsTable   = "meeting_reports"
	ProjectReportsTable   = "project_reports"
	MouReportsTable       = "mou_reports"
	MeetingDraftsTable    = "meeting_drafts"
	ProjectDraftsTable    = "project_drafts"
	SequenceCountersTable = "sequence_counters"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike quotes the LIKE wildcards of s.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var errNoRows = sql.ErrNoRows

// trapNoRowsErr maps the "no rows" err to notFound and a closed pool to a shutdown error.
func trapNoRowsErr(err, notFound error, msg string) error {
	switch {
	case errors.Is(err, errNoRows):
		return notFound
	case errors.Is(err, sql.ErrConnDone):
		return core.NewShutdownError(msg + ": database connection closed")
	}
	return errors.Wrap(err, msg)
}
