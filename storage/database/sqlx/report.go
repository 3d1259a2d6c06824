package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/rotaract/reportdesk/core/report"
)

type ReportRepository[T report.Record, P report.RecordPtr[T]] struct {
	table[T, P]
}

var (
	_ report.Repository[report.MeetingReport] = (*ReportRepository[report.MeetingReport, *report.MeetingReport])(nil)
	_ report.Repository[report.ProjectReport] = (*ReportRepository[report.ProjectReport, *report.ProjectReport])(nil)
	_ report.Repository[report.MouRecord]     = (*ReportRepository[report.MouRecord, *report.MouRecord])(nil)
)

func NewReportRepository[T report.Record, P report.RecordPtr[T]](exec Executor, name string, kind report.Kind) *ReportRepository[T, P] {
	return &ReportRepository[T, P]{table: table[T, P]{exec: exec, name: name, kind: kind}}
}

func (repo *ReportRepository[T, P]) Create(ctx context.Context, rec T) (T, error) {
	return repo.insert(ctx, rec)
}

func (repo *ReportRepository[T, P]) Query(ctx context.Context, filter report.Filter) ([]T, int64, error) {
	where := sq.And{}
	if filter.SubmittedBy != "" {
		where = append(where, sq.Eq{"submitted_by": filter.SubmittedBy})
	}
	if filter.Search != "" {
		where = append(where, searchClause(repo.kind, filter.Search))
	}

	query, args, err := psql.Select("COUNT(*)").From(repo.name).Where(where).ToSql()
	if err != nil {
		return nil, 0, errors.Wrap(err, "building query")
	}
	var total int64
	if err = sqlx.GetContext(ctx, repo.exec, &total, query, args...); err != nil {
		return nil, 0, errors.Wrapf(err, "counting %ss", repo.kind.Resource)
	}

	qb := psql.Select(recordColumns...).From(repo.name).
		Where(where).
		OrderBy("created_at DESC").
		Offset(uint64(filter.Page.Skip())).
		Limit(uint64(filter.Page.Limit))
	items, err := repo.selectRows(ctx, qb)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (repo *ReportRepository[T, P]) Get(ctx context.Context, identifier string) (T, error) {
	return repo.get(ctx, sq.Eq{"identifier": identifier})
}

func (repo *ReportRepository[T, P]) Delete(ctx context.Context, identifier string) error {
	return repo.deleteOne(ctx, sq.Eq{"identifier": identifier})
}
