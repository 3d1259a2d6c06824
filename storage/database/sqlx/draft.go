package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/rotaract/reportdesk/core/draft"
	"github.com/rotaract/reportdesk/core/report"
)

type DraftRepository[T report.Record, P report.RecordPtr[T]] struct {
	table[T, P]
}

var (
	_ draft.Repository[draft.MeetingDraft] = (*DraftRepository[draft.MeetingDraft, *draft.MeetingDraft])(nil)
	_ draft.Repository[draft.ProjectDraft] = (*DraftRepository[draft.ProjectDraft, *draft.ProjectDraft])(nil)
)

func NewDraftRepository[T report.Record, P report.RecordPtr[T]](exec Executor, name string, kind report.Kind) *DraftRepository[T, P] {
	return &DraftRepository[T, P]{table: table[T, P]{exec: exec, name: name, kind: kind}}
}

func ownedBy(owner, draftID string) sq.Eq {
	return sq.Eq{"identifier": draftID, "submitted_by": owner}
}

func (repo *DraftRepository[T, P]) Create(ctx context.Context, d T) (T, error) {
	return repo.insert(ctx, d)
}

func (repo *DraftRepository[T, P]) Update(ctx context.Context, d T) (T, error) {
	row, err := repo.toRow(d)
	if err != nil {
		return d, err
	}
	query, args, err := psql.Update(repo.name).
		Set("label", row.Label).
		Set("payload", row.Payload).
		Set("updated_at", row.UpdatedAt).
		Where(ownedBy(row.SubmittedBy, row.Identifier)).
		Suffix("RETURNING id, identifier, label, submitted_by, payload, created_at, updated_at").
		ToSql()
	if err != nil {
		return d, errors.Wrap(err, "building query")
	}

	var updated recordRow
	if err = sqlx.GetContext(ctx, repo.exec, &updated, query, args...); err != nil {
		return d, trapNoRowsErr(err, repo.notFound(), "updating "+repo.kind.Resource)
	}
	return repo.fromRow(updated)
}

func (repo *DraftRepository[T, P]) Get(ctx context.Context, draftID string) (T, error) {
	return repo.get(ctx, sq.Eq{"identifier": draftID})
}

func (repo *DraftRepository[T, P]) ListByOwner(ctx context.Context, owner string) ([]T, error) {
	return repo.selectRows(ctx, psql.Select(recordColumns...).From(repo.name).
		Where(sq.Eq{"submitted_by": owner}).
		OrderBy("created_at DESC"))
}

func (repo *DraftRepository[T, P]) Delete(ctx context.Context, owner, draftID string) error {
	return repo.deleteOne(ctx, ownedBy(owner, draftID))
}

func (repo *DraftRepository[T, P]) DeleteExpired(ctx context.Context, owner string, cutoff time.Time) (int64, error) {
	where := sq.And{sq.Lt{"created_at": cutoff.UTC()}}
	if owner != "" {
		where = append(where, sq.Eq{"submitted_by": owner})
	}
	query, args, err := psql.Delete(repo.name).Where(where).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := repo.exec.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrapf(err, "deleting expired %ss", repo.kind.Resource)
	}
	return res.RowsAffected()
}
