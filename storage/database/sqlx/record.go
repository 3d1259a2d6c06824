package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/rotaract/reportdesk/core"
	"github.com/rotaract/reportdesk/core/report"
)

var recordColumns = []string{"id", "identifier", "label", "submitted_by", "payload", "created_at", "updated_at"}

// recordRow is the shared layout of the report and draft tables. The form fields live in payload.
type recordRow struct {
	ID          string         `db:"id"`
	Identifier  string         `db:"identifier"`
	Label       string         `db:"label"`
	SubmittedBy string         `db:"submitted_by"`
	Payload     types.JSONText `db:"payload"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// table holds the queries shared by report and draft repositories.
type table[T report.Record, P report.RecordPtr[T]] struct {
	exec Executor
	name string
	kind report.Kind
}

func (t table[T, P]) notFound() error {
	return core.NewNotFoundError(t.kind.Resource)
}

func (t table[T, P]) toRow(rec T) (recordRow, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return recordRow{}, errors.Wrapf(err, "encoding %s", t.kind.Resource)
	}
	meta := rec.Metadata()
	return recordRow{
		ID:          meta.ID,
		Identifier:  rec.Identifier(),
		Label:       rec.Label(),
		SubmittedBy: meta.SubmittedBy,
		Payload:     payload,
		CreatedAt:   meta.CreatedAt.UTC(),
		UpdatedAt:   meta.UpdatedAt.UTC(),
	}, nil
}

// fromRow decodes the payload and restores the server-set columns over it.
func (t table[T, P]) fromRow(row recordRow) (T, error) {
	var rec T
	if err := json.Unmarshal(row.Payload, &rec); err != nil {
		return rec, errors.Wrapf(err, "decoding %s", t.kind.Resource)
	}
	P(&rec).SetMeta(report.Meta{
		ID:          row.ID,
		SubmittedBy: row.SubmittedBy,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	})
	return rec, nil
}

func (t table[T, P]) fromRows(rows []recordRow) ([]T, error) {
	items := make([]T, 0, len(rows))
	for _, row := range rows {
		rec, err := t.fromRow(row)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, nil
}

func (t table[T, P]) LastIdentifier(ctx context.Context, scope string) (string, error) {
	query, args, err := psql.Select("identifier").From(t.name).
		Where(sq.Like{"identifier": escapeLike(scope) + "%"}).
		OrderBy("identifier DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return "", errors.Wrap(err, "building query")
	}
	var last string
	if err = sqlx.GetContext(ctx, t.exec, &last, query, args...); err != nil && err != sql.ErrNoRows {
		return "", errors.Wrapf(err, "finding last %s identifier", t.kind.Resource)
	}
	return last, nil
}

func (t table[T, P]) insert(ctx context.Context, rec T) (T, error) {
	row, err := t.toRow(rec)
	if err != nil {
		return rec, err
	}
	query, args, err := psql.Insert(t.name).Columns(recordColumns...).
		Values(row.ID, row.Identifier, row.Label, row.SubmittedBy, row.Payload, row.CreatedAt, row.UpdatedAt).
		ToSql()
	if err != nil {
		return rec, errors.Wrap(err, "building query")
	}
	if _, err = t.exec.ExecContext(ctx, query, args...); err != nil {
		return rec, errors.Wrapf(err, "inserting %s", t.kind.Resource)
	}
	return rec, nil
}

func (t table[T, P]) getRow(ctx context.Context, where sq.Sqlizer) (recordRow, error) {
	query, args, err := psql.Select(recordColumns...).From(t.name).
		Where(where).
		OrderBy("created_at").
		Limit(1).
		ToSql()
	if err != nil {
		return recordRow{}, errors.Wrap(err, "building query")
	}
	var row recordRow
	if err = sqlx.GetContext(ctx, t.exec, &row, query, args...); err != nil {
		return recordRow{}, trapNoRowsErr(err, t.notFound(), "finding "+t.kind.Resource)
	}
	return row, nil
}

func (t table[T, P]) get(ctx context.Context, where sq.Sqlizer) (T, error) {
	row, err := t.getRow(ctx, where)
	if err != nil {
		var zero T
		return zero, err
	}
	return t.fromRow(row)
}

func (t table[T, P]) selectRows(ctx context.Context, qb sq.SelectBuilder) ([]T, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []recordRow
	if err = sqlx.SelectContext(ctx, t.exec, &rows, query, args...); err != nil {
		return nil, errors.Wrapf(err, "querying %ss", t.kind.Resource)
	}
	return t.fromRows(rows)
}

// deleteOne removes a single row matching where, the oldest one when identifiers collide.
func (t table[T, P]) deleteOne(ctx context.Context, where sq.Sqlizer) error {
	row, err := t.getRow(ctx, where)
	if err != nil {
		return err
	}
	query, args, err := psql.Delete(t.name).Where(sq.Eq{"id": row.ID}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	res, err := t.exec.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(err, "deleting %s", t.kind.Resource)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return t.notFound()
	}
	return nil
}

// searchClause matches search case-insensitively inside the label, and the identifier when the Kind allows it.
func searchClause(kind report.Kind, search string) sq.Sqlizer {
	pattern := "%" + escapeLike(search) + "%"
	or := sq.Or{sq.ILike{"label": pattern}}
	if kind.SearchID {
		or = append(or, sq.ILike{"identifier": pattern})
	}
	return or
}
