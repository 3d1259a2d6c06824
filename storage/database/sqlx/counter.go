package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/rotaract/reportdesk/core/sequence"
)

type CounterStore struct {
	exec Executor
}

var _ sequence.CounterStore = (*CounterStore)(nil)

func NewCounterStore(exec Executor) *CounterStore {
	return &CounterStore{exec: exec}
}

func (s *CounterStore) SeedCounter(ctx context.Context, key string, seq int) error {
	query, args, err := psql.Insert(SequenceCountersTable).
		Columns("key", "seq", "updated_at").
		Values(key, seq, time.Now().UTC()).
		Suffix("ON CONFLICT (key) DO NOTHING").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	_, err = s.exec.ExecContext(ctx, query, args...)
	return errors.Wrapf(err, "seeding counter %s", key)
}

// AdvanceCounter increments seq modulo limit in a single UPDATE, so the row lock serialises callers.
func (s *CounterStore) AdvanceCounter(ctx context.Context, key string, limit int) (int, error) {
	next := sq.Expr("seq + 1")
	if limit > 0 {
		next = sq.Expr("(seq + 1) % ?", limit)
	}
	query, args, err := psql.Update(SequenceCountersTable).
		Set("seq", next).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"key": key}).
		Suffix("RETURNING seq").
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	var seq int
	if err = sqlx.GetContext(ctx, s.exec, &seq, query, args...); err != nil {
		return 0, trapNoRowsErr(err, sequence.ErrCounterNotFound, "advancing counter "+key)
	}
	return seq, nil
}

func (s *CounterStore) ResetCounters(ctx context.Context) error {
	query, args, err := psql.Delete(SequenceCountersTable).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	_, err = s.exec.ExecContext(ctx, query, args...)
	return errors.Wrap(err, "resetting counters")
}
