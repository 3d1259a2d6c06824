package inmem

import (
	"context"

	"github.com/rotaract/reportdesk/core/report"
)

type ReportRepository[T report.Record] struct {
	collection[T]
}

var (
	_ report.Repository[report.MeetingReport] = (*ReportRepository[report.MeetingReport])(nil)
	_ report.Repository[report.MouRecord]     = (*ReportRepository[report.MouRecord])(nil)
)

func NewReportRepository[T report.Record](kind report.Kind) *ReportRepository[T] {
	return &ReportRepository[T]{collection: collection[T]{kind: kind}}
}

func (repo *ReportRepository[T]) LastIdentifier(_ context.Context, scope string) (string, error) {
	repo.mutex.RLock()
	defer repo.mutex.RUnlock()
	return repo.lastIdentifier(scope), nil
}

func (repo *ReportRepository[T]) Create(_ context.Context, rec T) (T, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	repo.rows = append(repo.rows, rec)
	return rec, nil
}

func (repo *ReportRepository[T]) Query(_ context.Context, filter report.Filter) ([]T, int64, error) {
	repo.mutex.RLock()
	defer repo.mutex.RUnlock()

	var found []T
	for _, r := range repo.rows {
		if filter.SubmittedBy != "" && r.Owner() != filter.SubmittedBy {
			continue
		}
		if !matches(repo.kind, r, filter.Search) {
			continue
		}
		found = append(found, r)
	}
	newestFirst(found)
	return window(found, filter.Page), int64(len(found)), nil
}

func (repo *ReportRepository[T]) Get(_ context.Context, identifier string) (T, error) {
	repo.mutex.RLock()
	defer repo.mutex.RUnlock()

	if i := repo.index(func(r T) bool { return r.Identifier() == identifier }); i >= 0 {
		return repo.rows[i], nil
	}
	var zero T
	return zero, repo.notFound()
}

func (repo *ReportRepository[T]) Delete(_ context.Context, identifier string) error {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()

	i := repo.index(func(r T) bool { return r.Identifier() == identifier })
	if i < 0 {
		return repo.notFound()
	}
	repo.removeAt(i)
	return nil
}
