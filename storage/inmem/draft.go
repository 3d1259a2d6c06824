package inmem

import (
	"context"
	"time"

	"github.com/rotaract/reportdesk/core/draft"
	"github.com/rotaract/reportdesk/core/report"
)

type DraftRepository[T report.Record, P report.RecordPtr[T]] struct {
	collection[T]
}

var (
	_ draft.Repository[draft.MeetingDraft] = (*DraftRepository[draft.MeetingDraft, *draft.MeetingDraft])(nil)
	_ draft.Repository[draft.ProjectDraft] = (*DraftRepository[draft.ProjectDraft, *draft.ProjectDraft])(nil)
)

func NewDraftRepository[T report.Record, P report.RecordPtr[T]](kind report.Kind) *DraftRepository[T, P] {
	return &DraftRepository[T, P]{collection: collection[T]{kind: kind}}
}

func (repo *DraftRepository[T, P]) LastIdentifier(_ context.Context, scope string) (string, error) {
	repo.mutex.RLock()
	defer repo.mutex.RUnlock()
	return repo.lastIdentifier(scope), nil
}

func (repo *DraftRepository[T, P]) Create(_ context.Context, d T) (T, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	repo.rows = append(repo.rows, d)
	return d, nil
}

func (repo *DraftRepository[T, P]) Update(_ context.Context, d T) (T, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()

	i := repo.index(func(r T) bool { return r.Identifier() == d.Identifier() && r.Owner() == d.Owner() })
	if i < 0 {
		var zero T
		return zero, repo.notFound()
	}
	meta := repo.rows[i].Metadata()
	meta.UpdatedAt = d.Metadata().UpdatedAt
	P(&d).SetMeta(meta)
	repo.rows[i] = d
	return d, nil
}

func (repo *DraftRepository[T, P]) Get(_ context.Context, draftID string) (T, error) {
	repo.mutex.RLock()
	defer repo.mutex.RUnlock()

	if i := repo.index(func(r T) bool { return r.Identifier() == draftID }); i >= 0 {
		return repo.rows[i], nil
	}
	var zero T
	return zero, repo.notFound()
}

func (repo *DraftRepository[T, P]) ListByOwner(_ context.Context, owner string) ([]T, error) {
	repo.mutex.RLock()
	defer repo.mutex.RUnlock()

	drafts := make([]T, 0)
	for _, r := range repo.rows {
		if r.Owner() == owner {
			drafts = append(drafts, r)
		}
	}
	newestFirst(drafts)
	return drafts, nil
}

func (repo *DraftRepository[T, P]) Delete(_ context.Context, owner, draftID string) error {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()

	i := repo.index(func(r T) bool { return r.Identifier() == draftID && r.Owner() == owner })
	if i < 0 {
		return repo.notFound()
	}
	repo.removeAt(i)
	return nil
}

func (repo *DraftRepository[T, P]) DeleteExpired(_ context.Context, owner string, cutoff time.Time) (int64, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()

	kept := repo.rows[:0]
	var n int64
	for _, r := range repo.rows {
		if (owner == "" || r.Owner() == owner) && r.Created().Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	repo.rows = kept
	return n, nil
}
