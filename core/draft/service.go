package draft

import (
	"context"
	"fmt"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/rotaract/reportdesk/core"
	"github.com/rotaract/reportdesk/core/report"
	"github.com/rotaract/reportdesk/core/sequence"
	"github.com/rotaract/reportdesk/core/user"
)

// DefaultTTL is how long a draft lives before the sweep may delete it.
const DefaultTTL = 7 * 24 * time.Hour

type (
	// Repository persists one draft type.
	// Update, Get and Delete return a core.NotFoundError when no draft matches.
	Repository[T report.Record] interface {
		sequence.Finder
		Create(ctx context.Context, d T) (T, error)
		// Update replaces the form fields of the draft matching d's identifier and owner.
		// Its ID and CreatedAt are kept.
		Update(ctx context.Context, d T) (T, error)
		Get(ctx context.Context, draftID string) (T, error)
		ListByOwner(ctx context.Context, owner string) ([]T, error)
		Delete(ctx context.Context, owner, draftID string) error
		// DeleteExpired removes drafts created before cutoff. An empty owner matches everyone.
		DeleteExpired(ctx context.Context, owner string, cutoff time.Time) (int64, error)
	}

	Service struct {
		meetings   Repository[MeetingDraft]
		projects   Repository[ProjectDraft]
		ids        sequence.Allocator
		validate   *validator.Validate
		translator ut.Translator
		logger     core.Logger
		ttl        time.Duration
		now        func() time.Time
	}
)

func NewService(
	meetings Repository[MeetingDraft],
	projects Repository[ProjectDraft],
	ids sequence.Allocator,
	validate *validator.Validate,
	translator ut.Translator,
	logger core.Logger,
	conf *core.Config,
) *Service {
	ttl := conf.Reports.DraftTTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		meetings:   meetings,
		projects:   projects,
		ids:        ids,
		validate:   validate,
		translator: translator,
		logger:     logger,
		ttl:        ttl,
		now:        time.Now,
	}
}

// SetClock replaces the wall clock. For tests.
func (svc *Service) SetClock(now func() time.Time) {
	svc.now = now
}

func (svc *Service) validateStruct(s interface{}) error {
	if err := svc.validate.Struct(s); err != nil {
		return core.TranslateValidationErrors(err, svc.translator)
	}
	return nil
}

// ExpiresAt is the time after which a draft created at createdAt may be swept.
func (svc *Service) ExpiresAt(createdAt time.Time) time.Time {
	return createdAt.Add(svc.ttl)
}

func sweep[T report.Record](ctx context.Context, svc *Service, repo Repository[T], kind report.Kind, owner string) (int64, error) {
	cutoff := svc.now().UTC().Add(-svc.ttl)
	n, err := repo.DeleteExpired(ctx, owner, cutoff)
	if err != nil {
		return 0, errors.Wrapf(err, "sweeping expired %ss", kind.Resource)
	}
	if n > 0 && svc.logger != nil {
		svc.logger.Info(fmt.Sprintf("swept %d expired %s(s)", n, kind.Resource), map[string]interface{}{"owner": owner})
	}
	return n, nil
}

// save sweeps the actor's expired drafts then updates draftID, or allocates a new draft when draftID is empty.
func save[T report.Record](
	ctx context.Context,
	svc *Service,
	repo Repository[T],
	kind report.Kind,
	actor user.User,
	draftID string,
	build func(meta report.Meta, draftID string) T,
) (T, bool, error) {
	var zero T
	if _, err := sweep(ctx, svc, repo, kind, actor.ID); err != nil {
		return zero, false, err
	}

	now := svc.now().UTC()
	meta := report.Meta{SubmittedBy: actor.ID, CreatedAt: now, UpdatedAt: now}

	if draftID != "" {
		d, err := repo.Update(ctx, build(meta, draftID))
		if err != nil {
			return zero, false, err
		}
		return d, false, nil
	}

	id, err := svc.ids.Allocate(ctx, kind.Category)
	if err != nil {
		return zero, false, errors.Wrapf(err, "allocating %s id", kind.Resource)
	}
	meta.ID = uuid.New().String()
	d, err := repo.Create(ctx, build(meta, id))
	if err != nil {
		return zero, false, errors.Wrapf(err, "creating %s", kind.Resource)
	}
	return d, true, nil
}

func listing[T report.Record](ctx context.Context, svc *Service, repo Repository[T], owner string) (Listing[T], error) {
	drafts, err := repo.ListByOwner(ctx, owner)
	if err != nil {
		return Listing[T]{}, err
	}
	if drafts == nil {
		drafts = []T{}
	}
	expiries := make([]time.Time, 0, len(drafts))
	for _, d := range drafts {
		expiries = append(expiries, svc.ExpiresAt(d.Created()))
	}
	return Listing[T]{Drafts: drafts, ExpiryDates: expiries}, nil
}

func remove[T report.Record](ctx context.Context, repo Repository[T], actor user.User, draftID string) error {
	return repo.Delete(ctx, actor.ID, core.CleanString(draftID))
}

// Meeting drafts

// SaveMeeting creates or updates a meeting draft. The bool reports whether a new draft was created.
func (svc *Service) SaveMeeting(ctx context.Context, actor user.User, sd SaveMeetingDraft) (MeetingDraft, bool, error) {
	sd.Clean()
	sd.DraftID = cleanDraftID(sd.DraftID)
	if err := svc.validateStruct(sd); err != nil {
		return MeetingDraft{}, false, err
	}
	return save(ctx, svc, svc.meetings, MeetingDrafts, actor, sd.DraftID, func(meta report.Meta, id string) MeetingDraft {
		return MeetingDraft{Meta: meta, DraftID: id, MeetingInput: sd.MeetingInput}
	})
}

func (svc *Service) ListMeetings(ctx context.Context, actor user.User) (Listing[MeetingDraft], error) {
	l, err := listing(ctx, svc, svc.meetings, actor.ID)
	return l, errors.Wrap(err, "listing meeting drafts")
}

func (svc *Service) DeleteMeeting(ctx context.Context, actor user.User, draftID string) error {
	return remove(ctx, svc.meetings, actor, draftID)
}

// Project drafts

// SaveProject creates or updates a project draft. The bool reports whether a new draft was created.
func (svc *Service) SaveProject(ctx context.Context, actor user.User, sd SaveProjectDraft) (ProjectDraft, bool, error) {
	sd.Clean()
	sd.DraftID = cleanDraftID(sd.DraftID)
	if err := svc.validateStruct(sd); err != nil {
		return ProjectDraft{}, false, err
	}
	return save(ctx, svc, svc.projects, ProjectDrafts, actor, sd.DraftID, func(meta report.Meta, id string) ProjectDraft {
		return ProjectDraft{Meta: meta, DraftID: id, ProjectInput: sd.ProjectInput}
	})
}

func (svc *Service) ListProjects(ctx context.Context, actor user.User) (Listing[ProjectDraft], error) {
	l, err := listing(ctx, svc, svc.projects, actor.ID)
	return l, errors.Wrap(err, "listing project drafts")
}

func (svc *Service) DeleteProject(ctx context.Context, actor user.User, draftID string) error {
	return remove(ctx, svc.projects, actor, draftID)
}

// SweepAll deletes the expired drafts of every user and category.
func (svc *Service) SweepAll(ctx context.Context) (int64, error) {
	meetings, err := sweep(ctx, svc, svc.meetings, MeetingDrafts, "")
	if err != nil {
		return 0, err
	}
	projects, err := sweep(ctx, svc, svc.projects, ProjectDrafts, "")
	if err != nil {
		return meetings, err
	}
	return meetings + projects, nil
}
