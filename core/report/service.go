package report

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/rotaract/reportdesk/core"
	"github.com/rotaract/reportdesk/core/sequence"
	"github.com/rotaract/reportdesk/core/user"
)

// Attachment folders on the file storage
const (
	ProjectFolder = "project_reports"
	MouFolder     = "mou_reports"
)

var ErrAttachmentNotDeleted = errors.New("failed to delete associated files")

type (
	// Repository persists one record type. Get and Delete return a core.NotFoundError for unknown identifiers.
	Repository[T Record] interface {
		sequence.Finder
		Create(ctx context.Context, rec T) (T, error)
		Query(ctx context.Context, filter Filter) ([]T, int64, error)
		Get(ctx context.Context, identifier string) (T, error)
		Delete(ctx context.Context, identifier string) error
	}

	Service struct {
		meetings    Repository[MeetingReport]
		projects    Repository[ProjectReport]
		mous        Repository[MouRecord]
		ids         sequence.Allocator
		files       core.FileStorage
		validate    *validator.Validate
		translator  ut.Translator
		loc         *time.Location
		strictDates bool
		now         func() time.Time
	}
)

func NewService(
	meetings Repository[MeetingReport],
	projects Repository[ProjectReport],
	mous Repository[MouRecord],
	ids sequence.Allocator,
	files core.FileStorage,
	validate *validator.Validate,
	translator ut.Translator,
	conf *core.Config,
) *Service {
	return &Service{
		meetings:    meetings,
		projects:    projects,
		mous:        mous,
		ids:         ids,
		files:       files,
		validate:    validate,
		translator:  translator,
		loc:         conf.Reports.Location(),
		strictDates: conf.Reports.StrictDates,
		now:         time.Now,
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

// classify parses endDate and computes the Status of a submission made now.
// Unparseable dates are late, or rejected in strict mode.
func (svc *Service) classify(isDraft Flag, endDate string, now time.Time) (Status, error) {
	end, err := ParseDate(endDate, svc.loc)
	if err != nil && svc.strictDates {
		return "", core.NewValidationError(err, core.FieldError{Field: "endDate", Error: err.Error()})
	}
	return Classify(bool(isDraft), end, now, svc.loc), nil
}

func (svc *Service) newMeta(actor user.User, now time.Time) Meta {
	return Meta{
		ID:          uuid.New().String(),
		SubmittedBy: actor.ID,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
}

func (svc *Service) upload(ctx context.Context, folder string, file *core.Attachment) (string, error) {
	if file == nil || svc.files == nil {
		return "", nil
	}
	url, err := svc.files.Upload(ctx, folder, *file)
	if err != nil {
		return "", errors.Wrapf(err, "uploading %s", file.Filename)
	}
	return url, nil
}

// removeAttachment deletes url from the file storage. A file the host did not delete is a ValidationError.
func (svc *Service) removeAttachment(ctx context.Context, url string) error {
	if url == "" || svc.files == nil {
		return nil
	}
	deleted, err := svc.files.Delete(ctx, url)
	if err != nil {
		return errors.Wrap(err, "deleting attachment")
	}
	if !deleted {
		return core.NewValidationError(ErrAttachmentNotDeleted)
	}
	return nil
}

// discard deletes an upload whose record was not stored and returns cause.
func (svc *Service) discard(ctx context.Context, url string, cause error) error {
	if err := svc.removeAttachment(context.WithoutCancel(ctx), url); err != nil {
		return errors.Wrapf(cause, "orphaned upload %s", url)
	}
	return cause
}

func list[T Record](ctx context.Context, repo Repository[T], actor user.User, q ListQuery) (core.PageResult[T], error) {
	filter := q.filter(actor.ID)
	items, total, err := repo.Query(ctx, filter)
	if err != nil {
		return core.PageResult[T]{}, err
	}
	return core.NewPageResult(items, total, filter.Page), nil
}

// getOwned fetches identifier and checks that actor may manage it.
func getOwned[T Record](ctx context.Context, repo Repository[T], actor user.User, identifier string) (T, error) {
	rec, err := repo.Get(ctx, core.CleanString(identifier))
	if err != nil {
		return rec, err
	}
	if !actor.CanManage(rec.Owner()) {
		return rec, core.ErrPermissionDenied
	}
	return rec, nil
}

// Meeting reports

func (svc *Service) CreateMeeting(ctx context.Context, actor user.User, nm NewMeetingReport) (MeetingReport, error) {
	nm.Clean()
	if err := svc.validateStruct(nm); err != nil {
		return MeetingReport{}, err
	}

	now := svc.now()
	status, err := svc.classify(nm.IsDraft, nm.EndDate, now)
	if err != nil {
		return MeetingReport{}, err
	}
	id, err := svc.ids.Allocate(ctx, sequence.MeetingReport)
	if err != nil {
		return MeetingReport{}, errors.Wrap(err, "allocating meeting id")
	}

	rep := MeetingReport{
		Meta:         svc.newMeta(actor, now),
		MeetingID:    id,
		MeetingInput: nm.MeetingInput,
		Status:       status,
	}
	rep, err = svc.meetings.Create(ctx, rep)
	if err != nil {
		return MeetingReport{}, errors.Wrap(err, "creating meeting report")
	}
	return rep, nil
}

func (svc *Service) ListMeetings(ctx context.Context, actor user.User, q ListQuery) (core.PageResult[MeetingReport], error) {
	res, err := list(ctx, svc.meetings, actor, q)
	return res, errors.Wrap(err, "querying meeting reports")
}

func (svc *Service) DeleteMeeting(ctx context.Context, actor user.User, meetingID string) error {
	rep, err := getOwned(ctx, svc.meetings, actor, meetingID)
	if err != nil {
		return err
	}
	return svc.meetings.Delete(ctx, rep.MeetingID)
}

// Project reports

// CreateProject validates np, uploads the optional finance sheet and stores the report.
func (svc *Service) CreateProject(ctx context.Context, actor user.User, np NewProjectReport, financeSheet *core.Attachment) (ProjectReport, error) {
	np.Clean()
	if err := svc.validateStruct(np); err != nil {
		return ProjectReport{}, err
	}

	now := svc.now()
	status, err := svc.classify(np.IsDraft, np.EndDate, now)
	if err != nil {
		return ProjectReport{}, err
	}
	sheetURL, err := svc.upload(ctx, ProjectFolder, financeSheet)
	if err != nil {
		return ProjectReport{}, err
	}
	id, err := svc.ids.Allocate(ctx, sequence.ProjectReport)
	if err != nil {
		return ProjectReport{}, svc.discard(ctx, sheetURL, errors.Wrap(err, "allocating project id"))
	}

	rep := ProjectReport{
		Meta:              svc.newMeta(actor, now),
		ProjectID:         id,
		ProjectInput:      np.ProjectInput,
		FinanceExcelSheet: sheetURL,
		Status:            status,
	}
	rep, err = svc.projects.Create(ctx, rep)
	if err != nil {
		return ProjectReport{}, svc.discard(ctx, sheetURL, errors.Wrap(err, "creating project report"))
	}
	return rep, nil
}

func (svc *Service) ListProjects(ctx context.Context, actor user.User, q ListQuery) (core.PageResult[ProjectReport], error) {
	res, err := list(ctx, svc.projects, actor, q)
	return res, errors.Wrap(err, "querying project reports")
}

// DeleteProject removes the finance sheet first and keeps the report when that fails.
func (svc *Service) DeleteProject(ctx context.Context, actor user.User, projectID string) error {
	rep, err := getOwned(ctx, svc.projects, actor, projectID)
	if err != nil {
		return err
	}
	if err := svc.removeAttachment(ctx, rep.FinanceExcelSheet); err != nil {
		return err
	}
	return svc.projects.Delete(ctx, rep.ProjectID)
}

// MOU records

func (svc *Service) CreateMou(ctx context.Context, actor user.User, in MouInput, pdf *core.Attachment) (MouRecord, error) {
	in.Clean()
	if err := svc.validateStruct(in); err != nil {
		return MouRecord{}, err
	}
	if svc.strictDates {
		if _, err := ParseDate(in.DateOfSigning, svc.loc); err != nil {
			return MouRecord{}, core.NewValidationError(err, core.FieldError{Field: "dateOfSigning", Error: err.Error()})
		}
	}

	now := svc.now()
	pdfURL, err := svc.upload(ctx, MouFolder, pdf)
	if err != nil {
		return MouRecord{}, err
	}
	id, err := svc.ids.Allocate(ctx, sequence.MouRecord)
	if err != nil {
		return MouRecord{}, svc.discard(ctx, pdfURL, errors.Wrap(err, "allocating mou id"))
	}

	rec := MouRecord{
		Meta:         svc.newMeta(actor, now),
		MouID:        id,
		MouInput:     in,
		MouPdfUpload: pdfURL,
	}
	rec, err = svc.mous.Create(ctx, rec)
	if err != nil {
		return MouRecord{}, svc.discard(ctx, pdfURL, errors.Wrap(err, "creating mou"))
	}
	return rec, nil
}

func (svc *Service) ListMous(ctx context.Context, actor user.User, q ListQuery) (core.PageResult[MouRecord], error) {
	res, err := list(ctx, svc.mous, actor, q)
	return res, errors.Wrap(err, "querying mous")
}

// DeleteMou removes the signed pdf first and keeps the record when that fails.
func (svc *Service) DeleteMou(ctx context.Context, actor user.User, mouID string) error {
	rec, err := getOwned(ctx, svc.mous, actor, mouID)
	if err != nil {
		return err
	}
	if err := svc.removeAttachment(ctx, rec.MouPdfUpload); err != nil {
		return err
	}
	return svc.mous.Delete(ctx, rec.MouID)
}
