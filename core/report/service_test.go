package report_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rotaract/reportdesk/core"
	"github.com/rotaract/reportdesk/core/report"
	"github.com/rotaract/reportdesk/core/sequence"
	"github.com/rotaract/reportdesk/core/user"
	"github.com/rotaract/reportdesk/storage/inmem"
	"github.com/rotaract/reportdesk/tests"
)

type fakeFiles struct {
	uploaded  []string
	deleted   []string
	keepFiles bool
	uploadErr error
}

func (f *fakeFiles) Upload(_ context.Context, folder string, file core.Attachment) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	if _, err := io.ReadAll(file.Content); err != nil {
		return "", err
	}
	url := "https://files.test/" + folder + "/" + file.Filename
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakeFiles) Delete(_ context.Context, url string) (bool, error) {
	if f.keepFiles {
		return false, nil
	}
	f.deleted = append(f.deleted, url)
	return true, nil
}

type failingAllocator struct{}

func (failingAllocator) Allocate(context.Context, sequence.Category) (string, error) {
	return "", errors.New("counter unavailable")
}

// failingProjects refuses to store project reports.
type failingProjects struct {
	report.Repository[report.ProjectReport]
}

func (failingProjects) Create(context.Context, report.ProjectReport) (report.ProjectReport, error) {
	return report.ProjectReport{}, errors.New("disk full")
}

type failingMous struct {
	report.Repository[report.MouRecord]
}

func (failingMous) Create(context.Context, report.MouRecord) (report.MouRecord, error) {
	return report.MouRecord{}, errors.New("disk full")
}

type fixture struct {
	app   *testutil.App
	svc   *report.Service
	files *fakeFiles
	now   time.Time
}

func setup(t *testing.T, strict bool) *fixture {
	fx := &fixture{
		files: &fakeFiles{},
		now:   time.Date(2024, time.February, 3, 0, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return fx.now }

	conf := testutil.NewConfig(t)
	conf.Reports.StrictDates = strict
	fx.app = testutil.NewApp(t, conf, clock)

	repos := fx.app.Repos
	ids := sequence.NewAllocator(sequence.StrategyCounter, sequence.Finders{
		sequence.MeetingReport: repos.Meetings,
		sequence.ProjectReport: repos.Projects,
		sequence.MouRecord:     repos.Mous,
	}, inmem.NewCounterStore(), clock, conf.Reports.Location())
	fx.svc = report.NewService(repos.Meetings, repos.Projects, repos.Mous, ids, fx.files, fx.app.Validate, fx.app.Translator, conf)
	fx.svc.SetClock(clock)
	return fx
}

func (fx *fixture) user(t *testing.T, uname string, roles ...string) user.User {
	return testutil.CreateUser(t, fx.app.Repos.Users, uname, uname, uname+"@test.org", "", roles, true)
}

func TestService_CreateMeeting(t *testing.T) {
	fx := setup(t, false)
	usr := fx.user(t, "member")
	ctx := context.Background()

	tests := []struct {
		name       string
		in         report.MeetingInput
		wantStatus report.Status
		wantID     string
		wantErr    bool
	}{
		{name: "on-time", in: testutil.MeetingInput("General", "2024-01-25"), wantStatus: report.StatusOnTime, wantID: "RCM20240001"},
		{name: "invalid", in: report.MeetingInput{}, wantErr: true},
		{name: "early", in: testutil.MeetingInput("Board", "2024-01-27"), wantStatus: report.StatusEarly, wantID: "RCM20240002"},
		{name: "unparseable end date is late", in: testutil.MeetingInput("Board", "someday"), wantStatus: report.StatusLate, wantID: "RCM20240003"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep, err := fx.svc.CreateMeeting(ctx, usr, report.NewMeetingReport{MeetingInput: tt.in})
			if tt.wantErr {
				var vErr *core.ValidationError
				assert.ErrorAs(t, err, &vErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, rep.Status)
			assert.Equal(t, tt.wantID, rep.MeetingID)
			assert.Equal(t, usr.ID, rep.SubmittedBy)
			assert.NotEmpty(t, rep.ID)
		})
	}

	t.Run("draft", func(t *testing.T) {
		in := testutil.MeetingInput("General", "2020-01-01")
		in.IsDraft = true
		rep, err := fx.svc.CreateMeeting(ctx, usr, report.NewMeetingReport{MeetingInput: in})
		require.NoError(t, err)
		assert.Equal(t, report.StatusDraft, rep.Status)
	})
}

func TestService_strictDates(t *testing.T) {
	fx := setup(t, true)
	usr := fx.user(t, "member")
	ctx := context.Background()

	_, err := fx.svc.CreateMeeting(ctx, usr, report.NewMeetingReport{MeetingInput: testutil.MeetingInput("General", "someday")})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Len(t, vErr.Fields, 1)
	assert.Equal(t, "endDate", vErr.Fields[0].Field)

	_, err = fx.svc.CreateMou(ctx, usr, report.MouInput{SponsorName: "Acme", DateOfSigning: "soon"}, nil)
	assert.ErrorAs(t, err, &vErr)

	// rejected submissions do not consume identifiers
	rep, err := fx.svc.CreateMeeting(ctx, usr, report.NewMeetingReport{MeetingInput: testutil.MeetingInput("General", "2024-01-25")})
	require.NoError(t, err)
	assert.Equal(t, "RCM20240001", rep.MeetingID)
}

func TestService_projects(t *testing.T) {
	fx := setup(t, false)
	owner := fx.user(t, "owner")
	other := fx.user(t, "other")
	admin := fx.user(t, "admin", user.AllRoles...)
	ctx := context.Background()

	sheet := &core.Attachment{Filename: "budget.xlsx", Content: strings.NewReader("cells")}
	rep, err := fx.svc.CreateProject(ctx, owner, report.NewProjectReport{ProjectInput: testutil.ProjectInput("Clean-up", "2024-01-25")}, sheet)
	require.NoError(t, err)
	assert.Equal(t, "PROJ0001", rep.ProjectID)
	assert.Equal(t, "https://files.test/"+report.ProjectFolder+"/budget.xlsx", rep.FinanceExcelSheet)

	t.Run("upload failure allocates nothing", func(t *testing.T) {
		fx.files.uploadErr = errors.New("host down")
		defer func() { fx.files.uploadErr = nil }()
		_, err := fx.svc.CreateProject(ctx, owner, report.NewProjectReport{ProjectInput: testutil.ProjectInput("Fail", "2024-01-25")}, sheet)
		assert.Error(t, err)

		next, err := fx.svc.CreateProject(ctx, owner, report.NewProjectReport{ProjectInput: testutil.ProjectInput("Next", "2024-01-25")}, nil)
		require.NoError(t, err)
		assert.Equal(t, "PROJ0002", next.ProjectID)
		assert.Empty(t, next.FinanceExcelSheet)
	})

	t.Run("list defaults to the caller", func(t *testing.T) {
		res, err := fx.svc.ListProjects(ctx, owner, report.ListQuery{})
		require.NoError(t, err)
		assert.EqualValues(t, 2, res.Total)

		res, err = fx.svc.ListProjects(ctx, other, report.ListQuery{})
		require.NoError(t, err)
		assert.EqualValues(t, 0, res.Total)
		assert.NotNil(t, res.Items)
	})

	t.Run("delete", func(t *testing.T) {
		err := fx.svc.DeleteProject(ctx, other, rep.ProjectID)
		assert.Equal(t, core.ErrPermissionDenied, err)

		fx.files.keepFiles = true
		err = fx.svc.DeleteProject(ctx, owner, rep.ProjectID)
		var vErr *core.ValidationError
		assert.ErrorAs(t, err, &vErr)
		_, err = fx.app.Repos.Projects.Get(ctx, rep.ProjectID)
		assert.NoError(t, err, "report removed although its file was kept")

		fx.files.keepFiles = false
		require.NoError(t, fx.svc.DeleteProject(ctx, admin, rep.ProjectID))
		err = fx.svc.DeleteProject(ctx, admin, rep.ProjectID)
		assert.True(t, core.IsNotFound(err), err)
	})
}

func TestService_mous(t *testing.T) {
	fx := setup(t, false)
	usr := fx.user(t, "member")
	ctx := context.Background()

	in := report.MouInput{SponsorName: "Acme", SponsorAmount: 500, DateOfSigning: "2024-01-30"}
	pdf := &core.Attachment{Filename: "mou.pdf", Content: strings.NewReader("%PDF")}
	rec, err := fx.svc.CreateMou(ctx, usr, in, pdf)
	require.NoError(t, err)
	assert.Equal(t, "MOU20240001", rec.MouID)
	assert.NotEmpty(t, rec.MouPdfUpload)

	_, err = fx.svc.CreateMou(ctx, usr, report.MouInput{SponsorAmount: -1}, nil)
	var vErr *core.ValidationError
	assert.ErrorAs(t, err, &vErr)

	// the year of the submission scopes the sequence
	fx.now = time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC)
	rec, err = fx.svc.CreateMou(ctx, usr, in, nil)
	require.NoError(t, err)
	assert.Equal(t, "MOU20250001", rec.MouID)

	require.NoError(t, fx.svc.DeleteMou(ctx, usr, rec.MouID))
}

func TestService_jointProjectPartner(t *testing.T) {
	fx := setup(t, false)
	usr := fx.user(t, "member")
	ctx := context.Background()

	tests := []struct {
		name    string
		joint   bool
		partner string
		wantErr bool
	}{
		{name: "joint without partner", joint: true, partner: " ", wantErr: true},
		{name: "joint with partner", joint: true, partner: "Rotaract Ikeja"},
		{name: "not joint", joint: false, partner: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := testutil.ProjectInput("Joint", "2024-01-25")
			in.IsJointProject = report.Flag(tt.joint)
			in.JointProjectPartner = tt.partner
			_, err := fx.svc.CreateProject(ctx, usr, report.NewProjectReport{ProjectInput: in}, nil)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var vErr *core.ValidationError
			require.ErrorAs(t, err, &vErr)
			require.Len(t, vErr.Fields, 1)
			assert.Equal(t, "jointProjectPartner", vErr.Fields[0].Field)
		})
	}
}

func TestService_discardsUploadsOfUnstoredRecords(t *testing.T) {
	fx := setup(t, false)
	usr := fx.user(t, "member")
	ctx := context.Background()
	repos := fx.app.Repos
	conf := fx.app.Conf

	working := sequence.NewAllocator(sequence.StrategyCounter, sequence.Finders{
		sequence.ProjectReport: repos.Projects,
		sequence.MouRecord:     repos.Mous,
	}, inmem.NewCounterStore(), func() time.Time { return fx.now }, nil)

	tests := []struct {
		name    string
		svc     *report.Service
		wantURL string
		create  func(svc *report.Service) error
	}{
		{
			name:    "project id allocation fails",
			svc:     report.NewService(repos.Meetings, repos.Projects, repos.Mous, failingAllocator{}, fx.files, fx.app.Validate, fx.app.Translator, conf),
			wantURL: "https://files.test/" + report.ProjectFolder + "/budget.xlsx",
			create: func(svc *report.Service) error {
				sheet := &core.Attachment{Filename: "budget.xlsx", Content: strings.NewReader("cells")}
				_, err := svc.CreateProject(ctx, usr, report.NewProjectReport{ProjectInput: testutil.ProjectInput("Clean-up", "2024-01-25")}, sheet)
				return err
			},
		},
		{
			name:    "project store fails",
			svc:     report.NewService(repos.Meetings, failingProjects{repos.Projects}, repos.Mous, working, fx.files, fx.app.Validate, fx.app.Translator, conf),
			wantURL: "https://files.test/" + report.ProjectFolder + "/budget.xlsx",
			create: func(svc *report.Service) error {
				sheet := &core.Attachment{Filename: "budget.xlsx", Content: strings.NewReader("cells")}
				_, err := svc.CreateProject(ctx, usr, report.NewProjectReport{ProjectInput: testutil.ProjectInput("Clean-up", "2024-01-25")}, sheet)
				return err
			},
		},
		{
			name:    "mou id allocation fails",
			svc:     report.NewService(repos.Meetings, repos.Projects, repos.Mous, failingAllocator{}, fx.files, fx.app.Validate, fx.app.Translator, conf),
			wantURL: "https://files.test/" + report.MouFolder + "/mou.pdf",
			create: func(svc *report.Service) error {
				pdf := &core.Attachment{Filename: "mou.pdf", Content: strings.NewReader("%PDF")}
				_, err := svc.CreateMou(ctx, usr, report.MouInput{SponsorName: "Acme", SponsorAmount: 500, DateOfSigning: "2024-01-30"}, pdf)
				return err
			},
		},
		{
			name:    "mou store fails",
			svc:     report.NewService(repos.Meetings, repos.Projects, failingMous{repos.Mous}, working, fx.files, fx.app.Validate, fx.app.Translator, conf),
			wantURL: "https://files.test/" + report.MouFolder + "/mou.pdf",
			create: func(svc *report.Service) error {
				pdf := &core.Attachment{Filename: "mou.pdf", Content: strings.NewReader("%PDF")}
				_, err := svc.CreateMou(ctx, usr, report.MouInput{SponsorName: "Acme", SponsorAmount: 500, DateOfSigning: "2024-01-30"}, pdf)
				return err
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx.files.uploaded, fx.files.deleted = nil, nil
			tt.svc.SetClock(func() time.Time { return fx.now })

			require.Error(t, tt.create(tt.svc))
			assert.Equal(t, []string{tt.wantURL}, fx.files.uploaded)
			assert.Equal(t, []string{tt.wantURL}, fx.files.deleted)
		})
	}

	t.Run("nothing stored", func(t *testing.T) {
		projects, err := fx.svc.ListProjects(ctx, usr, report.ListQuery{})
		require.NoError(t, err)
		assert.EqualValues(t, 0, projects.Total)
		mous, err := fx.svc.ListMous(ctx, usr, report.ListQuery{})
		require.NoError(t, err)
		assert.EqualValues(t, 0, mous.Total)
	})

	t.Run("cleanup failure keeps the cause", func(t *testing.T) {
		fx.files.keepFiles = true
		defer func() { fx.files.keepFiles = false }()
		svc := report.NewService(repos.Meetings, repos.Projects, repos.Mous, failingAllocator{}, fx.files, fx.app.Validate, fx.app.Translator, conf)
		sheet := &core.Attachment{Filename: "budget.xlsx", Content: strings.NewReader("cells")}
		_, err := svc.CreateProject(ctx, usr, report.NewProjectReport{ProjectInput: testutil.ProjectInput("Clean-up", "2024-01-25")}, sheet)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "orphaned upload")
		assert.Contains(t, err.Error(), "counter unavailable")
	})
}

func TestService_idYearFollowsReportsTimezone(t *testing.T) {
	// 23:30 UTC on new year's eve is already 2025 in Lagos
	now := time.Date(2024, time.December, 31, 23, 30, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	tests := []struct {
		name     string
		timezone string
		wantID   string
	}{
		{name: "UTC", timezone: "UTC", wantID: "RCM20240001"},
		{name: "Africa/Lagos", timezone: "Africa/Lagos", wantID: "RCM20250001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := testutil.NewConfig(t)
			conf.Reports.Timezone = tt.timezone
			app := testutil.NewApp(t, conf, clock)
			usr := testutil.CreateUser(t, app.Repos.Users, "member", "member", "member@test.org", "", nil, true)

			rep, err := app.Reports.CreateMeeting(context.Background(), usr, report.NewMeetingReport{MeetingInput: testutil.MeetingInput("General", "2024-12-20")})
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, rep.MeetingID)
		})
	}
}
