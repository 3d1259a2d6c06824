package testutil

import (
	"context"
	"io"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/rotaract/reportdesk/core"
	"github.com/rotaract/reportdesk/core/draft"
	"github.com/rotaract/reportdesk/core/report"
	"github.com/rotaract/reportdesk/core/sequence"
	"github.com/rotaract/reportdesk/core/user"
	logsvc "github.com/rotaract/reportdesk/services/logger"
	storagesvc "github.com/rotaract/reportdesk/services/storage"
	"github.com/rotaract/reportdesk/storage/inmem"
)

// Repos are the in-memory stores behind an App.
type Repos struct {
	Users          *inmem.UserRepository
	Meetings       *inmem.ReportRepository[report.MeetingReport]
	Projects       *inmem.ReportRepository[report.ProjectReport]
	Mous           *inmem.ReportRepository[report.MouRecord]
	MeetingDrafts  *inmem.DraftRepository[draft.MeetingDraft, *draft.MeetingDraft]
	ProjectDrafts  *inmem.DraftRepository[draft.ProjectDraft, *draft.ProjectDraft]
	SequenceCounts *inmem.CounterStore
}

// App wires the services on in-memory repositories.
type App struct {
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	Files      core.FileStorage
	Repos      Repos
	Users      *user.Service
	Reports    *report.Service
	Drafts     *draft.Service
}

// NewConfig returns the configuration used by tests. Uploads go to a temporary directory.
func NewConfig(t *testing.T) *core.Config {
	t.Helper()
	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true
	conf.Database.Engine = core.EngineMemory
	conf.Storage.Driver = core.StorageLocal
	conf.Storage.LocalDir = t.TempDir()
	conf.Storage.PublicURL = "http://localhost:8000/uploads"
	conf.Sequence.Strategy = string(sequence.StrategyCounter)
	conf.Reports.Timezone = "UTC"
	conf.Reports.StrictDates = false
	conf.Reports.DraftTTL = draft.DefaultTTL
	return conf
}

// NewValidator returns a validator with every custom rule registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	report.InitValidators(validate, translator)
	draft.InitValidators(validate, translator)
	return validate, translator
}

// NewLogger returns a logger that drops everything.
func NewLogger() core.Logger {
	local := logrus.New()
	local.SetOutput(io.Discard)
	logger := logsvc.NewRollbarLogger(local, &core.Config{Env: "TEST"})
	logger.Enable(false)
	return logger
}

// NewApp builds an App. now, when given, replaces the wall clock of every service.
func NewApp(t *testing.T, conf *core.Config, now ...func() time.Time) *App {
	t.Helper()
	if conf == nil {
		conf = NewConfig(t)
	}
	clock := time.Now
	if len(now) > 0 {
		clock = now[0]
	}

	validate, translator := NewValidator()
	files, err := storagesvc.NewLocal(conf.Storage)
	if err != nil {
		t.Fatalf("storagesvc.NewLocal(): %v", err)
	}

	repos := Repos{
		Users:          inmem.NewUserRepository(),
		Meetings:       inmem.NewReportRepository[report.MeetingReport](report.MeetingReports),
		Projects:       inmem.NewReportRepository[report.ProjectReport](report.ProjectReports),
		Mous:           inmem.NewReportRepository[report.MouRecord](report.MouRecords),
		MeetingDrafts:  inmem.NewDraftRepository[draft.MeetingDraft](draft.MeetingDrafts),
		ProjectDrafts:  inmem.NewDraftRepository[draft.ProjectDraft](draft.ProjectDrafts),
		SequenceCounts: inmem.NewCounterStore(),
	}
	finders := sequence.Finders{
		sequence.MeetingReport: repos.Meetings,
		sequence.ProjectReport: repos.Projects,
		sequence.MouRecord:     repos.Mous,
		sequence.MeetingDraft:  repos.MeetingDrafts,
		sequence.ProjectDraft:  repos.ProjectDrafts,
	}
	ids := sequence.NewAllocator(sequence.Strategy(conf.Sequence.Strategy), finders, repos.SequenceCounts, clock, conf.Reports.Location())
	logger := NewLogger()

	app := &App{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		Files:      files,
		Repos:      repos,
		Users:      user.NewService(repos.Users, validate, translator, conf),
		Reports:    report.NewService(repos.Meetings, repos.Projects, repos.Mous, ids, files, validate, translator, conf),
		Drafts:     draft.NewService(repos.MeetingDrafts, repos.ProjectDrafts, ids, validate, translator, logger, conf),
	}
	app.Users.SetClock(clock)
	app.Reports.SetClock(clock)
	app.Drafts.SetClock(clock)
	return app
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	if roles == nil {
		roles = []string{user.RoleMember}
	}
	usr := user.User{
		FullName:  name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

// MeetingInput returns a meeting form that passes validation.
func MeetingInput(meetingType, endDate string) report.MeetingInput {
	return report.MeetingInput{
		FacultyName:    "Engineering",
		Venue:          "Hall A",
		MeetingType:    meetingType,
		StartDate:      endDate,
		EndDate:        endDate,
		MeetingSummary: "Monthly catch-up",
		Attendance:     report.Attendance{ActiveHomeClubMembers: 12, TotalMembers: 12},
	}
}

// ProjectInput returns a project form that passes validation.
func ProjectInput(name, endDate string) report.ProjectInput {
	return report.ProjectInput{
		ProjectName:  name,
		Venue:        "Community centre",
		ProjectMode:  "offline",
		StartDate:    endDate,
		EndDate:      endDate,
		Avenue1:      "Community Service",
		ChairPersons: report.StringList{"Ada", "Grace"},
		Media: report.Media{
			CoverImageURL:      "https://img.example.com/cover.png",
			AttendanceImageURL: "https://img.example.com/attendance.png",
			SupportDocumentURL: "https://docs.example.com/support.pdf",
		},
	}
}
