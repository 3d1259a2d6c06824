package di

import (
	"context"
	"log"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/rotaract/reportdesk/apps/api/echo"
	"github.com/rotaract/reportdesk/core"
	"github.com/rotaract/reportdesk/core/draft"
	"github.com/rotaract/reportdesk/core/report"
	"github.com/rotaract/reportdesk/core/sequence"
	"github.com/rotaract/reportdesk/core/user"
	logsvc "github.com/rotaract/reportdesk/services/logger"
	storagesvc "github.com/rotaract/reportdesk/services/storage"
	"github.com/rotaract/reportdesk/storage/database"
	sqlxrepos "github.com/rotaract/reportdesk/storage/database/sqlx"
	"github.com/rotaract/reportdesk/storage/inmem"
	"github.com/rotaract/reportdesk/storage/mongodb"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// AutoMigrate tells whether pending SQL migrations are applied when the database is opened.
	AutoMigrate bool

	// Database holds the open connection of the configured engine. At most one field is set.
	Database struct {
		Mongo *mongodb.DB
		SQL   *sqlx.DB
	}

	// Stores are the repositories of the configured engine.
	Stores struct {
		dig.Out
		Users         user.Repository
		Meetings      report.Repository[report.MeetingReport]
		Projects      report.Repository[report.ProjectReport]
		Mous          report.Repository[report.MouRecord]
		MeetingDrafts draft.Repository[draft.MeetingDraft]
		ProjectDrafts draft.Repository[draft.ProjectDraft]
		Counters      sequence.CounterStore
	}

	allocatorParams struct {
		dig.In
		Conf          *core.Config
		Meetings      report.Repository[report.MeetingReport]
		Projects      report.Repository[report.ProjectReport]
		Mous          report.Repository[report.MouRecord]
		MeetingDrafts draft.Repository[draft.MeetingDraft]
		ProjectDrafts draft.Repository[draft.ProjectDraft]
		Counters      sequence.CounterStore
	}

	ServerParams struct {
		dig.In
		Logger    core.Logger
		UserSvc   *user.Service
		ReportSvc *report.Service
		DraftSvc  *draft.Service
	}
)

// Close releases the connection.
func (db *Database) Close(ctx context.Context) error {
	switch {
	case db.Mongo != nil:
		return db.Mongo.Close(ctx)
	case db.SQL != nil:
		return db.SQL.Close()
	}
	return nil
}

func newLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(logsvc.NewLogrus(conf.Log, "api"), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(logsvc.NewLogrus(conf.Log, "db"), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDatabase(conf *core.Config, migrate AutoMigrate, loggerParam DBLoggerParam) (*Database, error) {
	logger := loggerParam.Logger

	switch conf.Database.Engine {
	case core.EngineMongo:
		db, err := mongodb.Connect(conf.Mongo, logger)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := db.EnsureIndexes(ctx); err != nil {
			return nil, errors.Wrap(err, "ensuring indexes")
		}
		return &Database{Mongo: db}, nil

	case core.EnginePostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}
		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := database.Migrate(db.DB, logger); err != nil {
				return nil, err
			}
		}
		return &Database{SQL: db}, nil

	case core.EngineMemory:
		logger.Warn("using the in-memory store; nothing will be persisted")
		return &Database{}, nil
	}
	return nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
}

func newStores(conf *core.Config, db *Database) (Stores, error) {
	switch {
	case db.Mongo != nil:
		return Stores{
			Users:         mongodb.NewUserRepository(db.Mongo),
			Meetings:      mongodb.NewReportRepository[report.MeetingReport](db.Mongo, mongodb.MeetingReportsCollection, report.MeetingReports),
			Projects:      mongodb.NewReportRepository[report.ProjectReport](db.Mongo, mongodb.ProjectReportsCollection, report.ProjectReports),
			Mous:          mongodb.NewReportRepository[report.MouRecord](db.Mongo, mongodb.MouRecordsCollection, report.MouRecords),
			MeetingDrafts: mongodb.NewDraftRepository[draft.MeetingDraft](db.Mongo, mongodb.MeetingDraftsCollection, draft.MeetingDrafts),
			ProjectDrafts: mongodb.NewDraftRepository[draft.ProjectDraft](db.Mongo, mongodb.ProjectDraftsCollection, draft.ProjectDrafts),
			Counters:      mongodb.NewCounterStore(db.Mongo),
		}, nil

	case db.SQL != nil:
		return Stores{
			Users:         sqlxrepos.NewUserRepository(db.SQL),
			Meetings:      sqlxrepos.NewReportRepository[report.MeetingReport](db.SQL, sqlxrepos.MeetingReportsTable, report.MeetingReports),
			Projects:      sqlxrepos.NewReportRepository[report.ProjectReport](db.SQL, sqlxrepos.ProjectReportsTable, report.ProjectReports),
			Mous:          sqlxrepos.NewReportRepository[report.MouRecord](db.SQL, sqlxrepos.MouReportsTable, report.MouRecords),
			MeetingDrafts: sqlxrepos.NewDraftRepository[draft.MeetingDraft](db.SQL, sqlxrepos.MeetingDraftsTable, draft.MeetingDrafts),
			ProjectDrafts: sqlxrepos.NewDraftRepository[draft.ProjectDraft](db.SQL, sqlxrepos.ProjectDraftsTable, draft.ProjectDrafts),
			Counters:      sqlxrepos.NewCounterStore(db.SQL),
		}, nil

	case conf.Database.Engine == core.EngineMemory:
		return Stores{
			Users:         inmem.NewUserRepository(),
			Meetings:      inmem.NewReportRepository[report.MeetingReport](report.MeetingReports),
			Projects:      inmem.NewReportRepository[report.ProjectReport](report.ProjectReports),
			Mous:          inmem.NewReportRepository[report.MouRecord](report.MouRecords),
			MeetingDrafts: inmem.NewDraftRepository[draft.MeetingDraft](draft.MeetingDrafts),
			ProjectDrafts: inmem.NewDraftRepository[draft.ProjectDraft](draft.ProjectDrafts),
			Counters:      inmem.NewCounterStore(),
		}, nil
	}
	return Stores{}, errors.New("no database connection")
}

func newAllocator(p allocatorParams) sequence.Allocator {
	finders := sequence.Finders{
		sequence.MeetingReport: p.Meetings,
		sequence.ProjectReport: p.Projects,
		sequence.MouRecord:     p.Mous,
		sequence.MeetingDraft:  p.MeetingDrafts,
		sequence.ProjectDraft:  p.ProjectDrafts,
	}
	return sequence.NewAllocator(sequence.Strategy(p.Conf.Sequence.Strategy), finders, p.Counters, time.Now, p.Conf.Reports.Location())
}

func newFileStorage(conf *core.Config) (core.FileStorage, error) {
	switch conf.Storage.Driver {
	case core.StorageCloudinary:
		files, err := storagesvc.NewCloudinary(conf.Storage)
		if err != nil {
			return nil, err
		}
		return files, nil
	case core.StorageLocal:
		files, err := storagesvc.NewLocal(conf.Storage)
		if err != nil {
			return nil, err
		}
		return files, nil
	}
	return nil, errors.Errorf("unknown storage driver %q", conf.Storage.Driver)
}

// newValidator returns the validator with the rules of every package registered.
func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	report.InitValidators(validate, translator)
	draft.InitValidators(validate, translator)
	return validate
}

func newServerDeps(p ServerParams) *echoapi.Deps {
	return &echoapi.Deps{
		Logger:    p.Logger,
		UserSvc:   p.UserSvc,
		ReportSvc: p.ReportSvc,
		DraftSvc:  p.DraftSvc,
	}
}

// New returns a new dependency injection dig.Container.
func New(migrate AutoMigrate) *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(func() AutoMigrate { return migrate }))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDatabase))
	must(c.Provide(newStores))
	must(c.Provide(newAllocator))
	must(c.Provide(newFileStorage))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(user.NewService))
	must(c.Provide(report.NewService))
	must(c.Provide(draft.NewService))
	must(c.Provide(newServerDeps))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}

