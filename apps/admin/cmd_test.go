package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rotaract/reportdesk/apps/api/di"
	"github.com/rotaract/reportdesk/core"
	"github.com/rotaract/reportdesk/core/draft"
	"github.com/rotaract/reportdesk/core/report"
	"github.com/rotaract/reportdesk/core/user"
	"github.com/rotaract/reportdesk/tests"
)

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func setup(t *testing.T, now ...func() time.Time) (*commandLine, *testutil.App, *bytes.Buffer) {
	app := testutil.NewApp(t, nil, now...)
	out := new(bytes.Buffer)
	return &commandLine{
		db:       &di.Database{},
		usrSvc:   app.Users,
		draftSvc: app.Drafts,
		logger:   app.Logger,
		out:      out,
	}, app, out
}

func mockPassword(t *testing.T, pwd string) {
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

func runCLI(t *testing.T, cli *commandLine, tt cliTest) error {
	t.Helper()
	err := cli.run(append([]string{"admin"}, tt.args...))
	switch {
	case tt.wantErr != nil:
		assert.ErrorIs(t, err, tt.wantErr)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Contains(t, err.Error(), tt.wantErrStr)
		}
	default:
		assert.NoError(t, err)
	}
	return err
}

func Test_commandLine_root(t *testing.T) {
	cli, _, _ := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErrStr: `unknown command "lol"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runCLI(t, cli, tt)
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	t.Run("not a SQL engine", func(t *testing.T) {
		runCLI(t, cli, cliTest{args: []string{"migrate", "up"}, wantErr: errNoSQLDatabase})
	})

	cli.db = &di.Database{SQL: sqlx.NewDb(nil, "postgres")}
	orig := migrateFunc
	t.Cleanup(func() { migrateFunc = orig })
	migrateFunc = func(db *sql.DB, logger core.Logger, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "attendance", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runCLI(t, cli, tt)
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, app, _ := setup(t)
	usr := testutil.CreateUser(t, app.Repos.Users, "User", "awe", "awe@test.org", "Str0ng!Passw0rd#", nil, true)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "--username", "awe"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "--username", "lol"}, extra: "N3w!Passw0rd"},
		{name: "reset with username", args: []string{"resetpassword", "--username", usr.Username}, extra: "N3w!Passw0rd"},
		{name: "reset with email", args: []string{"resetpassword", "--username", usr.Email}, extra: "0ther!Passw0rd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pwd, _ := tt.extra.(string)
			mockPassword(t, pwd)

			err := cli.run(append([]string{"admin"}, tt.args...))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			if tt.args[2] == "lol" {
				assert.True(t, core.IsNotFound(err), err)
				return
			}
			require.NoError(t, err)

			got, err := app.Repos.Users.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
			require.NoError(t, err)
			assert.NoError(t, got.CheckPassword(pwd))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, app, out := setup(t)
	mockPassword(t, "Str0ng!Passw0rd#")

	runCLI(t, cli, cliTest{args: []string{"adduser", "chair"}, wantErr: errHelp})

	runCLI(t, cli, cliTest{args: []string{"adduser", "Chair", "--email", "Chair@Club.org", "--name", "Club Chair", "--admin"}})
	assert.Contains(t, out.String(), `user "chair" saved`)

	usr, err := app.Users.GetByUsernameOrEmail(context.Background(), "chair@club.org")
	require.NoError(t, err)
	assert.Equal(t, "Club Chair", usr.FullName)
	assert.Equal(t, user.AllRoles, usr.Roles)
	assert.True(t, usr.IsActive)

	// updating keeps the identity and drops the admin roles
	runCLI(t, cli, cliTest{args: []string{"adduser", "chair", "--email", "chair@club.org"}})
	updated, err := app.Users.GetByUsernameOrEmail(context.Background(), "chair")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, updated.ID)
	assert.Equal(t, []string{user.RoleMember}, updated.Roles)
}

func Test_commandLine_sweepDrafts(t *testing.T) {
	start := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
	now := start
	cli, app, out := setup(t, func() time.Time { return now })
	usr := testutil.CreateUser(t, app.Repos.Users, "User", "awe", "awe@test.org", "Str0ng!Passw0rd#", nil, true)

	ctx := context.Background()
	_, _, err := app.Drafts.SaveProject(ctx, usr, draftProject("old"))
	require.NoError(t, err)
	now = start.Add(5 * 24 * time.Hour)
	recent, _, err := app.Drafts.SaveProject(ctx, usr, draftProject("recent"))
	require.NoError(t, err)

	now = start.Add(8 * 24 * time.Hour)
	runCLI(t, cli, cliTest{args: []string{"sweep-drafts"}})
	assert.Contains(t, out.String(), "1 expired drafts removed")

	listing, err := app.Drafts.ListProjects(ctx, usr)
	require.NoError(t, err)
	require.Len(t, listing.Drafts, 1)
	assert.Equal(t, recent.DraftID, listing.Drafts[0].DraftID)

	runCLI(t, cli, cliTest{args: []string{"sweep-drafts", "extra"}, wantErrStr: "unknown command"})
}

func draftProject(name string) draft.SaveProjectDraft {
	return draft.SaveProjectDraft{ProjectInput: report.ProjectInput{ProjectName: name, IsDraft: true}}
}
