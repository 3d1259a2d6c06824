package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/rotaract/reportdesk/storage/database"
)

var (
	migrateFunc = database.Run // mockable

	errNoSQLDatabase = errors.New("migrations only apply to the postgres engine")
)

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "migrate COMMAND [ARGS...]",
		Short:              "Run a goose command (up, up-to, down, down-to, redo, reset, status, version...) on the SQL schema.",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			if cli.db == nil || cli.db.SQL == nil {
				return errNoSQLDatabase
			}
			return migrateFunc(cli.db.SQL.DB, cli.logger, args[0], args[1:]...)
		},
	}
}
