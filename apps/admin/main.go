package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/rotaract/reportdesk/apps/api/di"
	"github.com/rotaract/reportdesk/core"
	"github.com/rotaract/reportdesk/core/draft"
	"github.com/rotaract/reportdesk/core/user"
)

func main() {
	c := di.New(false)

	code := 0
	err := c.Invoke(func(
		logger core.Logger,
		db *di.Database,
		usrSvc *user.Service,
		draftSvc *draft.Service,
	) {
		defer func() {
			if err := db.Close(context.Background()); err != nil {
				logger.Error("Failed to close", err)
			}
		}()

		cli := commandLine{
			db:       db,
			usrSvc:   usrSvc,
			draftSvc: draftSvc,
			logger:   logger,
			out:      os.Stdout,
		}
		if err := cli.run(os.Args); err != nil {
			if err != errHelp {
				fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
			}
			code = 1
		}
	})
	if err != nil {
		log.Fatal(err)
	}
	os.Exit(code)
}
