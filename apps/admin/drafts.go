package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (cli *commandLine) sweepDraftsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-drafts",
		Short: "Delete the expired drafts of every user.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := cli.draftSvc.SweepAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "%d expired drafts removed\n", n)
			return nil
		},
	}
}
