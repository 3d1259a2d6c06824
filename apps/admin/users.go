package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (cli *commandLine) addUserCmd() *cobra.Command {
	var (
		fullName, email string
		isAdmin         bool
	)
	cmd := &cobra.Command{
		Use:   "adduser USERNAME",
		Short: "Create a user, or update the one matching the username or email. The password is prompted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 || email == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwd, err := cli.promptPassword(cmd)
			if err != nil {
				return err
			}
			usr, err := cli.usrSvc.Upsert(cmd.Context(), fullName, args[0], email, pwd, isAdmin)
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "user %q saved (roles: %v)\n", usr.Username, usr.Roles)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "The user's email.")
	cmd.Flags().StringVar(&fullName, "name", "", "The user's full name.")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "Grant every role.")
	return cmd
}

func (cli *commandLine) resetPasswordCmd() *cobra.Command {
	var uname string
	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset a user's password. The password is prompted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if uname == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwd, err := cli.promptPassword(cmd)
			if err != nil {
				return err
			}
			if _, err := cli.usrSvc.ResetPassword(cmd.Context(), uname, pwd); err != nil {
				return err
			}
			fmt.Fprintln(cli.out, "password updated")
			return nil
		},
	}
	cmd.Flags().StringVar(&uname, "username", "", "The user's username or email.")
	return cmd
}
