package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/campuserp/erp/core/user"
)

func (cli *commandLine) resetPasswordCmd() *cobra.Command {
	var uname string
	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Set a user's password; it is prompted next",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := promptPassword(cli.out, "Enter password")
			if err != nil {
				return err
			}
			if err := cli.resetPassword(cmd.Context(), uname, pwd); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password of %s updated\n", uname)
			return nil
		},
	}
	cmd.Flags().StringVar(&uname, "username", "", "the user's username or email")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func (cli *commandLine) resetPassword(ctx context.Context, uname, pwd string) error {
	usr, err := cli.svcs.User.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	if err := user.CheckPasswordPolicy(pwd, usr); err != nil {
		return err
	}
	_, err = cli.svcs.User.SetPassword(ctx, usr, pwd)
	return err
}
