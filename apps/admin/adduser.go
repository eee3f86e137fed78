package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/campuserp/erp/core"
	"github.com/campuserp/erp/core/user"
)

type addUserOptions struct {
	name, username, email string
	roles                 []string
	department            string
	admin                 bool
}

func (cli *commandLine) addUserCmd() *cobra.Command {
	var opts addUserOptions
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user, or update the roles & password of an existing one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.username == "" && opts.email == "" {
				return errors.New("a username or an email is required")
			}
			pwd, err := promptPassword(cli.out, "Enter password")
			if err != nil {
				return err
			}
			usr, created, err := cli.addUser(cmd.Context(), opts, pwd)
			if err != nil {
				return err
			}
			verb := "updated"
			if created {
				verb = "created"
			}
			uname := usr.Username
			if uname == "" {
				uname = usr.Email
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s %s\n", uname, verb)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.name, "name", "", "full name (defaults to the username)")
	flags.StringVar(&opts.username, "username", "", "username")
	flags.StringVar(&opts.email, "email", "", "email")
	flags.StringSliceVar(&opts.roles, "roles", nil, "roles (ex: academic:,staff:accounts)")
	flags.StringVar(&opts.department, "department", "", "department")
	flags.BoolVar(&opts.admin, "admin", false, "grant the admin:owner role")
	return cmd
}

// addUser creates the user or, when the username or email is taken, activates it with the new password & roles.
func (cli *commandLine) addUser(ctx context.Context, opts addUserOptions, pwd string) (user.User, bool, error) {
	roles := opts.roles
	if opts.admin {
		roles = append(roles, user.RoleAdminOwner)
	}

	for _, uname := range []string{opts.username, opts.email} {
		if uname == "" {
			continue
		}
		usr, err := cli.svcs.User.GetByUsernameOrEmail(ctx, uname)
		if err != nil {
			if core.IsNotFound(err) {
				continue
			}
			return user.User{}, false, errors.Wrap(err, "finding user")
		}

		active := true
		uu := user.UpdateUser{
			Name:            usr.Name,
			Username:        usr.Username,
			Email:           usr.Email,
			IsActive:        &active,
			Roles:           roles,
			Password:        pwd,
			PasswordConfirm: pwd,
		}
		if opts.department != "" {
			uu.Department = &opts.department
		}
		if err := uu.Validate(ctx, usr, cli.validate, cli.svcs.User); err != nil {
			return user.User{}, false, cli.fieldErrors(err)
		}
		usr, err = cli.svcs.User.Update(ctx, usr, uu)
		if err != nil {
			return user.User{}, false, errors.Wrap(err, "updating user")
		}
		return usr, false, nil
	}

	name := opts.name
	if name == "" {
		name = opts.username
	}
	nu := user.NewUser{
		Name:            name,
		Username:        opts.username,
		Email:           opts.email,
		Password:        pwd,
		PasswordConfirm: pwd,
		Roles:           roles,
		Department:      opts.department,
	}
	if err := nu.Validate(ctx, cli.validate, cli.svcs.User); err != nil {
		return user.User{}, false, cli.fieldErrors(err)
	}
	usr, err := cli.svcs.User.Create(ctx, nu)
	if err != nil {
		return user.User{}, false, errors.Wrap(err, "creating user")
	}
	return usr, true, nil
}
