package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/campuserp/erp/apps/shared"
	"github.com/campuserp/erp/core"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errNoPassword = errors.New("a password is required")
)

type commandLine struct {
	out        io.Writer
	conf       *core.Config
	logger     core.Logger
	validate   *validator.Validate
	translator ut.Translator
	store      *shared.Storage
	svcs       shared.Services
}

func newRootCmd(cli *commandLine) *cobra.Command {
	root := &cobra.Command{
		Use:          "erp-admin",
		Short:        "Administration & seeding of the Campus ERP",
		SilenceUsage: true,
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)
	root.AddCommand(
		cli.migrateCmd(),
		cli.seedCmd(),
		cli.addUserCmd(),
		cli.resetPasswordCmd(),
	)
	return root
}

// promptPassword reads a password from the terminal without echoing it.
func promptPassword(out io.Writer, label string) (string, error) {
	fmt.Fprintf(out, "%s: ", label)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(string(pwd)) == "" {
		return "", errNoPassword
	}
	return string(pwd), nil
}

// fieldErrors renders validation errors on one line.
func (cli *commandLine) fieldErrors(err error) error {
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		fields := core.FieldErrors(vErrs, cli.translator)
		parts := make([]string, 0, len(fields))
		for fld, msg := range fields {
			parts = append(parts, fld+": "+msg)
		}
		sort.Strings(parts)
		return fmt.Errorf("invalid input: %s", strings.Join(parts, "; "))
	}
	return err
}
