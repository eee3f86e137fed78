package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/campuserp/erp/storage/database"
)

var (
	runMigrationsFunc = database.RunMigrations // mockable

	errNoDatabase = errors.New("migrations need the postgres engine (database.engine)")
)

// migrateCommands maps the supported goose commands to whether they take a version.
var migrateCommands = map[string]bool{
	"up":        false,
	"up-by-one": false,
	"up-to":     true,
	"down":      false,
	"down-to":   true,
	"redo":      false,
	"reset":     false,
	"status":    false,
	"version":   false,
}

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [up|up-by-one|up-to VERSION|down|down-to VERSION|redo|reset|status|version]",
		Short: "Run the database migrations (up by default)",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) > 0 {
				command = args[0]
			}
			return cli.migrate(command, args[min(len(args), 1):]...)
		},
	}
}

func (cli *commandLine) migrate(command string, args ...string) error {
	needsVersion, ok := migrateCommands[command]
	if !ok {
		return fmt.Errorf("%q: no such command", command)
	}
	if needsVersion {
		if len(args) == 0 {
			return fmt.Errorf("%s needs a VERSION", command)
		}
		if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
			return fmt.Errorf("version must be a number (got %q)", args[0])
		}
	} else if len(args) > 0 {
		return fmt.Errorf("%s takes no arguments", command)
	}

	if cli.store.DB == nil {
		return errNoDatabase
	}
	return runMigrationsFunc(cli.store.DB.DB, command, args...)
}
