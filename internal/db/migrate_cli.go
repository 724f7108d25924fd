package db

import (
	"fmt"
	"io"
	"strconv"

	"github.com/banshee-data/rollstate/internal/monitoring"
)

// RunMigrateCommand handles the 'migrate' subcommand dispatching. It opens the
// database without migrating it so the schema can be moved in either direction.
func RunMigrateCommand(args []string, dbPath string, out io.Writer) error {
	if len(args) < 1 {
		PrintMigrateHelp(out)
		return fmt.Errorf("missing migrate action")
	}

	action := args[0]
	if action == "help" {
		PrintMigrateHelp(out)
		return nil
	}

	database, err := OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	switch action {
	case "up":
		monitoring.Logf("Running migrations...")
		if err := database.MigrateUp(); err != nil {
			return err
		}
	case "down":
		monitoring.Logf("Rolling back one migration...")
		if err := database.MigrateDown(); err != nil {
			return err
		}
	case "version", "status":
	case "goto", "force":
		if len(args) < 2 {
			return fmt.Errorf("usage: rollstate migrate %s <version_number>", action)
		}
		target, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version number: %s", args[1])
		}
		if action == "goto" {
			err = database.MigrateTo(uint(target))
		} else {
			err = database.MigrateForce(int(target))
		}
		if err != nil {
			return err
		}
	default:
		PrintMigrateHelp(out)
		return fmt.Errorf("unknown migrate action: %s", action)
	}

	version, dirty, err := database.MigrateVersion()
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	fmt.Fprintf(out, "Current version: %d (dirty: %v)\n", version, dirty)
	if dirty {
		fmt.Fprintln(out, "WARNING: a migration failed mid-execution; inspect the database and run: rollstate migrate force <version>")
	}
	return nil
}

// PrintMigrateHelp displays the help message for the migrate command.
func PrintMigrateHelp(out io.Writer) {
	fmt.Fprint(out, `Database Migration Commands

Usage: rollstate migrate [-db results.db] <command>

Commands:
  up              Apply all pending migrations
  down            Roll back one migration
  version         Show the current migration version
  goto <N>        Migrate up or down to version N
  force <N>       Force the recorded version to N (recovery only)
  help            Show this help message
`)
}
