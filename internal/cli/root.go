// Package cli implements the tt command line.
//
// Every command opens the ledger, runs one operation and writes JSON to
// stdout. Logs go to stderr.
package cli

import (
	"time"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	DBPath     string
	LogLevel   string

	// Clock replaces the wall clock; nil means time.Now.
	Clock func() time.Time
}

// NewRootCommand creates the root command for the tt CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tt",
		Short: "tt - a versioned time-tracking ledger",
		Long: `tt records when you start and stop working on hierarchical projects.

Every change appends a version to an embedded SQLite ledger, so past states can
be read back as of any time. Projects and time entries can be imported from
Teamwork, and the ledger is served to agents over MCP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default $TT_CONFIG_PATH)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "ledger database path (default ~/.tt.sqlite)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")

	cmd.AddCommand(newProjectsCommand(opts))
	cmd.AddCommand(newStatusCommand(opts))
	cmd.AddCommand(newPunchInCommand(opts))
	cmd.AddCommand(newPunchOutCommand(opts))
	cmd.AddCommand(newHistoryCommand(opts))
	cmd.AddCommand(newSyncCommand(opts))
	cmd.AddCommand(newExportCommand(opts))
	cmd.AddCommand(newBackupCommand(opts))
	cmd.AddCommand(newActivityCommand(opts))
	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newVersionCommand(opts))
	cmd.InitDefaultCompletionCmd()

	return cmd
}
