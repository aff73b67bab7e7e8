package main

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/Harshith0710/ToDoApp/internal/config"
	"github.com/Harshith0710/ToDoApp/internal/db"
	"github.com/Harshith0710/ToDoApp/internal/logging"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = ""
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// now is replaced in tests.
var now = time.Now

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "todo",
		Short: "Task list, focus timer and focus statistics",
		Long: `todo keeps a local task list and a log of focus sessions.

Sessions are recorded by the interactive timer, logged by hand or
imported from JSONL/YAML files, and summarized by "todo stats" and
the HTTP API started by "todo serve".

Data is stored in ~/.todo/ by default.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterGlobalFlags(root.PersistentFlags())

	root.AddCommand(
		newServeCmd(),
		newTaskCmd(),
		newTimerCmd(),
		newLogCmd(),
		newSessionsCmd(),
		newStatsCmd(),
		newImportCmd(),
		newExportCmd(),
		newPruneCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(),
				"todo %s (commit %s, built %s)\n",
				version, commit, buildDate)
		},
	}
}

// loadConfig layers config.json, the environment and the flags
// parsed for cmd.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return cfg, fmt.Errorf("loading config: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return cfg, fmt.Errorf("creating data dir: %w", err)
	}
	return cfg, nil
}

// openStore loads the configuration and opens the database. The
// caller must close the returned DB.
func openStore(cmd *cobra.Command) (config.Config, *db.DB, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return cfg, nil, err
	}
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return cfg, nil, fmt.Errorf("opening database: %w", err)
	}
	return cfg, database, nil
}

func newLogger(cfg config.Config) *zap.Logger {
	logger, err := logging.New(cfg.Debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
		return zap.NewNop()
	}
	return logger
}

// isTerminal reports whether cmd writes to an interactive terminal.
func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the width of cmd's terminal, or fallback
// when it cannot be determined.
func terminalWidth(cmd *cobra.Command, fallback int) int {
	f, ok := cmd.OutOrStdout().(*os.File)
	if !ok {
		return fallback
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}
