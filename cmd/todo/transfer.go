package main

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Harshith0710/ToDoApp/internal/ingest"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>...",
		Short: "Import sessions from JSONL or YAML files",
		Long: `Import sessions from JSONL or YAML exchange files.

Sessions already present are skipped, so importing the same file
twice is harmless. Files dropped into the import directory are
imported automatically while "todo serve" runs.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, database, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer database.Close()

			for _, p := range args {
				if !ingest.IsImportFile(p) {
					return fmt.Errorf(
						"%s: unsupported file type (want .jsonl, .yaml or .yml)", p)
				}
			}

			logger := newLogger(cfg)
			defer func() { _ = logger.Sync() }()
			engine := ingest.NewEngine(database, logger)
			st, err := engine.ImportPaths(cmd.Context(), args)
			fmt.Fprintf(cmd.OutOrStdout(),
				"Imported %d sessions from %d file(s) (%d duplicates, %d skipped, %d failed)\n",
				st.Imported, st.Files, st.Duplicates, st.Skipped, st.Failed)
			return err
		},
	}
}

func newExportCmd() *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every session as JSONL or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			f, err := ingest.ParseFormat(format)
			if err != nil {
				return err
			}
			_, database, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer database.Close()

			sessions, err := database.ListFocusSessions(cmd.Context())
			if err != nil {
				return err
			}
			slices.Reverse(sessions)

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				file, ferr := os.OpenFile(output,
					os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
				if ferr != nil {
					return fmt.Errorf("creating %s: %w", output, ferr)
				}
				defer func() {
					if cerr := file.Close(); err == nil {
						err = cerr
					}
				}()
				w = file
			}
			return ingest.Export(w, sessions, f, now())
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(ingest.FormatJSONL), "jsonl or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}
