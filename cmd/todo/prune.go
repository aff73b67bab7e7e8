package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Harshith0710/ToDoApp/internal/db"
	"github.com/Harshith0710/ToDoApp/internal/stats"
)

// PruneConfig holds parsed CLI options for the prune command.
type PruneConfig struct {
	Filter db.PruneFilter
	DryRun bool
	Yes    bool
}

// pruneFlags are the raw flag values before validation.
type pruneFlags struct {
	before string
	mode   string
	source string
	all    bool
	dryRun bool
	yes    bool
}

func (f pruneFlags) toConfig(loc *time.Location) (PruneConfig, error) {
	cfg := PruneConfig{
		Filter: db.PruneFilter{Source: f.source, All: f.all},
		DryRun: f.dryRun,
		Yes:    f.yes,
	}
	if f.before != "" {
		t, err := time.ParseInLocation(dueLayout, f.before, loc)
		if err != nil {
			return PruneConfig{}, fmt.Errorf(
				"invalid --before %q: want YYYY-MM-DD", f.before)
		}
		cfg.Filter.Before = t
	}
	if f.mode != "" {
		m, err := stats.ParseMode(f.mode)
		if err != nil {
			return PruneConfig{}, err
		}
		cfg.Filter.Mode = m
	}
	switch f.source {
	case "", db.SourceTimer, db.SourceManual, db.SourceImport:
	default:
		return PruneConfig{}, fmt.Errorf(
			"unknown source %q: want timer, manual or import", f.source)
	}
	if !cfg.Filter.HasFilters() {
		return PruneConfig{}, fmt.Errorf(
			"at least one filter is required\n" +
				"use --before, --mode, --source, or --all",
		)
	}
	return cfg, nil
}

func newPruneCmd() *cobra.Command {
	var f pruneFlags
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete sessions matching filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appCfg, database, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer database.Close()

			cfg, err := f.toConfig(appCfg.Location())
			if err != nil {
				return err
			}
			pruner := &Pruner{
				DB:  database,
				Out: cmd.OutOrStdout(),
				In:  cmd.InOrStdin(),
			}
			return pruner.Prune(cmd.Context(), cfg)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&f.before, "before", "", "Sessions that started before this date (YYYY-MM-DD)")
	fs.StringVar(&f.mode, "mode", "", "Sessions of this mode (FOCUS or POMODORO)")
	fs.StringVar(&f.source, "source", "", "Sessions from this source (timer, manual, import)")
	fs.BoolVar(&f.all, "all", false, "Every session")
	fs.BoolVar(&f.dryRun, "dry-run", false, "Show what would be pruned without deleting")
	fs.BoolVarP(&f.yes, "yes", "y", false, "Skip confirmation prompt")
	return cmd
}

// Pruner executes the prune workflow against a database.
type Pruner struct {
	DB  *db.DB
	Out io.Writer
	In  io.Reader
}

// Prune finds matching sessions and deletes them.
func (p *Pruner) Prune(ctx context.Context, cfg PruneConfig) error {
	if !cfg.Filter.HasFilters() {
		return fmt.Errorf(
			"at least one filter is required " +
				"(refusing to prune all sessions)",
		)
	}

	candidates, err := p.DB.FindPruneCandidates(ctx, cfg.Filter)
	if err != nil {
		return fmt.Errorf("finding candidates: %w", err)
	}

	if len(candidates) == 0 {
		fmt.Fprintln(p.Out,
			"No sessions match the given filters.")
		return nil
	}

	writeSummary(p.Out, candidates)

	if cfg.DryRun {
		fmt.Fprintln(p.Out, "\nDry run: no changes made.")
		return nil
	}

	if !cfg.Yes {
		msg := fmt.Sprintf(
			"\nDelete %d sessions?", len(candidates),
		)
		if !confirm(p.In, p.Out, msg) {
			fmt.Fprintln(p.Out, "Aborted.")
			return nil
		}
	}

	ids := make([]string, len(candidates))
	for i, s := range candidates {
		ids[i] = s.ID
	}

	deleted, err := p.DB.DeleteSessions(ids)
	if err != nil {
		return fmt.Errorf("deleting sessions: %w", err)
	}

	fmt.Fprintf(p.Out, "\nDeleted %d sessions\n", deleted)
	return nil
}

func confirm(r io.Reader, w io.Writer, msg string) bool {
	fmt.Fprintf(w, "%s [y/N] ", msg)
	scanner := bufio.NewScanner(r)
	scanner.Scan()
	ans := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return ans == "y" || ans == "yes"
}

func writeSummary(w io.Writer, sessions []db.Session) {
	var total int64
	byMode := map[stats.Mode]int{}
	var modes []string
	for _, s := range sessions {
		if byMode[s.Mode] == 0 {
			modes = append(modes, string(s.Mode))
		}
		byMode[s.Mode]++
		total += s.DurationSeconds
	}

	sort.Strings(modes)

	fmt.Fprintf(w,
		"Found %d sessions (%s of focus time)\n",
		len(sessions), stats.FormatDuration(total),
	)
	fmt.Fprintln(w, "\nBy mode:")
	for _, m := range modes {
		fmt.Fprintf(w, "  %-10s %d\n", m, byMode[stats.Mode(m)])
	}
}
