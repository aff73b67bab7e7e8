package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Harshith0710/ToDoApp/internal/db"
	"github.com/Harshith0710/ToDoApp/internal/stats"
	"github.com/Harshith0710/ToDoApp/internal/tui"
)

// startLayouts are accepted by "todo log --start", tried in order.
var startLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"15:04",
}

// parseStart reads a start time in loc. A bare clock time refers
// to today in loc.
func parseStart(s string, loc *time.Location, ref time.Time) (time.Time, error) {
	for _, layout := range startLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			continue
		}
		if layout == "15:04" {
			y, m, d := ref.In(loc).Date()
			t = time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf(
		"invalid start %q: want RFC 3339, YYYY-MM-DD HH:MM or HH:MM", s)
}

func newLogCmd() *cobra.Command {
	var start, mode string
	var duration time.Duration
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Record a focus session by hand",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, database, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer database.Close()

			m, err := stats.ParseMode(mode)
			if err != nil {
				return err
			}
			if duration < time.Second {
				return fmt.Errorf("--duration must be at least 1s")
			}
			end := now()
			begin := end.Add(-duration)
			if start != "" {
				if begin, err = parseStart(start, cfg.Location(), end); err != nil {
					return err
				}
				end = begin.Add(duration)
			}

			stored, _, err := database.InsertSession(db.Session{
				FocusSession: stats.FocusSession{
					StartTime:       begin,
					EndTime:         end,
					DurationSeconds: int64(duration / time.Second),
					Mode:            m,
				},
				Source: db.SourceManual,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged %s %s session %s\n",
				stats.FormatDetailedDuration(stored.DurationSeconds),
				stored.Mode, stored.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "Start time (default: duration ago)")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "Session length, e.g. 25m")
	cmd.Flags().StringVarP(&mode, "mode", "m", string(stats.ModeFocus), "FOCUS or POMODORO")
	_ = cmd.MarkFlagRequired("duration")
	return cmd
}

func newSessionsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recent focus sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, database, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer database.Close()

			if limit <= 0 || limit > db.MaxSessionLimit {
				return fmt.Errorf("-n must be between 1 and %d", db.MaxSessionLimit)
			}
			sessions, err := database.ListSessions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			writeSessions(cmd.OutOrStdout(), sessions, cfg.Location())
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", db.DefaultSessionLimit, "Number of sessions")
	return cmd
}

func writeSessions(w io.Writer, sessions []db.Session, loc *time.Location) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return
	}
	for _, s := range sessions {
		fmt.Fprintf(w, "%s  %-8s  %8s  %-6s  %s\n",
			s.StartTime.In(loc).Format("2006-01-02 15:04"),
			s.Mode,
			stats.FormatDetailedDuration(s.DurationSeconds),
			s.Source,
			s.ID,
		)
	}
}

func newStatsCmd() *cobra.Command {
	var period string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show focus statistics and a chart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, database, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer database.Close()

			p, err := stats.ParsePeriod(period)
			if err != nil {
				return err
			}
			sessions, err := database.ListFocusSessions(cmd.Context())
			if err != nil {
				return err
			}
			res := stats.Compute(sessions, now().In(cfg.Location()), p)

			out := cmd.OutOrStdout()
			switch {
			case asJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			case isTerminal(cmd):
				fmt.Fprint(out, tui.RenderDashboard(res, terminalWidth(cmd, 80)))
			default:
				fmt.Fprint(out, tui.RenderPlain(res))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&period, "period", "p", stats.Last7Days.Short(),
		"Chart period: "+periodChoices())
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

// periodChoices lists the short chart period names for flag help.
func periodChoices() string {
	names := make([]string, len(stats.Periods))
	for i, p := range stats.Periods {
		names[i] = p.Short()
	}
	return strings.Join(names[:len(names)-1], ", ") + " or " + names[len(names)-1]
}
