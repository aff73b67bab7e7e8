package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Harshith0710/ToDoApp/internal/db"
)

const dueLayout = "2006-01-02"

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "task",
		Aliases: []string{"tasks"},
		Short:   "Manage the task list",
	}
	cmd.AddCommand(
		newTaskAddCmd(),
		newTaskListCmd(),
		newTaskDoneCmd(),
		newTaskEditCmd(),
		newTaskRmCmd(),
	)
	return cmd
}

func parseTaskID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}

// parseDue reads a YYYY-MM-DD date as midnight in loc. An empty
// string clears the due date.
func parseDue(s string, loc *time.Location) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dueLayout, s, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid due date %q: want YYYY-MM-DD", s)
	}
	return &t, nil
}

func newTaskAddCmd() *cobra.Command {
	var description, importance, due string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, database, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer database.Close()

			imp, err := db.ParseImportance(importance)
			if err != nil {
				return err
			}
			dueAt, err := parseDue(due, cfg.Location())
			if err != nil {
				return err
			}
			id, err := database.UpsertTask(db.Task{
				Title:       strings.Join(args, " "),
				Description: description,
				Importance:  imp,
				DueAt:       dueAt,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added task %d\n", id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "Longer description")
	cmd.Flags().StringVarP(&importance, "importance", "i", "normal",
		"urgent, high_priority, normal or optional")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	return cmd
}

func newTaskListCmd() *cobra.Command {
	var all, done bool
	var importance string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks, most important first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, database, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer database.Close()

			var f db.TaskFilter
			switch {
			case done:
				f.Done = &done
			case !all:
				open := false
				f.Done = &open
			}
			if importance != "" {
				if f.Importance, err = db.ParseImportance(importance); err != nil {
					return err
				}
			}
			tasks, err := database.ListTasks(cmd.Context(), f)
			if err != nil {
				return err
			}
			writeTasks(cmd.OutOrStdout(), tasks, cfg.Location())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include finished tasks")
	cmd.Flags().BoolVar(&done, "done", false, "Show only finished tasks")
	cmd.Flags().StringVarP(&importance, "importance", "i", "", "Only tasks of this importance")
	return cmd
}

func writeTasks(w io.Writer, tasks []db.Task, loc *time.Location) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks.")
		return
	}
	for _, t := range tasks {
		mark := " "
		if t.IsDone {
			mark = "x"
		}
		line := fmt.Sprintf("%4d [%s] %-13s %s", t.ID, mark, t.Importance, t.Title)
		if t.DueAt != nil {
			line += " (due " + t.DueAt.In(loc).Format(dueLayout) + ")"
		}
		fmt.Fprintln(w, line)
	}
}

func newTaskDoneCmd() *cobra.Command {
	var undo bool
	cmd := &cobra.Command{
		Use:   "done <id>...",
		Short: "Mark tasks finished",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, database, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer database.Close()

			for _, arg := range args {
				id, err := parseTaskID(arg)
				if err != nil {
					return err
				}
				if err := database.SetTaskDone(id, !undo); err != nil {
					return err
				}
			}
			state := "done"
			if undo {
				state = "open"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %d task(s) %s\n", len(args), state)
			return nil
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "Reopen the tasks instead")
	return cmd
}

func newTaskEditCmd() *cobra.Command {
	var title, description, importance, due string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, database, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer database.Close()

			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			t, err := database.GetTask(cmd.Context(), id)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("title") {
				if err := db.ValidateTaskTitle(title, &t.Title); err != nil {
					return err
				}
				t.Title = title
			}
			if flags.Changed("description") {
				t.Description = description
			}
			if flags.Changed("importance") {
				if t.Importance, err = db.ParseImportance(importance); err != nil {
					return err
				}
			}
			if flags.Changed("due") {
				if t.DueAt, err = parseDue(due, cfg.Location()); err != nil {
					return err
				}
			}
			if _, err := database.UpsertTask(t); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated task %d\n", id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "New title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")
	cmd.Flags().StringVarP(&importance, "importance", "i", "", "New importance")
	cmd.Flags().StringVar(&due, "due", "", `New due date (YYYY-MM-DD, "" clears)`)
	return cmd
}

func newTaskRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"delete"},
		Short:   "Delete tasks",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, database, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer database.Close()

			for _, arg := range args {
				id, err := parseTaskID(arg)
				if err != nil {
					return err
				}
				if err := database.DeleteTask(id); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d task(s)\n", len(args))
			return nil
		},
	}
}
