package main

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Harshith0710/ToDoApp/internal/config"
	"github.com/Harshith0710/ToDoApp/internal/notify"
	"github.com/Harshith0710/ToDoApp/internal/stats"
	"github.com/Harshith0710/ToDoApp/internal/timer"
	"github.com/Harshith0710/ToDoApp/internal/tui"
)

func newTimerCmd() *cobra.Command {
	var pomodoro bool
	cmd := &cobra.Command{
		Use:   "timer",
		Short: "Run the interactive focus timer",
		Long: `Run the interactive focus timer.

FOCUS mode counts up; resetting or quitting saves the session.
POMODORO mode counts down and saves the session when it runs out.
Sessions shorter than min_session_seconds are not recorded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTimer(cmd, pomodoro)
		},
	}
	cmd.Flags().BoolVarP(&pomodoro, "pomodoro", "p", false, "Start in pomodoro mode")
	config.RegisterTimerFlags(cmd.Flags())
	return cmd
}

func runTimer(cmd *cobra.Command, pomodoro bool) error {
	cfg, database, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	notifier, err := notify.New(notify.Options{
		Desktop: cfg.Notify,
		Hook:    cfg.CompletionHook,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	defer wg.Wait()
	t := timer.New(timer.Options{
		Pomodoro:   cfg.Pomodoro(),
		MinSession: cfg.MinSession(),
		Recorder:   database,
		OnComplete: func(s stats.FocusSession) {
			wg.Add(1)
			go func() {
				defer wg.Done()
				notifier.SessionComplete(context.Background(), s)
			}()
		},
	})
	if pomodoro {
		t.SetMode(stats.ModePomodoro)
	}

	final, err := tea.NewProgram(
		tui.NewTimerModel(t),
		tea.WithContext(cmd.Context()),
		tea.WithOutput(cmd.OutOrStdout()),
	).Run()
	if err != nil {
		return fmt.Errorf("running timer: %w", err)
	}
	m, ok := final.(tui.TimerModel)
	if !ok {
		return nil
	}
	if m.Err() != nil {
		logger.Warn("timer", zap.Error(m.Err()))
		return m.Err()
	}
	if n := m.Completed(); n > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Completed %d pomodoro(s)\n", n)
	}
	return nil
}
