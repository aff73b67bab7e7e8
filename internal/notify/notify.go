// Package notify announces finished pomodoros with a desktop alert
// and an optional user-configured hook command.
package notify

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/google/shlex"
	"go.uber.org/zap"

	"github.com/Harshith0710/ToDoApp/internal/logging"
	"github.com/Harshith0710/ToDoApp/internal/stats"
)

// AppName is shown as the alert's source application.
const AppName = "todo"

// hookTimeout bounds a completion hook run.
const hookTimeout = 30 * time.Second

// Options configures a Notifier.
type Options struct {
	// Desktop enables desktop alerts.
	Desktop bool
	// Hook is a command line run after each completed session.
	// It is split with shell quoting rules and run without a shell.
	Hook   string
	Logger *zap.Logger
}

// Notifier is safe for concurrent use.
type Notifier struct {
	desktop bool
	hook    []string
	log     *zap.Logger

	alert func(title, message string) error
	run   func(ctx context.Context, argv, env []string) error
}

// New validates the hook command line and returns a Notifier.
func New(opts Options) (*Notifier, error) {
	var hook []string
	if opts.Hook != "" {
		argv, err := shlex.Split(opts.Hook)
		if err != nil {
			return nil, fmt.Errorf("parsing completion hook: %w", err)
		}
		hook = argv
	}
	beeep.AppName = AppName
	return &Notifier{
		desktop: opts.Desktop,
		hook:    hook,
		log:     logging.OrNop(opts.Logger),
		alert:   desktopAlert,
		run:     runCommand,
	}, nil
}

// SessionComplete alerts and runs the hook for s. Failures are
// logged and never returned.
func (n *Notifier) SessionComplete(ctx context.Context, s stats.FocusSession) {
	if n.desktop {
		msg := fmt.Sprintf("%s session finished: %s",
			modeLabel(s.Mode), stats.FormatDetailedDuration(s.DurationSeconds))
		if err := n.alert("Time for a break", msg); err != nil {
			n.log.Warn("desktop alert failed", zap.Error(err))
		}
	}

	if len(n.hook) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, hookTimeout)
	defer cancel()

	env := []string{
		"TODO_SESSION_MODE=" + string(s.Mode),
		"TODO_SESSION_SECONDS=" + strconv.FormatInt(s.DurationSeconds, 10),
	}
	if err := n.run(ctx, n.hook, env); err != nil {
		n.log.Warn("completion hook failed",
			zap.Strings("argv", n.hook),
			zap.Error(err),
		)
		return
	}
	n.log.Debug("completion hook ran", zap.Strings("argv", n.hook))
}

func modeLabel(m stats.Mode) string {
	if m == stats.ModePomodoro {
		return "Pomodoro"
	}
	return "Focus"
}

func desktopAlert(title, message string) error {
	return beeep.Alert(title, message, "")
}

func runCommand(ctx context.Context, argv, env []string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), env...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, out)
	}
	return nil
}
