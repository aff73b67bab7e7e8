package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Harshith0710/ToDoApp/internal/stats"
	"github.com/Harshith0710/ToDoApp/internal/timer"
)

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// TimerModel drives a timer.Timer from a bubbletea program. The
// program ticks once per second; the timer ignores ticks while
// paused.
type TimerModel struct {
	timer    *timer.Timer
	keys     timerKeyMap
	help     help.Model
	progress progress.Model

	status    string
	err       error
	completed int
	quitting  bool
}

// NewTimerModel returns a model for t.
func NewTimerModel(t *timer.Timer) TimerModel {
	return TimerModel{
		timer:    t,
		keys:     timerKeys,
		help:     help.New(),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		status:   "Press space to start",
	}
}

// Completed returns the number of pomodoros finished while the
// model ran.
func (m TimerModel) Completed() int {
	return m.completed
}

// Err returns the last error reported by the timer.
func (m TimerModel) Err() error {
	return m.err
}

func (m TimerModel) Init() tea.Cmd {
	return tickCmd()
}

func (m TimerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.progress.Width = min(max(msg.Width-8, 10), 60)
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		before := m.timer.State()
		if err := m.timer.Tick(); err != nil {
			m.err = err
		}
		after := m.timer.State()
		if before.Mode == stats.ModePomodoro && before.Running && !after.Running {
			m.completed++
			m.status = "Pomodoro complete. Time for a break!"
		}
		return m, tickCmd()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m TimerModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		// A focus session in progress is kept; an unfinished
		// pomodoro is dropped.
		if err := m.timer.Reset(); err != nil {
			m.err = err
		}
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Toggle):
		m.timer.Toggle()
		if m.timer.State().Running {
			m.status = "Running"
		} else {
			m.status = "Paused"
		}

	case key.Matches(msg, m.keys.Reset):
		mode := m.timer.State().Mode
		if err := m.timer.Reset(); err != nil {
			m.err = err
		}
		if mode == stats.ModeFocus {
			m.status = "Reset; session saved"
		} else {
			m.status = "Reset"
		}

	case key.Matches(msg, m.keys.Mode):
		next := stats.ModePomodoro
		if m.timer.State().Mode == stats.ModePomodoro {
			next = stats.ModeFocus
		}
		m.timer.SetMode(next)
		m.status = "Switched to " + modeTitle(next)
	}
	return m, nil
}

func modeTitle(mode stats.Mode) string {
	if mode == stats.ModePomodoro {
		return "Pomodoro"
	}
	return "Focus"
}

func (m TimerModel) View() string {
	if m.quitting {
		return ""
	}
	st := m.timer.State()

	var b strings.Builder
	b.WriteString(titleStyle.Render(modeTitle(st.Mode)))
	b.WriteString("\n")
	b.WriteString(clockStyle.Render(timer.FormatClock(st.ElapsedSeconds)))
	b.WriteString("\n")

	if st.Mode == stats.ModePomodoro {
		total := m.timer.PomodoroSeconds()
		done := 0.0
		if total > 0 {
			done = float64(total-st.ElapsedSeconds) / float64(total)
		}
		b.WriteString(m.progress.ViewAs(done))
		b.WriteString("\n\n")
	}

	status := dimStyle.Render(m.status)
	if st.Running {
		status = runningStyle.Render(m.status)
	}
	b.WriteString(status)
	if m.completed > 0 {
		b.WriteString(dimStyle.Render(
			"  (" + pluralPomodoros(m.completed) + " completed)"))
	}
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return appStyle.Render(b.String())
}

func pluralPomodoros(n int) string {
	if n == 1 {
		return "1 pomodoro"
	}
	return fmt.Sprintf("%d pomodoros", n)
}
