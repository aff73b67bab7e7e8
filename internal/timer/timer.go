// Package timer implements the focus timer: a stopwatch in FOCUS
// mode and a countdown in POMODORO mode. The timer does not own a
// goroutine; the caller advances it once per second with Tick.
package timer

import (
	"fmt"
	"sync"
	"time"

	"github.com/Harshith0710/ToDoApp/internal/stats"
)

const (
	// DefaultPomodoro is the length of one pomodoro.
	DefaultPomodoro = 25 * time.Minute
	// DefaultMinSession is the shortest session that is recorded.
	DefaultMinSession = time.Minute
)

// Recorder stores finished sessions. *db.DB satisfies it.
type Recorder interface {
	RecordSession(s stats.FocusSession) error
}

// Options configures a Timer. Zero values select defaults.
type Options struct {
	Pomodoro   time.Duration
	MinSession time.Duration
	Clock      func() time.Time
	Recorder   Recorder
	// OnComplete is called after a pomodoro runs out and its
	// session has been recorded.
	OnComplete func(stats.FocusSession)
}

// State is a snapshot of the timer display.
type State struct {
	Mode           stats.Mode `json:"mode"`
	ElapsedSeconds int64      `json:"elapsed_seconds"`
	Running        bool       `json:"running"`
}

// Timer is safe for concurrent use.
type Timer struct {
	mu         sync.Mutex
	state      State
	pomodoro   int64
	minSession int64
	now        func() time.Time
	recorder   Recorder
	onComplete func(stats.FocusSession)

	// sessionStart is the instant the current session began, or
	// zero when no session is in progress.
	sessionStart time.Time
}

// New returns a stopped timer in FOCUS mode.
func New(opts Options) *Timer {
	if opts.Pomodoro <= 0 {
		opts.Pomodoro = DefaultPomodoro
	}
	if opts.MinSession <= 0 {
		opts.MinSession = DefaultMinSession
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Timer{
		state:      State{Mode: stats.ModeFocus},
		pomodoro:   int64(opts.Pomodoro / time.Second),
		minSession: int64(opts.MinSession / time.Second),
		now:        opts.Clock,
		recorder:   opts.Recorder,
		onComplete: opts.OnComplete,
	}
}

// State returns the current display state.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// PomodoroSeconds returns the configured pomodoro length.
func (t *Timer) PomodoroSeconds() int64 {
	return t.pomodoro
}

// SetMode stops the timer, discards any session in progress and
// resets the display for mode.
func (t *Timer) SetMode(mode stats.Mode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = State{Mode: mode, ElapsedSeconds: t.initialSeconds(mode)}
	t.sessionStart = time.Time{}
}

// Start runs the timer. Starting a running timer is a no-op. The
// first start after a reset opens a new session.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Running {
		return
	}
	if t.sessionStart.IsZero() {
		t.sessionStart = t.now()
	}
	t.state.Running = true
}

// Pause stops the timer without ending the session.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Running = false
}

// Toggle starts a paused timer and pauses a running one.
func (t *Timer) Toggle() {
	if t.State().Running {
		t.Pause()
		return
	}
	t.Start()
}

// Reset stops the timer and restores the display. In FOCUS mode a
// session in progress is saved first; an abandoned pomodoro is
// discarded.
func (t *Timer) Reset() error {
	t.mu.Lock()
	var err error
	if t.state.Mode == stats.ModeFocus && !t.sessionStart.IsZero() {
		_, err = t.saveLocked()
	}
	t.state.Running = false
	t.state.ElapsedSeconds = t.initialSeconds(t.state.Mode)
	t.sessionStart = time.Time{}
	t.mu.Unlock()
	return err
}

// Tick advances a running timer by one second. When a pomodoro
// runs out its session is saved, the timer stops and OnComplete is
// called.
func (t *Timer) Tick() error {
	t.mu.Lock()
	if !t.state.Running {
		t.mu.Unlock()
		return nil
	}

	if t.state.Mode == stats.ModeFocus {
		t.state.ElapsedSeconds++
		t.mu.Unlock()
		return nil
	}

	if t.state.ElapsedSeconds-1 >= 0 {
		t.state.ElapsedSeconds--
		t.mu.Unlock()
		return nil
	}

	session, err := t.saveLocked()
	t.state.Running = false
	t.state.ElapsedSeconds = t.pomodoro
	onComplete := t.onComplete
	t.mu.Unlock()

	if err == nil && onComplete != nil && session != nil {
		onComplete(*session)
	}
	return err
}

// saveLocked records the session in progress and clears it.
// Sessions shorter than the minimum are dropped and yield nil.
func (t *Timer) saveLocked() (*stats.FocusSession, error) {
	start := t.sessionStart
	t.sessionStart = time.Time{}
	if start.IsZero() {
		return nil, nil
	}

	duration := t.state.ElapsedSeconds
	if t.state.Mode == stats.ModePomodoro {
		duration = t.pomodoro
	}
	if duration < t.minSession {
		return nil, nil
	}

	s := stats.FocusSession{
		StartTime:       start,
		EndTime:         t.now(),
		DurationSeconds: duration,
		Mode:            t.state.Mode,
	}
	if s.EndTime.Before(s.StartTime) {
		s.EndTime = s.StartTime
	}
	if t.recorder == nil {
		return &s, nil
	}
	if err := t.recorder.RecordSession(s); err != nil {
		return nil, fmt.Errorf("recording session: %w", err)
	}
	return &s, nil
}

func (t *Timer) initialSeconds(mode stats.Mode) int64 {
	if mode == stats.ModePomodoro {
		return t.pomodoro
	}
	return 0
}

// FormatClock renders seconds as HH:MM:SS.
func FormatClock(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d",
		seconds/3600, (seconds%3600)/60, seconds%60)
}
