package timer

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harshith0710/ToDoApp/internal/stats"
)

type fakeRecorder struct {
	sessions []stats.FocusSession
	err      error
}

func (r *fakeRecorder) RecordSession(s stats.FocusSession) error {
	if r.err != nil {
		return r.err
	}
	r.sessions = append(r.sessions, s)
	return nil
}

// fakeClock is advanced by tickN.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

var t0 = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestTimer(opts Options) (*Timer, *fakeRecorder, *fakeClock) {
	rec := &fakeRecorder{}
	clock := &fakeClock{now: t0}
	opts.Recorder = rec
	opts.Clock = clock.Now
	return New(opts), rec, clock
}

// tickN advances the timer and the clock n seconds.
func tickN(t *testing.T, tm *Timer, clock *fakeClock, n int) {
	t.Helper()
	for range n {
		clock.now = clock.now.Add(time.Second)
		require.NoError(t, tm.Tick())
	}
}

func TestNewDefaults(t *testing.T) {
	tm := New(Options{})
	assert.Equal(t, State{Mode: stats.ModeFocus}, tm.State())
	assert.Equal(t, int64(25*60), tm.PomodoroSeconds())
}

func TestFocusCountsUp(t *testing.T) {
	tm, _, clock := newTestTimer(Options{})
	tm.Start()
	tickN(t, tm, clock, 5)
	assert.Equal(t, State{Mode: stats.ModeFocus, ElapsedSeconds: 5, Running: true}, tm.State())

	tm.Pause()
	tickN(t, tm, clock, 3)
	assert.Equal(t, int64(5), tm.State().ElapsedSeconds, "paused timer must not advance")
}

func TestStartIsIdempotent(t *testing.T) {
	tm, rec, clock := newTestTimer(Options{})
	tm.Start()
	tickN(t, tm, clock, 90)
	tm.Start()
	tm.Pause()
	tm.Start()
	tickN(t, tm, clock, 30)
	require.NoError(t, tm.Reset())

	require.Len(t, rec.sessions, 1)
	// The session starts at the first Start, not the restart.
	assert.Equal(t, t0, rec.sessions[0].StartTime)
	assert.Equal(t, int64(120), rec.sessions[0].DurationSeconds)
}

func TestFocusResetSavesSession(t *testing.T) {
	tm, rec, clock := newTestTimer(Options{})
	tm.Start()
	tickN(t, tm, clock, 61)
	require.NoError(t, tm.Reset())

	require.Len(t, rec.sessions, 1)
	got := rec.sessions[0]
	assert.Equal(t, stats.ModeFocus, got.Mode)
	assert.Equal(t, int64(61), got.DurationSeconds)
	assert.Equal(t, t0, got.StartTime)
	assert.Equal(t, t0.Add(61*time.Second), got.EndTime)
	assert.Equal(t, State{Mode: stats.ModeFocus}, tm.State())
}

func TestFocusResetDropsShortSession(t *testing.T) {
	tm, rec, clock := newTestTimer(Options{})
	tm.Start()
	tickN(t, tm, clock, 59)
	require.NoError(t, tm.Reset())
	assert.Empty(t, rec.sessions)

	// Reset without a session in progress records nothing.
	require.NoError(t, tm.Reset())
	assert.Empty(t, rec.sessions)
}

func TestMinSessionOption(t *testing.T) {
	tm, rec, clock := newTestTimer(Options{MinSession: 10 * time.Second})
	tm.Start()
	tickN(t, tm, clock, 10)
	require.NoError(t, tm.Reset())
	assert.Len(t, rec.sessions, 1)
}

func TestPomodoroCountsDownAndCompletes(t *testing.T) {
	var completed []stats.FocusSession
	tm, rec, clock := newTestTimer(Options{
		Pomodoro:   2 * time.Minute,
		OnComplete: func(s stats.FocusSession) { completed = append(completed, s) },
	})
	tm.SetMode(stats.ModePomodoro)
	assert.Equal(t, State{Mode: stats.ModePomodoro, ElapsedSeconds: 120}, tm.State())

	tm.Start()
	tickN(t, tm, clock, 120)
	assert.Equal(t, int64(0), tm.State().ElapsedSeconds)
	assert.True(t, tm.State().Running)
	assert.Empty(t, rec.sessions, "reaching zero is not yet completion")

	tickN(t, tm, clock, 1)
	require.Len(t, rec.sessions, 1)
	got := rec.sessions[0]
	assert.Equal(t, stats.ModePomodoro, got.Mode)
	assert.Equal(t, int64(120), got.DurationSeconds)
	assert.Equal(t, t0, got.StartTime)
	assert.Equal(t, t0.Add(121*time.Second), got.EndTime)

	require.Len(t, completed, 1)
	assert.Equal(t, got, completed[0])
	assert.Equal(t, State{Mode: stats.ModePomodoro, ElapsedSeconds: 120}, tm.State())

	// A new start begins a fresh pomodoro.
	tm.Start()
	tickN(t, tm, clock, 1)
	assert.Equal(t, int64(119), tm.State().ElapsedSeconds)
	assert.Len(t, rec.sessions, 1)
}

func TestPomodoroResetDiscards(t *testing.T) {
	tm, rec, clock := newTestTimer(Options{Pomodoro: 2 * time.Minute})
	tm.SetMode(stats.ModePomodoro)
	tm.Start()
	tickN(t, tm, clock, 100)
	require.NoError(t, tm.Reset())
	assert.Empty(t, rec.sessions)
	assert.Equal(t, State{Mode: stats.ModePomodoro, ElapsedSeconds: 120}, tm.State())
}

func TestSetModeDiscardsSession(t *testing.T) {
	tm, rec, clock := newTestTimer(Options{})
	tm.Start()
	tickN(t, tm, clock, 300)
	tm.SetMode(stats.ModePomodoro)
	tm.SetMode(stats.ModeFocus)
	require.NoError(t, tm.Reset())
	assert.Empty(t, rec.sessions)
	assert.False(t, tm.State().Running)
}

func TestToggle(t *testing.T) {
	tm, _, _ := newTestTimer(Options{})
	tm.Toggle()
	assert.True(t, tm.State().Running)
	tm.Toggle()
	assert.False(t, tm.State().Running)
}

func TestRecorderError(t *testing.T) {
	called := false
	tm, rec, clock := newTestTimer(Options{
		Pomodoro:   time.Minute,
		OnComplete: func(stats.FocusSession) { called = true },
	})
	rec.err = errors.New("disk full")

	tm.SetMode(stats.ModePomodoro)
	tm.Start()
	for range 60 {
		clock.now = clock.now.Add(time.Second)
		require.NoError(t, tm.Tick())
	}
	err := tm.Tick()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.False(t, called)
	assert.False(t, tm.State().Running)
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{60, "00:01:00"},
		{1500, "00:25:00"},
		{3725, "01:02:05"},
		{360000, "100:00:00"},
		{-5, "00:00:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatClock(tt.seconds), "FormatClock(%d)", tt.seconds)
	}
}
