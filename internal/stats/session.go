// Package stats derives focus statistics and chart series from the
// recorded focus sessions. Everything here is a pure function of the
// session set and an injected "now"; nothing is cached between calls.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Mode is the timer mode a session was recorded with.
type Mode string

const (
	// ModeFocus is the open-ended count-up timer.
	ModeFocus Mode = "FOCUS"
	// ModePomodoro is the fixed-length countdown timer.
	ModePomodoro Mode = "POMODORO"
)

// ParseMode parses a mode name case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case ModeFocus:
		return ModeFocus, nil
	case ModePomodoro:
		return ModePomodoro, nil
	}
	return "", fmt.Errorf("unknown session mode %q", s)
}

// FocusSession is one completed timer run. DurationSeconds is the
// authoritative active time and need not equal EndTime-StartTime.
type FocusSession struct {
	ID              string    `json:"id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationSeconds int64     `json:"duration_seconds"`
	Mode            Mode      `json:"mode"`
}

// Recent returns up to n sessions ordered newest first. The input
// slice is not modified.
func Recent(sessions []FocusSession, n int) []FocusSession {
	if n <= 0 || len(sessions) == 0 {
		return []FocusSession{}
	}
	sorted := make([]FocusSession, len(sessions))
	copy(sorted, sessions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime.After(sorted[j].StartTime)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
