package stats

import "time"

// Snapshot holds the dashboard totals. It is never persisted.
type Snapshot struct {
	TodaySeconds          int64   `json:"today_seconds"`
	ThisWeekSeconds       int64   `json:"this_week_seconds"`
	ThisMonthSeconds      int64   `json:"this_month_seconds"`
	AllTimeSeconds        int64   `json:"all_time_seconds"`
	TotalSessions         int     `json:"total_sessions"`
	AverageSessionSeconds int64   `json:"average_session_seconds"`
	SessionsToday         int     `json:"sessions_today"`
	AverageSessionsPerDay float64 `json:"average_sessions_per_day"`
	CurrentStreak         int     `json:"current_streak"`
	LongestStreak         int     `json:"longest_streak"`
}

// RecentLimit is the number of sessions listed on the dashboard.
const RecentLimit = 10

// Result bundles the snapshot with the chart for one period and the
// most recent sessions.
type Result struct {
	Stats  Snapshot       `json:"stats"`
	Chart  []ChartData    `json:"chart"`
	Period ChartPeriod    `json:"period"`
	Recent []FocusSession `json:"recent_sessions"`
}

// Compute returns the snapshot, the chart series for period and the
// RecentLimit newest sessions with times in now's location.
func Compute(
	sessions []FocusSession, now time.Time, period ChartPeriod,
) Result {
	recent := Recent(sessions, RecentLimit)
	for i := range recent {
		recent[i].StartTime = recent[i].StartTime.In(now.Location())
		recent[i].EndTime = recent[i].EndTime.In(now.Location())
	}
	return Result{
		Stats:  ComputeStats(sessions, now),
		Chart:  ComputeChartSeries(sessions, now, period),
		Period: period,
		Recent: recent,
	}
}

// ComputeStats derives the snapshot for sessions as of now. Calendar
// boundaries use now's location; session order does not matter.
func ComputeStats(sessions []FocusSession, now time.Time) Snapshot {
	startOfDay, startOfWeek, startOfMonth := boundaries(now)

	var s Snapshot
	for _, fs := range sessions {
		d := fs.DurationSeconds
		s.AllTimeSeconds += d
		if !fs.StartTime.Before(startOfDay) {
			s.TodaySeconds += d
			s.SessionsToday++
		}
		if !fs.StartTime.Before(startOfWeek) {
			s.ThisWeekSeconds += d
		}
		if !fs.StartTime.Before(startOfMonth) {
			s.ThisMonthSeconds += d
		}
	}

	s.TotalSessions = len(sessions)
	if s.TotalSessions > 0 {
		s.AverageSessionSeconds = s.AllTimeSeconds / int64(s.TotalSessions)
	}
	s.AverageSessionsPerDay = averageSessionsPerDay(sessions, now)
	s.CurrentStreak, s.LongestStreak = streaks(sessions, now)
	return s
}

// boundaries returns local midnight of today, of the ISO week's
// Monday, and of the first of the month.
func boundaries(now time.Time) (day, week, month time.Time) {
	loc := now.Location()
	y, m, d := now.Date()
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday = 7
	}
	day = time.Date(y, m, d, 0, 0, 0, 0, loc)
	week = time.Date(y, m, d-(weekday-1), 0, 0, 0, 0, loc)
	month = time.Date(y, m, 1, 0, 0, 0, 0, loc)
	return day, week, month
}

// dateOf returns the calendar date of t in loc as UTC midnight, so
// that day arithmetic is exact regardless of DST transitions.
func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the whole days from a to b. Both must come
// from dateOf. Unix seconds are used because time.Duration cannot
// span more than about 292 years.
func daysBetween(a, b time.Time) int {
	return int((b.Unix() - a.Unix()) / 86400)
}

// averageSessionsPerDay divides the session count by the inclusive
// number of days since the first session's date.
func averageSessionsPerDay(sessions []FocusSession, now time.Time) float64 {
	if len(sessions) == 0 {
		return 0
	}
	earliest := sessions[0].StartTime
	for _, s := range sessions[1:] {
		if s.StartTime.Before(earliest) {
			earliest = s.StartTime
		}
	}
	loc := now.Location()
	span := daysBetween(dateOf(earliest, loc), dateOf(now, loc)) + 1
	if span <= 0 {
		return 0
	}
	return float64(len(sessions)) / float64(span)
}

// streaks returns the current and longest runs of consecutive active
// dates. The current streak is alive when the last active date is
// today or yesterday and counts backwards from that date.
func streaks(sessions []FocusSession, now time.Time) (current, longest int) {
	if len(sessions) == 0 {
		return 0, 0
	}
	loc := now.Location()

	active := make(map[time.Time]struct{}, len(sessions))
	var last time.Time
	for i, s := range sessions {
		d := dateOf(s.StartTime, loc)
		active[d] = struct{}{}
		if i == 0 || d.After(last) {
			last = d
		}
	}
	isActive := func(d time.Time) bool {
		_, ok := active[d]
		return ok
	}

	for d := range active {
		if isActive(d.AddDate(0, 0, -1)) {
			continue // not the start of a run
		}
		run := 1
		for next := d.AddDate(0, 0, 1); isActive(next); next = next.AddDate(0, 0, 1) {
			run++
		}
		longest = max(longest, run)
	}

	switch daysBetween(last, dateOf(now, loc)) {
	case 0, 1:
		current = 1
		for prev := last.AddDate(0, 0, -1); isActive(prev); prev = prev.AddDate(0, 0, -1) {
			current++
		}
	default:
		current = 0
	}
	return current, longest
}
