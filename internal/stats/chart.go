package stats

import (
	"fmt"
	"strings"
	"time"
)

// ChartPeriod selects the bucketing of a chart series.
type ChartPeriod string

const (
	Last24Hours  ChartPeriod = "LAST_24_HOURS"
	Last7Days    ChartPeriod = "LAST_7_DAYS"
	Last12Months ChartPeriod = "LAST_12_MONTHS"
)

// DefaultPeriod is the period shown when none is selected.
const DefaultPeriod = Last7Days

// Periods lists every chart period in display order.
var Periods = []ChartPeriod{Last24Hours, Last7Days, Last12Months}

// ParsePeriod accepts the enum names as well as the short forms
// "24h", "7d" and "12m". The empty string yields DefaultPeriod.
func ParsePeriod(s string) (ChartPeriod, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return DefaultPeriod, nil
	case "24H", string(Last24Hours):
		return Last24Hours, nil
	case "7D", string(Last7Days):
		return Last7Days, nil
	case "12M", string(Last12Months):
		return Last12Months, nil
	}
	return "", fmt.Errorf(
		"invalid chart period %q: must be 24h, 7d, or 12m", s,
	)
}

// Short returns the compact form accepted by ParsePeriod.
func (p ChartPeriod) Short() string {
	switch p {
	case Last24Hours:
		return "24h"
	case Last12Months:
		return "12m"
	default:
		return "7d"
	}
}

// Title returns a human-readable name for the period.
func (p ChartPeriod) Title() string {
	switch p {
	case Last24Hours:
		return "Last 24 hours"
	case Last12Months:
		return "Last 12 months"
	default:
		return "Last 7 days"
	}
}

// ChartData is one bucket of a chart series. Value is in seconds.
type ChartData struct {
	Label        string `json:"label"`
	Value        int64  `json:"value"`
	DisplayValue string `json:"display_value"`
}

func point(label string, value int64) ChartData {
	return ChartData{
		Label:        label,
		Value:        value,
		DisplayValue: FormatDuration(value),
	}
}

// ComputeChartSeries buckets session durations for period. Every
// bucket is present, including empty ones, ordered oldest first.
// Unknown periods fall back to DefaultPeriod.
func ComputeChartSeries(
	sessions []FocusSession, now time.Time, period ChartPeriod,
) []ChartData {
	switch period {
	case Last24Hours:
		return hourlySeries(sessions, now)
	case Last12Months:
		return monthlySeries(sessions, now)
	default:
		return dailySeries(sessions, now)
	}
}

// hourlySeries buckets the last 24 hours by hour of day. Sessions
// from different days that share an hour of day land in one bucket.
func hourlySeries(sessions []FocusSession, now time.Time) []ChartData {
	loc := now.Location()
	cutoff := now.Add(-24 * time.Hour)

	var totals [24]int64
	for _, s := range sessions {
		if s.StartTime.Before(cutoff) {
			continue
		}
		totals[s.StartTime.In(loc).Hour()] += s.DurationSeconds
	}

	out := make([]ChartData, 0, len(totals))
	for hour, v := range totals {
		out = append(out, point(fmt.Sprintf("%02d:00", hour), v))
	}
	return out
}

// dailySeries buckets the seven calendar dates ending today.
func dailySeries(sessions []FocusSession, now time.Time) []ChartData {
	loc := now.Location()
	first := dateOf(now, loc).AddDate(0, 0, -6)

	var totals [7]int64
	for _, s := range sessions {
		i := daysBetween(first, dateOf(s.StartTime, loc))
		if i < 0 || i >= len(totals) {
			continue
		}
		totals[i] += s.DurationSeconds
	}

	out := make([]ChartData, 0, len(totals))
	for i, v := range totals {
		label := first.AddDate(0, 0, i).Weekday().String()[:3]
		out = append(out, point(label, v))
	}
	return out
}

// monthIndex numbers calendar months consecutively.
func monthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

// monthlySeries buckets the twelve calendar months ending with the
// current one.
func monthlySeries(sessions []FocusSession, now time.Time) []ChartData {
	loc := now.Location()
	first := monthIndex(now.In(loc)) - 11

	var totals [12]int64
	for _, s := range sessions {
		i := monthIndex(s.StartTime.In(loc)) - first
		if i < 0 || i >= len(totals) {
			continue
		}
		totals[i] += s.DurationSeconds
	}

	out := make([]ChartData, 0, len(totals))
	for i, v := range totals {
		month := time.Month((first+i)%12 + 1)
		out = append(out, point(month.String()[:3], v))
	}
	return out
}
