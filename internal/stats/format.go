package stats

import (
	"fmt"
	"strings"
)

// FormatDuration renders seconds as "1h 2m", "25m" or "45s". Seconds
// are only shown when the duration is under a minute.
func FormatDuration(seconds int64) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm", minutes)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// FormatDetailedDuration renders seconds as "1h 2m 5s". Minutes are
// printed whenever hours are, so 3600 becomes "1h 0m 0s".
func FormatDetailedDuration(seconds int64) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	var b strings.Builder
	if hours > 0 {
		fmt.Fprintf(&b, "%dh ", hours)
	}
	if minutes > 0 || hours > 0 {
		fmt.Fprintf(&b, "%dm ", minutes)
	}
	fmt.Fprintf(&b, "%ds", secs)
	return strings.TrimSpace(b.String())
}

// FormatDecimal renders v with one decimal place.
func FormatDecimal(v float64) string {
	return fmt.Sprintf("%.1f", v)
}
