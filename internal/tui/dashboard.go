// Package tui renders the statistics dashboard and runs the
// interactive focus timer in the terminal.
package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Harshith0710/ToDoApp/internal/stats"
)

const (
	cardWidth   = 16
	chartHeight = 8
	// minWidth is the narrowest layout rendered; smaller widths
	// are treated as this.
	minWidth = 24
)

type card struct {
	label string
	value string
}

func summaryCards(s stats.Snapshot) []card {
	return []card{
		{"Today", stats.FormatDuration(s.TodaySeconds)},
		{"This week", stats.FormatDuration(s.ThisWeekSeconds)},
		{"This month", stats.FormatDuration(s.ThisMonthSeconds)},
		{"All time", stats.FormatDuration(s.AllTimeSeconds)},
		{"Sessions", strconv.Itoa(s.TotalSessions)},
		{"Avg session", stats.FormatDetailedDuration(s.AverageSessionSeconds)},
		{"Today's sessions", strconv.Itoa(s.SessionsToday)},
		{"Sessions / day", stats.FormatDecimal(s.AverageSessionsPerDay)},
		{"Current streak", days(s.CurrentStreak)},
		{"Longest streak", days(s.LongestStreak)},
	}
}

func days(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

// RenderDashboard renders the summary cards, the chart and the
// recent sessions of res to fit within width columns.
func RenderDashboard(res stats.Result, width int) string {
	width = max(width, minWidth)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Focus statistics"))
	b.WriteString("\n\n")

	cards := summaryCards(res.Stats)
	rendered := make([]string, len(cards))
	for i, c := range cards {
		rendered[i] = cardStyle.Render(
			cardLabelStyle.Render(c.label) + "\n" +
				cardValueStyle.Render(c.value),
		)
	}
	perRow := max(1, width/lipgloss.Width(rendered[0]))
	for i := 0; i < len(rendered); i += perRow {
		end := min(i+perRow, len(rendered))
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered[i:end]...))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(headerStyle.Render(res.Period.Title()))
	b.WriteString("\n")
	b.WriteString(renderChart(res.Chart, res.Period, width))

	b.WriteString("\n")
	b.WriteString(headerStyle.Render("Recent sessions"))
	b.WriteString("\n")
	if len(res.Recent) == 0 {
		b.WriteString(dimStyle.Render("No sessions yet"))
		b.WriteString("\n")
	}
	for _, s := range res.Recent {
		date, mode, dur := recentRow(s)
		b.WriteString(dimStyle.Render(date))
		b.WriteString("  ")
		b.WriteString(cardLabelStyle.Render(mode))
		b.WriteString(cardValueStyle.Render(dur))
		b.WriteString("\n")
	}
	return b.String()
}

func recentRow(s stats.FocusSession) (date, mode, dur string) {
	return s.StartTime.Format("Jan 02 15:04"),
		fmt.Sprintf("%-10s", s.Mode),
		stats.FormatDetailedDuration(s.DurationSeconds)
}

// axisLabel shortens a bucket label for the chart's x axis.
func axisLabel(label string, period stats.ChartPeriod) string {
	if period == stats.Last24Hours && len(label) >= 2 {
		return label[:2]
	}
	return label
}

// renderChart draws a vertical bar chart, one column per bucket,
// scaled to the largest bucket.
func renderChart(chart []stats.ChartData, period stats.ChartPeriod, width int) string {
	if len(chart) == 0 {
		return dimStyle.Render("No data") + "\n"
	}

	var peak int64
	labelWidth := 0
	for _, d := range chart {
		peak = max(peak, d.Value)
		labelWidth = max(labelWidth, len(axisLabel(d.Label, period)))
	}
	if peak == 0 {
		return dimStyle.Render("No focus sessions in this period") + "\n"
	}

	yLabel := stats.FormatDuration(peak)
	yWidth := len(yLabel) + 1
	col := max(labelWidth+1, 2)
	if yWidth+col*len(chart) > width {
		col = max(2, (width-yWidth)/len(chart))
	}
	bar := strings.Repeat("█", col-1)
	gap := strings.Repeat(" ", col-1)

	var b strings.Builder
	for row := chartHeight; row >= 1; row-- {
		label := strings.Repeat(" ", yWidth)
		switch row {
		case chartHeight:
			label = fmt.Sprintf("%*s ", yWidth-1, yLabel)
		case 1:
			label = fmt.Sprintf("%*s ", yWidth-1, "0")
		}
		b.WriteString(dimStyle.Render(label))

		threshold := float64(row) / float64(chartHeight)
		for _, d := range chart {
			ratio := float64(d.Value) / float64(peak)
			switch {
			case d.Value > 0 && (ratio >= threshold || row == 1):
				b.WriteString(barFilledStyle.Render(bar))
			case row == 1:
				b.WriteString(barEmptyStyle.Render(strings.Repeat("▁", col-1)))
			default:
				b.WriteString(gap)
			}
			b.WriteString(" ")
		}
		b.WriteString("\n")
	}

	b.WriteString(strings.Repeat(" ", yWidth))
	for _, d := range chart {
		l := axisLabel(d.Label, period)
		if len(l) > col {
			l = l[:col]
		}
		b.WriteString(dimStyle.Render(fmt.Sprintf("%-*s", col, l)))
	}
	b.WriteString("\n")
	return b.String()
}

// RenderPlain renders res as unstyled text for pipes and files.
func RenderPlain(res stats.Result) string {
	var b strings.Builder
	for _, c := range summaryCards(res.Stats) {
		fmt.Fprintf(&b, "%-18s %s\n", c.label+":", c.value)
	}
	fmt.Fprintf(&b, "\n%s\n", res.Period.Title())
	for _, d := range res.Chart {
		fmt.Fprintf(&b, "%-6s %s\n", d.Label, d.DisplayValue)
	}
	if len(res.Recent) > 0 {
		b.WriteString("\nRecent sessions\n")
		for _, s := range res.Recent {
			date, mode, dur := recentRow(s)
			fmt.Fprintf(&b, "%s  %s%s\n", date, mode, dur)
		}
	}
	return b.String()
}
