// Package timeutil converts between time.Time and the timestamp
// strings stored in the database and exchanged in export files.
package timeutil

import (
	"fmt"
	"time"
)

// sortableLayout is fixed-width so stored values order correctly
// under SQLite string comparison.
const sortableLayout = "2006-01-02T15:04:05.000Z"

// Format returns t as an RFC3339Nano UTC string, or "" for the
// zero time.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// Sortable returns t in UTC with millisecond precision in a
// fixed-width layout suitable for range queries.
func Sortable(t time.Time) string {
	return t.UTC().Format(sortableLayout)
}

// Parse accepts RFC3339 timestamps with or without fractional
// seconds and returns them in UTC.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
