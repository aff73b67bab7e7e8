package db

import (
	"context"
	"fmt"
)

// Stats holds counts from the trigger-maintained counters table.
type Stats struct {
	TaskCount    int `json:"task_count"`
	DoneCount    int `json:"done_count"`
	SessionCount int `json:"session_count"`
}

// GetStats returns O(1) counts from the counters table,
// supplemented with the done-task count from the tasks index.
func (db *DB) GetStats(ctx context.Context) (Stats, error) {
	const query = `
		SELECT
			(SELECT value FROM counters WHERE key = 'task_count'),
			(SELECT COUNT(*) FROM tasks WHERE is_done = 1),
			(SELECT value FROM counters WHERE key = 'session_count')`

	var s Stats
	err := db.reader.QueryRowContext(ctx, query).Scan(
		&s.TaskCount,
		&s.DoneCount,
		&s.SessionCount,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("fetching stats: %w", err)
	}
	return s, nil
}
