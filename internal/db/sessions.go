package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Harshith0710/ToDoApp/internal/stats"
	"github.com/Harshith0710/ToDoApp/internal/timeutil"
)

// ErrInvalidSession is returned when a session fails validation
// before it is stored.
var ErrInvalidSession = errors.New("invalid session")

// Session sources record which component produced a session.
const (
	SourceTimer  = "timer"
	SourceManual = "manual"
	SourceImport = "import"
)

// sessionCols is the column list for session queries. Keep in
// sync with scanSessionRow.
const sessionCols = `id, start_time, end_time, duration_seconds,
	mode, source, created_at`

const (
	// DefaultSessionLimit is the number of recent sessions returned
	// when no limit is given.
	DefaultSessionLimit = 10
	// MaxSessionLimit is the maximum number of sessions returned
	// by a limited listing.
	MaxSessionLimit = 500
)

// Session is a stored focus session.
type Session struct {
	stats.FocusSession
	Source    string `json:"source"`
	CreatedAt string `json:"created_at"`
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows,
// allowing a single scan helper for both.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSessionRow scans sessionCols into a Session.
func scanSessionRow(rs rowScanner) (Session, error) {
	var (
		s          Session
		start, end string
		mode       string
	)
	err := rs.Scan(
		&s.ID, &start, &end, &s.DurationSeconds,
		&mode, &s.Source, &s.CreatedAt,
	)
	if err != nil {
		return Session{}, err
	}
	if s.StartTime, err = timeutil.Parse(start); err != nil {
		return Session{}, err
	}
	if s.EndTime, err = timeutil.Parse(end); err != nil {
		return Session{}, err
	}
	s.Mode = stats.Mode(mode)
	return s, nil
}

// ValidateSession checks the invariants a session must satisfy
// before it is stored.
func ValidateSession(s stats.FocusSession) error {
	switch {
	case s.StartTime.IsZero():
		return fmt.Errorf("%w: start time is required", ErrInvalidSession)
	case s.EndTime.IsZero():
		return fmt.Errorf("%w: end time is required", ErrInvalidSession)
	case s.EndTime.Before(s.StartTime):
		return fmt.Errorf("%w: end time before start time", ErrInvalidSession)
	case s.DurationSeconds < 0:
		return fmt.Errorf("%w: negative duration", ErrInvalidSession)
	}
	if _, err := stats.ParseMode(string(s.Mode)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	return nil
}

// InsertSession validates and stores s. An empty ID is replaced by
// a random UUID. Inserting an ID that already exists leaves the row
// untouched, reports inserted=false and returns the existing row as
// stored.
func (db *DB) InsertSession(s Session) (stored Session, inserted bool, err error) {
	if err := ValidateSession(s.FocusSession); err != nil {
		return Session{}, false, err
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Source == "" {
		s.Source = SourceTimer
	}
	mode, _ := stats.ParseMode(string(s.Mode))
	s.Mode = mode

	db.mu.Lock()
	res, err := db.writer.Exec(`
		INSERT INTO focus_sessions (
			id, start_time, end_time, duration_seconds, mode, source
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		s.ID, timeutil.Sortable(s.StartTime),
		timeutil.Sortable(s.EndTime), s.DurationSeconds,
		string(s.Mode), s.Source,
	)
	db.mu.Unlock()
	if err != nil {
		return Session{}, false, fmt.Errorf("inserting session %s: %w", s.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		existing, err := db.GetSession(context.Background(), s.ID)
		if err != nil {
			return Session{}, false, err
		}
		return existing, false, nil
	}
	db.notifySessionsChanged()
	return s, true, nil
}

// InsertSessions validates and stores sessions in one transaction.
// Rows whose ID already exists are left untouched. It returns the
// number of rows inserted; a validation failure aborts the batch.
func (db *DB) InsertSessions(sessions []Session) (int, error) {
	for i, s := range sessions {
		if err := ValidateSession(s.FocusSession); err != nil {
			return 0, fmt.Errorf("session %d: %w", i, err)
		}
	}

	inserted := 0
	err := db.Update(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO focus_sessions (
				id, start_time, end_time, duration_seconds, mode, source
			) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		for _, s := range sessions {
			if s.ID == "" {
				s.ID = uuid.NewString()
			}
			if s.Source == "" {
				s.Source = SourceImport
			}
			mode, _ := stats.ParseMode(string(s.Mode))
			res, err := stmt.Exec(
				s.ID, timeutil.Sortable(s.StartTime),
				timeutil.Sortable(s.EndTime), s.DurationSeconds,
				string(mode), s.Source,
			)
			if err != nil {
				return fmt.Errorf("inserting session %s: %w", s.ID, err)
			}
			n, _ := res.RowsAffected()
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if inserted > 0 {
		db.notifySessionsChanged()
	}
	return inserted, nil
}

// RecordSession stores a session produced by the focus timer.
func (db *DB) RecordSession(s stats.FocusSession) error {
	_, _, err := db.InsertSession(Session{
		FocusSession: s, Source: SourceTimer,
	})
	return err
}

// GetSession returns a single session by ID.
func (db *DB) GetSession(
	ctx context.Context, id string,
) (Session, error) {
	row := db.reader.QueryRowContext(ctx,
		"SELECT "+sessionCols+" FROM focus_sessions WHERE id = ?", id)
	s, err := scanSessionRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("getting session %s: %w", id, err)
	}
	return s, nil
}

// ListSessions returns sessions newest first. A limit of zero
// returns every session.
func (db *DB) ListSessions(
	ctx context.Context, limit int,
) ([]Session, error) {
	query := "SELECT " + sessionCols + ` FROM focus_sessions
		ORDER BY start_time DESC, id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return db.querySessions(ctx, query, args...)
}

// ListFocusSessions returns every session as the value type the
// statistics engine consumes, newest first.
func (db *DB) ListFocusSessions(
	ctx context.Context,
) ([]stats.FocusSession, error) {
	rows, err := db.ListSessions(ctx, 0)
	if err != nil {
		return nil, err
	}
	out := make([]stats.FocusSession, len(rows))
	for i, s := range rows {
		out[i] = s.FocusSession
	}
	return out, nil
}

func (db *DB) querySessions(
	ctx context.Context, query string, args ...any,
) ([]Session, error) {
	rows, err := db.reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		s, err := scanSessionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

// DeleteAllSessions removes every focus session and returns the
// number of rows deleted.
func (db *DB) DeleteAllSessions() (int, error) {
	db.mu.Lock()
	res, err := db.writer.Exec("DELETE FROM focus_sessions")
	db.mu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("deleting sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		db.notifySessionsChanged()
	}
	return int(n), nil
}

// PruneFilter defines which sessions to prune. All set criteria
// must match.
type PruneFilter struct {
	Before time.Time  // start_time < Before (zero = no filter)
	Mode   stats.Mode // exact mode ("" = no filter)
	Source string     // exact source ("" = no filter)
	All    bool       // match every session
}

// HasFilters reports whether at least one filter is set.
func (f PruneFilter) HasFilters() bool {
	return f.All || !f.Before.IsZero() || f.Mode != "" || f.Source != ""
}

// FindPruneCandidates returns sessions matching all filter
// criteria, newest first.
func (db *DB) FindPruneCandidates(
	ctx context.Context, f PruneFilter,
) ([]Session, error) {
	if !f.HasFilters() {
		return nil, fmt.Errorf("at least one filter is required")
	}

	preds := []string{"1=1"}
	var args []any
	if !f.Before.IsZero() {
		preds = append(preds, "start_time < ?")
		args = append(args, timeutil.Sortable(f.Before))
	}
	if f.Mode != "" {
		preds = append(preds, "mode = ?")
		args = append(args, string(f.Mode))
	}
	if f.Source != "" {
		preds = append(preds, "source = ?")
		args = append(args, f.Source)
	}

	return db.querySessions(ctx,
		"SELECT "+sessionCols+" FROM focus_sessions WHERE "+
			strings.Join(preds, " AND ")+
			" ORDER BY start_time DESC, id DESC",
		args...,
	)
}

// DeleteSessions removes multiple sessions by ID in a single
// transaction. Batches DELETEs in groups of 500 to stay under
// SQLite variable limits. Returns count of deleted rows.
func (db *DB) DeleteSessions(ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	total := 0
	err := db.Update(func(tx *sql.Tx) error {
		const batchSize = 500
		for i := 0; i < len(ids); i += batchSize {
			end := min(i+batchSize, len(ids))
			batch := ids[i:end]

			args := make([]any, len(batch))
			for j, id := range batch {
				args[j] = id
			}
			placeholders := strings.Repeat(",?", len(batch))[1:]

			res, err := tx.Exec(
				"DELETE FROM focus_sessions WHERE id IN ("+placeholders+")",
				args...,
			)
			if err != nil {
				return fmt.Errorf("deleting batch: %w", err)
			}
			n, _ := res.RowsAffected()
			total += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if total > 0 {
		db.notifySessionsChanged()
	}
	return total, nil
}

// DeleteSession removes a single session by ID.
func (db *DB) DeleteSession(id string) error {
	n, err := db.DeleteSessions([]string{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

