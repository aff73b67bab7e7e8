package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Harshith0710/ToDoApp/internal/timeutil"
)

var (
	// ErrEmptyTitle is returned for blank task titles.
	ErrEmptyTitle = errors.New("task cannot be empty or contain only spaces")
	// ErrUnchangedTitle is returned when an edit leaves the title
	// as it was.
	ErrUnchangedTitle = errors.New("task text is unchanged")
)

// Importance ranks a task. The zero value is not valid; use
// ImportanceNormal.
type Importance string

const (
	ImportanceUrgent   Importance = "urgent"
	ImportanceHigh     Importance = "high_priority"
	ImportanceNormal   Importance = "normal"
	ImportanceOptional Importance = "optional"
)

// Importances lists every importance, most important first.
var Importances = []Importance{
	ImportanceUrgent, ImportanceHigh, ImportanceNormal, ImportanceOptional,
}

// ParseImportance accepts an importance name case-insensitively.
// Hyphens and spaces are treated as underscores and "high" is
// accepted for high_priority. An empty string yields normal.
func ParseImportance(s string) (Importance, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.NewReplacer("-", "_", " ", "_").Replace(v)
	switch v {
	case "":
		return ImportanceNormal, nil
	case "high":
		return ImportanceHigh, nil
	}
	for _, imp := range Importances {
		if string(imp) == v {
			return imp, nil
		}
	}
	return "", fmt.Errorf("unknown importance %q", s)
}

// importanceRank orders tasks most important first. Keep in sync
// with Importances.
const importanceRank = `CASE importance
	WHEN 'urgent' THEN 0
	WHEN 'high_priority' THEN 1
	WHEN 'normal' THEN 2
	ELSE 3 END`

// Task is a to-do item.
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	IsDone      bool       `json:"is_done"`
	Importance  Importance `json:"importance"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	CreatedAt   string     `json:"created_at"`
	UpdatedAt   string     `json:"updated_at"`
}

// TaskFilter narrows ListTasks. Zero values match everything.
type TaskFilter struct {
	Done       *bool
	Importance Importance
}

// ValidateTaskTitle checks a title entered by the user. When
// original is non-nil the title is an edit of that text and must
// differ from it after trimming.
func ValidateTaskTitle(newText string, original *string) error {
	trimmed := strings.TrimSpace(newText)
	if trimmed == "" {
		return ErrEmptyTitle
	}
	if original != nil && trimmed == strings.TrimSpace(*original) {
		return ErrUnchangedTitle
	}
	return nil
}

const taskCols = `id, title, description, is_done, importance,
	due_at, created_at, updated_at`

func scanTaskRow(rs rowScanner) (Task, error) {
	var (
		t     Task
		imp   string
		dueAt sql.NullString
	)
	err := rs.Scan(
		&t.ID, &t.Title, &t.Description, &t.IsDone, &imp,
		&dueAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return Task{}, err
	}
	t.Importance = Importance(imp)
	if dueAt.Valid && dueAt.String != "" {
		due, err := timeutil.Parse(dueAt.String)
		if err != nil {
			return Task{}, err
		}
		t.DueAt = &due
	}
	return t, nil
}

// ListTasks returns tasks matching f: open tasks first, then by
// importance, due date (undated last) and id.
func (db *DB) ListTasks(
	ctx context.Context, f TaskFilter,
) ([]Task, error) {
	preds := []string{"1=1"}
	var args []any
	if f.Done != nil {
		preds = append(preds, "is_done = ?")
		args = append(args, *f.Done)
	}
	if f.Importance != "" {
		preds = append(preds, "importance = ?")
		args = append(args, string(f.Importance))
	}

	query := "SELECT " + taskCols + " FROM tasks WHERE " +
		strings.Join(preds, " AND ") +
		" ORDER BY is_done, " + importanceRank +
		", due_at IS NULL, due_at, id"

	rows, err := db.reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		t, err := scanTaskRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// GetTask returns a single task by ID.
func (db *DB) GetTask(ctx context.Context, id int64) (Task, error) {
	row := db.reader.QueryRowContext(ctx,
		"SELECT "+taskCols+" FROM tasks WHERE id = ?", id)
	t, err := scanTaskRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Task{}, fmt.Errorf("getting task %d: %w", id, err)
	}
	return t, nil
}

// UpsertTask inserts t when its ID is zero and updates the
// existing row otherwise. It returns the task's ID.
func (db *DB) UpsertTask(t Task) (int64, error) {
	if err := ValidateTaskTitle(t.Title, nil); err != nil {
		return 0, err
	}
	if t.Importance == "" {
		t.Importance = ImportanceNormal
	}
	if _, err := ParseImportance(string(t.Importance)); err != nil {
		return 0, err
	}
	var due any
	if t.DueAt != nil {
		due = timeutil.Sortable(*t.DueAt)
	}
	title := strings.TrimSpace(t.Title)

	db.mu.Lock()
	defer db.mu.Unlock()

	if t.ID == 0 {
		res, err := db.writer.Exec(`
			INSERT INTO tasks (title, description, is_done, importance, due_at)
			VALUES (?, ?, ?, ?, ?)`,
			title, t.Description, t.IsDone, string(t.Importance), due,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting task: %w", err)
		}
		return res.LastInsertId()
	}

	res, err := db.writer.Exec(`
		UPDATE tasks SET
			title = ?, description = ?, is_done = ?,
			importance = ?, due_at = ?,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		WHERE id = ?`,
		title, t.Description, t.IsDone, string(t.Importance), due, t.ID,
	)
	if err != nil {
		return 0, fmt.Errorf("updating task %d: %w", t.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, fmt.Errorf("task %d: %w", t.ID, ErrNotFound)
	}
	return t.ID, nil
}

// SetTaskDone marks a task done or open.
func (db *DB) SetTaskDone(id int64, done bool) error {
	db.mu.Lock()
	res, err := db.writer.Exec(`
		UPDATE tasks SET is_done = ?,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		WHERE id = ?`, done, id)
	db.mu.Unlock()
	if err != nil {
		return fmt.Errorf("updating task %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteTask removes a task by ID.
func (db *DB) DeleteTask(id int64) error {
	db.mu.Lock()
	res, err := db.writer.Exec("DELETE FROM tasks WHERE id = ?", id)
	db.mu.Unlock()
	if err != nil {
		return fmt.Errorf("deleting task %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return nil
}
