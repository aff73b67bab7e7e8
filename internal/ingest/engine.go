package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Harshith0710/ToDoApp/internal/db"
	"github.com/Harshith0710/ToDoApp/internal/logging"
)

// ImportStats summarizes an import run.
type ImportStats struct {
	Files      int `json:"files"`
	Imported   int `json:"imported"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// Add accumulates o into s.
func (s *ImportStats) Add(o ImportStats) {
	s.Files += o.Files
	s.Imported += o.Imported
	s.Duplicates += o.Duplicates
	s.Skipped += o.Skipped
	s.Failed += o.Failed
}

// Engine imports exchange files into the database.
type Engine struct {
	db  *db.DB
	log *zap.Logger

	mu        sync.Mutex // serializes imports
	lastStats ImportStats
	lastRun   time.Time
}

// NewEngine returns an import engine writing to database.
func NewEngine(database *db.DB, logger *zap.Logger) *Engine {
	return &Engine{db: database, log: logging.OrNop(logger)}
}

// LastImport returns the time and statistics of the last run.
func (e *Engine) LastImport() (time.Time, ImportStats) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastRun, e.lastStats
}

// IsImportFile reports whether path has an importable extension.
func IsImportFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".yaml", ".yml":
		return true
	}
	return false
}

// ImportFile imports a single file. Sessions already present are
// counted as duplicates.
func (e *Engine) ImportFile(
	ctx context.Context, path string,
) (ImportStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, err := e.importFileLocked(ctx, path)
	e.recordLocked(st)
	return st, err
}

func (e *Engine) importFileLocked(
	ctx context.Context, path string,
) (ImportStats, error) {
	if err := ctx.Err(); err != nil {
		return ImportStats{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return ImportStats{Failed: 1}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	res, err := Parse(f, FormatForPath(path))
	if err != nil {
		return ImportStats{Failed: 1}, fmt.Errorf("parsing %s: %w", path, err)
	}
	for _, p := range res.Problems {
		e.log.Debug("skipped entry", zap.String("path", path), zap.String("problem", p))
	}

	rows := make([]db.Session, len(res.Sessions))
	for i, s := range res.Sessions {
		rows[i] = db.Session{FocusSession: s, Source: db.SourceImport}
	}
	inserted, err := e.db.InsertSessions(rows)
	if err != nil {
		return ImportStats{Failed: 1}, fmt.Errorf("storing %s: %w", path, err)
	}

	st := ImportStats{
		Files:      1,
		Imported:   inserted,
		Duplicates: len(rows) - inserted,
		Skipped:    res.Skipped,
	}
	e.log.Info("imported sessions",
		zap.String("path", path),
		zap.Int("imported", st.Imported),
		zap.Int("duplicates", st.Duplicates),
		zap.Int("skipped", st.Skipped),
	)
	return st, nil
}

// ImportPaths imports each path, continuing past failures. Paths
// without an importable extension are ignored. The returned error
// joins every per-file failure.
func (e *Engine) ImportPaths(
	ctx context.Context, paths []string,
) (ImportStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		total ImportStats
		errs  []error
	)
	for _, p := range paths {
		if !IsImportFile(p) {
			continue
		}
		st, err := e.importFileLocked(ctx, p)
		total.Add(st)
		if err != nil {
			if ctx.Err() != nil {
				errs = append(errs, err)
				break
			}
			e.log.Warn("import failed", zap.String("path", p), zap.Error(err))
			errs = append(errs, err)
		}
	}
	e.recordLocked(total)
	return total, errors.Join(errs...)
}

// ImportDir imports every importable file under dir, including
// subdirectories, in path order. It covers the same tree that
// WatchRecursive watches. A missing directory imports nothing.
func (e *Engine) ImportDir(
	ctx context.Context, dir string,
) (ImportStats, error) {
	var paths []string
	err := filepath.WalkDir(dir,
		func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == dir {
					return err
				}
				return nil // skip inaccessible entries
			}
			if d.Type().IsRegular() && IsImportFile(d.Name()) {
				paths = append(paths, path)
			}
			return nil
		})
	if errors.Is(err, fs.ErrNotExist) {
		return ImportStats{}, nil
	}
	if err != nil {
		return ImportStats{}, fmt.Errorf("reading %s: %w", dir, err)
	}
	sort.Strings(paths)
	return e.ImportPaths(ctx, paths)
}

func (e *Engine) recordLocked(st ImportStats) {
	e.lastRun = time.Now()
	e.lastStats = st
}
