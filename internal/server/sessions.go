package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Harshith0710/ToDoApp/internal/db"
	"github.com/Harshith0710/ToDoApp/internal/stats"
)

// sessionRequest is a manually logged session. EndTime and
// DurationSeconds are derived from each other when one is absent.
type sessionRequest struct {
	ID              string     `json:"id"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	DurationSeconds *int64     `json:"duration_seconds"`
	Mode            string     `json:"mode"`
}

func (req sessionRequest) toSession() (db.Session, error) {
	mode := stats.ModeFocus
	if req.Mode != "" {
		m, err := stats.ParseMode(req.Mode)
		if err != nil {
			return db.Session{}, err
		}
		mode = m
	}
	fs := stats.FocusSession{
		ID:        req.ID,
		StartTime: req.StartTime,
		Mode:      mode,
	}
	switch {
	case req.EndTime != nil && req.DurationSeconds != nil:
		fs.EndTime = *req.EndTime
		fs.DurationSeconds = *req.DurationSeconds
	case req.EndTime != nil:
		fs.EndTime = *req.EndTime
		fs.DurationSeconds = int64(req.EndTime.Sub(req.StartTime) / time.Second)
	case req.DurationSeconds != nil:
		fs.DurationSeconds = *req.DurationSeconds
		fs.EndTime = req.StartTime.Add(time.Duration(*req.DurationSeconds) * time.Second)
	}
	return db.Session{FocusSession: fs, Source: db.SourceManual}, nil
}

func (s *Server) handleListSessions(
	w http.ResponseWriter, r *http.Request,
) {
	limit, ok := parseIntParam(w, r, "limit")
	if !ok {
		return
	}
	limit = clampLimit(limit, db.DefaultSessionLimit, db.MaxSessionLimit)

	sessions, err := s.db.ListSessions(r.Context(), limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleGetSession(
	w http.ResponseWriter, r *http.Request,
) {
	sess, err := s.db.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleCreateSession(
	w http.ResponseWriter, r *http.Request,
) {
	var req sessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, err := req.toSession()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	stored, inserted, err := s.db.InsertSession(sess)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !inserted {
		writeError(w, http.StatusConflict, "session "+stored.ID+" already exists")
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) handleDeleteSession(
	w http.ResponseWriter, r *http.Request,
) {
	if err := s.db.DeleteSession(chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteAllSessions(
	w http.ResponseWriter, _ *http.Request,
) {
	n, err := s.db.DeleteAllSessions()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.log.Info("deleted all sessions")
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}
