package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Harshith0710/ToDoApp/internal/db"
)

type taskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Importance  string     `json:"importance"`
	DueAt       *time.Time `json:"due_at"`
	IsDone      bool       `json:"is_done"`
}

func (req taskRequest) toTask(id int64) (db.Task, error) {
	imp, err := db.ParseImportance(req.Importance)
	if err != nil {
		return db.Task{}, err
	}
	return db.Task{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		Importance:  imp,
		DueAt:       req.DueAt,
		IsDone:      req.IsDone,
	}, nil
}

// taskID parses the {id} path segment, writing a 400 when it is
// not a positive integer.
func taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return 0, false
	}
	return id, true
}

func (s *Server) handleListTasks(
	w http.ResponseWriter, r *http.Request,
) {
	done, ok := parseBoolParam(w, r, "done")
	if !ok {
		return
	}
	var imp db.Importance
	if raw := r.URL.Query().Get("importance"); raw != "" {
		var err error
		if imp, err = db.ParseImportance(raw); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	tasks, err := s.db.ListTasks(r.Context(), db.TaskFilter{
		Done: done, Importance: imp,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (s *Server) handleGetTask(
	w http.ResponseWriter, r *http.Request,
) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	t, err := s.db.GetTask(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleCreateTask(
	w http.ResponseWriter, r *http.Request,
) {
	var req taskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.saveTask(w, r, req, 0, http.StatusCreated)
}

func (s *Server) handleUpdateTask(
	w http.ResponseWriter, r *http.Request,
) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	var req taskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.saveTask(w, r, req, id, http.StatusOK)
}

func (s *Server) saveTask(
	w http.ResponseWriter, r *http.Request,
	req taskRequest, id int64, status int,
) {
	t, err := req.toTask(id)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err = s.db.UpsertTask(t)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	stored, err := s.db.GetTask(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, status, stored)
}

func (s *Server) handleSetTaskDone(
	w http.ResponseWriter, r *http.Request,
) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	var req struct {
		Done *bool `json:"done"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Done == nil {
		writeError(w, http.StatusBadRequest, "done is required")
		return
	}
	if err := s.db.SetTaskDone(id, *req.Done); err != nil {
		writeStoreError(w, err)
		return
	}
	t, err := s.db.GetTask(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTask(
	w http.ResponseWriter, r *http.Request,
) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	if err := s.db.DeleteTask(id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
