package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Harshith0710/ToDoApp/internal/db"
)

func TestParseIntParam(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		param      string
		wantVal    int
		wantOK     bool
		wantStatus int
	}{
		{
			name:       "absent param returns zero",
			query:      "",
			param:      "limit",
			wantVal:    0,
			wantOK:     true,
			wantStatus: http.StatusOK,
		},
		{
			name:       "valid integer",
			query:      "limit=42",
			param:      "limit",
			wantVal:    42,
			wantOK:     true,
			wantStatus: http.StatusOK,
		},
		{
			name:       "negative integer",
			query:      "limit=-5",
			param:      "limit",
			wantVal:    -5,
			wantOK:     true,
			wantStatus: http.StatusOK,
		},
		{
			name:       "non-numeric returns 400",
			query:      "limit=abc",
			param:      "limit",
			wantVal:    0,
			wantOK:     false,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "float returns 400",
			query:      "limit=3.5",
			param:      "limit",
			wantVal:    0,
			wantOK:     false,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, r := newTestRequest(t, tt.query)

			val, ok := parseIntParam(w, r, tt.param)
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}
			if val != tt.wantVal {
				t.Errorf("val = %d, want %d", val, tt.wantVal)
			}
			if w.Code != tt.wantStatus {
				t.Errorf(
					"status = %d, want %d", w.Code, tt.wantStatus,
				)
			}
		})
	}
}

func TestClampLimit(t *testing.T) {
	const max = db.MaxSessionLimit
	const defaultLimit = db.DefaultSessionLimit
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"zero uses default", 0, defaultLimit},
		{"negative uses default", -1, defaultLimit},
		{"within range", defaultLimit / 2, defaultLimit / 2},
		{"at max", max, max},
		{"exceeds max", max + 1, max},
		{"default itself", defaultLimit, defaultLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clampLimit(tt.limit, defaultLimit, max)
			if got != tt.want {
				t.Errorf("clampLimit(%d, %d, %d) = %d, want %d",
					tt.limit, defaultLimit, max, got, tt.want)
			}
		})
	}
}

func TestParseBoolParam(t *testing.T) {
	w, r := newTestRequest(t, "")
	v, ok := parseBoolParam(w, r, "done")
	if !ok || v != nil {
		t.Errorf("absent: v=%v ok=%v, want nil true", v, ok)
	}

	w, r = newTestRequest(t, "done=true")
	v, ok = parseBoolParam(w, r, "done")
	if !ok || v == nil || !*v {
		t.Errorf("true: v=%v ok=%v", v, ok)
	}

	w, r = newTestRequest(t, "done=perhaps")
	_, ok = parseBoolParam(w, r, "done")
	if ok {
		t.Error("malformed value accepted")
	}
	assertRecorderStatus(t, w, http.StatusBadRequest)
}

func TestHandleContextError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		want       bool
		wantStatus int
	}{
		{"Deadline", fmt.Errorf("query: %w", context.DeadlineExceeded),
			true, http.StatusGatewayTimeout},
		{"Canceled", context.Canceled, true, http.StatusOK},
		{"Other", errors.New("disk full"), false, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			if got := handleContextError(w, tt.err); got != tt.want {
				t.Errorf("handleContextError = %v, want %v", got, tt.want)
			}
			assertRecorderStatus(t, w, tt.wantStatus)
		})
	}
}

func TestWriteStoreError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("task 3: %w", db.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: bad mode", db.ErrInvalidSession), http.StatusBadRequest},
		{db.ErrEmptyTitle, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		writeStoreError(w, tt.err)
		assertRecorderStatus(t, w, tt.want)
		assertContentType(t, w, "application/json")
	}
}

func TestHandlersDeadlineExceeded(t *testing.T) {
	t.Parallel()
	s := testServer(t, 30*time.Second)

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"ListTasks", s.handleListTasks},
		{"ListSessions", s.handleListSessions},
		{"GetStats", s.handleGetStats},
		{"GetCounts", s.handleGetCounts},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := expiredCtx(t)
			defer cancel()
			req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
			w := httptest.NewRecorder()

			// Call handler directly, bypassing middleware.
			tt.handler(w, req)

			assertRecorderStatus(t, w, http.StatusGatewayTimeout)
			assertContentType(t, w, "application/json")
		})
	}
}
