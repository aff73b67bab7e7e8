package server_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harshith0710/ToDoApp/internal/config"
	"github.com/Harshith0710/ToDoApp/internal/db"
	"github.com/Harshith0710/ToDoApp/internal/server"
	"github.com/Harshith0710/ToDoApp/internal/stats"
)

// fixedNow is Wednesday 2024-06-05 12:00 UTC.
var fixedNow = time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC)

// --- Test helpers ---

// testEnv sets up a server with a temporary database.
type testEnv struct {
	srv     *server.Server
	handler http.Handler
	db      *db.DB
}

func setup(t *testing.T, srvOpts ...server.Option) *testEnv {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.Config{
		Host:         "127.0.0.1",
		Port:         0,
		DataDir:      dir,
		DBPath:       dbPath,
		Timezone:     "UTC",
		WriteTimeout: 5 * time.Second,
	}
	opts := append([]server.Option{
		server.WithClock(func() time.Time { return fixedNow }),
	}, srvOpts...)
	srv := server.New(cfg, database, opts...)
	return &testEnv{srv: srv, handler: srv.Handler(), db: database}
}

func (te *testEnv) do(
	t *testing.T, method, path string, body any,
) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rd = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			rd = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	te.handler.ServeHTTP(w, req)
	return w
}

func (te *testEnv) seedSession(
	t *testing.T, id string, start time.Time, seconds int64,
) {
	t.Helper()
	_, _, err := te.db.InsertSession(db.Session{
		FocusSession: stats.FocusSession{
			ID:              id,
			StartTime:       start,
			EndTime:         start.Add(time.Duration(seconds) * time.Second),
			DurationSeconds: seconds,
			Mode:            stats.ModeFocus,
		},
	})
	require.NoError(t, err)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func assertStatus(t *testing.T, w *httptest.ResponseRecorder, code int) {
	t.Helper()
	if w.Code != code {
		t.Fatalf("expected status %d, got %d: %s", code, w.Code, w.Body.String())
	}
}

func assertErrorBody(t *testing.T, w *httptest.ResponseRecorder, substr string) {
	t.Helper()
	body := decode[map[string]string](t, w)
	assert.Contains(t, body["error"], substr)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

// --- Tasks ---

func TestTaskLifecycle(t *testing.T) {
	te := setup(t)

	w := te.do(t, "POST", "/api/v1/tasks", map[string]any{
		"title": "  write report  ", "importance": "high",
	})
	assertStatus(t, w, http.StatusCreated)
	created := decode[db.Task](t, w)
	assert.Equal(t, "write report", created.Title)
	assert.Equal(t, db.ImportanceHigh, created.Importance)
	assert.False(t, created.IsDone)

	path := "/api/v1/tasks/" + itoa(created.ID)

	w = te.do(t, "PUT", path, map[string]any{
		"title": "write final report", "importance": "urgent",
	})
	assertStatus(t, w, http.StatusOK)
	assert.Equal(t, "write final report", decode[db.Task](t, w).Title)

	w = te.do(t, "POST", path+"/done", map[string]any{"done": true})
	assertStatus(t, w, http.StatusOK)
	assert.True(t, decode[db.Task](t, w).IsDone)

	w = te.do(t, "GET", "/api/v1/tasks?done=true", nil)
	assertStatus(t, w, http.StatusOK)
	list := decode[struct{ Tasks []db.Task }](t, w)
	require.Len(t, list.Tasks, 1)
	assert.Equal(t, created.ID, list.Tasks[0].ID)

	w = te.do(t, "GET", "/api/v1/tasks?done=false", nil)
	assertStatus(t, w, http.StatusOK)
	assert.Empty(t, decode[struct{ Tasks []db.Task }](t, w).Tasks)

	w = te.do(t, "DELETE", path, nil)
	assertStatus(t, w, http.StatusNoContent)

	w = te.do(t, "GET", path, nil)
	assertStatus(t, w, http.StatusNotFound)
	assertErrorBody(t, w, "not found")
}

func TestTaskValidation(t *testing.T) {
	te := setup(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		substr string
	}{
		{"EmptyTitle", "POST", "/api/v1/tasks",
			map[string]any{"title": "   "}, http.StatusBadRequest,
			db.ErrEmptyTitle.Error()},
		{"BadImportance", "POST", "/api/v1/tasks",
			map[string]any{"title": "x", "importance": "meh"},
			http.StatusBadRequest, "unknown importance"},
		{"UnknownField", "POST", "/api/v1/tasks",
			`{"title":"x","colour":"red"}`, http.StatusBadRequest,
			"invalid JSON body"},
		{"MalformedJSON", "POST", "/api/v1/tasks",
			`{"title":`, http.StatusBadRequest, "invalid JSON body"},
		{"BadID", "GET", "/api/v1/tasks/abc", nil,
			http.StatusBadRequest, "invalid task id"},
		{"MissingUpdate", "PUT", "/api/v1/tasks/99",
			map[string]any{"title": "x"}, http.StatusNotFound, "not found"},
		{"DoneRequired", "POST", "/api/v1/tasks/1/done",
			`{}`, http.StatusBadRequest, "done is required"},
		{"BadDoneFilter", "GET", "/api/v1/tasks?done=maybe", nil,
			http.StatusBadRequest, "invalid done"},
		{"BadImportanceFilter", "GET", "/api/v1/tasks?importance=meh", nil,
			http.StatusBadRequest, "unknown importance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := te.do(t, tt.method, tt.path, tt.body)
			assertStatus(t, w, tt.status)
			assertErrorBody(t, w, tt.substr)
		})
	}
}

// --- Sessions ---

func TestCreateSession(t *testing.T) {
	te := setup(t)

	w := te.do(t, "POST", "/api/v1/sessions", map[string]any{
		"id":               "manual-1",
		"start_time":       "2024-06-05T09:00:00Z",
		"duration_seconds": 1500,
		"mode":             "pomodoro",
	})
	assertStatus(t, w, http.StatusCreated)
	got := decode[db.Session](t, w)
	assert.Equal(t, stats.ModePomodoro, got.Mode)
	assert.Equal(t, db.SourceManual, got.Source)
	assert.Equal(t,
		time.Date(2024, 6, 5, 9, 25, 0, 0, time.UTC), got.EndTime.UTC())

	w = te.do(t, "POST", "/api/v1/sessions", map[string]any{
		"id":         "manual-1",
		"start_time": "2024-06-05T09:00:00Z",
		"end_time":   "2024-06-05T09:10:00Z",
	})
	assertStatus(t, w, http.StatusConflict)

	w = te.do(t, "POST", "/api/v1/sessions", map[string]any{
		"start_time": "2024-06-05T09:00:00Z",
		"end_time":   "2024-06-05T09:10:00Z",
	})
	assertStatus(t, w, http.StatusCreated)
	derived := decode[db.Session](t, w)
	assert.NotEmpty(t, derived.ID)
	assert.Equal(t, int64(600), derived.DurationSeconds)
	assert.Equal(t, stats.ModeFocus, derived.Mode)
}

func TestCreateSessionValidation(t *testing.T) {
	te := setup(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"MissingStart", map[string]any{"duration_seconds": 60}},
		{"EndBeforeStart", map[string]any{
			"start_time": "2024-06-05T09:00:00Z",
			"end_time":   "2024-06-05T08:00:00Z",
		}},
		{"NegativeDuration", map[string]any{
			"start_time":       "2024-06-05T09:00:00Z",
			"duration_seconds": -5,
		}},
		{"BadMode", map[string]any{
			"start_time":       "2024-06-05T09:00:00Z",
			"duration_seconds": 60,
			"mode":             "nap",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := te.do(t, "POST", "/api/v1/sessions", tt.body)
			assertStatus(t, w, http.StatusBadRequest)
		})
	}
}

func TestListSessions(t *testing.T) {
	te := setup(t)
	for i := range 12 {
		te.seedSession(t, "s"+itoa(int64(i)),
			fixedNow.Add(-time.Duration(i)*time.Hour), 60)
	}

	w := te.do(t, "GET", "/api/v1/sessions", nil)
	assertStatus(t, w, http.StatusOK)
	list := decode[struct{ Sessions []db.Session }](t, w)
	require.Len(t, list.Sessions, db.DefaultSessionLimit)
	assert.Equal(t, "s0", list.Sessions[0].ID)

	w = te.do(t, "GET", "/api/v1/sessions?limit=3", nil)
	assertStatus(t, w, http.StatusOK)
	assert.Len(t, decode[struct{ Sessions []db.Session }](t, w).Sessions, 3)

	w = te.do(t, "GET", "/api/v1/sessions?limit=abc", nil)
	assertStatus(t, w, http.StatusBadRequest)

	w = te.do(t, "GET", "/api/v1/sessions/s4", nil)
	assertStatus(t, w, http.StatusOK)
	assert.Equal(t, "s4", decode[db.Session](t, w).ID)

	w = te.do(t, "DELETE", "/api/v1/sessions/s4", nil)
	assertStatus(t, w, http.StatusNoContent)
	w = te.do(t, "DELETE", "/api/v1/sessions/s4", nil)
	assertStatus(t, w, http.StatusNotFound)

	w = te.do(t, "DELETE", "/api/v1/sessions", nil)
	assertStatus(t, w, http.StatusOK)
	assert.Equal(t, 11, decode[map[string]int](t, w)["deleted"])

	w = te.do(t, "GET", "/api/v1/sessions", nil)
	assertStatus(t, w, http.StatusOK)
	assert.Equal(t, `{"sessions":[]}`, strings.TrimSpace(w.Body.String()))
}

// --- Stats ---

func TestGetStats(t *testing.T) {
	te := setup(t)
	te.seedSession(t, "today", fixedNow.Add(-2*time.Hour), 1500)
	te.seedSession(t, "yesterday", fixedNow.Add(-27*time.Hour), 3600)

	w := te.do(t, "GET", "/api/v1/stats?period=7d", nil)
	assertStatus(t, w, http.StatusOK)
	res := decode[stats.Result](t, w)
	assert.Equal(t, stats.Last7Days, res.Period)
	assert.Equal(t, int64(1500), res.Stats.TodaySeconds)
	assert.Equal(t, int64(5100), res.Stats.AllTimeSeconds)
	assert.Equal(t, 2, res.Stats.TotalSessions)
	assert.Equal(t, 2, res.Stats.CurrentStreak)
	require.Len(t, res.Chart, 7)
	assert.Equal(t, "Wed", res.Chart[6].Label)
	assert.Equal(t, int64(1500), res.Chart[6].Value)
	assert.Equal(t, int64(3600), res.Chart[5].Value)
	require.Len(t, res.Recent, 2)
	assert.Equal(t, "today", res.Recent[0].ID)
	assert.Equal(t, "yesterday", res.Recent[1].ID)

	w = te.do(t, "GET", "/api/v1/stats/chart?period=24h", nil)
	assertStatus(t, w, http.StatusOK)
	chart := decode[struct {
		Period stats.ChartPeriod
		Chart  []stats.ChartData
	}](t, w)
	assert.Equal(t, stats.Last24Hours, chart.Period)
	assert.Len(t, chart.Chart, 24)
	assert.Equal(t, int64(1500), chart.Chart[10].Value)
}

func TestGetStatsTimezone(t *testing.T) {
	te := setup(t)
	// 23:30 UTC on June 4 is already June 5 in Tokyo.
	te.seedSession(t, "late", time.Date(2024, 6, 4, 23, 30, 0, 0, time.UTC), 600)

	w := te.do(t, "GET", "/api/v1/stats", nil)
	assertStatus(t, w, http.StatusOK)
	assert.Zero(t, decode[stats.Result](t, w).Stats.TodaySeconds)

	w = te.do(t, "GET", "/api/v1/stats?timezone=Asia/Tokyo", nil)
	assertStatus(t, w, http.StatusOK)
	assert.Equal(t, int64(600), decode[stats.Result](t, w).Stats.TodaySeconds)
}

func TestGetStatsBadParams(t *testing.T) {
	te := setup(t)

	w := te.do(t, "GET", "/api/v1/stats?period=fortnight", nil)
	assertStatus(t, w, http.StatusBadRequest)
	assertErrorBody(t, w, "invalid chart period")

	w = te.do(t, "GET", "/api/v1/stats?timezone=Mars/Base", nil)
	assertStatus(t, w, http.StatusBadRequest)
	assertErrorBody(t, w, "invalid timezone")
}

func TestGetCounts(t *testing.T) {
	te := setup(t)
	te.seedSession(t, "a", fixedNow, 60)
	w := te.do(t, "POST", "/api/v1/tasks", map[string]any{"title": "one"})
	assertStatus(t, w, http.StatusCreated)

	w = te.do(t, "GET", "/api/v1/counts", nil)
	assertStatus(t, w, http.StatusOK)
	assert.Equal(t,
		db.Stats{TaskCount: 1, DoneCount: 0, SessionCount: 1},
		decode[db.Stats](t, w))
}

// --- Misc ---

func TestVersionAndImportStatus(t *testing.T) {
	te := setup(t, server.WithVersion(server.VersionInfo{
		Version: "1.2.3", Commit: "abc",
	}))

	w := te.do(t, "GET", "/api/v1/version", nil)
	assertStatus(t, w, http.StatusOK)
	assert.Equal(t, "1.2.3", decode[server.VersionInfo](t, w).Version)

	w = te.do(t, "GET", "/api/v1/import/status", nil)
	assertStatus(t, w, http.StatusOK)
	assert.Equal(t, "", decode[map[string]any](t, w)["last_import"])
}

func TestUnknownRouteIsJSON(t *testing.T) {
	te := setup(t)
	w := te.do(t, "GET", "/api/v1/nope", nil)
	assertStatus(t, w, http.StatusNotFound)
	assertErrorBody(t, w, "not found")

	w = te.do(t, "PATCH", "/api/v1/tasks", nil)
	assertStatus(t, w, http.StatusMethodNotAllowed)
}

func TestCORSPreflight(t *testing.T) {
	te := setup(t)
	w := te.do(t, "OPTIONS", "/api/v1/tasks", nil)
	assertStatus(t, w, http.StatusNoContent)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

// --- SSE ---

type sseEvent struct {
	name string
	data string
}

// readEvents parses an SSE stream onto a channel until the body
// closes.
func readEvents(body io.Reader) <-chan sseEvent {
	ch := make(chan sseEvent, 16)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(body)
		var ev sseEvent
		for sc.Scan() {
			line := sc.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				ev.data = strings.TrimPrefix(line, "data: ")
			case line == "" && ev.name != "":
				ch <- ev
				ev = sseEvent{}
			}
		}
	}()
	return ch
}

func nextEvent(t *testing.T, ch <-chan sseEvent, name string) sseEvent {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("stream closed waiting for %q", name)
			}
			if ev.name == name {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q event", name)
		}
	}
}

func TestWatchStats(t *testing.T) {
	// A 1ms write timeout proves the stream is not wrapped.
	dir := t.TempDir()
	database, err := db.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	srv := server.New(config.Config{Timezone: "UTC", WriteTimeout: time.Millisecond},
		database,
		server.WithClock(func() time.Time { return fixedNow }),
		server.WithHeartbeat(50*time.Millisecond),
	)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		ts.URL+"/api/v1/stats/watch?period=24h", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := readEvents(resp.Body)

	var first stats.Result
	require.NoError(t, json.Unmarshal([]byte(nextEvent(t, events, "stats").data), &first))
	assert.Equal(t, stats.Last24Hours, first.Period)
	assert.Zero(t, first.Stats.TotalSessions)

	// Unchanged data produces heartbeats, not duplicate stats.
	nextEvent(t, events, "heartbeat")

	_, _, err = database.InsertSession(db.Session{FocusSession: stats.FocusSession{
		ID: "live", StartTime: fixedNow.Add(-time.Hour),
		EndTime: fixedNow.Add(-30 * time.Minute), DurationSeconds: 1800,
		Mode: stats.ModeFocus,
	}})
	require.NoError(t, err)

	var second stats.Result
	require.NoError(t, json.Unmarshal([]byte(nextEvent(t, events, "stats").data), &second))
	assert.Equal(t, 1, second.Stats.TotalSessions)
	assert.Equal(t, int64(1800), second.Stats.TodaySeconds)
}

func TestWatchStatsBadPeriod(t *testing.T) {
	te := setup(t)
	w := te.do(t, "GET", "/api/v1/stats/watch?period=x", nil)
	assertStatus(t, w, http.StatusBadRequest)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

// openStream starts a stats stream at url and returns its events.
func openStream(t *testing.T, client *http.Client, url string) <-chan sseEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return readEvents(resp.Body)
}

func TestWatchStatsDayRollover(t *testing.T) {
	var (
		mu    gosync.Mutex
		clock = fixedNow
	)
	te := setup(t,
		server.WithClock(func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return clock
		}),
		server.WithHeartbeat(20*time.Millisecond),
	)
	te.seedSession(t, "morning", fixedNow.Add(-2*time.Hour), 1800)

	ts := httptest.NewServer(te.handler)
	defer ts.Close()
	events := openStream(t, ts.Client(), ts.URL+"/api/v1/stats/watch")

	var before stats.Result
	require.NoError(t, json.Unmarshal([]byte(nextEvent(t, events, "stats").data), &before))
	assert.Equal(t, int64(1800), before.Stats.TodaySeconds)
	nextEvent(t, events, "heartbeat")

	mu.Lock()
	clock = time.Date(2024, 6, 6, 0, 0, 30, 0, time.UTC)
	mu.Unlock()

	var after stats.Result
	require.NoError(t, json.Unmarshal([]byte(nextEvent(t, events, "stats").data), &after))
	assert.Zero(t, after.Stats.TodaySeconds)
	assert.Equal(t, int64(1800), after.Stats.ThisWeekSeconds)
	require.Len(t, after.Chart, 7)
	assert.Equal(t, "Thu", after.Chart[6].Label)
	assert.Equal(t, int64(1800), after.Chart[5].Value)
}

func TestShutdownEndsStatsStreams(t *testing.T) {
	dir := t.TempDir()
	database, err := db.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	cfg := config.Config{
		Host:         "127.0.0.1",
		Port:         server.FindAvailablePort("127.0.0.1", 18080),
		Timezone:     "UTC",
		WriteTimeout: 5 * time.Second,
	}
	srv := server.New(cfg, database,
		server.WithClock(func() time.Time { return fixedNow }),
	)
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	base := "http://" + cfg.Addr()
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/api/v1/version")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	events := openStream(t, http.DefaultClient, base+"/api/v1/stats/watch")
	nextEvent(t, events, "stats")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	start := time.Now()
	require.NoError(t, srv.Shutdown(ctx))
	assert.Less(t, time.Since(start), time.Second)
	assert.ErrorIs(t, <-errc, http.ErrServerClosed)

	// The stream ends once the server stops.
	for range events {
	}
}
