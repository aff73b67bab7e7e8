package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	gosync "sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Harshith0710/ToDoApp/internal/config"
	"github.com/Harshith0710/ToDoApp/internal/db"
	"github.com/Harshith0710/ToDoApp/internal/ingest"
	"github.com/Harshith0710/ToDoApp/internal/logging"
)

// VersionInfo holds build-time version metadata.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// Server is the HTTP server for the JSON API.
type Server struct {
	mu       gosync.RWMutex
	cfg      config.Config
	db       *db.DB
	importer *ingest.Engine
	router   chi.Router
	httpSrv  *http.Server
	version  VersionInfo
	log      *zap.Logger
	now      func() time.Time

	// done is closed by Shutdown so long-lived streams end
	// before the HTTP server waits for idle connections.
	done     chan struct{}
	stopOnce gosync.Once

	// heartbeat is the interval at which stats streams recompute
	// even without a change, which also catches day rollover.
	heartbeat time.Duration

	// handlerDelay is injected before each timeout-wrapped
	// handler, used only by tests to guarantee handlers
	// exceed a short timeout. Zero in production.
	handlerDelay time.Duration
}

// New creates a new Server.
func New(
	cfg config.Config, database *db.DB, opts ...Option,
) *Server {
	s := &Server{
		cfg:       cfg,
		db:        database,
		log:       zap.NewNop(),
		now:       time.Now,
		heartbeat: 30 * time.Second,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the build-time version metadata.
func WithVersion(v VersionInfo) Option {
	return func(s *Server) { s.version = v }
}

// WithLogger sets the request and error logger. Nil is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = logging.OrNop(l) }
}

// WithClock overrides the time source used for statistics.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithImporter exposes the import engine's status.
func WithImporter(e *ingest.Engine) Option {
	return func(s *Server) { s.importer = e }
}

// WithHeartbeat sets the stats stream heartbeat interval.
func WithHeartbeat(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.heartbeat = d
		}
	}
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(corsMiddleware)
	r.Use(s.logMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Method("GET", "/tasks", s.withTimeout(s.handleListTasks))
		r.Method("POST", "/tasks", s.withTimeout(s.handleCreateTask))
		r.Method("GET", "/tasks/{id}", s.withTimeout(s.handleGetTask))
		r.Method("PUT", "/tasks/{id}", s.withTimeout(s.handleUpdateTask))
		r.Method("DELETE", "/tasks/{id}", s.withTimeout(s.handleDeleteTask))
		r.Method("POST", "/tasks/{id}/done", s.withTimeout(s.handleSetTaskDone))

		r.Method("GET", "/sessions", s.withTimeout(s.handleListSessions))
		r.Method("POST", "/sessions", s.withTimeout(s.handleCreateSession))
		r.Method("DELETE", "/sessions", s.withTimeout(s.handleDeleteAllSessions))
		r.Method("GET", "/sessions/{id}", s.withTimeout(s.handleGetSession))
		r.Method("DELETE", "/sessions/{id}", s.withTimeout(s.handleDeleteSession))

		r.Method("GET", "/stats", s.withTimeout(s.handleGetStats))
		r.Method("GET", "/stats/chart", s.withTimeout(s.handleGetChart))
		// SSE: Do not use timeout, as this is a long-lived connection.
		r.Get("/stats/watch", s.handleWatchStats)
		r.Method("GET", "/counts", s.withTimeout(s.handleGetCounts))
		r.Method("GET", "/import/status", s.withTimeout(s.handleImportStatus))
		r.Method("GET", "/version", s.withTimeout(s.handleGetVersion))
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	s.router = r
}

func (s *Server) handleGetVersion(
	w http.ResponseWriter, _ *http.Request,
) {
	writeJSON(w, http.StatusOK, s.version)
}

func (s *Server) handleImportStatus(
	w http.ResponseWriter, _ *http.Request,
) {
	if s.importer == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"last_import": "",
			"stats":       ingest.ImportStats{},
		})
		return
	}
	last, st := s.importer.LastImport()
	var lastStr string
	if !last.IsZero() {
		lastStr = last.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"last_import": lastStr,
		"stats":       st,
	})
}

// Handler returns the http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.mu.RLock()
	addr := s.cfg.Addr()
	s.mu.RUnlock()
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
	srv.RegisterOnShutdown(func() {
		s.stopOnce.Do(func() { close(s.done) })
	})
	s.mu.Lock()
	s.httpSrv = srv
	s.mu.Unlock()
	s.log.Info("starting server", zap.String("url", "http://"+addr))
	return srv.ListenAndServe()
}

// Shutdown ends open stats streams and gracefully shuts down the
// HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.done) })
	s.mu.RLock()
	srv := s.httpSrv
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// FindAvailablePort finds an available port starting from the
// given port, binding to the specified host.
func FindAvailablePort(host string, start int) int {
	for port := start; port < start+100; port++ {
		addr := net.JoinHostPort(host, strconv.Itoa(port))
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			ln.Close()
			return port
		}
	}
	return start
}
