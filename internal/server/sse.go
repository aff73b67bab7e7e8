package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Harshith0710/ToDoApp/internal/logging"
)

const sseWriteTimeout = 3 * time.Second

// SSEStream manages a Server-Sent Events connection.
type SSEStream struct {
	w   http.ResponseWriter
	f   http.Flusher
	log *zap.Logger
}

// NewSSEStream initializes an SSE connection by setting the
// required headers and flushing them to the client. Returns an
// error if the ResponseWriter does not support streaming.
func NewSSEStream(w http.ResponseWriter, logger *zap.Logger) (*SSEStream, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	f.Flush()
	return &SSEStream{w: w, f: f, log: logging.OrNop(logger)}, nil
}

// Send writes an SSE event with the given name and string data.
// It returns false when the write fails.
func (s *SSEStream) Send(event, data string) bool {
	// Apply a bounded write deadline when supported so a stalled
	// client cannot block handlers forever.
	rc := http.NewResponseController(s.w)
	_ = rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout))
	defer func() { _ = rc.SetWriteDeadline(time.Time{}) }()

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		s.log.Debug("sse write", zap.String("event", event), zap.Error(err))
		return false
	}
	s.f.Flush()
	return true
}

// SendJSON writes an SSE event with JSON-serialized data.
// Logs and skips the event if marshaling fails.
func (s *SSEStream) SendJSON(event string, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Warn("sse marshal", zap.String("event", event), zap.Error(err))
		return false
	}
	return s.Send(event, string(data))
}
