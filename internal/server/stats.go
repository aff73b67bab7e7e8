package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Harshith0710/ToDoApp/internal/stats"
)

// statsQuery reads the period and timezone parameters shared by
// the stats endpoints, writing a 400 on invalid input.
func (s *Server) statsQuery(
	w http.ResponseWriter, r *http.Request,
) (stats.ChartPeriod, *time.Location, bool) {
	q := r.URL.Query()
	period, err := stats.ParsePeriod(q.Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", nil, false
	}
	loc := s.cfg.Location()
	if tz := q.Get("timezone"); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid timezone: "+tz)
			return "", nil, false
		}
	}
	return period, loc, true
}

// computeStats recomputes statistics from the full session set.
func (s *Server) computeStats(
	ctx context.Context, period stats.ChartPeriod, loc *time.Location,
) (stats.Result, error) {
	sessions, err := s.db.ListFocusSessions(ctx)
	if err != nil {
		return stats.Result{}, err
	}
	return stats.Compute(sessions, s.now().In(loc), period), nil
}

func (s *Server) handleGetStats(
	w http.ResponseWriter, r *http.Request,
) {
	period, loc, ok := s.statsQuery(w, r)
	if !ok {
		return
	}
	res, err := s.computeStats(r.Context(), period, loc)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetChart(
	w http.ResponseWriter, r *http.Request,
) {
	period, loc, ok := s.statsQuery(w, r)
	if !ok {
		return
	}
	res, err := s.computeStats(r.Context(), period, loc)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"period": res.Period,
		"chart":  res.Chart,
	})
}

func (s *Server) handleGetCounts(
	w http.ResponseWriter, r *http.Request,
) {
	counts, err := s.db.GetStats(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// handleWatchStats streams a "stats" event on connect and after
// every change to the session set. On each heartbeat the result is
// recomputed and sent again only if it differs, so a calendar day
// rollover reaches idle clients; otherwise a "heartbeat" is sent.
func (s *Server) handleWatchStats(
	w http.ResponseWriter, r *http.Request,
) {
	period, loc, ok := s.statsQuery(w, r)
	if !ok {
		return
	}

	changes, cancel := s.db.Subscribe()
	defer cancel()

	stream, err := NewSSEStream(w, s.log)
	if err != nil {
		writeError(w, http.StatusInternalServerError,
			"streaming not supported")
		return
	}

	ctx := r.Context()
	var last []byte
	push := func(force bool) bool {
		res, err := s.computeStats(ctx, period, loc)
		if err != nil {
			if ctx.Err() == nil {
				s.log.Warn("computing stats", zap.Error(err))
			}
			return ctx.Err() == nil
		}
		data, err := json.Marshal(res)
		if err != nil {
			s.log.Warn("encoding stats", zap.Error(err))
			return true
		}
		if !force && bytes.Equal(data, last) {
			return stream.Send("heartbeat",
				s.now().Format(time.RFC3339))
		}
		last = data
		return stream.Send("stats", string(data))
	}

	if !push(true) {
		return
	}

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case _, ok := <-changes:
			if !ok || !push(true) {
				return
			}
		case <-heartbeat.C:
			if !push(false) {
				return
			}
		}
	}
}
