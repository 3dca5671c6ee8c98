package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gemuki/bot/bot"
	"github.com/gemuki/bot/telemetry"
)

// HandleHealthz responds to liveness probe requests by checking database connectivity.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probe requests with the database and gateway checks.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"database", func() error { return h.db.PingContext(r.Context()) }},
		{"discord", func() error {
			if !h.ready() {
				return errors.New("gateway not connected")
			}
			return nil
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// HandleStats returns the global catalog statistics.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	st, err := bot.CollectStatistics(r.Context(), h.stats, nil)
	if err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("collect statistics", slog.String("component", "http"), slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "statistics unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	// Set headers before writing status code
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
