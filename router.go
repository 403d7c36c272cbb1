package main

import (
	"encoding/json"
	"net/http"

	"hrc-casino/engine"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func newRouter(e *engine.Engine) http.Handler {
	r := chi.NewRouter()

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Discord Bot Status: " + status()))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "healthy", "service": "casino", "bot_status": status()})
	})
	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"active_sessions": e.Stats()})
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func status() string {
	s, _ := botStatus.Load().(string)
	return s
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
