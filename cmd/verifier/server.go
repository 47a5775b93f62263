package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/footcast/internal/verify"
	"github.com/Alias1177/footcast/models"
)

// manualRunTimeout bounds a batch started over HTTP; it outlives the request
const manualRunTimeout = 10 * time.Minute

type trigger interface {
	Trigger(ctx context.Context) (models.VerificationSummary, error)
}

type pinger interface {
	PingContext(ctx context.Context) error
}

// newRouter exposes manual runs, metrics and health
func newRouter(t trigger, db pinger, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/verify", func(w http.ResponseWriter, req *http.Request) {
		log.Info().Str("request_id", middleware.GetReqID(req.Context())).Msg("Manual verification requested")
		ctx, cancel := context.WithTimeout(context.WithoutCancel(req.Context()), manualRunTimeout)
		defer cancel()
		summary, err := t.Trigger(ctx)
		if errors.Is(err, verify.ErrBusy) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, summary)
	})

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}
