package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each component check in GET /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Snap!-compatible plain-text triggers
	r.Route("/primitive/MovePlayer", func(r chi.Router) {
		r.Get("/", s.handleMovePlayerList)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/start", s.handleMovePlayerStart)
			r.Get("/start/{speed}", s.handleMovePlayerStart)
			r.Get("/start/{speed}/backwards", s.handleMovePlayerStart)
			r.Get("/stop", s.handleMovePlayerStop)
		})
	})
	r.Route("/primitive/MoveRecorder", func(r chi.Router) {
		r.Get("/", s.handleMovePlayerList)
		r.Get("/{name}/remove", s.handleMoveRecorderRemove)
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/sequences", func(r chi.Router) {
			r.Get("/", s.handleListSequences)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSequence)
				r.Put("/", s.handlePutSequence)
				r.Delete("/", s.handleDeleteSequence)
				r.Post("/play", s.handlePlaySequence)
				r.Post("/stop", s.handleStopSequence)
				r.Get("/runs", s.handleListSequenceRuns)
			})
		})

		r.Get("/playback", s.handleListActive)

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.handleListRuns)
			r.Get("/{id}", s.handleGetRun)
		})

		r.Get("/channels", s.handleListChannels)

		r.Get(s.wsPath(), s.handleWebSocket)
	})

	return r
}

func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}

// componentHealth is one entry of the health response.
type componentHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// handleHealth reports the server and its backing services. Any failing
// component turns the response into 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]func(context.Context) error{}
	if s.db != nil {
		checks["database"] = s.db.HealthCheck
	}
	if s.mqtt != nil {
		checks["mqtt"] = s.mqtt.HealthCheck
	}
	if s.influx != nil {
		checks["influxdb"] = s.influx.HealthCheck
	}

	status := "ok"
	components := make(map[string]componentHealth, len(checks))
	for name, check := range checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := check(ctx)
		cancel()
		if err != nil {
			status = "degraded"
			components[name] = componentHealth{Status: "error", Error: err.Error()}
			continue
		}
		components[name] = componentHealth{Status: "ok"}
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":     status,
		"version":    s.version,
		"components": components,
	})
}
