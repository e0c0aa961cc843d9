package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/poppy-motion/internal/playback"
)

// moveDone is the body returned by the MovePlayer stop route.
const moveDone = "Done!"

// handleMovePlayerList returns the available sequence IDs joined with "/".
func (s *Server) handleMovePlayerList(w http.ResponseWriter, r *http.Request) {
	ids, err := s.controller.Sequences(r.Context())
	if err != nil {
		s.writeTextError(w, r, err)
		return
	}
	writeText(w, http.StatusOK, strings.Join(ids, "/"))
}

// handleMovePlayerStart starts a sequence and returns the move length in
// seconds: frame count over frequency, divided by speed.
func (s *Server) handleMovePlayerStart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	opts := playback.Options{Speed: 1}
	if raw := chi.URLParam(r, "speed"); raw != "" {
		speed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeText(w, http.StatusBadRequest, "invalid speed: "+raw)
			return
		}
		opts.Speed = speed
	}
	opts.Backwards = strings.HasSuffix(r.URL.Path, "/backwards")

	run, err := s.controller.Start(r.Context(), name, opts, playback.TriggerHTTP)
	if err != nil {
		s.writeTextError(w, r, err)
		return
	}

	seconds := run.PlannedDuration().Seconds()
	writeText(w, http.StatusOK, strconv.FormatFloat(seconds, 'f', -1, 64))
}

// handleMovePlayerStop stops a sequence. Stopping an idle sequence is not
// an error on this route.
func (s *Server) handleMovePlayerStop(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, err := s.controller.Stop(name); err != nil {
		s.logger.Debug("stop for idle sequence", "sequence_id", name)
	}
	writeText(w, http.StatusOK, moveDone)
}

// writeTextError writes err as a plain-text response with the mapped status.
func (s *Server) writeTextError(w http.ResponseWriter, r *http.Request, err error) {
	status, _ := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestID(r.Context()),
			"error", err,
		)
		writeText(w, status, "internal server error")
		return
	}
	writeText(w, status, err.Error())
}
