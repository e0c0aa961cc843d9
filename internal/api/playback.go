package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/poppy-motion/internal/playback"
)

// playRequest is the body of POST /sequences/{id}/play. All fields are
// optional; an empty body plays forwards at normal speed.
type playRequest struct {
	Speed     float64 `json:"speed"`
	Backwards bool    `json:"backwards"`
}

// handlePlaySequence starts a run. With ?wait=true the response is sent
// when the run finishes; otherwise it returns 202 with the running run.
func (s *Server) handlePlaySequence(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req playRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	opts := playback.Options{Speed: req.Speed, Backwards: req.Backwards}

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait { //nolint:errcheck // absent or invalid means false
		run, err := s.controller.Play(r.Context(), id, opts, playback.TriggerAPI)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, run)
		return
	}

	run, err := s.controller.Start(r.Context(), id, opts, playback.TriggerAPI)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, run)
}

// handleStopSequence signals the active run of a sequence to stop.
func (s *Server) handleStopSequence(w http.ResponseWriter, r *http.Request) {
	run, err := s.controller.Stop(chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, run)
}

// handleListActive returns the runs currently playing.
func (s *Server) handleListActive(w http.ResponseWriter, _ *http.Request) {
	runs := s.controller.Active()
	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// handleListRuns returns finished runs, newest first. Supports ?sequence=
// and ?limit= filters.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	s.writeHistory(w, r, r.URL.Query().Get("sequence"))
}

// handleListSequenceRuns returns finished runs of one sequence.
func (s *Server) handleListSequenceRuns(w http.ResponseWriter, r *http.Request) {
	s.writeHistory(w, r, chi.URLParam(r, "id"))
}

func (s *Server) writeHistory(w http.ResponseWriter, r *http.Request, sequenceID string) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := s.controller.History(r.Context(), sequenceID, limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// handleGetRun returns a run by ID, active or finished.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.controller.Run(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleListChannels returns the latest status of every actuator and the
// configured channels with no status yet.
func (s *Server) handleListChannels(w http.ResponseWriter, _ *http.Request) {
	if s.cache == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "actuator status is not available")
		return
	}

	snapshot := s.cache.Snapshot()
	missing := []string{}
	for _, ch := range s.channels {
		if _, ok := snapshot[ch]; !ok {
			missing = append(missing, ch)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"channels": snapshot,
		"count":    len(snapshot),
		"missing":  missing,
	})
}
