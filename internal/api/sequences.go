package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/poppy-motion/internal/motion"
)

// sequenceSummary is a sequence's metadata plus whether it is playing.
type sequenceSummary struct {
	motion.Summary
	Playing bool `json:"playing"`
}

// handleListSequences returns the available sequence IDs.
func (s *Server) handleListSequences(w http.ResponseWriter, r *http.Request) {
	ids, err := s.controller.Sequences(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sequences": ids,
		"count":     len(ids),
	})
}

// handleGetSequence returns a sequence's metadata. Loading validates the
// document, so a malformed recording is reported here.
func (s *Server) handleGetSequence(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	seq, err := s.store.Load(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sequenceSummary{
		Summary: seq.Summary(),
		Playing: s.controller.IsRunning(id),
	})
}

// handlePutSequence stores the request body as the document for a sequence.
func (s *Server) handlePutSequence(w http.ResponseWriter, r *http.Request) {
	if s.writer == nil {
		s.writeDomainError(w, r, motion.ErrReadOnly)
		return
	}

	id := chi.URLParam(r, "id")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "request body too large")
			return
		}
		writeBadRequest(w, "failed to read request body")
		return
	}

	seq, err := s.writer.Save(r.Context(), id, body)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.logger.Info("sequence stored", "sequence_id", id, "frames", seq.FrameCount())
	writeJSON(w, http.StatusOK, sequenceSummary{
		Summary: seq.Summary(),
		Playing: s.controller.IsRunning(id),
	})
}

// handleDeleteSequence removes a sequence. A run already playing it is not
// affected.
func (s *Server) handleDeleteSequence(w http.ResponseWriter, r *http.Request) {
	if s.writer == nil {
		s.writeDomainError(w, r, motion.ErrReadOnly)
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.writer.Delete(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.logger.Info("sequence deleted", "sequence_id", id)
	w.WriteHeader(http.StatusNoContent)
}
