package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/poppy-motion/internal/motion"
)

// handleMoveRecorderRemove deletes a stored sequence. A run already playing
// it is not affected.
func (s *Server) handleMoveRecorderRemove(w http.ResponseWriter, r *http.Request) {
	if s.writer == nil {
		s.writeTextError(w, r, motion.ErrReadOnly)
		return
	}

	name := chi.URLParam(r, "name")
	if err := s.writer.Delete(r.Context(), name); err != nil {
		s.writeTextError(w, r, err)
		return
	}
	s.logger.Info("sequence deleted", "sequence_id", name, "route", "MoveRecorder")
	writeText(w, http.StatusOK, moveDone)
}
