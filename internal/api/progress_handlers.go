package api

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/progress-service/internal/progress"
)

// Client-facing error messages. Internal causes are only logged.
const (
	msgInvalidParams   = "Missing or invalid parameters"
	msgInvalidCategory = "Invalid category"
	msgNotFound        = "Progress document not found"
	msgInternal        = "Internal Server Error"
)

const maxBodyBytes = 1 << 16

// getProgress handles GET /getProgress. The document is created with zero
// counters when it does not exist yet.
func (s *Server) getProgress(w http.ResponseWriter, r *http.Request) {
	doc, err := s.svc.GetProgress(r.Context())
	if err != nil {
		s.fail(w, r, "get progress", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// updateProgress handles POST /updateProgress with body
// {"category": "trauma"|"upper"|"lower", "value": <number>}.
func (s *Server) updateProgress(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidParams)
		return
	}
	req, err := s.update.Parse(body)
	if err != nil {
		s.logger.Debug("rejected update body", zap.Error(err))
		writeError(w, http.StatusBadRequest, msgInvalidParams)
		return
	}
	doc, err := s.svc.UpdateProgress(r.Context(), req.Category, req.Value)
	if err != nil {
		s.fail(w, r, "update progress", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// resetProgress handles POST /resetProgress. Any request body is ignored.
func (s *Server) resetProgress(w http.ResponseWriter, r *http.Request) {
	doc, err := s.svc.ResetProgress(r.Context())
	if err != nil {
		s.fail(w, r, "reset progress", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// fail maps a service error onto the HTTP error taxonomy.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, progress.ErrInvalidCategory):
		writeError(w, http.StatusBadRequest, msgInvalidCategory)
	case errors.Is(err, progress.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, msgInvalidParams)
	case errors.Is(err, progress.ErrNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
	default:
		s.logger.Error(op+" failed",
			zap.Error(err),
			zap.String("request_id", progress.RequestIDFromContext(r.Context())),
		)
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}
