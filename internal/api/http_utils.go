package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"playout/internal/catalog"
	"playout/internal/schedule"
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type conflictBody struct {
	Error     string            `json:"error"`
	Candidate schedule.Interval `json:"candidate"`
	Conflicts []schedule.Item   `json:"conflicts"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &schedule.ValidationError{Message: "invalid JSON body: " + err.Error()}
	}
	return nil
}

// writeServiceError maps the scheduling error taxonomy onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *schedule.ValidationError
		conflict   *schedule.ConflictError
		notFound   *schedule.NotFoundError
		partial    *schedule.PartialBatchFailure
	)
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: validation.Error(), Field: validation.Field})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, conflictBody{
			Error:     conflict.Error(),
			Candidate: conflict.Candidate,
			Conflicts: conflict.Conflicts,
		})
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, notFound.Error())
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, schedule.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &partial):
		writeJSON(w, http.StatusMultiStatus, map[string]any{
			"error":    partial.Error(),
			"outcomes": partial.Outcomes,
		})
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		s.log.WithError(err).WithField("uri", r.URL.RequestURI()).Error("unhandled error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func newMediaID() string { return uuid.NewString() }
