package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"toolshare-backend/internal/domain"
	"toolshare-backend/internal/logger"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.ErrValidation:
		return http.StatusBadRequest
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrUnauthorized:
		return http.StatusForbidden
	case domain.ErrUnauthenticated:
		return http.StatusUnauthorized
	case domain.ErrInvalidTransition, domain.ErrNotAvailable, domain.ErrConflict:
		return http.StatusConflict
	case domain.ErrSelfBooking:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}
	if kind := domain.KindOf(err); kind != nil {
		resp.Kind = kind.Error()
		var de *domain.Error
		if errors.As(err, &de) {
			resp.Error = de.Message
		}
		logger.DebugContext(r.Context(), "Request rejected", "status", status, "error", err)
	} else {
		// infrastructure details stay in the log
		logger.ErrorContext(r.Context(), "Request failed", "error", err)
		resp.Error = "internal server error"
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.NewValidationError("invalid request body: %v", err)
	}
	return nil
}
