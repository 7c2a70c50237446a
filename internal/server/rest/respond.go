package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xchange-erasmus/xchange-api/internal/common"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

// statusFor maps a service error onto the HTTP status and the message the
// client is allowed to see. Authentication failures share one message per
// status so clients cannot tell which check failed.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrMissingCode):
		return http.StatusBadRequest, "missing authorization code"
	case errors.Is(err, common.ErrBadRequest):
		return http.StatusBadRequest, "email and password are required"
	case errors.Is(err, common.ErrMissingToken):
		return http.StatusUnauthorized, "missing token"
	case errors.Is(err, common.ErrInvalidCredentials), errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, common.ErrTokenExpired), errors.Is(err, common.ErrInvalidToken):
		return http.StatusForbidden, "invalid or expired token"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, common.ErrConfiguration):
		return http.StatusInternalServerError, "server is not configured for this operation"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	writeError(w, status, msg)
}
