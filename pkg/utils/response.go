package utils

import (
	"encoding/json"
	"net/http"

	"collection-backend/internal/apperr"
	"collection-backend/internal/logger"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
}

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// ErrorJSON writes a plain error body with the given status.
func ErrorJSON(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, ErrorResponse{Error: message, Code: code})
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUnauthorized:
		return http.StatusForbidden
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as JSON. Classified errors expose their message;
// anything else is logged and reported generically.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)

	e, ok := apperr.As(err)
	if !ok || status == http.StatusInternalServerError {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		ErrorJSON(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	JSON(w, status, ErrorResponse{Error: e.Message, Code: e.Code, Field: e.Field})
}
