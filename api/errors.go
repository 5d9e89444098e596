package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"

	"github.com/jmcleod/gatehouse/auth"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Response{Success: false, Message: msg})
}

// statusOf maps a flow error to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, auth.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// mapError writes the response for a failed flow. Dependency failures are
// logged and reported to the client only as "Server error".
func (a *API) mapError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		attrs := []any{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("error", err),
		}
		if oopsErr, ok := oops.AsOops(err); ok {
			attrs = append(attrs, slog.Any("code", oopsErr.Code()), slog.Any("context", oopsErr.Context()))
		}
		a.logger.ErrorContext(r.Context(), "request failed", attrs...)
		writeError(w, status, "Server error")
		return
	}
	msg := auth.PublicMessage(err)
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeError(w, status, msg)
}
