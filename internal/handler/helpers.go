// Package handler holds the HTTP layer: thin adapters between the router
// and the services.
package handler

import (
	"errors"
	"net/http"

	"vitrina/internal/domain"
	"vitrina/internal/httputil"
)

// handleError converts domain errors to HTTP responses.
func handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// requestUserID resolves the caller's identity: the auth middleware when a
// verifier is configured, otherwise the user_id the client sent in the body
// (local development only).
func requestUserID(r *http.Request, bodyUserID string) string {
	if id := httputil.GetUserID(r); id != "" {
		return id
	}
	return bodyUserID
}
