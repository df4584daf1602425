package handler

// RESPONSE HELPERS:
// These functions standardise how we read requests and send responses.
//
//   decodeJSON(w, r, &req)         parse a bounded JSON body
//   writeJSON(w, http.StatusOK, v) send a JSON body
//   writeError(w, err)             map a domain error to a status code
//
// CONSISTENT ERROR FORMAT:
// Every error response from our API has the same shape:
//   {"error": "not_found", "message": "group not found with id abc123"}
//
// Validation errors also name the offending field when there is one.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/study-buddy/internal/apperror"
	"github.com/sakif/study-buddy/internal/auth"
)

// maxBodyBytes bounds request bodies. Shared notes are the largest payload.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`           // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"`         // Human-readable description
	Field   string `json:"field,omitempty"` // Set on validation errors
}

// writeJSON sends a JSON response with the given status code.
//
// Headers and status must be written BEFORE the body: once Encode writes,
// later header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// The service layer returns apperror values and knows nothing about HTTP.
// errors.Is walks the wrap chain, so a service may add context with
// fmt.Errorf("...: %w", err) and the mapping still works.
func writeError(w http.ResponseWriter, err error) {
	status, body := classify(err)
	writeJSON(w, status, body)
}

// classify picks the status code and body for err.
func classify(err error) (int, ErrorResponse) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		// Unknown error: never expose internal details to the client.
		slog.Error("unhandled error", slog.String("error", err.Error()))
		return http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		}
	}

	status := http.StatusInternalServerError
	errorType := "internal_error"

	switch {
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusBadRequest // 400
		errorType = "validation_error"
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound // 404
		errorType = "not_found"
	case errors.Is(err, apperror.ErrForbidden):
		status = http.StatusForbidden // 403
		errorType = "forbidden"
	case errors.Is(err, apperror.ErrConflict):
		status = http.StatusConflict // 409
		errorType = "conflict"
	case errors.Is(err, apperror.ErrUnauthorized):
		status = http.StatusUnauthorized // 401
		errorType = "unauthorized"
	case errors.Is(err, apperror.ErrUpstream):
		status = http.StatusBadGateway // 502
		errorType = "upstream_error"
	}

	return status, ErrorResponse{
		Error:   errorType,
		Message: appErr.Message,
		Field:   appErr.Field,
	}
}

// decodeJSON reads a JSON body into dst. Unknown fields are ignored; a
// malformed or oversized body is a validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "Invalid JSON body")
	}
	return nil
}

// currentUser returns the authenticated user's email. Every /api route sits
// behind auth.RequireAuth, so an empty result means the route was mounted
// wrong.
func currentUser(r *http.Request) string {
	userID, _ := auth.UserIDFromContext(r.Context())
	return userID
}
