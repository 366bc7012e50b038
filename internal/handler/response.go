package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON and writeError so the API has
// one success shape and one error shape:
//
//	{"error": "not_found", "message": "snippet not found with id abc123"}
//
// The "error" field is machine readable; "message" is safe to show.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/code-studio/internal/apperror"
)

// maxBodyBytes bounds request bodies. Snippet code is capped at 100000
// characters, so 1 MiB leaves room for JSON escaping.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
	Field   string `json:"field,omitempty"`
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be written before the body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// errorKinds maps each domain sentinel to its HTTP status and error type.
// Order matters only in that the first match wins.
var errorKinds = []struct {
	target error
	status int
	kind   string
}{
	{apperror.ErrValidation, http.StatusBadRequest, "validation_error"},
	{apperror.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{apperror.ErrForbidden, http.StatusForbidden, "forbidden"},
	{apperror.ErrNotFound, http.StatusNotFound, "not_found"},
	{apperror.ErrConflict, http.StatusConflict, "conflict"},
	{apperror.ErrPrecondition, http.StatusUnprocessableEntity, "precondition_failed"},
	{apperror.ErrUpstream, http.StatusBadGateway, "upstream_error"},
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// ERROR MAPPING:
// Services return apperror values and never know about HTTP. This is the
// one place those errors become status codes. errors.Is walks the whole
// chain, so a wrapped AppError maps the same as a bare one.
//
// Unknown errors become a generic 500. Their text may contain SQL, file
// paths or upstream bodies, so it is logged and never sent.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		for _, k := range errorKinds {
			if errors.Is(err, k.target) {
				writeJSON(w, k.status, ErrorResponse{Error: k.kind, Message: appErr.Message, Field: appErr.Field})
				return
			}
		}
	}

	slog.Error("unhandled error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// decodeJSON reads a bounded JSON body into dst. An empty body leaves dst
// untouched. Malformed input is reported as a validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.ValidationFailed("body", fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		}
		return apperror.ValidationFailed("body", "invalid JSON body")
	}
	return nil
}
