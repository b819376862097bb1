// Package httputil holds the JSON envelope shared by every HTTP handler.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "desarquivamento/pkg/domain-errors"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the error envelope written by WriteError.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
	Field       string `json:"field,omitempty"`
}

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeInvalidInput:       http.StatusBadRequest,
	dErrors.CodeBadRequest:         http.StatusBadRequest,
	dErrors.CodeNotFound:           http.StatusNotFound,
	dErrors.CodeUnauthenticated:    http.StatusUnauthorized,
	dErrors.CodeUnauthorized:       http.StatusForbidden,
	dErrors.CodeInvalidTransition:  http.StatusConflict,
	dErrors.CodeAlreadyDeleted:     http.StatusGone,
	dErrors.CodeNotDeleted:         http.StatusConflict,
	dErrors.CodeConflict:           http.StatusConflict,
	dErrors.CodeUnprocessable:      http.StatusUnprocessableEntity,
	dErrors.CodeInvariantViolation: http.StatusUnprocessableEntity,
	dErrors.CodePersistence:        http.StatusInternalServerError,
	dErrors.CodeInternal:           http.StatusInternalServerError,
	dErrors.CodeTimeout:            http.StatusGatewayTimeout,
}

// StatusFor maps a domain error code to its HTTP status.
func StatusFor(code dErrors.Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes err as the error envelope. Server-side failures never
// leak their message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := StatusFor(code)

	resp := ErrorResponse{Error: string(code)}
	if status < http.StatusInternalServerError {
		var de *dErrors.Error
		if errors.As(err, &de) {
			resp.Description = de.Message
			if field, ok := de.Details["field"].(string); ok {
				resp.Field = field
			}
		}
	}
	WriteJSON(w, status, resp)
}

// DecodeJSON decodes a single JSON object from the request body. Unknown
// fields are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return dErrors.New(dErrors.CodeBadRequest, "request body is required")
		}
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	if dec.More() {
		return dErrors.New(dErrors.CodeBadRequest, "request body must hold a single JSON object")
	}
	return nil
}

// Normalizable is implemented by request bodies that canonicalize their
// fields before reaching a service.
type Normalizable interface {
	Normalize()
}

// DecodeAndPrepare decodes the body into a new T and normalizes it. On
// failure the error has already been written and ok is false.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req := new(T)
	if err := DecodeJSON(w, r, req); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "invalid request body",
				"request_id", requestID,
				"error", err,
			)
		}
		WriteError(w, err)
		return nil, false
	}
	if n, ok := any(req).(Normalizable); ok {
		n.Normalize()
	}
	return req, true
}
