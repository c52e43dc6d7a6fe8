// Package httputil writes the JSON response envelopes shared by every handler.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	dErrors "givebridge/pkg/domain-errors"
)

var exposeInternal atomic.Bool

// ExposeInternalErrors controls whether messages of internal errors reach the
// client. Only enabled in development.
func ExposeInternalErrors(enabled bool) {
	exposeInternal.Store(enabled)
}

// SuccessEnvelope is the body of every 2xx response.
type SuccessEnvelope struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorBody carries the error code, message and field violations.
type ErrorBody struct {
	Code    string               `json:"code"`
	Message string               `json:"message,omitempty"`
	Details []dErrors.FieldError `json:"details,omitempty"`
}

// ErrorEnvelope is the body of every non-2xx response.
type ErrorEnvelope struct {
	Success   bool      `json:"success"`
	Error     ErrorBody `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// WriteSuccess wraps data in the success envelope.
func WriteSuccess(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, SuccessEnvelope{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// internalErrorMessage replaces internal error text unless exposure is enabled.
const internalErrorMessage = "internal server error"

// WriteError maps err to its HTTP status and writes the error envelope.
// Errors without a domain code are reported as internal errors.
func WriteError(w http.ResponseWriter, err error) {
	body := ErrorBody{Code: string(dErrors.CodeInternal)}
	status := http.StatusInternalServerError

	var de *dErrors.Error
	if errors.As(err, &de) {
		body.Code = string(de.Code)
		body.Message = de.Message
		body.Details = de.Details
		status = dErrors.ToHTTPStatus(de.Code)
	} else if err != nil {
		body.Message = err.Error()
	}

	if body.Code == string(dErrors.CodeInternal) && !exposeInternal.Load() {
		body.Message = internalErrorMessage
	}

	WriteJSON(w, status, ErrorEnvelope{
		Success:   false,
		Error:     body,
		Timestamp: time.Now().UTC(),
	})
}

// DecodeJSON decodes the request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid json payload")
	}
	return nil
}
