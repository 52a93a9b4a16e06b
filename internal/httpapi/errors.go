package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/getsentry/sentry-go"

	"classkitd/internal/llm"
	"classkitd/internal/studio"
	"classkitd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// statusForError maps well-known service errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case studio.IsInvalidInput(err):
		return http.StatusBadRequest
	case studio.IsNotFound(err):
		return http.StatusNotFound
	case studio.IsTooBusy(err):
		return http.StatusTooManyRequests
	case studio.IsBadOutput(err):
		return http.StatusBadGateway
	case llm.IsUnavailable(err):
		return http.StatusServiceUnavailable
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

// reportError forwards an error to Sentry. A no-op until sentry.Init has
// run with a DSN. Package var so tests can observe captures.
var reportError = func(err error) {
	sentry.CaptureException(err)
}

// writeServiceError maps and writes err, bumping the backpressure counter
// for 429s and reporting server-side failures (5xx) to Sentry.
func writeServiceError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusTooManyRequests {
		IncrementBackpressure("queue_full")
	}
	if status >= http.StatusInternalServerError {
		reportError(err)
	}
	writeJSONError(w, status, err.Error())
}
