package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
)

const (
	msgNotFound = "Dataset not found"
	msgNoData   = "No data in this timeframe"
)

// writeJSON writes v as JSON with the given HTTP status code.
// Logs a warning if JSON encoding fails.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON: encoding response: %v", err)
	}
}

// writeError writes a JSON error response with the given status
// and message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeNotFound writes the 404 body for an unknown dataset.
func writeNotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"detail": msgNotFound,
	})
}

// handleContextError detects context.Canceled and
// context.DeadlineExceeded errors, returning true so the
// caller stops processing. It does NOT write an HTTP
// response; the withTimeout middleware handles that via
// http.TimeoutHandler (503).
func handleContextError(_ http.ResponseWriter, err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
