package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"
)

// jsonError is the standard JSON error response.
type jsonError struct {
	Error string `json:"error"`
}

var timeoutBody = func() string {
	b, _ := json.Marshal(jsonError{Error: "request timed out"})
	return string(b)
}()

// withTimeout bounds a handler by the configured write
// timeout, answering 503 with a JSON body when it is exceeded.
// A non-positive timeout leaves the handler unbounded.
func (s *Server) withTimeout(h http.HandlerFunc) http.Handler {
	inner := h
	if s.handlerDelay > 0 {
		delay := s.handlerDelay
		inner = func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(delay)
			h(w, r)
		}
	}
	if s.cfg.WriteTimeout <= 0 {
		return inner
	}

	handler := http.TimeoutHandler(
		inner, s.cfg.WriteTimeout, timeoutBody,
	)
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			handler.ServeHTTP(&contentTypeWrapper{
				ResponseWriter: w,
				contentType:    "application/json",
				triggerStatus:  http.StatusServiceUnavailable,
			}, r)
		},
	)
}

// contentTypeWrapper sets a Content-Type on responses with
// triggerStatus that lack one. TimeoutHandler writes its body
// without a type.
type contentTypeWrapper struct {
	http.ResponseWriter
	contentType   string
	triggerStatus int
	wroteHeader   bool
}

func (w *contentTypeWrapper) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	h := w.ResponseWriter.Header()
	if code == w.triggerStatus && h.Get("Content-Type") == "" {
		h.Set("Content-Type", w.contentType)
	}
	w.ResponseWriter.WriteHeader(code)
	w.wroteHeader = true
}

func (w *contentTypeWrapper) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// corsMiddleware allows any origin; the dashboard frontend is
// served from elsewhere.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// logMiddleware logs each request line except scrapes.
func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/debug/") {
			log.Printf("%s %s", r.Method, r.URL.Path)
		}
		next.ServeHTTP(w, r)
	})
}
