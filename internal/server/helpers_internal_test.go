package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wesm/listenview/internal/config"
	"github.com/wesm/listenview/internal/dashboard"
	"github.com/wesm/listenview/internal/metrics"
	"github.com/wesm/listenview/internal/store"
	"github.com/wesm/listenview/internal/testjsonl"
)

// testServer creates a Server for internal tests with the given
// write timeout over a fresh memory store.
func testServer(
	t *testing.T, writeTimeout time.Duration,
) *Server {
	t.Helper()
	return testServerOpts(t, writeTimeout)
}

// testOption mutates a Server after construction.
type testOption func(*Server)

func withHandlerDelay(d time.Duration) testOption {
	return func(s *Server) { s.handlerDelay = d }
}

func testServerOpts(
	t *testing.T, writeTimeout time.Duration, opts ...testOption,
) *Server {
	t.Helper()
	st := store.NewMemory(0, 0)
	t.Cleanup(func() { st.Close() })
	svc := dashboard.New(st, metrics.New(metrics.Options{Location: time.UTC}))

	cfg := config.Config{
		Host:           "127.0.0.1",
		Port:           0,
		WriteTimeout:   writeTimeout,
		MaxUploadBytes: 1 << 20,
	}
	s := &Server{cfg: cfg, svc: svc, mux: http.NewServeMux()}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// storeDataset builds a two-play dataset through the server's
// service and returns its id.
func storeDataset(t *testing.T, s *Server) string {
	t.Helper()
	id, _, err := s.svc.BuildDataset(context.Background(), [][]byte{
		[]byte(testjsonl.Array(
			testjsonl.Play{
				TS: "2024-01-01T10:00:00Z", MsPlayed: 60_000,
				Track: "A", Artist: "X", Album: "P",
			},
			testjsonl.Play{
				TS: "2024-01-01T10:05:00Z", MsPlayed: 30_000,
				Track: "B", Artist: "Y", Album: "Q",
			},
		)),
	})
	if err != nil {
		t.Fatalf("building dataset: %v", err)
	}
	return id
}

// assertTimeoutResponse checks that the response is a 503 with
// a JSON body containing "request timed out" and the correct
// Content-Type header.
func assertTimeoutResponse(
	t *testing.T, resp *http.Response,
) {
	t.Helper()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf(
			"status = %d, want %d",
			resp.StatusCode, http.StatusServiceUnavailable,
		)
	}
	body, _ := io.ReadAll(resp.Body)
	var je jsonError
	if err := json.Unmarshal(body, &je); err != nil {
		t.Fatalf(
			"body is not valid JSON: %v (body=%q)",
			err, string(body),
		)
	}
	if je.Error != "request timed out" {
		t.Errorf(
			"error = %q, want %q",
			je.Error, "request timed out",
		)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf(
			"Content-Type = %q, want %q",
			ct, "application/json",
		)
	}
}

// isTimeoutResponse returns true when the response is a 503
// JSON timeout. Use this for negative assertions where a route
// should NOT produce a timeout.
func isTimeoutResponse(
	t *testing.T, resp *http.Response,
) bool {
	t.Helper()
	if resp.StatusCode != http.StatusServiceUnavailable {
		return false
	}
	body, _ := io.ReadAll(resp.Body)
	var je jsonError
	if json.Unmarshal(body, &je) != nil {
		return false
	}
	return je.Error == "request timed out"
}

// assertRecorderStatus checks that the recorder has the
// expected HTTP status code.
func assertRecorderStatus(
	t *testing.T, w *httptest.ResponseRecorder, code int,
) {
	t.Helper()
	if w.Code != code {
		t.Fatalf(
			"expected status %d, got %d: %s",
			code, w.Code, w.Body.String(),
		)
	}
}
