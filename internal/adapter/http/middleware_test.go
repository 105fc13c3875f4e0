package adapthttp

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	s := (&Server{}).WithLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("OK"))
	})
	handler := s.loggingMiddleware(nextHandler)

	req := httptest.NewRequest(http.MethodGet, "/test-path", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusTeapot {
		t.Errorf("Expected status %d, got %d", http.StatusTeapot, w.Code)
	}

	logOutput := buf.String()
	for _, want := range []string{"method=GET", "path=/test-path", "status=418", "level=WARN", "component=http"} {
		if !strings.Contains(logOutput, want) {
			t.Errorf("log output missing %q. Got: %s", want, logOutput)
		}
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)

	if !rl.Allow("1") || !rl.Allow("1") {
		t.Fatal("burst of 2 should be allowed")
	}
	if rl.Allow("1") {
		t.Error("third request should be limited")
	}
	if !rl.Allow("2") {
		t.Error("limits must be per key")
	}
	if rl.Len() != 2 {
		t.Errorf("expected 2 tracked keys, got %d", rl.Len())
	}

	// Key "1" is drained and key "2" still has one token spent, so neither
	// may be dropped yet.
	rl.Sweep()
	if rl.Len() != 2 {
		t.Errorf("sweep dropped active limiters, %d left", rl.Len())
	}
}

func TestRateLimiter_ClampsConfig(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	if !rl.Allow("k") {
		t.Error("clamped limiter should allow one request")
	}
}
