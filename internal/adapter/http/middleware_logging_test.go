package adapthttp

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"weighttogo/internal/logging"
)

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	s := &Server{log: logging.NewWithOutput(&buf, "info", "json")}

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
	reqID := w.Header().Get(requestIDHeader)
	if reqID == "" {
		t.Fatal("Expected a generated request id header")
	}

	logOutput := buf.String()
	for _, want := range []string{`"method":"GET"`, `"path":"/test-path"`, `"status":418`, `"request_id":"` + reqID + `"`} {
		if !strings.Contains(logOutput, want) {
			t.Errorf("Log output missing %s. Got: %s", want, logOutput)
		}
	}
}

func TestLoggingMiddleware_KeepsIncomingRequestID(t *testing.T) {
	s := &Server{log: logging.Discard()}
	handler := s.loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get(requestIDHeader); got != "abc-123" {
		t.Errorf("Expected request id to be echoed, got %q", got)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	if got := clientIP(req); got != "10.0.0.7" {
		t.Errorf("Expected remote address host, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.9" {
		t.Errorf("Expected first forwarded address, got %q", got)
	}
}

func TestNewRateLimiter_DisabledWhenRateNotPositive(t *testing.T) {
	if l := NewRateLimiter(0, 10); l != nil {
		t.Fatal("Expected nil limiter for zero rate")
	}
	var l *RateLimiter
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	if got := l.middleware(next); got == nil {
		t.Fatal("Expected nil limiter to pass requests through")
	}
}
