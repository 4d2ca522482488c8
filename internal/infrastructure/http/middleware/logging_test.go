package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	ctxutil "auditorfiscal/datalake/internal/infrastructure/context"
	"auditorfiscal/datalake/internal/testutil"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func TestRequestLogger_LevelByStatus(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantLevel  string
	}{
		{name: "2xx logs as info", statusCode: http.StatusOK, wantLevel: "level=INFO"},
		{name: "3xx logs as info", statusCode: http.StatusMovedPermanently, wantLevel: "level=INFO"},
		{name: "4xx logs as warn", statusCode: http.StatusNotFound, wantLevel: "level=WARN"},
		{name: "5xx logs as error", statusCode: http.StatusServiceUnavailable, wantLevel: "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, buf := testutil.NewCaptureLogger()
			handler := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte("ok"))
			}))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			out := buf.String()
			if !strings.Contains(out, tt.wantLevel) {
				t.Errorf("expected %s, got %q", tt.wantLevel, out)
			}
			if !strings.Contains(out, "path=/health") || !strings.Contains(out, "bytes=2") {
				t.Errorf("missing request attributes: %q", out)
			}
		})
	}
}

func TestRequestLogger_CorrelationFromHeader(t *testing.T) {
	log, buf := testutil.NewCaptureLogger()

	var seen string
	handler := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ctxutil.GetCorrelationID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(CorrelationHeader, "abc-123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if seen != "abc-123" {
		t.Errorf("expected correlation ID in context, got %q", seen)
	}
	if got := w.Header().Get(CorrelationHeader); got != "abc-123" {
		t.Errorf("expected correlation ID echoed, got %q", got)
	}
	if !strings.Contains(buf.String(), "correlation_id=abc-123") {
		t.Errorf("expected correlation ID in log, got %q", buf.String())
	}
}

func TestRequestLogger_CorrelationFallsBackToRequestID(t *testing.T) {
	log, _ := testutil.NewCaptureLogger()

	var seen string
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(RequestLogger(log))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		seen = ctxutil.GetCorrelationID(r.Context())
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if seen == "" {
		t.Fatal("expected the chi request ID as correlation ID")
	}
	if w.Header().Get(CorrelationHeader) != seen {
		t.Errorf("expected response header %q, got %q", seen, w.Header().Get(CorrelationHeader))
	}
}
