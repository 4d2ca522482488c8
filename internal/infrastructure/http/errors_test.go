package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"auditorfiscal/datalake/internal/testutil"
)

// failingResponseWriter fails every body write.
type failingResponseWriter struct {
	http.ResponseWriter
}

func (f *failingResponseWriter) Write(p []byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		message    string
		errors     []string
		withLogger bool
		wantErrors []string
	}{
		{
			name:       "single error",
			statusCode: http.StatusServiceUnavailable,
			message:    "Banco de dados indisponível",
			errors:     []string{"ping timeout"},
			withLogger: true,
			wantErrors: []string{"ping timeout"},
		},
		{
			name:       "nil errors become empty list",
			statusCode: http.StatusInternalServerError,
			message:    "Erro interno",
			wantErrors: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			var logger *slog.Logger
			if tt.withLogger {
				logger = testutil.NewTestLogger()
			}

			WriteError(w, tt.statusCode, tt.message, tt.errors, logger)

			if w.Code != tt.statusCode {
				t.Errorf("expected status code %d, got %d", tt.statusCode, w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected Content-Type application/json, got %s", ct)
			}
			if !strings.Contains(w.Body.String(), `"erros":[`) {
				t.Errorf("expected an erros array, got %s", w.Body.String())
			}

			var response ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if response.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, response.Message)
			}
			if len(response.Errors) != len(tt.wantErrors) {
				t.Errorf("expected %d errors, got %d", len(tt.wantErrors), len(response.Errors))
			}
		})
	}
}

func TestWriteError_EncodingFailureIsLogged(t *testing.T) {
	log, buf := testutil.NewCaptureLogger()
	w := &failingResponseWriter{ResponseWriter: httptest.NewRecorder()}

	WriteError(w, http.StatusBadRequest, "Teste", []string{"erro"}, log)

	if !strings.Contains(buf.String(), "failed to encode error response") {
		t.Errorf("expected encoding failure to be logged, got %q", buf.String())
	}
}

func TestFallbackHandlers(t *testing.T) {
	w := httptest.NewRecorder()
	NotFound(nil)(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "/missing") {
		t.Errorf("unexpected not found response: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	MethodNotAllowed(nil)(w, httptest.NewRequest(http.MethodPost, "/health", nil))
	if w.Code != http.StatusMethodNotAllowed || !strings.Contains(w.Body.String(), "POST /health") {
		t.Errorf("unexpected method not allowed response: %d %s", w.Code, w.Body.String())
	}
}
