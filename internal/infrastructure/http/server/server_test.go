package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"auditorfiscal/datalake/internal/infrastructure/config"
	"auditorfiscal/datalake/internal/infrastructure/http/middleware"
	"auditorfiscal/datalake/internal/testutil"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"UP"}`))
	})
}

func TestNew_NilLogger(t *testing.T) {
	_, err := New(Options{HealthHandler: okHandler()})

	if err == nil {
		t.Fatal("expected error for nil logger")
	}
	if err.Error() != "logger is required" {
		t.Errorf("expected error 'logger is required', got %q", err.Error())
	}
}

func TestNew_NilHealthHandler(t *testing.T) {
	_, err := New(Options{Logger: testutil.NewNullLogger()})

	if err == nil {
		t.Fatal("expected error for nil health handler")
	}
	if err.Error() != "health handler is required" {
		t.Errorf("expected error 'health handler is required', got %q", err.Error())
	}
}

func TestNew_AppliesHTTPSettings(t *testing.T) {
	server, err := New(Options{
		Config: config.AppConfig{HTTP: config.HTTPSettings{
			Port:        9191,
			ReadTimeout: 3 * time.Second,
		}},
		Logger:        testutil.NewNullLogger(),
		HealthHandler: okHandler(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if server.httpServer.Addr != ":9191" {
		t.Errorf("expected addr :9191, got %q", server.httpServer.Addr)
	}
	if server.httpServer.ReadTimeout != 3*time.Second {
		t.Errorf("expected read timeout 3s, got %v", server.httpServer.ReadTimeout)
	}
	if server.httpServer.WriteTimeout != 10*time.Second {
		t.Errorf("expected default write timeout, got %v", server.httpServer.WriteTimeout)
	}
	if server.shutdownTimeout != 30*time.Second {
		t.Errorf("expected default shutdown timeout, got %v", server.shutdownTimeout)
	}
}

func TestServer_Routes(t *testing.T) {
	server, err := New(Options{Logger: testutil.NewNullLogger(), HealthHandler: okHandler()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodPost, "/health", http.StatusMethodNotAllowed},
		{http.MethodGet, "/nfe", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.Handler().ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Header().Get(middleware.CorrelationHeader) == "" {
		t.Error("expected a correlation ID header")
	}
	var health map[string]any
	testutil.ReadJSONResponse(t, w, &health)
	if health["status"] != "UP" {
		t.Errorf("expected UP, got %v", health["status"])
	}
}

func TestServer_UnknownRouteAnswersJSON(t *testing.T) {
	server, err := New(Options{Logger: testutil.NewNullLogger(), HealthHandler: okHandler()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nfe", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	body := testutil.ReadErrorResponse(t, w)
	if body["mensagem"] != "Recurso não encontrado" {
		t.Errorf("unexpected error body: %v", body)
	}
}

func TestServer_RecoversPanics(t *testing.T) {
	server, err := New(Options{
		Logger: testutil.NewNullLogger(),
		HealthHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	server, err := New(Options{
		Config:        config.AppConfig{HTTP: config.HTTPSettings{Port: 0, ShutdownTimeout: time.Second}},
		Logger:        testutil.NewNullLogger(),
		HealthHandler: okHandler(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	server.httpServer.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
