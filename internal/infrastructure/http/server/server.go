package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"auditorfiscal/datalake/internal/infrastructure/config"
	httpx "auditorfiscal/datalake/internal/infrastructure/http"
	"auditorfiscal/datalake/internal/infrastructure/http/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Server exposes the operational endpoints of the ETL.
type Server struct {
	log             *slog.Logger
	httpServer      *http.Server
	shutdownTimeout time.Duration
}

// Options configures the server. Zero timeouts fall back to the defaults.
type Options struct {
	Config        config.AppConfig
	Logger        *slog.Logger
	HealthHandler http.Handler
}

// New builds the router and the underlying http.Server.
func New(opts Options) (*Server, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.HealthHandler == nil {
		return nil, errors.New("health handler is required")
	}
	httpCfg := opts.Config.HTTP
	if httpCfg.Port == 0 {
		httpCfg.Port = 8080
	}

	writeTimeout := orDefault(httpCfg.WriteTimeout, 10*time.Second)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(opts.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestTimeout(writeTimeout))
	r.NotFound(httpx.NotFound(opts.Logger))
	r.MethodNotAllowed(httpx.MethodNotAllowed(opts.Logger))

	r.Method(http.MethodGet, "/health", opts.HealthHandler)

	srv := &http.Server{
		Addr:         httpCfg.Address(),
		Handler:      r,
		ReadTimeout:  orDefault(httpCfg.ReadTimeout, 10*time.Second),
		WriteTimeout: writeTimeout,
		IdleTimeout:  orDefault(httpCfg.IdleTimeout, 120*time.Second),
	}

	return &Server{
		log:             opts.Logger,
		httpServer:      srv,
		shutdownTimeout: orDefault(httpCfg.ShutdownTimeout, 30*time.Second),
	}, nil
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server started", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		s.log.Info("HTTP server shutting down")
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
