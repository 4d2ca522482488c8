package middleware

import (
	"log/slog"
	"net/http"
	"time"

	ctxutil "auditorfiscal/datalake/internal/infrastructure/context"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// CorrelationHeader carries the correlation ID in requests and responses.
const CorrelationHeader = "X-Correlation-ID"

// responseWriter captures the status code and bytes written.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

// RequestLogger logs every request once it completes. The correlation ID is taken
// from the X-Correlation-ID header, falling back to the chi request ID, and is
// stored in the request context and echoed in the response.
// 5xx responses log at error level, 4xx at warn, everything else at info.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			correlationID := r.Header.Get(CorrelationHeader)
			if correlationID == "" {
				correlationID = chimw.GetReqID(r.Context())
			}
			ctx := ctxutil.WithCorrelationID(r.Context(), correlationID)
			if correlationID != "" {
				w.Header().Set(CorrelationHeader, correlationID)
			}

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r.WithContext(ctx))

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"status", rw.statusCode,
				"duration_ms", float64(time.Since(start).Microseconds()) / 1e3,
				"bytes", rw.bytesWritten,
			}
			if correlationID != "" {
				attrs = append(attrs, "correlation_id", correlationID)
			}
			if ua := r.Header.Get("User-Agent"); ua != "" {
				attrs = append(attrs, "user_agent", ua)
			}

			switch {
			case rw.statusCode >= 500:
				log.Error("HTTP request", attrs...)
			case rw.statusCode >= 400:
				log.Warn("HTTP request", attrs...)
			default:
				log.Info("HTTP request", attrs...)
			}
		})
	}
}
