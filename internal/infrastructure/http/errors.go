package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse is the JSON body of every error answered by the service.
type ErrorResponse struct {
	Message string   `json:"mensagem"`
	Errors  []string `json:"erros"`
}

// WriteError writes a JSON error response. A nil errors slice is sent as [].
func WriteError(w http.ResponseWriter, statusCode int, message string, errors []string, log *slog.Logger) {
	if errors == nil {
		errors = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(ErrorResponse{Message: message, Errors: errors}); err != nil {
		// the status line is already out
		if log != nil {
			log.Error("failed to encode error response", "error", err)
		}
	}
}

// NotFound answers unknown routes.
func NotFound(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "Recurso não encontrado", []string{r.URL.Path}, log)
	}
}

// MethodNotAllowed answers known routes called with the wrong method.
func MethodNotAllowed(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "Método não permitido", []string{r.Method + " " + r.URL.Path}, log)
	}
}
