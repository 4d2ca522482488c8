package health

import (
	"context"
	"encoding/json"
	"net/http"

	corehealth "auditorfiscal/datalake/internal/core/health"
)

// StatusReporter produces the health snapshot.
type StatusReporter interface {
	Status(ctx context.Context) corehealth.Status
}

// Handler bridges HTTP traffic with the health application service.
type Handler struct {
	service StatusReporter
}

func NewHandler(service StatusReporter) *Handler {
	return &Handler{service: service}
}

// Status answers 200 while the service is UP and 503 otherwise.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	response := h.service.Status(r.Context())

	code := http.StatusOK
	if response.Status != corehealth.StatusUp {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(response)
}
