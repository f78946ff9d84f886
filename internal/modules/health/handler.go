package health

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Handler exposes the liveness endpoint. The services map reports whether
// each external dependency's credentials are configured; absence is a startup
// concern, not a per-request one.
type Handler struct {
	environment string
	services    map[string]bool
}

func NewHandler(environment string, services map[string]bool) *Handler {
	return &Handler{environment: environment, services: services}
}

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Get("/health", h.health)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"environment": h.environment,
		"services":    h.services,
	})
}
