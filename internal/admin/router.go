package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the admin routes on a chi router.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.logger))
	r.Get("/healthz", h.healthz)
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ready", nil) })
	r.Route("/v1", func(r chi.Router) {
		r.Get("/transactions", h.listTransactions)
		r.Get("/transactions/{tx_id}", h.getTransaction)
		r.Get("/transactions/{tx_id}/events", h.listEvents)
		r.Get("/registry", h.listRegistry)
	})
	return r
}
