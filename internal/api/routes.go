package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Job
	mux.Handle("POST /job", chain(http.HandlerFunc(h.CreateJob)))
	mux.Handle("GET /job", chain(http.HandlerFunc(h.GetJob)))
	mux.Handle("DELETE /job", chain(http.HandlerFunc(h.DeleteJob)))

	// Aggregated state
	mux.Handle("GET /application_state", chain(http.HandlerFunc(h.GetApplicationState)))

	// Worker events
	mux.Handle("GET /event/{id}", chain(http.HandlerFunc(h.GetEvent)))
}
