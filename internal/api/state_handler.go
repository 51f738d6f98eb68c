package api

import "net/http"

// GetApplicationState обрабатывает GET /application_state.
// Всегда 200: до создания job статусы отражают пустую систему.
func (h *Handler) GetApplicationState(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.aggregator.Snapshot(r.Context())
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	OK(w, snapshot)
}
