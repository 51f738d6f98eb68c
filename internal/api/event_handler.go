package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/Relay/internal/repo"
)

// GetEvent обрабатывает GET /event/{id}.
// Возвращает полное JSON-представление worker event либо 404.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		NotFound(w)
		return
	}

	event, err := h.eventRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			NotFound(w)
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	OK(w, event)
}
