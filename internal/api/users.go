package api

import (
	"errors"
	"net/http"

	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/service"
)

// UsersHandler serves per-user listings.
type UsersHandler struct {
	Directory *service.Directory
	Catalog   *service.Catalog
}

// ListItems handles GET /api/users/{id}/items.
func (h *UsersHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		textError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if _, err := h.Directory.FindByID(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			textError(w, http.StatusNotFound, err.Error())
			return
		}
		serviceError(w, r, err)
		return
	}

	items, err := h.Catalog.ListByOwner(r.Context(), id)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}
