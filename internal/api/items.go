package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/erazemk/lostfound/internal/imaging"
	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/service"
)

// ItemsHandler handles item endpoints.
type ItemsHandler struct {
	Catalog        *service.Catalog
	MaxUploadBytes int64
}

// requiredItemFields must be present when creating an item.
var requiredItemFields = []string{"title", "description", "type", "category", "location"}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	itemType, ok := typeFilter(w, r)
	if !ok {
		return
	}

	items, err := h.Catalog.ListAll(r.Context(), itemType)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Search handles GET /api/items/search.
func (h *ItemsHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("q") {
		textError(w, http.StatusBadRequest, "query parameter q required")
		return
	}

	itemType, ok := typeFilter(w, r)
	if !ok {
		return
	}

	items, err := h.Catalog.Search(r.Context(), q.Get("q"), itemType)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		textError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := h.Catalog.Get(r.Context(), id)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	if item == nil {
		serviceError(w, r, service.ErrItemNotFound)
		return
	}

	jsonResponse(w, http.StatusOK, item)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUser(r.Context())

	if !h.parseForm(w, r) {
		return
	}

	for _, field := range requiredItemFields {
		if _, ok := r.PostForm[field]; !ok {
			textError(w, http.StatusBadRequest, field+" required")
			return
		}
	}

	itemType, err := model.ParseItemType(r.PostForm.Get("type"))
	if err != nil {
		textError(w, http.StatusBadRequest, err.Error())
		return
	}

	image, ok := readImage(w, r)
	if !ok {
		return
	}

	item, err := h.Catalog.Create(r.Context(), service.NewItem{
		Title:       r.PostForm.Get("title"),
		Description: r.PostForm.Get("description"),
		Type:        itemType,
		Category:    r.PostForm.Get("category"),
		Location:    r.PostForm.Get("location"),
		Date:        r.PostForm.Get("date"),
		Image:       image,
		ContactInfo: formValue(r, "contactInfo"),
	}, user)
	if err != nil {
		serviceError(w, r, err)
		return
	}

	slog.Info("item created", "user", user.Username, "item", item.ID, "type", item.Type, "title", item.Title)
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := GetUser(r.Context())

	id, err := pathID(r)
	if err != nil {
		textError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if !h.parseForm(w, r) {
		return
	}

	ch := service.ItemChanges{
		Title:       formValue(r, "title"),
		Description: formValue(r, "description"),
		Category:    formValue(r, "category"),
		Location:    formValue(r, "location"),
		Date:        formValue(r, "date"),
		ContactInfo: formValue(r, "contactInfo"),
	}

	// An empty enum value counts as not supplied.
	if v := formValue(r, "type"); v != nil && *v != "" {
		t, err := model.ParseItemType(*v)
		if err != nil {
			textError(w, http.StatusBadRequest, err.Error())
			return
		}
		ch.Type = &t
	}

	if v := formValue(r, "status"); v != nil && *v != "" {
		st, err := model.ParseItemStatus(*v)
		if err != nil {
			textError(w, http.StatusBadRequest, err.Error())
			return
		}
		ch.Status = &st
	}

	var ok bool
	if ch.Image, ok = readImage(w, r); !ok {
		return
	}

	item, err := h.Catalog.Update(r.Context(), id, ch, user)
	if err != nil {
		if errors.Is(err, service.ErrNotAuthorized) {
			slog.Warn("item update denied", "user", user.Username, "item", id)
		}
		serviceError(w, r, err)
		return
	}

	slog.Info("item updated", "user", user.Username, "item", item.ID, "status", item.Status)
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := GetUser(r.Context())

	id, err := pathID(r)
	if err != nil {
		textError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := h.Catalog.Delete(r.Context(), id, user); err != nil {
		if errors.Is(err, service.ErrNotAuthorized) {
			slog.Warn("item delete denied", "user", user.Username, "item", id)
		}
		serviceError(w, r, err)
		return
	}

	slog.Info("item deleted", "user", user.Username, "role", user.Role, "item", id)
	textResponse(w, http.StatusOK, "Item deleted successfully")
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		textError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	data, err := h.Catalog.GetImage(r.Context(), id)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	if data == nil {
		textError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", imaging.DetectMIME(data))
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write image response", "error", err)
	}
}

// parseForm reads a multipart (or urlencoded) body of at most MaxUploadBytes.
func (h *ItemsHandler) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)

	// ParseMultipartForm has already parsed urlencoded bodies by the time it
	// reports ErrNotMultipart.
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		textError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return false
	}
	return true
}

// formValue returns the submitted value of key, or nil if the field was not sent.
func formValue(r *http.Request, key string) *string {
	values, ok := r.PostForm[key]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

// readImage returns the uploaded "image" file, or nil if none was sent.
func readImage(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, true
	}
	if err != nil {
		textError(w, http.StatusBadRequest, "invalid image upload")
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		textError(w, http.StatusBadRequest, "failed to read image")
		return nil, false
	}
	return data, true
}

// typeFilter parses the optional ?type= query parameter.
func typeFilter(w http.ResponseWriter, r *http.Request) (*model.ItemType, bool) {
	raw := r.URL.Query().Get("type")
	if raw == "" {
		return nil, true
	}
	t, err := model.ParseItemType(raw)
	if err != nil {
		textError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return &t, true
}
