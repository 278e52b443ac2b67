package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"example.com/cesizen/internal/domain"
)

func (h *Handler) registerContent(r *mux.Router) {
	r.HandleFunc("/resources", h.listResources).Methods(http.MethodGet)
	r.HandleFunc("/resources/{id}", h.getResource).Methods(http.MethodGet)
	r.Handle("/resources", h.admin(h.createResource)).Methods(http.MethodPost)
	r.Handle("/resources/{id}", h.admin(h.updateResource)).Methods(http.MethodPut)
	r.Handle("/resources/{id}", h.admin(h.deleteResource)).Methods(http.MethodDelete)

	r.HandleFunc("/categories", h.listCategories).Methods(http.MethodGet)
	r.HandleFunc("/categories/{id}", h.getCategory).Methods(http.MethodGet)
	r.Handle("/categories", h.admin(h.createCategory)).Methods(http.MethodPost)
	r.Handle("/categories/{id}", h.admin(h.updateCategory)).Methods(http.MethodPut)
	r.Handle("/categories/{id}", h.admin(h.deleteCategory)).Methods(http.MethodDelete)
}

// ResourceRequest is the payload for POST and PUT /api/resources.
type ResourceRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=3,max=150"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Content     *string `json:"content" validate:"omitempty,max=100000"`
	Type        *string `json:"type" validate:"omitempty,oneof=article video audio link breathing"`
	URL         *string `json:"url" validate:"omitempty,url,max=2048"`
	CategoryID  *string `json:"category_id" validate:"omitempty,max=64"`
	Status      *string `json:"status" validate:"omitempty,oneof=draft published"`
}

func (req ResourceRequest) input() domain.ResourceInput {
	return domain.ResourceInput{
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		Type:        req.Type,
		URL:         req.URL,
		CategoryID:  req.CategoryID,
		Status:      req.Status,
	}
}

// CategoryRequest is the payload for POST and PUT /api/categories.
type CategoryRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=50"`
	Description string `json:"description" validate:"max=500"`
}

func (h *Handler) listResources(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	page, err := h.svc.Content.ListResources(r.Context(), actor(r), domain.ResourceFilter{
		Type:       values.Get("type"),
		CategoryID: values.Get("category_id"),
		Status:     values.Get("status"),
	}, query(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) getResource(w http.ResponseWriter, r *http.Request) {
	resource, err := h.svc.Content.GetResource(r.Context(), actor(r), pathVar(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resource)
}

func (h *Handler) createResource(w http.ResponseWriter, r *http.Request) {
	var req ResourceRequest
	if !h.decode(w, r, &req) {
		return
	}
	resource, err := h.svc.Content.CreateResource(r.Context(), actor(r), req.input())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resource)
}

func (h *Handler) updateResource(w http.ResponseWriter, r *http.Request) {
	var req ResourceRequest
	if !h.decode(w, r, &req) {
		return
	}
	resource, err := h.svc.Content.UpdateResource(r.Context(), actor(r), pathVar(r, "id"), req.input())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resource)
}

func (h *Handler) deleteResource(w http.ResponseWriter, r *http.Request) {
	if !h.requireConfirm(w, r) {
		return
	}
	if err := h.svc.Content.DeleteResource(r.Context(), actor(r), pathVar(r, "id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.Content.ListCategories(r.Context(), query(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.svc.Content.GetCategory(r.Context(), pathVar(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !h.decode(w, r, &req) {
		return
	}
	category, err := h.svc.Content.CreateCategory(r.Context(), domain.CategoryInput{Name: req.Name, Description: req.Description})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !h.decode(w, r, &req) {
		return
	}
	category, err := h.svc.Content.UpdateCategory(r.Context(), pathVar(r, "id"), domain.CategoryInput{Name: req.Name, Description: req.Description})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if !h.requireConfirm(w, r) {
		return
	}
	if err := h.svc.Content.DeleteCategory(r.Context(), pathVar(r, "id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
