package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"example.com/cesizen/internal/domain"
)

func (h *Handler) registerInfo(r *mux.Router) {
	r.HandleFunc("/info/tags", h.infoTags).Methods(http.MethodGet)
	r.HandleFunc("/info/resources", h.listInfo).Methods(http.MethodGet)
	r.HandleFunc("/info/resources/category/{categoryId}", h.listInfoByCategory).Methods(http.MethodGet)
	r.HandleFunc("/info/resources/tag/{tag}", h.listInfoByTag).Methods(http.MethodGet)
	r.HandleFunc("/info/resources/{id}", h.getInfo).Methods(http.MethodGet)
	r.Handle("/info/resources", h.admin(h.createInfo)).Methods(http.MethodPost)
	r.Handle("/info/resources/{id}", h.admin(h.updateInfo)).Methods(http.MethodPut)
	r.Handle("/info/resources/{id}", h.admin(h.deleteInfo)).Methods(http.MethodDelete)

	r.HandleFunc("/info/resources/{id}/comments", h.listComments).Methods(http.MethodGet)
	r.Handle("/info/resources/{id}/comments", h.authed(h.addComment)).Methods(http.MethodPost)
	r.Handle("/info/resources/{id}/comments/{commentId}", h.authed(h.deleteComment)).Methods(http.MethodDelete)

	r.HandleFunc("/info/resources/{id}/likes", h.likes).Methods(http.MethodGet)
	r.Handle("/info/resources/{id}/likes", h.authed(h.toggleLike)).Methods(http.MethodPost)

	r.HandleFunc("/info/resources/{id}/shares", h.shares).Methods(http.MethodGet)
	r.HandleFunc("/info/resources/{id}/shares", h.share).Methods(http.MethodPost)
}

// InfoRequest is the payload for POST and PUT /api/info/resources.
type InfoRequest struct {
	Title       *string   `json:"title" validate:"omitempty,min=3,max=150"`
	Summary     *string   `json:"summary" validate:"omitempty,max=500"`
	Content     *string   `json:"content" validate:"omitempty,max=100000"`
	CategoryID  *string   `json:"category_id" validate:"omitempty,max=64"`
	Tags        *[]string `json:"tags" validate:"omitempty,max=20,dive,max=30"`
	MediaURL    *string   `json:"media_url" validate:"omitempty,max=2048"`
	MediaType   *string   `json:"media_type" validate:"omitempty,oneof=image video audio document"`
	IsPublished *bool     `json:"is_published"`
}

func (req InfoRequest) input() domain.InfoInput {
	in := domain.InfoInput{
		Title:       req.Title,
		Summary:     req.Summary,
		Content:     req.Content,
		CategoryID:  req.CategoryID,
		MediaURL:    req.MediaURL,
		MediaType:   req.MediaType,
		IsPublished: req.IsPublished,
	}
	if req.Tags != nil {
		in.Tags = *req.Tags
		in.SetTags = true
	}
	return in
}

// CommentRequest is the payload for POST /api/info/resources/{id}/comments.
type CommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=1000"`
}

// ShareRequest is the payload for POST /api/info/resources/{id}/shares.
type ShareRequest struct {
	Platform string `json:"platform" validate:"max=50"`
}

func (h *Handler) listInfoWith(w http.ResponseWriter, r *http.Request, filter domain.InfoFilter) {
	page, err := h.svc.Info.List(r.Context(), actor(r), filter, query(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) listInfo(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	h.listInfoWith(w, r, domain.InfoFilter{CategoryID: values.Get("category_id"), Tag: values.Get("tag")})
}

func (h *Handler) listInfoByCategory(w http.ResponseWriter, r *http.Request) {
	h.listInfoWith(w, r, domain.InfoFilter{CategoryID: pathVar(r, "categoryId")})
}

func (h *Handler) listInfoByTag(w http.ResponseWriter, r *http.Request) {
	h.listInfoWith(w, r, domain.InfoFilter{Tag: pathVar(r, "tag")})
}

func (h *Handler) getInfo(w http.ResponseWriter, r *http.Request) {
	resource, err := h.svc.Info.Get(r.Context(), actor(r), pathVar(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resource)
}

func (h *Handler) createInfo(w http.ResponseWriter, r *http.Request) {
	var req InfoRequest
	if !h.decode(w, r, &req) {
		return
	}
	resource, err := h.svc.Info.Create(r.Context(), actor(r), req.input())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resource)
}

func (h *Handler) updateInfo(w http.ResponseWriter, r *http.Request) {
	var req InfoRequest
	if !h.decode(w, r, &req) {
		return
	}
	resource, err := h.svc.Info.Update(r.Context(), actor(r), pathVar(r, "id"), req.input())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resource)
}

func (h *Handler) deleteInfo(w http.ResponseWriter, r *http.Request) {
	if !h.requireConfirm(w, r) {
		return
	}
	if err := h.svc.Info.Delete(r.Context(), actor(r), pathVar(r, "id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) infoTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.Info.Tags(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

func (h *Handler) listComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.svc.Info.Comments(r.Context(), actor(r), pathVar(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": comments, "total": len(comments)})
}

func (h *Handler) addComment(w http.ResponseWriter, r *http.Request) {
	var req CommentRequest
	if !h.decode(w, r, &req) {
		return
	}
	comment, err := h.svc.Info.AddComment(r.Context(), actor(r), pathVar(r, "id"), req.Content)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *Handler) deleteComment(w http.ResponseWriter, r *http.Request) {
	if !h.requireConfirm(w, r) {
		return
	}
	if err := h.svc.Info.DeleteComment(r.Context(), actor(r), pathVar(r, "id"), pathVar(r, "commentId")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) likes(w http.ResponseWriter, r *http.Request) {
	state, err := h.svc.Info.Likes(r.Context(), actor(r), pathVar(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) toggleLike(w http.ResponseWriter, r *http.Request) {
	state, err := h.svc.Info.ToggleLike(r.Context(), actor(r), pathVar(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) shares(w http.ResponseWriter, r *http.Request) {
	count, err := h.svc.Info.Shares(r.Context(), actor(r), pathVar(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (h *Handler) share(w http.ResponseWriter, r *http.Request) {
	var req ShareRequest
	if !h.decode(w, r, &req) {
		return
	}
	count, err := h.svc.Info.Share(r.Context(), actor(r), pathVar(r, "id"), req.Platform)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"count": count})
}
