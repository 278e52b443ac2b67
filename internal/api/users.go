package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"example.com/cesizen/internal/domain"
)

func (h *Handler) registerUsers(r *mux.Router) {
	r.Handle("/users", h.admin(h.listUsers)).Methods(http.MethodGet)
	r.Handle("/users", h.admin(h.createUser)).Methods(http.MethodPost)
	r.Handle("/users/{id}", h.admin(h.getUser)).Methods(http.MethodGet)
	r.Handle("/users/{id}", h.admin(h.updateUser)).Methods(http.MethodPut)
	r.Handle("/users/{id}", h.admin(h.deleteUser)).Methods(http.MethodDelete)
	r.Handle("/users/{id}/role", h.admin(h.changeRole)).Methods(http.MethodPut)
}

// CreateUserRequest is the payload for POST /api/users.
type CreateUserRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Role      string `json:"role" validate:"omitempty,oneof=user admin super_admin"`
}

// UpdateUserRequest is the payload for PUT /api/users/{id}.
type UpdateUserRequest struct {
	Email     *string `json:"email" validate:"omitempty,email,max=254"`
	Username  *string `json:"username" validate:"omitempty,min=3,max=50"`
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	IsActive  *bool   `json:"is_active"`
}

// ChangeRoleRequest is the payload for PUT /api/users/{id}/role.
type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin super_admin"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.Users.ListUsers(r.Context(), query(r), r.URL.Query().Get("role"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Users.GetUser(r.Context(), pathVar(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.svc.Users.CreateUser(r.Context(), actor(r), domain.CreateUserInput{
		RegisterInput: domain.RegisterInput{
			Email:     req.Email,
			Username:  req.Username,
			Password:  req.Password,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		},
		Role: req.Role,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.svc.Users.UpdateUser(r.Context(), actor(r), pathVar(r, "id"), domain.UpdateUserInput{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsActive:  req.IsActive,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if !h.requireConfirm(w, r) {
		return
	}
	if err := h.svc.Users.DeleteUser(r.Context(), actor(r), pathVar(r, "id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request) {
	var req ChangeRoleRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.svc.Users.ChangeRole(r.Context(), actor(r), pathVar(r, "id"), req.Role)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}
