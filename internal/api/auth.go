package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"example.com/cesizen/internal/auth"
	"example.com/cesizen/internal/domain"
	platformauth "example.com/cesizen/internal/platform/auth"
)

func (h *Handler) registerAuth(r *mux.Router) {
	r.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)
	r.Handle("/auth/login", h.limiter.Wrap(http.HandlerFunc(h.login))).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", h.logout).Methods(http.MethodPost)
	r.Handle("/auth/me", h.authed(h.me)).Methods(http.MethodGet)
	r.Handle("/auth/password", h.authed(h.changePassword)).Methods(http.MethodPut)
}

// RegisterRequest is the payload for POST /api/auth/register.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
}

// LoginRequest is the payload for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest is the payload for PUT /api/auth/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token,omitempty"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.svc.Users.Register(r.Context(), domain.RegisterInput{
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	token, ok := h.startSession(w, r, user)
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, SessionResponse{User: user, Token: token})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.svc.Users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.WithField("ip", auth.ClientIP(r)).WithError(err).Warn("login refused")
		h.writeDomainError(w, r, err)
		return
	}
	token, ok := h.startSession(w, r, user)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{User: user, Token: token})
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, user *domain.User) (string, bool) {
	token, _, err := platformauth.Issue(platformauth.Claims{
		Subject: user.ID,
		Email:   user.Email,
		Role:    user.Role,
	}, h.tokens, h.now())
	if err != nil {
		h.writeDomainError(w, r, err)
		return "", false
	}
	if h.sessions != nil {
		if err := h.sessions.Save(w, r, token); err != nil {
			h.writeDomainError(w, r, err)
			return "", false
		}
	}
	return token, true
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if h.sessions != nil {
		if err := h.sessions.Clear(w, r); err != nil {
			h.writeDomainError(w, r, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Users.GetUser(r.Context(), actor(r).ID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.Users.ChangePassword(r.Context(), actor(r).ID, req.CurrentPassword, req.NewPassword); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
