// Package auth adapts the shared token library to the API: cookie sessions, route guards, login
// throttling and CORS.
package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"example.com/cesizen/internal/domain"
	platformauth "example.com/cesizen/internal/platform/auth"
)

// Claims mirrors the shared auth claims type for service convenience.
type Claims = platformauth.Claims

// Config mirrors the shared auth config.
type Config = platformauth.Config

// FromContext retrieves claims from context.
func FromContext(ctx context.Context) (*Claims, bool) {
	return platformauth.FromContext(ctx)
}

// ActorFrom turns the request claims into a domain actor. Anonymous requests yield nil.
func ActorFrom(ctx context.Context) *domain.Actor {
	claims, ok := platformauth.FromContext(ctx)
	if !ok {
		return nil
	}
	return &domain.Actor{ID: claims.Subject, Role: claims.Role}
}

func writeProblem(w http.ResponseWriter, status int, code, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"type": code, "detail": detail})
}
