// Package domain defines the CesiZen entities, repository contracts and business rules.
package domain

import (
	"errors"
	"strings"

	platformauth "example.com/cesizen/internal/platform/auth"
)

var (
	// ErrNotFound is returned when an entity cannot be located.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write would violate a uniqueness or reference rule.
	ErrConflict = errors.New("conflict")
	// ErrForbidden is returned when the actor may not perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials is returned when email/password do not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactiveUser is returned when a disabled account tries to sign in.
	ErrInactiveUser = errors.New("account is disabled")
	// ErrInvalidTransition is returned for report status changes the workflow does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError describes one rejected field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors aggregates field errors.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "; ")
}

// Invalid is shorthand for a single-field validation failure.
func Invalid(field, message string) error {
	return ValidationErrors{{Field: field, Message: message}}
}

// Actor identifies the caller of a service operation.
type Actor struct {
	ID   string
	Role platformauth.Role
}

// IsAdmin reports whether the actor holds administrative privileges.
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role.AtLeast(platformauth.RoleAdmin)
}

// Owns reports whether the actor is ownerID or an administrator.
func (a *Actor) Owns(ownerID string) bool {
	if a == nil {
		return false
	}
	return a.ID == ownerID || a.IsAdmin()
}
