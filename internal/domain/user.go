package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"example.com/cesizen/internal/listing"
	platformauth "example.com/cesizen/internal/platform/auth"
)

const (
	minPasswordLength = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordLength = 72
)

var dummyHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("cesizen-placeholder"), bcrypt.DefaultCost)
	return hash
})

// User is a registered account.
type User struct {
	ID           string            `json:"id"`
	Email        string            `json:"email"`
	Username     string            `json:"username"`
	FirstName    string            `json:"first_name,omitempty"`
	LastName     string            `json:"last_name,omitempty"`
	Role         platformauth.Role `json:"role"`
	IsActive     bool              `json:"is_active"`
	PasswordHash string            `json:"-"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// UserRepository persists accounts. Lookups return (nil, nil) when nothing matches.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdateUser(ctx context.Context, user User) error
	DeleteUser(ctx context.Context, id string) error
}

// UserService implements registration, authentication and account administration.
type UserService struct {
	repo UserRepository
	cost int
	now  func() time.Time
}

// NewUserService constructs a UserService.
func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo, cost: bcrypt.DefaultCost, now: utcNow}
}

// WithHashCost overrides the bcrypt cost.
func (s *UserService) WithHashCost(cost int) *UserService {
	s.cost = cost
	return s
}

// RegisterInput is a self-service sign up.
type RegisterInput struct {
	Email     string
	Username  string
	Password  string
	FirstName string
	LastName  string
}

// CreateUserInput is an administrative account creation.
type CreateUserInput struct {
	RegisterInput
	Role string
}

// UpdateUserInput carries the fields to change; nil fields are left untouched.
type UpdateUserInput struct {
	Email     *string
	Username  *string
	FirstName *string
	LastName  *string
	IsActive  *bool
}

// Register creates a regular user account.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*User, error) {
	return s.create(ctx, input, platformauth.RoleUser)
}

// CreateUser creates an account on behalf of an administrator. The role defaults to user and may not
// exceed the actor's own role.
func (s *UserService) CreateUser(ctx context.Context, actor *Actor, input CreateUserInput) (*User, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	role := platformauth.RoleUser
	if strings.TrimSpace(input.Role) != "" {
		parsed, ok := platformauth.ParseRole(input.Role)
		if !ok {
			return nil, Invalid("role", "unknown role")
		}
		role = parsed
	}
	if role.Rank() > actor.Role.Rank() {
		return nil, ErrForbidden
	}
	return s.create(ctx, input.RegisterInput, role)
}

func (s *UserService) create(ctx context.Context, input RegisterInput, role platformauth.Role) (*User, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, Invalid("email", "is required")
	}
	if err := checkPassword("password", input.Password); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("email %s: %w", email, ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     strings.TrimSpace(input.Username),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Role:         role,
		IsActive:     true,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if user.Username == "" {
		user.Username = strings.SplitN(email, "@", 2)[0]
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Authenticate verifies credentials and returns the matching active account.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Unknown emails cost one comparison too.
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return user, nil
}

// GetUser fetches an account by id.
func (s *UserService) GetUser(ctx context.Context, id string) (*User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// ListUsers searches over email, username and names, optionally restricted to one role.
func (s *UserService) ListUsers(ctx context.Context, q listing.Query, role string) (listing.Page[User], error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return listing.Page[User]{}, err
	}
	if role = strings.TrimSpace(role); role != "" {
		users = listing.Filter(users, func(u User) bool { return string(u.Role) == role })
	}
	return listing.Apply(users, q,
		[]func(User) string{
			func(u User) string { return u.Email },
			func(u User) string { return u.Username },
			func(u User) string { return u.FirstName },
			func(u User) string { return u.LastName },
		},
		map[string]listing.Sorter[User]{
			"email":      listing.ByFold(func(u User) string { return u.Email }),
			"username":   listing.ByFold(func(u User) string { return u.Username }),
			"role":       listing.By(func(u User) int { return u.Role.Rank() }),
			"created_at": listing.By(func(u User) int64 { return u.CreatedAt.UnixNano() }),
		}, "created_at"), nil
}

// UpdateUser applies an administrative profile change.
func (s *UserService) UpdateUser(ctx context.Context, actor *Actor, id string, input UpdateUserInput) (*User, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role.Rank() > actor.Role.Rank() {
		return nil, ErrForbidden
	}
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if email == "" {
			return nil, Invalid("email", "is required")
		}
		if email != user.Email {
			other, err := s.repo.GetUserByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if other != nil {
				return nil, fmt.Errorf("email %s: %w", email, ErrConflict)
			}
			user.Email = email
		}
	}
	if input.Username != nil {
		user.Username = strings.TrimSpace(*input.Username)
	}
	if input.FirstName != nil {
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.IsActive != nil {
		if !*input.IsActive && user.ID == actor.ID {
			return nil, fmt.Errorf("deactivate own account: %w", ErrForbidden)
		}
		user.IsActive = *input.IsActive
	}
	user.UpdatedAt = s.now()
	if err := s.repo.UpdateUser(ctx, *user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes an account. Administrators cannot delete themselves or higher-ranked accounts.
func (s *UserService) DeleteUser(ctx context.Context, actor *Actor, id string) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if actor.ID == id {
		return fmt.Errorf("delete own account: %w", ErrForbidden)
	}
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if user.Role.Rank() > actor.Role.Rank() {
		return ErrForbidden
	}
	return s.repo.DeleteUser(ctx, id)
}

// ChangeRole assigns a new role. An actor cannot change their own role, grant a role above their own,
// or demote someone who outranks them.
func (s *UserService) ChangeRole(ctx context.Context, actor *Actor, id, roleName string) (*User, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	role, ok := platformauth.ParseRole(roleName)
	if !ok {
		return nil, Invalid("role", "unknown role")
	}
	if actor.ID == id {
		return nil, fmt.Errorf("change own role: %w", ErrForbidden)
	}
	if role.Rank() > actor.Role.Rank() {
		return nil, ErrForbidden
	}
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role.Rank() > actor.Role.Rank() {
		return nil, ErrForbidden
	}
	user.Role = role
	user.UpdatedAt = s.now()
	if err := s.repo.UpdateUser(ctx, *user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	if err := checkPassword("new_password", next); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	user.UpdatedAt = s.now()
	return s.repo.UpdateUser(ctx, *user)
}

// EnsureAdmin creates a super administrator with the given credentials unless the email is taken.
// It reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	_, err := s.create(ctx, RegisterInput{Email: email, Username: "admin", Password: password}, platformauth.RoleSuperAdmin)
	if errors.Is(err, ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func checkPassword(field, password string) error {
	switch {
	case len(password) < minPasswordLength:
		return Invalid(field, fmt.Sprintf("must be at least %d characters", minPasswordLength))
	case len(password) > maxPasswordLength:
		return Invalid(field, fmt.Sprintf("must be at most %d bytes", maxPasswordLength))
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func utcNow() time.Time {
	return time.Now().UTC()
}
