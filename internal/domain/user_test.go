package domain_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"example.com/cesizen/internal/domain"
	"example.com/cesizen/internal/listing"
	"example.com/cesizen/internal/persistence/memory"
	platformauth "example.com/cesizen/internal/platform/auth"
)

func newUsers(t *testing.T) (*domain.UserService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return domain.NewUserService(store).WithHashCost(bcrypt.MinCost), store
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newUsers(t)

	user, err := svc.Register(ctx, domain.RegisterInput{Email: " Alice@Example.com ", Username: "alice", Password: "password1"})
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", user.Email)
	require.Equal(t, platformauth.RoleUser, user.Role)
	require.True(t, user.IsActive)

	_, err = svc.Register(ctx, domain.RegisterInput{Email: "alice@example.com", Password: "password2"})
	require.ErrorIs(t, err, domain.ErrConflict)

	got, err := svc.Authenticate(ctx, "ALICE@example.com", "password1")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(ctx, "alice@example.com", "wrong-password")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody@example.com", "password1")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, _ := newUsers(t)
	_, err := svc.Register(context.Background(), domain.RegisterInput{Email: "a@b.c", Password: "short"})
	var verr domain.ValidationErrors
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "password", verr[0].Field)
}

func TestInactiveUserCannotAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newUsers(t)
	admin := &domain.Actor{ID: "admin", Role: platformauth.RoleAdmin}
	user, err := svc.Register(ctx, domain.RegisterInput{Email: "bob@example.com", Password: "password1"})
	require.NoError(t, err)

	inactive := false
	_, err = svc.UpdateUser(ctx, admin, user.ID, domain.UpdateUserInput{IsActive: &inactive})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "bob@example.com", "password1")
	require.ErrorIs(t, err, domain.ErrInactiveUser)
}

func TestRoleChangesRespectHierarchy(t *testing.T) {
	ctx := context.Background()
	svc, _ := newUsers(t)
	admin := &domain.Actor{ID: "admin", Role: platformauth.RoleAdmin}
	super := &domain.Actor{ID: "super", Role: platformauth.RoleSuperAdmin}

	user, err := svc.Register(ctx, domain.RegisterInput{Email: "carol@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.ChangeRole(ctx, admin, user.ID, "super_admin")
	require.ErrorIs(t, err, domain.ErrForbidden)

	promoted, err := svc.ChangeRole(ctx, super, user.ID, "admin")
	require.NoError(t, err)
	require.Equal(t, platformauth.RoleAdmin, promoted.Role)

	_, err = svc.ChangeRole(ctx, &domain.Actor{ID: user.ID, Role: platformauth.RoleAdmin}, user.ID, "user")
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.ChangeRole(ctx, super, user.ID, "emperor")
	var verr domain.ValidationErrors
	require.ErrorAs(t, err, &verr)
}

func TestCreateUserCannotExceedActorRole(t *testing.T) {
	ctx := context.Background()
	svc, _ := newUsers(t)
	admin := &domain.Actor{ID: "admin", Role: platformauth.RoleAdmin}

	_, err := svc.CreateUser(ctx, admin, domain.CreateUserInput{
		RegisterInput: domain.RegisterInput{Email: "x@example.com", Password: "password1"},
		Role:          "super_admin",
	})
	require.ErrorIs(t, err, domain.ErrForbidden)

	created, err := svc.CreateUser(ctx, admin, domain.CreateUserInput{
		RegisterInput: domain.RegisterInput{Email: "x@example.com", Password: "password1"},
		Role:          "admin",
	})
	require.NoError(t, err)
	require.Equal(t, platformauth.RoleAdmin, created.Role)
}

func TestDeleteUserRefusesSelf(t *testing.T) {
	ctx := context.Background()
	svc, _ := newUsers(t)
	user, err := svc.Register(ctx, domain.RegisterInput{Email: "dan@example.com", Password: "password1"})
	require.NoError(t, err)

	err = svc.DeleteUser(ctx, &domain.Actor{ID: user.ID, Role: platformauth.RoleAdmin}, user.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, svc.DeleteUser(ctx, &domain.Actor{ID: "other", Role: platformauth.RoleAdmin}, user.ID))
	_, err = svc.GetUser(ctx, user.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	svc, _ := newUsers(t)
	user, err := svc.Register(ctx, domain.RegisterInput{Email: "eve@example.com", Password: "password1"})
	require.NoError(t, err)

	require.ErrorIs(t, svc.ChangePassword(ctx, user.ID, "nope-nope", "password2"), domain.ErrInvalidCredentials)
	require.NoError(t, svc.ChangePassword(ctx, user.ID, "password1", "password2"))
	_, err = svc.Authenticate(ctx, "eve@example.com", "password2")
	require.NoError(t, err)
}

func TestListUsersFiltersAndSearches(t *testing.T) {
	ctx := context.Background()
	svc, _ := newUsers(t)
	_, err := svc.Register(ctx, domain.RegisterInput{Email: "zoe@example.com", Username: "zoe", Password: "password1"})
	require.NoError(t, err)
	_, err = svc.EnsureAdmin(ctx, "root@example.com", "password1")
	require.NoError(t, err)
	created, err := svc.EnsureAdmin(ctx, "root@example.com", "password1")
	require.NoError(t, err)
	require.False(t, created)

	page, err := svc.ListUsers(ctx, listing.Query{Page: 1, Limit: 10}, "super_admin")
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	require.Equal(t, "root@example.com", page.Items[0].Email)

	page, err = svc.ListUsers(ctx, listing.Query{Search: "ZO", Page: 1, Limit: 10}, "")
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
}
