package domain_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/cesizen/internal/domain"
	"example.com/cesizen/internal/listing"
	"example.com/cesizen/internal/persistence/memory"
	platformauth "example.com/cesizen/internal/platform/auth"
)

var adminActor = &domain.Actor{ID: "admin-1", Role: platformauth.RoleAdmin}

func strp(s string) *string { return &s }

func TestCategoryNamesAreUniqueCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := domain.NewContentService(store, store, nil, time.Minute)

	_, err := svc.CreateCategory(ctx, domain.CategoryInput{Name: "Stress"})
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, domain.CategoryInput{Name: " stress "})
	require.ErrorIs(t, err, domain.ErrConflict)
	_, err = svc.CreateCategory(ctx, domain.CategoryInput{Name: "x"})
	var verr domain.ValidationErrors
	require.ErrorAs(t, err, &verr)
}

func TestDeleteCategoryInUseConflicts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := domain.NewContentService(store, store, nil, time.Minute)

	category, err := svc.CreateCategory(ctx, domain.CategoryInput{Name: "Sleep"})
	require.NoError(t, err)
	res, err := svc.CreateResource(ctx, adminActor, domain.ResourceInput{
		Title: strp("Better sleep"), Type: strp("article"), CategoryID: strp(category.ID),
	})
	require.NoError(t, err)

	require.ErrorIs(t, svc.DeleteCategory(ctx, category.ID), domain.ErrConflict)
	require.NoError(t, svc.DeleteResource(ctx, adminActor, res.ID))
	require.NoError(t, svc.DeleteCategory(ctx, category.ID))
}

func TestResourceValidationAndVisibility(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := domain.NewContentService(store, store, nil, time.Minute)

	_, err := svc.CreateResource(ctx, adminActor, domain.ResourceInput{Title: strp("ab"), Type: strp("podcast")})
	var verr domain.ValidationErrors
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr, 2)

	_, err = svc.CreateResource(ctx, adminActor, domain.ResourceInput{Title: strp("Orphan"), Type: strp("link"), CategoryID: strp("nope")})
	require.ErrorAs(t, err, &verr)

	_, err = svc.CreateResource(ctx, &domain.Actor{ID: "u", Role: platformauth.RoleUser}, domain.ResourceInput{Title: strp("Nope"), Type: strp("link")})
	require.ErrorIs(t, err, domain.ErrForbidden)

	draft, err := svc.CreateResource(ctx, adminActor, domain.ResourceInput{Title: strp("Draft piece"), Type: strp("video"), Status: strp("draft")})
	require.NoError(t, err)
	_, err = svc.CreateResource(ctx, adminActor, domain.ResourceInput{Title: strp("Published piece"), Type: strp("audio")})
	require.NoError(t, err)

	public, err := svc.ListResources(ctx, nil, domain.ResourceFilter{}, listing.Query{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 1, public.Total)

	all, err := svc.ListResources(ctx, adminActor, domain.ResourceFilter{}, listing.Query{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 2, all.Total)

	_, err = svc.GetResource(ctx, nil, draft.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	updated, err := svc.UpdateResource(ctx, adminActor, draft.ID, domain.ResourceInput{Status: strp("published")})
	require.NoError(t, err)
	require.Equal(t, domain.StatusPublished, updated.Status)
	require.Equal(t, "Draft piece", updated.Title)
}
