//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"example.com/cesizen/internal/domain"
	"example.com/cesizen/internal/platform/events"
	"example.com/cesizen/internal/testutil"
)

func TestReportLifecycleWritesOutbox(t *testing.T) {
	ctx := context.Background()
	pool, _ := testutil.StartPostgres(t)
	repo := NewRepository(pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	info := domain.InfoResource{ID: uuid.NewString(), Title: "Stress", Content: "body", IsPublished: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.CreateInfoResource(ctx, info))

	report := domain.Report{
		ID: uuid.NewString(), ReporterID: "u1", TargetType: domain.TargetInfoResource, TargetID: info.ID,
		Reason: "spam", Status: domain.ReportPending, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, repo.CreateReport(ctx, report))
	require.NoError(t, repo.UpdateReportStatus(ctx, report.ID, domain.ReportPending, domain.ReportReviewed, "admin", now))

	err := repo.UpdateReportStatus(ctx, report.ID, domain.ReportPending, domain.ReportResolved, "admin", now)
	require.ErrorIs(t, err, domain.ErrConflict)
	err = repo.UpdateReportStatus(ctx, uuid.NewString(), domain.ReportPending, domain.ReportResolved, "admin", now)
	require.ErrorIs(t, err, domain.ErrNotFound)

	stored, err := repo.GetReport(ctx, report.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ReportReviewed, stored.Status)
	require.NotNil(t, stored.ReviewedAt)

	rows, err := pool.Query(ctx, `SELECT event_type, topic FROM outbox ORDER BY event_id`)
	require.NoError(t, err)
	defer rows.Close()
	var types []string
	for rows.Next() {
		var eventType, topic string
		require.NoError(t, rows.Scan(&eventType, &topic))
		types = append(types, eventType)
		require.Equal(t, eventCatalog[eventType].Topic, topic)
	}
	require.Equal(t, []string{events.TypeContentChanged, events.TypeReportCreated, events.TypeReportStatusChanged}, types)
}

func TestDiagnosticHistoryPagination(t *testing.T) {
	ctx := context.Background()
	pool, _ := testutil.StartPostgres(t)
	repo := NewRepository(pool)

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := range 5 {
		require.NoError(t, repo.SaveResult(ctx, domain.DiagnosticResult{
			ID: uuid.NewString(), UserID: "u1", Score: 100 + i, Level: domain.StressLow, Message: "ok",
			EventIDs: []string{"e1"}, CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	first, next, err := repo.ListResults(ctx, "u1", nil, 3)
	require.NoError(t, err)
	require.Len(t, first, 3)
	require.Equal(t, 104, first[0].Score)
	require.True(t, first[0].Stored)
	require.NotNil(t, next)

	second, next, err := repo.ListResults(ctx, "u1", next, 3)
	require.NoError(t, err)
	require.Len(t, second, 2)
	require.Nil(t, next)

	n, err := count(ctx, pool, `SELECT COUNT(*) FROM outbox WHERE event_type=$1`, events.TypeDiagnosticCompleted)
	require.NoError(t, err)
	require.Equal(t, 5, n)
}

func TestInfoEngagementAndCascade(t *testing.T) {
	ctx := context.Background()
	pool, _ := testutil.StartPostgres(t)
	repo := NewRepository(pool)

	now := time.Now().UTC()
	info := domain.InfoResource{ID: uuid.NewString(), Title: "Breathing", Content: "body", Tags: []string{"calm"}, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.CreateInfoResource(ctx, info))
	require.NoError(t, repo.AddComment(ctx, domain.Comment{ID: uuid.NewString(), ResourceID: info.ID, UserID: "u1", Content: "hi", CreatedAt: now}))
	require.NoError(t, repo.AddShare(ctx, domain.Share{ID: uuid.NewString(), ResourceID: info.ID, Platform: "link", CreatedAt: now}))

	liked, err := repo.ToggleLike(ctx, info.ID, "u1")
	require.NoError(t, err)
	require.True(t, liked)

	got, err := repo.GetInfoResource(ctx, info.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.LikesCount)
	require.Equal(t, 1, got.CommentsCount)
	require.Equal(t, 1, got.SharesCount)
	require.Equal(t, []string{"calm"}, got.Tags)

	liked, err = repo.ToggleLike(ctx, info.ID, "u1")
	require.NoError(t, err)
	require.False(t, liked)

	require.NoError(t, repo.DeleteInfoResource(ctx, info.ID))
	comments, err := repo.ListComments(ctx, info.ID)
	require.NoError(t, err)
	require.Empty(t, comments)
	require.ErrorIs(t, repo.DeleteInfoResource(ctx, info.ID), domain.ErrNotFound)
}

func TestUserEmailUniqueness(t *testing.T) {
	ctx := context.Background()
	pool, _ := testutil.StartPostgres(t)
	repo := NewRepository(pool)

	now := time.Now().UTC()
	user := domain.User{ID: uuid.NewString(), Email: "a@example.com", Username: "a", Role: "user", IsActive: true, PasswordHash: "x", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.CreateUser(ctx, user))

	dup := user
	dup.ID = uuid.NewString()
	dup.Email = "A@example.com"
	require.ErrorIs(t, repo.CreateUser(ctx, dup), domain.ErrConflict)

	found, err := repo.GetUserByEmail(ctx, "A@EXAMPLE.COM")
	require.NoError(t, err)
	require.Equal(t, user.ID, found.ID)

	missingUser, err := repo.GetUser(ctx, uuid.NewString())
	require.NoError(t, err)
	require.Nil(t, missingUser)
}
