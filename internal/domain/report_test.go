package domain_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/cesizen/internal/domain"
	"example.com/cesizen/internal/listing"
	"example.com/cesizen/internal/persistence/memory"
)

func TestCanTransition(t *testing.T) {
	require.True(t, domain.CanTransition(domain.ReportPending, domain.ReportReviewed))
	require.True(t, domain.CanTransition(domain.ReportReviewed, domain.ReportDismissed))
	require.False(t, domain.CanTransition(domain.ReportReviewed, domain.ReportPending))
	require.False(t, domain.CanTransition(domain.ReportResolved, domain.ReportDismissed))
	require.False(t, domain.CanTransition(domain.ReportDismissed, domain.ReportResolved))
}

func TestReportWorkflowAndStatistics(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	content := domain.NewContentService(store, store, nil, time.Minute)
	reports := domain.NewReportService(store, store)

	res, err := content.CreateResource(ctx, adminActor, domain.ResourceInput{Title: strp("Yoga"), Type: strp("video")})
	require.NoError(t, err)

	reporter := &domain.Actor{ID: "u1"}
	_, err = reports.Create(ctx, reporter, domain.ReportInput{TargetType: "resource", TargetID: "ghost", Reason: "spam"})
	var verr domain.ValidationErrors
	require.ErrorAs(t, err, &verr)

	report, err := reports.Create(ctx, reporter, domain.ReportInput{TargetType: "resource", TargetID: res.ID, Reason: "misleading"})
	require.NoError(t, err)
	require.Equal(t, domain.ReportPending, report.Status)

	reviewed, err := reports.UpdateStatus(ctx, adminActor, report.ID, "reviewed")
	require.NoError(t, err)
	require.Equal(t, adminActor.ID, reviewed.ReviewedBy)

	_, err = reports.UpdateStatus(ctx, adminActor, report.ID, "pending")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = reports.UpdateStatus(ctx, adminActor, report.ID, "resolved")
	require.NoError(t, err)
	_, err = reports.UpdateStatus(ctx, adminActor, report.ID, "dismissed")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	stats, err := reports.Statistics(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Total)
	require.Equal(t, 1, stats.ByStatus["resolved"])
	require.Equal(t, 0, stats.ByStatus["pending"])
	require.Equal(t, 1, stats.ByTargetType["resource"])
	require.Contains(t, stats.ByTargetType, "comment")

	page, err := reports.List(ctx, "pending", "", listing.Query{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Zero(t, page.Total)
}

func TestReportTargetsFollowVisibility(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	content := domain.NewContentService(store, store, nil, time.Minute)
	info := domain.NewInfoService(store, store, nil, time.Minute)
	reports := domain.NewReportService(store, store)
	hidden := false

	draft, err := content.CreateResource(ctx, adminActor, domain.ResourceInput{Title: strp("Draft piece"), Type: strp("article"), Status: strp("draft")})
	require.NoError(t, err)
	unpublished, err := info.Create(ctx, adminActor, domain.InfoInput{Title: strp("Hidden guide"), Content: strp("Not yet live."), IsPublished: &hidden})
	require.NoError(t, err)
	comment, err := info.AddComment(ctx, adminActor, unpublished.ID, "internal note")
	require.NoError(t, err)

	reporter := &domain.Actor{ID: "u1"}
	targets := map[string]string{"resource": draft.ID, "info_resource": unpublished.ID, "comment": comment.ID}
	for targetType, id := range targets {
		_, err := reports.Create(ctx, reporter, domain.ReportInput{TargetType: targetType, TargetID: id, Reason: "looks wrong"})
		var verr domain.ValidationErrors
		require.ErrorAs(t, err, &verr, targetType)

		_, err = reports.Create(ctx, adminActor, domain.ReportInput{TargetType: targetType, TargetID: id, Reason: "needs review"})
		require.NoError(t, err, targetType)
	}
}
