package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"example.com/cesizen/internal/listing"
)

// ReportStatus is the moderation state of a report.
type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportReviewed  ReportStatus = "reviewed"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

// ReportStatuses lists every status in workflow order.
var ReportStatuses = []ReportStatus{ReportPending, ReportReviewed, ReportResolved, ReportDismissed}

var reportTransitions = map[ReportStatus][]ReportStatus{
	ReportPending:  {ReportReviewed, ReportResolved, ReportDismissed},
	ReportReviewed: {ReportResolved, ReportDismissed},
}

// CanTransition reports whether the workflow allows moving from one status to another.
func CanTransition(from, to ReportStatus) bool {
	for _, next := range reportTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Report target kinds.
const (
	TargetResource     = "resource"
	TargetInfoResource = "info_resource"
	TargetComment      = "comment"
)

// ReportTargetTypes lists the reportable entity kinds.
var ReportTargetTypes = []string{TargetResource, TargetInfoResource, TargetComment}

// Report is a user flag on content awaiting moderation.
type Report struct {
	ID          string       `json:"id"`
	ReporterID  string       `json:"reporter_id"`
	TargetType  string       `json:"target_type"`
	TargetID    string       `json:"target_id"`
	Reason      string       `json:"reason"`
	Description string       `json:"description,omitempty"`
	Status      ReportStatus `json:"status"`
	ReviewedBy  string       `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time   `json:"reviewed_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// ReportStatistics summarises the moderation queue.
type ReportStatistics struct {
	Total        int            `json:"total"`
	ByStatus     map[string]int `json:"by_status"`
	ByTargetType map[string]int `json:"by_target_type"`
}

// ReportRepository persists reports. Lookups return (nil, nil) when nothing matches.
type ReportRepository interface {
	CreateReport(ctx context.Context, report Report) error
	GetReport(ctx context.Context, id string) (*Report, error)
	ListReports(ctx context.Context) ([]Report, error)
	// UpdateReportStatus moves the report from one status to another and fails with ErrConflict if
	// the stored status is no longer from.
	UpdateReportStatus(ctx context.Context, id string, from, to ReportStatus, by string, at time.Time) error
	DeleteReport(ctx context.Context, id string) error
}

// ReportTargets resolves reportable entities. Lookups return (nil, nil) when nothing matches.
type ReportTargets interface {
	GetResource(ctx context.Context, id string) (*Resource, error)
	GetInfoResource(ctx context.Context, id string) (*InfoResource, error)
	GetComment(ctx context.Context, id string) (*Comment, error)
}

// ReportService runs the moderation workflow.
type ReportService struct {
	repo    ReportRepository
	targets ReportTargets
	now     func() time.Time
}

// NewReportService constructs a ReportService. A nil targets skips target existence checks.
func NewReportService(repo ReportRepository, targets ReportTargets) *ReportService {
	return &ReportService{repo: repo, targets: targets, now: utcNow}
}

// ReportInput is a new flag.
type ReportInput struct {
	TargetType  string
	TargetID    string
	Reason      string
	Description string
}

// Create files a report by the actor.
func (s *ReportService) Create(ctx context.Context, actor *Actor, input ReportInput) (*Report, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	var errs ValidationErrors
	targetType := strings.ToLower(strings.TrimSpace(input.TargetType))
	switch targetType {
	case TargetResource, TargetInfoResource, TargetComment:
	default:
		errs = append(errs, ValidationError{Field: "target_type", Message: "must be one of resource, info_resource, comment"})
	}
	targetID := strings.TrimSpace(input.TargetID)
	if targetID == "" {
		errs = append(errs, ValidationError{Field: "target_id", Message: "is required"})
	}
	reason := strings.TrimSpace(input.Reason)
	if n := utf8.RuneCountInString(reason); n < 3 || n > 200 {
		errs = append(errs, ValidationError{Field: "reason", Message: "must be between 3 and 200 characters"})
	}
	if len(errs) > 0 {
		return nil, errs
	}
	if err := s.checkTarget(ctx, actor, targetType, targetID); err != nil {
		return nil, err
	}

	now := s.now()
	report := Report{
		ID:          uuid.NewString(),
		ReporterID:  actor.ID,
		TargetType:  targetType,
		TargetID:    targetID,
		Reason:      reason,
		Description: strings.TrimSpace(input.Description),
		Status:      ReportPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateReport(ctx, report); err != nil {
		return nil, err
	}
	return &report, nil
}

// checkTarget applies the same visibility rules as the public reads: unpublished content, and comments
// on unpublished info resources, are unknown to non-administrators.
func (s *ReportService) checkTarget(ctx context.Context, actor *Actor, targetType, id string) error {
	if s.targets == nil {
		return nil
	}
	visible, err := s.targetVisible(ctx, actor, targetType, id)
	if err != nil {
		return err
	}
	if !visible {
		return Invalid("target_id", "unknown "+targetType)
	}
	return nil
}

func (s *ReportService) targetVisible(ctx context.Context, actor *Actor, targetType, id string) (bool, error) {
	admin := actor.IsAdmin()
	switch targetType {
	case TargetResource:
		r, err := s.targets.GetResource(ctx, id)
		if err != nil || r == nil {
			return false, err
		}
		return admin || r.Status == StatusPublished, nil
	case TargetInfoResource:
		return s.infoVisible(ctx, admin, id)
	case TargetComment:
		c, err := s.targets.GetComment(ctx, id)
		if err != nil || c == nil {
			return false, err
		}
		return s.infoVisible(ctx, admin, c.ResourceID)
	}
	return false, nil
}

func (s *ReportService) infoVisible(ctx context.Context, admin bool, id string) (bool, error) {
	r, err := s.targets.GetInfoResource(ctx, id)
	if err != nil || r == nil {
		return false, err
	}
	return admin || r.IsPublished, nil
}

// Get fetches a report.
func (s *ReportService) Get(ctx context.Context, id string) (*Report, error) {
	report, err := s.repo.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, ErrNotFound
	}
	return report, nil
}

// List returns a page of reports, optionally filtered by status and target type. Newest first by default.
func (s *ReportService) List(ctx context.Context, status, targetType string, q listing.Query) (listing.Page[Report], error) {
	all, err := s.repo.ListReports(ctx)
	if err != nil {
		return listing.Page[Report]{}, err
	}
	filtered := listing.Filter(all, func(r Report) bool {
		return (status == "" || string(r.Status) == status) && (targetType == "" || r.TargetType == targetType)
	})
	if q.Sort == "" {
		q.Sort, q.Desc = "created_at", true
	}
	return listing.Apply(filtered, q,
		[]func(Report) string{
			func(r Report) string { return r.Reason },
			func(r Report) string { return r.Description },
		},
		map[string]listing.Sorter[Report]{
			"created_at": listing.By(func(r Report) int64 { return r.CreatedAt.UnixNano() }),
			"status":     listing.By(func(r Report) string { return string(r.Status) }),
		}, "created_at"), nil
}

// Statistics counts reports per status and target type. Every status and target type is present.
func (s *ReportService) Statistics(ctx context.Context) (ReportStatistics, error) {
	all, err := s.repo.ListReports(ctx)
	if err != nil {
		return ReportStatistics{}, err
	}
	stats := ReportStatistics{
		Total:        len(all),
		ByStatus:     make(map[string]int, len(ReportStatuses)),
		ByTargetType: make(map[string]int, len(ReportTargetTypes)),
	}
	for _, st := range ReportStatuses {
		stats.ByStatus[string(st)] = 0
	}
	for _, t := range ReportTargetTypes {
		stats.ByTargetType[t] = 0
	}
	for _, r := range all {
		stats.ByStatus[string(r.Status)]++
		stats.ByTargetType[r.TargetType]++
	}
	return stats, nil
}

// UpdateStatus moves a report along the workflow.
func (s *ReportService) UpdateStatus(ctx context.Context, actor *Actor, id, status string) (*Report, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	to := ReportStatus(strings.ToLower(strings.TrimSpace(status)))
	switch to {
	case ReportPending, ReportReviewed, ReportResolved, ReportDismissed:
	default:
		return nil, Invalid("status", "must be one of pending, reviewed, resolved, dismissed")
	}
	report, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(report.Status, to) {
		return nil, fmt.Errorf("%s -> %s: %w", report.Status, to, ErrInvalidTransition)
	}
	now := s.now()
	if err := s.repo.UpdateReportStatus(ctx, id, report.Status, to, actor.ID, now); err != nil {
		return nil, err
	}
	report.Status = to
	report.ReviewedBy = actor.ID
	report.ReviewedAt = &now
	report.UpdatedAt = now
	return report, nil
}

// Delete removes a report.
func (s *ReportService) Delete(ctx context.Context, actor *Actor, id string) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteReport(ctx, id)
}
