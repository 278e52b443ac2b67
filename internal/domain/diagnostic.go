package domain

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"example.com/cesizen/internal/cache"
	"example.com/cesizen/internal/listing"
)

// StressLevel buckets a diagnostic score.
type StressLevel string

const (
	StressLow      StressLevel = "low"
	StressModerate StressLevel = "moderate"
	StressHigh     StressLevel = "high"
)

// Score thresholds of the Holmes-Rahe scale.
const (
	moderateThreshold = 150
	highThreshold     = 300
)

var levelMessages = map[StressLevel]string{
	StressLow:      "Your risk of a stress-related health breakdown is low. Keep looking after your balance.",
	StressModerate: "Your risk of a stress-related health breakdown is moderate (about 50%). Consider slowing down and using the relaxation resources.",
	StressHigh:     "Your risk of a stress-related health breakdown is high (about 80%). Talking to a health professional is recommended.",
}

// LevelForScore maps a score to its stress level.
func LevelForScore(score int) StressLevel {
	switch {
	case score >= highThreshold:
		return StressHigh
	case score >= moderateThreshold:
		return StressModerate
	default:
		return StressLow
	}
}

// DiagnosticCategory groups life events.
type DiagnosticCategory struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DiagnosticCategoryCount is a category with the number of questions attached to it.
type DiagnosticCategoryCount struct {
	DiagnosticCategory
	QuestionCount int `json:"question_count"`
}

// DiagnosticQuestion is one life event worth a number of points.
type DiagnosticQuestion struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Points     int       `json:"points"`
	CategoryID string    `json:"category_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// QuestionGroup is one category bucket of the questionnaire.
type QuestionGroup struct {
	Category  DiagnosticCategory   `json:"category"`
	Questions []DiagnosticQuestion `json:"questions"`
}

// DiagnosticResult is a computed assessment.
type DiagnosticResult struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id,omitempty"`
	Score     int         `json:"score"`
	Level     StressLevel `json:"level"`
	Message   string      `json:"message"`
	EventIDs  []string    `json:"event_ids"`
	Stored    bool        `json:"stored"`
	CreatedAt time.Time   `json:"created_at"`
}

// Cursor models the history pagination token.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// DiagnosticRepository persists the questionnaire and results. Lookups return (nil, nil) when nothing
// matches.
type DiagnosticRepository interface {
	ListDiagnosticCategories(ctx context.Context) ([]DiagnosticCategory, error)
	GetDiagnosticCategory(ctx context.Context, id string) (*DiagnosticCategory, error)
	CreateDiagnosticCategory(ctx context.Context, category DiagnosticCategory) error
	UpdateDiagnosticCategory(ctx context.Context, category DiagnosticCategory) error
	DeleteDiagnosticCategory(ctx context.Context, id string) error

	ListQuestions(ctx context.Context) ([]DiagnosticQuestion, error)
	GetQuestion(ctx context.Context, id string) (*DiagnosticQuestion, error)
	CreateQuestion(ctx context.Context, question DiagnosticQuestion) error
	UpdateQuestion(ctx context.Context, question DiagnosticQuestion) error
	DeleteQuestion(ctx context.Context, id string) error
	// ReplaceQuestions atomically swaps the whole question set.
	ReplaceQuestions(ctx context.Context, questions []DiagnosticQuestion) error

	SaveResult(ctx context.Context, result DiagnosticResult) error
	GetResult(ctx context.Context, id string) (*DiagnosticResult, error)
	// ListResults returns userID's results newest first, strictly after cursor when set.
	ListResults(ctx context.Context, userID string, cursor *Cursor, limit int) ([]DiagnosticResult, *Cursor, error)
	DeleteResult(ctx context.Context, id string) error
}

// DiagnosticService runs the stress assessment.
type DiagnosticService struct {
	repo  DiagnosticRepository
	cache cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewDiagnosticService constructs a DiagnosticService. A nil cache disables read-through caching.
func NewDiagnosticService(repo DiagnosticRepository, c cache.Cache, ttl time.Duration) *DiagnosticService {
	if c == nil {
		c = cache.NoopCache{}
	}
	return &DiagnosticService{repo: repo, cache: c, ttl: ttl, now: utcNow}
}

// DiagnosticCategoryInput is the writable part of a diagnostic category.
type DiagnosticCategoryInput struct {
	Name        string
	Description string
	Position    int
}

// QuestionInput is the writable part of a question. ID is only honoured by Configure.
type QuestionInput struct {
	ID         string
	Title      string
	Points     int
	CategoryID string
}

// ListCategories returns categories in display order.
func (s *DiagnosticService) ListCategories(ctx context.Context) ([]DiagnosticCategory, error) {
	categories, err := s.repo.ListDiagnosticCategories(ctx)
	if err != nil {
		return nil, err
	}
	return sortDiagnosticCategories(categories), nil
}

// ListCategoriesWithCount returns categories with their question counts.
func (s *DiagnosticService) ListCategoriesWithCount(ctx context.Context) ([]DiagnosticCategoryCount, error) {
	categories, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	questions, err := s.questions(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(categories))
	for _, q := range questions {
		counts[q.CategoryID]++
	}
	out := make([]DiagnosticCategoryCount, 0, len(categories))
	for _, c := range categories {
		out = append(out, DiagnosticCategoryCount{DiagnosticCategory: c, QuestionCount: counts[c.ID]})
	}
	return out, nil
}

// GetCategory fetches a diagnostic category.
func (s *DiagnosticService) GetCategory(ctx context.Context, id string) (*DiagnosticCategory, error) {
	category, err := s.repo.GetDiagnosticCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrNotFound
	}
	return category, nil
}

// CreateCategory adds a diagnostic category.
func (s *DiagnosticService) CreateCategory(ctx context.Context, input DiagnosticCategoryInput) (*DiagnosticCategory, error) {
	name, err := s.checkCategoryName(ctx, "", input.Name)
	if err != nil {
		return nil, err
	}
	now := s.now()
	category := DiagnosticCategory{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Position:    input.Position,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateDiagnosticCategory(ctx, category); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return &category, nil
}

// UpdateCategory replaces a diagnostic category's fields.
func (s *DiagnosticService) UpdateCategory(ctx context.Context, id string, input DiagnosticCategoryInput) (*DiagnosticCategory, error) {
	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	name, err := s.checkCategoryName(ctx, id, input.Name)
	if err != nil {
		return nil, err
	}
	category.Name = name
	category.Description = strings.TrimSpace(input.Description)
	category.Position = input.Position
	category.UpdatedAt = s.now()
	if err := s.repo.UpdateDiagnosticCategory(ctx, *category); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return category, nil
}

// DeleteCategory removes a category without questions.
func (s *DiagnosticService) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.GetCategory(ctx, id); err != nil {
		return err
	}
	questions, err := s.repo.ListQuestions(ctx)
	if err != nil {
		return err
	}
	for _, q := range questions {
		if q.CategoryID == id {
			return fmt.Errorf("category still has questions: %w", ErrConflict)
		}
	}
	if err := s.repo.DeleteDiagnosticCategory(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *DiagnosticService) checkCategoryName(ctx context.Context, selfID, raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if n := utf8.RuneCountInString(name); n < 2 || n > 100 {
		return "", Invalid("name", "must be between 2 and 100 characters")
	}
	all, err := s.repo.ListDiagnosticCategories(ctx)
	if err != nil {
		return "", err
	}
	for _, c := range all {
		if c.ID != selfID && strings.EqualFold(c.Name, name) {
			return "", fmt.Errorf("diagnostic category %q: %w", name, ErrConflict)
		}
	}
	return name, nil
}

// ListQuestions returns every question, highest points first.
func (s *DiagnosticService) ListQuestions(ctx context.Context) ([]DiagnosticQuestion, error) {
	questions, err := s.questions(ctx)
	if err != nil {
		return nil, err
	}
	return listing.Sort(questions, questionOrder, false), nil
}

// GroupedQuestions buckets questions by category in category display order. Questions without a known
// category land in a trailing "uncategorized" group.
func (s *DiagnosticService) GroupedQuestions(ctx context.Context) ([]QuestionGroup, error) {
	categories, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	questions, err := s.ListQuestions(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]DiagnosticCategory, len(categories))
	rank := make(map[string]int, len(categories))
	for i, c := range categories {
		byID[c.ID] = c
		rank[c.ID] = i
	}
	keyed := listing.Sort(questions, func(a, b DiagnosticQuestion) int {
		return cmp.Compare(categoryRank(rank, a.CategoryID), categoryRank(rank, b.CategoryID))
	}, false)

	groups := listing.GroupBy(keyed, func(q DiagnosticQuestion) string {
		if _, ok := byID[q.CategoryID]; ok {
			return q.CategoryID
		}
		return ""
	})
	out := make([]QuestionGroup, 0, len(groups))
	for _, g := range groups {
		category, ok := byID[g.Key]
		if !ok {
			category = DiagnosticCategory{Name: "uncategorized", Position: len(categories)}
		}
		out = append(out, QuestionGroup{Category: category, Questions: g.Items})
	}
	return out, nil
}

func categoryRank(rank map[string]int, id string) int {
	if r, ok := rank[id]; ok {
		return r
	}
	return len(rank)
}

// GetQuestion fetches one question.
func (s *DiagnosticService) GetQuestion(ctx context.Context, id string) (*DiagnosticQuestion, error) {
	question, err := s.repo.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if question == nil {
		return nil, ErrNotFound
	}
	return question, nil
}

// CreateQuestion adds a single life event.
func (s *DiagnosticService) CreateQuestion(ctx context.Context, input QuestionInput) (*DiagnosticQuestion, error) {
	if err := s.checkQuestion(ctx, "", input); err != nil {
		return nil, err
	}
	now := s.now()
	question := DiagnosticQuestion{
		ID:         uuid.NewString(),
		Title:      strings.TrimSpace(input.Title),
		Points:     input.Points,
		CategoryID: input.CategoryID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.CreateQuestion(ctx, question); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return &question, nil
}

// UpdateQuestion replaces a question's fields.
func (s *DiagnosticService) UpdateQuestion(ctx context.Context, id string, input QuestionInput) (*DiagnosticQuestion, error) {
	question, err := s.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkQuestion(ctx, "", input); err != nil {
		return nil, err
	}
	question.Title = strings.TrimSpace(input.Title)
	question.Points = input.Points
	question.CategoryID = input.CategoryID
	question.UpdatedAt = s.now()
	if err := s.repo.UpdateQuestion(ctx, *question); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return question, nil
}

// DeleteQuestion removes a question.
func (s *DiagnosticService) DeleteQuestion(ctx context.Context, id string) error {
	if _, err := s.GetQuestion(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteQuestion(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Configure replaces the question set: listed ids are updated, new entries created and unlisted
// questions removed.
func (s *DiagnosticService) Configure(ctx context.Context, inputs []QuestionInput) ([]DiagnosticQuestion, error) {
	existing, err := s.repo.ListQuestions(ctx)
	if err != nil {
		return nil, err
	}
	created := make(map[string]time.Time, len(existing))
	for _, q := range existing {
		created[q.ID] = q.CreatedAt
	}

	now := s.now()
	seen := make(map[string]bool, len(inputs))
	var errs ValidationErrors
	questions := make([]DiagnosticQuestion, 0, len(inputs))
	for i, input := range inputs {
		prefix := fmt.Sprintf("events[%d].", i)
		if err := s.checkQuestion(ctx, prefix, input); err != nil {
			if v, ok := err.(ValidationErrors); ok {
				errs = append(errs, v...)
				continue
			}
			return nil, err
		}
		id := strings.TrimSpace(input.ID)
		if id == "" {
			id = uuid.NewString()
		}
		if seen[id] {
			errs = append(errs, ValidationError{Field: prefix + "id", Message: "duplicate id"})
			continue
		}
		seen[id] = true
		createdAt, ok := created[id]
		if !ok {
			createdAt = now
		}
		questions = append(questions, DiagnosticQuestion{
			ID:         id,
			Title:      strings.TrimSpace(input.Title),
			Points:     input.Points,
			CategoryID: input.CategoryID,
			CreatedAt:  createdAt,
			UpdatedAt:  now,
		})
	}
	if len(errs) > 0 {
		return nil, errs
	}
	if err := s.repo.ReplaceQuestions(ctx, questions); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return listing.Sort(questions, questionOrder, false), nil
}

func (s *DiagnosticService) checkQuestion(ctx context.Context, prefix string, input QuestionInput) error {
	var errs ValidationErrors
	if n := utf8.RuneCountInString(strings.TrimSpace(input.Title)); n < 3 || n > 200 {
		errs = append(errs, ValidationError{Field: prefix + "title", Message: "must be between 3 and 200 characters"})
	}
	if input.Points < 1 || input.Points > 100 {
		errs = append(errs, ValidationError{Field: prefix + "points", Message: "must be between 1 and 100"})
	}
	if input.CategoryID == "" {
		errs = append(errs, ValidationError{Field: prefix + "category_id", Message: "is required"})
	} else {
		category, err := s.repo.GetDiagnosticCategory(ctx, input.CategoryID)
		if err != nil {
			return err
		}
		if category == nil {
			errs = append(errs, ValidationError{Field: prefix + "category_id", Message: "unknown category"})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Submit scores the selected events. Duplicate ids count once; unknown ids are rejected. Results are
// stored only for an authenticated actor.
func (s *DiagnosticService) Submit(ctx context.Context, actor *Actor, eventIDs []string) (*DiagnosticResult, error) {
	questions, err := s.questions(ctx)
	if err != nil {
		return nil, err
	}
	points := make(map[string]int, len(questions))
	for _, q := range questions {
		points[q.ID] = q.Points
	}

	seen := make(map[string]bool, len(eventIDs))
	selected := make([]string, 0, len(eventIDs))
	var unknown []string
	score := 0
	for _, id := range eventIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		p, ok := points[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		score += p
		selected = append(selected, id)
	}
	if len(unknown) > 0 {
		return nil, Invalid("event_ids", "unknown events: "+strings.Join(unknown, ", "))
	}

	level := LevelForScore(score)
	result := DiagnosticResult{
		ID:        uuid.NewString(),
		Score:     score,
		Level:     level,
		Message:   levelMessages[level],
		EventIDs:  selected,
		CreatedAt: s.now(),
	}
	if actor != nil && actor.ID != "" {
		result.UserID = actor.ID
		result.Stored = true
		if err := s.repo.SaveResult(ctx, result); err != nil {
			return nil, err
		}
	}
	return &result, nil
}

// History lists the actor's stored results newest first.
func (s *DiagnosticService) History(ctx context.Context, actor *Actor, cursor *Cursor, limit int) ([]DiagnosticResult, *Cursor, error) {
	if actor == nil {
		return nil, nil, ErrForbidden
	}
	if limit <= 0 {
		limit = listing.DefaultLimit
	}
	limit = min(limit, listing.MaxLimit)
	return s.repo.ListResults(ctx, actor.ID, cursor, limit)
}

// DeleteResult removes a stored result owned by the actor, or any result for an administrator.
func (s *DiagnosticService) DeleteResult(ctx context.Context, actor *Actor, id string) error {
	result, err := s.repo.GetResult(ctx, id)
	if err != nil {
		return err
	}
	if result == nil {
		return ErrNotFound
	}
	if !actor.Owns(result.UserID) {
		return ErrForbidden
	}
	return s.repo.DeleteResult(ctx, id)
}

func (s *DiagnosticService) questions(ctx context.Context) ([]DiagnosticQuestion, error) {
	return cache.Remember(ctx, s.cache, cache.KeyDiagnosticQuestions, s.ttl, s.repo.ListQuestions)
}

func (s *DiagnosticService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, cache.KeyDiagnosticQuestions)
}

func questionOrder(a, b DiagnosticQuestion) int {
	if c := cmp.Compare(b.Points, a.Points); c != 0 {
		return c
	}
	return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
}

func sortDiagnosticCategories(categories []DiagnosticCategory) []DiagnosticCategory {
	out := slices.Clone(categories)
	slices.SortStableFunc(out, func(a, b DiagnosticCategory) int {
		if c := cmp.Compare(a.Position, b.Position); c != 0 {
			return c
		}
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out
}
