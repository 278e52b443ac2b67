// Package memory keeps every CesiZen aggregate in process memory for local development and tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"example.com/cesizen/internal/domain"
	"example.com/cesizen/internal/persistence"
)

type likeKey struct {
	resourceID string
	userID     string
}

// Store implements every domain repository with maps guarded by a single RWMutex.
type Store struct {
	mu sync.RWMutex

	users      map[string]domain.User
	categories map[string]domain.Category
	resources  map[string]domain.Resource
	diagCats   map[string]domain.DiagnosticCategory
	questions  map[string]domain.DiagnosticQuestion
	results    map[string]domain.DiagnosticResult
	info       map[string]domain.InfoResource
	comments   map[string]domain.Comment
	likes      map[likeKey]struct{}
	shares     map[string]domain.Share
	reports    map[string]domain.Report
	exercises  map[string]domain.BreathingExercise
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		users:      make(map[string]domain.User),
		categories: make(map[string]domain.Category),
		resources:  make(map[string]domain.Resource),
		diagCats:   make(map[string]domain.DiagnosticCategory),
		questions:  make(map[string]domain.DiagnosticQuestion),
		results:    make(map[string]domain.DiagnosticResult),
		info:       make(map[string]domain.InfoResource),
		comments:   make(map[string]domain.Comment),
		likes:      make(map[likeKey]struct{}),
		shares:     make(map[string]domain.Share),
		reports:    make(map[string]domain.Report),
		exercises:  make(map[string]domain.BreathingExercise),
	}
}

// values returns the map values ordered by key so listings are deterministic.
func values[V any](m map[string]V) []V {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]V, 0, len(m))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func ptr[V any](m map[string]V, id string) *V {
	v, ok := m[id]
	if !ok {
		return nil
	}
	return &v
}

func missing(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
}

// Users

// CreateUser implements domain.UserRepository.
func (s *Store) CreateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("email %s: %w", user.Email, domain.ErrConflict)
		}
	}
	s.users[user.ID] = user
	return nil
}

// GetUser implements domain.UserRepository.
func (s *Store) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ptr(s.users, id), nil
}

// GetUserByEmail implements domain.UserRepository.
func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

// ListUsers implements domain.UserRepository.
func (s *Store) ListUsers(context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return values(s.users), nil
}

// UpdateUser implements domain.UserRepository.
func (s *Store) UpdateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return missing("user", user.ID)
	}
	for id, u := range s.users {
		if id != user.ID && strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("email %s: %w", user.Email, domain.ErrConflict)
		}
	}
	s.users[user.ID] = user
	return nil
}

// DeleteUser implements domain.UserRepository.
func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return missing("user", id)
	}
	delete(s.users, id)
	return nil
}

// Categories

// ListCategories implements domain.CategoryRepository.
func (s *Store) ListCategories(context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return values(s.categories), nil
}

// GetCategory implements domain.CategoryRepository.
func (s *Store) GetCategory(_ context.Context, id string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ptr(s.categories, id), nil
}

// CreateCategory implements domain.CategoryRepository.
func (s *Store) CreateCategory(_ context.Context, category domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[category.ID] = category
	return nil
}

// UpdateCategory implements domain.CategoryRepository.
func (s *Store) UpdateCategory(_ context.Context, category domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[category.ID]; !ok {
		return missing("category", category.ID)
	}
	s.categories[category.ID] = category
	return nil
}

// DeleteCategory implements domain.CategoryRepository.
func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return missing("category", id)
	}
	delete(s.categories, id)
	return nil
}

// CountResourcesInCategory implements domain.CategoryRepository. Info resources count too.
func (s *Store) CountResourcesInCategory(_ context.Context, id string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.resources {
		if r.CategoryID == id {
			n++
		}
	}
	for _, r := range s.info {
		if r.CategoryID == id {
			n++
		}
	}
	return n, nil
}

// Resources

// ListResources implements domain.ResourceRepository.
func (s *Store) ListResources(context.Context) ([]domain.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return values(s.resources), nil
}

// GetResource implements domain.ResourceRepository.
func (s *Store) GetResource(_ context.Context, id string) (*domain.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ptr(s.resources, id), nil
}

// CreateResource implements domain.ResourceRepository.
func (s *Store) CreateResource(_ context.Context, resource domain.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[resource.ID] = resource
	return nil
}

// UpdateResource implements domain.ResourceRepository.
func (s *Store) UpdateResource(_ context.Context, resource domain.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resources[resource.ID]; !ok {
		return missing("resource", resource.ID)
	}
	s.resources[resource.ID] = resource
	return nil
}

// DeleteResource implements domain.ResourceRepository.
func (s *Store) DeleteResource(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resources[id]; !ok {
		return missing("resource", id)
	}
	delete(s.resources, id)
	return nil
}

// Diagnostic

// ListDiagnosticCategories implements domain.DiagnosticRepository.
func (s *Store) ListDiagnosticCategories(context.Context) ([]domain.DiagnosticCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return values(s.diagCats), nil
}

// GetDiagnosticCategory implements domain.DiagnosticRepository.
func (s *Store) GetDiagnosticCategory(_ context.Context, id string) (*domain.DiagnosticCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ptr(s.diagCats, id), nil
}

// CreateDiagnosticCategory implements domain.DiagnosticRepository.
func (s *Store) CreateDiagnosticCategory(_ context.Context, category domain.DiagnosticCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diagCats[category.ID] = category
	return nil
}

// UpdateDiagnosticCategory implements domain.DiagnosticRepository.
func (s *Store) UpdateDiagnosticCategory(_ context.Context, category domain.DiagnosticCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.diagCats[category.ID]; !ok {
		return missing("diagnostic category", category.ID)
	}
	s.diagCats[category.ID] = category
	return nil
}

// DeleteDiagnosticCategory implements domain.DiagnosticRepository.
func (s *Store) DeleteDiagnosticCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.diagCats[id]; !ok {
		return missing("diagnostic category", id)
	}
	delete(s.diagCats, id)
	return nil
}

// ListQuestions implements domain.DiagnosticRepository.
func (s *Store) ListQuestions(context.Context) ([]domain.DiagnosticQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return values(s.questions), nil
}

// GetQuestion implements domain.DiagnosticRepository.
func (s *Store) GetQuestion(_ context.Context, id string) (*domain.DiagnosticQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ptr(s.questions, id), nil
}

// CreateQuestion implements domain.DiagnosticRepository.
func (s *Store) CreateQuestion(_ context.Context, question domain.DiagnosticQuestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[question.ID] = question
	return nil
}

// UpdateQuestion implements domain.DiagnosticRepository.
func (s *Store) UpdateQuestion(_ context.Context, question domain.DiagnosticQuestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[question.ID]; !ok {
		return missing("question", question.ID)
	}
	s.questions[question.ID] = question
	return nil
}

// DeleteQuestion implements domain.DiagnosticRepository.
func (s *Store) DeleteQuestion(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return missing("question", id)
	}
	delete(s.questions, id)
	return nil
}

// ReplaceQuestions implements domain.DiagnosticRepository.
func (s *Store) ReplaceQuestions(_ context.Context, questions []domain.DiagnosticQuestion) error {
	next := make(map[string]domain.DiagnosticQuestion, len(questions))
	for _, q := range questions {
		next[q.ID] = q
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions = next
	return nil
}

// SaveResult implements domain.DiagnosticRepository.
func (s *Store) SaveResult(_ context.Context, result domain.DiagnosticResult) error {
	result.EventIDs = slices.Clone(result.EventIDs)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.ID] = result
	return nil
}

// GetResult implements domain.DiagnosticRepository.
func (s *Store) GetResult(_ context.Context, id string) (*domain.DiagnosticResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ptr(s.results, id), nil
}

// ListResults implements domain.DiagnosticRepository.
func (s *Store) ListResults(_ context.Context, userID string, cursor *domain.Cursor, limit int) ([]domain.DiagnosticResult, *domain.Cursor, error) {
	s.mu.RLock()
	owned := make([]domain.DiagnosticResult, 0)
	for _, r := range s.results {
		if r.UserID == userID && persistence.Before(r.CreatedAt, r.ID, cursor) {
			owned = append(owned, r)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(owned, func(a, b domain.DiagnosticResult) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if len(owned) <= limit {
		return owned, nil, nil
	}
	page := owned[:limit]
	last := page[len(page)-1]
	return page, &domain.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
}

// DeleteResult implements domain.DiagnosticRepository.
func (s *Store) DeleteResult(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[id]; !ok {
		return missing("diagnostic result", id)
	}
	delete(s.results, id)
	return nil
}

// Info resources

func (s *Store) withCounts(r domain.InfoResource) domain.InfoResource {
	r.Tags = slices.Clone(r.Tags)
	r.LikesCount, r.CommentsCount, r.SharesCount = 0, 0, 0
	for k := range s.likes {
		if k.resourceID == r.ID {
			r.LikesCount++
		}
	}
	for _, c := range s.comments {
		if c.ResourceID == r.ID {
			r.CommentsCount++
		}
	}
	for _, sh := range s.shares {
		if sh.ResourceID == r.ID {
			r.SharesCount++
		}
	}
	return r
}

// ListInfoResources implements domain.InfoRepository.
func (s *Store) ListInfoResources(context.Context) ([]domain.InfoResource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := values(s.info)
	for i := range out {
		out[i] = s.withCounts(out[i])
	}
	return out, nil
}

// GetInfoResource implements domain.InfoRepository.
func (s *Store) GetInfoResource(_ context.Context, id string) (*domain.InfoResource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.info[id]
	if !ok {
		return nil, nil
	}
	r = s.withCounts(r)
	return &r, nil
}

// CreateInfoResource implements domain.InfoRepository.
func (s *Store) CreateInfoResource(_ context.Context, resource domain.InfoResource) error {
	resource.Tags = slices.Clone(resource.Tags)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info[resource.ID] = resource
	return nil
}

// UpdateInfoResource implements domain.InfoRepository.
func (s *Store) UpdateInfoResource(_ context.Context, resource domain.InfoResource) error {
	resource.Tags = slices.Clone(resource.Tags)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.info[resource.ID]; !ok {
		return missing("info resource", resource.ID)
	}
	s.info[resource.ID] = resource
	return nil
}

// DeleteInfoResource implements domain.InfoRepository.
func (s *Store) DeleteInfoResource(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.info[id]; !ok {
		return missing("info resource", id)
	}
	delete(s.info, id)
	for cid, c := range s.comments {
		if c.ResourceID == id {
			delete(s.comments, cid)
		}
	}
	for k := range s.likes {
		if k.resourceID == id {
			delete(s.likes, k)
		}
	}
	for sid, sh := range s.shares {
		if sh.ResourceID == id {
			delete(s.shares, sid)
		}
	}
	return nil
}

// AddComment implements domain.InfoRepository.
func (s *Store) AddComment(_ context.Context, comment domain.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.info[comment.ResourceID]; !ok {
		return missing("info resource", comment.ResourceID)
	}
	s.comments[comment.ID] = comment
	return nil
}

// GetComment implements domain.InfoRepository.
func (s *Store) GetComment(_ context.Context, id string) (*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ptr(s.comments, id), nil
}

// ListComments implements domain.InfoRepository.
func (s *Store) ListComments(_ context.Context, resourceID string) ([]domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Comment, 0)
	for _, c := range values(s.comments) {
		if c.ResourceID == resourceID {
			out = append(out, c)
		}
	}
	return out, nil
}

// DeleteComment implements domain.InfoRepository.
func (s *Store) DeleteComment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[id]; !ok {
		return missing("comment", id)
	}
	delete(s.comments, id)
	return nil
}

// ToggleLike implements domain.InfoRepository.
func (s *Store) ToggleLike(_ context.Context, resourceID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := likeKey{resourceID: resourceID, userID: userID}
	if _, ok := s.likes[key]; ok {
		delete(s.likes, key)
		return false, nil
	}
	s.likes[key] = struct{}{}
	return true, nil
}

// CountLikes implements domain.InfoRepository.
func (s *Store) CountLikes(_ context.Context, resourceID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for k := range s.likes {
		if k.resourceID == resourceID {
			n++
		}
	}
	return n, nil
}

// HasLiked implements domain.InfoRepository.
func (s *Store) HasLiked(_ context.Context, resourceID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.likes[likeKey{resourceID: resourceID, userID: userID}]
	return ok, nil
}

// AddShare implements domain.InfoRepository.
func (s *Store) AddShare(_ context.Context, share domain.Share) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shares[share.ID] = share
	return nil
}

// CountShares implements domain.InfoRepository.
func (s *Store) CountShares(_ context.Context, resourceID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, sh := range s.shares {
		if sh.ResourceID == resourceID {
			n++
		}
	}
	return n, nil
}

// Reports

// CreateReport implements domain.ReportRepository.
func (s *Store) CreateReport(_ context.Context, report domain.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.ID] = report
	return nil
}

// GetReport implements domain.ReportRepository.
func (s *Store) GetReport(_ context.Context, id string) (*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ptr(s.reports, id), nil
}

// ListReports implements domain.ReportRepository.
func (s *Store) ListReports(context.Context) ([]domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return values(s.reports), nil
}

// UpdateReportStatus implements domain.ReportRepository.
func (s *Store) UpdateReportStatus(_ context.Context, id string, from, to domain.ReportStatus, by string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return missing("report", id)
	}
	if r.Status != from {
		return fmt.Errorf("report %s is %s: %w", id, r.Status, domain.ErrConflict)
	}
	r.Status = to
	r.ReviewedBy = by
	r.ReviewedAt = &at
	r.UpdatedAt = at
	s.reports[id] = r
	return nil
}

// DeleteReport implements domain.ReportRepository.
func (s *Store) DeleteReport(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[id]; !ok {
		return missing("report", id)
	}
	delete(s.reports, id)
	return nil
}

// Breathing

// ListBreathingExercises implements domain.BreathingRepository.
func (s *Store) ListBreathingExercises(context.Context) ([]domain.BreathingExercise, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return values(s.exercises), nil
}

// GetBreathingExercise implements domain.BreathingRepository.
func (s *Store) GetBreathingExercise(_ context.Context, id string) (*domain.BreathingExercise, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ptr(s.exercises, id), nil
}

// UpsertBreathingExercise implements domain.BreathingRepository.
func (s *Store) UpsertBreathingExercise(_ context.Context, exercise domain.BreathingExercise) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exercises[exercise.ID] = exercise
	return nil
}
