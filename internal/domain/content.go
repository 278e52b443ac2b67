package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"example.com/cesizen/internal/cache"
	"example.com/cesizen/internal/listing"
)

// ResourceType classifies a content item.
type ResourceType string

const (
	ResourceArticle   ResourceType = "article"
	ResourceVideo     ResourceType = "video"
	ResourceAudio     ResourceType = "audio"
	ResourceLink      ResourceType = "link"
	ResourceBreathing ResourceType = "breathing"
)

// Valid reports whether t is a known resource type.
func (t ResourceType) Valid() bool {
	switch t {
	case ResourceArticle, ResourceVideo, ResourceAudio, ResourceLink, ResourceBreathing:
		return true
	}
	return false
}

// ResourceStatus is the publication state of a resource.
type ResourceStatus string

const (
	StatusDraft     ResourceStatus = "draft"
	StatusPublished ResourceStatus = "published"
)

// Category groups resources.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Resource is a content item shown to end users.
type Resource struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Content     string         `json:"content,omitempty"`
	Type        ResourceType   `json:"type"`
	URL         string         `json:"url,omitempty"`
	CategoryID  string         `json:"category_id,omitempty"`
	Status      ResourceStatus `json:"status"`
	AuthorID    string         `json:"author_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// CategoryRepository persists content categories. Lookups return (nil, nil) when nothing matches.
type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id string) (*Category, error)
	CreateCategory(ctx context.Context, category Category) error
	UpdateCategory(ctx context.Context, category Category) error
	DeleteCategory(ctx context.Context, id string) error
	CountResourcesInCategory(ctx context.Context, id string) (int, error)
}

// ResourceRepository persists resources. Lookups return (nil, nil) when nothing matches.
type ResourceRepository interface {
	ListResources(ctx context.Context) ([]Resource, error)
	GetResource(ctx context.Context, id string) (*Resource, error)
	CreateResource(ctx context.Context, resource Resource) error
	UpdateResource(ctx context.Context, resource Resource) error
	DeleteResource(ctx context.Context, id string) error
}

// ContentService manages categories and resources.
type ContentService struct {
	categories CategoryRepository
	resources  ResourceRepository
	cache      cache.Cache
	ttl        time.Duration
	now        func() time.Time
}

// NewContentService constructs a ContentService. A nil cache disables read-through caching.
func NewContentService(categories CategoryRepository, resources ResourceRepository, c cache.Cache, ttl time.Duration) *ContentService {
	if c == nil {
		c = cache.NoopCache{}
	}
	return &ContentService{categories: categories, resources: resources, cache: c, ttl: ttl, now: utcNow}
}

// CategoryInput is the writable part of a category.
type CategoryInput struct {
	Name        string
	Description string
}

// ResourceInput is the writable part of a resource. Nil pointers keep the stored value on update.
type ResourceInput struct {
	Title       *string
	Description *string
	Content     *string
	Type        *string
	URL         *string
	CategoryID  *string
	Status      *string
}

// ResourceFilter narrows resource listings.
type ResourceFilter struct {
	Type       string
	CategoryID string
	Status     string
}

// ListCategories returns a page of categories.
func (s *ContentService) ListCategories(ctx context.Context, q listing.Query) (listing.Page[Category], error) {
	all, err := s.allCategories(ctx)
	if err != nil {
		return listing.Page[Category]{}, err
	}
	return listing.Apply(all, q,
		[]func(Category) string{
			func(c Category) string { return c.Name },
			func(c Category) string { return c.Description },
		},
		map[string]listing.Sorter[Category]{
			"name":       listing.ByFold(func(c Category) string { return c.Name }),
			"created_at": listing.By(func(c Category) int64 { return c.CreatedAt.UnixNano() }),
		}, "name"), nil
}

func (s *ContentService) allCategories(ctx context.Context) ([]Category, error) {
	return cache.Remember(ctx, s.cache, cache.KeyCategories, s.ttl, s.categories.ListCategories)
}

// GetCategory fetches a category by id.
func (s *ContentService) GetCategory(ctx context.Context, id string) (*Category, error) {
	category, err := s.categories.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrNotFound
	}
	return category, nil
}

// CreateCategory adds a category with a case-insensitively unique name.
func (s *ContentService) CreateCategory(ctx context.Context, input CategoryInput) (*Category, error) {
	name, err := s.checkCategoryName(ctx, "", input.Name)
	if err != nil {
		return nil, err
	}
	now := s.now()
	category := Category{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.categories.CreateCategory(ctx, category); err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.KeyCategories)
	return &category, nil
}

// UpdateCategory renames or redescribes a category.
func (s *ContentService) UpdateCategory(ctx context.Context, id string, input CategoryInput) (*Category, error) {
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
	category.UpdatedAt = s.now()
	if err := s.categories.UpdateCategory(ctx, *category); err != nil {
		return nil, err
	}
	s.invalidate(ctx, cache.KeyCategories)
	return category, nil
}

// DeleteCategory removes a category that no resource references.
func (s *ContentService) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.GetCategory(ctx, id); err != nil {
		return err
	}
	inUse, err := s.categories.CountResourcesInCategory(ctx, id)
	if err != nil {
		return err
	}
	if inUse > 0 {
		return fmt.Errorf("category used by %d resources: %w", inUse, ErrConflict)
	}
	if err := s.categories.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, cache.KeyCategories)
	return nil
}

func (s *ContentService) checkCategoryName(ctx context.Context, selfID, raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if n := utf8.RuneCountInString(name); n < 2 || n > 50 {
		return "", Invalid("name", "must be between 2 and 50 characters")
	}
	all, err := s.categories.ListCategories(ctx)
	if err != nil {
		return "", err
	}
	for _, c := range all {
		if c.ID != selfID && strings.EqualFold(c.Name, name) {
			return "", fmt.Errorf("category %q: %w", name, ErrConflict)
		}
	}
	return name, nil
}

// ListResources returns a page of resources. Only administrators see drafts.
func (s *ContentService) ListResources(ctx context.Context, actor *Actor, filter ResourceFilter, q listing.Query) (listing.Page[Resource], error) {
	all, err := s.resources.ListResources(ctx)
	if err != nil {
		return listing.Page[Resource]{}, err
	}
	admin := actor.IsAdmin()
	filtered := listing.Filter(all, func(r Resource) bool {
		if !admin && r.Status != StatusPublished {
			return false
		}
		if filter.Type != "" && string(r.Type) != filter.Type {
			return false
		}
		if filter.CategoryID != "" && r.CategoryID != filter.CategoryID {
			return false
		}
		if filter.Status != "" && string(r.Status) != filter.Status {
			return false
		}
		return true
	})
	return listing.Apply(filtered, q,
		[]func(Resource) string{
			func(r Resource) string { return r.Title },
			func(r Resource) string { return r.Description },
		},
		map[string]listing.Sorter[Resource]{
			"title":      listing.ByFold(func(r Resource) string { return r.Title }),
			"type":       listing.By(func(r Resource) string { return string(r.Type) }),
			"created_at": listing.By(func(r Resource) int64 { return r.CreatedAt.UnixNano() }),
			"updated_at": listing.By(func(r Resource) int64 { return r.UpdatedAt.UnixNano() }),
		}, "created_at"), nil
}

// GetResource fetches a resource; drafts are hidden from non-administrators.
func (s *ContentService) GetResource(ctx context.Context, actor *Actor, id string) (*Resource, error) {
	resource, err := s.resources.GetResource(ctx, id)
	if err != nil {
		return nil, err
	}
	if resource == nil || (resource.Status != StatusPublished && !actor.IsAdmin()) {
		return nil, ErrNotFound
	}
	return resource, nil
}

// CreateResource publishes a new resource. Status defaults to published.
func (s *ContentService) CreateResource(ctx context.Context, actor *Actor, input ResourceInput) (*Resource, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	now := s.now()
	resource := Resource{
		ID:        uuid.NewString(),
		Status:    StatusPublished,
		AuthorID:  actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	var missing ValidationErrors
	if input.Title == nil {
		missing = append(missing, ValidationError{Field: "title", Message: "is required"})
	}
	if input.Type == nil {
		missing = append(missing, ValidationError{Field: "type", Message: "is required"})
	}
	if len(missing) > 0 {
		return nil, missing
	}
	if err := s.applyResourceInput(ctx, &resource, input); err != nil {
		return nil, err
	}
	if err := s.resources.CreateResource(ctx, resource); err != nil {
		return nil, err
	}
	return &resource, nil
}

// UpdateResource applies a partial update.
func (s *ContentService) UpdateResource(ctx context.Context, actor *Actor, id string, input ResourceInput) (*Resource, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	resource, err := s.GetResource(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyResourceInput(ctx, resource, input); err != nil {
		return nil, err
	}
	resource.UpdatedAt = s.now()
	if err := s.resources.UpdateResource(ctx, *resource); err != nil {
		return nil, err
	}
	return resource, nil
}

// DeleteResource removes a resource.
func (s *ContentService) DeleteResource(ctx context.Context, actor *Actor, id string) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if _, err := s.GetResource(ctx, actor, id); err != nil {
		return err
	}
	return s.resources.DeleteResource(ctx, id)
}

func (s *ContentService) applyResourceInput(ctx context.Context, r *Resource, input ResourceInput) error {
	var errs ValidationErrors
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if n := utf8.RuneCountInString(title); n < 3 || n > 150 {
			errs = append(errs, ValidationError{Field: "title", Message: "must be between 3 and 150 characters"})
		}
		r.Title = title
	}
	if input.Type != nil {
		t := ResourceType(strings.ToLower(strings.TrimSpace(*input.Type)))
		if !t.Valid() {
			errs = append(errs, ValidationError{Field: "type", Message: "must be one of article, video, audio, link, breathing"})
		}
		r.Type = t
	}
	if input.Status != nil && strings.TrimSpace(*input.Status) != "" {
		st := ResourceStatus(strings.ToLower(strings.TrimSpace(*input.Status)))
		if st != StatusDraft && st != StatusPublished {
			errs = append(errs, ValidationError{Field: "status", Message: "must be draft or published"})
		}
		r.Status = st
	}
	if input.Description != nil {
		r.Description = strings.TrimSpace(*input.Description)
	}
	if input.Content != nil {
		r.Content = *input.Content
	}
	if input.URL != nil {
		r.URL = strings.TrimSpace(*input.URL)
	}
	if input.CategoryID != nil {
		r.CategoryID = strings.TrimSpace(*input.CategoryID)
		if r.CategoryID != "" {
			category, err := s.categories.GetCategory(ctx, r.CategoryID)
			if err != nil {
				return err
			}
			if category == nil {
				errs = append(errs, ValidationError{Field: "category_id", Message: "unknown category"})
			}
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (s *ContentService) invalidate(ctx context.Context, keys ...string) {
	_ = s.cache.Invalidate(ctx, keys...)
}
