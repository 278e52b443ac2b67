package domain

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"example.com/cesizen/internal/cache"
	"example.com/cesizen/internal/listing"
)

// InfoResource is an editorial article of the information section.
type InfoResource struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Summary       string    `json:"summary,omitempty"`
	Content       string    `json:"content"`
	CategoryID    string    `json:"category_id,omitempty"`
	Tags          []string  `json:"tags"`
	MediaURL      string    `json:"media_url,omitempty"`
	MediaType     string    `json:"media_type,omitempty"`
	IsPublished   bool      `json:"is_published"`
	AuthorID      string    `json:"author_id,omitempty"`
	LikesCount    int       `json:"likes_count"`
	CommentsCount int       `json:"comments_count"`
	SharesCount   int       `json:"shares_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Comment is a reader remark on an info resource.
type Comment struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"resource_id"`
	UserID     string    `json:"user_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// Share records that an info resource was shared.
type Share struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"resource_id"`
	UserID     string    `json:"user_id,omitempty"`
	Platform   string    `json:"platform"`
	CreatedAt  time.Time `json:"created_at"`
}

// TagCount is the usage of one tag across published resources.
type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// InfoRepository persists info resources and their engagement. Reads populate the counters. Lookups
// return (nil, nil) when nothing matches.
type InfoRepository interface {
	ListInfoResources(ctx context.Context) ([]InfoResource, error)
	GetInfoResource(ctx context.Context, id string) (*InfoResource, error)
	CreateInfoResource(ctx context.Context, resource InfoResource) error
	UpdateInfoResource(ctx context.Context, resource InfoResource) error
	// DeleteInfoResource also drops comments, likes and shares of the resource.
	DeleteInfoResource(ctx context.Context, id string) error

	AddComment(ctx context.Context, comment Comment) error
	GetComment(ctx context.Context, id string) (*Comment, error)
	ListComments(ctx context.Context, resourceID string) ([]Comment, error)
	DeleteComment(ctx context.Context, id string) error

	// ToggleLike flips userID's like and returns whether it is now set.
	ToggleLike(ctx context.Context, resourceID, userID string) (bool, error)
	CountLikes(ctx context.Context, resourceID string) (int, error)
	HasLiked(ctx context.Context, resourceID, userID string) (bool, error)

	AddShare(ctx context.Context, share Share) error
	CountShares(ctx context.Context, resourceID string) (int, error)
}

// InfoService manages the information section.
type InfoService struct {
	repo       InfoRepository
	categories CategoryRepository
	cache      cache.Cache
	ttl        time.Duration
	now        func() time.Time
}

// NewInfoService constructs an InfoService. A nil cache disables read-through caching.
func NewInfoService(repo InfoRepository, categories CategoryRepository, c cache.Cache, ttl time.Duration) *InfoService {
	if c == nil {
		c = cache.NoopCache{}
	}
	return &InfoService{repo: repo, categories: categories, cache: c, ttl: ttl, now: utcNow}
}

// InfoInput is the writable part of an info resource. Nil pointers keep the stored value on update.
type InfoInput struct {
	Title       *string
	Summary     *string
	Content     *string
	CategoryID  *string
	Tags        []string
	SetTags     bool
	MediaURL    *string
	MediaType   *string
	IsPublished *bool
}

// InfoFilter narrows info resource listings.
type InfoFilter struct {
	CategoryID string
	Tag        string
}

// NormalizeTags trims, lower-cases, deduplicates and sorts tags, dropping empty ones.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// List returns a page of info resources; unpublished ones are visible to administrators only.
func (s *InfoService) List(ctx context.Context, actor *Actor, filter InfoFilter, q listing.Query) (listing.Page[InfoResource], error) {
	all, err := s.repo.ListInfoResources(ctx)
	if err != nil {
		return listing.Page[InfoResource]{}, err
	}
	admin := actor.IsAdmin()
	tag := strings.ToLower(strings.TrimSpace(filter.Tag))
	filtered := listing.Filter(all, func(r InfoResource) bool {
		if !admin && !r.IsPublished {
			return false
		}
		if filter.CategoryID != "" && r.CategoryID != filter.CategoryID {
			return false
		}
		if tag != "" && !slices.Contains(r.Tags, tag) {
			return false
		}
		return true
	})
	return listing.Apply(filtered, q,
		[]func(InfoResource) string{
			func(r InfoResource) string { return r.Title },
			func(r InfoResource) string { return r.Summary },
			func(r InfoResource) string { return strings.Join(r.Tags, " ") },
		},
		map[string]listing.Sorter[InfoResource]{
			"title":      listing.ByFold(func(r InfoResource) string { return r.Title }),
			"likes":      listing.By(func(r InfoResource) int { return r.LikesCount }),
			"comments":   listing.By(func(r InfoResource) int { return r.CommentsCount }),
			"created_at": listing.By(func(r InfoResource) int64 { return r.CreatedAt.UnixNano() }),
		}, "created_at"), nil
}

// Get fetches a visible info resource.
func (s *InfoService) Get(ctx context.Context, actor *Actor, id string) (*InfoResource, error) {
	resource, err := s.repo.GetInfoResource(ctx, id)
	if err != nil {
		return nil, err
	}
	if resource == nil || (!resource.IsPublished && !actor.IsAdmin()) {
		return nil, ErrNotFound
	}
	return resource, nil
}

// Create adds an info resource authored by the actor.
func (s *InfoService) Create(ctx context.Context, actor *Actor, input InfoInput) (*InfoResource, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if input.Title == nil {
		return nil, Invalid("title", "is required")
	}
	if input.Content == nil {
		return nil, Invalid("content", "is required")
	}
	now := s.now()
	resource := InfoResource{
		ID:          uuid.NewString(),
		Tags:        []string{},
		IsPublished: true,
		AuthorID:    actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.apply(ctx, &resource, input); err != nil {
		return nil, err
	}
	if err := s.repo.CreateInfoResource(ctx, resource); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return &resource, nil
}

// Update applies a partial update.
func (s *InfoService) Update(ctx context.Context, actor *Actor, id string, input InfoInput) (*InfoResource, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	resource, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, resource, input); err != nil {
		return nil, err
	}
	resource.UpdatedAt = s.now()
	if err := s.repo.UpdateInfoResource(ctx, *resource); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return resource, nil
}

// Delete removes an info resource with its engagement.
func (s *InfoService) Delete(ctx context.Context, actor *Actor, id string) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.DeleteInfoResource(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *InfoService) apply(ctx context.Context, r *InfoResource, input InfoInput) error {
	var errs ValidationErrors
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if n := utf8.RuneCountInString(title); n < 3 || n > 150 {
			errs = append(errs, ValidationError{Field: "title", Message: "must be between 3 and 150 characters"})
		}
		r.Title = title
	}
	if input.Content != nil {
		if strings.TrimSpace(*input.Content) == "" {
			errs = append(errs, ValidationError{Field: "content", Message: "is required"})
		}
		r.Content = *input.Content
	}
	if input.Summary != nil {
		r.Summary = strings.TrimSpace(*input.Summary)
	}
	if input.SetTags {
		r.Tags = NormalizeTags(input.Tags)
	}
	if input.MediaURL != nil {
		r.MediaURL = strings.TrimSpace(*input.MediaURL)
	}
	if input.MediaType != nil {
		r.MediaType = strings.TrimSpace(*input.MediaType)
	}
	if input.IsPublished != nil {
		r.IsPublished = *input.IsPublished
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

// Tags counts tag usage over published resources, most used first.
func (s *InfoService) Tags(ctx context.Context) ([]TagCount, error) {
	return cache.Remember(ctx, s.cache, cache.KeyInfoTags, s.ttl, func(ctx context.Context) ([]TagCount, error) {
		all, err := s.repo.ListInfoResources(ctx)
		if err != nil {
			return nil, err
		}
		counts := map[string]int{}
		for _, r := range all {
			if !r.IsPublished {
				continue
			}
			for _, t := range r.Tags {
				counts[t]++
			}
		}
		out := make([]TagCount, 0, len(counts))
		for name, n := range counts {
			out = append(out, TagCount{Name: name, Count: n})
		}
		slices.SortFunc(out, func(a, b TagCount) int {
			if c := cmp.Compare(b.Count, a.Count); c != 0 {
				return c
			}
			return cmp.Compare(a.Name, b.Name)
		})
		return out, nil
	})
}

// Comments lists the comments of a visible resource, oldest first.
func (s *InfoService) Comments(ctx context.Context, actor *Actor, resourceID string) ([]Comment, error) {
	if _, err := s.Get(ctx, actor, resourceID); err != nil {
		return nil, err
	}
	comments, err := s.repo.ListComments(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	return listing.Sort(comments, listing.By(func(c Comment) int64 { return c.CreatedAt.UnixNano() }), false), nil
}

// AddComment posts a comment as the actor.
func (s *InfoService) AddComment(ctx context.Context, actor *Actor, resourceID, content string) (*Comment, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	if _, err := s.Get(ctx, actor, resourceID); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if n := utf8.RuneCountInString(content); n < 1 || n > 1000 {
		return nil, Invalid("content", "must be between 1 and 1000 characters")
	}
	comment := Comment{
		ID:         uuid.NewString(),
		ResourceID: resourceID,
		UserID:     actor.ID,
		Content:    content,
		CreatedAt:  s.now(),
	}
	if err := s.repo.AddComment(ctx, comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// GetComment fetches a comment.
func (s *InfoService) GetComment(ctx context.Context, id string) (*Comment, error) {
	comment, err := s.repo.GetComment(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment == nil {
		return nil, ErrNotFound
	}
	return comment, nil
}

// DeleteComment removes a comment; only its author or an administrator may.
func (s *InfoService) DeleteComment(ctx context.Context, actor *Actor, resourceID, commentID string) error {
	comment, err := s.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.ResourceID != resourceID {
		return ErrNotFound
	}
	if !actor.Owns(comment.UserID) {
		return ErrForbidden
	}
	return s.repo.DeleteComment(ctx, commentID)
}

// LikeState is the like counter of a resource from the caller's point of view.
type LikeState struct {
	Count int  `json:"count"`
	Liked bool `json:"liked"`
}

// Likes reports the like count and whether the actor liked the resource.
func (s *InfoService) Likes(ctx context.Context, actor *Actor, resourceID string) (LikeState, error) {
	if _, err := s.Get(ctx, actor, resourceID); err != nil {
		return LikeState{}, err
	}
	count, err := s.repo.CountLikes(ctx, resourceID)
	if err != nil {
		return LikeState{}, err
	}
	state := LikeState{Count: count}
	if actor != nil {
		if state.Liked, err = s.repo.HasLiked(ctx, resourceID, actor.ID); err != nil {
			return LikeState{}, err
		}
	}
	return state, nil
}

// ToggleLike flips the actor's like.
func (s *InfoService) ToggleLike(ctx context.Context, actor *Actor, resourceID string) (LikeState, error) {
	if actor == nil {
		return LikeState{}, ErrForbidden
	}
	if _, err := s.Get(ctx, actor, resourceID); err != nil {
		return LikeState{}, err
	}
	liked, err := s.repo.ToggleLike(ctx, resourceID, actor.ID)
	if err != nil {
		return LikeState{}, err
	}
	count, err := s.repo.CountLikes(ctx, resourceID)
	if err != nil {
		return LikeState{}, err
	}
	return LikeState{Count: count, Liked: liked}, nil
}

// Shares returns the share count.
func (s *InfoService) Shares(ctx context.Context, actor *Actor, resourceID string) (int, error) {
	if _, err := s.Get(ctx, actor, resourceID); err != nil {
		return 0, err
	}
	return s.repo.CountShares(ctx, resourceID)
}

// Share records a share on platform, "link" when empty, and returns the new count.
func (s *InfoService) Share(ctx context.Context, actor *Actor, resourceID, platform string) (int, error) {
	if _, err := s.Get(ctx, actor, resourceID); err != nil {
		return 0, err
	}
	platform = strings.ToLower(strings.TrimSpace(platform))
	if platform == "" {
		platform = "link"
	}
	if len(platform) > 50 {
		return 0, Invalid("platform", "must be at most 50 characters")
	}
	share := Share{ID: uuid.NewString(), ResourceID: resourceID, Platform: platform, CreatedAt: s.now()}
	if actor != nil {
		share.UserID = actor.ID
	}
	if err := s.repo.AddShare(ctx, share); err != nil {
		return 0, err
	}
	return s.repo.CountShares(ctx, resourceID)
}

func (s *InfoService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, cache.KeyInfoTags)
}
