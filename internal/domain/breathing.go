package domain

import (
	"context"
	"strings"
	"time"

	"example.com/cesizen/internal/cache"
	"example.com/cesizen/internal/listing"
)

// BreathingExercise is a guided cardiac coherence pattern. Phase durations are in seconds.
type BreathingExercise struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Inspiration  int    `json:"inspiration"`
	Apnea        int    `json:"apnea"`
	Expiration   int    `json:"expiration"`
	Cycles       int    `json:"cycles"`
	Difficulty   string `json:"difficulty"`
	CycleSeconds int    `json:"cycle_seconds"`
	TotalSeconds int    `json:"total_seconds"`
}

// WithDerived fills the computed durations.
func (e BreathingExercise) WithDerived() BreathingExercise {
	e.CycleSeconds = e.Inspiration + e.Apnea + e.Expiration
	e.TotalSeconds = e.CycleSeconds * e.Cycles
	return e
}

// Validate checks phase bounds.
func (e BreathingExercise) Validate() error {
	var errs ValidationErrors
	if strings.TrimSpace(e.Name) == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "is required"})
	}
	if e.Inspiration < 1 || e.Expiration < 1 || e.Apnea < 0 {
		errs = append(errs, ValidationError{Field: "phases", Message: "inspiration and expiration must be positive, apnea non-negative"})
	}
	if e.Cycles < 1 {
		errs = append(errs, ValidationError{Field: "cycles", Message: "must be positive"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// BreathingRepository persists exercises. Lookups return (nil, nil) when nothing matches.
type BreathingRepository interface {
	ListBreathingExercises(ctx context.Context) ([]BreathingExercise, error)
	GetBreathingExercise(ctx context.Context, id string) (*BreathingExercise, error)
	UpsertBreathingExercise(ctx context.Context, exercise BreathingExercise) error
}

// BreathingService serves the breathing exercises.
type BreathingService struct {
	repo  BreathingRepository
	cache cache.Cache
	ttl   time.Duration
}

// NewBreathingService constructs a BreathingService. A nil cache disables read-through caching.
func NewBreathingService(repo BreathingRepository, c cache.Cache, ttl time.Duration) *BreathingService {
	if c == nil {
		c = cache.NoopCache{}
	}
	return &BreathingService{repo: repo, cache: c, ttl: ttl}
}

// List returns exercises, shortest cycle first by default.
func (s *BreathingService) List(ctx context.Context, q listing.Query) (listing.Page[BreathingExercise], error) {
	all, err := cache.Remember(ctx, s.cache, cache.KeyBreathingExercises, s.ttl, s.repo.ListBreathingExercises)
	if err != nil {
		return listing.Page[BreathingExercise]{}, err
	}
	derived := make([]BreathingExercise, 0, len(all))
	for _, e := range all {
		derived = append(derived, e.WithDerived())
	}
	return listing.Apply(derived, q,
		[]func(BreathingExercise) string{
			func(e BreathingExercise) string { return e.Name },
			func(e BreathingExercise) string { return e.Description },
		},
		map[string]listing.Sorter[BreathingExercise]{
			"name":       listing.ByFold(func(e BreathingExercise) string { return e.Name }),
			"cycle":      listing.By(func(e BreathingExercise) int { return e.CycleSeconds }),
			"duration":   listing.By(func(e BreathingExercise) int { return e.TotalSeconds }),
			"difficulty": listing.By(func(e BreathingExercise) int { return difficultyRank(e.Difficulty) }),
		}, "cycle"), nil
}

// Get fetches one exercise.
func (s *BreathingService) Get(ctx context.Context, id string) (*BreathingExercise, error) {
	exercise, err := s.repo.GetBreathingExercise(ctx, id)
	if err != nil {
		return nil, err
	}
	if exercise == nil {
		return nil, ErrNotFound
	}
	derived := exercise.WithDerived()
	return &derived, nil
}

// Save validates and stores an exercise.
func (s *BreathingService) Save(ctx context.Context, exercise BreathingExercise) error {
	if err := exercise.Validate(); err != nil {
		return err
	}
	if err := s.repo.UpsertBreathingExercise(ctx, exercise); err != nil {
		return err
	}
	_ = s.cache.Invalidate(ctx, cache.KeyBreathingExercises)
	return nil
}

func difficultyRank(d string) int {
	switch strings.ToLower(d) {
	case "beginner", "easy":
		return 1
	case "intermediate", "medium":
		return 2
	case "advanced", "hard":
		return 3
	}
	return 4
}
