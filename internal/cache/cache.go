// Package cache provides read-through caching for public read models and their invalidation.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"example.com/cesizen/internal/platform/events"
)

// Keys of cached read models.
const (
	KeyBreathingExercises  = "cesizen:breathing:exercises"
	KeyCategories          = "cesizen:content:categories"
	KeyInfoTags            = "cesizen:info:tags"
	KeyDiagnosticQuestions = "cesizen:diagnostic:questions"
)

// KeysForEntity maps an entity name from a content.changed event to the cache keys it feeds.
func KeysForEntity(entity string) []string {
	switch entity {
	case events.EntityCategory:
		return []string{KeyCategories}
	case events.EntityInfoResource:
		return []string{KeyInfoTags}
	case events.EntityDiagnosticQuestion, events.EntityDiagnosticCategory:
		return []string{KeyDiagnosticQuestions}
	case events.EntityBreathingExercise:
		return []string{KeyBreathingExercises}
	default:
		return nil
	}
}

// Invalidator defines a cache invalidation contract.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...string) error
}

// Cache stores opaque values by key.
type Cache interface {
	Invalidator
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// NoopCache never stores anything.
type NoopCache struct{}

// Get always misses.
func (NoopCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

// Set performs no action.
func (NoopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

// Invalidate performs no action.
func (NoopCache) Invalidate(context.Context, ...string) error { return nil }

// Remember returns the cached value for key or loads, stores and returns it. Cache failures degrade to
// a direct load.
func Remember[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return load(ctx)
	}
	if raw, ok, err := c.Get(ctx, key); err == nil && ok {
		var cached T
		if json.Unmarshal(raw, &cached) == nil {
			return cached, nil
		}
	}
	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	if raw, err := json.Marshal(value); err == nil {
		_ = c.Set(ctx, key, raw, ttl)
	}
	return value, nil
}
