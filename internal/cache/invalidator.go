package cache

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

// HTTPInvalidator calls an upstream edge cache purge endpoint with the keys to drop.
type HTTPInvalidator struct {
	client *http.Client
	url    string
	token  string
}

// NewHTTPInvalidator constructs an HTTPInvalidator.
func NewHTTPInvalidator(endpoint, token string, timeout time.Duration) *HTTPInvalidator {
	return &HTTPInvalidator{
		client: &http.Client{Timeout: timeout},
		url:    strings.TrimRight(endpoint, "/"),
		token:  token,
	}
}

// Invalidate POSTs the newline-separated keys.
func (h *HTTPInvalidator) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, strings.NewReader(strings.Join(keys, "\n")))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &InvalidationError{Status: resp.StatusCode}
	}
	return nil
}

// InvalidationError represents a non-successful purge response.
type InvalidationError struct {
	Status int
}

func (e *InvalidationError) Error() string {
	return "cache invalidation failed with status " + http.StatusText(e.Status)
}

type purgingCache struct {
	Cache
	purgers []Invalidator
}

// WithPurge returns a Cache whose Invalidate also notifies each purger after the local drop.
func WithPurge(c Cache, purgers ...Invalidator) Cache {
	if len(purgers) == 0 {
		return c
	}
	return &purgingCache{Cache: c, purgers: purgers}
}

func (p *purgingCache) Invalidate(ctx context.Context, keys ...string) error {
	err := p.Cache.Invalidate(ctx, keys...)
	for _, purger := range p.purgers {
		err = errors.Join(err, purger.Invalidate(ctx, keys...))
	}
	return err
}
