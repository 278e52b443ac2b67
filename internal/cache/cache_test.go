package cache

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type mapCache struct {
	mu      sync.Mutex
	values  map[string][]byte
	dropped []string
}

func newMapCache() *mapCache { return &mapCache{values: map[string][]byte{}} }

func (m *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *mapCache) Invalidate(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
		m.dropped = append(m.dropped, k)
	}
	return nil
}

func TestRememberLoadsOnceThenServesFromCache(t *testing.T) {
	c := newMapCache()
	loads := 0
	load := func(context.Context) ([]string, error) {
		loads++
		return []string{"a", "b"}, nil
	}

	first, err := Remember(context.Background(), c, "k", time.Minute, load)
	require.NoError(t, err)
	second, err := Remember(context.Background(), c, "k", time.Minute, load)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, loads)
}

func TestRememberDoesNotCacheErrors(t *testing.T) {
	c := newMapCache()
	_, err := Remember(context.Background(), c, "k", time.Minute, func(context.Context) (int, error) {
		return 0, errors.New("boom")
	})
	require.Error(t, err)
	_, ok, _ := c.Get(context.Background(), "k")
	require.False(t, ok)
}

func TestWithPurgeNotifiesEdge(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	local := newMapCache()
	c := WithPurge(local, NewHTTPInvalidator(srv.URL, "tok", time.Second))
	require.NoError(t, c.Invalidate(context.Background(), KeyCategories, KeyInfoTags))
	require.Equal(t, []string{KeyCategories, KeyInfoTags}, local.dropped)
	require.Equal(t, KeyCategories+"\n"+KeyInfoTags, body)
}

func TestHTTPInvalidatorReportsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewHTTPInvalidator(srv.URL, "", time.Second).Invalidate(context.Background(), "x")
	var invErr *InvalidationError
	require.ErrorAs(t, err, &invErr)
	require.Equal(t, http.StatusBadGateway, invErr.Status)
}

func TestKeysForEntity(t *testing.T) {
	require.Equal(t, []string{KeyCategories}, KeysForEntity("category"))
	require.Nil(t, KeysForEntity("resource"))
}
