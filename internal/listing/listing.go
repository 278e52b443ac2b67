// Package listing filters, sorts, paginates and groups bounded in-memory result sets.
package listing

import (
	"cmp"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Query is the normalised form of the list parameters accepted by every list endpoint.
type Query struct {
	Search string
	Sort   string
	Desc   bool
	Page   int
	Limit  int
}

// ParseQuery reads search/sort/order/page/limit, clamping out-of-range values.
func ParseQuery(values url.Values) Query {
	q := Query{
		Search: strings.TrimSpace(values.Get("search")),
		Sort:   strings.TrimSpace(values.Get("sort")),
		Desc:   strings.EqualFold(strings.TrimSpace(values.Get("order")), "desc"),
		Page:   1,
		Limit:  DefaultLimit,
	}
	if raw := values.Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			q.Page = parsed
		}
	}
	if raw := values.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			q.Limit = min(parsed, MaxLimit)
		}
	}
	return q
}

// Page is one window of a filtered, sorted result set.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Filter keeps the items matching pred, preserving order.
func Filter[T any](items []T, pred func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if pred(item) {
			out = append(out, item)
		}
	}
	return out
}

// Search keeps items where any field contains term, case-insensitively. An empty term keeps everything.
func Search[T any](items []T, term string, fields ...func(T) string) []T {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return slices.Clone(items)
	}
	return Filter(items, func(item T) bool {
		for _, field := range fields {
			if strings.Contains(strings.ToLower(field(item)), term) {
				return true
			}
		}
		return false
	})
}

// Sorter compares two items for one sort key.
type Sorter[T any] func(a, b T) int

// By builds a Sorter from an ordered key.
func By[T any, K cmp.Ordered](key func(T) K) Sorter[T] {
	return func(a, b T) int { return cmp.Compare(key(a), key(b)) }
}

// ByFold builds a case-insensitive string Sorter.
func ByFold[T any](key func(T) string) Sorter[T] {
	return func(a, b T) int { return cmp.Compare(strings.ToLower(key(a)), strings.ToLower(key(b))) }
}

// Sort returns a stably sorted copy. Equal elements keep their input order, so sorting an already
// sorted slice again yields the same slice.
func Sort[T any](items []T, by Sorter[T], desc bool) []T {
	out := slices.Clone(items)
	if by == nil {
		return out
	}
	slices.SortStableFunc(out, func(a, b T) int {
		if desc {
			return by(b, a)
		}
		return by(a, b)
	})
	return out
}

// Paginate returns the requested 1-based page. Pages past the end are empty.
func Paginate[T any](items []T, page, limit int) Page[T] {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	total := len(items)
	start := (page - 1) * limit
	if start >= total {
		return Page[T]{Items: []T{}, Total: total, Page: page, Limit: limit}
	}
	end := min(start+limit, total)
	return Page[T]{Items: slices.Clone(items[start:end]), Total: total, Page: page, Limit: limit}
}

// Apply runs search, sort and pagination in one pass using the sorters keyed by sort field name.
// Unknown sort names fall back to fallback.
func Apply[T any](items []T, q Query, searchFields []func(T) string, sorters map[string]Sorter[T], fallback string) Page[T] {
	filtered := Search(items, q.Search, searchFields...)
	by, ok := sorters[q.Sort]
	if !ok {
		by = sorters[fallback]
	}
	return Paginate(Sort(filtered, by, q.Desc), q.Page, q.Limit)
}

// Group is one bucket produced by GroupBy.
type Group[T any] struct {
	Key   string
	Items []T
}

// GroupBy buckets items in a single pass, keeping keys in first-seen order.
func GroupBy[T any](items []T, key func(T) string) []Group[T] {
	index := make(map[string]int)
	groups := make([]Group[T], 0)
	for _, item := range items {
		k := key(item)
		pos, ok := index[k]
		if !ok {
			pos = len(groups)
			index[k] = pos
			groups = append(groups, Group[T]{Key: k})
		}
		groups[pos].Items = append(groups[pos].Items, item)
	}
	return groups
}
