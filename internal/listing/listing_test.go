package listing

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

type row struct {
	ID    string
	Name  string
	Group string
	Score int
}

var rows = []row{
	{ID: "1", Name: "Coherence", Group: "breath", Score: 3},
	{ID: "2", Name: "box breathing", Group: "breath", Score: 1},
	{ID: "3", Name: "Journaling", Group: "mind", Score: 3},
	{ID: "4", Name: "Body scan", Group: "mind", Score: 2},
	{ID: "5", Name: "Walk", Group: "move", Score: 1},
}

func TestParseQueryClamps(t *testing.T) {
	q := ParseQuery(url.Values{"page": {"-3"}, "limit": {"5000"}, "order": {"DESC"}, "search": {"  box "}})
	require.Equal(t, 1, q.Page)
	require.Equal(t, MaxLimit, q.Limit)
	require.True(t, q.Desc)
	require.Equal(t, "box", q.Search)

	q = ParseQuery(url.Values{"limit": {"abc"}})
	require.Equal(t, DefaultLimit, q.Limit)
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	got := Search(rows, "BREATH", func(r row) string { return r.Name })
	require.Len(t, got, 1)
	require.Equal(t, "2", got[0].ID)

	require.Len(t, Search(rows, "", func(r row) string { return r.Name }), len(rows))
}

func TestSortIsStableAndIdempotent(t *testing.T) {
	byScore := By(func(r row) int { return r.Score })
	once := Sort(rows, byScore, false)
	twice := Sort(once, byScore, false)
	require.Equal(t, once, twice)

	ids := make([]string, 0, len(once))
	for _, r := range once {
		ids = append(ids, r.ID)
	}
	require.Equal(t, []string{"2", "5", "4", "1", "3"}, ids)

	desc := Sort(rows, byScore, true)
	require.Equal(t, "1", desc[0].ID)
	require.Equal(t, "3", desc[1].ID)

	require.Equal(t, "1", rows[0].ID, "input must not be reordered")
}

func TestSortByFold(t *testing.T) {
	sorted := Sort(rows, ByFold(func(r row) string { return r.Name }), false)
	require.Equal(t, "Body scan", sorted[0].Name)
	require.Equal(t, "box breathing", sorted[1].Name)
}

func TestPaginateBounds(t *testing.T) {
	page := Paginate(rows, 2, 2)
	require.Equal(t, 5, page.Total)
	require.Len(t, page.Items, 2)
	require.Equal(t, "3", page.Items[0].ID)

	last := Paginate(rows, 3, 2)
	require.Len(t, last.Items, 1)

	past := Paginate(rows, 9, 2)
	require.NotNil(t, past.Items)
	require.Empty(t, past.Items)

	empty := Paginate([]row(nil), 1, 10)
	require.Equal(t, 0, empty.Total)
	require.Empty(t, empty.Items)
}

func TestApplyFallsBackToDefaultSort(t *testing.T) {
	sorters := map[string]Sorter[row]{
		"name":  ByFold(func(r row) string { return r.Name }),
		"score": By(func(r row) int { return r.Score }),
	}
	page := Apply(rows, Query{Sort: "unknown", Page: 1, Limit: 10}, []func(row) string{func(r row) string { return r.Name }}, sorters, "name")
	require.Equal(t, "Body scan", page.Items[0].Name)
}

func TestGroupByKeepsFirstSeenOrder(t *testing.T) {
	groups := GroupBy(rows, func(r row) string { return r.Group })
	require.Len(t, groups, 3)
	require.Equal(t, "breath", groups[0].Key)
	require.Equal(t, "mind", groups[1].Key)
	require.Equal(t, "move", groups[2].Key)
	require.Len(t, groups[1].Items, 2)

	require.Empty(t, GroupBy([]row{}, func(r row) string { return r.Group }))
}
