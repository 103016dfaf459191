package listing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSortItemsNilPlacement(t *testing.T) {
	type item struct {
		name string
		at   any
	}
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []item{
		{"b", t0.Add(time.Hour)},
		{"nil", nil},
		{"a", t0},
	}
	key := func(i item) any { return i.at }

	SortItems(items, key, Asc)
	require.Equal(t, "nil", items[0].name)
	require.Equal(t, "a", items[1].name)

	SortItems(items, key, Desc)
	require.Equal(t, "b", items[0].name)
	require.Equal(t, "nil", items[2].name)
}

func TestCompare(t *testing.T) {
	require.Equal(t, 0, Compare("Ring", "ring"))
	require.Negative(t, Compare("apple", "Banana"))
	require.Negative(t, Compare(2, 10))
	require.Positive(t, Compare(10.5, 3))
	require.Negative(t, Compare(false, true))
	require.Negative(t, Compare(nil, "x"))
	require.Equal(t, 0, Compare(nil, nil))
}

func TestSortItemsIsStable(t *testing.T) {
	type item struct {
		group string
		seq   int
	}
	items := []item{{"b", 1}, {"a", 2}, {"b", 3}, {"a", 4}}
	SortItems(items, func(i item) any { return i.group }, Asc)
	require.Equal(t, []item{{"a", 2}, {"a", 4}, {"b", 1}, {"b", 3}}, items)
}

func TestParseOrder(t *testing.T) {
	require.Equal(t, Desc, ParseOrder("DESC"))
	require.Equal(t, Asc, ParseOrder(""))
	require.Equal(t, Asc, ParseOrder("sideways"))
	require.Equal(t, Asc, Desc.Flip())
}
