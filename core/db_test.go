package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrdering(t *testing.T) {
	assert.Nil(t, ParseOrdering(""))
	assert.Equal(t, []DBOrdering{
		{Field: "date", Ascending: true},
		{Field: "status", Ascending: false},
	}, ParseOrdering(" date, -status ,,-"))
	assert.Equal(t, "name ASC", DBOrdering{Field: "name", Ascending: true}.String())
	assert.Equal(t, "name DESC", DBOrdering{Field: "name"}.String())
}

func TestSortSlice(t *testing.T) {
	type item struct {
		name string
		age  int
	}
	comparators := map[string]Comparator[item]{
		"name": func(a, b item) int { return CompareStrings(a.name, b.name) },
		"age":  func(a, b item) int { return CompareInts(a.age, b.age) },
	}
	names := func(items []item) []string {
		var res []string
		for _, i := range items {
			res = append(res, i.name)
		}
		return res
	}
	newItems := func() []item {
		return []item{{"bob", 30}, {"Alice", 25}, {"carol", 30}, {"dave", 25}}
	}

	items := newItems()
	require.NoError(t, SortSlice(items, ParseOrdering("name"), comparators))
	assert.Equal(t, []string{"Alice", "bob", "carol", "dave"}, names(items))

	items = newItems()
	require.NoError(t, SortSlice(items, ParseOrdering("-age"), comparators))
	assert.Equal(t, []string{"bob", "carol", "Alice", "dave"}, names(items), "stable on ties")

	items = newItems()
	require.NoError(t, SortSlice(items, ParseOrdering("age,-name"), comparators))
	assert.Equal(t, []string{"dave", "Alice", "carol", "bob"}, names(items))

	items = newItems()
	err := SortSlice(items, ParseOrdering("height"), comparators)
	require.Error(t, err)
	assert.Equal(t, OrderingParam, err.(*ValidationError).Fields[0].Field)
	assert.Equal(t, []string{"bob", "Alice", "carol", "dave"}, names(items))
}

func TestCheckOrdering(t *testing.T) {
	assert.NoError(t, CheckOrdering(ParseOrdering("name,-email"), "name", "email"))
	assert.Error(t, CheckOrdering(ParseOrdering("password"), "name", "email"))
}
