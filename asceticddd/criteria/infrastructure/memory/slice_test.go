package memory

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"syreclabs.com/go/faker"

	criteria "github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/domain"
)

type Item struct {
	ID    int
	Name  string
	Price float64
	Stock *int
}

func items(n int) []Item {
	out := make([]Item, 0, n)
	for i := 1; i <= n; i++ {
		item := Item{ID: i, Name: faker.Commerce().ProductName(), Price: float64(i%7) * 10}
		if i%2 == 0 {
			stock := i
			item.Stock = &stock
		}
		out = append(out, item)
	}
	return out
}

func TestSlice_Where(t *testing.T) {
	src := NewSlice(items(30))
	assert.Equal(t, 30, src.Len())

	found, err := src.Where(criteria.True[Item]().And("Price", criteria.GreaterThanOrEqual, 40))
	require.NoError(t, err)
	require.NotEmpty(t, found)
	for _, item := range found {
		assert.GreaterOrEqual(t, item.Price, 40.0)
	}
	for i := 1; i < len(found); i++ {
		assert.Less(t, found[i-1].ID, found[i].ID)
	}

	none, err := src.Where(criteria.False[Item]())
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)

	_, err = src.Where(criteria.True[Item]().And("Weight", criteria.Equal, 1))
	assert.True(t, errors.Is(err, criteria.ErrInvalidSelector))
}

func TestSlice_Find(t *testing.T) {
	src := NewSlice(items(30))
	q := criteria.NewQuery(criteria.True[Item]().And("Stock", criteria.IsNotNull, nil)).
		OrderBy("Price", criteria.Descending).
		OrderBy("ID", criteria.Ascending).
		Page(2, 4)

	page, err := src.Find(q)
	require.NoError(t, err)
	assert.Equal(t, 15, page.Total)
	require.Len(t, page.Items, 4)

	all, err := src.Find(criteria.NewQuery(criteria.True[Item]().And("Stock", criteria.IsNotNull, nil)).
		OrderBy("Price", criteria.Descending).
		OrderBy("ID", criteria.Ascending))
	require.NoError(t, err)
	assert.Equal(t, all.Items[4:8], page.Items)

	for i := 1; i < len(all.Items); i++ {
		prev, cur := all.Items[i-1], all.Items[i]
		require.GreaterOrEqual(t, prev.Price, cur.Price)
		if prev.Price == cur.Price {
			require.Less(t, prev.ID, cur.ID)
		}
	}

	past, err := src.Find(criteria.NewQuery(criteria.True[Item]()).Page(10, 10))
	require.NoError(t, err)
	assert.Empty(t, past.Items)
	assert.Equal(t, 30, past.Total)

	first, err := src.Find(criteria.NewQuery(criteria.True[Item]()).Page(0, 4))
	require.NoError(t, err)
	assert.Len(t, first.Items, 4)
	assert.Equal(t, 30, first.Total)

	far, err := src.Find(criteria.NewQuery(criteria.True[Item]()).Page(9300000000000000, 1000))
	require.NoError(t, err)
	assert.Empty(t, far.Items)
	assert.Equal(t, 30, far.Total)

	_, err = src.Find(nil)
	assert.Error(t, err)
	_, err = src.Find(criteria.NewQuery(criteria.True[Item]()).OrderBy("Nope", criteria.Ascending))
	assert.True(t, errors.Is(err, criteria.ErrInvalidSelector))
}

func TestSlice_FindDocument(t *testing.T) {
	src := NewSlice(items(20))
	doc, err := criteria.DecodeQueryDocument([]byte(`{
		"condition": {"id":"c","entityTypeName":"Item","tree":{"id":"r","operator":"None","connective":"Or","operandKind":"Number","serializedValue":"0",
			"children":[{"id":"a","operator":"Contain","connective":"Or","selector":"ID","operandKind":"Collection","serializedValue":"[3,1,2]"}]}},
		"sort": [{"selector":"ID","direction":"desc"}]
	}`))
	require.NoError(t, err)

	page, err := src.FindDocument(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 3)
	assert.Equal(t, 3, page.Items[0].(Item).ID)
	assert.Equal(t, 1, page.Items[2].(Item).ID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.FindDocument(ctx, doc)
	assert.ErrorIs(t, err, context.Canceled)

	doc.Sort = []criteria.SortItem{{Selector: "Weight"}}
	_, err = src.FindDocument(context.Background(), doc)
	assert.True(t, errors.Is(err, criteria.ErrInvalidSelector))
}
