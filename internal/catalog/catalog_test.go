package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupIsCaseInsensitive(t *testing.T) {
	c := Default()

	for _, id := range []string{"apple", "APPLE", " Apple "} {
		p, err := c.Lookup(id)
		require.NoError(t, err, id)
		assert.Equal(t, "apple", p.ItemID)
		assert.Equal(t, 35.0, p.IdealDays)
		assert.Equal(t, 7.0, p.RoomDays)
		assert.Equal(t, 3.0, p.HumidDays)
	}
}

func TestLookupUnsupportedNeverDefaults(t *testing.T) {
	c := Default()

	for _, id := range []string{"", "mango", "apples", "pear"} {
		p, err := c.Lookup(id)
		assert.True(t, errors.Is(err, ErrUnsupportedItem), "id %q", id)
		assert.Equal(t, Profile{}, p)
	}
}

func TestItemsOrderAndLabels(t *testing.T) {
	items := Default().Items()

	require.Len(t, items, 8)
	assert.Equal(t, Item{Value: "apple", Label: "Apple"}, items[0])
	assert.Equal(t, Item{Value: "okra", Label: "Okra"}, items[7])
}

func TestShelfLife(t *testing.T) {
	sl, err := Default().ShelfLife("Okra")
	require.NoError(t, err)
	assert.Equal(t, ShelfLife{Ideal: 3, Room: 1, Humid: 0.5}, sl)

	_, err = Default().ShelfLife("kiwi")
	assert.ErrorIs(t, err, ErrUnsupportedItem)
}

func TestNewRejectsUnknownAndDuplicateIDs(t *testing.T) {
	_, err := New([]Profile{{ItemID: "mango", IdealDays: 1, RoomDays: 1, HumidDays: 1}})
	assert.ErrorIs(t, err, ErrUnsupportedItem)

	_, err = New([]Profile{
		{ItemID: "apple", IdealDays: 1, RoomDays: 1, HumidDays: 1},
		{ItemID: "Apple", IdealDays: 2, RoomDays: 2, HumidDays: 2},
	})
	assert.Error(t, err)
}

func TestNewFillsLabelAndAcceptsSubset(t *testing.T) {
	c, err := New([]Profile{{ItemID: "banana", IdealDays: 5, RoomDays: 3, HumidDays: 2}})
	require.NoError(t, err)

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, []Item{{Value: "banana", Label: "Banana"}}, c.Items())

	_, err = c.Lookup("apple")
	assert.ErrorIs(t, err, ErrUnsupportedItem)
}

func TestDefaultProfilesReturnsCopy(t *testing.T) {
	p := DefaultProfiles()
	p[0].IdealDays = -1

	orig, err := Default().Lookup("apple")
	require.NoError(t, err)
	assert.Equal(t, 35.0, orig.IdealDays)
}
