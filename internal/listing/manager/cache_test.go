package manager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/farm-marketplace/internal/listing/domain"
)

func listingAt(id string, qty int, rev int64) domain.Listing {
	return domain.Listing{
		ID:                id,
		Name:              "Onion",
		QuantityAvailable: qty,
		Category:          domain.CategoryVegetables,
		CreatedAt:         time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Revision:          rev,
	}
}

func TestCache_StaleSnapshotIsDropped(t *testing.T) {
	c := newCache()
	require.True(t, c.applySnapshot(5, []domain.Listing{listingAt("a", 10, 5)}))
	assert.False(t, c.applySnapshot(4, []domain.Listing{listingAt("a", 99, 4)}))

	l, ok := c.get("a")
	require.True(t, ok)
	assert.Equal(t, 10, l.QuantityAvailable)
}

func TestCache_MirroredWriteSurvivesOlderSnapshot(t *testing.T) {
	c := newCache()
	require.True(t, c.applySnapshot(3, []domain.Listing{listingAt("a", 10, 3)}))
	require.True(t, c.applyListing(listingAt("a", 7, 6)))

	// a snapshot taken before the mirrored write still carries the old quantity
	require.True(t, c.applySnapshot(5, []domain.Listing{listingAt("a", 10, 3), listingAt("b", 1, 5)}))

	l, _ := c.get("a")
	assert.Equal(t, 7, l.QuantityAvailable)
	assert.Equal(t, 2, c.size())

	_, rev := c.list()
	assert.EqualValues(t, 6, rev)
}

func TestCache_TombstoneHidesDeletedListing(t *testing.T) {
	c := newCache()
	require.True(t, c.applySnapshot(2, []domain.Listing{listingAt("a", 10, 2)}))
	c.applyDelete("a", 4)

	require.True(t, c.applySnapshot(3, []domain.Listing{listingAt("a", 10, 2)}))
	_, ok := c.get("a")
	assert.False(t, ok)

	assert.False(t, c.applyListing(listingAt("a", 5, 3)), "writes older than the deletion are ignored")

	// once a snapshot covers the deletion the tombstone is released
	require.True(t, c.applySnapshot(4, nil))
	assert.Empty(t, c.tombstones)
}

func TestCache_OrderNewestFirst(t *testing.T) {
	c := newCache()
	older := listingAt("z", 1, 1)
	newer := listingAt("b", 1, 2)
	newer.CreatedAt = older.CreatedAt.Add(time.Minute)
	tie := listingAt("a", 1, 3)
	tie.CreatedAt = older.CreatedAt

	c.applySnapshot(3, []domain.Listing{older, newer, tie})
	listings, _ := c.list()
	ids := []string{listings[0].ID, listings[1].ID, listings[2].ID}
	assert.Equal(t, []string{"b", "a", "z"}, ids)
}
