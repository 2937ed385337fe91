package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/farm-marketplace/internal/listing/domain"
)

func TestStore_RevisionsAdvance(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	a, err := s.Set(ctx, "a", domain.Record{domain.FieldName: "Wheat", domain.FieldQuantity: 10})
	require.NoError(t, err)
	b, err := s.Set(ctx, "b", domain.Record{domain.FieldName: "Rice"})
	require.NoError(t, err)
	assert.Greater(t, b.Revision, a.Revision)

	updated, err := s.Update(ctx, "a", domain.Record{domain.FieldQuantity: 7}, a.Revision)
	require.NoError(t, err)
	assert.Greater(t, updated.Revision, b.Revision)
	assert.Equal(t, "Wheat", updated.Fields[domain.FieldName], "update merges fields")
	assert.Equal(t, 7, updated.Fields[domain.FieldQuantity])

	rev, err := s.Delete(ctx, "b")
	require.NoError(t, err)
	assert.Greater(t, rev, updated.Revision)

	snap, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, rev, snap.Revision)
	require.Len(t, snap.Documents, 1)
	assert.Equal(t, "a", snap.Documents[0].ID)
}

func TestStore_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Update(ctx, "missing", domain.Record{}, domain.AnyRevision)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Delete(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	doc, err := s.Set(ctx, "a", domain.Record{})
	require.NoError(t, err)
	_, err = s.Update(ctx, "a", domain.Record{}, doc.Revision+1)
	assert.ErrorIs(t, err, domain.ErrConflict)
	_, err = s.Update(ctx, "a", domain.Record{}, domain.AnyRevision)
	assert.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.List(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_ReturnedRecordsAreCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	fields := domain.Record{domain.FieldName: "Wheat"}
	doc, err := s.Set(ctx, "a", fields)
	require.NoError(t, err)
	fields[domain.FieldName] = "Changed"
	doc.Fields[domain.FieldName] = "Changed"

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Wheat", got.Fields[domain.FieldName])
}

func TestStore_Subscribe(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	s := New()

	_, err := s.Set(ctx, "a", domain.Record{})
	require.NoError(t, err)

	ch, err := s.Subscribe(ctx)
	require.NoError(t, err)

	first := <-ch
	assert.Len(t, first.Documents, 1)

	for i := 0; i < 5; i++ {
		_, err = s.Update(ctx, "a", domain.Record{domain.FieldQuantity: i}, domain.AnyRevision)
		require.NoError(t, err)
	}
	latest, err := s.List(ctx)
	require.NoError(t, err)

	select {
	case snap := <-ch:
		assert.Equal(t, latest.Revision, snap.Revision, "slow subscribers only see the newest snapshot")
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}

	cancel()
	assert.Eventually(t, func() bool {
		_, open := <-ch
		return !open
	}, time.Second, 5*time.Millisecond)
}
