package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/farm-marketplace/internal/listing/domain"
	"github.com/tair/farm-marketplace/internal/listing/store/memory"
)

func TestTracingStore_DelegatesToBackend(t *testing.T) {
	ctx := context.Background()
	var s domain.Store = WithTracing(memory.New(), "memory")

	doc, err := s.Set(ctx, "a", domain.Record{domain.FieldName: "Maize"})
	require.NoError(t, err)

	_, err = s.Update(ctx, "a", domain.Record{}, doc.Revision+5)
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Maize", got.Fields[domain.FieldName])

	_, err = s.Delete(ctx, "a")
	require.NoError(t, err)
	snap, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Documents)
}
