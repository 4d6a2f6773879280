package cache

import (
	"context"
	"testing"
	"time"

	"inventory-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestItemCache_L1Only(t *testing.T) {
	ctx := context.Background()
	c := NewItemCache(nil, 2, time.Minute, zap.NewNop())

	assert.Nil(t, c.GetItem(ctx, "Taq"))

	item := &models.Item{ID: 1, Name: "Taq", MinimumStock: 20}
	c.SetItem(ctx, item)

	got := c.GetItem(ctx, "Taq")
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.ID)

	// el caché guarda copias
	got.MinimumStock = 99
	assert.Equal(t, 20, c.GetItem(ctx, "Taq").MinimumStock)

	c.Invalidate(ctx, "Taq")
	assert.Nil(t, c.GetItem(ctx, "Taq"))

	stats := c.GetStats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, int64(4), stats.TotalRequests)
}

func TestItemCache_EvictsAtCapacity(t *testing.T) {
	ctx := context.Background()
	c := NewItemCache(nil, 2, time.Minute, zap.NewNop())

	c.SetItem(ctx, &models.Item{ID: 1, Name: "A"})
	c.SetItem(ctx, &models.Item{ID: 2, Name: "B"})
	c.SetItem(ctx, &models.Item{ID: 3, Name: "C"})
	assert.Equal(t, 2, c.GetStats().TotalKeys)
	assert.NotNil(t, c.GetItem(ctx, "C"))

	c.InvalidateAll(ctx)
	assert.Equal(t, 0, c.GetStats().TotalKeys)
}
