package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFence_FillWithoutInvalidation(t *testing.T) {
	c := NewInMemoryCache(time.Minute, 0)
	defer c.Stop()
	f := NewFence()
	ctx := context.Background()
	key := Key("gig", "g1")

	gen := f.Snapshot(key)
	assert.True(t, f.Fill(ctx, c, key, gen, gigDoc{ID: "g1", Title: "v1"}, time.Minute, zap.NewNop()))

	var got gigDoc
	hit, err := c.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "v1", got.Title)
}

func TestFence_ReadBeforeInvalidationIsNotCached(t *testing.T) {
	c := NewInMemoryCache(time.Minute, 0)
	defer c.Stop()
	f := NewFence()
	ctx := context.Background()
	key := Key("gig", "g1")

	gen := f.Snapshot(key)
	// Una escritura concurrente invalida entre la lectura del almacén y el relleno.
	f.Invalidate(ctx, c, key, zap.NewNop())

	assert.False(t, f.Fill(ctx, c, key, gen, gigDoc{ID: "g1", Title: "stale"}, time.Minute, zap.NewNop()))
	hit, err := c.Get(ctx, key, &gigDoc{})
	require.NoError(t, err)
	assert.False(t, hit)

	// Las lecturas posteriores a la invalidación sí rellenan.
	assert.True(t, f.Fill(ctx, c, key, f.Snapshot(key), gigDoc{ID: "g1", Title: "fresh"}, time.Minute, zap.NewNop()))
}

func TestFence_FillSurvivesCancelledRequest(t *testing.T) {
	c := NewInMemoryCache(time.Minute, 0)
	defer c.Stop()
	f := NewFence()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	key := Key("gig", "g2")

	assert.True(t, f.Fill(ctx, c, key, f.Snapshot(key), gigDoc{ID: "g2"}, time.Minute, zap.NewNop()))
	assert.False(t, f.Fill(ctx, nil, key, 0, gigDoc{ID: "g2"}, time.Minute, zap.NewNop()))
}
