package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriberRepository_GetOrCreateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, created, err := f.subs.GetOrCreate(ctx, "fan@example.com")
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, first.IsActive)
	assert.False(t, first.SubscribedAt.IsZero())

	second, created, err := f.subs.GetOrCreate(ctx, " fan@example.com ")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	n, err := f.subs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
