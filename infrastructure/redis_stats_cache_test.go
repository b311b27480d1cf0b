package infrastructure

import (
	"context"
	"testing"
	"time"

	"dicebank/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
			Labels:       map[string]string{"test": "dicebank-infrastructure", "cleanup": "auto"},
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate redis container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return endpoint
}

func TestRedisStatsCache_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	t.Parallel()

	ctx := context.Background()
	rdb, err := ConnectRedis(ctx, setupRedis(t))
	require.NoError(t, err)
	defer rdb.Close()

	cache := NewRedisStatsCache(rdb)

	_, found, err := cache.GetRatingWindow(ctx, 30)
	require.NoError(t, err)
	assert.False(t, found)

	stats := []entities.UserDuelStats{
		{UserID: 1, Profit: 80, Games: 3},
		{UserID: 2, Profit: -130, Games: 2},
	}
	require.NoError(t, cache.SetRatingWindow(ctx, 30, stats, time.Minute))

	got, found, err := cache.GetRatingWindow(ctx, 30)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, stats, got)

	_, found, err = cache.GetRatingWindow(ctx, 7)
	require.NoError(t, err)
	assert.False(t, found, "windows are cached independently")

	require.NoError(t, cache.InvalidateRatingWindow(ctx, 30))
	_, found, err = cache.GetRatingWindow(ctx, 30)
	require.NoError(t, err)
	assert.False(t, found)
}
