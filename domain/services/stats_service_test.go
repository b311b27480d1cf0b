package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"dicebank/domain/entities"
	"dicebank/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testStatsConfig() StatsConfig {
	return StatsConfig{
		RatingWindowDays: 30,
		RatingCacheTTL:   time.Minute,
		HistoryScan:      500,
	}
}

// resolvedDuel builds a finished duel won by winner
func resolvedDuel(id, creator, opponent, winner, stake int64, finishedAt time.Time) *entities.Duel {
	d := entities.NewDuel(id, creator, stake, finishedAt.Add(-time.Minute))
	d.Join(opponent)
	if winner == creator {
		d.Resolve(6, 1, finishedAt)
	} else {
		d.Resolve(1, 6, finishedAt)
	}
	return d
}

func TestStatsService_GetUserStats(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	gw := testhelpers.NewMemoryGateway()

	for _, d := range []*entities.Duel{
		resolvedDuel(1, 1, 2, 1, 100, now.Add(-2*time.Hour)),
		resolvedDuel(2, 2, 1, 2, 40, now.Add(-3*24*time.Hour)),
		resolvedDuel(3, 1, 3, 1, 10, now.Add(-20*24*time.Hour)),
		resolvedDuel(4, 1, 3, 3, 500, now.Add(-40*24*time.Hour)),
	} {
		require.NoError(t, gw.SaveDuel(ctx, d))
	}

	service := NewStatsService(gw, gw, nil, testStatsConfig())
	service.now = func() time.Time { return now }

	stats, err := service.GetUserStats(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, entities.PeriodStats{Games: 1, Profit: 100}, stats.Day)
	assert.Equal(t, entities.PeriodStats{Games: 2, Profit: 60}, stats.Week)
	assert.Equal(t, entities.PeriodStats{Games: 3, Profit: 70}, stats.Month)
}

func TestStatsService_GetRating(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now()
	gw := testhelpers.NewMemoryGateway()

	// User 1: +100 over two games; user 2: -100; user 3: +100 in one game; user 4: -100
	for _, d := range []*entities.Duel{
		resolvedDuel(1, 1, 2, 1, 50, now.Add(-time.Hour)),
		resolvedDuel(2, 1, 2, 1, 50, now.Add(-time.Hour)),
		resolvedDuel(3, 3, 4, 3, 100, now.Add(-time.Hour)),
		resolvedDuel(4, 5, 6, 5, 1000, now.Add(-45*24*time.Hour)),
	} {
		require.NoError(t, gw.SaveDuel(ctx, d))
	}

	service := NewStatsService(gw, gw, nil, testStatsConfig())

	rating, err := service.GetRating(ctx, 2)
	require.NoError(t, err)

	require.Len(t, rating.Top, 3)
	assert.Equal(t, int64(3), rating.Top[0].UserID, "equal profit ranks fewer games first")
	assert.Equal(t, int64(1), rating.Top[1].UserID)
	assert.Equal(t, int64(4), rating.Top[2].UserID)
	assert.Equal(t, 4, rating.TotalPlayers, "duels outside the window are excluded")
	assert.Equal(t, 4, rating.Place)
	assert.Equal(t, int64(-100), rating.Self.Profit)

	outsider, err := service.GetRating(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, outsider.Place)
	assert.Equal(t, int64(5), outsider.Self.UserID)
}

func TestStatsService_RatingUsesCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cached := []entities.UserDuelStats{{UserID: 9, Profit: 10, Games: 1}}

	t.Run("hit skips the store", func(t *testing.T) {
		store := new(testhelpers.MockPersistenceGateway)
		cache := new(testhelpers.MockStatsCache)
		cache.On("GetRatingWindow", mock.Anything, 30).Return(cached, true, nil)

		service := NewStatsService(store, store, cache, testStatsConfig())
		rating, err := service.GetRating(ctx, 9)
		require.NoError(t, err)
		assert.Equal(t, 1, rating.Place)

		store.AssertNotCalled(t, "LoadRoundStatsWindow", mock.Anything, mock.Anything)
		cache.AssertExpectations(t)
	})

	t.Run("miss fills the cache", func(t *testing.T) {
		store := new(testhelpers.MockPersistenceGateway)
		cache := new(testhelpers.MockStatsCache)
		cache.On("GetRatingWindow", mock.Anything, 30).Return(nil, false, nil)
		store.On("LoadRoundStatsWindow", mock.Anything, 30).Return(cached, nil)
		cache.On("SetRatingWindow", mock.Anything, 30, cached, time.Minute).Return(nil)

		service := NewStatsService(store, store, cache, testStatsConfig())
		_, err := service.GetRating(ctx, 9)
		require.NoError(t, err)

		store.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("cache failure falls back to the store", func(t *testing.T) {
		store := new(testhelpers.MockPersistenceGateway)
		cache := new(testhelpers.MockStatsCache)
		cache.On("GetRatingWindow", mock.Anything, 30).Return(nil, false, errors.New("redis down"))
		store.On("LoadRoundStatsWindow", mock.Anything, 30).Return(cached, nil)
		cache.On("SetRatingWindow", mock.Anything, 30, cached, time.Minute).Return(errors.New("redis down"))

		service := NewStatsService(store, store, cache, testStatsConfig())
		rating, err := service.GetRating(ctx, 9)
		require.NoError(t, err)
		assert.Equal(t, 1, rating.TotalPlayers)
	})
}

func TestStatsService_RatingTieBreaksOnUserID(t *testing.T) {
	t.Parallel()

	store := new(testhelpers.MockPersistenceGateway)
	store.On("LoadRoundStatsWindow", mock.Anything, 30).Return([]entities.UserDuelStats{
		{UserID: 8, Profit: 20, Games: 2},
		{UserID: 3, Profit: 20, Games: 2},
		{UserID: 5, Profit: 90, Games: 4},
	}, nil)

	service := NewStatsService(store, store, nil, testStatsConfig())
	rating, err := service.GetRating(context.Background(), 8)
	require.NoError(t, err)

	require.Len(t, rating.Top, 3)
	assert.Equal(t, []int64{5, 3, 8}, []int64{rating.Top[0].UserID, rating.Top[1].UserID, rating.Top[2].UserID})
	assert.Equal(t, 3, rating.Place)
}
