package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"dicebank/domain/entities"
	"dicebank/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// ratingTopSize is the number of players shown on the leaderboard
const ratingTopSize = 3

// StatsConfig holds rating and history settings
type StatsConfig struct {
	RatingWindowDays int
	RatingCacheTTL   time.Duration
	HistoryScan      int // how many recent duels feed the period stats
}

// StatsService computes per-user duel statistics and the profit leaderboard
type StatsService struct {
	duels  interfaces.DuelStore
	stats  interfaces.StatsStore
	cache  interfaces.StatsCache
	config StatsConfig
	now    interfaces.Clock
}

// NewStatsService creates a stats service. cache may be nil.
func NewStatsService(duels interfaces.DuelStore, stats interfaces.StatsStore, cache interfaces.StatsCache, config StatsConfig) *StatsService {
	return &StatsService{
		duels:  duels,
		stats:  stats,
		cache:  cache,
		config: config,
		now:    time.Now,
	}
}

// GetUserStats tallies the user's resolved duels over the last day, week and month
func (s *StatsService) GetUserStats(ctx context.Context, userID int64) (*entities.UserStats, error) {
	duels, err := s.duels.LoadRecentDuelsForUser(ctx, userID, s.config.HistoryScan)
	if err != nil {
		return nil, fmt.Errorf("failed to load duels for stats: %w", err)
	}

	stats := &entities.UserStats{UserID: userID}
	now := s.now()
	for _, duel := range duels {
		stats.Add(duel, now)
	}
	return stats, nil
}

// GetRating returns the top players by profit over the rating window and the
// requesting user's place among everyone who played in it
func (s *StatsService) GetRating(ctx context.Context, userID int64) (*entities.Rating, error) {
	window, err := s.loadWindow(ctx)
	if err != nil {
		return nil, err
	}

	ranked := append([]entities.UserDuelStats(nil), window...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Profit != ranked[j].Profit {
			return ranked[i].Profit > ranked[j].Profit
		}
		if ranked[i].Games != ranked[j].Games {
			return ranked[i].Games < ranked[j].Games
		}
		return ranked[i].UserID < ranked[j].UserID
	})

	rating := &entities.Rating{
		TotalPlayers: len(ranked),
		Self:         entities.UserDuelStats{UserID: userID},
		WindowDays:   s.config.RatingWindowDays,
	}
	top := ratingTopSize
	if len(ranked) < top {
		top = len(ranked)
	}
	rating.Top = ranked[:top]

	for i, row := range ranked {
		if row.UserID == userID {
			rating.Place = i + 1
			rating.Self = row
			break
		}
	}
	return rating, nil
}

// loadWindow reads the aggregate through the cache. Cache failures fall back to the store.
func (s *StatsService) loadWindow(ctx context.Context) ([]entities.UserDuelStats, error) {
	days := s.config.RatingWindowDays

	if s.cache != nil {
		cached, found, err := s.cache.GetRatingWindow(ctx, days)
		if err != nil {
			log.WithError(err).Warn("Rating cache read failed, using store")
		} else if found {
			return cached, nil
		}
	}

	window, err := s.stats.LoadRoundStatsWindow(ctx, days)
	if err != nil {
		return nil, fmt.Errorf("failed to load rating window: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetRatingWindow(ctx, days, window, s.config.RatingCacheTTL); err != nil {
			log.WithError(err).Warn("Rating cache write failed")
		}
	}
	return window, nil
}
