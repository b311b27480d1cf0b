package repository

import (
	"context"
	"fmt"

	"dicebank/database"
	"dicebank/domain/entities"

	"github.com/jackc/pgx/v5"
)

// StatsRepository serves aggregate duel statistics
type StatsRepository struct {
	q queryable
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *database.DB) *StatsRepository {
	return &StatsRepository{q: db.Pool}
}

// LoadRoundStatsWindow sums profit (+stake per win, -stake per loss) and counts
// games per user over duels resolved in the last days days
func (r *StatsRepository) LoadRoundStatsWindow(ctx context.Context, days int) ([]entities.UserDuelStats, error) {
	query := `
		SELECT user_id, SUM(profit)::BIGINT AS profit, COUNT(*) AS games
		FROM (
			SELECT creator_id AS user_id,
			       CASE WHEN winner = 'creator' THEN stake ELSE -stake END AS profit
			FROM duels
			WHERE status = 'resolved'
			  AND finished_at >= NOW() - make_interval(days => $1::INT)
			UNION ALL
			SELECT opponent_id AS user_id,
			       CASE WHEN winner = 'opponent' THEN stake ELSE -stake END AS profit
			FROM duels
			WHERE status = 'resolved'
			  AND finished_at >= NOW() - make_interval(days => $1::INT)
		) per_side
		GROUP BY user_id
		ORDER BY user_id
	`

	rows, err := r.q.Query(ctx, query, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query rating window: %w", err)
	}

	stats, err := pgx.CollectRows(rows, pgx.RowToStructByName[entities.UserDuelStats])
	if err != nil {
		return nil, fmt.Errorf("failed to scan rating window: %w", err)
	}
	return stats, nil
}
