package repository

import (
	"context"
	"fmt"

	"dicebank/database"
	"dicebank/domain/entities"

	"github.com/jackc/pgx/v5"
)

const duelColumns = `id, creator_id, opponent_id, stake, creator_roll, opponent_roll,
		       winner, status, finished, created_at, finished_at`

// DuelRepository implements duel persistence
type DuelRepository struct {
	q queryable
}

// NewDuelRepository creates a new duel repository
func NewDuelRepository(db *database.DB) *DuelRepository {
	return &DuelRepository{q: db.Pool}
}

// SaveDuel upserts the full duel row
func (r *DuelRepository) SaveDuel(ctx context.Context, duel *entities.Duel) error {
	query := `
		INSERT INTO duels (id, creator_id, opponent_id, stake, creator_roll, opponent_roll,
		                   winner, status, finished, created_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			opponent_id   = EXCLUDED.opponent_id,
			creator_roll  = EXCLUDED.creator_roll,
			opponent_roll = EXCLUDED.opponent_roll,
			winner        = EXCLUDED.winner,
			status        = EXCLUDED.status,
			finished      = EXCLUDED.finished,
			finished_at   = EXCLUDED.finished_at
	`

	_, err := r.q.Exec(ctx, query,
		duel.ID,
		duel.CreatorID,
		duel.OpponentID,
		duel.Stake,
		duel.CreatorRoll,
		duel.OpponentRoll,
		string(duel.Winner),
		string(duel.Status),
		duel.Finished,
		duel.CreatedAt,
		duel.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save duel %d: %w", duel.ID, err)
	}
	return nil
}

// LoadUnfinishedDuels returns open and joined duels ordered by id
func (r *DuelRepository) LoadUnfinishedDuels(ctx context.Context) ([]*entities.Duel, error) {
	query := `
		SELECT ` + duelColumns + `
		FROM duels
		WHERE status IN ('open', 'joined')
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query unfinished duels: %w", err)
	}

	duels, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[entities.Duel])
	if err != nil {
		return nil, fmt.Errorf("failed to scan unfinished duels: %w", err)
	}
	return duels, nil
}

// LoadRecentDuelsForUser returns the user's resolved duels, newest first
func (r *DuelRepository) LoadRecentDuelsForUser(ctx context.Context, userID int64, limit int) ([]*entities.Duel, error) {
	query := `
		SELECT ` + duelColumns + `
		FROM duels
		WHERE status = 'resolved'
		  AND (creator_id = $1 OR opponent_id = $1)
		ORDER BY finished_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query duel history for user %d: %w", userID, err)
	}

	duels, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[entities.Duel])
	if err != nil {
		return nil, fmt.Errorf("failed to scan duel history: %w", err)
	}
	return duels, nil
}

// MaxDuelID returns the highest duel id ever stored
func (r *DuelRepository) MaxDuelID(ctx context.Context) (int64, error) {
	var maxID int64
	err := r.q.QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) FROM duels`).Scan(&maxID)
	if err != nil {
		return 0, fmt.Errorf("failed to get max duel id: %w", err)
	}
	return maxID, nil
}
