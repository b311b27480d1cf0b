package repository

import (
	"context"
	"fmt"

	"dicebank/database"
	"dicebank/domain/entities"

	"github.com/jackc/pgx/v5"
)

// RaffleRepository implements raffle round and entry persistence
type RaffleRepository struct {
	db *database.DB
	q  queryable
}

// NewRaffleRepository creates a new raffle repository
func NewRaffleRepository(db *database.DB) *RaffleRepository {
	return &RaffleRepository{db: db, q: db.Pool}
}

// SaveRaffleRound upserts the round header. Entries are saved with SaveBet.
func (r *RaffleRepository) SaveRaffleRound(ctx context.Context, round *entities.RaffleRound) error {
	query := `
		INSERT INTO raffle_rounds (id, stake, total_bank, winner_id, finished, refunded,
		                           draw_at, created_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			stake       = EXCLUDED.stake,
			total_bank  = EXCLUDED.total_bank,
			winner_id   = EXCLUDED.winner_id,
			finished    = EXCLUDED.finished,
			refunded    = EXCLUDED.refunded,
			draw_at     = EXCLUDED.draw_at,
			finished_at = EXCLUDED.finished_at
	`

	_, err := r.q.Exec(ctx, query,
		round.ID,
		round.Stake,
		round.Bank,
		round.WinnerID,
		round.Finished,
		round.Refunded,
		round.DrawAt,
		round.CreatedAt,
		round.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save raffle round %d: %w", round.ID, err)
	}
	return nil
}

// SaveBet inserts one entry. A repeated (round, sequence) is ignored so retries are safe.
func (r *RaffleRepository) SaveBet(ctx context.Context, roundID int64, bet entities.RaffleBet) error {
	query := `
		INSERT INTO raffle_bets (raffle_id, sequence, user_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (raffle_id, sequence) DO NOTHING
	`

	_, err := r.q.Exec(ctx, query, roundID, bet.Sequence, bet.UserID, bet.Amount, bet.PlacedAt)
	if err != nil {
		return fmt.Errorf("failed to save bet %d for raffle round %d: %w", bet.Sequence, roundID, err)
	}
	return nil
}

// LoadUnfinishedRaffleRounds returns unfinished rounds with their entries, read
// from a single snapshot so headers and entries agree
func (r *RaffleRepository) LoadUnfinishedRaffleRounds(ctx context.Context) ([]*entities.RaffleRound, error) {
	var rounds []*entities.RaffleRound

	err := r.db.WithTransaction(ctx, database.ReadSnapshot, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, stake, total_bank, winner_id, finished, refunded,
			       draw_at, created_at, finished_at
			FROM raffle_rounds
			WHERE NOT finished
			ORDER BY id
		`)
		if err != nil {
			return fmt.Errorf("failed to query unfinished raffle rounds: %w", err)
		}
		rounds, err = pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[entities.RaffleRound])
		if err != nil {
			return fmt.Errorf("failed to scan raffle rounds: %w", err)
		}
		if len(rounds) == 0 {
			return nil
		}

		ids := make([]int64, len(rounds))
		byID := make(map[int64]*entities.RaffleRound, len(rounds))
		for i, round := range rounds {
			ids[i] = round.ID
			byID[round.ID] = round
		}

		rows, err = tx.Query(ctx, `
			SELECT raffle_id, sequence, user_id, amount, created_at
			FROM raffle_bets
			WHERE raffle_id = ANY($1)
			ORDER BY raffle_id, sequence
		`, ids)
		if err != nil {
			return fmt.Errorf("failed to query raffle bets: %w", err)
		}
		bets, err := pgx.CollectRows(rows, pgx.RowToStructByName[entities.RaffleBet])
		if err != nil {
			return fmt.Errorf("failed to scan raffle bets: %w", err)
		}

		for _, bet := range bets {
			round := byID[bet.RoundID]
			round.Bets = append(round.Bets, bet)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rounds, nil
}

// MaxRaffleRoundID returns the highest round id ever stored
func (r *RaffleRepository) MaxRaffleRoundID(ctx context.Context) (int64, error) {
	var maxID int64
	err := r.q.QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) FROM raffle_rounds`).Scan(&maxID)
	if err != nil {
		return 0, fmt.Errorf("failed to get max raffle round id: %w", err)
	}
	return maxID, nil
}
