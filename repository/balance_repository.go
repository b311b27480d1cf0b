package repository

import (
	"context"
	"fmt"

	"dicebank/database"
)

// BalanceRepository mirrors ledger balances
type BalanceRepository struct {
	q queryable
}

// NewBalanceRepository creates a new balance repository
func NewBalanceRepository(db *database.DB) *BalanceRepository {
	return &BalanceRepository{q: db.Pool}
}

// SaveBalance upserts the user's balance
func (r *BalanceRepository) SaveBalance(ctx context.Context, userID, balance int64) error {
	query := `
		INSERT INTO balances (user_id, balance, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			balance    = EXCLUDED.balance,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.q.Exec(ctx, query, userID, balance); err != nil {
		return fmt.Errorf("failed to save balance for user %d: %w", userID, err)
	}
	return nil
}

// LoadBalances returns every stored balance keyed by user id
func (r *BalanceRepository) LoadBalances(ctx context.Context) (map[int64]int64, error) {
	rows, err := r.q.Query(ctx, `SELECT user_id, balance FROM balances`)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer rows.Close()

	balances := make(map[int64]int64)
	for rows.Next() {
		var userID, balance int64
		if err := rows.Scan(&userID, &balance); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances[userID] = balance
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balances: %w", err)
	}
	return balances, nil
}
