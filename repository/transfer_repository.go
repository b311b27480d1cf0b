package repository

import (
	"context"
	"fmt"

	"dicebank/database"
	"dicebank/domain/entities"
)

// TransferRepository records user-to-user transfers
type TransferRepository struct {
	q queryable
}

// NewTransferRepository creates a new transfer repository
func NewTransferRepository(db *database.DB) *TransferRepository {
	return &TransferRepository{q: db.Pool}
}

// SaveTransfer inserts the transfer and fills in its id
func (r *TransferRepository) SaveTransfer(ctx context.Context, transfer *entities.Transfer) error {
	query := `
		INSERT INTO transfers (from_id, to_id, amount, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.q.QueryRow(ctx, query, transfer.FromID, transfer.ToID, transfer.Amount, transfer.CreatedAt).Scan(&transfer.ID)
	if err != nil {
		return fmt.Errorf("failed to save transfer: %w", err)
	}
	return nil
}
