package application

import (
	"context"

	"dicebank/domain/entities"
)

// BalanceLoader reads the persisted balances
type BalanceLoader interface {
	LoadBalances(ctx context.Context) (map[int64]int64, error)
}

// BalanceRestorer seeds in-memory accounts
type BalanceRestorer interface {
	Restore(balances map[int64]int64)
}

// Restorer rebuilds a manager's in-memory state from the store
type Restorer interface {
	Restore(ctx context.Context) error
}

// RatingInvalidator drops a cached rating aggregate
type RatingInvalidator interface {
	InvalidateRatingWindow(ctx context.Context, days int) error
}

// DuelSaveHooks runs callbacks once a duel row is durable
type DuelSaveHooks interface {
	OnDuelSaved(fn func(ctx context.Context, duel *entities.Duel))
}
