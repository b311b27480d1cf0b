package interfaces

import (
	"context"

	"dicebank/domain/entities"
)

// DuelStore persists duels for recovery, history and rating
type DuelStore interface {
	// SaveDuel upserts the duel by id
	SaveDuel(ctx context.Context, duel *entities.Duel) error

	// LoadUnfinishedDuels returns duels still open or joined, ordered by id
	LoadUnfinishedDuels(ctx context.Context) ([]*entities.Duel, error)

	// LoadRecentDuelsForUser returns resolved duels the user played, newest first
	LoadRecentDuelsForUser(ctx context.Context, userID int64, limit int) ([]*entities.Duel, error)

	// MaxDuelID returns the highest stored duel id, or 0 when none exist
	MaxDuelID(ctx context.Context) (int64, error)
}

// RaffleStore persists raffle rounds and their entries
type RaffleStore interface {
	// SaveRaffleRound upserts the round header by id
	SaveRaffleRound(ctx context.Context, round *entities.RaffleRound) error

	// SaveBet records one entry. Saving the same (round, sequence) twice is a no-op.
	SaveBet(ctx context.Context, roundID int64, bet entities.RaffleBet) error

	// LoadUnfinishedRaffleRounds returns unfinished rounds with their bets, ordered by id
	LoadUnfinishedRaffleRounds(ctx context.Context) ([]*entities.RaffleRound, error)

	// MaxRaffleRoundID returns the highest stored round id, or 0 when none exist
	MaxRaffleRoundID(ctx context.Context) (int64, error)
}

// StatsStore serves the rating aggregate
type StatsStore interface {
	// LoadRoundStatsWindow aggregates per-user profit and game count over resolved
	// duels that finished within the last days days
	LoadRoundStatsWindow(ctx context.Context, days int) ([]entities.UserDuelStats, error)
}

// BalanceStore mirrors ledger balances
type BalanceStore interface {
	SaveBalance(ctx context.Context, userID, balance int64) error
	LoadBalances(ctx context.Context) (map[int64]int64, error)
}

// TransferStore records user-to-user transfers
type TransferStore interface {
	SaveTransfer(ctx context.Context, transfer *entities.Transfer) error
}

// PersistenceGateway is the durable store consumed by the managers
type PersistenceGateway interface {
	DuelStore
	RaffleStore
	StatsStore
	BalanceStore
	TransferStore
}
