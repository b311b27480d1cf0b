package interfaces

import (
	"context"
	"time"

	"dicebank/domain/entities"
	"dicebank/domain/events"
)

// RandomSource produces game outcomes. Implementations must be safe for concurrent use.
type RandomSource interface {
	// RollDie returns a value in 1..6
	RollDie() (int, error)

	// PickIndex returns a value in [0, n)
	PickIndex(n int) (int, error)
}

// Notifier delivers a message to a user. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, userID int64, message string) error
}

// EventPublisher hands domain events to subscribers without blocking the caller
type EventPublisher interface {
	Publish(event events.Event)
}

// DrawScheduler runs a raffle draw job at a deadline, keyed by round id
type DrawScheduler interface {
	// Schedule arms job to run after delay. A round already scheduled is left untouched
	// and false is returned.
	Schedule(roundID int64, delay time.Duration, job func()) bool

	// Cancel drops a pending job. It returns false if none was pending.
	Cancel(roundID int64) bool
}

// StatsCache caches the rating aggregate
type StatsCache interface {
	// GetRatingWindow returns the cached aggregate; found is false on a miss
	GetRatingWindow(ctx context.Context, days int) (stats []entities.UserDuelStats, found bool, err error)
	SetRatingWindow(ctx context.Context, days int, stats []entities.UserDuelStats, ttl time.Duration) error
}

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// Ledger moves funds between users. Implementations serialize per user.
type Ledger interface {
	GetBalance(ctx context.Context, userID int64) int64
	Adjust(ctx context.Context, userID, delta int64, txType entities.TransactionType) int64
	Debit(ctx context.Context, userID, amount int64, txType entities.TransactionType) (int64, error)
}
