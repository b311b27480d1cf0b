package infrastructure

import (
	"context"
	"fmt"

	"dicebank/domain/entities"
	"dicebank/domain/interfaces"
)

// WriteBehindGateway queues every save on the dispatcher and returns at once.
// Loads go straight to the wrapped gateway.
type WriteBehindGateway struct {
	interfaces.PersistenceGateway
	dispatcher     *Dispatcher
	afterDuelSaved []func(ctx context.Context, duel *entities.Duel)
}

// NewWriteBehindGateway wraps gateway
func NewWriteBehindGateway(gateway interfaces.PersistenceGateway, dispatcher *Dispatcher) *WriteBehindGateway {
	return &WriteBehindGateway{
		PersistenceGateway: gateway,
		dispatcher:         dispatcher,
	}
}

func duelKey(id int64) string {
	return fmt.Sprintf("duel:%d", id)
}

func raffleKey(id int64) string {
	return fmt.Sprintf("raffle:%d", id)
}

func balanceKey(userID int64) string {
	return fmt.Sprintf("balance:%d", userID)
}

const transferKey = "transfer"

// OnDuelSaved registers fn to run on the worker after a duel row is committed.
// Register hooks before the first save.
func (g *WriteBehindGateway) OnDuelSaved(fn func(ctx context.Context, duel *entities.Duel)) {
	g.afterDuelSaved = append(g.afterDuelSaved, fn)
}

// SaveDuel queues the upsert. duel must not be mutated afterwards.
func (g *WriteBehindGateway) SaveDuel(ctx context.Context, duel *entities.Duel) error {
	return g.dispatcher.Enqueue(duelKey(duel.ID), func(ctx context.Context) error {
		if err := g.PersistenceGateway.SaveDuel(ctx, duel); err != nil {
			return err
		}
		for _, fn := range g.afterDuelSaved {
			fn(ctx, duel)
		}
		return nil
	})
}

// SaveRaffleRound queues the header upsert on the round's key
func (g *WriteBehindGateway) SaveRaffleRound(ctx context.Context, round *entities.RaffleRound) error {
	return g.dispatcher.Enqueue(raffleKey(round.ID), func(ctx context.Context) error {
		return g.PersistenceGateway.SaveRaffleRound(ctx, round)
	})
}

// SaveBet queues the entry on the round's key so it lands after the header insert
func (g *WriteBehindGateway) SaveBet(ctx context.Context, roundID int64, bet entities.RaffleBet) error {
	return g.dispatcher.Enqueue(raffleKey(roundID), func(ctx context.Context) error {
		return g.PersistenceGateway.SaveBet(ctx, roundID, bet)
	})
}

// SaveBalance queues the mirror write on the user's key
func (g *WriteBehindGateway) SaveBalance(ctx context.Context, userID, balance int64) error {
	return g.dispatcher.Enqueue(balanceKey(userID), func(ctx context.Context) error {
		return g.PersistenceGateway.SaveBalance(ctx, userID, balance)
	})
}

// SaveTransfer queues the insert. transfer.ID is filled in asynchronously.
func (g *WriteBehindGateway) SaveTransfer(ctx context.Context, transfer *entities.Transfer) error {
	t := *transfer
	return g.dispatcher.Enqueue(transferKey, func(ctx context.Context) error {
		return g.PersistenceGateway.SaveTransfer(ctx, &t)
	})
}
