package repository

import (
	"dicebank/database"
	"dicebank/domain/interfaces"
)

// Gateway is the Postgres-backed persistence gateway
type Gateway struct {
	*DuelRepository
	*RaffleRepository
	*StatsRepository
	*BalanceRepository
	*TransferRepository
}

var _ interfaces.PersistenceGateway = (*Gateway)(nil)

// NewGateway creates the gateway over db
func NewGateway(db *database.DB) *Gateway {
	return &Gateway{
		DuelRepository:     NewDuelRepository(db),
		RaffleRepository:   NewRaffleRepository(db),
		StatsRepository:    NewStatsRepository(db),
		BalanceRepository:  NewBalanceRepository(db),
		TransferRepository: NewTransferRepository(db),
	}
}
