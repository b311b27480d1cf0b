package testutil

import (
	"time"

	"dicebank/domain/entities"
)

// CreateTestDuel returns an open duel created a minute ago
func CreateTestDuel(id, creatorID, stake int64) *entities.Duel {
	return entities.NewDuel(id, creatorID, stake, time.Now().UTC().Add(-time.Minute).Truncate(time.Microsecond))
}

// CreateResolvedDuel returns a duel between creator and opponent won by winnerID
func CreateResolvedDuel(id, creatorID, opponentID, winnerID, stake int64, finishedAt time.Time) *entities.Duel {
	duel := entities.NewDuel(id, creatorID, stake, finishedAt.Add(-time.Minute))
	duel.Join(opponentID)
	if winnerID == creatorID {
		duel.Resolve(6, 2, finishedAt)
	} else {
		duel.Resolve(2, 6, finishedAt)
	}
	return duel
}

// CreateTestRaffleRound returns a round holding one entry per given user
func CreateTestRaffleRound(id, stake int64, userIDs ...int64) *entities.RaffleRound {
	now := time.Now().UTC().Truncate(time.Microsecond)
	round := entities.NewRaffleRound(id, now)
	for _, userID := range userIDs {
		round.AddBet(userID, stake, now)
	}
	return round
}
