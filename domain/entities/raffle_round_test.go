package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRaffleRound_AddBet(t *testing.T) {
	t.Parallel()

	now := time.Now()
	r := NewRaffleRound(1, now)
	assert.False(t, r.HasStake())

	first := r.AddBet(1, 50, now)
	r.AddBet(2, 50, now)
	r.AddBet(1, 50, now)

	assert.Equal(t, 1, first.Sequence)
	assert.Equal(t, int64(50), r.Stake)
	assert.Equal(t, int64(150), r.Bank)
	assert.Equal(t, []int64{1, 2}, r.Participants)
	assert.Equal(t, 2, r.BetCountFor(1))
	assert.Equal(t, 0, r.BetCountFor(3))
	assert.Equal(t, 3, r.Bets[2].Sequence)
	assert.Equal(t, map[int64]int64{1: 100, 2: 50}, r.RefundsByUser())
}

func TestRaffleRound_ArmOnce(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := NewRaffleRound(1, now)

	_, ok := r.SecondsRemaining(now)
	assert.False(t, ok)

	require.True(t, r.Arm(now.Add(40*time.Second)))
	assert.False(t, r.Arm(now.Add(time.Hour)), "deadline is set once")
	assert.Equal(t, now.Add(40*time.Second), *r.DrawAt)

	left, ok := r.SecondsRemaining(now.Add(10 * time.Second))
	assert.True(t, ok)
	assert.Equal(t, 30, left)

	left, _ = r.SecondsRemaining(now.Add(time.Minute))
	assert.Equal(t, 0, left)
}

func TestRaffleRound_Rebuild(t *testing.T) {
	t.Parallel()

	now := time.Now()
	r := &RaffleRound{
		ID: 4,
		Bets: []RaffleBet{
			{Sequence: 1, UserID: 3, Amount: 20},
			{Sequence: 2, UserID: 4, Amount: 20},
			{Sequence: 3, UserID: 3, Amount: 20},
		},
		CreatedAt: now,
	}
	r.Rebuild()

	assert.Equal(t, int64(20), r.Stake)
	assert.Equal(t, int64(60), r.Bank)
	assert.Equal(t, []int64{3, 4}, r.Participants)
	assert.Equal(t, 2, r.BetCountFor(3))
}

func TestRaffleRound_StatusFor(t *testing.T) {
	t.Parallel()

	now := time.Now()
	r := NewRaffleRound(1, now)
	assert.False(t, r.StatusFor(1, now).Active, "a round without bets is not active")

	r.AddBet(1, 10, now)
	status := r.StatusFor(1, now)
	assert.True(t, status.Active)
	assert.Nil(t, status.SecondsRemaining)
	assert.Equal(t, 1, status.AwaitingParticipants)
	assert.Equal(t, 1, status.UserBets)

	r.FinishRefunded(now)
	assert.False(t, r.StatusFor(1, now).Active)
}
