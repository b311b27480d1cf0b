package services

import (
	"testing"
	"time"

	"dicebank/domain/entities"
	"dicebank/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCryptoRandomSource_Ranges(t *testing.T) {
	t.Parallel()

	src := NewCryptoRandomSource()
	seen := make(map[int]bool)
	for i := 0; i < 600; i++ {
		roll, err := src.RollDie()
		require.NoError(t, err)
		require.GreaterOrEqual(t, roll, 1)
		require.LessOrEqual(t, roll, 6)
		seen[roll] = true

		idx, err := src.PickIndex(4)
		require.NoError(t, err)
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, 4)
	}
	assert.Len(t, seen, 6, "every face should come up in 600 rolls")

	_, err := src.PickIndex(0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSeededRandomSource_Deterministic(t *testing.T) {
	t.Parallel()

	a := NewSeededRandomSource(7)
	b := NewSeededRandomSource(7)
	for i := 0; i < 50; i++ {
		ra, _ := a.RollDie()
		rb, _ := b.RollDie()
		assert.Equal(t, ra, rb)
	}
}

func TestWeightedPick_FrequencyFollowsEntries(t *testing.T) {
	t.Parallel()

	now := time.Now()
	round := entities.NewRaffleRound(1, now)
	for i := 0; i < 3; i++ {
		round.AddBet(1, 10, now)
	}
	round.AddBet(2, 10, now)

	src := NewSeededRandomSource(42)
	const draws = 20000
	wins := make(map[int64]int)
	for i := 0; i < draws; i++ {
		bet, err := WeightedPick(src, round.Bets)
		require.NoError(t, err)
		wins[bet.UserID]++
	}

	share := float64(wins[1]) / draws
	assert.InDelta(t, 0.75, share, 0.02, "three of four entries should win about 75%% of draws")
}

func TestWeightedPick_Errors(t *testing.T) {
	t.Parallel()

	_, err := WeightedPick(NewSeededRandomSource(1), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	bets := []entities.RaffleBet{{UserID: 1}, {UserID: 2}}
	_, err = WeightedPick(testhelpers.NewScriptedRandomSource(nil, nil), bets)
	assert.ErrorIs(t, err, testhelpers.ErrScriptExhausted)
}

func TestRollDecisive(t *testing.T) {
	t.Parallel()

	t.Run("discards ties", func(t *testing.T) {
		src := testhelpers.NewScriptedRandomSource([]int{3, 3, 1, 1, 6, 2}, nil)
		c, o, rerolls, err := rollDecisive(src)
		require.NoError(t, err)
		assert.Equal(t, 6, c)
		assert.Equal(t, 2, o)
		assert.Equal(t, 2, rerolls)
	})

	t.Run("rejects out of range values", func(t *testing.T) {
		src := testhelpers.NewScriptedRandomSource([]int{7, 1}, nil)
		_, _, _, err := rollDecisive(src)
		assert.Error(t, err)
	})

	t.Run("surfaces source errors", func(t *testing.T) {
		src := testhelpers.NewScriptedRandomSource([]int{4}, nil)
		_, _, _, err := rollDecisive(src)
		assert.ErrorIs(t, err, testhelpers.ErrScriptExhausted)
	})
}
