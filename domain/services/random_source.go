package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	mrand "math/rand/v2"
	"sync"

	"dicebank/domain/entities"
	"dicebank/domain/interfaces"
)

const dieFaces = 6

// cryptoRandomSource draws from crypto/rand
type cryptoRandomSource struct{}

// NewCryptoRandomSource returns the production random source
func NewCryptoRandomSource() interfaces.RandomSource {
	return cryptoRandomSource{}
}

func (cryptoRandomSource) RollDie() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(dieFaces))
	if err != nil {
		return 0, fmt.Errorf("failed to roll die: %w", err)
	}
	return int(n.Int64()) + 1, nil
}

func (cryptoRandomSource) PickIndex(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("%w: cannot pick from %d entries", ErrInvalidInput, n)
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to pick index: %w", err)
	}
	return int(v.Int64()), nil
}

// SeededRandomSource is a deterministic source for simulations and tests
type SeededRandomSource struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewSeededRandomSource returns a PCG-backed source seeded with seed
func NewSeededRandomSource(seed uint64) *SeededRandomSource {
	return &SeededRandomSource{rng: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *SeededRandomSource) RollDie() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(dieFaces) + 1, nil
}

func (s *SeededRandomSource) PickIndex(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("%w: cannot pick from %d entries", ErrInvalidInput, n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n), nil
}

// WeightedPick selects one entry uniformly from the flat bet list, so each
// bettor wins with probability proportional to the number of entries they hold.
func WeightedPick(src interfaces.RandomSource, bets []entities.RaffleBet) (entities.RaffleBet, error) {
	if len(bets) == 0 {
		return entities.RaffleBet{}, fmt.Errorf("%w: no entries to pick from", ErrInvalidInput)
	}
	idx, err := src.PickIndex(len(bets))
	if err != nil {
		return entities.RaffleBet{}, err
	}
	if idx < 0 || idx >= len(bets) {
		return entities.RaffleBet{}, fmt.Errorf("random source returned index %d outside [0,%d)", idx, len(bets))
	}
	return bets[idx], nil
}

// rollDecisive rolls both sides until the values differ. Ties are discarded and
// never observable outside this function.
func rollDecisive(src interfaces.RandomSource) (creatorRoll, opponentRoll, rerolls int, err error) {
	for {
		if creatorRoll, err = src.RollDie(); err != nil {
			return 0, 0, rerolls, err
		}
		if opponentRoll, err = src.RollDie(); err != nil {
			return 0, 0, rerolls, err
		}
		if creatorRoll < 1 || creatorRoll > dieFaces || opponentRoll < 1 || opponentRoll > dieFaces {
			return 0, 0, rerolls, fmt.Errorf("random source produced out of range rolls %d and %d", creatorRoll, opponentRoll)
		}
		if creatorRoll != opponentRoll {
			return creatorRoll, opponentRoll, rerolls, nil
		}
		rerolls++
	}
}
