package testhelpers

import (
	"context"
	"time"

	"dicebank/domain/entities"

	"github.com/stretchr/testify/mock"
)

// MockPersistenceGateway is a mock implementation of interfaces.PersistenceGateway
type MockPersistenceGateway struct {
	mock.Mock
}

func (m *MockPersistenceGateway) SaveDuel(ctx context.Context, duel *entities.Duel) error {
	args := m.Called(ctx, duel)
	return args.Error(0)
}

func (m *MockPersistenceGateway) LoadUnfinishedDuels(ctx context.Context) ([]*entities.Duel, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Duel), args.Error(1)
}

func (m *MockPersistenceGateway) LoadRecentDuelsForUser(ctx context.Context, userID int64, limit int) ([]*entities.Duel, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Duel), args.Error(1)
}

func (m *MockPersistenceGateway) MaxDuelID(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPersistenceGateway) SaveRaffleRound(ctx context.Context, round *entities.RaffleRound) error {
	args := m.Called(ctx, round)
	return args.Error(0)
}

func (m *MockPersistenceGateway) SaveBet(ctx context.Context, roundID int64, bet entities.RaffleBet) error {
	args := m.Called(ctx, roundID, bet)
	return args.Error(0)
}

func (m *MockPersistenceGateway) LoadUnfinishedRaffleRounds(ctx context.Context) ([]*entities.RaffleRound, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.RaffleRound), args.Error(1)
}

func (m *MockPersistenceGateway) MaxRaffleRoundID(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPersistenceGateway) LoadRoundStatsWindow(ctx context.Context, days int) ([]entities.UserDuelStats, error) {
	args := m.Called(ctx, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.UserDuelStats), args.Error(1)
}

func (m *MockPersistenceGateway) SaveBalance(ctx context.Context, userID, balance int64) error {
	args := m.Called(ctx, userID, balance)
	return args.Error(0)
}

func (m *MockPersistenceGateway) LoadBalances(ctx context.Context) (map[int64]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]int64), args.Error(1)
}

func (m *MockPersistenceGateway) SaveTransfer(ctx context.Context, transfer *entities.Transfer) error {
	args := m.Called(ctx, transfer)
	return args.Error(0)
}

// AllowSaves stubs every write method to succeed
func (m *MockPersistenceGateway) AllowSaves() *MockPersistenceGateway {
	m.On("SaveDuel", mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("SaveRaffleRound", mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("SaveBet", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("SaveBalance", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("SaveTransfer", mock.Anything, mock.Anything).Return(nil).Maybe()
	return m
}

// MockStatsCache is a mock implementation of interfaces.StatsCache
type MockStatsCache struct {
	mock.Mock
}

func (m *MockStatsCache) GetRatingWindow(ctx context.Context, days int) ([]entities.UserDuelStats, bool, error) {
	args := m.Called(ctx, days)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]entities.UserDuelStats), args.Bool(1), args.Error(2)
}

func (m *MockStatsCache) SetRatingWindow(ctx context.Context, days int, stats []entities.UserDuelStats, ttl time.Duration) error {
	args := m.Called(ctx, days, stats, ttl)
	return args.Error(0)
}
