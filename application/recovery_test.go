package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"dicebank/application"
	"dicebank/domain/entities"
	"dicebank/domain/services"
	"dicebank/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const houseID = 99

type engine struct {
	store     *testhelpers.MemoryGateway
	scheduler *testhelpers.ManualScheduler
	ledger    *services.Ledger
	duels     *services.DuelService
	raffle    *services.RaffleService
}

func newEngine(store *testhelpers.MemoryGateway) *engine {
	publisher := &testhelpers.RecordingPublisher{}
	notifier := testhelpers.NewRecordingNotifier()
	random := testhelpers.NewScriptedRandomSource(nil, nil)
	scheduler := testhelpers.NewManualScheduler()

	ledger := services.NewLedger(1000, store, publisher)
	duels := services.NewDuelService(ledger, store, random, notifier, publisher, services.DuelConfig{
		MinStake:       10,
		CancelWindow:   time.Minute,
		HouseAccountID: houseID,
		HistoryLimit:   30,
	})
	raffle := services.NewRaffleService(ledger, store, random, notifier, publisher, scheduler, services.RaffleConfig{
		MinBet:         10,
		MaxBetsPerUser: 10,
		Timer:          40 * time.Second,
		RetryDelay:     5 * time.Second,
		HouseAccountID: houseID,
	})

	return &engine{store: store, scheduler: scheduler, ledger: ledger, duels: duels, raffle: raffle}
}

func (e *engine) recover(ctx context.Context) error {
	return application.Recover(ctx, e.store, e.ledger, e.duels, e.raffle)
}

func TestRecover_RebuildsStateFromStore(t *testing.T) {
	ctx := context.Background()
	store := testhelpers.NewMemoryGateway()
	now := time.Now().UTC()

	require.NoError(t, store.SaveBalance(ctx, 1, 900))
	require.NoError(t, store.SaveBalance(ctx, 2, 950))
	require.NoError(t, store.SaveDuel(ctx, entities.NewDuel(4, 1, 100, now.Add(-time.Minute))))

	round := entities.NewRaffleRound(7, now.Add(-time.Minute))
	require.NoError(t, store.SaveRaffleRound(ctx, round))
	require.NoError(t, store.SaveBet(ctx, 7, round.AddBet(1, 50, now)))
	require.NoError(t, store.SaveBet(ctx, 7, round.AddBet(2, 50, now)))

	e := newEngine(store)
	require.NoError(t, e.recover(ctx))

	assert.Equal(t, int64(900), e.ledger.GetBalance(ctx, 1))
	assert.Equal(t, int64(950), e.ledger.GetBalance(ctx, 2))

	open := e.duels.ListOpenDuels(ctx)
	require.Len(t, open, 1)
	assert.Equal(t, int64(4), open[0].ID)

	created, err := e.duels.CreateDuel(ctx, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(5), created.ID, "ids continue after the stored maximum")

	status := e.raffle.GetCurrentRaffleStatus(ctx, 1)
	assert.True(t, status.Active)
	assert.Equal(t, int64(7), status.RoundID)
	assert.Equal(t, int64(100), status.Bank)
	assert.Equal(t, 1, status.UserBets)

	delay, pending := e.scheduler.Pending(7)
	require.True(t, pending, "a round with two bettors is re-armed")
	assert.Equal(t, 40*time.Second, delay)
}

func TestRecover_EmptyStore(t *testing.T) {
	ctx := context.Background()
	e := newEngine(testhelpers.NewMemoryGateway())

	require.NoError(t, e.recover(ctx))
	assert.Empty(t, e.duels.ListOpenDuels(ctx))
	assert.False(t, e.raffle.GetCurrentRaffleStatus(ctx, 1).Active)
	assert.Equal(t, int64(1000), e.ledger.GetBalance(ctx, 1))
}

func TestRecover_BalanceLoadFailure(t *testing.T) {
	ctx := context.Background()
	gateway := new(testhelpers.MockPersistenceGateway)
	gateway.On("LoadBalances", mock.Anything).Return(nil, errors.New("connection refused"))

	e := newEngine(testhelpers.NewMemoryGateway())
	err := application.Recover(ctx, gateway, e.ledger, e.duels, e.raffle)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load balances")
	gateway.AssertExpectations(t)
}
