package repository

import (
	"context"
	"testing"
	"time"

	"dicebank/domain/entities"
	"dicebank/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	t.Parallel()

	testDB := testutil.SetupTestDatabase(t)
	repo := NewBalanceRepository(testDB.DB)
	ctx := context.Background()

	require.NoError(t, repo.SaveBalance(ctx, 1, 1000))
	require.NoError(t, repo.SaveBalance(ctx, 2, 500))
	require.NoError(t, repo.SaveBalance(ctx, 1, 900))

	balances, err := repo.LoadBalances(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int64{1: 900, 2: 500}, balances)
}

func TestTransferRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	t.Parallel()

	testDB := testutil.SetupTestDatabase(t)
	repo := NewTransferRepository(testDB.DB)
	ctx := context.Background()

	transfer := &entities.Transfer{FromID: 1, ToID: 2, Amount: 300, CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.SaveTransfer(ctx, transfer))
	assert.NotZero(t, transfer.ID)

	var count int
	err := testDB.DB.QueryRow(ctx, `SELECT COUNT(*) FROM transfers WHERE from_id = 1 AND to_id = 2 AND amount = 300`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
