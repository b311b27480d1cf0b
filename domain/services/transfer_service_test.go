package services

import (
	"context"
	"testing"

	"dicebank/domain/events"
	"dicebank/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferService_Transfer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gw := testhelpers.NewMemoryGateway()
	pub := &testhelpers.RecordingPublisher{}
	notifier := testhelpers.NewRecordingNotifier()
	ledger := NewLedger(1000, gw, pub)
	service := NewTransferService(ledger, gw, notifier, pub)

	transfer, err := service.Transfer(ctx, 1, 2, 300)
	require.NoError(t, err)
	assert.Equal(t, int64(300), transfer.Amount)

	assert.Equal(t, int64(700), ledger.GetBalance(ctx, 1))
	assert.Equal(t, int64(1300), ledger.GetBalance(ctx, 2))
	require.Len(t, gw.Transfers, 1)
	assert.Len(t, notifier.For(2), 1)
	assert.Len(t, pub.OfType(events.EventTypeTransferMade), 1)
}

func TestTransferService_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		from    int64
		to      int64
		amount  int64
		wantErr error
	}{
		{name: "zero amount", from: 1, to: 2, amount: 0, wantErr: ErrInvalidInput},
		{name: "negative amount", from: 1, to: 2, amount: -5, wantErr: ErrInvalidInput},
		{name: "to self", from: 1, to: 1, amount: 5, wantErr: ErrInvalidInput},
		{name: "over balance", from: 1, to: 2, amount: 1001, wantErr: ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			gw := testhelpers.NewMemoryGateway()
			ledger := NewLedger(1000, gw, nil)
			service := NewTransferService(ledger, gw, nil, nil)

			_, err := service.Transfer(ctx, tt.from, tt.to, tt.amount)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, int64(1000), ledger.GetBalance(ctx, tt.from))
			assert.Equal(t, int64(1000), ledger.GetBalance(ctx, tt.to))
			assert.Empty(t, gw.Transfers)
		})
	}
}
