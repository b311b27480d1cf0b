package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"dicebank/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockMessagePublisher struct {
	mock.Mock
}

func (m *mockMessagePublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

func TestNATSEventPublisher_Publish(t *testing.T) {
	t.Parallel()

	client := new(mockMessagePublisher)
	var published []byte
	client.On("Publish", mock.Anything, "duels.resolved", mock.Anything).
		Run(func(args mock.Arguments) { published = args.Get(2).([]byte) }).
		Return(nil)

	publisher := NewNATSEventPublisher(client, NewEventSubjectMapper(), nil)
	event := events.DuelResolvedEvent{DuelID: 7, WinnerID: 1, LoserID: 2, Stake: 100, Prize: 198, Commission: 2}

	require.NoError(t, publisher.Publish(context.Background(), event))
	client.AssertExpectations(t)

	var envelope EventEnvelope
	require.NoError(t, json.Unmarshal(published, &envelope))
	assert.NotEmpty(t, envelope.EventID)
	assert.Equal(t, string(events.EventTypeDuelResolved), envelope.EventType)
	assert.Equal(t, "dicebank", envelope.SourceService)
	assert.NotNil(t, envelope.Timestamp)

	var payload events.DuelResolvedEvent
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, event, payload)
}

func TestNATSEventPublisher_HandleEventSwallowsErrors(t *testing.T) {
	t.Parallel()

	client := new(mockMessagePublisher)
	client.On("Publish", mock.Anything, "raffle.drawn", mock.Anything).Return(errors.New("no responders"))

	publisher := NewNATSEventPublisher(client, NewEventSubjectMapper(), nil)
	assert.NotPanics(t, func() {
		publisher.HandleEvent(context.Background(), events.RaffleDrawnEvent{RoundID: 1})
	})
	client.AssertExpectations(t)
}

func TestEventSubjectMapper(t *testing.T) {
	t.Parallel()

	mapper := NewEventSubjectMapper()

	tests := []struct {
		event   events.Event
		subject string
	}{
		{events.BalanceChangeEvent{}, "users.balance_changed"},
		{events.TransferMadeEvent{}, "users.transfer_made"},
		{events.DuelCreatedEvent{}, "duels.created"},
		{events.DuelCancelledEvent{}, "duels.cancelled"},
		{events.DuelResolvedEvent{}, "duels.resolved"},
		{events.RaffleBetPlacedEvent{}, "raffle.bet_placed"},
		{events.RaffleArmedEvent{}, "raffle.armed"},
		{events.RaffleDrawnEvent{}, "raffle.drawn"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.subject, mapper.MapEventToSubject(tt.event))
		assert.Equal(t, tt.event.Type(), mapper.MapSubjectToEventType(tt.subject))
	}
}
