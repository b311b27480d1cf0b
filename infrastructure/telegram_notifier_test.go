package infrastructure

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTelegramSender struct {
	mock.Mock
}

func (m *mockTelegramSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return tgbotapi.Message{}, args.Error(0)
}

func TestTelegramNotifier_Notify(t *testing.T) {
	t.Parallel()

	sender := new(mockTelegramSender)
	sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		msg, ok := c.(tgbotapi.MessageConfig)
		return ok && msg.ChatID == 555 && msg.Text == "You won 198"
	})).Return(nil).Once()
	sender.On("Send", mock.Anything).Return(errors.New("bot was blocked by the user")).Once()

	notifier := &TelegramNotifier{bot: sender}

	require.NoError(t, notifier.Notify(context.Background(), 555, "You won 198"))
	assert.Error(t, notifier.Notify(context.Background(), 556, "hello"))
	sender.AssertExpectations(t)
}

func TestAsyncNotifier_DeliversInOrder(t *testing.T) {
	t.Parallel()

	sender := new(mockTelegramSender)
	var texts []string
	sender.On("Send", mock.Anything).Run(func(args mock.Arguments) {
		texts = append(texts, args.Get(0).(tgbotapi.MessageConfig).Text)
	}).Return(nil)

	dispatcher := startDispatcher(t, DispatcherConfig{Workers: 2, QueueSize: 10, MaxAttempts: 1})
	notifier := NewAsyncNotifier(&TelegramNotifier{bot: sender}, dispatcher)

	for _, text := range []string{"first", "second", "third"} {
		require.NoError(t, notifier.Notify(context.Background(), 9, text))
	}
	closeDispatcher(t, dispatcher)

	assert.Equal(t, []string{"first", "second", "third"}, texts)
}
