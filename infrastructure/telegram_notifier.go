package infrastructure

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// telegramSender is the part of *tgbotapi.BotAPI the notifier uses
type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier delivers notifications as private Telegram messages.
// User ids are Telegram chat ids.
type TelegramNotifier struct {
	bot telegramSender
}

// NewTelegramNotifier authenticates with token
func NewTelegramNotifier(token string) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.WithField("bot", bot.Self.UserName).Info("Telegram notifier authorized")
	return &TelegramNotifier{bot: bot}, nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, userID int64, message string) error {
	msg := tgbotapi.NewMessage(userID, message)
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message to %d: %w", userID, err)
	}
	return nil
}
