package infrastructure

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// DiscordNotifier delivers notifications as Discord direct messages.
// User ids are Discord snowflakes.
type DiscordNotifier struct {
	session *discordgo.Session
}

// NewDiscordNotifier opens a bot session with token
func NewDiscordNotifier(token string) (*DiscordNotifier, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("failed to open discord session: %w", err)
	}

	log.Info("Discord notifier connected")
	return &DiscordNotifier{session: session}, nil
}

func (n *DiscordNotifier) Notify(ctx context.Context, userID int64, message string) error {
	channel, err := n.session.UserChannelCreate(strconv.FormatInt(userID, 10))
	if err != nil {
		return fmt.Errorf("failed to open DM channel with %d: %w", userID, err)
	}
	if _, err := n.session.ChannelMessageSend(channel.ID, message); err != nil {
		return fmt.Errorf("failed to send DM to %d: %w", userID, err)
	}
	return nil
}

// Close closes the gateway session
func (n *DiscordNotifier) Close() error {
	return n.session.Close()
}
