package infrastructure

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// LogNotifier writes notifications to the log. Used when no chat transport is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, userID int64, message string) error {
	log.WithFields(log.Fields{
		"user_id": userID,
		"message": message,
	}).Info("Notification")
	return nil
}
