package application

import (
	"context"

	"dicebank/domain/entities"
	"dicebank/domain/events"

	log "github.com/sirupsen/logrus"
)

// RegisterRatingInvalidation drops the cached rating once a resolved duel row is
// committed, so a read cannot re-cache the aggregate from before the write
func RegisterRatingInvalidation(hooks DuelSaveHooks, cache RatingInvalidator, windowDays int) {
	hooks.OnDuelSaved(func(ctx context.Context, duel *entities.Duel) {
		if duel.Status != entities.DuelStatusResolved {
			return
		}
		if err := cache.InvalidateRatingWindow(ctx, windowDays); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"duel_id":     duel.ID,
				"window_days": windowDays,
			}).Warn("Failed to invalidate rating cache")
		}
	})
}

// RegisterAll forwards every domain event to each handler, typically metrics and
// the NATS publisher
func RegisterAll(bus *events.Bus, handlers ...events.Handler) {
	for _, handler := range handlers {
		bus.SubscribeAll(handler)
	}
}
