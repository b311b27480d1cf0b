package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"dicebank/domain/entities"
	"dicebank/domain/events"

	"github.com/stretchr/testify/assert"
)

type recordingInvalidator struct {
	mu   sync.Mutex
	days []int
}

func (r *recordingInvalidator) InvalidateRatingWindow(ctx context.Context, days int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.days = append(r.days, days)
	return nil
}

type capturedHooks struct {
	fns []func(ctx context.Context, duel *entities.Duel)
}

func (h *capturedHooks) OnDuelSaved(fn func(ctx context.Context, duel *entities.Duel)) {
	h.fns = append(h.fns, fn)
}

func (h *capturedHooks) saved(duel *entities.Duel) {
	for _, fn := range h.fns {
		fn(context.Background(), duel)
	}
}

func TestRegisterRatingInvalidation(t *testing.T) {
	t.Parallel()

	hooks := &capturedHooks{}
	cache := &recordingInvalidator{}
	RegisterRatingInvalidation(hooks, cache, 30)

	now := time.Now().UTC()
	duel := entities.NewDuel(1, 10, 100, now)
	hooks.saved(duel.Clone())
	duel.Join(20)
	hooks.saved(duel.Clone())
	assert.Empty(t, cache.days, "only resolved duels change the rating")

	duel.Resolve(6, 1, now)
	hooks.saved(duel.Clone())
	assert.Equal(t, []int{30}, cache.days)
}

func TestRegisterAll(t *testing.T) {
	t.Parallel()

	bus := events.NewBus()
	var mu sync.Mutex
	counts := make(map[string]int)
	handler := func(name string) events.Handler {
		return func(ctx context.Context, event events.Event) {
			mu.Lock()
			counts[name]++
			mu.Unlock()
		}
	}

	RegisterAll(bus, handler("metrics"), handler("nats"))
	bus.Publish(events.RaffleDrawnEvent{RoundID: 1})
	bus.Publish(events.BalanceChangeEvent{UserID: 1})
	bus.Wait()

	assert.Equal(t, map[string]int{"metrics": 2, "nats": 2}, counts)
}
