package infrastructure

import (
	"context"
	"fmt"

	"dicebank/domain/interfaces"
)

// AsyncNotifier hands notifications to the dispatcher so callers never wait on chat I/O.
// Messages to one user keep their order.
type AsyncNotifier struct {
	next       interfaces.Notifier
	dispatcher *Dispatcher
}

// NewAsyncNotifier wraps next
func NewAsyncNotifier(next interfaces.Notifier, dispatcher *Dispatcher) *AsyncNotifier {
	return &AsyncNotifier{next: next, dispatcher: dispatcher}
}

func (n *AsyncNotifier) Notify(ctx context.Context, userID int64, message string) error {
	return n.dispatcher.Enqueue(fmt.Sprintf("notify:%d", userID), func(ctx context.Context) error {
		return n.next.Notify(ctx, userID, message)
	})
}
