package infrastructure

import (
	"fmt"

	"dicebank/domain/events"
)

// EventSubjectMapper maps domain events to NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

var eventSubjects = map[events.EventType]string{
	events.EventTypeBalanceChange:   "users.balance_changed",
	events.EventTypeTransferMade:    "users.transfer_made",
	events.EventTypeDuelCreated:     "duels.created",
	events.EventTypeDuelCancelled:   "duels.cancelled",
	events.EventTypeDuelResolved:    "duels.resolved",
	events.EventTypeRaffleBetPlaced: "raffle.bet_placed",
	events.EventTypeRaffleArmed:     "raffle.armed",
	events.EventTypeRaffleDrawn:     "raffle.drawn",
}

// MapEventToSubject converts a domain event to its NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	if subject, ok := eventSubjects[event.Type()]; ok {
		return subject
	}
	return fmt.Sprintf("unknown.%s", event.Type())
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	for eventType, s := range eventSubjects {
		if s == subject {
			return eventType
		}
	}
	return events.EventType(subject)
}

// GetAllSubjects returns the subject patterns this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{"users.>", "duels.>", "raffle.>"}
}
