package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dicebank/domain/events"
	"dicebank/infrastructure/observability"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// eventSource identifies this service in event envelopes
const eventSource = "dicebank"

// EventEnvelope wraps every event published to NATS
type EventEnvelope struct {
	EventID       string                 `json:"event_id"`
	EventType     string                 `json:"event_type"`
	Timestamp     *timestamppb.Timestamp `json:"timestamp"`
	SourceService string                 `json:"source_service"`
	Payload       json.RawMessage        `json:"payload"`
}

// messagePublisher is the part of NATSClient the publisher needs
type messagePublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// NATSEventPublisher forwards domain events to NATS
type NATSEventPublisher struct {
	client        messagePublisher
	subjectMapper *EventSubjectMapper
	metrics       *observability.MetricsProvider
	timeout       time.Duration
}

// NewNATSEventPublisher creates a new NATS event publisher
func NewNATSEventPublisher(client messagePublisher, subjectMapper *EventSubjectMapper, metrics *observability.MetricsProvider) *NATSEventPublisher {
	return &NATSEventPublisher{
		client:        client,
		subjectMapper: subjectMapper,
		metrics:       metrics,
		timeout:       5 * time.Second,
	}
}

// Publish wraps event in an envelope and publishes it on the event's subject
func (p *NATSEventPublisher) Publish(ctx context.Context, event events.Event) error {
	subject := p.subjectMapper.MapEventToSubject(event)

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     string(event.Type()),
		Timestamp:     timestamppb.Now(),
		SourceService: eventSource,
		Payload:       payload,
	}

	envelopeData, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.client.Publish(ctx, subject, envelopeData); err != nil {
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}
	p.metrics.RecordNATSPublished(string(event.Type()))

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Published event to NATS")
	return nil
}

// HandleEvent is the bus handler form of Publish. Failures are logged, never returned.
func (p *NATSEventPublisher) HandleEvent(ctx context.Context, event events.Event) {
	if err := p.Publish(ctx, event); err != nil {
		log.WithError(err).WithField("eventType", event.Type()).Error("Failed to forward event to NATS")
	}
}

// EnsureDomainEventStream creates the domain_events stream if needed
func EnsureDomainEventStream(client *NATSClient, mapper *EventSubjectMapper) error {
	return client.ensureStream("domain_events", mapper.GetAllSubjects())
}
