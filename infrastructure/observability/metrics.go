package observability

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"dicebank/config"
	"dicebank/domain/events"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

// MetricsProvider manages OpenTelemetry metrics for the game engine
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	duelsCounter          metric.Int64Counter
	duelsActiveGauge      metric.Int64UpDownCounter
	raffleBetsCounter     metric.Int64Counter
	raffleDrawsCounter    metric.Int64Counter
	balanceTxCounter      metric.Int64Counter
	commissionCounter     metric.Int64Counter
	natsPublishedCounter  metric.Int64Counter
	writeBehindCounter    metric.Int64Counter
	writeBehindDurationHs metric.Float64Histogram
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the exporter selected by OTEL_EXPORTER_TYPE
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
			),
		),
	)
	otel.SetMeterProvider(mp.meterProvider)

	if err := mp.initInstruments(mp.meterProvider.Meter(MetricPrefix)); err != nil {
		return err
	}

	mp.initialized = true
	log.Info("Metrics provider initialized")
	return nil
}

// initInstruments creates every instrument on meter
func (mp *MetricsProvider) initInstruments(meter metric.Meter) error {
	var err error
	mp.meter = meter

	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&mp.duelsCounter, DuelsTotal, "Duels by lifecycle outcome"},
		{&mp.raffleBetsCounter, RaffleBetsTotal, "Raffle entries placed"},
		{&mp.raffleDrawsCounter, RaffleDrawsTotal, "Raffle rounds settled"},
		{&mp.balanceTxCounter, BalanceTransactionsTotal, "Ledger balance changes"},
		{&mp.commissionCounter, CommissionCollectedTotal, "Commission credited to the house"},
		{&mp.natsPublishedCounter, NATSMessagesPublishedTotal, "Events published to NATS"},
		{&mp.writeBehindCounter, WriteBehindTasksTotal, "Write-behind tasks by outcome"},
	}
	for _, c := range counters {
		*c.target, err = meter.Int64Counter(c.name, metric.WithDescription(c.description), metric.WithUnit("1"))
		if err != nil {
			return fmt.Errorf("failed to create counter %s: %w", c.name, err)
		}
	}

	mp.duelsActiveGauge, err = meter.Int64UpDownCounter(
		DuelsActive,
		metric.WithDescription("Duels currently open or joined"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create active duels gauge: %w", err)
	}

	mp.writeBehindDurationHs, err = meter.Float64Histogram(
		WriteBehindTaskDuration,
		metric.WithDescription("Duration of write-behind tasks in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create write-behind duration histogram: %w", err)
	}
	return nil
}

// Shutdown flushes and stops the meter provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// HandleEvent records domain events. It is subscribed to the event bus.
func (mp *MetricsProvider) HandleEvent(ctx context.Context, event events.Event) {
	if !mp.isEnabled() {
		return
	}

	switch e := event.(type) {
	case events.DuelCreatedEvent:
		mp.duelsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String(LabelOutcome, DuelOutcomeCreated)))
		mp.duelsActiveGauge.Add(ctx, 1)
	case events.DuelCancelledEvent:
		mp.duelsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String(LabelOutcome, DuelOutcomeCancelled)))
		mp.duelsActiveGauge.Add(ctx, -1)
	case events.DuelResolvedEvent:
		mp.duelsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String(LabelOutcome, DuelOutcomeResolved)))
		mp.duelsActiveGauge.Add(ctx, -1)
		mp.commissionCounter.Add(ctx, e.Commission, metric.WithAttributes(attribute.String(LabelType, "duel")))
	case events.RaffleBetPlacedEvent:
		mp.raffleBetsCounter.Add(ctx, 1)
	case events.RaffleDrawnEvent:
		outcome := DrawOutcomeWon
		if e.Refunded {
			outcome = DrawOutcomeRefunded
		}
		mp.raffleDrawsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String(LabelOutcome, outcome)))
		mp.commissionCounter.Add(ctx, e.Commission, metric.WithAttributes(attribute.String(LabelType, "raffle")))
	case events.BalanceChangeEvent:
		mp.balanceTxCounter.Add(ctx, 1, metric.WithAttributes(attribute.String(LabelType, string(e.TransactionType))))
	}
}

// RecordNATSPublished counts an event published to NATS
func (mp *MetricsProvider) RecordNATSPublished(eventType string) {
	if !mp.isEnabled() {
		return
	}
	mp.natsPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelEventType, eventType)),
	)
}

// RecordWriteBehindTask counts a write-behind task outcome. kind is the key
// prefix, e.g. "duel" for "duel:42".
func (mp *MetricsProvider) RecordWriteBehindTask(key, outcome string, duration time.Duration) {
	if !mp.isEnabled() {
		return
	}

	kind, _, _ := strings.Cut(key, ":")
	attrs := metric.WithAttributes(
		attribute.String(LabelKind, kind),
		attribute.String(LabelOutcome, outcome),
	)
	mp.writeBehindCounter.Add(context.Background(), 1, attrs)
	if duration > 0 {
		mp.writeBehindDurationHs.Record(context.Background(), duration.Seconds(), attrs)
	}
}

// isEnabled reports whether instruments exist to record into
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.meter != nil
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider. It is nil before initialization
// and every Record method is safe to call on nil.
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	if globalMetrics != nil {
		return globalMetrics.Shutdown(ctx)
	}
	return nil
}
