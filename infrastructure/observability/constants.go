package observability

// Metric name prefixes
const (
	MetricPrefix = "dicebank"
)

// Metric names
const (
	// Duel metrics
	DuelsTotal  = MetricPrefix + ".duels.total"
	DuelsActive = MetricPrefix + ".duels.active"

	// Raffle metrics
	RaffleBetsTotal  = MetricPrefix + ".raffle.bets_total"
	RaffleDrawsTotal = MetricPrefix + ".raffle.draws_total"

	// Ledger metrics
	BalanceTransactionsTotal = MetricPrefix + ".balance.transactions_total"
	CommissionCollectedTotal = MetricPrefix + ".commission.collected_total"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"

	// Write-behind metrics
	WriteBehindTasksTotal   = MetricPrefix + ".writebehind.tasks_total"
	WriteBehindTaskDuration = MetricPrefix + ".writebehind.task_duration"
)

// Label keys
const (
	LabelType      = "type"
	LabelOutcome   = "outcome"
	LabelEventType = "event_type"
	LabelKind      = "kind"
)

// Duel outcomes
const (
	DuelOutcomeCreated   = "created"
	DuelOutcomeResolved  = "resolved"
	DuelOutcomeCancelled = "cancelled"
)

// Raffle draw outcomes
const (
	DrawOutcomeWon      = "won"
	DrawOutcomeRefunded = "refunded"
)

// Write-behind task outcomes
const (
	TaskOutcomeOK      = "ok"
	TaskOutcomeRetried = "retried"
	TaskOutcomeFailed  = "failed"
	TaskOutcomeDropped = "dropped"
)
