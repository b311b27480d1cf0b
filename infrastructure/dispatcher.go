package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"dicebank/infrastructure/observability"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrDispatcherClosed is returned by Enqueue after Close
var ErrDispatcherClosed = errors.New("dispatcher closed")

// ErrQueueFull is returned by Enqueue when the key's shard has no room
var ErrQueueFull = errors.New("dispatcher queue full")

// Task is one unit of background work
type Task func(ctx context.Context) error

// DispatcherConfig sizes the worker pool
type DispatcherConfig struct {
	Workers      int
	QueueSize    int // per worker
	MaxAttempts  int
	RetryBackoff time.Duration
}

type queuedTask struct {
	key  string
	task Task
}

// Dispatcher runs background tasks on a fixed set of workers. Tasks sharing a
// key always land on the same worker, so they run in the order they were enqueued.
type Dispatcher struct {
	config  DispatcherConfig
	shards  []chan queuedTask
	metrics *observability.MetricsProvider

	mu     sync.RWMutex // guards closed against sends on closed channels
	closed bool
	done   chan struct{}
	err    error
}

// NewDispatcher creates a dispatcher. Call Start before enqueueing.
func NewDispatcher(config DispatcherConfig, metrics *observability.MetricsProvider) *Dispatcher {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 1
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}

	shards := make([]chan queuedTask, config.Workers)
	for i := range shards {
		shards[i] = make(chan queuedTask, config.QueueSize)
	}

	return &Dispatcher{
		config:  config,
		shards:  shards,
		metrics: metrics,
		done:    make(chan struct{}),
	}
}

// Start launches the workers. Workers drain their queues after Close and then exit;
// ctx only bounds individual task attempts.
func (d *Dispatcher) Start(ctx context.Context) {
	group := &errgroup.Group{}
	for i, shard := range d.shards {
		group.Go(func() error {
			d.work(ctx, i, shard)
			return nil
		})
	}

	log.WithFields(log.Fields{
		"workers":    d.config.Workers,
		"queue_size": d.config.QueueSize,
	}).Info("Write-behind dispatcher started")

	go func() {
		d.err = group.Wait()
		close(d.done)
	}()
}

// Enqueue schedules task under key without blocking. Tasks with the same key run
// sequentially in enqueue order.
func (d *Dispatcher) Enqueue(key string, task Task) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return fmt.Errorf("%w: %s", ErrDispatcherClosed, key)
	}

	select {
	case d.shards[d.shardFor(key)] <- queuedTask{key: key, task: task}:
		return nil
	default:
		d.metrics.RecordWriteBehindTask(key, observability.TaskOutcomeDropped, 0)
		log.WithField("key", key).Error("Write-behind queue full, task dropped")
		return fmt.Errorf("%w: %s", ErrQueueFull, key)
	}
}

// Close stops accepting tasks and waits for queued ones to finish or ctx to expire
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, shard := range d.shards {
			close(shard)
		}
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		log.Info("Write-behind dispatcher drained")
		return d.err
	case <-ctx.Done():
		return fmt.Errorf("dispatcher did not drain: %w", ctx.Err())
	}
}

func (d *Dispatcher) shardFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.shards)))
}

func (d *Dispatcher) work(ctx context.Context, worker int, queue <-chan queuedTask) {
	for qt := range queue {
		d.run(ctx, worker, qt)
	}
}

// run executes one task with retries. A task that keeps failing is logged and
// dropped so later tasks on the shard are not held up forever.
func (d *Dispatcher) run(ctx context.Context, worker int, qt queuedTask) {
	start := time.Now()
	var err error

	for attempt := 1; attempt <= d.config.MaxAttempts; attempt++ {
		if err = d.attempt(ctx, qt); err == nil {
			d.metrics.RecordWriteBehindTask(qt.key, observability.TaskOutcomeOK, time.Since(start))
			return
		}

		if attempt < d.config.MaxAttempts {
			d.metrics.RecordWriteBehindTask(qt.key, observability.TaskOutcomeRetried, 0)
			log.WithError(err).WithFields(log.Fields{
				"key":     qt.key,
				"worker":  worker,
				"attempt": attempt,
			}).Warn("Write-behind task failed, retrying")
			time.Sleep(d.config.RetryBackoff * time.Duration(attempt))
		}
	}

	d.metrics.RecordWriteBehindTask(qt.key, observability.TaskOutcomeFailed, time.Since(start))
	log.WithError(err).WithFields(log.Fields{
		"key":      qt.key,
		"worker":   worker,
		"attempts": d.config.MaxAttempts,
	}).Error("Write-behind task failed permanently")
}

// attempt runs the task once, turning a panic into an error
func (d *Dispatcher) attempt(ctx context.Context, qt queuedTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return qt.task(ctx)
}
