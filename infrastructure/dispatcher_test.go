package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startDispatcher(t *testing.T, config DispatcherConfig) *Dispatcher {
	t.Helper()
	d := NewDispatcher(config, nil)
	d.Start(context.Background())
	return d
}

func closeDispatcher(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
}

func TestDispatcher_PreservesOrderPerKey(t *testing.T) {
	t.Parallel()

	d := startDispatcher(t, DispatcherConfig{Workers: 4, QueueSize: 1000, MaxAttempts: 1})

	var mu sync.Mutex
	seen := make(map[string][]int)

	for i := 0; i < 200; i++ {
		for _, key := range []string{"duel:1", "duel:2", "balance:7"} {
			i, key := i, key
			require.NoError(t, d.Enqueue(key, func(ctx context.Context) error {
				mu.Lock()
				seen[key] = append(seen[key], i)
				mu.Unlock()
				return nil
			}))
		}
	}
	closeDispatcher(t, d)

	for key, order := range seen {
		require.Len(t, order, 200, key)
		for i, v := range order {
			assert.Equal(t, i, v, "task %d for %s ran out of order", i, key)
		}
	}
}

func TestDispatcher_RetriesFailedTasks(t *testing.T) {
	t.Parallel()

	d := startDispatcher(t, DispatcherConfig{Workers: 1, QueueSize: 10, MaxAttempts: 3, RetryBackoff: time.Millisecond})

	var attempts atomic.Int32
	require.NoError(t, d.Enqueue("duel:1", func(ctx context.Context) error {
		if attempts.Add(1) < 3 {
			return errors.New("connection reset")
		}
		return nil
	}))

	var gaveUp atomic.Int32
	require.NoError(t, d.Enqueue("duel:2", func(ctx context.Context) error {
		gaveUp.Add(1)
		return errors.New("permanent")
	}))

	var after atomic.Bool
	require.NoError(t, d.Enqueue("duel:3", func(ctx context.Context) error {
		after.Store(true)
		return nil
	}))

	closeDispatcher(t, d)

	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, int32(3), gaveUp.Load())
	assert.True(t, after.Load(), "a failing task must not block the shard")
}

func TestDispatcher_RecoversPanics(t *testing.T) {
	t.Parallel()

	d := startDispatcher(t, DispatcherConfig{Workers: 1, QueueSize: 10, MaxAttempts: 1})

	var ran atomic.Bool
	require.NoError(t, d.Enqueue("a", func(ctx context.Context) error { panic("boom") }))
	require.NoError(t, d.Enqueue("a", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	}))
	closeDispatcher(t, d)

	assert.True(t, ran.Load())
}

func TestDispatcher_QueueFull(t *testing.T) {
	t.Parallel()

	d := startDispatcher(t, DispatcherConfig{Workers: 1, QueueSize: 1, MaxAttempts: 1})

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, d.Enqueue("k", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started

	require.NoError(t, d.Enqueue("k", func(ctx context.Context) error { return nil }))
	err := d.Enqueue("k", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrQueueFull)

	close(release)
	closeDispatcher(t, d)
}

func TestDispatcher_RejectsAfterClose(t *testing.T) {
	t.Parallel()

	d := startDispatcher(t, DispatcherConfig{Workers: 2, QueueSize: 4, MaxAttempts: 1})
	closeDispatcher(t, d)

	err := d.Enqueue("duel:1", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrDispatcherClosed)

	// Closing twice is harmless
	closeDispatcher(t, d)
}

func TestDispatcher_CloseTimesOut(t *testing.T) {
	t.Parallel()

	d := startDispatcher(t, DispatcherConfig{Workers: 1, QueueSize: 1, MaxAttempts: 1})
	release := make(chan struct{})
	require.NoError(t, d.Enqueue("slow", func(ctx context.Context) error {
		<-release
		return nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := d.Close(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	closeDispatcher(t, d)
}

func TestDispatcher_ShardIsStable(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(DispatcherConfig{Workers: 8, QueueSize: 1}, nil)
	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("raffle:%d", i)
		assert.Equal(t, d.shardFor(key), d.shardFor(key))
	}
}
