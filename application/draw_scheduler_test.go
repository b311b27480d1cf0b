package application

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerScheduler_RunsJobOnce(t *testing.T) {
	t.Parallel()

	scheduler := NewTimerScheduler()
	fired := make(chan struct{}, 2)

	require.True(t, scheduler.Schedule(1, 10*time.Millisecond, func() { fired <- struct{}{} }))
	assert.False(t, scheduler.Schedule(1, time.Millisecond, func() { fired <- struct{}{} }),
		"a pending round must not be re-armed")

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("draw job never ran")
	}

	assert.Eventually(t, func() bool { return scheduler.PendingCount() == 0 }, time.Second, 5*time.Millisecond)
	select {
	case <-fired:
		t.Fatal("draw job ran twice")
	case <-time.After(30 * time.Millisecond):
	}
}

func TestTimerScheduler_RescheduleFromJob(t *testing.T) {
	t.Parallel()

	scheduler := NewTimerScheduler()
	var runs atomic.Int32
	done := make(chan struct{})

	var job func()
	job = func() {
		if runs.Add(1) == 1 {
			// A failed draw re-arms itself under the same round id
			assert.True(t, scheduler.Schedule(7, time.Millisecond, job))
			return
		}
		close(done)
	}
	require.True(t, scheduler.Schedule(7, time.Millisecond, job))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("rescheduled job never ran")
	}
	assert.Equal(t, int32(2), runs.Load())
}

func TestTimerScheduler_Cancel(t *testing.T) {
	t.Parallel()

	scheduler := NewTimerScheduler()
	var ran atomic.Bool

	require.True(t, scheduler.Schedule(3, 20*time.Millisecond, func() { ran.Store(true) }))
	assert.True(t, scheduler.Cancel(3))
	assert.False(t, scheduler.Cancel(3))
	assert.Equal(t, 0, scheduler.PendingCount())

	time.Sleep(50 * time.Millisecond)
	assert.False(t, ran.Load())

	assert.True(t, scheduler.Schedule(3, time.Hour, func() {}), "a cancelled round can be armed again")
	scheduler.Stop()
}

func TestTimerScheduler_Stop(t *testing.T) {
	t.Parallel()

	scheduler := NewTimerScheduler()
	var ran atomic.Int32

	for id := int64(1); id <= 3; id++ {
		require.True(t, scheduler.Schedule(id, 20*time.Millisecond, func() { ran.Add(1) }))
	}
	scheduler.Stop()

	assert.Equal(t, 0, scheduler.PendingCount())
	assert.False(t, scheduler.Schedule(4, time.Millisecond, func() { ran.Add(1) }))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), ran.Load())
}

func TestTimerScheduler_JobPanicIsContained(t *testing.T) {
	t.Parallel()

	scheduler := NewTimerScheduler()
	require.True(t, scheduler.Schedule(9, time.Millisecond, func() { panic("draw exploded") }))

	assert.Eventually(t, func() bool { return scheduler.PendingCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.True(t, scheduler.Schedule(9, time.Hour, func() {}))
	scheduler.Stop()
}
