package application

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// TimerScheduler runs raffle draw jobs on wall-clock timers, one per round
type TimerScheduler struct {
	mu      sync.Mutex
	timers  map[int64]*time.Timer
	stopped bool
}

// NewTimerScheduler creates an empty scheduler
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{timers: make(map[int64]*time.Timer)}
}

// Schedule arms job for roundID after delay. It returns false if the round already
// has a pending job or the scheduler was stopped.
func (s *TimerScheduler) Schedule(roundID int64, delay time.Duration, job func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}
	if _, pending := s.timers[roundID]; pending {
		return false
	}
	if delay < 0 {
		delay = 0
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		// A Cancel followed by a new Schedule may have replaced this timer
		if s.timers[roundID] != timer {
			s.mu.Unlock()
			return
		}
		delete(s.timers, roundID)
		s.mu.Unlock()

		defer func() {
			if r := recover(); r != nil {
				log.WithFields(log.Fields{
					"round_id": roundID,
					"panic":    r,
				}).Error("Raffle draw job panicked")
			}
		}()
		job()
	})
	s.timers[roundID] = timer

	log.WithFields(log.Fields{
		"round_id": roundID,
		"delay":    delay,
	}).Debug("Raffle draw scheduled")
	return true
}

// Cancel stops the pending job for roundID. It returns false if none was pending.
func (s *TimerScheduler) Cancel(roundID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer, pending := s.timers[roundID]
	if !pending {
		return false
	}
	timer.Stop()
	delete(s.timers, roundID)
	return true
}

// PendingCount returns the number of armed timers
func (s *TimerScheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every pending job and rejects new ones. Jobs already running are
// not interrupted.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for roundID, timer := range s.timers {
		timer.Stop()
		delete(s.timers, roundID)
	}
	log.Info("Raffle draw scheduler stopped")
}
