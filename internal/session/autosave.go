package session

import (
	"sync"
	"time"
)

// AutoSaveScheduler holds at most one pending deferred save. Every Schedule
// or Cancel bumps the generation, so a callback that already left the timer
// heap but lost the race to a newer schedule does nothing.
type AutoSaveScheduler struct {
	mu         sync.Mutex
	timers     Timers
	delay      time.Duration
	fire       func()
	task       Task
	generation uint64
}

// NewAutoSaveScheduler creates a scheduler that runs fire delay after the
// most recent Schedule
func NewAutoSaveScheduler(timers Timers, delay time.Duration, fire func()) *AutoSaveScheduler {
	return &AutoSaveScheduler{timers: timers, delay: delay, fire: fire}
}

// Schedule replaces any pending save with one due after the delay
func (a *AutoSaveScheduler) Schedule() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopLocked()
	gen := a.generation
	a.task = a.timers.AfterFunc(a.delay, func() {
		a.mu.Lock()
		if gen != a.generation {
			a.mu.Unlock()
			return
		}
		a.task = nil
		a.generation++
		a.mu.Unlock()

		a.fire()
	})
}

// Cancel drops the pending save, if any
func (a *AutoSaveScheduler) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

// Pending reports whether a save is scheduled
func (a *AutoSaveScheduler) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.task != nil
}

func (a *AutoSaveScheduler) stopLocked() {
	a.generation++
	if a.task != nil {
		a.task.Stop()
		a.task = nil
	}
}
