// Package session drives one client's edit of one document: lock lifecycle,
// heartbeats, dirty tracking and autosave.
package session

import "time"

// Task is a scheduled callback that can be cancelled
type Task interface {
	// Stop cancels the task, reporting false if it already ran or was stopped
	Stop() bool
}

// Timers schedules deferred callbacks. Production uses time.AfterFunc; tests
// inject a manual implementation.
type Timers interface {
	AfterFunc(d time.Duration, f func()) Task
}

type systemTimers struct{}

func (systemTimers) AfterFunc(d time.Duration, f func()) Task {
	return time.AfterFunc(d, f)
}

// SystemTimers schedules on the runtime timer heap
var SystemTimers Timers = systemTimers{}
