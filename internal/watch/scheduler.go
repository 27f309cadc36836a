package watch

import "time"

// Scheduler runs a task once after a delay. The watcher asks its scheduler
// for the next tick at the end of every tick, so ticks never overlap no
// matter how the scheduler is implemented.
//
// The host application can supply its own scheduler to fold dbtail ticks
// into an existing periodic-task framework; TimerScheduler is the default.
type Scheduler interface {
	// Schedule arranges for task to run once after delay and returns a
	// cancel function. Cancelling after the task started is a no-op.
	Schedule(delay time.Duration, task func()) (cancel func())
}

// TimerScheduler schedules tasks on the Go runtime timer heap.
type TimerScheduler struct{}

// Schedule implements Scheduler using time.AfterFunc.
func (TimerScheduler) Schedule(delay time.Duration, task func()) func() {
	t := time.AfterFunc(delay, task)
	return func() { t.Stop() }
}
