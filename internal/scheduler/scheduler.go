// Package scheduler provides the cooperative scheduling primitives the
// search engines run on: a deferred-execution port and a monotonic clock.
// Engines are not safe for concurrent use; every call into an engine must
// happen on the goroutine that drains its Scheduler.
package scheduler

import "time"

// Scheduler defers a task to the host's run loop. Tasks posted to one
// Scheduler run one at a time in FIFO order.
type Scheduler interface {
	Schedule(task func())
}

// Clock is a monotonic clock. Only differences between readings matter.
type Clock interface {
	Now() time.Duration
}

// SystemClock reads the runtime's monotonic clock.
type SystemClock struct {
	start time.Time
}

// NewSystemClock returns a clock whose zero is the moment of creation.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// Now returns the time elapsed since the clock was created.
func (c *SystemClock) Now() time.Duration {
	return time.Since(c.start)
}
