package scheduler

import "time"

// Manual is a Scheduler driven explicitly by the caller. It is meant for
// tests and for hosts that already own an event loop.
type Manual struct {
	queue []func()
}

// Schedule queues task.
func (m *Manual) Schedule(task func()) {
	m.queue = append(m.queue, task)
}

// Pending returns the number of queued tasks.
func (m *Manual) Pending() int {
	return len(m.queue)
}

// RunNext runs the oldest queued task. It reports false when the queue is
// empty.
func (m *Manual) RunNext() bool {
	if len(m.queue) == 0 {
		return false
	}
	task := m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]
	task()
	return true
}

// Drain runs tasks, including ones scheduled while draining, until the
// queue is empty or limit tasks have run. A non-positive limit means no
// limit. It returns the number of tasks run.
func (m *Manual) Drain(limit int) int {
	n := 0
	for limit <= 0 || n < limit {
		if !m.RunNext() {
			break
		}
		n++
	}
	return n
}

// FakeClock is a manually advanced Clock. When Step is non-zero every
// reading advances the clock by Step after returning.
type FakeClock struct {
	T    time.Duration
	Step time.Duration
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Duration {
	t := c.T
	c.T += c.Step
	return t
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.T += d
}
