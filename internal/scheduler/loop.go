package scheduler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/logger"
)

// Loop is a single goroutine run loop. Schedule is safe to call from any
// goroutine; tasks execute on the goroutine running Run.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	logger *slog.Logger
}

// NewLoop creates an idle Loop.
func NewLoop() *Loop {
	return &Loop{
		wake:   make(chan struct{}, 1),
		logger: logger.WithComponent("run-loop"),
	}
}

// Schedule appends task to the queue.
func (l *Loop) Schedule(task func()) {
	l.mu.Lock()
	l.queue = append(l.queue, task)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run drains the queue until ctx is cancelled. Tasks still queued at
// cancellation are dropped.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Debug("run loop started")
	for {
		task, ok := l.next()
		if ok {
			task()
			continue
		}
		select {
		case <-ctx.Done():
			l.logger.Debug("run loop stopped", "reason", ctx.Err())
			return nil
		case <-l.wake:
		}
	}
}

// Do runs fn on the loop and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Schedule(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	task := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return task, true
}
