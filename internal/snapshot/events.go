package snapshot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/symbolsearch"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/logger"
)

// RebuiltEvent announces that a snapshot was (re)imported.
type RebuiltEvent struct {
	Project  string `json:"project"`
	Revision string `json:"revision"`
	Default  bool   `json:"default"`
}

// Info returns the identity of the rebuilt snapshot.
func (e RebuiltEvent) Info() *symbolsearch.ProjectInfo {
	return &symbolsearch.ProjectInfo{Name: e.Project, Revision: e.Revision}
}

// Affects reports whether an engine searching project must reload. The
// default snapshot (nil) is affected by every event flagged default.
func (e RebuiltEvent) Affects(project *symbolsearch.ProjectInfo) bool {
	if project == nil {
		return e.Default
	}
	return symbolsearch.SameProject(project, e.Info())
}

// Publisher writes events to the snapshot topic.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Announcer publishes RebuiltEvents keyed by project, so events of one
// project stay ordered.
type Announcer struct {
	pub    Publisher
	logger *slog.Logger
}

// NewAnnouncer creates an Announcer on pub.
func NewAnnouncer(pub Publisher) *Announcer {
	return &Announcer{
		pub:    pub,
		logger: logger.WithComponent("snapshot-announcer"),
	}
}

// Announce publishes ev.
func (a *Announcer) Announce(ctx context.Context, ev RebuiltEvent) error {
	if err := a.pub.Publish(ctx, kafka.Event{Key: ev.Project, Value: ev}); err != nil {
		return fmt.Errorf("announcing %s: %w", ev.Info(), err)
	}
	a.logger.Info("snapshot rebuild announced", "project", ev.Info().String(), "default", ev.Default)
	return nil
}

// Invalidator drops cached data of a project.
type Invalidator interface {
	Invalidate(ctx context.Context, project *symbolsearch.ProjectInfo) error
}

// Runner executes a function on the engines' goroutine and waits for it.
type Runner interface {
	Do(ctx context.Context, fn func()) error
}

// EventObserver counts consumed events by outcome.
type EventObserver interface {
	ObserveSnapshotEvent(action string)
}

type nopEventObserver struct{}

func (nopEventObserver) ObserveSnapshotEvent(string) {}

// Listener consumes RebuiltEvents: it invalidates the cache, then runs the
// registered hooks on the engines' goroutine.
type Listener struct {
	runner   Runner
	cache    Invalidator
	hooks    []func(RebuiltEvent)
	observer EventObserver
	logger   *slog.Logger
}

// NewListener creates a Listener. cache and observer may be nil.
func NewListener(runner Runner, cache Invalidator, observer EventObserver) *Listener {
	if observer == nil {
		observer = nopEventObserver{}
	}
	return &Listener{
		runner:   runner,
		cache:    cache,
		observer: observer,
		logger:   logger.WithComponent("snapshot-listener"),
	}
}

// OnRebuilt registers fn. Hooks must be registered before consuming starts
// and run on the runner, which may be nil while no hook is registered.
func (l *Listener) OnRebuilt(fn func(RebuiltEvent)) {
	l.hooks = append(l.hooks, fn)
}

// Handle implements kafka.MessageHandler. Undecodable events are dropped;
// a failed invalidation is returned so the message is not committed.
func (l *Listener) Handle(ctx context.Context, key []byte, value []byte) error {
	ev, err := kafka.DecodeJSON[RebuiltEvent](value)
	if err != nil || ev.Project == "" {
		l.logger.Error("dropping malformed snapshot event", "key", string(key), "error", err)
		l.observer.ObserveSnapshotEvent("invalid")
		return nil
	}
	if l.cache != nil {
		if err := l.cache.Invalidate(ctx, ev.Info()); err != nil {
			l.observer.ObserveSnapshotEvent("failed")
			return err
		}
		if ev.Default {
			if err := l.cache.Invalidate(ctx, nil); err != nil {
				l.observer.ObserveSnapshotEvent("failed")
				return err
			}
		}
	}
	if len(l.hooks) > 0 {
		if err := l.runner.Do(ctx, func() {
			for _, hook := range l.hooks {
				hook(ev)
			}
		}); err != nil {
			l.observer.ObserveSnapshotEvent("failed")
			return fmt.Errorf("applying snapshot event: %w", err)
		}
	}
	l.observer.ObserveSnapshotEvent("reloaded")
	l.logger.Info("snapshot event applied", "project", ev.Info().String(), "default", ev.Default)
	return nil
}
