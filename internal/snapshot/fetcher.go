package snapshot

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/scheduler"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/symbolsearch"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/tracing"
)

// FetchObserver is told about every completed load.
type FetchObserver interface {
	ObserveFetch(err error, elapsed time.Duration)
}

type nopFetchObserver struct{}

func (nopFetchObserver) ObserveFetch(error, time.Duration) {}

// AsyncFetcher loads from a Source on background goroutines and posts each
// result onto a Scheduler, so callbacks run on the engine's goroutine.
// Loads go through a shared circuit breaker, a per-attempt timeout and
// retry with backoff.
type AsyncFetcher struct {
	ctx      context.Context
	source   Source
	sched    scheduler.Scheduler
	cfg      config.FetchConfig
	breaker  *resilience.CircuitBreaker
	observer FetchObserver
	trace    bool
	wg       sync.WaitGroup
	logger   *slog.Logger
}

// Option customises an AsyncFetcher.
type Option func(*AsyncFetcher)

// WithObserver reports load outcomes to o.
func WithObserver(o FetchObserver) Option {
	return func(f *AsyncFetcher) { f.observer = o }
}

// WithTracing logs a span tree for every load.
func WithTracing(enabled bool) Option {
	return func(f *AsyncFetcher) { f.trace = enabled }
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(f *AsyncFetcher) { f.breaker = cb }
}

// NewAsyncFetcher creates a fetcher whose loads are cancelled with ctx.
func NewAsyncFetcher(ctx context.Context, source Source, sched scheduler.Scheduler, cfg config.FetchConfig, opts ...Option) *AsyncFetcher {
	f := &AsyncFetcher{
		ctx:      ctx,
		source:   source,
		sched:    sched,
		cfg:      cfg,
		observer: nopFetchObserver{},
		logger:   logger.WithComponent("snapshot-fetcher"),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.breaker == nil {
		f.breaker = resilience.NewCircuitBreaker("snapshot-source", resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.BreakerThreshold,
			ResetTimeout:     cfg.BreakerResetTimeout,
		})
	}
	return f
}

// FetchTier implements symbolsearch.Fetcher.
func (f *AsyncFetcher) FetchTier(project *symbolsearch.ProjectInfo, kinds []symbolsearch.Kind, deliver func(*symbolsearch.TierData, error)) {
	project = cloneProject(project)
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		data, err := load(f, "fetch-tier", project, func(ctx context.Context) (*symbolsearch.TierData, error) {
			return f.source.LoadTier(ctx, project, kinds)
		})
		f.sched.Schedule(func() { deliver(data, err) })
	}()
}

// FetchFiles loads the file list of project and delivers it on the
// scheduler.
func (f *AsyncFetcher) FetchFiles(project *symbolsearch.ProjectInfo, deliver func([]string, error)) {
	project = cloneProject(project)
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		files, err := load(f, "fetch-files", project, func(ctx context.Context) ([]string, error) {
			return f.source.LoadFiles(ctx, project)
		})
		f.sched.Schedule(func() { deliver(files, err) })
	}()
}

// Wait blocks until every started load has posted its result.
func (f *AsyncFetcher) Wait() {
	f.wg.Wait()
}

func load[T any](f *AsyncFetcher, name string, project *symbolsearch.ProjectInfo, fn func(ctx context.Context) (T, error)) (T, error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(f.ctx, name, "")
	span.SetAttr("project", project.String())

	var out T
	attempts := 0
	err := resilience.Retry(ctx, name, resilience.RetryConfig{
		MaxAttempts:  f.cfg.RetryAttempts,
		InitialDelay: f.cfg.RetryInitialDelay,
		Retryable:    retryable,
	}, func() error {
		attempts++
		return f.breaker.Execute(func() error {
			var loaded T
			err := resilience.WithTimeout(ctx, f.cfg.Timeout, name, func(ctx context.Context) error {
				_, child := tracing.StartChildSpan(ctx, "attempt")
				defer child.End()
				v, err := fn(ctx)
				child.SetError(err)
				loaded = v
				return err
			})
			if err == nil {
				out = loaded
			}
			return err
		})
	})

	span.SetAttr("attempts", attempts)
	span.SetError(err)
	span.End()
	if f.trace {
		span.Log(f.logger)
	}
	f.observer.ObserveFetch(err, time.Since(start))
	if err != nil {
		f.logger.Error("load failed", "operation", name, "project", project.String(), "attempts", attempts, "error", err)
	}
	return out, err
}

func retryable(err error) bool {
	return !errors.Is(err, apperrors.ErrSnapshotNotFound) &&
		!errors.Is(err, apperrors.ErrUnknownKind) &&
		!errors.Is(err, resilience.ErrCircuitOpen)
}
