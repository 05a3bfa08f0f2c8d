// Command navsearch is an interactive fuzzy finder over stored
// code-navigation snapshots. It reads queries and commands from stdin and
// prints ranked file or symbol matches while the scan runs.
//
//	navsearch [flags] [search]       interactive search
//	navsearch [flags] serve          serve stored snapshots to remote hosts
//	navsearch [flags] import FILE    import a JSON snapshot and announce it
//
// A search host reads snapshots from PostgreSQL, through the Redis tier
// cache when Redis is reachable, or from a serve process when
// fetch.remote is set.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/filesearch"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/scheduler"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/snapshot"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/symbolsearch"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/tracing"
	"golang.org/x/sync/errgroup"
)

type options struct {
	mode    string
	project *symbolsearch.ProjectInfo
	filter  string
}

func main() {
	configPath := flag.String("config", "", "path to config file (defaults and NS_* overrides when empty)")
	mode := flag.String("mode", modeFiles, "what to search: files or symbols")
	projectFlag := flag.String("project", "", "snapshot to search as name@revision; the default snapshot when empty")
	filter := flag.String("filter", "", "symbol filter (c, t, m, e)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	// stdout belongs to the results
	logger.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	project, err := parseProject(*projectFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *mode != modeFiles && *mode != modeSymbols {
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch flag.Arg(0) {
	case "", "search":
		err = runSearch(ctx, cfg, options{mode: *mode, project: project, filter: *filter}, os.Stdin, os.Stdout)
	case "serve":
		err = runServe(ctx, cfg)
	case "import":
		err = runImport(ctx, cfg, flag.Arg(1))
	default:
		err = fmt.Errorf("unknown subcommand %q", flag.Arg(0))
	}
	if err != nil {
		slog.Error("navsearch failed", "error", err)
		os.Exit(1)
	}
}

func runSearch(ctx context.Context, cfg *config.Config, opts options, in io.Reader, out io.Writer) error {
	ctx = logger.WithSession(ctx, tracing.NewTraceID()[:12])
	log := logger.FromContext(ctx)
	m := metrics.New()
	checker := health.NewChecker()
	b, err := openBackend(ctx, cfg, m, checker, true)
	if err != nil {
		return err
	}
	defer b.close()
	source, invalidator := b.source, b.invalidator

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	loop := scheduler.NewLoop()
	breaker := resilience.NewCircuitBreaker("snapshot-source", resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.Fetch.BreakerThreshold,
		ResetTimeout:     cfg.Fetch.BreakerResetTimeout,
		OnStateChange: func(name string, _, to resilience.State) {
			m.SetBreakerState(name, int(to))
		},
	})
	fetcher := snapshot.NewAsyncFetcher(gctx, source, loop, cfg.Fetch,
		snapshot.WithObserver(m),
		snapshot.WithTracing(cfg.Tracing.Enabled),
		snapshot.WithBreaker(breaker),
	)
	checker.Register("run_loop", func(ctx context.Context) health.ComponentHealth {
		if n := loop.Pending(); n > 1000 {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: fmt.Sprintf("%d tasks queued", n)}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	listener := snapshot.NewListener(loop, invalidator, m)
	var sess *session
	switch opts.mode {
	case modeSymbols:
		e := symbolsearch.New(opts.project, fetcher, cfg.Search, loop, scheduler.NewSystemClock())
		e.SetObserver(m)
		if opts.filter != "" {
			if err := e.SetFilter(opts.filter); err != nil {
				return err
			}
		}
		sess = newSymbolSession(out, e)
		listener.OnRebuilt(snapshot.ReloadSymbols(e))
	default:
		e := filesearch.New(nil, cfg.Search, loop, scheduler.NewSystemClock())
		e.SetObserver(m)
		sess = newFileSession(out, e, fetcher, opts.project)
		listener.OnRebuilt(snapshot.ReloadFiles(e, fetcher, func() *symbolsearch.ProjectInfo { return sess.project }))
		loop.Schedule(sess.load)
	}

	g.Go(func() error { return loop.Run(gctx) })

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topics.SnapshotRebuilt != "" {
		consumer := kafka.NewConsumer(hostGroup(cfg.Kafka, "search"), cfg.Kafka.Topics.SnapshotRebuilt, listener.Handle)
		defer consumer.Close()
		g.Go(func() error { return consumer.Start(gctx) })
	}

	serveHTTP(g, gctx, cfg, checker, m)

	lines := readLines(in)
	g.Go(func() error {
		defer cancel()
		for {
			select {
			case <-gctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					return nil
				}
				var quit bool
				var err error
				if doErr := loop.Do(gctx, func() { quit, err = sess.apply(line) }); doErr != nil {
					return nil
				}
				if err != nil {
					fmt.Fprintf(out, "error: %v\n", err)
				}
				if quit {
					return nil
				}
			}
		}
	})

	log.Info("search session started", "mode", opts.mode, "project", opts.project.String())
	err = g.Wait()
	fetcher.Wait()
	log.Info("search session ended")
	return err
}

// readLines feeds lines of r to the returned channel until EOF. The reader
// goroutine cannot be interrupted and is left behind on shutdown.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}
