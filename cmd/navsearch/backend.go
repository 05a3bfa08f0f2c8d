package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/snapshot"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/rpc"
	"golang.org/x/sync/errgroup"
)

// backend is the snapshot source a command reads from. invalidator is nil
// when nothing local caches the source.
type backend struct {
	source      snapshot.Source
	invalidator snapshot.Invalidator
	closers     []func()
}

func (b *backend) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackend connects to the configured snapshot source and registers its
// health checks. A remote source is used only when allowRemote is set.
func openBackend(ctx context.Context, cfg *config.Config, m *metrics.Metrics, checker *health.Checker, allowRemote bool) (*backend, error) {
	b := &backend{}
	if allowRemote && cfg.Fetch.Remote != "" {
		client, err := rpc.Dial(ctx, cfg.Fetch.Remote)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { client.Close() })
		remote := snapshot.NewRemoteSource(client)
		b.source = remote
		checker.Register("snapshot_server", health.PingCheck(remote.Ping, false))
		slog.Info("using remote snapshot source", "addr", cfg.Fetch.Remote)
		return b, nil
	}

	db, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	b.closers = append(b.closers, func() { db.Close() })
	store := snapshot.NewStore(db)
	if err := store.Migrate(ctx); err != nil {
		b.close()
		return nil, err
	}
	b.source = store
	checker.Register("postgres", health.PingCheck(db.Ping, false))

	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, tier caching disabled", "error", err)
		return b, nil
	}
	b.closers = append(b.closers, func() { redisClient.Close() })
	cache := snapshot.NewTierCache(redisClient, store, cfg.Redis.CacheTTL, m)
	b.source, b.invalidator = cache, cache
	checker.Register("redis", health.PingCheck(redisClient.Ping, true))
	slog.Info("tier cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	return b, nil
}

// serveHTTP runs the health endpoints, and the metrics endpoint when
// enabled, until gctx ends.
func serveHTTP(g *errgroup.Group, gctx context.Context, cfg *config.Config, checker *health.Checker, m *metrics.Metrics) {
	if cfg.Metrics.Enabled {
		g.Go(func() error { return metrics.Serve(gctx, cfg.Metrics.Port, cfg.Server.ShutdownTimeout) })
	}

	mux := http.NewServeMux()
	checker.Mount(mux)
	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: middleware.Chain(mux,
			middleware.Metrics(m, "/health/live", "/health/ready"),
			middleware.Timeout(10*time.Second),
		),
		ReadTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		slog.Info("health server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
}

// hostGroup gives the process a consumer group of its own so that every
// search host sees every rebuild.
func hostGroup(kc config.KafkaConfig, role string) config.KafkaConfig {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	kc.ConsumerGroup = fmt.Sprintf("%s-%s-%s-%d", kc.ConsumerGroup, role, host, os.Getpid())
	return kc
}
