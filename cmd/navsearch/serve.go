package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/snapshot"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/rpc"
	"golang.org/x/sync/errgroup"
)

// runServe serves stored snapshots over rpc. Replicas share one consumer
// group since they share the cache they invalidate.
func runServe(ctx context.Context, cfg *config.Config) error {
	m := metrics.New()
	checker := health.NewChecker()
	b, err := openBackend(ctx, cfg, m, checker, false)
	if err != nil {
		return err
	}
	defer b.close()

	server := rpc.NewServer()
	snapshot.RegisterService(server, b.source)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(gctx, fmt.Sprintf(":%d", cfg.Server.RPCPort))
	})

	if b.invalidator != nil && len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topics.SnapshotRebuilt != "" {
		kc := cfg.Kafka
		kc.ConsumerGroup += "-serve"
		listener := snapshot.NewListener(nil, b.invalidator, m)
		consumer := kafka.NewConsumer(kc, cfg.Kafka.Topics.SnapshotRebuilt, listener.Handle)
		defer consumer.Close()
		g.Go(func() error { return consumer.Start(gctx) })
	}

	serveHTTP(g, gctx, cfg, checker, m)

	slog.Info("snapshot server started", "rpc_port", cfg.Server.RPCPort, "methods", server.Methods())
	err = g.Wait()
	slog.Info("snapshot server stopped")
	return err
}
