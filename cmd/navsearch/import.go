package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/snapshot"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/postgres"
)

func readSnapshot(path string) (*snapshot.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var snap snapshot.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", path, err)
	}
	if snap.Project == "" || snap.Revision == "" {
		return nil, fmt.Errorf("snapshot %s: project and revision are required", path)
	}
	return &snap, nil
}

// runImport stores the snapshot at path and announces the rebuild so running
// hosts reload it.
func runImport(ctx context.Context, cfg *config.Config, path string) error {
	if path == "" {
		return fmt.Errorf("import: snapshot file required")
	}
	snap, err := readSnapshot(path)
	if err != nil {
		return err
	}

	db, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()
	store := snapshot.NewStore(db)
	if err := store.Migrate(ctx); err != nil {
		return err
	}
	if _, err := store.Import(ctx, snap); err != nil {
		return err
	}

	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.Topics.SnapshotRebuilt == "" {
		slog.Warn("kafka not configured, rebuild not announced")
		return nil
	}
	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SnapshotRebuilt)
	defer producer.Close()
	return snapshot.NewAnnouncer(producer).Announce(ctx, snapshot.RebuiltEvent{
		Project:  snap.Project,
		Revision: snap.Revision,
		Default:  snap.Default,
	})
}
