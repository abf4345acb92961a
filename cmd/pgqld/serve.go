package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arcflow/pgql/cdc"
)

// serveCmd runs the engine's background machinery: the Catalog Reflector's
// lazy refresh, the CDC logical-replication consumer, and the health
// heartbeat. It does not expose an HTTP transport (spec.md §1/§7 non-goal);
// a collaborator execution layer embeds the compiler package directly and
// uses this process only when it wants CDC fan-out running standalone.
func serveCmd() *cobra.Command {
	var replicationSlot, publication string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Reflect the catalog, then run the CDC consumer and health heartbeat",
		RunE: func(c *cobra.Command, _ []string) error {
			return runServe(c.Context(), replicationSlot, publication)
		},
	}
	cmd.Flags().StringVar(&replicationSlot, "replication-slot", "pgql_slot", "logical replication slot name")
	cmd.Flags().StringVar(&publication, "publication", "pgql_pub", "logical replication publication name")
	return cmd
}

func runServe(ctx context.Context, slot, publication string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := buildLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	reflector := buildReflector(db, cfg, logger)

	if _, err := reflector.Snapshot(ctx, cfg.Schema); err != nil {
		return fmt.Errorf("initial catalog reflection failed: %w", err)
	}
	logger.Info("catalog reflected", zap.String("schema", cfg.Schema))

	registry := cdc.NewRegistry(cfg.Schema, logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := cdc.NewConsumer(cdc.StreamConfig{
		ConnString:  cfg.Database.URL,
		SlotName:    slot,
		Publication: publication,
	}, registry, reflector, cfg.Schema, logger)

	health := cdc.NewHealthBroadcaster(registry, cfg.Schema, 0)

	errCh := make(chan error, 1)
	go func() { errCh <- consumer.Run(ctx) }()
	go health.Run(ctx)

	logger.Info("pgqld serving", zap.Int("port", cfg.Server.Port))

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return nil
	case err := <-errCh:
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("cdc consumer stopped: %w", err)
	}
}
