package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/novasocial/nova-consistency/internal/config"
	"github.com/novasocial/nova-consistency/internal/db"
	"github.com/novasocial/nova-consistency/internal/logger"
	"github.com/novasocial/nova-consistency/internal/repository"
	"github.com/novasocial/nova-consistency/internal/worker"
)

var sweeperCmd = &cobra.Command{
	Use:   "sweeper",
	Short: "Run retention sweeper (published outbox rows, idempotency markers)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.Log.Level)

		dbx, err := db.NewMySQL(cfg.MySQL)
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer dbx.Close()

		s := &worker.Sweeper{
			Outbox:             repository.NewOutboxRepository(dbx),
			Processed:          repository.NewProcessedEventsRepository(dbx),
			Interval:           cfg.Sweep.Interval,
			OutboxRetention:    cfg.Sweep.OutboxRetention,
			ProcessedRetention: cfg.Idempotency.Retention,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Printf(">> sweeper started interval=%s", cfg.Sweep.Interval)

		return s.Run(ctx)
	},
}
