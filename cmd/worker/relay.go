package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/novasocial/nova-consistency/internal/config"
	"github.com/novasocial/nova-consistency/internal/db"
	"github.com/novasocial/nova-consistency/internal/kafka"
	"github.com/novasocial/nova-consistency/internal/logger"
	"github.com/novasocial/nova-consistency/internal/metrics"
	"github.com/novasocial/nova-consistency/internal/repository"
	"github.com/novasocial/nova-consistency/internal/worker"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run outbox relay (poll outbox_events, publish to Kafka)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.Log.Level)

		metrics.MustRegister(prometheus.DefaultRegisterer)

		dbx, err := db.NewMySQL(cfg.MySQL)
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer dbx.Close()

		producer := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:     cfg.Kafka.Brokers,
			TopicPrefix: cfg.Kafka.TopicPrefix,
		})
		defer func() { _ = producer.Close() }()

		relay := worker.NewRelay(repository.NewOutboxRepository(dbx), producer)
		if cfg.Relay.PollInterval > 0 {
			relay.PollInterval = cfg.Relay.PollInterval
		}
		if cfg.Relay.BatchSize > 0 {
			relay.BatchSize = cfg.Relay.BatchSize
		}
		if cfg.Relay.MaxRetries > 0 {
			relay.MaxRetries = cfg.Relay.MaxRetries
		}
		if cfg.Relay.BackoffBase > 0 {
			relay.BackoffBase = cfg.Relay.BackoffBase
		}
		if cfg.Relay.BackoffMax > 0 {
			relay.BackoffMax = cfg.Relay.BackoffMax
		}
		if cfg.Relay.PublishTimeout > 0 {
			relay.PublishTimeout = cfg.Relay.PublishTimeout
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Printf(">> relay started poll=%s batch=%d maxRetries=%d",
			relay.PollInterval, relay.BatchSize, relay.MaxRetries)

		return relay.Run(ctx)
	},
}
