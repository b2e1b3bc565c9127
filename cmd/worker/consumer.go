package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/novasocial/nova-consistency/internal/cache"
	"github.com/novasocial/nova-consistency/internal/config"
	"github.com/novasocial/nova-consistency/internal/db"
	"github.com/novasocial/nova-consistency/internal/idempotency"
	"github.com/novasocial/nova-consistency/internal/invalidation"
	"github.com/novasocial/nova-consistency/internal/kafka"
	"github.com/novasocial/nova-consistency/internal/logger"
	"github.com/novasocial/nova-consistency/internal/metrics"
	"github.com/novasocial/nova-consistency/internal/model"
	"github.com/novasocial/nova-consistency/internal/repository"
	"github.com/novasocial/nova-consistency/internal/worker"
)

var consumerCmd = &cobra.Command{
	Use:   "consumer",
	Short: "Run event consumer (dedupe, archive, broadcast invalidation)",
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

		chDB, err := db.NewClickHouse(cfg.ClickHouse)
		if err != nil {
			return fmt.Errorf("clickhouse connect: %w", err)
		}
		defer func() { _ = chDB.Close() }()

		redisClient, err := db.NewRedis(cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer func() { _ = redisClient.Close() }()

		guard := idempotency.NewGuard(
			repository.NewProcessedEventsRepository(dbx),
			cfg.Idempotency.Retention,
		)
		archiveRepo := repository.NewArchiveRepository(chDB)
		invalPub := invalidation.NewPublisher(redisClient, cfg.Invalidation.Channel, cfg.Service.Name)
		remote := cache.NewRedisRemote(redisClient)
		keys := cache.Keys{Version: cfg.Cache.KeyVersion}

		reg := worker.NewRegistry()

		// every delivered event lands in the ClickHouse archive
		reg.OnAny(func(ctx context.Context, env model.Envelope) error {
			return archiveRepo.Insert(ctx, model.ArchivedEvent{
				EventID:       env.EventID,
				EventType:     env.EventType,
				AggregateType: env.AggregateType,
				AggregateID:   env.AggregateID,
				Payload:       string(env.Payload),
				OccurredAt:    env.OccurredAt,
			})
		})

		// drop the shared-tier entry for the changed aggregate and tell every
		// local tier to do the same
		reg.OnAny(func(ctx context.Context, env model.Envelope) error {
			if env.AggregateType == "" || env.AggregateID == "" {
				return nil
			}
			if err := remote.Del(ctx, keys.Key(env.AggregateType, env.AggregateID)); err != nil {
				return fmt.Errorf("shared cache evict: %w", err)
			}
			invalPub.Invalidate(ctx, env.AggregateType, env.AggregateID)
			return nil
		})

		groupID := cfg.Kafka.GroupID
		if groupID == "" {
			groupID = "nova-consumer"
		}

		consumer := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:        cfg.Kafka.Brokers,
			Topics:         cfg.Kafka.Topics,
			GroupID:        groupID,
			MinBytes:       cfg.Kafka.MinBytes,
			MaxBytes:       cfg.Kafka.MaxBytes,
			CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
		})
		defer consumer.Close()

		w := worker.NewConsumer(consumer, guard, reg)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Printf(">> consumer started topics=%v group=%s retention=%s",
			cfg.Kafka.Topics, groupID, guard.Retention())

		return w.Run(ctx)
	},
}
