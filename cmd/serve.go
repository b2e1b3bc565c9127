package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/novasocial/nova-consistency/internal/cache"
	"github.com/novasocial/nova-consistency/internal/config"
	"github.com/novasocial/nova-consistency/internal/db"
	httpSrv "github.com/novasocial/nova-consistency/internal/http"
	"github.com/novasocial/nova-consistency/internal/invalidation"
	"github.com/novasocial/nova-consistency/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.Log.Level)

		mysqlDB, err := db.NewMySQL(cfg.MySQL)
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer mysqlDB.Close()

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

		// one tiered cache instance, shared between the read path and the
		// invalidation subscriber so broadcasts evict this process's local tier
		tiered := cache.NewTiered(cache.TieredConfig{
			Keys:       cache.Keys{Version: cfg.Cache.KeyVersion},
			Local:      cache.NewLocal(cfg.Cache.LocalMaxEntries),
			Remote:     cache.NewRedisRemote(redisClient),
			DefaultTTL: cfg.Cache.DefaultTTL,
			LocalTTL:   cfg.Cache.LocalTTL,
		})
		invalPub := invalidation.NewPublisher(redisClient, cfg.Invalidation.Channel, cfg.Service.Name)

		server := httpSrv.NewServer(cfg, mysqlDB, chDB, redisClient, tiered, invalPub)

		subCtx, subCancel := context.WithCancel(context.Background())
		defer subCancel()
		sub := invalidation.NewSubscriber(redisClient, cfg.Invalidation.Channel, tiered)
		go func() {
			if err := sub.Run(subCtx); err != nil {
				log.Printf("invalidation subscriber exited: %v", err)
			}
		}()

		errCh := make(chan error, 1)
		go func() {
			log.Printf("starting http on %s", cfg.HTTP.Addr)
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			log.Printf("signal received: %s, shutting down...", sig)
		case err := <-errCh:
			if err != nil {
				log.Printf("http server exited: %v", err)
			}
		}

		subCancel()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)

		return nil
	},
}
