package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/novasocial/nova-consistency/internal/cache"
	"github.com/novasocial/nova-consistency/internal/config"
	"github.com/novasocial/nova-consistency/internal/http/middleware"
	"github.com/novasocial/nova-consistency/internal/invalidation"
	"github.com/novasocial/nova-consistency/internal/metrics"
	"github.com/novasocial/nova-consistency/internal/outbox"
	"github.com/novasocial/nova-consistency/internal/repository"
	"github.com/novasocial/nova-consistency/internal/service/snapshot"
)

type Server struct{ e *echo.Echo }

// NewServer wires the ops/API surface. The tiered cache and invalidation
// publisher are built by the caller so the invalidation subscriber can
// share the same local tier.
func NewServer(
	cfg config.Config,
	mysqlDB, clickhouseDB *sqlx.DB,
	rds *redis.Client,
	tiered *cache.Tiered,
	invalPub *invalidation.Publisher,
) *Server {
	// repos (MySQL)
	outboxRepo := repository.NewOutboxRepository(mysqlDB)
	snapsRepo := repository.NewSnapshotsRepository(mysqlDB)

	// repos (ClickHouse)
	archiveRepo := repository.NewArchiveRepository(clickhouseDB)

	// services
	snapSvc := snapshot.New(
		mysqlDB,
		snapsRepo,
		outbox.NewWriter(outboxRepo),
		tiered,
		invalPub,
		cfg.Cache.DefaultTTL,
	)

	// echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	authMW := middleware.APIKeyMiddleware(cfg.HTTP.APIKey)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:     rds,
		RPS:       cfg.RateLimit.RPS,
		KeyPrefix: "rl:ops:",
		Window:    time.Second,
	})

	// routes
	v1 := e.Group("/v1", authMW, rlMW)
	v1.POST("/events", recordEventHandler(snapSvc))
	v1.GET("/aggregates/:type/:id", getAggregateHandler(snapSvc))
	v1.GET("/outbox/stats", outboxStatsHandler(outboxRepo))
	v1.POST("/outbox/replay", replayHandler(outboxRepo))
	v1.GET("/reports/events", listEventsHandler(archiveRepo))
	v1.POST("/invalidate", invalidateHandler(invalPub))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	log.Printf("http: listening on %s", addr)
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
