// Command analytics starts the back-office sales analytics service.
//
// It serves real-time sales metrics, a same-day hourly forecast, and a
// peak-hour ranking over the approved transaction ledger in PostgreSQL,
// broadcasts the real-time snapshot to Kafka every 30 seconds for the
// WebSocket push layer, and clears its metrics cache when transaction
// events arrive on the ledger topic.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/platedesk/backoffice/internal/analytics"
	"github.com/platedesk/backoffice/internal/analytics/snapshots"
	"github.com/platedesk/backoffice/internal/api"
	"github.com/platedesk/backoffice/internal/auth/ratelimit"
	"github.com/platedesk/backoffice/internal/auth/token"
	"github.com/platedesk/backoffice/internal/broadcast"
	"github.com/platedesk/backoffice/internal/transactions"
	"github.com/platedesk/backoffice/pkg/config"
	"github.com/platedesk/backoffice/pkg/health"
	"github.com/platedesk/backoffice/pkg/kafka"
	"github.com/platedesk/backoffice/pkg/logger"
	"github.com/platedesk/backoffice/pkg/metrics"
	"github.com/platedesk/backoffice/pkg/postgres"
	"github.com/platedesk/backoffice/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	store := transactions.NewStore(db)
	service := analytics.NewService(store, cfg.Analytics, m)
	snapshotStore := snapshots.NewStore(db, m)
	snapshotStore.StartPeriodicSave(ctx, service, cfg.Analytics.SnapshotInterval)

	// Periodic snapshot push for the WebSocket layer.
	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SalesMetrics)
	defer producer.Close()
	broadcaster := broadcast.New(
		service, producer, redisClient,
		cfg.Analytics.BroadcastInterval, cfg.Redis.SnapshotTTL, m,
	)
	go broadcaster.Run(ctx)

	// Cache invalidation on ledger changes.
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.TransactionEvents, analytics.HandleTransactionEvent(service, m))
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("invalidation consumer error", "error", err)
		}
	}()

	checker := health.NewChecker()
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if err := db.DB.PingContext(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	validator := token.NewValidator(db)
	limiter := ratelimit.New(time.Minute)
	handler := analytics.NewHandler(service, snapshotStore)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.New(handler, checker, validator, limiter, m, *cfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}
