package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/UkralStul/content-graph-service/internal/config"
	"github.com/UkralStul/content-graph-service/internal/metrics"
	"github.com/UkralStul/content-graph-service/internal/notification"
	"github.com/UkralStul/content-graph-service/internal/pubsub"
	"github.com/UkralStul/content-graph-service/internal/storage/postgres"
	"github.com/UkralStul/content-graph-service/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.New(cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}

	client, err := pubsub.NewValkeyClient(cfg.Valkey)
	if err != nil {
		logger.Error("failed to connect to valkey", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer client.Close()
	bus := pubsub.NewValkey(client, cfg.Worker.ConsumerID, logger)

	m := metrics.New()
	runner := worker.NewRunner(bus, bus,
		worker.Deps{Store: store, Logger: logger},
		notification.NewGenerator(cfg.Webapp.Origin), m)

	var workers []worker.Worker
	for _, nw := range worker.NotificationWorkers() {
		if err := bus.EnsureGroup(ctx, nw.Topic, nw.Subscription); err != nil {
			logger.Error("failed to create consumer group", slog.String("error", err.Error()))
			os.Exit(1)
		}
		workers = append(workers, runner.FromNotificationWorker(nw))
	}

	metricsSrv := &http.Server{Addr: ":" + cfg.Worker.MetricsPort, Handler: m.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", slog.String("error", err.Error()))
		}
	}()

	logger.Info("worker started", slog.String("consumer", cfg.Worker.ConsumerID), slog.Int("workers", len(workers)))
	if err := runner.Run(ctx, workers); err != nil {
		logger.Error("worker stopped", slog.String("error", err.Error()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	logger.Info("worker stopped")
}
