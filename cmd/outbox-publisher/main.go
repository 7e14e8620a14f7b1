package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/stanton-energie/heizoel-backend/pkg/config"
	"github.com/stanton-energie/heizoel-backend/pkg/db"
	"github.com/stanton-energie/heizoel-backend/pkg/instance"
	"github.com/stanton-energie/heizoel-backend/pkg/logger"
	"github.com/stanton-energie/heizoel-backend/pkg/metrics"
	"github.com/stanton-energie/heizoel-backend/pkg/migrate"
	"github.com/stanton-energie/heizoel-backend/pkg/outbox"
	"github.com/stanton-energie/heizoel-backend/pkg/outbox/registry"
	"github.com/stanton-energie/heizoel-backend/pkg/pubsub"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "outbox-publisher"})
	boot := context.Background()

	if err := godotenv.Load(); err != nil {
		logg.Warn(boot, ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	fatalIf(boot, logg, "load config", err)

	logg = logger.New(logger.Options{
		ServiceName: "outbox-publisher",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx, stop := signal.NotifyContext(boot, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"topic":    cfg.PubSub.OrdersTopic,
		"instance": instance.GetID(),
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	fatalIf(ctx, logg, "bootstrap database", err)
	fatalIf(ctx, logg, "run dev migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

	psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	fatalIf(ctx, logg, "bootstrap pubsub", err)
	publishers := newPublisherCache(psClient)

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	fatalIf(ctx, logg, "build event registry", err)

	reg := prometheus.NewRegistry()
	relay, err := NewRelay(RelayParams{
		Outbox:     cfg.Outbox,
		Logger:     logg,
		DB:         dbClient,
		Broker:     psClient,
		Store:      outbox.NewRepository(dbClient.DB()),
		Registry:   eventRegistry,
		Publishers: publishers.lookup,
		Metrics:    metrics.NewRelayMetrics(reg),
	})
	fatalIf(ctx, logg, "build outbox relay", err)

	metricsSrv := &http.Server{
		Addr:              cfg.Outbox.MetricsAddr,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics listener stopped", err)
		}
	}()

	logg.Info(ctx, "starting outbox relay")
	runErr := relay.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	publishers.stop()
	if err := multierr.Combine(metricsSrv.Shutdown(shutdownCtx), psClient.Close(), dbClient.Close()); err != nil {
		logg.Error(ctx, "error releasing resources", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logg.Error(ctx, "outbox relay stopped unexpectedly", runErr)
		os.Exit(1)
	}
	logg.Info(ctx, "outbox relay stopped")
}

func fatalIf(ctx context.Context, logg *logger.Logger, step string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "failed to "+step, err)
	os.Exit(1)
}
