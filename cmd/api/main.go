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
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/stanton-energie/heizoel-backend/api/routes"
	"github.com/stanton-energie/heizoel-backend/pkg/config"
	"github.com/stanton-energie/heizoel-backend/pkg/db"
	"github.com/stanton-energie/heizoel-backend/pkg/instance"
	"github.com/stanton-energie/heizoel-backend/pkg/logger"
	"github.com/stanton-energie/heizoel-backend/pkg/migrate"
	"github.com/stanton-energie/heizoel-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

// run owns every resource so deferred cleanup happens before the exit code
// is decided.
func run() error {
	logg := logger.New(logger.Options{ServiceName: "api"})
	boot := context.Background()
	if err := godotenv.Load(); err != nil {
		logg.Warn(boot, ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		logg.Error(boot, "failed to load config", err)
		return err
	}
	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(boot, cfg.DB, logg)
	if err != nil {
		logg.Error(boot, "failed to bootstrap database", err)
		return err
	}
	defer closeAll(logg, dbClient.Close)

	if err := migrate.MaybeRunDev(boot, cfg, logg, dbClient); err != nil {
		logg.Error(boot, "failed to run dev migrations", err)
		return err
	}
	redisClient, err := redis.New(boot, cfg.Redis, logg)
	if err != nil {
		logg.Error(boot, "failed to bootstrap redis", err)
		return err
	}
	defer closeAll(logg, redisClient.Close)

	deps, err := buildServices(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(boot, "failed to wire services", err)
		return err
	}
	defer closeAll(logg, deps.broker.Close)

	port := cfg.App.Port
	if p := os.Getenv("PORT"); p != "" {
		port = p
	}
	server := &http.Server{
		Addr: ":" + port,
		Handler: routes.NewRouter(
			cfg, logg, dbClient, redisClient,
			deps.registry, deps.suppliers, deps.suppliers, deps.bankAccounts,
			deps.checkout, deps.payments, deps.orders, deps.audit, deps.invoices,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(boot, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        server.Addr,
		"nexi_env":    cfg.Nexi.Environment(),
		"live_broker": deps.brokerKind,
		"instance":    instance.GetID(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logg.Info(gctx, "starting api server")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logg.Info(ctx, "api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		return err
	}
	return nil
}

func closeAll(logg *logger.Logger, closers ...func() error) {
	var err error
	for _, c := range closers {
		err = multierr.Append(err, c())
	}
	if err != nil {
		logg.Error(context.Background(), "error releasing resources", err)
	}
}
