package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/workboard-backend/api/controllers"
	"github.com/angelmondragon/workboard-backend/api/middleware"
	"github.com/angelmondragon/workboard-backend/api/routes"
	"github.com/angelmondragon/workboard-backend/internal/bus"
	"github.com/angelmondragon/workboard-backend/internal/realtime"
	"github.com/angelmondragon/workboard-backend/internal/workboard"
	"github.com/angelmondragon/workboard-backend/pkg/authz"
	"github.com/angelmondragon/workboard-backend/pkg/config"
	"github.com/angelmondragon/workboard-backend/pkg/db"
	"github.com/angelmondragon/workboard-backend/pkg/logger"
	"github.com/angelmondragon/workboard-backend/pkg/metrics"
	"github.com/angelmondragon/workboard-backend/pkg/migrate"
	"github.com/angelmondragon/workboard-backend/pkg/outbox"
	"github.com/angelmondragon/workboard-backend/pkg/pubsub"
	"github.com/angelmondragon/workboard-backend/pkg/redis"
)

const (
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	requireResource(ctx, logg, "database", err)

	err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient)
	requireResource(ctx, logg, "dev migrations", err)

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		requireResource(ctx, logg, "redis", err)
	}

	var pubsubClient *pubsub.Client
	if strings.EqualFold(strings.TrimSpace(cfg.Bus.Backend), config.BusBackendGCP) {
		pubsubClient, err = pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		requireResource(ctx, logg, "pubsub", err)
	}

	busDeps := bus.Deps{}
	if redisClient != nil {
		busDeps.Redis = redisClient
	}
	if pubsubClient != nil {
		busDeps.PubSub = pubsubClient
	}
	eventBus, err := bus.New(cfg.Bus, busDeps)
	requireResource(ctx, logg, "event bus", err)

	authorizer, err := authz.NewService(cfg.Authz, logg)
	requireResource(ctx, logg, "authorizer", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	boardMetrics := metrics.NewBoardMetrics(registry)

	workboardService, err := workboard.NewService(workboard.ServiceParams{
		Repo:            workboard.NewRepository(dbClient.DB()),
		Tx:              dbClient,
		Authorizer:      authorizer,
		Publisher:       eventBus,
		Outbox:          outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Metrics:         boardMetrics,
		Logger:          logg,
		UnassignedLimit: cfg.Board.UnassignedLimit,
	})
	requireResource(ctx, logg, "workboard service", err)

	hub, err := realtime.NewHub(realtime.HubOptions{
		Bus:        eventBus,
		Authorizer: authorizer,
		JWT:        cfg.JWT,
		Config:     cfg.Realtime,
		Logger:     logg,
		Metrics:    boardMetrics,
	})
	requireResource(ctx, logg, "realtime hub", err)

	ready := []controllers.Dependency{{Name: "database", Pinger: dbClient}}
	var limiter middleware.RateLimiter
	if redisClient != nil {
		limiter = redisClient
		ready = append(ready, controllers.Dependency{Name: "redis", Pinger: redisClient})
	}
	if pubsubClient != nil {
		ready = append(ready, controllers.Dependency{Name: "pubsub", Pinger: pubsubClient})
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"bus_backend": cfg.Bus.Backend,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			workboardService,
			hub,
			limiter,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ready...,
		),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return hub.Run(groupCtx)
	})
	group.Go(func() error {
		logg.Info(serverCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logg.Info(serverCtx, "shutting down api server")
		return server.Shutdown(shutdownCtx)
	})

	runErr := group.Wait()

	closeErr := eventBus.Close()
	if pubsubClient != nil {
		closeErr = multierr.Append(closeErr, pubsubClient.Close())
	}
	if redisClient != nil {
		closeErr = multierr.Append(closeErr, redisClient.Close())
	}
	closeErr = multierr.Append(closeErr, dbClient.Close())
	if closeErr != nil {
		logg.Error(serverCtx, "error releasing resources", closeErr)
	}

	if runErr != nil {
		logg.Error(serverCtx, "api server stopped unexpectedly", runErr)
		os.Exit(1)
	}
	logg.Info(serverCtx, "api server stopped")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
