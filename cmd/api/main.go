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
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/events-aggregator/api/controllers"
	"github.com/angelmondragon/events-aggregator/api/routes"
	"github.com/angelmondragon/events-aggregator/internal/events"
	"github.com/angelmondragon/events-aggregator/internal/inbox"
	"github.com/angelmondragon/events-aggregator/internal/scheduler"
	"github.com/angelmondragon/events-aggregator/internal/syncer"
	"github.com/angelmondragon/events-aggregator/internal/tickets"
	"github.com/angelmondragon/events-aggregator/internal/uow/gormuow"
	"github.com/angelmondragon/events-aggregator/pkg/config"
	"github.com/angelmondragon/events-aggregator/pkg/db"
	"github.com/angelmondragon/events-aggregator/pkg/eventsprovider"
	"github.com/angelmondragon/events-aggregator/pkg/httpclient"
	"github.com/angelmondragon/events-aggregator/pkg/instance"
	"github.com/angelmondragon/events-aggregator/pkg/logger"
	"github.com/angelmondragon/events-aggregator/pkg/metrics"
	"github.com/angelmondragon/events-aggregator/pkg/migrate"
	"github.com/angelmondragon/events-aggregator/pkg/notifier"
	"github.com/angelmondragon/events-aggregator/pkg/outbox"
	"github.com/angelmondragon/events-aggregator/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "events-aggregator"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "events-aggregator",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	jobMetrics := metrics.NewJobMetrics(registry)
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	unitOfWork := gormuow.New(dbClient.DB())

	provider, err := eventsprovider.NewClient(eventsprovider.Config{
		BaseURL:     cfg.Provider.BaseURL,
		APIKey:      cfg.Provider.APIKey,
		Timeouts:    cfg.Provider.Timeouts(),
		MaxAttempts: cfg.Provider.MaxAttempts,
		RetryBase:   cfg.Provider.RetryBase,
	}, httpclient.WithLogger(logg))
	if err != nil {
		logg.Error(ctx, "failed to create events provider client", err)
		os.Exit(1)
	}

	notifierClient, err := notifier.NewClient(notifier.Config{
		BaseURL:     cfg.Notification.BaseURL,
		APIKey:      cfg.Notification.APIKey,
		Timeouts:    cfg.Notification.Timeouts(),
		MaxAttempts: cfg.Notification.MaxAttempts,
		RetryBase:   cfg.Notification.RetryBase,
	}, httpclient.WithLogger(logg))
	if err != nil {
		logg.Error(ctx, "failed to create notification client", err)
		os.Exit(1)
	}

	ready := map[string]controllers.Pinger{"database": dbClient}
	var seatCache events.SeatCache = events.NewMemorySeatCache(cfg.Jobs.SeatCacheTTL)
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		seatCache = events.NewRedisSeatCache(redisClient, cfg.Jobs.SeatCacheTTL, logg)
		ready["redis"] = redisClient
	}
	seats := events.NewSeatLookup(provider, seatCache)

	sched, err := scheduler.New(scheduler.Params{Logger: logg, Metrics: jobMetrics})
	if err != nil {
		logg.Error(ctx, "failed to create scheduler", err)
		os.Exit(1)
	}

	inboxService, err := inbox.NewService(inbox.ServiceParams{
		UnitOfWork: unitOfWork,
		Logger:     logg,
		Metrics:    pipelineMetrics,
		TTL:        cfg.Jobs.InboxTTL,
	})
	requireService(ctx, logg, "inbox", err)

	outboxService := outbox.NewService(logg)
	processor, err := outbox.NewProcessor(outbox.ProcessorParams{
		UnitOfWork: unitOfWork,
		Notifier:   notifierClient,
		Logger:     logg,
		Metrics:    pipelineMetrics,
	})
	requireService(ctx, logg, "outbox processor", err)

	syncService, err := syncer.NewService(syncer.ServiceParams{
		UnitOfWork: unitOfWork,
		Provider:   provider,
		Scheduler:  sched,
		Logger:     logg,
		Metrics:    pipelineMetrics,
		Interval:   cfg.Jobs.SyncInterval,
	})
	requireService(ctx, logg, "sync", err)

	eventsService, err := events.NewService(events.ServiceParams{
		UnitOfWork: unitOfWork,
		Seats:      seats,
		Logger:     logg,
	})
	requireService(ctx, logg, "events", err)

	ticketsService, err := tickets.NewService(tickets.ServiceParams{
		UnitOfWork: unitOfWork,
		Provider:   provider,
		Seats:      seats,
		Inbox:      inboxService,
		Outbox:     outboxService,
		Logger:     logg,
	})
	requireService(ctx, logg, "tickets", err)

	if err := syncService.Init(ctx); err != nil {
		logg.Error(ctx, "failed to initialise sync", err)
		os.Exit(1)
	}
	if err := registerJobs(sched, cfg.Jobs, processor, inboxService); err != nil {
		logg.Error(ctx, "failed to register background jobs", err)
		os.Exit(1)
	}
	if err := sched.Start(ctx); err != nil {
		logg.Error(ctx, "failed to start scheduler", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(serverCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Services{
			Events:   eventsService,
			Tickets:  ticketsService,
			Sync:     syncService,
			Ready:    ready,
			Gatherer: registry,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		logg.Info(serverCtx, "shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			logg.Error(serverCtx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(serverCtx, "api server shutdown failed", err)
		exitCode = 1
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		logg.Error(serverCtx, "scheduler did not drain before the shutdown deadline", err)
		exitCode = 1
	}
	logg.Info(serverCtx, "shutdown complete")

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func requireService(ctx context.Context, logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(logg.WithField(ctx, "service", name), "failed to create service", err)
	os.Exit(1)
}
