package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/meal-tickets/internal/api/http"
	"github.com/spec-kit/meal-tickets/internal/api/http/handlers"
	"github.com/spec-kit/meal-tickets/internal/clock"
	"github.com/spec-kit/meal-tickets/internal/config"
	"github.com/spec-kit/meal-tickets/internal/events"
	"github.com/spec-kit/meal-tickets/internal/observability"
	"github.com/spec-kit/meal-tickets/internal/persistence"
	"github.com/spec-kit/meal-tickets/internal/repository"
	"github.com/spec-kit/meal-tickets/internal/service"
	"github.com/spec-kit/meal-tickets/internal/worker"
)

func main() {
	flags := pflag.NewFlagSet("meal-tickets", pflag.ContinueOnError)
	envFile := flags.String("env-file", ".env", "dotenv file loaded before reading the environment")
	migrateOnly := flags.Bool("migrate-only", false, "apply database migrations and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations || *migrateOnly {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}
	if *migrateOnly {
		return
	}
	if pg.PoolHandle() == nil {
		logger.Fatal("POSTGRES_DSN is required to serve tickets")
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	loc, err := cfg.Tickets.Location()
	if err != nil {
		logger.Fatal("invalid tickets timezone", zap.Error(err))
	}

	pool := pg.PoolHandle()
	ticketStore := repository.NewTicketRepository(pool)
	owners := repository.NewCachedOwnerDirectory(repository.CachedOwnerDirectoryDependencies{
		Next:   repository.NewOwnerRepository(pool),
		Redis:  redis.Cmdable(),
		TTL:    cfg.Redis.OwnerCacheTTL,
		Logger: logger,
	})

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.NewTicketAuditWorker(dispatcher, logger, metrics).Start()

	wallClock := clock.New()
	ticketsHandler := handlers.NewTicketsHandler(handlers.TicketsHandlerDependencies{
		Issuance: service.NewIssuanceService(service.IssuanceDependencies{
			TicketStore:    ticketStore,
			OwnerDirectory: owners,
			Dispatcher:     dispatcher,
			Clock:          wallClock,
			Logger:         logger,
		}),
		Consumption: service.NewConsumptionService(service.ConsumptionDependencies{
			TicketStore:    ticketStore,
			OwnerDirectory: owners,
			Dispatcher:     dispatcher,
			Clock:          wallClock,
			Metrics:        metrics,
			Logger:         logger,
		}),
		Query: service.NewQueryService(service.QueryDependencies{
			TicketStore:    ticketStore,
			OwnerDirectory: owners,
			Location:       loc,
		}),
		Stats: service.NewStatsService(service.StatsDependencies{
			TicketStore:    ticketStore,
			OwnerDirectory: owners,
			Location:       loc,
		}),
	})

	var redisPinger handlers.Pinger
	if redis.Cmdable() != nil {
		redisPinger = redis
	}
	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redisPinger)

	app := httptransport.NewApp(cfg.App.Name,
		httptransport.MiddlewareConfig{
			Logger:       logger,
			Metrics:      metrics,
			Timeout:      cfg.App.RequestTimeout(),
			AllowOrigins: cfg.CORS.AllowOrigins,
		},
		httptransport.RouteConfig{
			Health:  healthHandler,
			Tickets: ticketsHandler,
			Metrics: metrics,
		})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.Shutdown(); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
