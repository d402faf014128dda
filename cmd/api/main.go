package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/crew-ticket-service/internal/api/http"
	"github.com/spec-kit/crew-ticket-service/internal/api/http/handlers"
	"github.com/spec-kit/crew-ticket-service/internal/auth"
	"github.com/spec-kit/crew-ticket-service/internal/config"
	"github.com/spec-kit/crew-ticket-service/internal/events"
	"github.com/spec-kit/crew-ticket-service/internal/gateway"
	"github.com/spec-kit/crew-ticket-service/internal/lock"
	"github.com/spec-kit/crew-ticket-service/internal/observability"
	"github.com/spec-kit/crew-ticket-service/internal/persistence"
	"github.com/spec-kit/crew-ticket-service/internal/repository"
	"github.com/spec-kit/crew-ticket-service/internal/service"
	"github.com/spec-kit/crew-ticket-service/internal/tags"
	"github.com/spec-kit/crew-ticket-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	crewRepo := repository.NewCrewRepository(pool)
	teamRepo := repository.NewTeamRepository(pool)
	memberRepo := repository.NewCrewMemberRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)

	var locker lock.Locker = lock.NewLocalLocker()
	var tagCache tags.Cache
	dependencies := map[string]handlers.Pinger{"postgres": pg}
	if redis.Enabled() {
		locker = lock.NewRedisLocker(redis.Client, "crew-ticket:lock:", cfg.Tickets.LockTTL(), logger)
		tagCache = tags.NewRedisCache(redis.Client)
		dependencies["redis"] = redis
	}
	resolver := tags.NewResolver(teamRepo, tagCache, cfg.Tags.CacheTTL(), logger)

	gw := gateway.NewHTTPGateway(cfg.Gateway, logger)
	dispatcher := events.NewInMemoryDispatcher()

	auditService := service.NewAuditService(dispatcher, logger, metrics)
	worker.StartAuditWorker(auditService)

	members := service.NewCrewMemberService(service.CrewMemberDependencies{
		CrewRepo:   crewRepo,
		MemberRepo: memberRepo,
		Gateway:    gw,
		Locker:     locker,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})
	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo:    ticketRepo,
		CrewRepo:      crewRepo,
		TeamRepo:      teamRepo,
		MemberRepo:    memberRepo,
		HistoryRepo:   historyRepo,
		Tags:          resolver,
		Gateway:       gw,
		Members:       members,
		Locker:        locker,
		Dispatcher:    dispatcher,
		Logger:        logger,
		Metrics:       metrics,
		Config:        cfg.Tickets,
		BotIdentityID: cfg.Gateway.BotIdentityID,
	})
	registry := service.NewCrewService(service.CrewDependencies{
		TeamRepo: teamRepo,
		CrewRepo: crewRepo,
		Tags:     resolver,
		Members:  members,
		Logger:   logger,
		Metrics:  metrics,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	if cfg.Events.WebhookSecretHash == "" {
		logger.Warn("EVENTS_WEBHOOK_SECRET_HASH not provided; event deliveries will be rejected")
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:            handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies, metrics),
		Tickets:           handlers.NewTicketsHandler(tickets),
		Crews:             handlers.NewCrewsHandler(registry),
		Members:           handlers.NewMembersHandler(members),
		Events:            handlers.NewEventsHandler(tickets, members),
		AuthMiddleware:    auth.NewAuthMiddleware(tokens),
		Admins:            members,
		WebhookSecretHash: cfg.Events.WebhookSecretHash,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
