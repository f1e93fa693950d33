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

	httptransport "github.com/spec-kit/grievance-service/internal/api/http"
	"github.com/spec-kit/grievance-service/internal/api/http/handlers"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/cache"
	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/observability"
	"github.com/spec-kit/grievance-service/internal/persistence"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/internal/routing"
	"github.com/spec-kit/grievance-service/internal/service"
	"github.com/spec-kit/grievance-service/internal/trajectory"
	"github.com/spec-kit/grievance-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()
	referenceCache := cache.NewReferenceCache(redis.Cmdable(), cfg.Cache.ReferenceTTL(), logger)

	pool := pg.PoolHandle()
	grievanceRepo := repository.NewGrievanceRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)
	unitRepo := repository.NewUnitRepository(pool)
	employeeRepo := repository.NewEmployeeRepository(pool)
	groupRepo := repository.NewGroupRepository(pool)

	orgService := service.NewOrgService(service.OrgDependencies{
		UnitRepo:     unitRepo,
		GroupRepo:    groupRepo,
		EmployeeRepo: employeeRepo,
		Cache:        referenceCache,
	})

	hqUnitID := cfg.Routing.HQUnitID
	if hqUnitID == "" {
		hqUnitID, err = orgService.HQUnitID(ctx)
		if err != nil {
			logger.Fatal("cannot route to HOD groups", zap.Error(err))
		}
	}
	policy := trajectory.DedupLegacy
	if cfg.Routing.StrictDedup {
		policy = trajectory.DedupStrict
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	if cfg.NATS.URL != "" {
		conn, err := events.ConnectNATS(cfg.NATS.URL, cfg.App.Name)
		if err != nil {
			logger.Fatal("failed to connect nats", zap.Error(err))
		}
		defer conn.Drain() //nolint:errcheck
		events.NewNATSBridge(conn, cfg.NATS.SubjectPrefix, logger).Attach(dispatcher)
		logger.Info("nats event bridge enabled", zap.String("url", cfg.NATS.URL))
	}

	notifier := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	notificationWorker := worker.NewNotificationWorker(notifier.Handle, logger, 2, 256)
	worker.StartNotificationWorker(ctx, dispatcher, notificationWorker)

	grievanceService := service.NewGrievanceService(service.GrievanceDependencies{
		GrievanceRepo: grievanceRepo,
		HistoryRepo:   historyRepo,
		EmployeeRepo:  employeeRepo,
		Org:           orgService,
		Engine:        routing.NewEngine(hqUnitID),
		Projector:     trajectory.NewProjector(policy),
		Links:         service.NewResolutionLinks(cfg.Auth.JWTSecret, cfg.Resolution.BaseURL, cfg.Resolution.LinkTTL()),
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger,
	})

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		EmployeeRepo: employeeRepo,
		UnitRepo:     unitRepo,
		GroupRepo:    groupRepo,
		Cache:        referenceCache,
		Logger:       logger,
	})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), employeeRepo)
	loginLimiter := auth.NewIPRateLimiter(cfg.RateLimit.LoginPerSecond, cfg.RateLimit.LoginBurst)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	readiness := map[string]handlers.Pinger{"postgres": pg}
	if redis.Cmdable() != nil {
		readiness["redis"] = redis
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness),
		Auth:           handlers.NewAuthHandler(authService),
		Grievances:     handlers.NewGrievanceHandler(grievanceService),
		Admin:          handlers.NewAdminHandler(orgService, authService),
		AuthMiddleware: authMiddleware.Handle,
		LoginLimiter:   loginLimiter.Handler(),
		Metrics:        metrics.Handler(),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	notificationWorker.Wait()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
