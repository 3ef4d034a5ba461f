package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/hr-service/internal/api/http"
	"github.com/spec-kit/hr-service/internal/api/http/handlers"
	"github.com/spec-kit/hr-service/internal/auth"
	"github.com/spec-kit/hr-service/internal/config"
	"github.com/spec-kit/hr-service/internal/events"
	"github.com/spec-kit/hr-service/internal/observability"
	"github.com/spec-kit/hr-service/internal/persistence"
	"github.com/spec-kit/hr-service/internal/repository"
	"github.com/spec-kit/hr-service/internal/service"
	"github.com/spec-kit/hr-service/internal/storage"
	"github.com/spec-kit/hr-service/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, cfg.App, logger)
	if err != nil {
		logger.Fatal("failed to init tracing", zap.Error(err))
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(cfg.Postgres.DSN, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, cfg.App.Name, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	avatars, err := storage.NewLocalAvatarStore(cfg.Media.Root, cfg.Media.MaxAvatarBytes)
	if err != nil {
		logger.Fatal("failed to prepare media root", zap.Error(err))
	}

	accountRepo := repository.NewAccountRepository(pg.Pool)
	profileRepo := repository.NewProfileRepository(pg.Pool)
	departmentRepo := repository.NewDepartmentRepository(pg.Pool)
	txManager := persistence.NewTransactionManager(pg.Pool)

	sessions := auth.NewRedisSessionStore(redis.Client, cfg.Session.TTL())
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret)
	limiter := auth.NewRedisLoginLimiter(redis.Client, cfg.Auth.LoginRateLimit, cfg.Auth.LoginRateWindow())

	dispatcher := events.NewInMemoryDispatcher()
	auditWorker := worker.StartAuditWorker(dispatcher, service.NewAuditService(logger, metrics), logger, 0)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		AccountRepo: accountRepo,
		Sessions:    sessions,
		Tokens:      tokens,
		Limiter:     limiter,
		Avatars:     avatars,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})
	reconciler := service.NewReconciler(service.ReconcilerDependencies{
		AccountRepo:    accountRepo,
		ProfileRepo:    profileRepo,
		DepartmentRepo: departmentRepo,
		Avatars:        avatars,
		Tx:             txManager,
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         logger,
	})
	accountService := service.NewAccountService(service.AccountDependencies{
		AccountRepo:    accountRepo,
		ProfileRepo:    profileRepo,
		DepartmentRepo: departmentRepo,
		Avatars:        avatars,
		Tx:             txManager,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	departmentService := service.NewDepartmentService(departmentRepo, dispatcher, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    cfg.App.BodyLimitMB << 20,
		ErrorHandler: httptransport.NewErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{
		Logger:      logger,
		Metrics:     metrics,
		Timeout:     cfg.App.RequestTimeout(),
		CORS:        cfg.CORS,
		Session:     cfg.Session,
		CSRFStorage: persistence.NewRedisStorage(redis.Client, "csrf:"),
		Auth:        auth.NewAuthMiddleware(tokens, sessions, accountRepo, cfg.Session.CookieName),
	})
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:        handlers.NewAuthHandler(authService, cfg.Session, cfg.Media.URLPrefix),
		AdminUsers:  handlers.NewAdminUsersHandler(accountService, reconciler, cfg.Media.URLPrefix),
		Employee:    handlers.NewEmployeeHandler(accountService, reconciler, cfg.Media.URLPrefix),
		Departments: handlers.NewDepartmentsHandler(departmentService),
		Metrics:     adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})),
		MediaRoot:   cfg.Media.Root,
		MediaPrefix: cfg.Media.URLPrefix,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := auditWorker.Stop(shutdownCtx); err != nil {
		logger.Warn("audit worker stop", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
