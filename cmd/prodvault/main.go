package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prodvault/prodvault/internal/access"
	"github.com/prodvault/prodvault/internal/app"
	"github.com/prodvault/prodvault/internal/auth"
	"github.com/prodvault/prodvault/internal/observability"
	"github.com/prodvault/prodvault/internal/platform/cache"
	"github.com/prodvault/prodvault/internal/platform/db"
	"github.com/prodvault/prodvault/internal/platform/kv"
	"github.com/prodvault/prodvault/internal/registry"
	"github.com/prodvault/prodvault/internal/shared"
	"github.com/prodvault/prodvault/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	if cfg.IsProduction() && cfg.AuthTrustHeader {
		logger.Warn("AUTH_TRUST_HEADER enabled in production; principals are taken from a bare header")
	}

	var pool *pgxpool.Pool
	if cfg.PGDSN != "" {
		pool, err = db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
	}

	store, err := buildStore(ctx, cfg, pool, logger)
	if err != nil {
		logger.Error("build store", slog.Any("error", err))
		os.Exit(1)
	}

	var recorder shared.AuditRecorder
	if pool != nil {
		auditLogger := shared.NewAuditLogger(pool)
		if err := auditLogger.EnsureSchema(ctx); err != nil {
			logger.Error("ensure audit schema", slog.Any("error", err))
			os.Exit(1)
		}
		recorder = auditLogger
	} else {
		recorder = shared.NewLogAuditRecorder(logger)
	}

	registryService := registry.NewService(store, access.New(store), recorder, logger)
	registryHandler := registry.NewHandler(logger, registryService)

	keyManager := auth.NewManager(store, 0)
	authMiddleware := auth.Middleware{
		Manager:     keyManager,
		Logger:      logger,
		TrustHeader: cfg.AuthTrustHeader,
	}
	authHandler := auth.NewHandler(logger, keyManager, registryService)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("build jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, jobsClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Auth:            authMiddleware,
		Metrics:         observability.NewMetrics(),
		RegistryHandler: registryHandler,
		AuthHandler:     authHandler,
		JobsHandler:     jobsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func buildStore(ctx context.Context, cfg *app.Config, pool *pgxpool.Pool, logger *slog.Logger) (kv.Store, error) {
	switch cfg.StoreDriver {
	case app.StorePostgres:
		store := kv.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case app.StoreRedis:
		client, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		return kv.NewRedisStore(client, cfg.RedisPrefix), nil
	default:
		logger.Info("using in-memory store; state is lost on restart")
		return kv.NewMemoryStore(), nil
	}
}
