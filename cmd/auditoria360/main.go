package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/auditoria360/auditoria360/internal/app"
	"github.com/auditoria360/auditoria360/internal/audit"
	"github.com/auditoria360/auditoria360/internal/authn"
	"github.com/auditoria360/auditoria360/internal/observability"
	"github.com/auditoria360/auditoria360/internal/parametros"
	"github.com/auditoria360/auditoria360/internal/platform/cache"
	"github.com/auditoria360/auditoria360/internal/platform/db"
	"github.com/auditoria360/auditoria360/jobs"
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

	var pool *pgxpool.Pool
	if cfg.StoreDriver == app.StorePostgres {
		if cfg.DBAutoMigrate {
			if err := db.Migrate(cfg.PGDSN, logger); err != nil {
				logger.Error("migrate schema", slog.Any("error", err))
				os.Exit(1)
			}
		}
		pool, err = db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
	}

	changes, closeChanges, err := buildChangeLog(ctx, cfg, pool, logger)
	if err != nil {
		logger.Error("build change log", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeChanges()

	var repo parametros.Repository
	switch cfg.StoreDriver {
	case app.StoreMemory:
		logger.Warn("using in-memory parameter store; data is lost on restart")
		repo = parametros.NewMemoryRepository()
	default:
		repo = parametros.NewPostgresRepository(pool)
	}

	metrics := observability.NewMetrics(parametros.KindNames()...)
	service := parametros.NewService(repo, changes, metrics, logger)
	handler := parametros.NewHandler(logger, service)

	auth := authn.New(cfg.AdminJWTSecret, logger)
	if !auth.Enabled() {
		logger.Warn("ADMIN_JWT_SECRET not set; /parametros is unauthenticated")
	}

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		ParametrosHandler: handler,
		Auth:              auth,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("store", cfg.StoreDriver),
			slog.String("audit_sink", cfg.AuditSink))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// buildChangeLog selects the audit.Log named by AUDIT_SINK. The returned
// func releases any client it opened.
func buildChangeLog(ctx context.Context, cfg *app.Config, pool *pgxpool.Pool, logger *slog.Logger) (audit.Log, func(), error) {
	noop := func() {}
	switch cfg.AuditSink {
	case app.AuditNone:
		return audit.NopLog{}, noop, nil
	case app.AuditPostgres:
		if pool == nil {
			return nil, noop, errors.New("postgres change log requires a database pool")
		}
		return audit.NewPostgresLog(pool), noop, nil
	case app.AuditRedis:
		client, err := cache.New(ctx, cfg.Redis())
		if err != nil {
			return nil, noop, err
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
		return audit.NewStreamLog(client, cfg.AuditStream, cfg.AuditStreamMaxLen), closeFn, nil
	case app.AuditQueue:
		client := jobs.NewClient(cfg.Redis().AsynqOpt())
		closeFn := func() {
			if err := client.Close(); err != nil {
				logger.Warn("asynq client close", slog.Any("error", err))
			}
		}
		return jobs.NewQueueLog(client), closeFn, nil
	default:
		return nil, noop, fmt.Errorf("unknown audit sink %q", cfg.AuditSink)
	}
}
