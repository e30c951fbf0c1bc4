package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/auditoria360/auditoria360/internal/app"
	"github.com/auditoria360/auditoria360/internal/audit"
	"github.com/auditoria360/auditoria360/internal/platform/cache"
	"github.com/auditoria360/auditoria360/internal/platform/db"
	"github.com/auditoria360/auditoria360/jobs"
)

// The worker drains parametros:change tasks enqueued under AUDIT_SINK=queue
// into the durable change log: the parametro_changes table when the store is
// Postgres, the Redis stream otherwise.
func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	var sink audit.Log
	switch cfg.StoreDriver {
	case app.StorePostgres:
		pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
		if err != nil {
			logger.Error("connect database", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		sink = audit.NewPostgresLog(pool)
	default:
		client, err := cache.New(ctx, cfg.Redis())
		if err != nil {
			logger.Error("connect redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		sink = audit.NewStreamLog(client, cfg.AuditStream, cfg.AuditStreamMaxLen)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   cfg.Redis().AsynqOpt(),
		Logger:      logger,
		Changes:     jobs.NewChangeHandler(sink, logger),
		Concurrency: cfg.WorkerConcurrency,
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
