package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/leavekeeper/leavekeeper/internal/app"
	"github.com/leavekeeper/leavekeeper/internal/directory"
	jobmetrics "github.com/leavekeeper/leavekeeper/internal/jobs"
	"github.com/leavekeeper/leavekeeper/internal/leave"
	"github.com/leavekeeper/leavekeeper/internal/observability"
	"github.com/leavekeeper/leavekeeper/internal/platform/cache"
	"github.com/leavekeeper/leavekeeper/internal/platform/db"
	"github.com/leavekeeper/leavekeeper/internal/shared"
	"github.com/leavekeeper/leavekeeper/jobs"
)

const notifyLedgerRetention = 30 * 24 * time.Hour

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping sweeper startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	directoryClient := directory.NewClient(cfg.DirectoryBaseURL, cfg.DirectoryToken, cfg.DirectoryTenantID, cfg.DirectoryTimeout)
	notifyLedger := shared.NewIdempotencyStore(pool)

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	// Cannot authenticate or outrank the marker: abort rather than let every
	// sweep fail the same way.
	adapter, err := directory.NewAdapter(ctx, directoryClient, cfg.LeaveMarkerID, notifyLedger, metrics, logger)
	if err != nil {
		logger.Error("init directory adapter", slog.Any("error", err))
		os.Exit(1)
	}

	sweepCfg := leave.SweepConfig{
		Repo:       leave.NewRepository(pool),
		Actions:    adapter,
		Lock:       shared.NewSweepLock(redisClient, cfg.SweepLockTTL),
		Metrics:    metrics,
		Logger:     logger,
		BatchLimit: cfg.SweepBatchLimit,
	}
	startSweep := leave.NewStartSweep(sweepCfg)
	endSweep := leave.NewEndSweep(sweepCfg)

	startTask, err := jobs.NewSweepTask(jobs.TaskLeaveStartSweep, "cron")
	if err != nil {
		logger.Error("build start sweep task", slog.Any("error", err))
		os.Exit(1)
	}
	endTask, err := jobs.NewSweepTask(jobs.TaskLeaveEndSweep, "cron")
	if err != nil {
		logger.Error("build end sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	cronSpec := fmt.Sprintf("@every %s", cfg.SweepInterval)
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLeaveStartSweep, Handler: jobs.NewSweepHandler(startSweep, logger, jobMetrics)},
			{Type: jobs.TaskLeaveEndSweep, Handler: jobs.NewSweepHandler(endSweep, logger, jobMetrics)},
			{Type: jobs.TaskNotifyLedgerTrim, Handler: jobs.NewLedgerTrimHandler(notifyLedger, notifyLedgerRetention, logger, jobMetrics)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cronSpec, Task: startTask},
			{Spec: cronSpec, Task: endTask},
			{Spec: "@every 24h", Task: jobs.NewLedgerTrimTask()},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler()}
	go func() {
		logger.Info("serving sweep metrics", slog.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("sweeper running",
		slog.String("interval", cfg.SweepInterval.String()),
		slog.Int("batch_limit", cfg.SweepBatchLimit))
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
