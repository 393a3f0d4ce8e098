package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/odyssey-erp/bokslut/internal/app"
	jobmetrics "github.com/odyssey-erp/bokslut/internal/jobs"
	"github.com/odyssey-erp/bokslut/internal/observability"
	"github.com/odyssey-erp/bokslut/internal/platform/db"
	"github.com/odyssey-erp/bokslut/jobs"
)

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

	logger := app.NewLogger(cfg).With(slog.String("process", "worker"))

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()
	services := app.NewServices(pool, cfg, metrics, logger)
	jobMetrics := jobmetrics.NewMetrics(prometheus.WrapRegistererWith(prometheus.Labels{"process": "worker"}, metrics.Registerer()))

	invoiceJob := jobs.NewInvoicePostingJob(services.Invoicing, logger, jobMetrics)
	integrityJob := jobs.NewLedgerIntegrityJob(jobs.NewPgIntegrityStore(pool), logger, jobMetrics)

	var cron []jobs.CronRegistration
	if cfg.IntegrityCron != "" {
		integrityTask, err := jobs.NewLedgerIntegrityTask(nil)
		if err != nil {
			logger.Error("build integrity task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{
			Spec:    cfg.IntegrityCron,
			Task:    integrityTask,
			Options: []asynq.Option{asynq.MaxRetry(3)},
		})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Location:    cfg.Closing().Location,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskInvoiceSent, Handler: invoiceJob.HandleSent},
			{Type: jobs.TaskInvoicePaid, Handler: invoiceJob.HandlePaid},
			{Type: jobs.TaskLedgerIntegrity, Handler: integrityJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.WorkerMetricsAddr != "" {
		mux := chi.NewRouter()
		mux.Method(http.MethodGet, "/metrics", metrics.Handler())
		metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("worker metrics server", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
