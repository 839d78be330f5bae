package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/denial-appeal-assistant/internal/bootstrap"
	"github.com/kirillkom/denial-appeal-assistant/internal/config"
	"github.com/kirillkom/denial-appeal-assistant/internal/observability/logging"
	"github.com/kirillkom/denial-appeal-assistant/internal/observability/metrics"
)

const serviceName = "denial-worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject, "mock_ocr", cfg.UseMockOCR)
	err = app.Queue.SubscribeDocumentIngested(ctx, func(handlerCtx context.Context, documentID string) error {
		return processDocument(handlerCtx, app, workerMetrics, documentID)
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}

func processDocument(ctx context.Context, app *bootstrap.App, workerMetrics *metrics.WorkerMetrics, documentID string) error {
	if doc, err := app.Repo.GetByID(ctx, documentID); err == nil {
		workerMetrics.ObserveQueueLag(serviceName, time.Since(doc.CreatedAt))
	}

	workerMetrics.StartDocument()
	start := time.Now()
	err := app.Process.ProcessByID(ctx, documentID)
	workerMetrics.FinishDocument(serviceName, time.Since(start), err)
	if err != nil {
		return err
	}

	if doc, err := app.Repo.GetByID(ctx, documentID); err == nil && doc.Text == "" {
		workerMetrics.RecordEmptyText(serviceName)
	}
	return nil
}
