// cmd/push-manager/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"

	"loyalty-admin/internal/common/camunda"
	"loyalty-admin/internal/common/config"
	"loyalty-admin/internal/common/logger"
	"loyalty-admin/internal/common/observability"
	"loyalty-admin/internal/dispatch"
	spc "loyalty-admin/internal/workers/notification/send-push-campaign"
	np "loyalty-admin/internal/workers/principal/normalize-permissions"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err,
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	bootLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format).With(
		zap.String("service", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	log.Info("Starting push manager", map[string]interface{}{
		"version":   cfg.App.Version,
		"transport": cfg.Dispatch.Transport,
		"source":    cfg.Customers.Source,
	})

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Zeebe ---
	zeebe, err := camunda.Connect(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
	}, log)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	log.Info("Zeebe client connected successfully", nil)

	// --- Collaborators ---
	deps, err := buildDependencies(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("dependency initialization failed", zap.Error(err))
	}
	defer deps.Close()

	dispatcher := dispatch.NewDispatcher(deps.submitter, dispatch.Options{
		MaxBatchSize: cfg.Dispatch.MaxBatchSize,
		Timeout:      config.GetDuration(cfg.Dispatch.Timeout),
	}, log, obs)

	// --- Workers ---
	var workers []worker.JobWorker

	campaign, err := spc.NewHandler(spc.HandlerOptions{
		AppConfig:  cfg,
		Source:     deps.source,
		Dispatcher: dispatcher,
		Logger:     log,
	})
	if err != nil {
		zapLog.Fatal("send-push-campaign handler failed", zap.Error(err))
	}
	workers = appendWorker(workers, camunda.StartWorker(zeebe.Zeebe(), spc.TaskType,
		config.GetWorkerConfig(cfg, spc.TaskType), campaign.Handle, log))

	permissions := np.NewHandler(np.HandlerOptions{
		AppConfig: cfg,
		Store:     deps.principals,
		Logger:    log,
	})
	workers = appendWorker(workers, camunda.StartWorker(zeebe.Zeebe(), np.TaskType,
		config.GetWorkerConfig(cfg, np.TaskType), permissions.Handle, log))

	log.Info("Workers registered", map[string]interface{}{"count": len(workers)})

	// --- Health & Metrics Server ---
	checks := deps.readinessChecks()
	checks["zeebe"] = zeebe.HealthCheck
	srv := &http.Server{
		Addr:              cfg.App.HTTPAddress,
		Handler:           newHealthMux(checks),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("Health/Metrics server listening", map[string]interface{}{"address": cfg.App.HTTPAddress})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Health/Metrics server failed", map[string]interface{}{"error": err})
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutdown signal received, stopping workers...", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, jw := range workers {
		jw.Close()
		jw.AwaitClose()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Error stopping health server", map[string]interface{}{"error": err})
	}
	if err := zeebe.Close(); err != nil {
		log.Error("Error closing Zeebe client", map[string]interface{}{"error": err})
	}

	log.Info("Push manager stopped gracefully", nil)
}

func appendWorker(workers []worker.JobWorker, jw worker.JobWorker) []worker.JobWorker {
	if jw == nil {
		return workers
	}
	return append(workers, jw)
}
