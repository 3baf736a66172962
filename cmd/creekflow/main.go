// Command creekflow runs the Sugar Creek flow prediction service: scheduled
// real-time prediction runs against the USGS gauges plus an HTTP surface for
// on-demand lookups.
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

	"github.com/robfig/cron/v3"

	httpadapter "github.com/couchcryptid/creek-flow-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/creek-flow-service/internal/adapter/kafka"
	"github.com/couchcryptid/creek-flow-service/internal/adapter/model"
	"github.com/couchcryptid/creek-flow-service/internal/adapter/sqlite"
	"github.com/couchcryptid/creek-flow-service/internal/adapter/usgs"
	"github.com/couchcryptid/creek-flow-service/internal/config"
	"github.com/couchcryptid/creek-flow-service/internal/observability"
	"github.com/couchcryptid/creek-flow-service/internal/pipeline"
)

// scheduledRunTimeout bounds one cron-triggered prediction run.
const scheduledRunTimeout = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	// The model is loaded once at startup and passed by reference; its schema
	// drives feature reconciliation for every run.
	m, err := model.Load(cfg.ModelPath)
	if err != nil {
		logger.Error("failed to load model", "path", cfg.ModelPath, "error", err)
		os.Exit(1)
	}
	logger.Info("model loaded", "version", m.Version(), "features", len(m.FeatureNames()))

	client := usgs.NewClient(cfg.USGSTimeout, metrics, logger)
	reader := usgs.NewCachedReader(client, cfg.USGSCacheSize, metrics)

	recorder, err := sqlite.NewRecorder(cfg.LogDBPath, metrics, logger)
	if err != nil {
		logger.Error("failed to open observation log", "path", cfg.LogDBPath, "error", err)
		os.Exit(1)
	}

	// Prediction publishing is feature-flagged via KAFKA_BROKERS / KAFKA_ENABLED.
	var publisher pipeline.Publisher
	var kafkaPub *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		kafkaPub = kafkaadapter.NewPublisher(cfg, logger)
		publisher = kafkaPub
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka publishing disabled")
	}

	assembler := pipeline.NewAssembler(reader, cfg.Gauges, metrics, logger)
	runner := pipeline.NewRunner(assembler, m, recorder, publisher, cfg.PredictionLabel, metrics, logger)

	srv := httpadapter.NewServer(cfg.HTTPAddr, runner, recorder, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Scheduled real-time runs.
	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.CronSchedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, scheduledRunTimeout)
		defer cancel()
		if _, err := runner.RunRealTime(runCtx); err != nil {
			logger.Error("scheduled prediction run failed", "error", err)
		}
	})
	if err != nil {
		logger.Error("invalid cron schedule", "schedule", cfg.CronSchedule, "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	metrics.SchedulerRunning.Set(1)
	logger.Info("scheduler started", "schedule", cfg.CronSchedule)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	schedCtx := scheduler.Stop()
	metrics.SchedulerRunning.Set(0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Let an in-flight scheduled run finish before closing its sinks.
	select {
	case <-schedCtx.Done():
	case <-shutdownCtx.Done():
		logger.Warn("scheduled run did not finish before shutdown deadline")
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaPub != nil {
		if err := kafkaPub.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	if err := recorder.Close(); err != nil {
		logger.Error("observation log close error", "error", err)
	}

	logger.Info("shutdown complete")
}
