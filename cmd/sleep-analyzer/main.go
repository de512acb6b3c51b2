package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"sleep-analyzer/internal/config"
	"sleep-analyzer/internal/logger"
	"sleep-analyzer/internal/service"
)

func main() {
	rescale := flag.Bool("rescale", false, "recompute every finished session with the current model parameters, then exit")
	reportSeries := flag.Int64("report", 0, "export the given session's sleep report to sleep-report-<id>.xlsx, then exit")
	flag.Parse()

	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level, cfg.Log.Format, "sleep-analyzer")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting sleep-analyzer service",
		zap.String("mqtt_broker", cfg.MQTT.Broker),
		zap.String("sensor_topic", cfg.Ingest.SensorTopic),
		zap.String("analyze_stream", cfg.Analyze.Stream),
	)

	analyzerService, err := service.NewAnalyzerService(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to create analyzer service", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *reportSeries != 0 {
		data, err := analyzerService.Analyzer().ExportReport(ctx, *reportSeries)
		if stopErr := analyzerService.Stop(ctx); stopErr != nil {
			zapLogger.Error("Error during shutdown", zap.Error(stopErr))
		}
		if err != nil {
			zapLogger.Fatal("Report export failed", zap.Error(err))
		}
		name := fmt.Sprintf("sleep-report-%d.xlsx", *reportSeries)
		if err := os.WriteFile(name, data, 0o644); err != nil {
			zapLogger.Fatal("Failed to write report file", zap.Error(err))
		}
		zapLogger.Info("Report exported", zap.String("file", name))
		return
	}

	if *rescale {
		err := analyzerService.Analyzer().RescaleAll(ctx, func(done, total int, seriesID int64) {
			zapLogger.Info("Rescale progress",
				zap.Int("done", done),
				zap.Int("total", total),
				zap.Int64("series_id", seriesID))
		})
		if stopErr := analyzerService.Stop(ctx); stopErr != nil {
			zapLogger.Error("Error during shutdown", zap.Error(stopErr))
		}
		if err != nil {
			zapLogger.Fatal("Rescale failed", zap.Error(err))
		}
		zapLogger.Info("Rescale complete")
		return
	}

	go func() {
		if err := analyzerService.Start(ctx); err != nil {
			zapLogger.Fatal("Failed to start analyzer service", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	zapLogger.Info("Received signal, shutting down", zap.String("signal", sig.String()))

	cancel()
	if err := analyzerService.Stop(ctx); err != nil {
		zapLogger.Error("Error during shutdown", zap.Error(err))
	}

	zapLogger.Info("Service stopped")
}
