package service

import (
	"context"
	"database/sql"
	"fmt"

	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"sleep-analyzer/internal/analyzer"
	"sleep-analyzer/internal/config"
	"sleep-analyzer/internal/consumer"
	"sleep-analyzer/internal/database"
	"sleep-analyzer/internal/mqtt"
	"sleep-analyzer/internal/notify"
	"sleep-analyzer/internal/redis"
	"sleep-analyzer/internal/repository"
)

// AnalyzerService wires the ingestion and analysis components together.
type AnalyzerService struct {
	config         *config.Config
	logger         *zap.Logger
	db             *sql.DB
	redisClient    *goredis.Client
	mqttClient     *mqtt.Client
	analyzer       *analyzer.Analyzer
	mqttConsumer   *consumer.MQTTConsumer
	streamConsumer *consumer.StreamConsumer
}

// NewAnalyzerService connects the backing stores and builds every
// component.
func NewAnalyzerService(cfg *config.Config, logger *zap.Logger) (*AnalyzerService, error) {
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	redisClient := redis.NewClient(&cfg.Redis)
	if err := redis.Ping(context.Background(), redisClient); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	mqttClient, err := mqtt.NewClient(&cfg.MQTT, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	seriesRepo := repository.NewSeriesRepository(db, logger)
	measurementRepo := repository.NewMeasurementRepository(db, logger)
	cacheRepo := repository.NewHypnogramCacheRepository(db, logger)

	sleepAnalyzer := analyzer.New(seriesRepo, measurementRepo, cacheRepo, cfg.ModelConfig(), logger)
	cacheManager := consumer.NewCacheManager(cfg, redisClient, logger)

	// A nil notifier means webhook notifications are off; the interface
	// value must stay nil in that case, not wrap a nil pointer.
	var notifier consumer.Notifier
	if webhook := notify.NewWebhookNotifier(cfg.Webhook.URL, logger); webhook != nil {
		notifier = webhook
	}

	mqttConsumer := consumer.NewMQTTConsumer(cfg, mqttClient, redisClient, seriesRepo, measurementRepo, logger)
	streamConsumer := consumer.NewStreamConsumer(cfg, redisClient, sleepAnalyzer, cacheManager, notifier, logger)

	return &AnalyzerService{
		config:         cfg,
		logger:         logger,
		db:             db,
		redisClient:    redisClient,
		mqttClient:     mqttClient,
		analyzer:       sleepAnalyzer,
		mqttConsumer:   mqttConsumer,
		streamConsumer: streamConsumer,
	}, nil
}

// Analyzer exposes the pipeline orchestrator for maintenance commands.
func (s *AnalyzerService) Analyzer() *analyzer.Analyzer {
	return s.analyzer
}

// Start repairs missing caches, then runs both consumers until the context
// ends or one of them fails.
func (s *AnalyzerService) Start(ctx context.Context) error {
	s.logger.Info("Starting sleep analyzer components")

	// Sessions that closed while the service was down never got an
	// analyze request; pick them up before consuming new ones.
	if err := s.analyzer.RepairAll(ctx, func(done, total int, seriesID int64) {
		s.logger.Info("Repair progress",
			zap.Int("done", done),
			zap.Int("total", total),
			zap.Int64("series_id", seriesID))
	}); err != nil {
		return fmt.Errorf("failed to repair sessions: %w", err)
	}

	errs := make(chan error, 2)
	go func() {
		if err := s.mqttConsumer.Start(ctx); err != nil {
			errs <- fmt.Errorf("mqtt consumer: %w", err)
		}
	}()
	go func() {
		if err := s.streamConsumer.Start(ctx); err != nil {
			errs <- fmt.Errorf("stream consumer: %w", err)
		}
	}()

	s.logger.Info("Sleep analyzer started")

	select {
	case <-ctx.Done():
		return nil
	case err := <-errs:
		return err
	}
}

// Stop shuts the transports and stores down in dependency order.
func (s *AnalyzerService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping sleep analyzer")

	if err := s.mqttConsumer.Stop(ctx); err != nil {
		s.logger.Error("Error stopping MQTT consumer", zap.Error(err))
	}
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Error closing Redis client", zap.Error(err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Error closing database connection", zap.Error(err))
		}
	}

	s.logger.Info("Sleep analyzer stopped")
	return nil
}
