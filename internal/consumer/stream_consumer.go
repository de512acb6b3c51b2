package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"sleep-analyzer/internal/analyzer"
	"sleep-analyzer/internal/config"
	"sleep-analyzer/internal/models"
	"sleep-analyzer/internal/redis"
)

// Recomputer rebuilds one session's hypnogram. Satisfied by
// analyzer.Analyzer.
type Recomputer interface {
	Recompute(ctx context.Context, seriesID int64) (*analyzer.Result, error)
}

// Notifier announces a recomputed session to the outside world. May be nil
// when notifications are disabled.
type Notifier interface {
	NotifyRecomputed(ctx context.Context, result *analyzer.Result) error
}

// StreamConsumer reads analyze requests from the Redis stream and drives
// the analyzer, the realtime cache and the notifier.
type StreamConsumer struct {
	config      *config.Config
	redisClient *goredis.Client
	recomputer  Recomputer
	cache       *CacheManager
	notifier    Notifier
	logger      *zap.Logger
	metrics     *Metrics
	batchSize   int64
}

// NewStreamConsumer creates the consumer.
func NewStreamConsumer(
	cfg *config.Config,
	redisClient *goredis.Client,
	recomputer Recomputer,
	cache *CacheManager,
	notifier Notifier,
	logger *zap.Logger,
) *StreamConsumer {
	return &StreamConsumer{
		config:      cfg,
		redisClient: redisClient,
		recomputer:  recomputer,
		cache:       cache,
		notifier:    notifier,
		logger:      logger,
		metrics:     &Metrics{StartTime: time.Now()},
		batchSize:   10,
	}
}

// Metrics exposes the counters for the periodic report and for tests.
func (c *StreamConsumer) Metrics() *Metrics {
	return c.metrics
}

// Start creates the consumer group and runs the consume loop until the
// context ends. Transient stream errors back off exponentially up to 30s.
func (c *StreamConsumer) Start(ctx context.Context) error {
	stream := c.config.Analyze.Stream
	if err := redis.CreateConsumerGroup(ctx, c.redisClient, stream, c.config.Analyze.ConsumerGroup); err != nil {
		return fmt.Errorf("failed to create consumer group for %s: %w", stream, err)
	}

	c.logger.Info("Stream consumer started",
		zap.String("stream", stream),
		zap.String("consumer_group", c.config.Analyze.ConsumerGroup),
		zap.String("consumer_name", c.config.Analyze.ConsumerName))

	metricsCtx, metricsCancel := context.WithCancel(ctx)
	defer metricsCancel()
	go c.reportMetrics(metricsCtx)

	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			if err := c.consumeOnce(ctx, stream); err != nil {
				c.logger.Error("Failed to consume stream",
					zap.Error(err),
					zap.Duration("backoff", backoff))
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(backoff):
					backoff *= 2
					if backoff > maxBackoff {
						backoff = maxBackoff
					}
				}
			} else {
				backoff = time.Second
			}
		}
	}
}

// consumeOnce reads one batch and processes each request, acknowledging
// every delivered message so a poison request cannot wedge the group.
func (c *StreamConsumer) consumeOnce(ctx context.Context, stream string) error {
	messages, err := redis.ReadFromStream(ctx, c.redisClient, stream,
		c.config.Analyze.ConsumerGroup, c.config.Analyze.ConsumerName, c.batchSize)
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, msg := range messages {
		c.metrics.IncrementProcessed()
		if err := c.processMessage(ctx, msg); err != nil {
			c.logger.Error("Failed to process analyze request",
				zap.String("stream_id", msg.ID),
				zap.Error(err))
		}
		if err := redis.AckMessage(ctx, c.redisClient, stream, c.config.Analyze.ConsumerGroup, msg.ID); err != nil {
			c.logger.Error("Failed to ack message",
				zap.String("stream_id", msg.ID),
				zap.Error(err))
		}
	}
	return nil
}

func (c *StreamConsumer) processMessage(ctx context.Context, msg redis.StreamMessage) error {
	started := time.Now()

	dataStr, ok := msg.Values["data"].(string)
	if !ok {
		c.metrics.IncrementFailed("parse")
		return fmt.Errorf("missing data field in stream message")
	}

	var request models.AnalyzeRequest
	if err := json.Unmarshal([]byte(dataStr), &request); err != nil {
		c.metrics.IncrementFailed("parse")
		return fmt.Errorf("failed to unmarshal analyze request: %w", err)
	}

	result, err := c.recomputer.Recompute(ctx, request.SeriesID)
	if err != nil {
		c.metrics.IncrementFailed("recompute")
		return fmt.Errorf("failed to recompute series %d: %w", request.SeriesID, err)
	}

	if !result.Persisted {
		c.metrics.IncrementSkipped()
		c.logger.Warn("Analyze request produced no hypnogram",
			zap.Int64("series_id", request.SeriesID))
		return nil
	}

	if err := c.cache.SetHypnogram(ctx, request.SeriesID, result.Segments, result.Distribution); err != nil {
		c.metrics.IncrementFailed("cache")
		return fmt.Errorf("failed to cache hypnogram for series %d: %w", request.SeriesID, err)
	}

	if c.notifier != nil {
		if err := c.notifier.NotifyRecomputed(ctx, result); err != nil {
			// Notification is best effort; the hypnogram itself is safe.
			c.logger.Error("Failed to notify webhook",
				zap.Int64("series_id", request.SeriesID),
				zap.Error(err))
		}
	}

	c.metrics.IncrementSucceeded(time.Since(started))
	return nil
}

// reportMetrics logs a snapshot every minute.
func (c *StreamConsumer) reportMetrics(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot := c.metrics.GetSnapshot()
			c.logger.Info("Stream consumer metrics",
				zap.Int64("processed", snapshot.MessagesProcessed),
				zap.Int64("succeeded", snapshot.MessagesSucceeded),
				zap.Int64("failed", snapshot.MessagesFailed),
				zap.Int64("skipped", snapshot.MessagesSkipped),
				zap.Duration("total_processing_time", snapshot.TotalProcessingTime),
				zap.Duration("uptime", time.Since(snapshot.StartTime)))
		}
	}
}
