package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"sleep-analyzer/internal/config"
	"sleep-analyzer/internal/models"
	"sleep-analyzer/internal/mqtt"
	"sleep-analyzer/internal/redis"
	"sleep-analyzer/internal/repository"
)

// MQTTConsumer ingests wearable measurement batches from the sensor topic.
// One payload is a JSON array of sensor messages; samples are appended to
// the device's open session and a closing session is handed to the analyze
// stream.
type MQTTConsumer struct {
	config          *config.Config
	mqttClient      *mqtt.Client
	redisClient     *goredis.Client
	seriesRepo      *repository.SeriesRepository
	measurementRepo *repository.MeasurementRepository
	logger          *zap.Logger
}

// NewMQTTConsumer creates the consumer.
func NewMQTTConsumer(
	cfg *config.Config,
	mqttClient *mqtt.Client,
	redisClient *goredis.Client,
	seriesRepo *repository.SeriesRepository,
	measurementRepo *repository.MeasurementRepository,
	logger *zap.Logger,
) *MQTTConsumer {
	return &MQTTConsumer{
		config:          cfg,
		mqttClient:      mqttClient,
		redisClient:     redisClient,
		seriesRepo:      seriesRepo,
		measurementRepo: measurementRepo,
		logger:          logger,
	}
}

// Start subscribes to the sensor topic and blocks until the context ends.
func (c *MQTTConsumer) Start(ctx context.Context) error {
	topic := c.config.Ingest.SensorTopic
	if topic == "" {
		return fmt.Errorf("sensor topic not configured")
	}

	if err := c.mqttClient.Subscribe(topic, c.config.MQTT.QoS, c.HandleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to sensor topic: %w", err)
	}

	c.logger.Info("MQTT consumer started",
		zap.String("topic", topic),
		zap.String("stream", c.config.Analyze.Stream))

	<-ctx.Done()
	return nil
}

// Stop unsubscribes from the sensor topic.
func (c *MQTTConsumer) Stop(ctx context.Context) error {
	if topic := c.config.Ingest.SensorTopic; topic != "" {
		if err := c.mqttClient.Unsubscribe(topic); err != nil {
			c.logger.Error("Failed to unsubscribe", zap.Error(err))
		}
	}
	c.logger.Info("MQTT consumer stopped")
	return nil
}

// HandleMessage processes one published payload. A malformed message inside
// the array is logged and skipped, it never fails the whole batch.
func (c *MQTTConsumer) HandleMessage(topic string, payload []byte) error {
	c.logger.Debug("Received MQTT message",
		zap.String("topic", topic),
		zap.Int("payload_size", len(payload)))

	var messages []models.SensorMessage
	if err := json.Unmarshal(payload, &messages); err != nil {
		return fmt.Errorf("failed to unmarshal sensor payload: %w", err)
	}

	ctx := context.Background()
	batch := newSampleBatch()
	for i := range messages {
		if err := c.processMessage(ctx, batch, &messages[i]); err != nil {
			c.logger.Error("Failed to process sensor message",
				zap.String("message_id", messages[i].MessageID),
				zap.String("device_id", messages[i].DeviceID),
				zap.String("type", messages[i].Type),
				zap.Error(err))
		}
	}
	return c.flushAll(ctx, batch)
}

// sampleBatch buffers consecutive samples per session so one payload turns
// into one insert per session, and caches each device's open session for
// the duration of the payload.
type sampleBatch struct {
	pending    map[int64][]models.Measurement
	openSeries map[string]*models.Series
}

func newSampleBatch() *sampleBatch {
	return &sampleBatch{
		pending:    make(map[int64][]models.Measurement),
		openSeries: make(map[string]*models.Series),
	}
}

func (c *MQTTConsumer) processMessage(ctx context.Context, batch *sampleBatch, msg *models.SensorMessage) error {
	if msg.DeviceID == "" {
		return fmt.Errorf("message without device_id")
	}
	if msg.MessageID == "" {
		// Bridges predating the message_id field; assign one so the logs
		// still correlate.
		msg.MessageID = uuid.NewString()
	}

	timestamp := time.UnixMilli(msg.Timestamp).UTC()

	switch msg.Type {
	case models.MessageTypeSessionStart:
		return c.handleSessionStart(ctx, batch, msg.DeviceID, timestamp)
	case models.MessageTypeSessionEnd:
		return c.handleSessionEnd(ctx, batch, msg.DeviceID, timestamp)
	case models.MessageTypeSample:
		return c.handleSample(ctx, batch, msg, timestamp)
	case models.MessageTypeSatisfaction:
		return c.handleSatisfaction(ctx, batch, msg)
	default:
		return fmt.Errorf("unknown message type: %s", msg.Type)
	}
}

func (c *MQTTConsumer) handleSessionStart(ctx context.Context, batch *sampleBatch, deviceID string, start time.Time) error {
	if err := c.flushDevice(ctx, batch, deviceID); err != nil {
		return err
	}

	// A still-open session means the previous session_end never arrived.
	// Close it at the new start so it becomes analyzable.
	if open, err := c.openSeriesFor(ctx, batch, deviceID); err != nil {
		return err
	} else if open != nil {
		c.logger.Warn("Closing unterminated session",
			zap.Int64("series_id", open.ID),
			zap.String("device_id", deviceID))
		if err := c.seriesRepo.Close(ctx, open.ID, start); err != nil {
			return err
		}
	}

	id, err := c.seriesRepo.Create(ctx, deviceID, start)
	if err != nil {
		return err
	}
	batch.openSeries[deviceID] = &models.Series{ID: id, DeviceID: deviceID, StartDate: start}
	return nil
}

func (c *MQTTConsumer) handleSessionEnd(ctx context.Context, batch *sampleBatch, deviceID string, end time.Time) error {
	if err := c.flushDevice(ctx, batch, deviceID); err != nil {
		return err
	}

	open, err := c.openSeriesFor(ctx, batch, deviceID)
	if err != nil {
		return err
	}
	if open == nil {
		c.logger.Warn("session_end without open session", zap.String("device_id", deviceID))
		return nil
	}

	if err := c.seriesRepo.Close(ctx, open.ID, end); err != nil {
		return err
	}
	delete(batch.openSeries, deviceID)

	request := models.AnalyzeRequest{
		SeriesID:    open.ID,
		DeviceID:    deviceID,
		RequestedAt: end.UnixMilli(),
	}
	if _, err := redis.PublishJSONToStream(ctx, c.redisClient, c.config.Analyze.Stream, request); err != nil {
		return fmt.Errorf("failed to publish analyze request: %w", err)
	}

	c.logger.Info("Session closed, analyze requested",
		zap.Int64("series_id", open.ID),
		zap.String("device_id", deviceID))
	return nil
}

// handleSatisfaction records the wearer's rating. The rating usually arrives
// after session_end, so it targets the device's most recent session rather
// than the open one.
func (c *MQTTConsumer) handleSatisfaction(ctx context.Context, batch *sampleBatch, msg *models.SensorMessage) error {
	series, err := c.openSeriesFor(ctx, batch, msg.DeviceID)
	if err != nil {
		return err
	}
	if series == nil {
		series, err = c.seriesRepo.GetLatestByDevice(ctx, msg.DeviceID)
		if err != nil {
			return err
		}
	}
	if series == nil {
		c.logger.Warn("satisfaction without any session", zap.String("device_id", msg.DeviceID))
		return nil
	}

	rating := models.SatisfactionFromValue(msg.Satisfaction)
	if err := c.seriesRepo.SetSatisfaction(ctx, series.ID, rating); err != nil {
		return err
	}
	series.Satisfaction = rating

	c.logger.Info("Satisfaction recorded",
		zap.Int64("series_id", series.ID),
		zap.String("device_id", msg.DeviceID),
		zap.String("satisfaction", rating.String()))
	return nil
}

func (c *MQTTConsumer) handleSample(ctx context.Context, batch *sampleBatch, msg *models.SensorMessage, timestamp time.Time) error {
	open, err := c.openSeriesFor(ctx, batch, msg.DeviceID)
	if err != nil {
		return err
	}
	if open == nil {
		// Samples arriving before session_start still count; open a
		// session on demand at the first sample.
		id, err := c.seriesRepo.Create(ctx, msg.DeviceID, timestamp)
		if err != nil {
			return err
		}
		open = &models.Series{ID: id, DeviceID: msg.DeviceID, StartDate: timestamp}
		batch.openSeries[msg.DeviceID] = open
	}

	batch.pending[open.ID] = append(batch.pending[open.ID], models.Measurement{
		SeriesID:     open.ID,
		Date:         timestamp,
		HR:           msg.HR,
		ACC:          msg.ACC,
		Gyro:         msg.Gyro,
		BatteryLevel: msg.BatteryLevel,
		RSSILevel:    msg.RSSILevel,
	})
	return nil
}

// openSeriesFor resolves the device's open session, consulting the payload
// cache first.
func (c *MQTTConsumer) openSeriesFor(ctx context.Context, batch *sampleBatch, deviceID string) (*models.Series, error) {
	if series, ok := batch.openSeries[deviceID]; ok {
		return series, nil
	}
	series, err := c.seriesRepo.GetOpenByDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if series != nil {
		batch.openSeries[deviceID] = series
	}
	return series, nil
}

// flushDevice persists the buffered samples of the device's open session
// before a lifecycle event changes what "open" means.
func (c *MQTTConsumer) flushDevice(ctx context.Context, batch *sampleBatch, deviceID string) error {
	series, ok := batch.openSeries[deviceID]
	if !ok {
		return nil
	}
	pending := batch.pending[series.ID]
	if len(pending) == 0 {
		return nil
	}
	delete(batch.pending, series.ID)
	return c.measurementRepo.InsertBatch(ctx, pending)
}

func (c *MQTTConsumer) flushAll(ctx context.Context, batch *sampleBatch) error {
	var firstErr error
	for seriesID, pending := range batch.pending {
		if len(pending) == 0 {
			continue
		}
		if err := c.measurementRepo.InsertBatch(ctx, pending); err != nil {
			c.logger.Error("Failed to insert measurement batch",
				zap.Int64("series_id", seriesID),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
