package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"sleep-analyzer/internal/analyzer"
	"sleep-analyzer/internal/hypnogram"
)

// RecomputedEvent is the webhook payload for one recomputed session.
type RecomputedEvent struct {
	SeriesID     int64                            `json:"series_id"`
	DeviceID     string                           `json:"device_id"`
	Distribution hypnogram.SleepStateDistribution `json:"distribution"`
	Relative     map[hypnogram.SleepState]float64 `json:"relative"`
	ComputedAt   int64                            `json:"computed_at"` // milliseconds since epoch
}

// WebhookNotifier posts recompute events to a configured URL.
type WebhookNotifier struct {
	httpClient *resty.Client
	url        string
	logger     *zap.Logger
}

// NewWebhookNotifier creates the notifier. An empty URL returns nil, which
// callers treat as notifications disabled.
func NewWebhookNotifier(url string, logger *zap.Logger) *WebhookNotifier {
	if url == "" {
		return nil
	}

	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &WebhookNotifier{
		httpClient: client,
		url:        url,
		logger:     logger,
	}
}

// NotifyRecomputed posts the session's new distribution.
func (n *WebhookNotifier) NotifyRecomputed(ctx context.Context, result *analyzer.Result) error {
	event := RecomputedEvent{
		SeriesID:     result.Series.ID,
		DeviceID:     result.Series.DeviceID,
		Distribution: result.Distribution,
		Relative:     result.Distribution.Relative(),
		ComputedAt:   time.Now().UnixMilli(),
	}

	resp, err := n.httpClient.R().
		SetContext(ctx).
		SetBody(event).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}

	n.logger.Debug("Webhook notified",
		zap.Int64("series_id", event.SeriesID),
		zap.Int("status", resp.StatusCode()))
	return nil
}
