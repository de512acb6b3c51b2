package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"sleep-analyzer/internal/config"
	"sleep-analyzer/internal/hypnogram"
)

// CachedHypnogram is the realtime view of one analyzed session, served to
// dashboards straight from Redis.
type CachedHypnogram struct {
	SeriesID     int64                                `json:"series_id"`
	Segments     []hypnogram.SleepSegment             `json:"segments"`
	Distribution hypnogram.SleepStateDistribution     `json:"distribution"`
	Relative     map[hypnogram.SleepState]float64     `json:"relative"`
	ComputedAt   int64                                `json:"computed_at"` // milliseconds since epoch
}

// CacheManager maintains the per-session hypnogram keys in Redis.
type CacheManager struct {
	config      *config.Config
	redisClient *goredis.Client
	logger      *zap.Logger
}

// NewCacheManager creates the manager.
func NewCacheManager(cfg *config.Config, redisClient *goredis.Client, logger *zap.Logger) *CacheManager {
	return &CacheManager{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}
}

func (m *CacheManager) key(seriesID int64) string {
	return m.config.Analyze.CachePrefix + strconv.FormatInt(seriesID, 10) + ":hypnogram"
}

// SetHypnogram writes the session's analyzed view with the configured TTL.
func (m *CacheManager) SetHypnogram(ctx context.Context, seriesID int64, segments []hypnogram.SleepSegment, distribution hypnogram.SleepStateDistribution) error {
	cached := CachedHypnogram{
		SeriesID:     seriesID,
		Segments:     segments,
		Distribution: distribution,
		Relative:     distribution.Relative(),
		ComputedAt:   time.Now().UnixMilli(),
	}

	jsonData, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal hypnogram cache: %w", err)
	}

	if err := m.redisClient.Set(ctx, m.key(seriesID), jsonData, m.config.Analyze.CacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to write hypnogram cache: %w", err)
	}

	m.logger.Debug("Hypnogram cached",
		zap.Int64("series_id", seriesID),
		zap.Duration("ttl", m.config.Analyze.CacheTTL))
	return nil
}

// GetHypnogram reads the session's cached view.
func (m *CacheManager) GetHypnogram(ctx context.Context, seriesID int64) (*CachedHypnogram, error) {
	jsonData, err := m.redisClient.Get(ctx, m.key(seriesID)).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, fmt.Errorf("hypnogram not cached for series %d", seriesID)
		}
		return nil, fmt.Errorf("failed to read hypnogram cache: %w", err)
	}

	var cached CachedHypnogram
	if err := json.Unmarshal([]byte(jsonData), &cached); err != nil {
		return nil, fmt.Errorf("failed to unmarshal hypnogram cache: %w", err)
	}
	return &cached, nil
}

// Invalidate drops the session's cached view.
func (m *CacheManager) Invalidate(ctx context.Context, seriesID int64) error {
	return m.redisClient.Del(ctx, m.key(seriesID)).Err()
}
