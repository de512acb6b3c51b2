package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"sleep-analyzer/internal/hypnogram"
)

// SessionSummary is the per-session aggregate row: the sleep-state
// distribution plus the heart-rate range over the whole session.
type SessionSummary struct {
	SeriesID       int64
	Distribution   hypnogram.SleepStateDistribution
	MinHR          int
	MaxHR          int
	DurationMillis float64
}

// HypnogramCacheRepository persists computed hypnograms: the segment rows
// and the summary row. Both are derived data, safe to drop and rebuild.
type HypnogramCacheRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHypnogramCacheRepository creates the repository.
func NewHypnogramCacheRepository(db *sql.DB, logger *zap.Logger) *HypnogramCacheRepository {
	return &HypnogramCacheRepository{
		db:     db,
		logger: logger,
	}
}

// ReplaceSegments swaps the session's persisted segments for the given list
// in one transaction, so readers never observe a half-written hypnogram.
func (r *HypnogramCacheRepository) ReplaceSegments(ctx context.Context, seriesID int64, segments []hypnogram.SleepSegment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_hypnogram WHERE series_id = $1`, seriesID); err != nil {
		return fmt.Errorf("failed to delete old segments: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cache_hypnogram (series_id, sleep_state, start_time, duration_seconds)
		VALUES ($1, $2, $3, $4)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare segment insert: %w", err)
	}
	defer stmt.Close()

	for _, segment := range segments {
		if _, err := stmt.ExecContext(ctx, seriesID, segment.State.Value(), segment.StartTime, segment.DurationSeconds); err != nil {
			return fmt.Errorf("failed to insert segment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit segments: %w", err)
	}

	r.logger.Info("Hypnogram segments replaced",
		zap.Int64("series_id", seriesID),
		zap.Int("segments", len(segments)))
	return nil
}

// GetSegments returns the session's persisted segments in time order.
func (r *HypnogramCacheRepository) GetSegments(ctx context.Context, seriesID int64) ([]hypnogram.SleepSegment, error) {
	query := `
		SELECT sleep_state, start_time, duration_seconds
		FROM cache_hypnogram
		WHERE series_id = $1
		ORDER BY start_time
	`

	rows, err := r.db.QueryContext(ctx, query, seriesID)
	if err != nil {
		return nil, fmt.Errorf("failed to query segments: %w", err)
	}
	defer rows.Close()

	var results []hypnogram.SleepSegment
	for rows.Next() {
		var (
			segment hypnogram.SleepSegment
			state   int
		)
		if err := rows.Scan(&state, &segment.StartTime, &segment.DurationSeconds); err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}
		segment.State = hypnogram.SleepStateFromValue(state)
		results = append(results, segment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate segments: %w", err)
	}
	return results, nil
}

// UpsertSummary writes the session's aggregate row. Callers must only pass
// a valid distribution; an all-zero one means the session was never
// analyzed and has no business being cached.
func (r *HypnogramCacheRepository) UpsertSummary(ctx context.Context, summary SessionSummary) error {
	query := `
		INSERT INTO cache (series_id, awake_millis, rem_millis, light_millis, deep_millis,
			min_hr, max_hr, duration_millis)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (series_id) DO UPDATE SET
			awake_millis = EXCLUDED.awake_millis,
			rem_millis = EXCLUDED.rem_millis,
			light_millis = EXCLUDED.light_millis,
			deep_millis = EXCLUDED.deep_millis,
			min_hr = EXCLUDED.min_hr,
			max_hr = EXCLUDED.max_hr,
			duration_millis = EXCLUDED.duration_millis
	`

	absolute := summary.Distribution.AbsoluteMillis
	_, err := r.db.ExecContext(ctx, query,
		summary.SeriesID,
		absolute[hypnogram.StateAwake],
		absolute[hypnogram.StateREM],
		absolute[hypnogram.StateLightSleep],
		absolute[hypnogram.StateDeepSleep],
		summary.MinHR,
		summary.MaxHR,
		summary.DurationMillis,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert summary: %w", err)
	}
	return nil
}

// GetSummary loads the session's aggregate row.
func (r *HypnogramCacheRepository) GetSummary(ctx context.Context, seriesID int64) (*SessionSummary, error) {
	query := `
		SELECT awake_millis, rem_millis, light_millis, deep_millis,
			min_hr, max_hr, duration_millis
		FROM cache
		WHERE series_id = $1
	`

	summary := SessionSummary{
		SeriesID:     seriesID,
		Distribution: hypnogram.SleepStateDistribution{AbsoluteMillis: make(map[hypnogram.SleepState]float64, 4)},
	}
	var awake, rem, light, deep float64
	err := r.db.QueryRowContext(ctx, query, seriesID).Scan(
		&awake, &rem, &light, &deep,
		&summary.MinHR, &summary.MaxHR, &summary.DurationMillis,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("summary not found for series %d", seriesID)
		}
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}

	summary.Distribution.AbsoluteMillis[hypnogram.StateAwake] = awake
	summary.Distribution.AbsoluteMillis[hypnogram.StateREM] = rem
	summary.Distribution.AbsoluteMillis[hypnogram.StateLightSleep] = light
	summary.Distribution.AbsoluteMillis[hypnogram.StateDeepSleep] = deep
	return &summary, nil
}

// Delete removes one session's cached hypnogram and summary.
func (r *HypnogramCacheRepository) Delete(ctx context.Context, seriesID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_hypnogram WHERE series_id = $1`, seriesID); err != nil {
		return fmt.Errorf("failed to delete segments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cache WHERE series_id = $1`, seriesID); err != nil {
		return fmt.Errorf("failed to delete summary: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// DeleteAll drops every cached hypnogram, the first step of a rescale run
// after a model parameter change.
func (r *HypnogramCacheRepository) DeleteAll(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_hypnogram`); err != nil {
		return fmt.Errorf("failed to delete segments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cache`); err != nil {
		return fmt.Errorf("failed to delete summaries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}

	r.logger.Warn("All cached hypnograms deleted")
	return nil
}
