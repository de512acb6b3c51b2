package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sleep-analyzer/internal/models"
)

// SeriesRepository persists sleep sessions.
type SeriesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSeriesRepository creates the repository.
func NewSeriesRepository(db *sql.DB, logger *zap.Logger) *SeriesRepository {
	return &SeriesRepository{
		db:     db,
		logger: logger,
	}
}

// Create opens a new session for the device and returns its id.
func (r *SeriesRepository) Create(ctx context.Context, deviceID string, start time.Time) (int64, error) {
	query := `
		INSERT INTO series (device_id, start_date, satisfaction)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, deviceID, start, int(models.SatisfactionNeutral)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create series: %w", err)
	}

	r.logger.Info("Series created",
		zap.Int64("series_id", id),
		zap.String("device_id", deviceID))
	return id, nil
}

// GetByID loads one session.
func (r *SeriesRepository) GetByID(ctx context.Context, id int64) (*models.Series, error) {
	query := `
		SELECT id, device_id, start_date, end_date, satisfaction
		FROM series
		WHERE id = $1
	`
	return r.scanSeries(r.db.QueryRowContext(ctx, query, id), id)
}

// GetOpenByDevice returns the device's open session, the one with no end
// date yet.
func (r *SeriesRepository) GetOpenByDevice(ctx context.Context, deviceID string) (*models.Series, error) {
	query := `
		SELECT id, device_id, start_date, end_date, satisfaction
		FROM series
		WHERE device_id = $1 AND end_date IS NULL
		ORDER BY start_date DESC
		LIMIT 1
	`

	series, err := r.scanSeries(r.db.QueryRowContext(ctx, query, deviceID), 0)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return series, nil
}

// GetLatestByDevice returns the device's most recent session, open or not.
// Satisfaction ratings arrive after session_end, so the open-session lookup
// alone cannot resolve them.
func (r *SeriesRepository) GetLatestByDevice(ctx context.Context, deviceID string) (*models.Series, error) {
	query := `
		SELECT id, device_id, start_date, end_date, satisfaction
		FROM series
		WHERE device_id = $1
		ORDER BY start_date DESC
		LIMIT 1
	`

	series, err := r.scanSeries(r.db.QueryRowContext(ctx, query, deviceID), 0)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return series, nil
}

// Close stamps the session's end date.
func (r *SeriesRepository) Close(ctx context.Context, id int64, end time.Time) error {
	result, err := r.db.ExecContext(ctx, `UPDATE series SET end_date = $1 WHERE id = $2`, end, id)
	if err != nil {
		return fmt.Errorf("failed to close series: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to close series: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("series not found: %d", id)
	}
	return nil
}

// SetSatisfaction records the wearer's rating of the night.
func (r *SeriesRepository) SetSatisfaction(ctx context.Context, id int64, satisfaction models.Satisfaction) error {
	result, err := r.db.ExecContext(ctx, `UPDATE series SET satisfaction = $1 WHERE id = $2`, int(satisfaction), id)
	if err != nil {
		return fmt.Errorf("failed to update satisfaction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update satisfaction: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("series not found: %d", id)
	}
	return nil
}

// ListClosed returns every finished session, oldest first.
func (r *SeriesRepository) ListClosed(ctx context.Context) ([]models.Series, error) {
	query := `
		SELECT id, device_id, start_date, end_date, satisfaction
		FROM series
		WHERE end_date IS NOT NULL
		ORDER BY start_date
	`
	return r.querySeries(ctx, query)
}

// ListMissingCache returns finished sessions with no persisted distribution,
// the candidates for a repair run.
func (r *SeriesRepository) ListMissingCache(ctx context.Context) ([]models.Series, error) {
	query := `
		SELECT s.id, s.device_id, s.start_date, s.end_date, s.satisfaction
		FROM series s
		LEFT JOIN cache c ON c.series_id = s.id
		WHERE s.end_date IS NOT NULL AND c.series_id IS NULL
		ORDER BY s.start_date
	`
	return r.querySeries(ctx, query)
}

func (r *SeriesRepository) querySeries(ctx context.Context, query string, args ...interface{}) ([]models.Series, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query series: %w", err)
	}
	defer rows.Close()

	var results []models.Series
	for rows.Next() {
		var (
			series       models.Series
			endDate      sql.NullTime
			satisfaction int
		)
		if err := rows.Scan(&series.ID, &series.DeviceID, &series.StartDate, &endDate, &satisfaction); err != nil {
			return nil, fmt.Errorf("failed to scan series: %w", err)
		}
		if endDate.Valid {
			series.EndDate = endDate.Time
		}
		series.Satisfaction = models.SatisfactionFromValue(satisfaction)
		results = append(results, series)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate series: %w", err)
	}
	return results, nil
}

func (r *SeriesRepository) scanSeries(row *sql.Row, id int64) (*models.Series, error) {
	var (
		series       models.Series
		endDate      sql.NullTime
		satisfaction int
	)
	err := row.Scan(&series.ID, &series.DeviceID, &series.StartDate, &endDate, &satisfaction)
	if err != nil {
		if err == sql.ErrNoRows {
			if id > 0 {
				return nil, fmt.Errorf("series not found: %d", id)
			}
			return nil, err
		}
		return nil, fmt.Errorf("failed to query series: %w", err)
	}
	if endDate.Valid {
		series.EndDate = endDate.Time
	}
	series.Satisfaction = models.SatisfactionFromValue(satisfaction)
	return &series, nil
}
