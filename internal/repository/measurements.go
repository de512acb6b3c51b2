package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"sleep-analyzer/internal/models"
)

// MeasurementRepository persists the append-only raw samples.
type MeasurementRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMeasurementRepository creates the repository.
func NewMeasurementRepository(db *sql.DB, logger *zap.Logger) *MeasurementRepository {
	return &MeasurementRepository{
		db:     db,
		logger: logger,
	}
}

// InsertBatch appends one ingested batch inside a single transaction.
func (r *MeasurementRepository) InsertBatch(ctx context.Context, measurements []models.Measurement) error {
	if len(measurements) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO measurement (series_id, date, hr, acc, gyro, battery_level, rssi_level)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range measurements {
		if _, err := stmt.ExecContext(ctx, m.SeriesID, m.Date, m.HR, m.ACC, m.Gyro, m.BatteryLevel, m.RSSILevel); err != nil {
			return fmt.Errorf("failed to insert measurement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit measurements: %w", err)
	}

	r.logger.Debug("Measurements inserted",
		zap.Int64("series_id", measurements[0].SeriesID),
		zap.Int("count", len(measurements)))
	return nil
}

// GetBySeries returns the session's samples ordered by sample time.
func (r *MeasurementRepository) GetBySeries(ctx context.Context, seriesID int64) ([]models.Measurement, error) {
	query := `
		SELECT id, series_id, date, hr, acc, gyro, battery_level, rssi_level
		FROM measurement
		WHERE series_id = $1
		ORDER BY date
	`

	rows, err := r.db.QueryContext(ctx, query, seriesID)
	if err != nil {
		return nil, fmt.Errorf("failed to query measurements: %w", err)
	}
	defer rows.Close()

	var results []models.Measurement
	for rows.Next() {
		var m models.Measurement
		if err := rows.Scan(&m.ID, &m.SeriesID, &m.Date, &m.HR, &m.ACC, &m.Gyro, &m.BatteryLevel, &m.RSSILevel); err != nil {
			return nil, fmt.Errorf("failed to scan measurement: %w", err)
		}
		results = append(results, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate measurements: %w", err)
	}
	return results, nil
}

// HRRange returns the session's heart-rate extremes. Dropout samples with
// HR 0 are ignored; a session with no valid samples yields (0, 0).
func (r *MeasurementRepository) HRRange(ctx context.Context, seriesID int64) (int, int, error) {
	query := `
		SELECT COALESCE(MIN(NULLIF(hr, 0)), 0), COALESCE(MAX(hr), 0)
		FROM measurement
		WHERE series_id = $1
	`

	var minHR, maxHR int
	if err := r.db.QueryRowContext(ctx, query, seriesID).Scan(&minHR, &maxHR); err != nil {
		if err == sql.ErrNoRows {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("failed to query HR range: %w", err)
	}
	return minHR, maxHR, nil
}
