package analyzer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"sleep-analyzer/internal/hypnogram"
	"sleep-analyzer/internal/models"
	"sleep-analyzer/internal/report"
	"sleep-analyzer/internal/repository"
)

// SeriesStore is the session lookup surface the analyzer needs.
type SeriesStore interface {
	GetByID(ctx context.Context, id int64) (*models.Series, error)
	ListClosed(ctx context.Context) ([]models.Series, error)
	ListMissingCache(ctx context.Context) ([]models.Series, error)
}

// MeasurementStore is the sample lookup surface the analyzer needs.
type MeasurementStore interface {
	GetBySeries(ctx context.Context, seriesID int64) ([]models.Measurement, error)
	HRRange(ctx context.Context, seriesID int64) (int, int, error)
}

// CacheStore is the persistence surface for computed hypnograms.
type CacheStore interface {
	ReplaceSegments(ctx context.Context, seriesID int64, segments []hypnogram.SleepSegment) error
	GetSegments(ctx context.Context, seriesID int64) ([]hypnogram.SleepSegment, error)
	UpsertSummary(ctx context.Context, summary repository.SessionSummary) error
	GetSummary(ctx context.Context, seriesID int64) (*repository.SessionSummary, error)
	DeleteAll(ctx context.Context) error
}

// Result is one recomputed hypnogram.
type Result struct {
	Series       *models.Series
	Segments     []hypnogram.SleepSegment
	Distribution hypnogram.SleepStateDistribution
	Persisted    bool
}

// Progress reports repair and rescale advancement after each session.
type Progress func(done, total int, seriesID int64)

// Analyzer orchestrates the hypnogram pipeline over persisted sessions. At
// most one recompute runs per series at a time; different series proceed in
// parallel.
type Analyzer struct {
	series       SeriesStore
	measurements MeasurementStore
	cache        CacheStore
	model        hypnogram.ModelConfig
	logger       *zap.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// New creates the analyzer.
func New(series SeriesStore, measurements MeasurementStore, cache CacheStore, model hypnogram.ModelConfig, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		series:       series,
		measurements: measurements,
		cache:        cache,
		model:        model,
		logger:       logger,
		locks:        make(map[int64]*sync.Mutex),
	}
}

// lockFor returns the series' mutex, creating it on first use.
func (a *Analyzer) lockFor(seriesID int64) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	lock, ok := a.locks[seriesID]
	if !ok {
		lock = &sync.Mutex{}
		a.locks[seriesID] = lock
	}
	return lock
}

// Recompute rebuilds one session's hypnogram from its raw measurements and
// persists the result. A session whose distribution comes out all-zero (no
// usable samples) is not persisted; the previous cache, if any, stays.
func (a *Analyzer) Recompute(ctx context.Context, seriesID int64) (*Result, error) {
	lock := a.lockFor(seriesID)
	lock.Lock()
	defer lock.Unlock()

	series, err := a.series.GetByID(ctx, seriesID)
	if err != nil {
		return nil, fmt.Errorf("failed to load series %d: %w", seriesID, err)
	}

	measurements, err := a.measurements.GetBySeries(ctx, seriesID)
	if err != nil {
		return nil, fmt.Errorf("failed to load measurements for series %d: %w", seriesID, err)
	}

	hr := models.HRPoints(measurements, series.StartDate)
	acc := models.ACCPoints(measurements, series.StartDate)

	phases := hypnogram.CreateHypnogram(hr, acc, a.model)
	smoothed := hypnogram.Smooth(phases, a.model.MinSignificantIntervalSec, a.model.MinAwakeDurationSec)
	segments := hypnogram.PhasesToSegments(smoothed, series.StartDate)
	distribution := hypnogram.ComputeDistribution(segments)

	result := &Result{
		Series:       series,
		Segments:     segments,
		Distribution: distribution,
	}

	if !distribution.IsValid() {
		a.logger.Warn("Hypnogram came out empty, keeping previous cache",
			zap.Int64("series_id", seriesID),
			zap.Int("measurements", len(measurements)))
		return result, nil
	}

	if err := a.cache.ReplaceSegments(ctx, seriesID, segments); err != nil {
		return nil, fmt.Errorf("failed to persist segments for series %d: %w", seriesID, err)
	}

	minHR, maxHR, err := a.measurements.HRRange(ctx, seriesID)
	if err != nil {
		return nil, fmt.Errorf("failed to load HR range for series %d: %w", seriesID, err)
	}

	if err := a.cache.UpsertSummary(ctx, repository.SessionSummary{
		SeriesID:       seriesID,
		Distribution:   distribution,
		MinHR:          minHR,
		MaxHR:          maxHR,
		DurationMillis: sessionDurationMillis(series, segments),
	}); err != nil {
		return nil, fmt.Errorf("failed to persist summary for series %d: %w", seriesID, err)
	}

	result.Persisted = true
	a.logger.Info("Hypnogram recomputed",
		zap.Int64("series_id", seriesID),
		zap.Int("segments", len(segments)))
	return result, nil
}

// ExportReport renders one analyzed session as an xlsx workbook from its
// persisted hypnogram. A session that was never analyzed has no summary
// row and cannot be exported.
func (a *Analyzer) ExportReport(ctx context.Context, seriesID int64) ([]byte, error) {
	series, err := a.series.GetByID(ctx, seriesID)
	if err != nil {
		return nil, fmt.Errorf("failed to load series %d: %w", seriesID, err)
	}

	segments, err := a.cache.GetSegments(ctx, seriesID)
	if err != nil {
		return nil, fmt.Errorf("failed to load segments for series %d: %w", seriesID, err)
	}

	summary, err := a.cache.GetSummary(ctx, seriesID)
	if err != nil {
		return nil, fmt.Errorf("failed to load summary for series %d: %w", seriesID, err)
	}

	return report.BuildSeriesReport(series, segments, summary.Distribution)
}

// RepairAll recomputes every finished session that has no cached summary
// yet. Cancellation is honored between sessions; a failing session is
// logged and skipped so one bad night cannot stall the whole repair.
func (a *Analyzer) RepairAll(ctx context.Context, progress Progress) error {
	missing, err := a.series.ListMissingCache(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions missing cache: %w", err)
	}

	a.logger.Info("Repair started", zap.Int("sessions", len(missing)))
	return a.recomputeAll(ctx, missing, progress)
}

// RescaleAll drops every cached hypnogram and recomputes all finished
// sessions, the invalidation path after a model parameter change.
func (a *Analyzer) RescaleAll(ctx context.Context, progress Progress) error {
	if err := a.cache.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to drop caches: %w", err)
	}

	closed, err := a.series.ListClosed(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	a.logger.Info("Rescale started", zap.Int("sessions", len(closed)))
	return a.recomputeAll(ctx, closed, progress)
}

func (a *Analyzer) recomputeAll(ctx context.Context, sessions []models.Series, progress Progress) error {
	for i, series := range sessions {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, err := a.Recompute(ctx, series.ID); err != nil {
			a.logger.Error("Failed to recompute session",
				zap.Int64("series_id", series.ID),
				zap.Error(err))
		}
		if progress != nil {
			progress(i+1, len(sessions), series.ID)
		}
	}
	return nil
}

// sessionDurationMillis measures the session span. An open session has no
// end date yet, so the laid-out segments bound it instead.
func sessionDurationMillis(series *models.Series, segments []hypnogram.SleepSegment) float64 {
	end := series.EndDate
	if end.IsZero() {
		var total time.Duration
		for _, segment := range segments {
			total += time.Duration(segment.DurationSeconds * float64(time.Second))
		}
		end = series.StartDate.Add(total)
	}
	return float64(end.Sub(series.StartDate).Milliseconds())
}
