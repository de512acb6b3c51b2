package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sleep-analyzer/internal/hypnogram"
)

func setupCacheRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *HypnogramCacheRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewHypnogramCacheRepository(db, zap.NewNop())
	return db, mock, repo
}

func TestHypnogramCacheRepository_ReplaceSegments(t *testing.T) {
	db, mock, repo := setupCacheRepo(t)
	defer db.Close()

	start := time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC)
	segments := []hypnogram.SleepSegment{
		{StartTime: start, DurationSeconds: 1800, State: hypnogram.StateAwake},
		{StartTime: start.Add(30 * time.Minute), DurationSeconds: 3600, State: hypnogram.StateLightSleep},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM cache_hypnogram`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	prepared := mock.ExpectPrepare(`INSERT INTO cache_hypnogram`)
	for _, segment := range segments {
		prepared.ExpectExec().
			WithArgs(int64(7), segment.State.Value(), segment.StartTime, segment.DurationSeconds).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceSegments(context.Background(), 7, segments))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHypnogramCacheRepository_GetSegments_RoundTrip(t *testing.T) {
	db, mock, repo := setupCacheRepo(t)
	defer db.Close()

	start := time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"sleep_state", "start_time", "duration_seconds"}).
		AddRow(0, start, 1800.0).
		AddRow(2, start.Add(30*time.Minute), 3600.0).
		AddRow(99, start.Add(90*time.Minute), 600.0)

	mock.ExpectQuery(`FROM cache_hypnogram`).WithArgs(int64(7)).WillReturnRows(rows)

	segments, err := repo.GetSegments(context.Background(), 7)

	require.NoError(t, err)
	require.Len(t, segments, 3)
	assert.Equal(t, hypnogram.StateAwake, segments[0].State)
	assert.Equal(t, hypnogram.StateDeepSleep, segments[1].State)
	assert.Equal(t, hypnogram.StateAwake, segments[2].State, "unknown ordinals decode to AWAKE")

	// Stored segments must reproduce their distribution.
	dist := hypnogram.ComputeDistribution(segments)
	assert.InDelta(t, 2400_000, dist.AbsoluteMillis[hypnogram.StateAwake], 1e-9)
	assert.InDelta(t, 3600_000, dist.AbsoluteMillis[hypnogram.StateDeepSleep], 1e-9)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHypnogramCacheRepository_UpsertAndGetSummary(t *testing.T) {
	db, mock, repo := setupCacheRepo(t)
	defer db.Close()

	summary := SessionSummary{
		SeriesID: 7,
		Distribution: hypnogram.SleepStateDistribution{AbsoluteMillis: map[hypnogram.SleepState]float64{
			hypnogram.StateAwake:      1800_000,
			hypnogram.StateREM:        1800_000,
			hypnogram.StateLightSleep: 3600_000,
			hypnogram.StateDeepSleep:  7200_000,
		}},
		MinHR:          48,
		MaxHR:          92,
		DurationMillis: 14400_000,
	}

	mock.ExpectExec(`INSERT INTO cache`).
		WithArgs(int64(7), 1800_000.0, 1800_000.0, 3600_000.0, 7200_000.0, 48, 92, 14400_000.0).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.UpsertSummary(context.Background(), summary))

	rows := sqlmock.NewRows([]string{"awake_millis", "rem_millis", "light_millis", "deep_millis", "min_hr", "max_hr", "duration_millis"}).
		AddRow(1800_000.0, 1800_000.0, 3600_000.0, 7200_000.0, 48, 92, 14400_000.0)
	mock.ExpectQuery(`FROM cache`).WithArgs(int64(7)).WillReturnRows(rows)

	loaded, err := repo.GetSummary(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, summary.MinHR, loaded.MinHR)
	assert.Equal(t, summary.MaxHR, loaded.MaxHR)
	assert.InDelta(t, 7200_000, loaded.Distribution.AbsoluteMillis[hypnogram.StateDeepSleep], 1e-9)
	assert.True(t, loaded.Distribution.IsValid())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHypnogramCacheRepository_GetSummary_NotFound(t *testing.T) {
	db, mock, repo := setupCacheRepo(t)
	defer db.Close()

	mock.ExpectQuery(`FROM cache`).WithArgs(int64(99)).WillReturnError(sql.ErrNoRows)

	summary, err := repo.GetSummary(context.Background(), 99)

	assert.Error(t, err)
	assert.Nil(t, summary)
	assert.Contains(t, err.Error(), "summary not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHypnogramCacheRepository_Delete(t *testing.T) {
	db, mock, repo := setupCacheRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM cache_hypnogram`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(`DELETE FROM cache`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 7))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHypnogramCacheRepository_DeleteAll(t *testing.T) {
	db, mock, repo := setupCacheRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM cache_hypnogram`).
		WillReturnResult(sqlmock.NewResult(0, 100))
	mock.ExpectExec(`DELETE FROM cache`).
		WillReturnResult(sqlmock.NewResult(0, 20))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteAll(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
