package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"sleep-analyzer/internal/hypnogram"
	"sleep-analyzer/internal/models"
)

func TestBuildSeriesReport(t *testing.T) {
	start := time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC)
	series := &models.Series{
		ID:           7,
		DeviceID:     "wearable-01",
		StartDate:    start,
		EndDate:      start.Add(4 * time.Hour),
		Satisfaction: models.SatisfactionGood,
	}
	segments := []hypnogram.SleepSegment{
		{StartTime: start, DurationSeconds: 1800, State: hypnogram.StateAwake},
		{StartTime: start.Add(30 * time.Minute), DurationSeconds: 3600, State: hypnogram.StateLightSleep},
		{StartTime: start.Add(90 * time.Minute), DurationSeconds: 7200, State: hypnogram.StateDeepSleep},
		{StartTime: start.Add(210 * time.Minute), DurationSeconds: 1800, State: hypnogram.StateREM},
	}
	distribution := hypnogram.ComputeDistribution(segments)

	data, err := BuildSeriesReport(series, segments, distribution)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	device, err := f.GetCellValue("Sleep Report", "B1")
	require.NoError(t, err)
	assert.Equal(t, "wearable-01", device)

	satisfaction, err := f.GetCellValue("Sleep Report", "B3")
	require.NoError(t, err)
	assert.Equal(t, "GOOD", satisfaction)

	header, err := f.GetCellValue("Sleep Report", "A5")
	require.NoError(t, err)
	assert.Equal(t, "Start Time", header)

	firstState, err := f.GetCellValue("Sleep Report", "B6")
	require.NoError(t, err)
	assert.Equal(t, "AWAKE", firstState)

	deepDuration, err := f.GetCellValue("Sleep Report", "C8")
	require.NoError(t, err)
	assert.Equal(t, "120", deepDuration)

	distHeader, err := f.GetCellValue("Sleep Report", "A11")
	require.NoError(t, err)
	assert.Equal(t, "Distribution", distHeader)
}

func TestBuildSeriesReport_EmptySession(t *testing.T) {
	start := time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC)
	series := &models.Series{ID: 8, DeviceID: "wearable-02", StartDate: start}

	data, err := BuildSeriesReport(series, nil, hypnogram.ComputeDistribution(nil))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	distHeader, err := f.GetCellValue("Sleep Report", "A7")
	require.NoError(t, err)
	assert.Equal(t, "Distribution", distHeader, "the distribution block still renders")
}
