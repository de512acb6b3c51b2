package hypnogram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateHypnogram_EmptyChannels(t *testing.T) {
	cfg := DefaultModelConfig()
	hr := []Point{{T: 0, V: 60}}
	acc := []Point{{T: 0, V: 1}}
	assert.Nil(t, CreateHypnogram(nil, acc, cfg))
	assert.Nil(t, CreateHypnogram(hr, nil, cfg))
	assert.Nil(t, CreateHypnogram(nil, nil, cfg))
}

func TestCreateHypnogram_DisabledFrameSize(t *testing.T) {
	cfg := DefaultModelConfig()
	cfg.FrameSizeHR = 0
	hr := []Point{{T: 0, V: 60}, {T: 1000, V: 90}}
	acc := []Point{{T: 0, V: 1}, {T: 1000, V: 3}}
	assert.Nil(t, CreateHypnogram(hr, acc, cfg))

	cfg = DefaultModelConfig()
	cfg.FrameSizeACC = -1
	assert.Nil(t, CreateHypnogram(hr, acc, cfg))
}

// channel builds a zero-spaced series so the high-pass degenerates to
// v[i]-v[0] and the per-frame scores are exact rationals.
func channel(values ...float64) []Point {
	points := make([]Point, len(values))
	for i, v := range values {
		points[i] = Point{T: 0, V: v}
	}
	return points
}

func TestCreateHypnogram_Quadrants(t *testing.T) {
	cfg := DefaultModelConfig()
	cfg.FrameSizeHR = 4
	cfg.FrameSizeACC = 4
	cfg.QuantizationHR = 0.5
	cfg.QuantizationACC = 0.5

	// Per frame of four, [0,10,10,0] scores 0.5, [0,10,0,0] scores 0.25
	// and a flat frame scores 0. With boundaries 0.5/0.4/0.2 the four
	// frames hit the four quadrants in state order.
	hr := channel(
		0, 10, 10, 0, // active
		0, 10, 10, 0, // active
		0, 10, 0, 0, // calm
		0, 10, 0, 0, // calm
	)
	acc := channel(
		0, 10, 10, 0, // moving
		0, 10, 0, 0, // still
		0, 10, 0, 0, // restless
		0, 0, 0, 0, // motionless
	)

	phases := CreateHypnogram(hr, acc, cfg)
	require.Len(t, phases, 4)
	assert.Equal(t, StateAwake, phases[0].State)
	assert.Equal(t, StateREM, phases[1].State)
	assert.Equal(t, StateLightSleep, phases[2].State)
	assert.Equal(t, StateDeepSleep, phases[3].State)
}

func TestCreateHypnogram_TruncatesToShorterChannel(t *testing.T) {
	cfg := DefaultModelConfig()
	cfg.FrameSizeHR = 4
	cfg.FrameSizeACC = 4
	cfg.QuantizationHR = 0.5
	cfg.QuantizationACC = 0.5

	hr := channel(0, 10, 10, 0, 0, 10, 10, 0) // two frames
	acc := channel(0, 10, 10, 0)              // one frame

	phases := CreateHypnogram(hr, acc, cfg)
	require.Len(t, phases, 1)
	assert.Equal(t, StateAwake, phases[0].State)
}

func TestCreateHypnogram_FrameDurations(t *testing.T) {
	cfg := DefaultModelConfig()

	hr := make([]Point, 40)
	acc := make([]Point, 40)
	for i := range hr {
		v := 60.0
		if i%2 == 1 {
			v = 90
		}
		hr[i] = Point{T: float64(i) * 1000, V: v}
		acc[i] = Point{T: float64(i) * 1000, V: v / 30}
	}

	phases := CreateHypnogram(hr, acc, cfg)
	require.Len(t, phases, 2)
	assert.InDelta(t, 20.0, phases[0].DurationSeconds, 1e-9)
	// The final frame spans to the last sample plus one mean interval.
	assert.InDelta(t, 20.0, phases[1].DurationSeconds, 1e-9)
}

func TestDefaultModelConfig(t *testing.T) {
	cfg := DefaultModelConfig()
	assert.Equal(t, 20, cfg.FrameSizeHR)
	assert.Equal(t, 20, cfg.FrameSizeACC)
	assert.Equal(t, 0.8, cfg.QuantizationHR)
	assert.Equal(t, 0.89, cfg.QuantizationACC)
	assert.Equal(t, 60.0, cfg.MinSignificantIntervalSec)
	assert.Equal(t, 600.0, cfg.MinAwakeDurationSec)
	assert.Equal(t, 80.0, cfg.HRHiPassCutoff)
	assert.Equal(t, 700.0, cfg.ACCHiPassCutoff)
}
