package hypnogram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmooth_Empty(t *testing.T) {
	assert.Empty(t, Smooth(nil, 60, 600))
}

func TestSmooth_MergesAdjacentEqualStates(t *testing.T) {
	phases := []Phase{
		{State: StateLightSleep, DurationSeconds: 100},
		{State: StateLightSleep, DurationSeconds: 150},
		{State: StateDeepSleep, DurationSeconds: 200},
		{State: StateDeepSleep, DurationSeconds: 100},
	}
	results := Smooth(phases, 60, 600)
	require.Len(t, results, 2)
	assert.Equal(t, StateLightSleep, results[0].State)
	assert.InDelta(t, 250.0, results[0].DurationSeconds, 1e-9)
	assert.Equal(t, StateDeepSleep, results[1].State)
	assert.InDelta(t, 300.0, results[1].DurationSeconds, 1e-9)
}

func TestSmooth_ShortRunTakesPrecedingState(t *testing.T) {
	phases := []Phase{
		{State: StateLightSleep, DurationSeconds: 300},
		{State: StateDeepSleep, DurationSeconds: 30},
		{State: StateLightSleep, DurationSeconds: 200},
	}
	results := Smooth(phases, 60, 600)
	require.Len(t, results, 1)
	assert.Equal(t, StateLightSleep, results[0].State)
	assert.InDelta(t, 530.0, results[0].DurationSeconds, 1e-9)
}

func TestSmooth_RunAtThresholdIsKept(t *testing.T) {
	phases := []Phase{
		{State: StateLightSleep, DurationSeconds: 300},
		{State: StateDeepSleep, DurationSeconds: 60},
		{State: StateLightSleep, DurationSeconds: 300},
	}
	results := Smooth(phases, 60, 600)
	require.Len(t, results, 3)
	assert.Equal(t, StateDeepSleep, results[1].State)
}

func TestSmooth_AwakeUsesOwnThreshold(t *testing.T) {
	phases := []Phase{
		{State: StateLightSleep, DurationSeconds: 300},
		{State: StateAwake, DurationSeconds: 300},
		{State: StateLightSleep, DurationSeconds: 300},
	}
	// 300s would survive the generic threshold but not the awake one.
	results := Smooth(phases, 60, 600)
	require.Len(t, results, 1)
	assert.Equal(t, StateLightSleep, results[0].State)
	assert.InDelta(t, 900.0, results[0].DurationSeconds, 1e-9)

	phases[1].DurationSeconds = 700
	results = Smooth(phases, 60, 600)
	require.Len(t, results, 3)
	assert.Equal(t, StateAwake, results[1].State)
}

func TestSmooth_FirstRunKeepsOwnState(t *testing.T) {
	phases := []Phase{
		{State: StateDeepSleep, DurationSeconds: 10},
		{State: StateLightSleep, DurationSeconds: 300},
	}
	results := Smooth(phases, 60, 600)
	require.Len(t, results, 2)
	assert.Equal(t, StateDeepSleep, results[0].State)
	assert.InDelta(t, 10.0, results[0].DurationSeconds, 1e-9)
}

func TestSmooth_CascadingAbsorption(t *testing.T) {
	phases := []Phase{
		{State: StateLightSleep, DurationSeconds: 300},
		{State: StateDeepSleep, DurationSeconds: 20},
		{State: StateREM, DurationSeconds: 20},
		{State: StateLightSleep, DurationSeconds: 300},
	}
	results := Smooth(phases, 60, 600)
	require.Len(t, results, 1)
	assert.Equal(t, StateLightSleep, results[0].State)
	assert.InDelta(t, 640.0, results[0].DurationSeconds, 1e-9)
}

func TestSmooth_NoAdjacentDuplicatesAndConservedDuration(t *testing.T) {
	phases := []Phase{
		{State: StateAwake, DurationSeconds: 900},
		{State: StateLightSleep, DurationSeconds: 40},
		{State: StateLightSleep, DurationSeconds: 40},
		{State: StateDeepSleep, DurationSeconds: 500},
		{State: StateREM, DurationSeconds: 10},
		{State: StateDeepSleep, DurationSeconds: 500},
		{State: StateAwake, DurationSeconds: 50},
		{State: StateREM, DurationSeconds: 400},
	}
	total := 0.0
	for _, p := range phases {
		total += p.DurationSeconds
	}

	results := Smooth(phases, 60, 600)
	smoothedTotal := 0.0
	for i, p := range results {
		smoothedTotal += p.DurationSeconds
		if i > 0 {
			assert.NotEqual(t, results[i-1].State, p.State)
		}
	}
	assert.InDelta(t, total, smoothedTotal, 1e-9)
}

func TestSmooth_Idempotent(t *testing.T) {
	phases := []Phase{
		{State: StateAwake, DurationSeconds: 900},
		{State: StateLightSleep, DurationSeconds: 40},
		{State: StateDeepSleep, DurationSeconds: 500},
		{State: StateREM, DurationSeconds: 400},
	}
	once := Smooth(phases, 60, 600)
	twice := Smooth(once, 60, 600)
	assert.Equal(t, once, twice)
}
