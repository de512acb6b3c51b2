package hypnogram

// Default model parameters. Frame sizes are raw-sample counts, quantization
// thresholds lie in [0,1], cutoffs are the high-pass filter time constants in
// milliseconds, and the three decision boundaries separate the quantized
// activity scores into the four states.
const (
	DefaultFrameSizeHR               = 20
	DefaultFrameSizeACC              = 20
	DefaultQuantizationHR            = 0.8
	DefaultQuantizationACC           = 0.89
	DefaultMinSignificantIntervalSec = 60.0
	DefaultMinAwakeDurationSec       = 600.0
	DefaultHRHiPassCutoff            = 80.0
	DefaultACCHiPassCutoff           = 700.0
	DefaultHRActivityThreshold       = 0.5
	DefaultACCActivityThreshold      = 0.4
	DefaultACCRestThreshold          = 0.2
)

// ModelConfig is the immutable set of tunable parameters for one pipeline
// run. A changed config invalidates any cached segments or distribution
// computed under the previous one; the invalidation itself is the caller's
// concern.
type ModelConfig struct {
	FrameSizeHR  int
	FrameSizeACC int

	QuantizationHR  float64
	QuantizationACC float64

	MinSignificantIntervalSec float64
	MinAwakeDurationSec       float64

	HRHiPassCutoff  float64
	ACCHiPassCutoff float64

	// Classifier decision boundaries over the quantized [0,1] scores.
	HRActivityThreshold  float64
	ACCActivityThreshold float64
	ACCRestThreshold     float64
}

// DefaultModelConfig returns the calibrated defaults.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		FrameSizeHR:               DefaultFrameSizeHR,
		FrameSizeACC:              DefaultFrameSizeACC,
		QuantizationHR:            DefaultQuantizationHR,
		QuantizationACC:           DefaultQuantizationACC,
		MinSignificantIntervalSec: DefaultMinSignificantIntervalSec,
		MinAwakeDurationSec:       DefaultMinAwakeDurationSec,
		HRHiPassCutoff:            DefaultHRHiPassCutoff,
		ACCHiPassCutoff:           DefaultACCHiPassCutoff,
		HRActivityThreshold:       DefaultHRActivityThreshold,
		ACCActivityThreshold:      DefaultACCActivityThreshold,
		ACCRestThreshold:          DefaultACCRestThreshold,
	}
}

// Phase is one classified time frame, or after smoothing one merged run of
// frames in the same state.
type Phase struct {
	State           SleepState
	DurationSeconds float64
}

// CreateHypnogram reduces the raw heart-rate and accelerometer channels of
// one session to a flat per-frame sequence of sleep phases.
//
// Both channels are quantized with their own frame size, threshold and
// cutoff (CreateUniformInput). The two quantized series are aligned by frame
// index; when irregular sampling leaves them with different frame counts the
// classification truncates to the shorter series. Frame durations come from
// the quantized HR time axis, the final frame extending by the mean raw
// sample spacing so the phases together cover the measured range.
//
// Classification per aligned frame pair (hrScore, accScore):
//
//	hrScore >= HRActivityThreshold, accScore >= ACCActivityThreshold -> AWAKE
//	hrScore >= HRActivityThreshold, lower motion                     -> REM
//	lower heart activity, accScore >= ACCRestThreshold               -> LIGHT_SLEEP
//	lower heart activity, lower motion                               -> DEEP_SLEEP
//
// Empty input on either channel, or a non-positive frame size, yields nil.
func CreateHypnogram(hr, acc []Point, cfg ModelConfig) []Phase {
	if len(hr) == 0 || len(acc) == 0 {
		return nil
	}
	quantHR := CreateUniformInput(hr, cfg.FrameSizeHR, cfg.QuantizationHR, cfg.HRHiPassCutoff)
	quantACC := CreateUniformInput(acc, cfg.FrameSizeACC, cfg.QuantizationACC, cfg.ACCHiPassCutoff)
	if len(quantHR) == 0 || len(quantACC) == 0 {
		return nil
	}

	count := len(quantHR)
	if len(quantACC) < count {
		count = len(quantACC)
	}

	results := make([]Phase, 0, count)
	for i := 0; i < count; i++ {
		state := classify(quantHR[i].V, quantACC[i].V, cfg)
		results = append(results, Phase{
			State:           state,
			DurationSeconds: frameDurationSec(quantHR, i, hr),
		})
	}
	return results
}

func classify(hrScore, accScore float64, cfg ModelConfig) SleepState {
	if hrScore >= cfg.HRActivityThreshold {
		if accScore >= cfg.ACCActivityThreshold {
			return StateAwake
		}
		return StateREM
	}
	if accScore >= cfg.ACCRestThreshold {
		return StateLightSleep
	}
	return StateDeepSleep
}

// frameDurationSec derives the duration of frame i from the quantized time
// axis. The last frame has no successor, so it spans to the final raw sample
// plus one mean sample interval.
func frameDurationSec(frames []Point, i int, raw []Point) float64 {
	if i+1 < len(frames) {
		return (frames[i+1].T - frames[i].T) / 1000.0
	}
	meanDt := 0.0
	if len(raw) > 1 {
		meanDt = (raw[len(raw)-1].T - raw[0].T) / float64(len(raw)-1)
	}
	return (raw[len(raw)-1].T - frames[i].T + meanDt) / 1000.0
}
