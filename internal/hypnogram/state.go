package hypnogram

// SleepState is one of the four states a frame can be classified into.
// The numeric value is the persisted ordinal form; Level is the sleep depth
// used for vertical placement in charts (AWAKE shallowest, DEEP_SLEEP
// deepest).
type SleepState uint8

const (
	StateAwake SleepState = iota
	StateLightSleep
	StateDeepSleep
	StateREM
)

// SleepStateFromValue decodes a persisted ordinal into a SleepState. The
// decode is total: unrecognized values map to StateAwake.
func SleepStateFromValue(value int) SleepState {
	switch value {
	case 0:
		return StateAwake
	case 1:
		return StateLightSleep
	case 2:
		return StateDeepSleep
	case 3:
		return StateREM
	default:
		return StateAwake
	}
}

// Value returns the persisted ordinal form.
func (s SleepState) Value() int { return int(s) }

// Level returns the chart depth level: AWAKE=0, REM=1, LIGHT_SLEEP=2,
// DEEP_SLEEP=3.
func (s SleepState) Level() int {
	switch s {
	case StateREM:
		return 1
	case StateLightSleep:
		return 2
	case StateDeepSleep:
		return 3
	default:
		return 0
	}
}

func (s SleepState) String() string {
	switch s {
	case StateLightSleep:
		return "LIGHT_SLEEP"
	case StateDeepSleep:
		return "DEEP_SLEEP"
	case StateREM:
		return "REM"
	default:
		return "AWAKE"
	}
}

// SleepStates lists the four states in ordinal order.
func SleepStates() []SleepState {
	return []SleepState{StateAwake, StateLightSleep, StateDeepSleep, StateREM}
}
