package hypnogram

import "time"

// SleepSegment is one contiguous stretch of a session spent in a single
// state. A segment list for a session is time ordered, non-overlapping and
// contiguous, and spans exactly [session start, session end].
type SleepSegment struct {
	StartTime       time.Time  `json:"start_time"`
	DurationSeconds float64    `json:"duration_seconds"`
	State           SleepState `json:"state"`
}

// DataPoint is one entry of a per-sample state stream, the form in which a
// computed hypnogram round-trips through the persistence cache. TimeMillis
// is milliseconds since epoch.
type DataPoint struct {
	TimeMillis int64
	State      SleepState
}

// PhasesToSegments lays out a smoothed phase sequence as absolute segments,
// starting at the session start and placing each phase immediately after its
// predecessor. Empty input yields an empty list.
func PhasesToSegments(phases []Phase, start time.Time) []SleepSegment {
	results := make([]SleepSegment, 0, len(phases))
	current := start
	for _, p := range phases {
		results = append(results, SleepSegment{
			StartTime:       current,
			DurationSeconds: p.DurationSeconds,
			State:           p.State,
		})
		current = current.Add(time.Duration(p.DurationSeconds * float64(time.Second)))
	}
	return results
}

// ToSegments run-length-encodes a per-sample state stream into segments
// bounded by [start, end].
//
// An empty stream yields a single zero-duration AWAKE placeholder segment at
// the session end so that downstream consumers always have at least one
// segment; zero-duration segments must be treated as "unknown", not as a
// real classification. When the stream ends before the session end, the last
// known state is extended out to it. A zero end time means the session is
// still recording and defaults to now.
func ToSegments(points []DataPoint, start, end time.Time) []SleepSegment {
	if end.IsZero() {
		end = time.Now()
	}
	endMillis := end.UnixMilli()

	if len(points) == 0 {
		return []SleepSegment{{StartTime: end, DurationSeconds: 0, State: StateAwake}}
	}

	results := make([]SleepSegment, 0, 8)
	previousTime := start.UnixMilli()
	previousState := points[0].State
	appendSegment := func(from, to int64, state SleepState) {
		results = append(results, SleepSegment{
			StartTime:       time.UnixMilli(from).UTC(),
			DurationSeconds: float64(to-from) / 1000.0,
			State:           state,
		})
	}

	for _, p := range points[1:] {
		// Points at or past the session end cannot open new segments;
		// the tail emission below clamps coverage to endMillis.
		if p.TimeMillis >= endMillis {
			break
		}
		if p.State != previousState {
			appendSegment(previousTime, p.TimeMillis, previousState)
			previousState = p.State
			previousTime = p.TimeMillis
		}
	}
	if previousTime < endMillis {
		appendSegment(previousTime, endMillis, previousState)
	} else if len(results) == 0 {
		appendSegment(previousTime, previousTime, previousState)
	}
	return results
}

// SleepStateDistribution maps each state to the cumulative milliseconds the
// session spent in it.
type SleepStateDistribution struct {
	AbsoluteMillis map[SleepState]float64 `json:"absolute_millis"`
}

// ComputeDistribution reduces a segment list into per-state totals. Pure
// reduction; segment order does not affect the sums.
func ComputeDistribution(segments []SleepSegment) SleepStateDistribution {
	results := make(map[SleepState]float64, 4)
	for _, state := range SleepStates() {
		results[state] = 0
	}
	for _, segment := range segments {
		results[segment.State] += segment.DurationSeconds * 1000
	}
	return SleepStateDistribution{AbsoluteMillis: results}
}

// IsValid reports whether any sleep time was computed at all. An invalid
// distribution means "not yet analyzed" and must not be persisted.
func (d SleepStateDistribution) IsValid() bool {
	total := 0.0
	for _, millis := range d.AbsoluteMillis {
		total += millis
	}
	return total > 0
}

// Relative returns each state's fraction of the total. For an all-zero
// distribution all fractions are zero.
func (d SleepStateDistribution) Relative() map[SleepState]float64 {
	total := 0.0
	for _, millis := range d.AbsoluteMillis {
		total += millis
	}
	results := make(map[SleepState]float64, len(d.AbsoluteMillis))
	for state, millis := range d.AbsoluteMillis {
		if total > 0 {
			results[state] = millis / total
		} else {
			results[state] = 0
		}
	}
	return results
}
