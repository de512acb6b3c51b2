package hypnogram

// Smooth eliminates spurious short state flips from a per-frame phase
// sequence. Contiguous runs of the same state whose total duration is below
// minSignificantSec are reassigned to the state of the preceding run; AWAKE
// runs use the larger minAwakeSec threshold, since brief awake blips are
// common and should be absorbed more aggressively. The first run has no
// predecessor and keeps its own state.
//
// Adjacent runs that end up in the same state are merged, so the result
// never contains two consecutive phases with equal states. Single forward
// pass.
func Smooth(phases []Phase, minSignificantSec, minAwakeSec float64) []Phase {
	runs := mergeAdjacent(phases)
	if len(runs) == 0 {
		return runs
	}

	results := make([]Phase, 0, len(runs))
	for _, run := range runs {
		threshold := minSignificantSec
		if run.State == StateAwake {
			threshold = minAwakeSec
		}
		if run.DurationSeconds < threshold && len(results) > 0 {
			run.State = results[len(results)-1].State
		}
		if len(results) > 0 && results[len(results)-1].State == run.State {
			results[len(results)-1].DurationSeconds += run.DurationSeconds
			continue
		}
		results = append(results, run)
	}
	return results
}

// mergeAdjacent collapses consecutive phases sharing a state into single
// runs with summed durations.
func mergeAdjacent(phases []Phase) []Phase {
	if len(phases) == 0 {
		return nil
	}
	results := make([]Phase, 0, len(phases))
	for _, p := range phases {
		if len(results) > 0 && results[len(results)-1].State == p.State {
			results[len(results)-1].DurationSeconds += p.DurationSeconds
			continue
		}
		results = append(results, p)
	}
	return results
}
