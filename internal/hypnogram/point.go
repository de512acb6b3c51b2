// Package hypnogram implements the sleep-state inference pipeline: signal
// conditioning, frame quantization, four-state classification, minimum
// duration smoothing and run-length segmentation. All functions are pure and
// never fail for degenerate input (empty series, zero-length sessions); they
// degrade to empty or placeholder output instead.
package hypnogram

// Point is one sample of a single channel. T is the time offset in
// milliseconds relative to the first measurement of the session, V the
// channel value.
type Point struct {
	T float64 `json:"t"`
	V float64 `json:"v"`
}

// Normalize rescales the values of a series into [0,1] using its own
// min/max range. A series with zero range maps to all zeros.
func Normalize(points []Point) []Point {
	if len(points) == 0 {
		return nil
	}
	minV, maxV := points[0].V, points[0].V
	for _, p := range points[1:] {
		if p.V < minV {
			minV = p.V
		}
		if p.V > maxV {
			maxV = p.V
		}
	}
	results := make([]Point, len(points))
	span := maxV - minV
	for i, p := range points {
		v := 0.0
		if span > 0 {
			v = (p.V - minV) / span
		}
		results[i] = Point{T: p.T, V: v}
	}
	return results
}
