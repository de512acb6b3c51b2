package hypnogram

// Condition applies a single-pole high-pass filter to one channel,
// suppressing slow baseline drift while preserving sample count and order.
//
// The recurrence is y[i] = a*(y[i-1] + x[i] - x[i-1]) with
// a = cutoff/(cutoff + dt), dt being the spacing to the previous sample in
// milliseconds. The cutoff parameter therefore acts as the filter time
// constant in milliseconds: a larger cutoff lets faster components through,
// which is why the motion channel uses a higher cutoff than heart rate.
//
// The first output sample is 0 (no baseline information yet). Empty input
// yields empty output.
func Condition(points []Point, cutoff float64) []Point {
	if len(points) == 0 {
		return nil
	}
	results := make([]Point, len(points))
	results[0] = Point{T: points[0].T, V: 0}
	for i := 1; i < len(points); i++ {
		dt := points[i].T - points[i-1].T
		if dt < 0 {
			dt = 0
		}
		a := 1.0
		if cutoff+dt > 0 {
			a = cutoff / (cutoff + dt)
		}
		y := a * (results[i-1].V + points[i].V - points[i-1].V)
		results[i] = Point{T: points[i].T, V: y}
	}
	return results
}
