package hypnogram

import "math"

// CreateUniformInput conditions a channel with the given high-pass cutoff and
// reduces it to one quantized score per frame of frameSize raw samples,
// producing a uniformly spaced series.
//
// Per frame the score is the fraction of conditioned samples at or above
// min + quantization*(max-min), where min/max are the frame's local range.
// This turns a noisy continuous channel into a bounded [0,1] activity score.
// A frame with zero range scores 0. The final partial frame is still emitted.
//
// The output carries one point per frame with T set to the frame's start
// offset. A frameSize <= 0 means the computation is disabled and yields nil,
// it is not an error.
func CreateUniformInput(points []Point, frameSize int, quantization float64, cutoff float64) []Point {
	if frameSize <= 0 || len(points) == 0 {
		return nil
	}
	conditioned := Condition(points, cutoff)
	return reduceFrames(conditioned, frameSize, func(frame []Point) float64 {
		minV, maxV := frame[0].V, frame[0].V
		for _, p := range frame[1:] {
			if p.V < minV {
				minV = p.V
			}
			if p.V > maxV {
				maxV = p.V
			}
		}
		span := maxV - minV
		if span <= 0 {
			return 0
		}
		threshold := minV + quantization*span
		hits := 0
		for _, p := range frame {
			if p.V >= threshold {
				hits++
			}
		}
		return float64(hits) / float64(len(frame))
	})
}

// RMSE reduces a channel to the root mean square of each frame of frameSize
// samples. Used by the legacy overlay visualization path.
func RMSE(points []Point, frameSize int) []Point {
	if frameSize <= 0 || len(points) == 0 {
		return nil
	}
	return reduceFrames(points, frameSize, func(frame []Point) float64 {
		sum := 0.0
		for _, p := range frame {
			sum += p.V * p.V
		}
		return math.Sqrt(sum / float64(len(frame)))
	})
}

// Mean reduces a channel to the arithmetic mean of each frame of frameSize
// samples.
func Mean(points []Point, frameSize int) []Point {
	if frameSize <= 0 || len(points) == 0 {
		return nil
	}
	return reduceFrames(points, frameSize, func(frame []Point) float64 {
		sum := 0.0
		for _, p := range frame {
			sum += p.V
		}
		return sum / float64(len(frame))
	})
}

// reduceFrames partitions points into consecutive non-overlapping frames of
// frameSize samples and maps each frame to a single point at the frame's
// start offset. The trailing partial frame is reduced as well.
func reduceFrames(points []Point, frameSize int, reduce func([]Point) float64) []Point {
	results := make([]Point, 0, (len(points)+frameSize-1)/frameSize)
	for start := 0; start < len(points); start += frameSize {
		end := start + frameSize
		if end > len(points) {
			end = len(points)
		}
		frame := points[start:end]
		results = append(results, Point{T: frame[0].T, V: reduce(frame)})
	}
	return results
}
