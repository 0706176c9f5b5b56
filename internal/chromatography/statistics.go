package chromatography

import "math"

// Describe returns mean, population standard deviation, min and max. The mean
// is kept inside [min, max] so rounding cannot break that ordering.
func Describe(values []float64) (Statistics, error) {
	if len(values) == 0 {
		return Statistics{}, ErrEmptyExperiment
	}

	minV, maxV, sum := values[0], values[0], 0.0
	for _, v := range values {
		sum += v
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}

	n := float64(len(values))
	mean := math.Min(math.Max(sum/n, minV), maxV)

	sq := 0.0
	for _, v := range values {
		d := v - mean
		sq += d * d
	}

	return Statistics{
		Mean:   mean,
		StdDev: math.Sqrt(sq / n),
		Min:    minV,
		Max:    maxV,
		Count:  len(values),
	}, nil
}
