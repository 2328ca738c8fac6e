package trajectory

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// DiscountedReturns computes the discounted return of each step of an
// episode by scanning the rewards backwards. The running return is
// reset whenever a non-zero reward is seen, so that each point of a game
// is treated as its own sub-episode.
func DiscountedReturns(rewards []float64, gamma float64) []float64 {
	returns := make([]float64, len(rewards))

	var running float64
	for i := len(rewards) - 1; i >= 0; i-- {
		if rewards[i] != 0 {
			running = 0
		}
		running = rewards[i] + gamma*running
		returns[i] = running
	}
	return returns
}

// Normalize standardizes values to mean zero and unit sample standard
// deviation. If there are fewer than two values or their standard
// deviation does not exceed minStd, the values cannot be standardized
// and a copy of them is returned together with false.
func Normalize(values []float64, minStd float64) ([]float64, bool) {
	out := append([]float64{}, values...)
	if len(values) < 2 {
		return out, false
	}

	mean, std := stat.MeanStdDev(values, nil)
	if math.IsNaN(std) || std <= minStd {
		return out, false
	}

	for i := range out {
		out[i] = (out[i] - mean) / std
	}
	return out, true
}
