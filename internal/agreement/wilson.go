package agreement

import (
	"fmt"
	"math"
)

// DefaultConfidence is the two-sided confidence level used when none is given.
const DefaultConfidence = 0.95

// DefaultZ is the standard normal quantile for a two-sided 95% interval,
// about 1.96. Its lower bound equals a one-sided 97.5% bound. The "one-sided
// 90%" default sometimes quoted for this report is not equivalent to a
// two-sided 95% bound (it gives z about 1.28); the 95% reading is kept, and
// ZScore(0.90, true) selects the other one.
var DefaultZ, _ = ZScore(DefaultConfidence, false)

// Interval is a Wilson score interval for a binomial proportion.
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Z     float64 `json:"z"`
}

// ZScore returns the standard normal quantile for a confidence level.
// A one-sided level puts all of 1-confidence in one tail.
func ZScore(confidence float64, oneSided bool) (float64, error) {
	if !(confidence > 0 && confidence < 1) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidConfidence, confidence)
	}
	p := confidence
	if !oneSided {
		p = 1 - (1-confidence)/2
	}
	return math.Sqrt2 * math.Erfinv(2*p-1), nil
}

// Wilson computes the Wilson score interval for k successes in n trials.
// Bounds are clamped to [0, 1].
func Wilson(k, n int, z float64) (Interval, error) {
	if n == 0 {
		return Interval{}, ErrInsufficientData
	}
	if k < 0 || k > n {
		return Interval{}, fmt.Errorf("%w: k=%d n=%d", ErrInvalidCount, k, n)
	}

	nf := float64(n)
	p := float64(k) / nf
	z2 := z * z

	center := p + z2/(2*nf)
	margin := z * math.Sqrt(p*(1-p)/nf+z2/(4*nf*nf))
	denom := 1 + z2/nf

	return Interval{
		Lower: clamp((center - margin) / denom),
		Upper: clamp((center + margin) / denom),
		Z:     z,
	}, nil
}

func clamp(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
