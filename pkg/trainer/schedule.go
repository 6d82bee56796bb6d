// Package trainer drives a pkg/som.Map through the SOM training loop:
// learning-rate and neighborhood-radius schedules, convergence detection,
// batching, and cooperative cancellation.
package trainer

import (
	"fmt"
	"math"
)

// ScheduleKind selects how a parameter (alpha or radius) decays over the
// course of training.
type ScheduleKind string

const (
	ScheduleLinear      ScheduleKind = "linear"
	ScheduleExponential ScheduleKind = "exponential"
	ScheduleInverse     ScheduleKind = "inverse"
	ScheduleStep        ScheduleKind = "step"
)

// inverseRateAlpha and inverseRateRadius are the fixed decay constants c in
// v0 / (1 + c*t) used by the inverse schedule.
const (
	inverseRateAlpha  = 0.01
	inverseRateRadius = 0.02
)

// Schedule computes v(t) for t in [0, T) given initial value v0 and final
// value v1. isAlpha selects the inverse-schedule constant; the step schedule
// ignores it and halves v0 every T/4 iterations for alpha and radius alike.
func Schedule(kind ScheduleKind, v0, v1 float64, t, total int, isAlpha bool) (float64, error) {
	if total <= 0 {
		return 0, fmt.Errorf("trainer: total iterations must be > 0")
	}
	p := float64(t) / float64(total)

	switch kind {
	case ScheduleLinear, "":
		return v0*(1-p) + v1*p, nil
	case ScheduleExponential:
		if v0 <= 0 || v1 <= 0 {
			return 0, fmt.Errorf("trainer: exponential schedule requires positive endpoints")
		}
		return v0 * math.Exp(math.Log(v1/v0)*p), nil
	case ScheduleInverse:
		c := inverseRateRadius
		if isAlpha {
			c = inverseRateAlpha
		}
		return v0 / (1 + c*float64(t)), nil
	case ScheduleStep:
		halvings := float64(t) / (float64(total) / 4.0)
		return v0 / math.Pow(2, math.Floor(halvings)), nil
	default:
		return 0, fmt.Errorf("trainer: unknown schedule %q", kind)
	}
}
