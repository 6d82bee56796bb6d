// Package adaptive implements multi-pass local search over
// localindex.Index, relaxing threshold/limit/filters until a target result
// count is reached or max_passes is exhausted.
package adaptive

import (
	"time"

	"github.com/kestrel-labs/vsomcore/pkg/filter"
	"github.com/kestrel-labs/vsomcore/pkg/localindex"
	"github.com/kestrel-labs/vsomcore/pkg/navstate"
)

// zoomThreshold is the pass-1 similarity floor per zoom.
var zoomThreshold = map[navstate.Zoom]float64{
	navstate.ZoomEntity:    0.45,
	navstate.ZoomUnit:      0.35,
	navstate.ZoomText:      0.30,
	navstate.ZoomCommunity: 0.25,
	navstate.ZoomCorpus:    0.20,
}

// zoomFloor is the pass-3 absolute floor, shared across all zooms (spec
// §4.10).
const zoomFloor = 0.15

func meanSimilarity(candidates []localindex.Candidate) float64 {
	if len(candidates) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range candidates {
		sum += c.Similarity
	}
	return sum / float64(len(candidates))
}

func thresholdFor(z navstate.Zoom) float64 {
	if t, ok := zoomThreshold[z]; ok {
		return t
	}
	return zoomThreshold[navstate.ZoomEntity]
}

// Config tunes the pass schedule.
type Config struct {
	MaxPasses     int // default 3
	TargetResults int // default 5
}

// Resolve fills zero-valued fields with the documented defaults.
func (c Config) Resolve() Config {
	if c.MaxPasses <= 0 {
		c.MaxPasses = 3
	}
	if c.TargetResults <= 0 {
		c.TargetResults = 5
	}
	return c
}

// PassStats reports one pass's parameters and outcome, returned for
// diagnostics.
type PassStats struct {
	Pass      int
	Threshold float64
	Limit     int
	Found     int
	// Quality is the pass's mean candidate similarity, Kalman-smoothed
	// across passes so an unlucky single pass doesn't swing the fusion
	// core's read of how well the local branch is doing.
	Quality float64
}

// Result is Search's return value.
type Result struct {
	Contexts      []localindex.Candidate
	Passes        int
	ThresholdUsed float64
	PerPassStats  []PassStats
	Reason        string // set when Contexts is empty
}

// Search runs up to cfg.MaxPasses passes against idx, widening scope each
// time the prior pass fell short of cfg.TargetResults, and returns as soon
// as the target is met. It never returns an error on an empty
// result — Result.Reason explains why.
func Search(idx *localindex.Index, queryEmbedding []float64, state navstate.State, cfg Config, now time.Time) (Result, error) {
	cfg = cfg.Resolve()
	limit := state.Zoom.ResultCap()
	threshold := thresholdFor(state.Zoom)

	var stats []PassStats
	var best []localindex.Candidate
	quality := filter.NewKalman(filter.DefaultConfig())

	for pass := 1; pass <= cfg.MaxPasses; pass++ {
		passState := state
		switch pass {
		case 2:
			threshold *= 0.7
			limit *= 2
		case 3:
			threshold = zoomFloor
			// Keywords/entities stay as soft boosts (localindex already
			// treats them that way); only the hard domain filter is
			// dropped as a "non-essential filter".
			passState.Pan.Domains = nil
		}

		candidates, err := idx.Search(queryEmbedding, passState, limit, threshold, now)
		if err != nil {
			return Result{}, err
		}
		smoothedQuality := quality.Process(meanSimilarity(candidates), 1.0)
		stats = append(stats, PassStats{Pass: pass, Threshold: threshold, Limit: limit, Found: len(candidates), Quality: smoothedQuality})
		best = candidates

		if len(candidates) >= cfg.TargetResults {
			return Result{Contexts: candidates, Passes: pass, ThresholdUsed: threshold, PerPassStats: stats}, nil
		}
	}

	result := Result{Contexts: best, Passes: len(stats), ThresholdUsed: threshold, PerPassStats: stats}
	if len(best) == 0 {
		result.Reason = "no candidates met threshold across all passes"
	}
	return result, nil
}
