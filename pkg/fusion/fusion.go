// Package fusion implements the top-level retrieval entrypoint. It launches
// the local branch (adaptive search) and the external branch (the
// enhancement broker) concurrently, scores how much weight each branch
// deserves, and merges them into one attributed result.
package fusion

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kestrel-labs/vsomcore/pkg/adaptive"
	"github.com/kestrel-labs/vsomcore/pkg/enhancement"
	"github.com/kestrel-labs/vsomcore/pkg/localindex"
	"github.com/kestrel-labs/vsomcore/pkg/navstate"
	"github.com/kestrel-labs/vsomcore/pkg/relevance"
)

// Strategy names the merge posture chosen for one query.
type Strategy string

const (
	StrategyNoContext          Strategy = "no_context"
	StrategyLocalOnly          Strategy = "local_only"
	StrategyEnhancementOnly    Strategy = "enhancement_only"
	StrategyPersonalPrimary    Strategy = "personal_primary"
	StrategyEnhancementPrimary Strategy = "enhancement_primary"
	StrategyBalanced           Strategy = "balanced"
)

// zoomBias gives personal (local) results a head start at narrow zooms and
// enhancement a head start at wide zooms, by shifting the ZPT-alignment
// factor (0.5 + bias) of the 5-factor weight.
var zoomBias = map[navstate.Zoom]float64{
	navstate.ZoomMicro:     0.20,
	navstate.ZoomEntity:    0.15,
	navstate.ZoomUnit:      0.05,
	navstate.ZoomText:      0.0,
	navstate.ZoomCommunity: -0.10,
	navstate.ZoomCorpus:    -0.20,
}

// strategyBias nudges the computed personal weight once a strategy is
// chosen, so the strategy label and the numeric weight stay coherent.
var strategyBias = map[Strategy]float64{
	StrategyPersonalPrimary:    0.15,
	StrategyEnhancementPrimary: -0.15,
	StrategyBalanced:           0,
}

const personalWeightFloor = 0.05

// Weights are the 5-factor inputs to the personal/enhancement split (spec
// §4.11 defaults).
type Weights struct {
	Quality    float64
	ZPTAlign   float64
	Recency    float64
	Coverage   float64
	Confidence float64
}

// DefaultWeights returns the documented factor weights.
func DefaultWeights() Weights {
	return Weights{Quality: 0.4, ZPTAlign: 0.25, Recency: 0.15, Coverage: 0.15, Confidence: 0.05}
}

// Config bundles everything Merge needs beyond the query itself.
type Config struct {
	Weights       Weights
	AdaptiveCfg   adaptive.Config
	RelevanceCfg  relevance.Weights
	TargetResults int // mirrors adaptive.Config.TargetResults, used for coverage
}

// Resolve fills zero-valued fields with documented defaults.
func (c Config) Resolve() Config {
	if c.Weights == (Weights{}) {
		c.Weights = DefaultWeights()
	}
	if c.TargetResults > 0 && c.AdaptiveCfg.TargetResults <= 0 {
		c.AdaptiveCfg.TargetResults = c.TargetResults
	}
	c.AdaptiveCfg = c.AdaptiveCfg.Resolve()
	if c.RelevanceCfg == (relevance.Weights{}) {
		c.RelevanceCfg = relevance.DefaultWeights()
	}
	if c.TargetResults <= 0 {
		c.TargetResults = c.AdaptiveCfg.TargetResults
	}
	return c
}

// Result is Merge's return value. Personal carries the
// relevance-reranked local candidates directly rather than a separate
// result type, since no fields are added beyond what localindex already
// tracks.
type Result struct {
	Strategy          Strategy
	PersonalWeight    float64
	Personal          []localindex.Candidate
	Enhancement       *enhancement.Envelope
	Passes            int
	PersonalThreshold float64
}

// Merge runs the local and external branches concurrently (local via
// adaptive.Search over idx, external via broker.Enhance), computes the
// personal/enhancement weight split, and returns one attributed Result
//. Either branch may come back empty; Merge never errors on
// that — it only errors if the local branch itself fails.
func Merge(ctx context.Context, idx *localindex.Index, broker *enhancement.Broker, query string, queryEmbedding []float64, state navstate.State, cfg Config, userCtx *relevance.UserContext, now time.Time) (Result, error) {
	cfg = cfg.Resolve()

	var localRes adaptive.Result
	var envelope enhancement.Envelope

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		localRes, err = adaptive.Search(idx, queryEmbedding, state, cfg.AdaptiveCfg, now)
		return err
	})
	g.Go(func() error {
		if broker == nil {
			return nil
		}
		envelope = broker.Enhance(gctx, query, queryEmbedding)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	personal := rerank(localRes.Contexts, state, cfg.RelevanceCfg, query, queryEmbedding, userCtx, now)

	strategy := chooseStrategy(len(personal) > 0, envelope.Success, state.Zoom)
	weight := personalWeight(cfg.Weights, personal, envelope, state.Zoom, cfg.TargetResults, strategy, now)

	top := personal
	if len(top) > 3 {
		top = top[:3]
	}

	result := Result{
		Strategy:          strategy,
		PersonalWeight:    weight,
		Personal:          top,
		Passes:            localRes.Passes,
		PersonalThreshold: localRes.ThresholdUsed,
	}
	if envelope.Success {
		result.Enhancement = &envelope
	}
	return result, nil
}

// rerank applies the relevance engine on top of the adaptive branch's
// similarity-sorted candidates, since that ordering is similarity-only.
func rerank(candidates []localindex.Candidate, state navstate.State, weights relevance.Weights, query string, queryEmbedding []float64, userCtx *relevance.UserContext, now time.Time) []localindex.Candidate {
	if len(candidates) == 0 {
		return nil
	}
	engine := relevance.New(weights)
	bc := relevance.NewBatchContext(now, state, queryEmbedding, query)
	out := make([]localindex.Candidate, len(candidates))
	copy(out, candidates)
	sort.Slice(out, func(i, j int) bool {
		si := engine.Score(out[i].Record, state, bc, userCtx)
		sj := engine.Score(out[j].Record, state, bc, userCtx)
		return si > sj
	})
	return out
}

func chooseStrategy(hasPersonal, hasEnhancement bool, zoom navstate.Zoom) Strategy {
	switch {
	case !hasPersonal && !hasEnhancement:
		return StrategyNoContext
	case hasPersonal && !hasEnhancement:
		return StrategyLocalOnly
	case !hasPersonal && hasEnhancement:
		return StrategyEnhancementOnly
	}
	switch {
	case zoom == navstate.ZoomMicro || zoom == navstate.ZoomEntity:
		return StrategyPersonalPrimary
	case zoom == navstate.ZoomCommunity || zoom == navstate.ZoomCorpus:
		return StrategyEnhancementPrimary
	default:
		return StrategyBalanced
	}
}

// personalWeight computes the 5-factor personal-branch weight, applies the
// zoom and strategy biases, then clamps to [personalWeightFloor, 1]
//. Degenerate strategies (no_context/local_only/
// enhancement_only) short-circuit to their natural extremes.
func personalWeight(w Weights, personal []localindex.Candidate, env enhancement.Envelope, zoom navstate.Zoom, target int, strategy Strategy, now time.Time) float64 {
	switch strategy {
	case StrategyNoContext:
		return 0
	case StrategyLocalOnly:
		return 1
	case StrategyEnhancementOnly:
		return 0
	}

	personalQuality := avgSimilarity(personal)
	coverage := coverageOf(len(personal), target)
	recency := recencyOf(personal, now)
	confidence := 0.5
	if env.Answer != nil {
		confidence = env.Answer.Confidence
	}
	// quality is comparative, not absolute: a strong personal match only
	// favors the personal branch if the enhancement branch isn't stronger
	// still.
	quality := 0.5
	if personalQuality+confidence > 0 {
		quality = personalQuality / (personalQuality + confidence)
	}
	alignment := 0.5 + zoomBias[zoom]

	score := w.Quality*quality + w.ZPTAlign*clamp01(alignment) + w.Recency*recency +
		w.Coverage*coverage + w.Confidence*(1-confidence)

	score += strategyBias[strategy]
	return clamp(score, personalWeightFloor, 1)
}

func avgSimilarity(candidates []localindex.Candidate) float64 {
	if len(candidates) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range candidates {
		sum += c.Similarity
	}
	return clamp01(sum / float64(len(candidates)))
}

func coverageOf(found, target int) float64 {
	if target <= 0 {
		return 1
	}
	return clamp01(float64(found) / float64(target))
}

func recencyOf(candidates []localindex.Candidate, now time.Time) float64 {
	if len(candidates) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range candidates {
		ageHours := now.Sub(c.Record.LastAccessed()).Hours()
		if ageHours < 0 {
			ageHours = 0
		}
		sum += clamp01(1 - ageHours/(24*30))
	}
	return sum / float64(len(candidates))
}

func clamp01(v float64) float64 { return clamp(v, 0, 1) }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
