package vsom

import (
	"fmt"

	"github.com/kestrel-labs/vsomcore/pkg/math/vector"
	"github.com/kestrel-labs/vsomcore/pkg/som"
	"github.com/kestrel-labs/vsomcore/pkg/trainer"
	"github.com/kestrel-labs/vsomcore/pkg/vsomcore"
)

// TrainOpts configures one Train call.
type TrainOpts struct {
	trainer.Config
	InitMethod som.InitMethod
	InitSeed   int64
	ShouldStop trainer.ShouldStopFunc
	OnProgress func(trainer.Progress)
}

// Train requires state DataLoaded (or TrainingStopped, to train again), and
// ends in Trained, TrainingStopped, or Error. Every call re-initializes the
// weights with opts.InitMethod, so a stopped run's partial weights are not
// carried over. Only one concurrent training per instance is allowed.
func (e *Engine) Train(opts TrainOpts) (trainer.Result, error) {
	e.mu.Lock()
	if e.state != StateDataLoaded && e.state != StateTrainingStopped {
		st := e.state
		e.mu.Unlock()
		return trainer.Result{}, fmt.Errorf("vsom: train: %w (state=%s)", vsomcore.ErrNotReady, st)
	}
	if e.training {
		e.mu.Unlock()
		return trainer.Result{}, fmt.Errorf("vsom: train: %w: training already in progress", vsomcore.ErrNotReady)
	}
	if len(e.entries) == 0 {
		e.mu.Unlock()
		return trainer.Result{}, fmt.Errorf("vsom: train: %w", vsomcore.ErrNoData)
	}

	rng := vector.NewGaussianRNG(opts.InitSeed)
	if err := e.m.InitWeights(opts.InitMethod, rng); err != nil {
		e.mu.Unlock()
		return trainer.Result{}, fmt.Errorf("vsom: train: %w: %v", vsomcore.ErrInternal, err)
	}
	// Weights are about to change; any cached Clusters/FeatureMap result
	// computed against the old weights is now stale.
	e.queryCache.Clear()

	inputs := make([][]float64, len(e.entries))
	for i, en := range e.entries {
		inputs[i] = en.Embedding
	}

	tr := trainer.New(opts.Config)
	e.tr = tr
	e.training = true
	e.state = StateTraining
	m := e.m
	e.mu.Unlock()

	result, err := tr.Run(m, inputs, opts.ShouldStop, opts.OnProgress)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.training = false
	e.lastResult = result

	if err != nil {
		e.state = StateError
		return result, fmt.Errorf("vsom: train: %w", err)
	}
	if result.Cancelled {
		e.state = StateTrainingStopped
		return result, nil
	}
	e.state = StateTrained
	return result, nil
}

// StopTraining requests cancellation of an in-progress Train call.
func (e *Engine) StopTraining() {
	e.mu.RLock()
	tr := e.tr
	e.mu.RUnlock()
	if tr != nil {
		tr.Stop()
	}
}
