package trainer

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/kestrel-labs/vsomcore/pkg/math/vector"
	"github.com/kestrel-labs/vsomcore/pkg/som"
	"github.com/kestrel-labs/vsomcore/pkg/topology"
	"github.com/kestrel-labs/vsomcore/pkg/vsomcore"
)

// Config holds the trainer's tunables. Zero values are replaced with the
// documented defaults by Resolve.
type Config struct {
	TotalIterations int // T
	BatchSize       int // default 100

	AlphaSchedule  ScheduleKind
	AlphaInitial   float64
	AlphaFinal     float64
	RadiusSchedule ScheduleKind
	RadiusInitial  float64
	RadiusFinal    float64
	Kernel         topology.Kernel

	MinIterations        int     // default 100
	ConvergenceWindow    int     // default 10
	ConvergenceThreshold float64 // default 1e-4
	QualityCheckInterval int     // default 10; Resolve replaces zero or negative values with 10

	Seed int64
}

// Resolve fills zero-valued fields with the documented defaults and returns
// the result; it never mutates c.
func (c Config) Resolve() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.MinIterations <= 0 {
		c.MinIterations = 100
	}
	if c.ConvergenceWindow <= 0 {
		c.ConvergenceWindow = 10
	}
	if c.ConvergenceThreshold <= 0 {
		c.ConvergenceThreshold = 1e-4
	}
	if c.QualityCheckInterval <= 0 {
		c.QualityCheckInterval = 10
	}
	if c.AlphaSchedule == "" {
		c.AlphaSchedule = ScheduleLinear
	}
	if c.RadiusSchedule == "" {
		c.RadiusSchedule = ScheduleLinear
	}
	if c.Kernel == "" {
		c.Kernel = topology.KernelGaussian
	}
	return c
}

// Progress is reported to an optional callback once per iteration.
type Progress struct {
	Iteration int
	Alpha     float64
	Radius    float64
	QE        float64
}

// Result is returned once the loop stops, whether by exhausting
// TotalIterations, converging, or being cancelled.
type Result struct {
	IterationsRun int
	Converged     bool
	Cancelled     bool
	FinalQE       float64
	QEHistory     []float64
	TopoErrors    map[int]float64 // iteration -> topographic error, recorded every QualityCheckInterval
}

// Trainer runs the batch-SOM training loop against an
// already-constructed pkg/som.Map.
type Trainer struct {
	cfg    Config
	stopFl atomic.Bool
}

// New returns a Trainer with cfg resolved against the documented defaults.
func New(cfg Config) *Trainer {
	return &Trainer{cfg: cfg.Resolve()}
}

// Stop requests cancellation; it is safe to call concurrently with Run and
// idempotent.
func (tr *Trainer) Stop() { tr.stopFl.Store(true) }

// ShouldStopFunc lets a caller supply its own cooperative-cancellation
// predicate (e.g. context.Context.Err() != nil) in addition to Stop().
type ShouldStopFunc func() bool

// Run executes the training loop over inputs against m, reporting progress
// through onProgress (which may be nil). shouldStop is polled once per
// iteration alongside the Trainer's own Stop() flag; either one ends the
// run with Result.Cancelled = true.
func (tr *Trainer) Run(m *som.Map, inputs [][]float64, shouldStop ShouldStopFunc, onProgress func(Progress)) (Result, error) {
	if len(inputs) == 0 {
		return Result{}, vsomcore.ErrNoData
	}
	for _, in := range inputs {
		if len(in) != m.Dim {
			return Result{}, fmt.Errorf("trainer: %w", &vector.DimensionMismatchError{Want: m.Dim, Got: len(in)})
		}
	}

	cfg := tr.cfg
	rng := vector.NewGaussianRNG(cfg.Seed)
	order := make([]int, len(inputs))
	for i := range order {
		order[i] = i
	}

	result := Result{TopoErrors: make(map[int]float64)}

	for t := 0; t < cfg.TotalIterations; t++ {
		if tr.stopFl.Load() || (shouldStop != nil && shouldStop()) {
			result.Cancelled = true
			return result, nil
		}

		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		alpha, err := Schedule(cfg.AlphaSchedule, cfg.AlphaInitial, cfg.AlphaFinal, t, cfg.TotalIterations, true)
		if err != nil {
			return result, err
		}
		radius, err := Schedule(cfg.RadiusSchedule, cfg.RadiusInitial, cfg.RadiusFinal, t, cfg.TotalIterations, false)
		if err != nil {
			return result, err
		}

		qe, err := tr.runBatches(m, inputs, order, cfg.BatchSize, alpha, radius, cfg.Kernel)
		if err != nil {
			return result, err
		}

		result.IterationsRun = t + 1
		result.FinalQE = qe
		result.QEHistory = append(result.QEHistory, qe)

		if cfg.QualityCheckInterval > 0 && (t+1)%cfg.QualityCheckInterval == 0 {
			te, err := m.TopographicError(inputs)
			if err != nil {
				return result, err
			}
			result.TopoErrors[t+1] = te
		}

		if onProgress != nil {
			onProgress(Progress{Iteration: t + 1, Alpha: alpha, Radius: radius, QE: qe})
		}

		if result.IterationsRun >= cfg.MinIterations && converged(result.QEHistory, cfg.ConvergenceWindow, cfg.ConvergenceThreshold) {
			result.Converged = true
			return result, nil
		}
	}

	return result, nil
}

// runBatches splits order's (already shuffled) indices into slices of size batchSize, calls
// BMU then batch update on each slice in turn, and returns the quantization
// error over the full epoch.
func (tr *Trainer) runBatches(m *som.Map, inputs [][]float64, order []int, batchSize int, alpha, radius float64, kernel topology.Kernel) (float64, error) {
	for start := 0; start < len(order); start += batchSize {
		end := start + batchSize
		if end > len(order) {
			end = len(order)
		}
		batch := make([][]float64, end-start)
		for i, idx := range order[start:end] {
			batch[i] = inputs[idx]
		}

		bmus, err := m.BMU(batch)
		if err != nil {
			return 0, err
		}
		if err := m.BatchUpdate(batch, bmus, alpha, radius, kernel); err != nil {
			return 0, err
		}
	}

	return m.QuantizationError(inputs)
}

// converged reports whether the stddev of the last window QE samples is
// below threshold. Fewer than window samples never
// converges.
func converged(history []float64, window int, threshold float64) bool {
	if len(history) < window {
		return false
	}
	tail := history[len(history)-window:]

	var mean float64
	for _, v := range tail {
		mean += v
	}
	mean /= float64(len(tail))

	var variance float64
	for _, v := range tail {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(tail))

	return math.Sqrt(variance) < threshold
}
