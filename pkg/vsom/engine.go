// Package vsom ties vector ops, topology, the SOM core, and the trainer
// together as a single lifecycle-managed instance: create, load, train,
// cluster, and export a SOM over an embedding corpus.
package vsom

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kestrel-labs/vsomcore/pkg/cache"
	"github.com/kestrel-labs/vsomcore/pkg/math/vector"
	"github.com/kestrel-labs/vsomcore/pkg/som"
	"github.com/kestrel-labs/vsomcore/pkg/topology"
	"github.com/kestrel-labs/vsomcore/pkg/trainer"
	"github.com/kestrel-labs/vsomcore/pkg/vsomcore"
)

// queryCacheSize and queryCacheTTL bound the per-engine cache of Clusters
// and FeatureMap results. A handful of distinct (kind, args) calls per
// engine is the expected access pattern (a CLI or UI re-rendering the same
// map at a few thresholds/zoom levels), so the default cap is generous
// relative to actual use.
const (
	queryCacheSize = 64
	queryCacheTTL  = 10 * time.Minute
)

// State is a VSOM instance's lifecycle stage.
type State string

const (
	StateCreated         State = "created"
	StateDataLoaded      State = "data_loaded"
	StateTraining        State = "training"
	StateTrained         State = "trained"
	StateTrainingStopped State = "training_stopped"
	StateError           State = "error"
	StateDeleted         State = "deleted"
)

// Limits bounds the validated config fields
type Limits struct {
	MinMapSize           int // default 3
	MaxMapSize           int // default 100
	MinDim               int // default 100
	MaxDim               int // default 2000
	MaxIterationsCeiling int // default 5000
}

// DefaultLimits matches the documented stated ranges plus a configured
// ceiling for max_iterations (the ceiling itself is an ambient operational
// limit).
func DefaultLimits() Limits {
	return Limits{MinMapSize: 3, MaxMapSize: 100, MinDim: 100, MaxDim: 2000, MaxIterationsCeiling: 5000}
}

// CreateConfig is the input to Engine.Create.
type CreateConfig struct {
	Width, Height int
	Dim           int
	Shape         topology.Shape
	Boundary      topology.Boundary
	Metric        vector.Metric
	MaxIterations int
}

// Entry is one loaded record's input to the engine: an opaque ID, its
// embedding, and whatever label metadata the caller wants echoed back by
// Export.
type Entry struct {
	ID        string
	Embedding []float64
	Label     string
}

// Engine is one VSOM instance: state machine, owned Map, and the loaded
// corpus. Safe for concurrent use; Train enforces the "only one concurrent
// training per instance" rule
type Engine struct {
	ID     string
	logger *log.Logger

	mu      sync.RWMutex
	state   State
	limits  Limits
	cfg     CreateConfig
	grid    *topology.Grid
	m       *som.Map
	entries []Entry

	training   bool
	tr         *trainer.Trainer
	lastResult trainer.Result

	queryCache *cache.ResultCache
}

// New allocates an Engine in state Created with a fresh UUID and resolved
// limits (DefaultLimits() if the zero value is passed).
func New(limits Limits, logger *log.Logger) *Engine {
	if limits == (Limits{}) {
		limits = DefaultLimits()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		ID:         uuid.NewString(),
		logger:     logger,
		state:      StateCreated,
		limits:     limits,
		queryCache: cache.NewResultCache(queryCacheSize, queryCacheTTL),
	}
}

// State returns the engine's current lifecycle stage.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Create validates cfg and allocates the weight matrix. Must
// be called from state Created (i.e. immediately after New); it is not a
// no-op re-entrant call.
func (e *Engine) Create(cfg CreateConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateCreated {
		return fmt.Errorf("vsom: create: %w (state=%s)", vsomcore.ErrNotReady, e.state)
	}
	if cfg.Width < e.limits.MinMapSize || cfg.Width > e.limits.MaxMapSize ||
		cfg.Height < e.limits.MinMapSize || cfg.Height > e.limits.MaxMapSize {
		return fmt.Errorf("vsom: create: %w: map size must be in [%d, %d]", vsomcore.ErrBadInput, e.limits.MinMapSize, e.limits.MaxMapSize)
	}
	if cfg.Dim < e.limits.MinDim || cfg.Dim > e.limits.MaxDim {
		return fmt.Errorf("vsom: create: %w: dim must be in [%d, %d]", vsomcore.ErrBadInput, e.limits.MinDim, e.limits.MaxDim)
	}
	if cfg.MaxIterations <= 0 || cfg.MaxIterations > e.limits.MaxIterationsCeiling {
		cfg.MaxIterations = e.limits.MaxIterationsCeiling
	}
	if cfg.Shape == "" {
		cfg.Shape = topology.Rectangular
	}
	if cfg.Boundary == "" {
		cfg.Boundary = topology.Bounded
	}
	if cfg.Metric == "" {
		cfg.Metric = vector.MetricCosine
	}

	grid, err := topology.NewGrid(cfg.Width, cfg.Height, cfg.Shape, cfg.Boundary)
	if err != nil {
		return fmt.Errorf("vsom: create: %w: %v", vsomcore.ErrBadInput, err)
	}
	m, err := som.NewMap(grid, cfg.Dim, cfg.Metric)
	if err != nil {
		return fmt.Errorf("vsom: create: %w: %v", vsomcore.ErrInternal, err)
	}

	e.cfg = cfg
	e.grid = grid
	e.m = m
	return nil
}

// Load validates each entry's embedding dimension and appends the valid
// ones, skipping mismatches rather than failing the whole call. Valid
// entries are appended in input order under the engine lock; the work runs
// sequentially on the calling goroutine, with no parallel workers.
func (e *Engine) Load(entries []Entry) (loaded, skipped int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateCreated && e.state != StateDataLoaded {
		return 0, 0, fmt.Errorf("vsom: load: %w (state=%s)", vsomcore.ErrNotReady, e.state)
	}

	valid := make([]Entry, 0, len(entries))
	for _, en := range entries {
		if len(en.Embedding) != e.m.Dim {
			skipped++
			continue
		}
		valid = append(valid, en)
	}
	if skipped > 0 {
		e.logger.Printf("vsom: load: skipped %d of %d entries with mismatched dimension", skipped, len(entries))
	}

	e.entries = append(e.entries, valid...)
	e.state = StateDataLoaded
	return len(valid), skipped, nil
}

// Delete marks the engine terminal. If training is in progress it is
// cancelled first.
func (e *Engine) Delete() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.training && e.tr != nil {
		e.tr.Stop()
	}
	e.state = StateDeleted
	return nil
}
