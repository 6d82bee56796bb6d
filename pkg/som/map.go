// Package som implements the SOM weight matrix: initialization, batched
// best-matching-unit search, accumulated-delta weight updates, and the
// quantization/topographic quality metrics used to judge a trained map.
//
// Like pkg/math/vector and pkg/topology, this package contains only numeric
// kernels: it validates inputs and fails fast, and never suspends or
// swallows an error.
package som

import (
	"errors"
	"fmt"

	"github.com/kestrel-labs/vsomcore/pkg/math/vector"
	"github.com/kestrel-labs/vsomcore/pkg/topology"
)

// InitMethod selects how initial node weights are seeded.
type InitMethod string

const (
	InitRandom InitMethod = "random"
	InitLinear InitMethod = "linear"
	// InitPCA is named explicitly rather than silently aliased to random,
	// since a principal-component initializer is not implemented. Callers
	// that ask for it get ErrNotImplemented instead.
	InitPCA InitMethod = "pca"
)

var (
	ErrInvalidDimension = errors.New("som: embedding dimension must be >= 1")
	ErrNotImplemented   = errors.New("som: PCA initialization is not implemented")
	ErrEmptyBatch       = errors.New("som: batch must contain at least one input")
)

// Map owns the weight matrix for one SOM instance: total_nodes x dim,
// linearly indexed per topology.Grid's Index/Coords convention.
type Map struct {
	Grid    *topology.Grid
	Dim     int
	Metric  vector.Metric
	Weights [][]float64
}

// NewMap allocates (but does not initialize) a weight matrix sized to
// grid.TotalNodes() x dim.
func NewMap(grid *topology.Grid, dim int, metric vector.Metric) (*Map, error) {
	if dim < 1 {
		return nil, ErrInvalidDimension
	}
	n := grid.TotalNodes()
	weights := make([][]float64, n)
	for i := range weights {
		weights[i] = make([]float64, dim)
	}
	return &Map{Grid: grid, Dim: dim, Metric: metric, Weights: weights}, nil
}

// InitWeights fills every row with dim finite values using the chosen
// method.
func (m *Map) InitWeights(method InitMethod, rng *vector.GaussianRNG) error {
	switch method {
	case InitPCA:
		return ErrNotImplemented
	case InitLinear:
		m.initLinear()
		return nil
	case InitRandom, "":
		m.initRandom(rng)
		return nil
	default:
		return fmt.Errorf("som: unknown init method %q", method)
	}
}

func (m *Map) initRandom(rng *vector.GaussianRNG) {
	for i := range m.Weights {
		for d := 0; d < m.Dim; d++ {
			m.Weights[i][d] = rng.Next() * 0.1
		}
	}
}

// initLinear seeds weights via positional interpolation in [-0.05, 0.05],
// varying smoothly by both node index and dimension so that nodes are not
// initialized to identical vectors.
func (m *Map) initLinear() {
	total := len(m.Weights)
	if total == 0 {
		return
	}
	denom := float64(total)
	for i := range m.Weights {
		for d := 0; d < m.Dim; d++ {
			t := (float64(i) + float64(d)/float64(m.Dim)) / denom
			m.Weights[i][d] = -0.05 + 0.1*t
		}
	}
}

// distance computes the configured metric between an input and node i's
// weight vector.
func (m *Map) distance(input []float64, node int) (float64, error) {
	return vector.Distance(m.Metric, input, m.Weights[node])
}
