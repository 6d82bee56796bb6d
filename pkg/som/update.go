package som

import (
	"math"

	"github.com/kestrel-labs/vsomcore/pkg/topology"
)

// kernelEpsilon is the minimum kernel value that counts as "affecting" a
// node during a batch update: k(d(bk,i), r) > ε.
const kernelEpsilon = 1e-9

// BatchUpdate applies one accumulated-delta update for a batch of inputs
// and their precomputed BMUs:
//
//  1. Zero accumulators Δ[i] and counters c[i].
//  2. For each sample, for every node whose kernel value at the sample's
//     BMU exceeds kernelEpsilon, accumulate Δ[i] += α·k·(x-w[i]), c[i]++.
//  3. After the whole batch, average: w[i] += Δ[i]/c[i] for every node with
//     c[i] > 0.
//
// Averaging after the batch (rather than applying each sample's delta
// immediately) is what keeps a dense neighborhood's updates from running
// away; step 3 must not be folded into step 2.
func (m *Map) BatchUpdate(inputs [][]float64, bmus []BMUResult, alpha, radius float64, kernel topology.Kernel) error {
	if len(inputs) != len(bmus) {
		return ErrEmptyBatch
	}

	n := len(m.Weights)
	delta := make([][]float64, n)
	counts := make([]int, n)

	for k, input := range inputs {
		if len(input) != m.Dim {
			return ErrInvalidDimension
		}
		bmu := bmus[k].Index

		candidates := m.Grid.Neighbors(bmu, radius)
		candidates = append(candidates, bmu)

		for _, i := range candidates {
			d := m.Grid.Distance(bmu, i)
			kv := topology.Evaluate(kernel, d, radius)
			if kv <= kernelEpsilon {
				continue
			}
			if delta[i] == nil {
				delta[i] = make([]float64, m.Dim)
			}
			for dim := 0; dim < m.Dim; dim++ {
				delta[i][dim] += alpha * kv * (input[dim] - m.Weights[i][dim])
			}
			counts[i]++
		}
	}

	for i := 0; i < n; i++ {
		if counts[i] == 0 {
			continue
		}
		inv := 1.0 / float64(counts[i])
		for dim := 0; dim < m.Dim; dim++ {
			m.Weights[i][dim] += delta[i][dim] * inv
			if math.IsNaN(m.Weights[i][dim]) || math.IsInf(m.Weights[i][dim], 0) {
				// Never let a degenerate update corrupt the map; clamp back
				// to the pre-update value rather than propagate NaN/Inf.
				m.Weights[i][dim] -= delta[i][dim] * inv
			}
		}
	}
	return nil
}
