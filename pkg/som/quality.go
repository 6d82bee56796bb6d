package som

// QuantizationError returns the mean BMU distance over inputs: the
// standard measure of how tightly the map fits the data.
func (m *Map) QuantizationError(inputs [][]float64) (float64, error) {
	if len(inputs) == 0 {
		return 0, ErrEmptyBatch
	}
	results, err := m.BMU(inputs)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, r := range results {
		sum += r.Distance
	}
	return sum / float64(len(results)), nil
}

// TopographicError returns the fraction of inputs whose best and
// second-best matching units are not grid-adjacent, i.e. whose BMU and
// 2nd-BMU distance on the grid exceeds the topology's adjacency threshold
// (the threshold is per-topology, not a single sqrt(2)+eps constant).
func (m *Map) TopographicError(inputs [][]float64) (float64, error) {
	if len(inputs) == 0 {
		return 0, ErrEmptyBatch
	}
	threshold := m.Grid.AdjacencyThreshold()

	var violations int
	for _, input := range inputs {
		first, second, err := m.bmuTop2(input)
		if err != nil {
			return 0, err
		}
		gridDist := m.Grid.Distance(first.Index, second.Index)
		if gridDist > threshold {
			violations++
		}
	}
	return float64(violations) / float64(len(inputs)), nil
}
