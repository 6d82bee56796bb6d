package vsom

import (
	"fmt"

	"github.com/kestrel-labs/vsomcore/pkg/math/vector"
	"github.com/kestrel-labs/vsomcore/pkg/vsomcore"
)

// NodeMapping pairs an input entry with its BMU and the distance to that
// node's weight vector.
type NodeMapping struct {
	EntryID  string
	NodeIdx  int
	Distance float64
}

// NodeMappings requires state Trained (or TrainingStopped, whose partial
// weights are still meaningful) and computes the BMU of every loaded entry.
func (e *Engine) NodeMappings() ([]NodeMapping, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.readyForQuery() {
		return nil, fmt.Errorf("vsom: node_mappings: %w (state=%s)", vsomcore.ErrNotReady, e.state)
	}

	inputs := make([][]float64, len(e.entries))
	for i, en := range e.entries {
		inputs[i] = en.Embedding
	}
	results, err := e.m.BMU(inputs)
	if err != nil {
		return nil, fmt.Errorf("vsom: node_mappings: %w", err)
	}

	out := make([]NodeMapping, len(results))
	for i, r := range results {
		out[i] = NodeMapping{EntryID: e.entries[i].ID, NodeIdx: r.Index, Distance: r.Distance}
	}
	return out, nil
}

func (e *Engine) readyForQuery() bool {
	return e.state == StateTrained || e.state == StateTrainingStopped
}

// Cluster is a region-grown set of grid nodes sharing a similar weight
// vector.
type Cluster struct {
	ID       int
	Members  []int
	Centroid []float64
}

// clusterAdjacencyRadius is the region-grow BFS radius: 1.5,
// i.e. 8-adjacency on a rectangular grid and 6-adjacency on hex.
const clusterAdjacencyRadius = 1.5

// Clusters region-grows the grid under weight-cosine-similarity >=
// threshold, discarding clusters smaller than minClusterSize.
func (e *Engine) Clusters(threshold float64, minClusterSize int) ([]Cluster, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.readyForQuery() {
		return nil, fmt.Errorf("vsom: clusters: %w (state=%s)", vsomcore.ErrNotReady, e.state)
	}
	if minClusterSize < 1 {
		minClusterSize = 1
	}

	key := e.queryCache.Key("clusters", threshold, minClusterSize)
	if v, ok := e.queryCache.Get(key); ok {
		return v.([]Cluster), nil
	}

	n := len(e.m.Weights)
	visited := make([]bool, n)
	var clusters []Cluster

	for seed := 0; seed < n; seed++ {
		if visited[seed] {
			continue
		}
		members := e.regionGrow(seed, threshold, visited)
		if len(members) < minClusterSize {
			continue
		}
		clusters = append(clusters, Cluster{
			ID:       seed,
			Members:  members,
			Centroid: centroidOf(e.m.Weights, members),
		})
	}
	e.queryCache.Put(key, clusters)
	return clusters, nil
}

// regionGrow runs a BFS from seed over nodes within clusterAdjacencyRadius
// whose weight-cosine-similarity to the growing cluster's frontier node is
// >= threshold, marking every visited node (even ones that end up outside
// any surviving cluster) so later seeds never re-enumerate them.
func (e *Engine) regionGrow(seed int, threshold float64, visited []bool) []int {
	queue := []int{seed}
	visited[seed] = true
	members := []int{seed}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, nb := range e.grid.Neighbors(cur, clusterAdjacencyRadius) {
			if visited[nb] {
				continue
			}
			sim, err := vector.CosineSimilarityRanked(e.m.Weights[cur], e.m.Weights[nb])
			if err != nil {
				continue
			}
			visited[nb] = true
			if sim >= threshold {
				members = append(members, nb)
				queue = append(queue, nb)
			}
		}
	}
	return members
}

func centroidOf(weights [][]float64, members []int) []float64 {
	if len(members) == 0 {
		return nil
	}
	dim := len(weights[members[0]])
	centroid := make([]float64, dim)
	for _, idx := range members {
		for d := 0; d < dim; d++ {
			centroid[d] += weights[idx][d]
		}
	}
	for d := range centroid {
		centroid[d] /= float64(len(members))
	}
	return centroid
}

// FeatureMapKind selects feature_map's output.
type FeatureMapKind string

const (
	FeatureMapUMatrix   FeatureMapKind = "umatrix"
	FeatureMapComponent FeatureMapKind = "component"
)

// FeatureMap returns one value per node. For umatrix, the value is the
// mean distance to the node's grid neighbors; for component, the value is
// the node's weight on the given dimension.
func (e *Engine) FeatureMap(kind FeatureMapKind, componentDim int) ([]float64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.readyForQuery() {
		return nil, fmt.Errorf("vsom: feature_map: %w (state=%s)", vsomcore.ErrNotReady, e.state)
	}
	if kind == "" {
		kind = FeatureMapUMatrix
	}

	key := e.queryCache.Key("feature_map", kind, componentDim)
	if v, ok := e.queryCache.Get(key); ok {
		return v.([]float64), nil
	}

	var out []float64
	switch kind {
	case FeatureMapUMatrix:
		out = e.uMatrix()
	case FeatureMapComponent:
		if componentDim < 0 || componentDim >= e.m.Dim {
			return nil, fmt.Errorf("vsom: feature_map: %w: component dim out of range", vsomcore.ErrBadInput)
		}
		out = make([]float64, len(e.m.Weights))
		for i, w := range e.m.Weights {
			out[i] = w[componentDim]
		}
	default:
		return nil, fmt.Errorf("vsom: feature_map: %w: unknown kind %q", vsomcore.ErrBadInput, kind)
	}
	e.queryCache.Put(key, out)
	return out, nil
}

func (e *Engine) uMatrix() []float64 {
	radius := e.grid.AdjacencyThreshold()
	out := make([]float64, len(e.m.Weights))
	for i := range e.m.Weights {
		neighbors := e.grid.Neighbors(i, radius)
		if len(neighbors) == 0 {
			continue
		}
		var sum float64
		for _, nb := range neighbors {
			d, err := vector.Distance(e.m.Metric, e.m.Weights[i], e.m.Weights[nb])
			if err == nil {
				sum += d
			}
		}
		out[i] = sum / float64(len(neighbors))
	}
	return out
}
