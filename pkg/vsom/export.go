package vsom

import "fmt"

// ExportRecord is one emitted row of Export: an entry's node assignment,
// cluster membership (if any), and cluster confidence.
type ExportRecord struct {
	EntryID    string
	NodeIdx    int
	ClusterID  int // -1 if the entry's node belongs to no surviving cluster
	Confidence float64
}

// Export emits one ExportRecord per loaded entry: its BMU, the cluster
// that BMU belongs to (if any), and a confidence score of
// max(0, 1 - bmu_distance). clusterThreshold/minClusterSize
// parameterize the Clusters() call Export makes internally.
func (e *Engine) Export(clusterThreshold float64, minClusterSize int) ([]ExportRecord, error) {
	mappings, err := e.NodeMappings()
	if err != nil {
		return nil, fmt.Errorf("vsom: export: %w", err)
	}
	clusters, err := e.Clusters(clusterThreshold, minClusterSize)
	if err != nil {
		return nil, fmt.Errorf("vsom: export: %w", err)
	}

	nodeToCluster := make(map[int]int, len(clusters))
	for _, c := range clusters {
		for _, member := range c.Members {
			nodeToCluster[member] = c.ID
		}
	}

	out := make([]ExportRecord, len(mappings))
	for i, m := range mappings {
		clusterID, ok := nodeToCluster[m.NodeIdx]
		if !ok {
			clusterID = -1
		}
		confidence := 1 - m.Distance
		if confidence < 0 {
			confidence = 0
		}
		out[i] = ExportRecord{EntryID: m.EntryID, NodeIdx: m.NodeIdx, ClusterID: clusterID, Confidence: confidence}
	}
	return out, nil
}
