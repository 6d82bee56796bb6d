package store

import (
	"sort"
	"sync"

	"github.com/kestrel-labs/vsomcore/pkg/math/vector"
	"github.com/kestrel-labs/vsomcore/pkg/record"
)

// MemoryIndex is a brute-force, in-process EmbeddingIndex: it scores every
// stored vector against the query under cosine distance and returns the k
// closest. Adequate for the corpus sizes this module targets; no ANN
// structure is maintained.
type MemoryIndex struct {
	mu   sync.RWMutex
	vecs map[string][]float64
}

// NewMemoryIndex returns an empty MemoryIndex.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{vecs: make(map[string][]float64)}
}

func (m *MemoryIndex) Add(id string, vec []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]float64, len(vec))
	copy(cp, vec)
	m.vecs[id] = cp
	return nil
}

func (m *MemoryIndex) Search(vec []float64, k int) ([]ScoredID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ScoredID, 0, len(m.vecs))
	for id, v := range m.vecs {
		d, err := vector.CosineDistance(vec, v)
		if err != nil {
			continue
		}
		out = append(out, ScoredID{ID: id, Distance: d})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if k > 0 && k < len(out) {
		out = out[:k]
	}
	return out, nil
}

func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vecs)
}

// MemoryRecordStore is an in-process RecordStore backed by a map, guarded
// by a single-writer lane consistent with shared-resource policy
// (readers never block on a writer longer than one record append).
type MemoryRecordStore struct {
	mu      sync.RWMutex
	records map[string]*record.Record
}

// NewMemoryRecordStore returns an empty MemoryRecordStore.
func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{records: make(map[string]*record.Record)}
}

func (s *MemoryRecordStore) Put(r *record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.ID] = r
	return nil
}

func (s *MemoryRecordStore) Get(id string) (*record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

func (s *MemoryRecordStore) Scan(filter RecordFilter) ([]*record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*record.Record, 0, len(s.records))
	for _, r := range s.records {
		if !matchesDomains(r, filter.Domains) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func matchesDomains(r *record.Record, want []string) bool {
	if len(want) == 0 {
		return true
	}
	have := make(map[string]bool, len(r.Domains))
	for _, d := range r.Domains {
		have[string(d)] = true
	}
	for _, w := range want {
		if have[w] {
			return true
		}
	}
	return false
}
