// Package localindex implements a filter-aware similarity search over
// a combined in-memory vector index and canonical record store, with an
// explicit, tombstoned index-position-to-record mapping.
package localindex

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kestrel-labs/vsomcore/pkg/navstate"
	"github.com/kestrel-labs/vsomcore/pkg/record"
	"github.com/kestrel-labs/vsomcore/pkg/store"
)

// Candidate is one ranked search result.
type Candidate struct {
	Record     *record.Record
	Similarity float64
}

// Index wraps a vector index and record store into the combined search
// contract, maintaining an explicit integer position-to-record
// map alongside them.
type Index struct {
	vectors store.EmbeddingIndex
	records store.RecordStore

	mu      sync.RWMutex
	posToID map[int]string // faiss_pos -> record id; tombstoned entries map to ""
	idToPos map[string]int
	nextPos int
}

// New wraps an existing vector index and record store.
func New(vectors store.EmbeddingIndex, records store.RecordStore) *Index {
	return &Index{
		vectors: vectors,
		records: records,
		posToID: make(map[int]string),
		idToPos: make(map[string]int),
	}
}

// Upsert adds r to both collaborators and assigns it a fresh position.
func (idx *Index) Upsert(r *record.Record) error {
	if err := idx.records.Put(r); err != nil {
		return err
	}
	if err := idx.vectors.Add(r.ID, r.Embedding); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	pos := idx.nextPos
	idx.nextPos++
	idx.posToID[pos] = r.ID
	idx.idToPos[r.ID] = pos
	return nil
}

// Evict tombstones id's position entry without touching the underlying
// collaborators — the position is never reassigned to another record.
func (idx *Index) Evict(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if pos, ok := idx.idToPos[id]; ok {
		idx.posToID[pos] = ""
		delete(idx.idToPos, id)
	}
}

// RecordAt returns the record id at pos, or "" if pos is tombstoned or
// out of range (a miss, not an error).
func (idx *Index) RecordAt(pos int) string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.posToID[pos]
}

// zoomLimit returns the per-zoom result cap (navstate.Zoom.ResultCap), the
// same table adaptive search uses for its pass-1 limit.
func zoomLimit(z navstate.Zoom) int { return z.ResultCap() }

// Search runs the combined candidate search: vector
// candidates from the index (deduped, keeping the highest similarity per
// id), re-ranked by pan filters, and truncated to the zoom's result cap.
// Every returned record is touched at now (access count and last access).
func (idx *Index) Search(queryEmbedding []float64, state navstate.State, limit int, threshold float64, now time.Time) ([]Candidate, error) {
	k := limit
	if k <= 0 {
		k = zoomLimit(state.Zoom) * 4 // over-fetch so post-filter boosts still have room to re-rank
	}

	scored, err := idx.vectors.Search(queryEmbedding, k*3+10)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]Candidate, len(scored))
	for _, s := range scored {
		sim := l2ToSimilarity(s.Distance)
		if sim < threshold {
			continue
		}
		if existing, ok := byID[s.ID]; ok && existing.Similarity >= sim {
			continue
		}
		r, err := idx.records.Get(s.ID)
		if err != nil {
			continue
		}
		byID[s.ID] = Candidate{Record: r, Similarity: sim}
	}

	candidates := make([]Candidate, 0, len(byID))
	for _, c := range byID {
		candidates = append(candidates, c)
	}

	candidates = applyPanFilters(candidates, state.Pan, now)

	sort.Slice(candidates, func(i, j int) bool {
		if math.Abs(candidates[i].Similarity-candidates[j].Similarity) < 0.01 {
			return candidates[i].Record.LastAccessed().After(candidates[j].Record.LastAccessed())
		}
		return candidates[i].Similarity > candidates[j].Similarity
	})

	resultCap := limit
	if resultCap <= 0 {
		resultCap = zoomLimit(state.Zoom)
	}
	if resultCap < len(candidates) {
		candidates = candidates[:resultCap]
	}
	for _, c := range candidates {
		c.Record.Touch(now)
	}
	return candidates, nil
}

// l2ToSimilarity converts an L2 distance into a bounded similarity score:
// sim = exp(-d/2).
func l2ToSimilarity(d float64) float64 {
	return math.Exp(-d / 2)
}

// applyPanFilters implements the post-filter boosts: domain
// substring match, keyword regex boost (+0.05/match), entity mention boost
// (+0.1), and temporal inclusion (records without a timestamp are skipped
// from the temporal check rather than excluded entirely).
func applyPanFilters(candidates []Candidate, pan navstate.Pan, now time.Time) []Candidate {
	keywordRes := make([]*regexp.Regexp, 0, len(pan.Keywords))
	for _, kw := range pan.Keywords {
		if re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(kw)); err == nil {
			keywordRes = append(keywordRes, re)
		}
	}

	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if len(pan.Domains) > 0 && !domainSubstringMatch(c.Record.Domains, pan.Domains) {
			continue
		}

		boost := 0.0
		for _, re := range keywordRes {
			if re.MatchString(c.Record.Content) {
				boost += 0.05
			}
		}
		for _, ent := range pan.Entities {
			if strings.Contains(strings.ToLower(c.Record.Content), strings.ToLower(ent)) {
				boost += 0.1
				break
			}
		}
		if !c.Record.CreatedAt.IsZero() {
			start, end := pan.Temporal.Start, pan.Temporal.End
			if start != nil && c.Record.CreatedAt.Before(*start) {
				continue
			}
			if end != nil && c.Record.CreatedAt.After(*end) {
				continue
			}
		}

		c.Similarity += boost
		if c.Similarity > 1 {
			c.Similarity = 1
		}
		out = append(out, c)
	}
	return out
}

func domainSubstringMatch(domains []record.Domain, panDomains []string) bool {
	for _, d := range domains {
		for _, p := range panDomains {
			if strings.Contains(string(d), p) {
				return true
			}
		}
	}
	return false
}
