package enhancement

import (
	"container/list"
	"sync"
	"time"

	"github.com/kestrel-labs/vsomcore/pkg/math/vector"
	"github.com/kestrel-labs/vsomcore/pkg/vsomcore"
)

// sourceCacheSize is the FIFO bound per per-source cache.
const sourceCacheSize = 100

// semanticCacheThreshold is the minimum query-embedding cosine similarity
// for a cross-source cache hit.
const semanticCacheThreshold = 0.8

// baseTTL is the undiscounted cache lifetime before reliability scaling.
const baseTTL = 7 * 24 * time.Hour

type cacheEntry struct {
	query     string
	embedding []float64
	answer    Answer
	source    vsomcore.BrokerSource
	expiresAt time.Time
}

// sourceCache is a bounded FIFO cache of one source's recent answers,
// evicting oldest-first once full.
type sourceCache struct {
	mu    sync.Mutex
	order *list.List
	byKey map[string]*list.Element
}

func newSourceCache() *sourceCache {
	return &sourceCache{order: list.New(), byKey: make(map[string]*list.Element)}
}

func (c *sourceCache) get(query string, now time.Time) (Answer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.byKey[query]
	if !ok {
		return Answer{}, false
	}
	entry := elem.Value.(*cacheEntry)
	if now.After(entry.expiresAt) {
		c.order.Remove(elem)
		delete(c.byKey, query)
		return Answer{}, false
	}
	return entry.answer, true
}

func (c *sourceCache) put(entry *cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.byKey[entry.query]; ok {
		c.order.Remove(elem)
	}
	c.byKey[entry.query] = c.order.PushFront(entry)
	for c.order.Len() > sourceCacheSize {
		back := c.order.Back()
		if back == nil {
			break
		}
		c.order.Remove(back)
		delete(c.byKey, back.Value.(*cacheEntry).query)
	}
}

// semanticCache is shared across all sources: a successful answer from any
// source can satisfy a semantically similar later query regardless of which
// source originally produced it.
type semanticCache struct {
	mu      sync.Mutex
	entries []*cacheEntry
}

func newSemanticCache() *semanticCache {
	return &semanticCache{}
}

// lookup returns the highest-similarity non-expired entry at or above
// semanticCacheThreshold, or false if none qualifies.
func (c *semanticCache) lookup(queryEmbedding []float64, now time.Time) (*cacheEntry, bool) {
	if len(queryEmbedding) == 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var best *cacheEntry
	bestSim := -1.0
	live := c.entries[:0]
	for _, e := range c.entries {
		if now.After(e.expiresAt) {
			continue
		}
		live = append(live, e)
		if len(e.embedding) == 0 {
			continue
		}
		sim := vector.CosineSimilarityFloat64(queryEmbedding, e.embedding)
		if sim >= semanticCacheThreshold && sim > bestSim {
			best, bestSim = e, sim
		}
	}
	c.entries = live
	return best, best != nil
}

func (c *semanticCache) put(entry *cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
}

// ttlFor scales baseTTL by the source's reliability tier.
func ttlFor(r Reliability) time.Duration {
	return time.Duration(float64(baseTTL) * r.ttlMultiplier())
}
