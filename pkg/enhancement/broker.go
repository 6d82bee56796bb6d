package enhancement

import (
	"context"
	"sync"
	"time"

	"github.com/kestrel-labs/vsomcore/pkg/vsomcore"
)

// DefaultTimeout is the per-source call budget.
const DefaultTimeout = 10 * time.Second

// DefaultMinInterval is the minimum gap between two requests to the same
// source.
const DefaultMinInterval = 200 * time.Millisecond

// sourceState bundles one registered Source with its private rate limiter
// and FIFO cache.
type sourceState struct {
	source Source
	limit  *rateLimiter
	cache  *sourceCache
}

// Broker fans a query out to every registered Source concurrently,
// respecting each source's rate limit and timeout independently, and merges
// the outcomes into one envelope that reports partial failure rather than
// failing the whole call.
type Broker struct {
	Timeout     time.Duration
	MinInterval time.Duration

	mu       sync.Mutex
	sources  []*sourceState
	semantic *semanticCache
}

// NewBroker constructs an empty Broker with the documented defaults.
func NewBroker() *Broker {
	return &Broker{
		Timeout:     DefaultTimeout,
		MinInterval: DefaultMinInterval,
		semantic:    newSemanticCache(),
	}
}

// Register adds src to the broker's source set. Not safe to call
// concurrently with Enhance.
func (b *Broker) Register(src Source) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sources = append(b.sources, &sourceState{
		source: src,
		limit:  newRateLimiter(b.MinInterval),
		cache:  newSourceCache(),
	})
}

// SourceResult is one source's outcome, successful or not.
type SourceResult struct {
	Source vsomcore.BrokerSource
	Answer Answer
	Err    error
	Cached bool
}

// Envelope is Enhance's return value: Success is true if at
// least one source answered; Answer is the highest-confidence successful
// answer when Success is true.
type Envelope struct {
	Success    bool
	Answer     *Answer
	Sources    []vsomcore.BrokerSource
	Successful []SourceResult
	Failed     []SourceResult
}

// Enhance queries every registered source concurrently, enforcing the
// broker's timeout and each source's rate limit independently, and returns a
// merged Envelope. It never returns a Go error itself — individual source
// failures are reported in Envelope.Failed.
func (b *Broker) Enhance(ctx context.Context, query string, queryEmbedding []float64) Envelope {
	now := time.Now()
	if hit, ok := b.semantic.lookup(queryEmbedding, now); ok {
		return Envelope{
			Success:    true,
			Answer:     &hit.answer,
			Sources:    []vsomcore.BrokerSource{hit.source},
			Successful: []SourceResult{{Source: hit.source, Answer: hit.answer, Cached: true}},
		}
	}

	b.mu.Lock()
	states := make([]*sourceState, len(b.sources))
	copy(states, b.sources)
	b.mu.Unlock()

	results := make([]SourceResult, len(states))
	var wg sync.WaitGroup
	for i, st := range states {
		wg.Add(1)
		go func(i int, st *sourceState) {
			defer wg.Done()
			results[i] = b.callSource(ctx, st, query, queryEmbedding, now)
		}(i, st)
	}
	wg.Wait()

	return b.merge(results)
}

func (b *Broker) callSource(ctx context.Context, st *sourceState, query string, queryEmbedding []float64, now time.Time) SourceResult {
	name := st.source.Name()

	if answer, ok := st.cache.get(query, now); ok {
		return SourceResult{Source: name, Answer: answer, Cached: true}
	}

	callCtx, cancel := context.WithTimeout(ctx, b.Timeout)
	defer cancel()

	if err := st.limit.wait(callCtx); err != nil {
		return SourceResult{Source: name, Err: vsomcore.NewBrokerError(name, vsomcore.ErrTimedOut)}
	}

	answer, err := st.source.Enhance(callCtx, query)
	if err != nil {
		reason := err
		if callCtx.Err() != nil {
			reason = vsomcore.ErrTimedOut
		}
		return SourceResult{Source: name, Err: vsomcore.NewBrokerError(name, reason)}
	}

	entry := &cacheEntry{
		query:     query,
		embedding: queryEmbedding,
		answer:    answer,
		source:    name,
		expiresAt: now.Add(ttlFor(st.source.Reliability())),
	}
	st.cache.put(entry)
	b.semantic.put(entry)

	return SourceResult{Source: name, Answer: answer}
}

// merge implements the envelope assembly: the highest-confidence
// successful answer wins, but every source's outcome is reported.
func (b *Broker) merge(results []SourceResult) Envelope {
	env := Envelope{}
	var best *SourceResult
	for i := range results {
		r := results[i]
		if r.Err != nil {
			env.Failed = append(env.Failed, r)
			continue
		}
		env.Successful = append(env.Successful, r)
		env.Sources = append(env.Sources, r.Source)
		if best == nil || r.Answer.Confidence > best.Answer.Confidence {
			best = &results[i]
		}
	}
	if best != nil {
		env.Success = true
		env.Answer = &best.Answer
	}
	return env
}
