// Package enhancement implements the broker that calls out to external
// enrichment services (text search, structured knowledge, embedding lookup),
// rate limiting, timing out, and caching each source independently, then
// folding the per-source outcomes into one partial-failure-tolerant envelope.
package enhancement

import (
	"context"

	"github.com/kestrel-labs/vsomcore/pkg/vsomcore"
)

// Source is the contract every external enrichment provider implements.
// Enhance must respect ctx cancellation/deadline; the broker itself applies
// the per-source timeout, so implementations need not set their own.
type Source interface {
	Name() vsomcore.BrokerSource
	Enhance(ctx context.Context, query string) (Answer, error)
	// Reliability classifies the source for TTL scaling.
	Reliability() Reliability
}

// Reliability tiers scale cache TTL per source.
type Reliability int

const (
	ReliabilityFreeText Reliability = iota
	ReliabilityEncyclopedic
	ReliabilityGenerated
)

// ttlMultiplier implements the per-reliability TTL scaling.
func (r Reliability) ttlMultiplier() float64 {
	switch r {
	case ReliabilityEncyclopedic:
		return 1.5
	case ReliabilityGenerated:
		return 0.8
	default:
		return 1.2
	}
}

// Answer is one source's successful response.
type Answer struct {
	Text       string
	Confidence float64
	Embedding  []float64
}
