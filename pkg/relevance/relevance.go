// Package relevance implements the multi-factor scoring model shared by the
// local index and the fusion core: domain match, temporal
// decay, semantic similarity, and access frequency, combined with adaptive
// per-user weights and contextual modifiers.
package relevance

import (
	"math"
	"strings"
	"time"

	"github.com/kestrel-labs/vsomcore/pkg/decay"
	"github.com/kestrel-labs/vsomcore/pkg/math/vector"
	"github.com/kestrel-labs/vsomcore/pkg/navstate"
	"github.com/kestrel-labs/vsomcore/pkg/record"
)

// Floor is the minimum score any record can receive: no record is ever
// perfectly invisible, so recovery of a "forgotten" record stays possible.
const Floor = 1e-3

// Weights controls the contribution of each of the four factors. Weights
// sum to 1 by default but callers may override per-user or per-context.
type Weights struct {
	Domain    float64
	Temporal  float64
	Semantic  float64
	Frequency float64
}

// DefaultWeights matches default distribution.
func DefaultWeights() Weights {
	return Weights{Domain: 0.35, Temporal: 0.20, Semantic: 0.30, Frequency: 0.15}
}

// UserContext supplies the adaptive inputs: a per-user weight
// override, the IDs of recently interacted-with records, and the active
// project's domain (for the contextual modifiers).
type UserContext struct {
	Weights             *Weights
	RecentInteractions  map[string]bool
	ActiveProjectDomain string
}

// domainBoost multiplies a weighted score by domain type, capped at 1.0
// after multiplication.
var domainBoost = map[record.DomainType]float64{
	record.DomainInstruction: 1.5,
	record.DomainUser:        1.2,
	record.DomainProject:     1.0,
	record.DomainSession:     0.8,
}

// Engine scores records against a navigation state, holding nothing but
// the weight configuration — all other inputs are per-call.
type Engine struct {
	weights Weights
}

// New returns an Engine with the given default weights (DefaultWeights()
// if the zero value is passed).
func New(weights Weights) *Engine {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	return &Engine{weights: weights}
}

// BatchContext precomputes the values documents are shared across a
// batch: current time, focus embedding, and pan domains.
type BatchContext struct {
	Now            time.Time
	FocusEmbedding []float64
	FocusTokens    []string
	PanDomains     map[string]bool
}

// NewBatchContext precomputes a BatchContext for state and an optional
// focus embedding/text (either may be empty; Score falls back accordingly).
func NewBatchContext(now time.Time, state navstate.State, focusEmbedding []float64, focusText string) BatchContext {
	panDomains := make(map[string]bool, len(state.Pan.Domains))
	for _, d := range state.Pan.Domains {
		panDomains[d] = true
	}
	return BatchContext{
		Now:            now,
		FocusEmbedding: focusEmbedding,
		FocusTokens:    tokenize(focusText),
		PanDomains:     panDomains,
	}
}

// Score computes r's relevance against bc/state/user in [Floor, 1].
func (e *Engine) Score(r *record.Record, state navstate.State, bc BatchContext, user *UserContext) float64 {
	w := e.weights
	if user != nil && user.Weights != nil {
		w = *user.Weights
	}

	domainScore := domainMatch(r.Domains, bc.PanDomains)
	temporalScore := e.temporal(r, bc.Now)
	semanticScore := e.semantic(r, bc)
	frequencyScore := e.frequency(r, user)

	score := w.Domain*domainScore + w.Temporal*temporalScore + w.Semantic*semanticScore + w.Frequency*frequencyScore

	score = applyDomainBoosts(score, r.Domains, bc.PanDomains)
	score = applyContextualModifiers(score, r, user)

	if score < Floor {
		score = Floor
	}
	if score > 1 {
		score = 1
	}
	return score
}

// BatchScore scores every record in rs against the same BatchContext,
// reusing the precomputed focus embedding/tokens and pan domains.
func (e *Engine) BatchScore(rs []*record.Record, state navstate.State, bc BatchContext, user *UserContext) []float64 {
	out := make([]float64, len(rs))
	for i, r := range rs {
		out[i] = e.Score(r, state, bc, user)
	}
	return out
}

// domainMatch is the Jaccard similarity of r's domains against the pan
// filter's domains.
func domainMatch(domains []record.Domain, panDomains map[string]bool) float64 {
	if len(domains) == 0 && len(panDomains) == 0 {
		return 1.0
	}
	if len(domains) == 0 || len(panDomains) == 0 {
		return 0.1
	}

	recordSet := make(map[string]bool, len(domains))
	for _, d := range domains {
		recordSet[string(d)] = true
	}

	var intersection int
	union := make(map[string]bool, len(recordSet)+len(panDomains))
	for d := range recordSet {
		union[d] = true
		if panDomains[d] {
			intersection++
		}
	}
	for d := range panDomains {
		union[d] = true
	}

	return float64(intersection) / float64(len(union))
}

// temporal is factor 2: exponential decay by the record's dominant domain
// type half-life, plus a recency bonus inside the first hour.
func (e *Engine) temporal(r *record.Record, now time.Time) float64 {
	age := now.Sub(r.LastAccessed())
	if age < 0 {
		age = 0
	}
	ageHours := age.Hours()

	halfLife := dominantHalfLife(r.Domains)
	score := decay.ScoreForAge(ageHours, halfLife)

	if age < time.Hour {
		score += 0.2 * (1 - ageHours)
	}
	if score > 1 {
		score = 1
	}
	return score
}

// dominantHalfLife picks the half-life for a record's dominant domain type.
// "Dominant" is the first domain tag whose type appears in the half-life
// table; records with no recognized domain type fall back to daily decay.
func dominantHalfLife(domains []record.Domain) float64 {
	for _, d := range domains {
		if hl, ok := decay.DomainHalfLifeHours[string(d.Type())]; ok {
			return hl
		}
	}
	return decay.DefaultHalfLifeHours
}

// semantic is factor 3: cosine similarity raised to 0.8, falling back to
// token overlap when either embedding is missing.
func (e *Engine) semantic(r *record.Record, bc BatchContext) float64 {
	if len(r.Embedding) > 0 && len(bc.FocusEmbedding) > 0 && len(r.Embedding) == len(bc.FocusEmbedding) {
		sim, err := vector.CosineSimilarityRanked(r.Embedding, bc.FocusEmbedding)
		if err == nil {
			if sim < 0 {
				sim = 0
			}
			return math.Pow(sim, 0.8)
		}
	}
	return tokenOverlap(tokenize(r.Content), bc.FocusTokens)
}

// frequency is factor 4: log-scaled access count plus importance plus an
// optional per-user bonus.
func (e *Engine) frequency(r *record.Record, user *UserContext) float64 {
	count := float64(r.AccessCount())
	freq := 0.6*math.Log(1+count)/math.Log(100) + 0.4*r.Importance

	var userBonus float64
	if user != nil && user.RecentInteractions != nil && user.RecentInteractions[r.ID] {
		userBonus = 0.1
	}
	score := freq + userBonus
	if score > 1 {
		score = 1
	}
	return score
}

// applyDomainBoosts multiplies score by the boost for every domain type on
// r that also appears in the pan filter's domains, capping at 1.0.
// Unmatched pan filters apply no boost.
func applyDomainBoosts(score float64, domains []record.Domain, panDomains map[string]bool) float64 {
	for _, d := range domains {
		if !panDomains[string(d)] {
			continue
		}
		if boost, ok := domainBoost[d.Type()]; ok {
			score *= boost
		}
	}
	if score > 1 {
		score = 1
	}
	return score
}

// applyContextualModifiers implements the three multiplicative bumps: x1.3
// for a recent interaction, x1.2 for the active project's domain, x1.5 for
// an instruction record.
func applyContextualModifiers(score float64, r *record.Record, user *UserContext) float64 {
	if user != nil && user.RecentInteractions != nil && user.RecentInteractions[r.ID] {
		score *= 1.3
	}
	if user != nil && user.ActiveProjectDomain != "" {
		for _, d := range r.Domains {
			if string(d) == user.ActiveProjectDomain {
				score *= 1.2
				break
			}
		}
	}
	if r.HasDomainType(record.DomainInstruction) {
		score *= 1.5
	}
	return score
}

func tokenize(s string) []string {
	if s == "" {
		return nil
	}
	fields := strings.Fields(strings.ToLower(s))
	return fields
}

// tokenOverlap returns |a ∩ b| / max(|a|, |b|, 1), the fallback semantic
// score when no embedding is available.
func tokenOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]bool, len(a))
	for _, t := range a {
		setA[t] = true
	}
	var overlap int
	for _, t := range b {
		if setA[t] {
			overlap++
		}
	}
	denom := len(a)
	if len(b) > denom {
		denom = len(b)
	}
	return float64(overlap) / float64(denom)
}
