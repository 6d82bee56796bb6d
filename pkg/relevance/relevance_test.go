package relevance

import (
	"testing"
	"time"

	"github.com/kestrel-labs/vsomcore/pkg/navstate"
	"github.com/kestrel-labs/vsomcore/pkg/record"
)

func TestScoreNeverBelowFloor(t *testing.T) {
	e := New(DefaultWeights())
	r := record.NewRecord("r1", "", "irrelevant", nil, time.Now().Add(-10000*time.Hour), nil, 0, nil)
	bc := NewBatchContext(time.Now(), navstate.Defaults(), nil, "")
	score := e.Score(r, navstate.Defaults(), bc, nil)
	if score < Floor {
		t.Fatalf("expected score >= floor %v, got %v", Floor, score)
	}
}

func TestScoreNeverExceedsOne(t *testing.T) {
	e := New(DefaultWeights())
	now := time.Now()
	r := record.NewRecord("r1", "", "hello world", []float64{1, 0}, now, []record.Domain{"instruction:sys"}, 1.0, nil)
	r.Touch(now)
	for i := 0; i < 200; i++ {
		r.Touch(now)
	}
	state := navstate.State{Zoom: navstate.ZoomEntity, Pan: navstate.Pan{Domains: []string{"instruction:sys"}}, Tilt: navstate.TiltEmbedding}
	bc := NewBatchContext(now, state, []float64{1, 0}, "hello world")
	user := &UserContext{
		RecentInteractions:  map[string]bool{"r1": true},
		ActiveProjectDomain: "instruction:sys",
	}
	score := e.Score(r, state, bc, user)
	if score > 1.0 {
		t.Fatalf("expected score <= 1.0, got %v", score)
	}
}

func TestDomainMatchBothEmpty(t *testing.T) {
	if got := domainMatch(nil, nil); got != 1.0 {
		t.Fatalf("expected 1.0 for both empty, got %v", got)
	}
}

func TestDomainMatchOneEmpty(t *testing.T) {
	panDomains := map[string]bool{"user:alice": true}
	if got := domainMatch(nil, panDomains); got != 0.1 {
		t.Fatalf("expected 0.1 when record has no domains, got %v", got)
	}
}

func TestDomainMatchJaccard(t *testing.T) {
	domains := []record.Domain{"user:alice", "project:x"}
	panDomains := map[string]bool{"user:alice": true, "project:y": true}
	got := domainMatch(domains, panDomains)
	// intersection = {user:alice} = 1, union = {user:alice, project:x, project:y} = 3
	want := 1.0 / 3.0
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestTemporalRecencyBonus(t *testing.T) {
	e := New(DefaultWeights())
	now := time.Now()
	recent := record.NewRecord("r1", "", "", nil, now.Add(-time.Minute), nil, 0, nil)
	old := record.NewRecord("r2", "", "", nil, now.Add(-48*time.Hour), nil, 0, nil)

	recentScore := e.temporal(recent, now)
	oldScore := e.temporal(old, now)
	if recentScore <= oldScore {
		t.Fatalf("expected recent record to score higher: recent=%v old=%v", recentScore, oldScore)
	}
}

func TestFrequencyMonotonicInAccessCount(t *testing.T) {
	e := New(DefaultWeights())
	low := record.NewRecord("r1", "", "", nil, time.Now(), nil, 0, nil)
	high := record.NewRecord("r2", "", "", nil, time.Now(), nil, 0, nil)
	for i := 0; i < 50; i++ {
		high.Touch(time.Now())
	}
	if e.frequency(low, nil) >= e.frequency(high, nil) {
		t.Fatal("expected higher access count to score higher frequency")
	}
}

func TestSemanticFallsBackToTokenOverlap(t *testing.T) {
	e := New(DefaultWeights())
	r := record.NewRecord("r1", "", "the quick brown fox", nil, time.Now(), nil, 0, nil)
	bc := BatchContext{FocusTokens: []string{"quick", "fox", "jumps"}}
	score := e.semantic(r, bc)
	if score <= 0 {
		t.Fatalf("expected positive token overlap score, got %v", score)
	}
}
