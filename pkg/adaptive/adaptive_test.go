package adaptive

import (
	"testing"
	"time"

	"github.com/kestrel-labs/vsomcore/pkg/localindex"
	"github.com/kestrel-labs/vsomcore/pkg/navstate"
	"github.com/kestrel-labs/vsomcore/pkg/record"
	"github.com/kestrel-labs/vsomcore/pkg/store"
)

func newPopulatedIndex(t *testing.T, n int) *localindex.Index {
	t.Helper()
	idx := localindex.New(store.NewMemoryIndex(), store.NewMemoryRecordStore())
	now := time.Now()
	for i := 0; i < n; i++ {
		// Spread embeddings so similarity to [1,0] decays with i, forcing
		// later passes to pull in lower-similarity candidates.
		v := []float64{1 - float64(i)*0.05, float64(i) * 0.05}
		idx.Upsert(record.NewRecord(itoa(i), "", "content", v, now, nil, 0, nil))
	}
	return idx
}

func itoa(n int) string {
	if n == 0 {
		return "r0"
	}
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return "r" + digits
}

func TestSearchSatisfiesTargetOnFirstPass(t *testing.T) {
	idx := newPopulatedIndex(t, 10)
	now := time.Now()
	res, err := Search(idx, []float64{1, 0}, navstate.Defaults(), Config{TargetResults: 2}, now)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Passes != 1 {
		t.Fatalf("expected to satisfy target on pass 1, used %d passes", res.Passes)
	}
	if len(res.Contexts) < 2 {
		t.Fatalf("expected >= 2 contexts, got %d", len(res.Contexts))
	}
}

func TestSearchWidensAcrossPasses(t *testing.T) {
	idx := newPopulatedIndex(t, 3)
	now := time.Now()
	state := navstate.State{Zoom: navstate.ZoomEntity, Pan: navstate.Pan{}, Tilt: navstate.TiltKeywords}
	// Only 3 records exist, so a target of 4 is never met and every pass runs.
	res, err := Search(idx, []float64{1, 0}, state, Config{TargetResults: 4, MaxPasses: 3}, now)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Passes < 1 {
		t.Fatal("expected at least one pass to run")
	}
	if len(res.PerPassStats) != res.Passes {
		t.Fatalf("expected %d pass stats, got %d", res.Passes, len(res.PerPassStats))
	}
	// Thresholds must strictly decrease (or hold the floor) pass over pass.
	for i := 1; i < len(res.PerPassStats); i++ {
		if res.PerPassStats[i].Threshold > res.PerPassStats[i-1].Threshold {
			t.Fatalf("expected non-increasing threshold, pass %d=%v pass %d=%v",
				i-1, res.PerPassStats[i-1].Threshold, i, res.PerPassStats[i].Threshold)
		}
	}
}

func TestSearchEmptyIndexReturnsReasonNotError(t *testing.T) {
	idx := localindex.New(store.NewMemoryIndex(), store.NewMemoryRecordStore())
	now := time.Now()
	res, err := Search(idx, []float64{1, 0}, navstate.Defaults(), Config{}, now)
	if err != nil {
		t.Fatalf("expected no error on empty index, got %v", err)
	}
	if len(res.Contexts) != 0 {
		t.Fatalf("expected no contexts, got %d", len(res.Contexts))
	}
	if res.Reason == "" {
		t.Fatal("expected a Reason explaining the empty result")
	}
}

func TestPass3DropsDomainFilter(t *testing.T) {
	idx := localindex.New(store.NewMemoryIndex(), store.NewMemoryRecordStore())
	now := time.Now()
	// Only record doesn't match the pan domain filter; without pass 3
	// relaxing it, this query would starve across all passes.
	idx.Upsert(record.NewRecord("r1", "", "", []float64{1, 0}, now, []record.Domain{"project:other"}, 0, nil))

	state := navstate.State{
		Zoom: navstate.ZoomEntity,
		Pan:  navstate.Pan{Domains: []string{"user:alice"}},
		Tilt: navstate.TiltKeywords,
	}
	res, err := Search(idx, []float64{1, 0}, state, Config{TargetResults: 1, MaxPasses: 3}, now)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Contexts) != 1 {
		t.Fatalf("expected pass 3 to recover the domain-mismatched record, got %d contexts (passes=%d)", len(res.Contexts), res.Passes)
	}
	if res.Passes != 3 {
		t.Fatalf("expected to need all 3 passes, used %d", res.Passes)
	}
}

func TestPassStatsCarriesSmoothedQuality(t *testing.T) {
	idx := newPopulatedIndex(t, 10)
	now := time.Now()
	res, err := Search(idx, []float64{1, 0}, navstate.Defaults(), Config{TargetResults: 2}, now)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.PerPassStats) == 0 {
		t.Fatal("expected at least one pass stat")
	}
	for _, s := range res.PerPassStats {
		if s.Quality < 0 || s.Quality > 1.5 {
			t.Fatalf("expected a plausible smoothed quality value, got %v", s.Quality)
		}
	}
}

func TestConfigResolveDefaults(t *testing.T) {
	c := Config{}.Resolve()
	if c.MaxPasses != 3 {
		t.Fatalf("expected default MaxPasses=3, got %d", c.MaxPasses)
	}
	if c.TargetResults != 5 {
		t.Fatalf("expected default TargetResults=5, got %d", c.TargetResults)
	}
}
