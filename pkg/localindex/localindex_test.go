package localindex

import (
	"testing"
	"time"

	"github.com/kestrel-labs/vsomcore/pkg/navstate"
	"github.com/kestrel-labs/vsomcore/pkg/record"
	"github.com/kestrel-labs/vsomcore/pkg/store"
)

func TestUpsertAndSearch(t *testing.T) {
	idx := New(store.NewMemoryIndex(), store.NewMemoryRecordStore())
	now := time.Now()

	idx.Upsert(record.NewRecord("r1", "", "the quick brown fox", []float64{1, 0}, now, nil, 0, nil))
	idx.Upsert(record.NewRecord("r2", "", "lorem ipsum", []float64{0, 1}, now, nil, 0, nil))

	results, err := idx.Search([]float64{1, 0}, navstate.Defaults(), 5, 0.0, now)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one result")
	}
	if results[0].Record.ID != "r1" {
		t.Fatalf("expected r1 to rank first, got %s", results[0].Record.ID)
	}
}

func TestSearchRespectsThreshold(t *testing.T) {
	idx := New(store.NewMemoryIndex(), store.NewMemoryRecordStore())
	now := time.Now()
	idx.Upsert(record.NewRecord("r1", "", "", []float64{1, 0}, now, nil, 0, nil))
	idx.Upsert(record.NewRecord("r2", "", "", []float64{-1, 0}, now, nil, 0, nil))

	results, err := idx.Search([]float64{1, 0}, navstate.Defaults(), 5, 0.9, now)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if r.Similarity < 0.9 {
			t.Fatalf("expected all results >= threshold 0.9, got %v for %s", r.Similarity, r.Record.ID)
		}
	}
}

func TestEvictTombstonesPosition(t *testing.T) {
	idx := New(store.NewMemoryIndex(), store.NewMemoryRecordStore())
	now := time.Now()
	r := record.NewRecord("r1", "", "", []float64{1, 0}, now, nil, 0, nil)
	idx.Upsert(r)

	if idx.RecordAt(0) != "r1" {
		t.Fatalf("expected record at position 0, got %q", idx.RecordAt(0))
	}
	idx.Evict("r1")
	if idx.RecordAt(0) != "" {
		t.Fatalf("expected tombstoned position, got %q", idx.RecordAt(0))
	}
}

func TestRecordAtOutOfRangeIsMiss(t *testing.T) {
	idx := New(store.NewMemoryIndex(), store.NewMemoryRecordStore())
	if idx.RecordAt(999) != "" {
		t.Fatal("expected miss for out-of-range position")
	}
}

func TestDomainFilterExcludesNonMatching(t *testing.T) {
	idx := New(store.NewMemoryIndex(), store.NewMemoryRecordStore())
	now := time.Now()
	idx.Upsert(record.NewRecord("r1", "", "", []float64{1, 0}, now, []record.Domain{"user:alice"}, 0, nil))
	idx.Upsert(record.NewRecord("r2", "", "", []float64{1, 0}, now, []record.Domain{"project:x"}, 0, nil))

	state := navstate.State{Zoom: navstate.ZoomCorpus, Pan: navstate.Pan{Domains: []string{"user:alice"}}, Tilt: navstate.TiltKeywords}
	results, err := idx.Search([]float64{1, 0}, state, 10, 0.0, now)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if r.Record.ID == "r2" {
			t.Fatal("expected r2 filtered out by domain mismatch")
		}
	}
}
