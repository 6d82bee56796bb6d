package store

import (
	"testing"
	"time"

	"github.com/kestrel-labs/vsomcore/pkg/record"
)

func TestMemoryIndexSearchOrdersByDistance(t *testing.T) {
	idx := NewMemoryIndex()
	idx.Add("a", []float64{1, 0})
	idx.Add("b", []float64{0, 1})
	idx.Add("c", []float64{0.9, 0.1})

	results, err := idx.Search([]float64{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" {
		t.Fatalf("expected closest match 'a', got %s", results[0].ID)
	}
}

func TestMemoryIndexSize(t *testing.T) {
	idx := NewMemoryIndex()
	if idx.Size() != 0 {
		t.Fatalf("expected empty index, got size %d", idx.Size())
	}
	idx.Add("a", []float64{1, 2})
	if idx.Size() != 1 {
		t.Fatalf("expected size 1, got %d", idx.Size())
	}
}

func TestMemoryRecordStorePutGet(t *testing.T) {
	s := NewMemoryRecordStore()
	r := record.NewRecord("r1", "label", "content", []float64{1, 2}, time.Now(), nil, 0.5, nil)
	if err := s.Put(r); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get("r1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != "r1" {
		t.Fatalf("expected id r1, got %s", got.ID)
	}
}

func TestMemoryRecordStoreGetMissing(t *testing.T) {
	s := NewMemoryRecordStore()
	_, err := s.Get("missing")
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRecordStoreScanFiltersByDomain(t *testing.T) {
	s := NewMemoryRecordStore()
	s.Put(record.NewRecord("r1", "", "", nil, time.Now(), []record.Domain{"user:alice"}, 0, nil))
	s.Put(record.NewRecord("r2", "", "", nil, time.Now(), []record.Domain{"project:x"}, 0, nil))

	results, err := s.Scan(RecordFilter{Domains: []string{"user:alice"}})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(results) != 1 || results[0].ID != "r1" {
		t.Fatalf("expected only r1, got %v", results)
	}
}

func TestMemoryRecordStoreScanNoFilterReturnsAll(t *testing.T) {
	s := NewMemoryRecordStore()
	s.Put(record.NewRecord("r1", "", "", nil, time.Now(), nil, 0, nil))
	s.Put(record.NewRecord("r2", "", "", nil, time.Now(), nil, 0, nil))

	results, err := s.Scan(RecordFilter{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 records, got %d", len(results))
	}
}
