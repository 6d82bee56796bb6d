package vsom

import (
	"errors"
	"testing"

	"github.com/kestrel-labs/vsomcore/pkg/math/vector"
	"github.com/kestrel-labs/vsomcore/pkg/som"
	"github.com/kestrel-labs/vsomcore/pkg/trainer"
	"github.com/kestrel-labs/vsomcore/pkg/vsomcore"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e := New(Limits{MinMapSize: 3, MaxMapSize: 100, MinDim: 2, MaxDim: 2000, MaxIterationsCeiling: 1000}, nil)
	if err := e.Create(CreateConfig{Width: 6, Height: 6, Dim: 4, MaxIterations: 100}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return e
}

func gaussianEntries(n int) []Entry {
	rng := vector.NewGaussianRNG(1)
	centers := [][]float64{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}}
	entries := make([]Entry, n)
	for i := range entries {
		c := centers[i%4]
		emb := make([]float64, 4)
		for d := range emb {
			emb[d] = c[d] + rng.Next()*0.05
		}
		entries[i] = Entry{ID: "e" + itoa(i), Embedding: emb}
	}
	return entries
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

func TestCreateValidatesMapSize(t *testing.T) {
	e := New(DefaultLimits(), nil)
	err := e.Create(CreateConfig{Width: 1, Height: 1, Dim: 200})
	if err == nil {
		t.Fatal("expected error for map size below minimum")
	}
}

func TestCreateValidatesDim(t *testing.T) {
	e := New(DefaultLimits(), nil)
	err := e.Create(CreateConfig{Width: 10, Height: 10, Dim: 10})
	if err == nil {
		t.Fatal("expected error for dim below minimum")
	}
}

func TestLoadSkipsMismatchedDims(t *testing.T) {
	e := newEngine(t)
	entries := gaussianEntries(8)
	entries = append(entries, Entry{ID: "bad", Embedding: []float64{1, 2}})
	loaded, skipped, err := e.Load(entries)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded != 8 || skipped != 1 {
		t.Fatalf("expected 8 loaded, 1 skipped, got loaded=%d skipped=%d", loaded, skipped)
	}
	if e.State() != StateDataLoaded {
		t.Fatalf("expected state DataLoaded, got %s", e.State())
	}
}

func TestTrainRequiresDataLoaded(t *testing.T) {
	e := newEngine(t)
	_, err := e.Train(TrainOpts{})
	if err == nil {
		t.Fatal("expected error training before load")
	}
}

func TestFullLifecycle(t *testing.T) {
	e := newEngine(t)
	entries := gaussianEntries(40)
	if _, _, err := e.Load(entries); err != nil {
		t.Fatalf("Load: %v", err)
	}

	result, err := e.Train(TrainOpts{
		Config: trainer.Config{
			TotalIterations: 100,
			AlphaInitial:    0.1,
			AlphaFinal:      0.01,
			RadiusInitial:   2.0,
			RadiusFinal:     0.5,
			Seed:            1,
		},
		InitMethod: som.InitRandom,
		InitSeed:   1,
	})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if result.Cancelled {
		t.Fatal("did not expect cancellation")
	}
	if e.State() != StateTrained {
		t.Fatalf("expected state Trained, got %s", e.State())
	}

	mappings, err := e.NodeMappings()
	if err != nil {
		t.Fatalf("NodeMappings: %v", err)
	}
	if len(mappings) != 40 {
		t.Fatalf("expected 40 mappings, got %d", len(mappings))
	}

	clusters, err := e.Clusters(0.5, 1)
	if err != nil {
		t.Fatalf("Clusters: %v", err)
	}
	if len(clusters) == 0 {
		t.Fatal("expected at least one cluster")
	}

	fm, err := e.FeatureMap(FeatureMapUMatrix, 0)
	if err != nil {
		t.Fatalf("FeatureMap: %v", err)
	}
	if len(fm) != 36 {
		t.Fatalf("expected 36 node values, got %d", len(fm))
	}

	exported, err := e.Export(0.5, 1)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(exported) != 40 {
		t.Fatalf("expected 40 export records, got %d", len(exported))
	}

	if err := e.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if e.State() != StateDeleted {
		t.Fatalf("expected state Deleted, got %s", e.State())
	}
}

func TestQueryOpsRequireTrained(t *testing.T) {
	e := newEngine(t)
	_, err := e.NodeMappings()
	if err == nil {
		t.Fatal("expected error before training")
	}
	if !errors.Is(err, vsomcore.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}
