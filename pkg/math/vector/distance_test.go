package vector

import (
	"math"
	"testing"
)

func TestCosineDistanceSymmetricAndBounded(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{-4, 0.5, 6}

	dab, err := CosineDistance(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dba, err := CosineDistance(b, a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(dab-dba) > 1e-12 {
		t.Fatalf("cosine distance not symmetric: %v vs %v", dab, dba)
	}
	if dab < 0 || dab > 2 {
		t.Fatalf("cosine distance out of [0,2]: %v", dab)
	}

	daa, err := CosineDistance(a, a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(daa) > 1e-9 {
		t.Fatalf("d(a,a) should be ~0, got %v", daa)
	}
}

func TestCosineDistanceZeroNorm(t *testing.T) {
	zero := []float64{0, 0, 0}
	other := []float64{1, 2, 3}
	d, err := CosineDistance(zero, other)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != 1.0 {
		t.Fatalf("expected 1.0 for zero-norm vector, got %v", d)
	}
}

func TestCosineDistanceDimensionMismatch(t *testing.T) {
	_, err := CosineDistance([]float64{1, 2}, []float64{1, 2, 3})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestEuclideanAndManhattan(t *testing.T) {
	a := []float64{0, 0}
	b := []float64{3, 4}

	e, err := Euclidean(a, b)
	if err != nil || math.Abs(e-5) > 1e-9 {
		t.Fatalf("euclidean = %v, err = %v, want 5", e, err)
	}

	m, err := Manhattan(a, b)
	if err != nil || math.Abs(m-7) > 1e-9 {
		t.Fatalf("manhattan = %v, err = %v, want 7", m, err)
	}
}

func TestGaussianRNGDeterministic(t *testing.T) {
	r1 := NewGaussianRNG(42)
	r2 := NewGaussianRNG(42)

	for i := 0; i < 50; i++ {
		v1 := r1.Next()
		v2 := r2.Next()
		if v1 != v2 {
			t.Fatalf("sample %d diverged: %v != %v", i, v1, v2)
		}
	}
}

func TestGaussianRNGShuffleIsPermutation(t *testing.T) {
	r := NewGaussianRNG(7)
	idx := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	r.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

	seen := make(map[int]bool)
	for _, v := range idx {
		seen[v] = true
	}
	if len(seen) != 10 {
		t.Fatalf("shuffle produced duplicates/missing values: %v", idx)
	}
}
