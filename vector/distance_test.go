package vector

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	c := []float32{1, 0}

	if sim, err := CosineSimilarity(a, b); err != nil || math.Abs(sim) > 1e-6 {
		t.Fatalf("CosineSimilarity(a,b) = %v, %v; want 0, nil", sim, err)
	}
	if sim, err := CosineSimilarity(a, c); err != nil || math.Abs(sim-1) > 1e-6 {
		t.Fatalf("CosineSimilarity(a,c) = %v, %v; want 1, nil", sim, err)
	}
	if _, err := CosineSimilarity(a, []float32{0, 0}); err == nil {
		t.Fatalf("expected zero-magnitude error")
	}
	if _, err := CosineSimilarity(a, []float32{1}); err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
}

func TestL2Distance(t *testing.T) {
	d, err := L2Distance([]float32{0, 0}, []float32{3, 4})
	if err != nil {
		t.Fatalf("L2Distance failed: %v", err)
	}
	if math.Abs(d-5) > 1e-6 {
		t.Fatalf("L2Distance(0,0)-(3,4) = %v, want 5", d)
	}
}

func TestConcat(t *testing.T) {
	base := []float32{1, 2}
	out := Concat(base, 1)
	if len(out) != 3 || out[2] != 1 {
		t.Fatalf("Concat = %v, want [1 2 1]", out)
	}
	out[0] = 9
	if base[0] != 1 {
		t.Fatalf("Concat aliased its input")
	}
}

func TestSameDim(t *testing.T) {
	dim, keep, drop := SameDim([][]float32{nil, {1, 2}, {1, 2, 3}, {4, 5}})
	if dim != 2 {
		t.Fatalf("dim = %d, want 2", dim)
	}
	if len(keep) != 2 || keep[0] != 1 || keep[1] != 3 {
		t.Fatalf("keep = %v, want [1 3]", keep)
	}
	if len(drop) != 2 || drop[0] != 0 || drop[1] != 2 {
		t.Fatalf("drop = %v, want [0 2]", drop)
	}
}
