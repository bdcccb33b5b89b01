package bruteforce

import (
	"fmt"
	"math"
)

// Index scans all vectors per query. Distances are accumulated in float64.
type Index struct {
	cosine bool
	vecs   [][]float32
	dim    int
	mags   []float64
}

// New returns an index for metric "euclidean" (default) or "cosine".
func New(metric string) *Index {
	return &Index{cosine: metric == "cosine"}
}

// Build loads vectors and precomputes magnitudes.
func (i *Index) Build(vectors [][]float32) error {
	if len(vectors) == 0 {
		i.vecs, i.mags, i.dim = nil, nil, 0
		return nil
	}
	dim := len(vectors[0])
	for j := range vectors {
		if len(vectors[j]) != dim {
			return fmt.Errorf("bruteforce: inconsistent vector dims %d vs %d", len(vectors[j]), dim)
		}
	}
	mags := make([]float64, len(vectors))
	for j := range vectors {
		mags[j] = magnitude(vectors[j])
	}
	i.vecs = append([][]float32(nil), vectors...)
	i.dim = dim
	i.mags = mags
	return nil
}

func (i *Index) Len() int { return len(i.vecs) }

// Radius returns every position within eps of query.
func (i *Index) Radius(query []float32, eps float64) ([]int, error) {
	if err := i.check(query); err != nil || len(i.vecs) == 0 {
		return nil, err
	}
	qm := magnitude(query)
	var out []int
	for j := range i.vecs {
		if i.distance(query, qm, j) <= eps {
			out = append(out, j)
		}
	}
	return out, nil
}

func (i *Index) check(query []float32) error {
	if len(i.vecs) > 0 && len(query) != i.dim {
		return fmt.Errorf("bruteforce: query dim %d != index dim %d", len(query), i.dim)
	}
	return nil
}

func (i *Index) distance(query []float32, qm float64, j int) float64 {
	if i.cosine {
		if qm == 0 || i.mags[j] == 0 {
			return 1
		}
		return 1 - dot(query, i.vecs[j])/(qm*i.mags[j])
	}
	var s float64
	for k, v := range i.vecs[j] {
		d := float64(query[k]) - float64(v)
		s += d * d
	}
	return math.Sqrt(s)
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func magnitude(v []float32) float64 { return math.Sqrt(dot(v, v)) }
