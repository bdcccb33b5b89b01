package vector

import (
	"fmt"

	"github.com/viant/vec/search"
)

// CosineSimilarity computes the cosine similarity between two vectors. It
// returns an error if the vectors have different lengths or if either vector
// has zero magnitude.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector: cosine similarity dimension mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("vector: cosine similarity on empty vectors")
	}
	va := search.Float32s(a)
	ma, mb := va.Magnitude(), search.Float32s(b).Magnitude()
	if ma == 0 || mb == 0 {
		return 0, fmt.Errorf("vector: cosine similarity with zero-magnitude vector")
	}
	return 1 - float64(va.CosineDistanceWithMagnitude(b, ma, mb)), nil
}

// L2Distance computes the Euclidean (L2) distance between two vectors. It
// returns an error if the vectors have different lengths.
func L2Distance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector: L2 distance dimension mismatch: %d vs %d", len(a), len(b))
	}
	return float64(search.Float32s(a).EuclideanDistance(b)), nil
}

// Concat returns a new vector holding a followed by tail.
func Concat(a []float32, tail ...float32) []float32 {
	out := make([]float32, 0, len(a)+len(tail))
	out = append(out, a...)
	return append(out, tail...)
}

// SameDim splits vectors into those sharing the dimensionality of the first
// non-empty vector and the indexes of the rest.
func SameDim(vectors [][]float32) (dim int, keep []int, drop []int) {
	for i, v := range vectors {
		if len(v) == 0 {
			drop = append(drop, i)
			continue
		}
		if dim == 0 {
			dim = len(v)
		}
		if len(v) == dim {
			keep = append(keep, i)
		} else {
			drop = append(drop, i)
		}
	}
	return dim, keep, drop
}
