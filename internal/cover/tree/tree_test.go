package tree

import (
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomPoints(n, dim int) [][]float32 {
	rng := rand.New(rand.NewPCG(7, 11))
	out := make([][]float32, n)
	for i := range out {
		v := make([]float32, dim)
		for k := range v {
			v[k] = float32(rng.NormFloat64())
		}
		out[i] = v
	}
	return out
}

func build(vectors [][]float32) *Tree[int] {
	t := NewTree[int](1.3)
	for i, v := range vectors {
		t.Insert(i, NewPoint(v...))
	}
	return t
}

func TestWithinRadius_MatchesScan(t *testing.T) {
	vectors := randomPoints(300, 3)
	vectors = append(vectors, vectors[0], vectors[0])
	tr := build(vectors)
	require.Equal(t, len(vectors), tr.Len())

	for _, qi := range []int{0, 5, 42, 299} {
		q := NewPoint(vectors[qi]...)
		for _, r := range []float32{0, 0.3, 1, 5} {
			var want []int
			for i, v := range vectors {
				if EuclideanDistance(q, NewPoint(v...)) <= r {
					want = append(want, i)
				}
			}
			var got []int
			for _, n := range tr.WithinRadius(q, r) {
				got = append(got, tr.Value(n.Point))
			}
			sort.Ints(got)
			assert.Equal(t, want, got, "query %d radius %v", qi, r)
		}
	}
}

func TestEmptyTreeAndDefaults(t *testing.T) {
	tr := NewTree[string](0)
	assert.Nil(t, tr.WithinRadius(NewPoint(1), 1))
	assert.False(t, NewPoint(1).HasValue())
	assert.Equal(t, "", tr.Value(nil))
}
