package cover

import (
	"errors"
	"math"
	"sort"

	"github.com/viant/crystalize/internal/cover/tree"
)

// slack widens float32 tree searches before the exact float64 filter.
const slack = 1e-3

// Index answers Euclidean queries.
type Index struct {
	base float32
	tree *tree.Tree[int]
	vecs [][]float32
	dim  int
}

type Option func(*Index)

// WithBase sets the tree expansion base (> 1).
func WithBase(base float32) Option { return func(i *Index) { i.base = base } }

func New(opts ...Option) *Index {
	i := &Index{base: 1.3}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Build inserts vectors in order; positions are the insertion order.
func (i *Index) Build(vectors [][]float32) error {
	i.tree = tree.NewTree[int](i.base)
	i.vecs = append([][]float32(nil), vectors...)
	i.dim = 0
	if len(vectors) == 0 {
		return nil
	}
	i.dim = len(vectors[0])
	for j, v := range vectors {
		if len(v) != i.dim {
			return errors.New("cover: inconsistent dims")
		}
		i.tree.Insert(j, tree.NewPoint(v...))
	}
	return nil
}

func (i *Index) Len() int { return len(i.vecs) }

func (i *Index) Radius(query []float32, eps float64) ([]int, error) {
	if len(i.vecs) == 0 {
		return nil, nil
	}
	if len(query) != i.dim {
		return nil, errors.New("cover: query dim mismatch")
	}
	r := float32(eps + slack*math.Max(1, eps))
	var out []int
	for _, n := range i.tree.WithinRadius(tree.NewPoint(query...), r) {
		j := i.tree.Value(n.Point)
		if i.exact(query, j) <= eps {
			out = append(out, j)
		}
	}
	sort.Ints(out)
	return out, nil
}

func (i *Index) exact(query []float32, j int) float64 {
	v := i.vecs[j]
	var s float64
	for k := range v {
		d := float64(query[k]) - float64(v[k])
		s += d * d
	}
	return math.Sqrt(s)
}
