package index

import (
	"github.com/viant/crystalize/index/bruteforce"
	"github.com/viant/crystalize/index/cover"
)

// New builds an index of the resolved kind over vectors and reports the
// kind it used.
func New(kind Kind, metric Metric, vectors [][]float32) (Index, Kind, error) {
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	resolved := Resolve(kind, len(vectors), dim)
	if metric == Cosine {
		// cosine distance breaks the triangle inequality the tree prunes with
		resolved = KindBrute
	}
	var idx Index
	switch resolved {
	case KindCover:
		idx = cover.New()
	default:
		idx = bruteforce.New(string(metric))
	}
	if err := idx.Build(vectors); err != nil {
		return nil, resolved, err
	}
	return idx, resolved, nil
}
