package index

import (
	"fmt"
	"strings"
)

// Index is built once and then queried; it is safe for concurrent queries.
type Index interface {
	// Build replaces the indexed points. All vectors must share a dimension.
	Build(vectors [][]float32) error

	// Radius returns the positions of all points within distance eps of
	// query (inclusive), in ascending order.
	Radius(query []float32, eps float64) ([]int, error)


	Len() int
}

// Metric names a distance function.
type Metric string

const (
	Euclidean Metric = "euclidean"
	// Cosine is 1 minus cosine similarity.
	Cosine Metric = "cosine"
)

func ParseMetric(s string) (Metric, error) {
	switch m := Metric(strings.ToLower(strings.TrimSpace(s))); m {
	case "", Euclidean, "l2":
		return Euclidean, nil
	case Cosine:
		return Cosine, nil
	default:
		return "", fmt.Errorf("index: unknown metric %q", s)
	}
}

// Kind selects an implementation.
type Kind string

const (
	KindAuto  Kind = "auto"
	KindBrute Kind = "brute"
	KindCover Kind = "cover"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "", KindAuto:
		return KindAuto, nil
	case KindBrute, KindCover:
		return k, nil
	default:
		return "", fmt.Errorf("index: unknown kind %q", s)
	}
}

const (
	autoCoverMinPoints         = 2000
	autoCoverMaxDim            = 64
	autoCoverMinDensity float64 = 16
)

// Resolve turns KindAuto into a concrete kind. Cover trees prune well on
// large collections of low-dimensional points; elsewhere a scan is as fast.
func Resolve(kind Kind, n, dim int) Kind {
	switch kind {
	case KindBrute, KindCover:
		return kind
	}
	if n >= autoCoverMinPoints && dim > 0 && dim <= autoCoverMaxDim {
		if float64(n)/float64(dim) >= autoCoverMinDensity {
			return KindCover
		}
	}
	return KindBrute
}
