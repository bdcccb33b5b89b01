package cluster

import (
	"context"
	"fmt"

	"github.com/viant/crystalize/index"
	"github.com/viant/crystalize/logging"
)

// Noise is the label of points that belong to no cluster.
const Noise = -1

// Clusterer labels each vector with a non-negative cluster or Noise.
type Clusterer interface {
	Fit(ctx context.Context, vectors [][]float32) ([]int, error)
}

// DBSCAN labels core points (at least MinSamples neighbours within Epsilon,
// the point itself included) and everything density-reachable from them.
// Labels are numbered from 0 in order of the first core point reached.
type DBSCAN struct {
	Epsilon    float64
	MinSamples int
	Metric     index.Metric
	Index      index.Kind
	Log        *logging.Logger
}

func (d *DBSCAN) Fit(ctx context.Context, vectors [][]float32) ([]int, error) {
	if d.Epsilon <= 0 {
		return nil, fmt.Errorf("cluster: epsilon must be positive, got %v", d.Epsilon)
	}
	if d.MinSamples < 1 {
		return nil, fmt.Errorf("cluster: min samples must be at least 1, got %d", d.MinSamples)
	}
	n := len(vectors)
	if n == 0 {
		return nil, nil
	}
	metric := d.Metric
	if metric == "" {
		metric = index.Euclidean
	}
	idx, kind, err := index.New(d.Index, metric, vectors)
	if err != nil {
		return nil, err
	}
	logging.OrNop(d.Log).Debug("dbscan neighbours", "points", n, "index", string(kind), "metric", string(metric))

	neighbours := make([][]int, n)
	core := make([]bool, n)
	for i, v := range vectors {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		nb, err := idx.Radius(v, d.Epsilon)
		if err != nil {
			return nil, err
		}
		neighbours[i] = nb
		core[i] = len(nb) >= d.MinSamples
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
	}
	label := 0
	var stack []int
	for start := 0; start < n; start++ {
		if labels[start] != Noise || !core[start] {
			continue
		}
		i := start
		for {
			if labels[i] == Noise {
				labels[i] = label
				if core[i] {
					for _, v := range neighbours[i] {
						if labels[v] == Noise {
							stack = append(stack, v)
						}
					}
				}
			}
			if len(stack) == 0 {
				break
			}
			i = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
		}
		label++
	}
	return labels, nil
}
