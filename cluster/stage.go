package cluster

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/viant/crystalize/errs"
	"github.com/viant/crystalize/progress"
	"github.com/viant/crystalize/store"
	"github.com/viant/crystalize/vector"
)

// ErrStaleClusters is returned when clusters from an earlier run exist and
// the caller did not ask for a reset.
var ErrStaleClusters = errors.New("cluster: clusters from a previous run exist; reset required")

// Store is the part of the record store the stage reads and writes.
type Store interface {
	Embeddings(ctx context.Context) ([]store.EmbeddingRow, error)
	HasClusters(ctx context.Context) (bool, error)
	ResetClusters(ctx context.Context) error
	CreateCluster(ctx context.Context, name string) (store.Cluster, error)
	AssignCluster(ctx context.Context, recordID, clusterID int64) error
	Batch(ctx context.Context, fn func() error) error
}

type Options struct {
	// Reset discards clusters of an earlier run before clustering.
	Reset bool
}

type Result struct {
	Input    int
	Excluded int
	Clusters int
	Noise    int
}

const assignEvery = 100

type Stage struct {
	clusterer Clusterer
	opts      Options
}

func NewStage(c Clusterer, opts Options) *Stage {
	return &Stage{clusterer: c, opts: opts}
}

// Run clusters every stored embedding. Cluster creation and assignment
// commit together.
func (s *Stage) Run(ctx context.Context, st Store, rep *progress.Reporter) (*Result, error) {
	rep.Status("Starting clustering process...")
	rep.Progress(0)

	stale, err := st.HasClusters(ctx)
	if err != nil {
		return nil, err
	}
	if stale {
		if !s.opts.Reset {
			return nil, ErrStaleClusters
		}
		rep.Status("Resetting clusters from the previous run...")
		if err := st.ResetClusters(ctx); err != nil {
			return nil, err
		}
	}

	ids, vectors, res, err := s.fetch(ctx, st, rep)
	if err != nil {
		return res, err
	}
	if len(vectors) == 0 {
		rep.Status("No embeddings found in the database.")
		return res, errs.InsufficientData("cluster.Run", errors.New("no valid embeddings"))
	}

	rep.Progress(25)
	rep.Status("Performing DBSCAN clustering on %d embeddings...", len(vectors))
	labels, err := s.clusterer.Fit(ctx, vectors)
	if err != nil {
		return res, fmt.Errorf("cluster: fit: %w", err)
	}
	if len(labels) != len(vectors) {
		return res, fmt.Errorf("cluster: %d labels for %d embeddings", len(labels), len(vectors))
	}
	rep.Progress(75)

	err = st.Batch(ctx, func() error {
		mapping, err := s.createClusters(ctx, st, labels, rep)
		if err != nil {
			return err
		}
		res.Clusters = len(mapping)
		for i, id := range ids {
			target := store.NoiseClusterID
			if labels[i] != Noise {
				target = mapping[labels[i]]
			} else {
				res.Noise++
			}
			if err := st.AssignCluster(ctx, id, target); err != nil {
				return err
			}
			if i%assignEvery == 0 {
				rep.Progress(95 + (i+1)*5/len(ids))
			}
		}
		return nil
	})
	if err != nil {
		return res, err
	}
	rep.Done("Created %d clusters. Points labeled -1 assigned to default cluster.", res.Clusters)
	return res, nil
}

// fetch decodes stored embeddings and keeps those matching the first
// valid dimension.
func (s *Stage) fetch(ctx context.Context, st Store, rep *progress.Reporter) ([]int64, [][]float32, *Result, error) {
	rows, err := st.Embeddings(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	res := &Result{Input: len(rows)}
	var (
		ids     []int64
		vectors [][]float32
	)
	for i, row := range rows {
		vec, err := vector.Decode(row.Value)
		switch {
		case err != nil:
			res.Excluded++
			rep.Warn(fmt.Sprintf("Error processing embedding for log %d: %v", row.ID, err), "id", row.ID, "error", err)
		case len(vec) == 0:
			res.Excluded++
			rep.Warn(fmt.Sprintf("Skipping log %d: empty embedding", row.ID), "id", row.ID)
		default:
			ids = append(ids, row.ID)
			vectors = append(vectors, vec)
		}
		rep.Progress(progress.Scale(0, 20, i+1, len(rows)))
	}
	_, keep, drop := vector.SameDim(vectors)
	if len(drop) > 0 {
		res.Excluded += len(drop)
		rep.Warn(fmt.Sprintf("Removed %d embeddings with inconsistent dimensions.", len(drop)), "dropped", len(drop))
		keptIDs := make([]int64, len(keep))
		keptVecs := make([][]float32, len(keep))
		for j, i := range keep {
			keptIDs[j], keptVecs[j] = ids[i], vectors[i]
		}
		ids, vectors = keptIDs, keptVecs
	}
	return ids, vectors, res, nil
}

func (s *Stage) createClusters(ctx context.Context, st Store, labels []int, rep *progress.Reporter) (map[int]int64, error) {
	seen := map[int]bool{}
	var distinct []int
	for _, l := range labels {
		if l != Noise && !seen[l] {
			seen[l] = true
			distinct = append(distinct, l)
		}
	}
	sort.Ints(distinct)
	mapping := make(map[int]int64, len(distinct))
	for i, l := range distinct {
		c, err := st.CreateCluster(ctx, fmt.Sprintf("Cluster %d", l))
		if err != nil {
			return nil, err
		}
		mapping[l] = c.ID
		rep.Progress(progress.Scale(75, 95, i+1, len(distinct)))
	}
	return mapping, nil
}
