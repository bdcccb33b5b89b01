package cluster

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/crystalize/errs"
	"github.com/viant/crystalize/progress"
	"github.com/viant/crystalize/store"
)

type fixedLabels []int

func (f fixedLabels) Fit(_ context.Context, vectors [][]float32) ([]int, error) {
	return f[:len(vectors)], nil
}

func newSession(t *testing.T) *store.Session {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, filepath.Join(t.TempDir(), "logs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	sess, err := s.Session(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })
	return sess
}

func insertWithEmbeddings(t *testing.T, sess *store.Session, vectors ...[]float32) []int64 {
	t.Helper()
	ctx := context.Background()
	var ids []int64
	for _, v := range vectors {
		id, err := sess.InsertRecord(ctx, `{"m":1}`)
		require.NoError(t, err)
		if v != nil {
			require.NoError(t, sess.UpdateEmbedding(ctx, id, v))
		}
		ids = append(ids, id)
	}
	return ids
}

func clusterNames(t *testing.T, sess *store.Session) map[int64]string {
	t.Helper()
	clusters, err := sess.Clusters(context.Background())
	require.NoError(t, err)
	names := map[int64]string{}
	for _, c := range clusters {
		names[c.ID] = c.Name
	}
	return names
}

func TestStage_AssignsLabels(t *testing.T) {
	ctx := context.Background()
	sess := newSession(t)
	ids := insertWithEmbeddings(t, sess, []float32{0, 0}, []float32{0, 1}, []float32{5, 5}, []float32{5, 6}, []float32{9, 9})

	var events []progress.Event
	rep := progress.NewReporter(progress.Func(func(e progress.Event) { events = append(events, e) }), "cluster", nil)
	res, err := NewStage(fixedLabels{0, 0, 1, 1, -1}, Options{}).Run(ctx, sess, rep)
	require.NoError(t, err)
	assert.Equal(t, &Result{Input: 5, Clusters: 2, Noise: 1}, res)

	names := clusterNames(t, sess)
	assert.Len(t, names, 3)
	expect := []string{"Cluster 0", "Cluster 0", "Cluster 1", "Cluster 1", store.NoiseClusterName}
	for i, id := range ids {
		r, err := sess.Record(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, expect[i], names[r.ClusterID], "record %d", id)
	}

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, progress.KindDone, last.Kind)
	assert.Equal(t, 100, last.Percent)
	assert.Equal(t, "Created 2 clusters. Points labeled -1 assigned to default cluster.", last.Message)
}

func TestStage_ExcludesMismatchedDimensions(t *testing.T) {
	ctx := context.Background()
	sess := newSession(t)
	ids := insertWithEmbeddings(t, sess, []float32{0, 0}, []float32{0, 0, 0}, []float32{0, 1}, nil)

	var warnings int
	rep := progress.NewReporter(progress.Func(func(e progress.Event) {
		if e.Kind == progress.KindWarning {
			warnings++
		}
	}), "cluster", nil)
	res, err := NewStage(fixedLabels{0, 0}, Options{}).Run(ctx, sess, rep)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Input)
	assert.Equal(t, 1, res.Excluded)
	assert.Equal(t, 1, res.Clusters)
	assert.Equal(t, 1, warnings)

	r, err := sess.Record(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, store.NoiseClusterID, r.ClusterID)
	r, err = sess.Record(ctx, ids[3])
	require.NoError(t, err)
	assert.Equal(t, store.NoiseClusterID, r.ClusterID)
}

func TestStage_StaleClusters(t *testing.T) {
	ctx := context.Background()
	sess := newSession(t)
	insertWithEmbeddings(t, sess, []float32{0, 0}, []float32{0, 1})

	_, err := NewStage(fixedLabels{0, 0}, Options{}).Run(ctx, sess, nil)
	require.NoError(t, err)

	_, err = NewStage(fixedLabels{0, 0}, Options{}).Run(ctx, sess, nil)
	assert.True(t, errors.Is(err, ErrStaleClusters))

	res, err := NewStage(fixedLabels{0, -1}, Options{Reset: true}).Run(ctx, sess, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Clusters)
	assert.Len(t, clusterNames(t, sess), 2)
}

func TestStage_NoEmbeddings(t *testing.T) {
	sess := newSession(t)
	insertWithEmbeddings(t, sess, nil, nil)

	var messages []string
	rep := progress.NewReporter(progress.Func(func(e progress.Event) { messages = append(messages, e.Message) }), "cluster", nil)
	_, err := NewStage(fixedLabels{}, Options{}).Run(context.Background(), sess, rep)
	assert.True(t, errors.Is(err, errs.ErrInsufficientData))
	assert.Contains(t, messages, "No embeddings found in the database.")
}

func TestStage_WithDBSCAN(t *testing.T) {
	ctx := context.Background()
	sess := newSession(t)
	insertWithEmbeddings(t, sess, []float32{0, 0}, []float32{0, 0.1}, []float32{4, 4}, []float32{4, 4.1}, []float32{20, 20})

	res, err := NewStage(&DBSCAN{Epsilon: 0.5, MinSamples: 2}, Options{}).Run(ctx, sess, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Clusters)
	assert.Equal(t, 1, res.Noise)

	counts, err := sess.ClusterCounts(ctx)
	require.NoError(t, err)
	byName := map[string]int{}
	for _, c := range counts {
		byName[c.Name] = c.Records
	}
	assert.Equal(t, map[string]int{store.NoiseClusterName: 1, "Cluster 0": 2, "Cluster 1": 2}, byName)
}
