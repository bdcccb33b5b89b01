package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/crystalize/config"
	"github.com/viant/crystalize/embedding"
	"github.com/viant/crystalize/errs"
	"github.com/viant/crystalize/progress"
	"github.com/viant/crystalize/store"
	"github.com/viant/crystalize/tsne"
)

type recorder struct {
	mu     sync.Mutex
	events []progress.Event
}

func (r *recorder) Publish(e progress.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) snapshot() []progress.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]progress.Event(nil), r.events...)
}

type constantLabels struct{}

func (constantLabels) Fit(_ context.Context, vectors [][]float32) ([]int, error) {
	return make([]int, len(vectors)), nil
}

type panicking struct{}

func (panicking) Fit(context.Context, [][]float32) ([]int, error) { panic("boom") }

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Embedding.Model = "hashing:16"
	cfg.Embedding.Workers = 2
	cfg.TSNE.Iterations = 250
	cfg.TSNE.Perplexity = 2
	return cfg
}

func newPipeline(t *testing.T, opts ...Option) (*Pipeline, *store.Store, *recorder) {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "logs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	rec := &recorder{}
	return New(st, testConfig(), append([]Option{WithSink(rec)}, opts...)...), st, rec
}

func writeLogs(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.jsonl")
	data := `{"a":1,"b":"disk full on node one"}
{"a":2,"b":"disk full on node two"}
{"a":3,"b":"user login ok","c":true}
{"a":4,"b":"user login ok again"}
{"a":5,"b":"timeout talking to upstream"}
{"a":6,"b":"timeout talking to upstream again"}
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestPipeline_EndToEnd(t *testing.T) {
	ctx := context.Background()
	p, st, rec := newPipeline(t, WithClusterer(constantLabels{}))

	imported, err := p.Import(ctx, []string{writeLogs(t)})
	require.NoError(t, err)
	assert.Equal(t, 6, imported.Inserted)
	assert.Equal(t, []string{"a", "b"}, imported.CommonFields)

	fields, err := p.CommonFields(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, fields)

	prep, err := p.Preprocess(ctx, []string{"b"}, false)
	require.NoError(t, err)
	assert.Equal(t, 6, prep.Updated)

	embedded, err := p.Embed(ctx, "", false)
	require.NoError(t, err)
	assert.Equal(t, 6, embedded.Embedded)
	assert.Equal(t, 6, embedded.Reduced)

	_, err = p.Embed(ctx, "", false)
	assert.ErrorIs(t, err, embedding.ErrOverwriteNotConfirmed)
	embedded, err = p.Embed(ctx, "", true)
	require.NoError(t, err)
	assert.Equal(t, 6, embedded.Reduced)

	clustered, err := p.Cluster(ctx, ClusterParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, clustered.Clusters)

	// a second run replaces the clusters of the first
	clustered, err = p.Cluster(ctx, ClusterParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, clustered.Clusters)

	sess, err := st.Session(ctx)
	require.NoError(t, err)
	defer sess.Close()
	records, err := sess.RecordsWithCoordinates(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 6)
	for _, r := range records {
		require.NotNil(t, r.Sentiment)
		assert.Len(t, r.Embedding, 17)
		assert.NotEqual(t, store.NoiseClusterID, r.ClusterID)
	}
	clusters, err := sess.Clusters(ctx)
	require.NoError(t, err)
	assert.Len(t, clusters, 2)

	// events of one run are contiguous and every run ends in a terminal event
	events := rec.snapshot()
	require.NotEmpty(t, events)
	seen := map[string]bool{}
	for i, e := range events {
		if i > 0 && events[i-1].RunID != e.RunID {
			assert.True(t, events[i-1].Terminal(), "run %s interrupted", events[i-1].RunID)
			assert.False(t, seen[e.RunID.String()], "run %s resumed", e.RunID)
		}
		seen[e.RunID.String()] = true
	}
	assert.True(t, events[len(events)-1].Terminal())
}

func TestPipeline_ModelLoadFails(t *testing.T) {
	p, _, rec := newPipeline(t)
	_, err := p.Embed(context.Background(), "nope:1", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrModelLoad))

	events := rec.snapshot()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, progress.KindFailed, last.Kind)
	assert.Equal(t, StageEmbed, last.Stage)
}

func TestPipeline_ReductionPointLimit(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(ctx, filepath.Join(t.TempDir(), "logs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	cfg := testConfig()
	cfg.TSNE.MaxPoints = 4
	p := New(st, cfg)

	_, err = p.Import(ctx, []string{writeLogs(t)})
	require.NoError(t, err)
	_, err = p.Preprocess(ctx, []string{"b"}, false)
	require.NoError(t, err)
	res, err := p.Embed(ctx, "", false)
	assert.ErrorIs(t, err, tsne.ErrTooManyPoints)
	require.NotNil(t, res)
	assert.Equal(t, 6, res.Embedded)
	assert.Zero(t, res.Reduced)

	sess, err := st.Session(ctx)
	require.NoError(t, err)
	defer sess.Close()
	placed, err := sess.RecordsWithCoordinates(ctx)
	require.NoError(t, err)
	assert.Empty(t, placed)
	has, err := sess.HasEmbeddings(ctx)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestPipeline_PreprocessRequiresFields(t *testing.T) {
	p, _, _ := newPipeline(t)
	_, err := p.Preprocess(context.Background(), nil, true)
	assert.True(t, errors.Is(err, errs.ErrNoFieldsSelected))
}

func TestPipeline_RecoversFromPanic(t *testing.T) {
	ctx := context.Background()
	p, st, _ := newPipeline(t, WithClusterer(panicking{}))
	sess, err := st.Session(ctx)
	require.NoError(t, err)
	id, err := sess.InsertRecord(ctx, `{"a":1}`)
	require.NoError(t, err)
	require.NoError(t, sess.UpdateEmbedding(ctx, id, []float32{1, 2}))
	require.NoError(t, sess.Close())

	_, err = p.Cluster(ctx, ClusterParams{})
	assert.ErrorContains(t, err, "panicked")
}

func TestPipeline_ConcurrentCallsSerialize(t *testing.T) {
	ctx := context.Background()
	p, _, rec := newPipeline(t)
	path := writeLogs(t)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Import(ctx, []string{path})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	runs := map[string]bool{}
	events := rec.snapshot()
	for i, e := range events {
		if i > 0 && events[i-1].RunID != e.RunID {
			assert.True(t, events[i-1].Terminal())
		}
		runs[e.RunID.String()] = true
	}
	assert.Len(t, runs, 3)
}

func TestPipeline_ClearAndReset(t *testing.T) {
	ctx := context.Background()
	p, st, _ := newPipeline(t, WithClusterer(constantLabels{}))
	_, err := p.Import(ctx, []string{writeLogs(t)})
	require.NoError(t, err)

	require.NoError(t, p.ResetClusters(ctx))
	require.NoError(t, p.Clear(ctx))

	sess, err := st.Session(ctx)
	require.NoError(t, err)
	defer sess.Close()
	n, err := sess.CountRecords(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNewRegistry_Hashing(t *testing.T) {
	r := NewRegistry(config.Default().Embedding, nil)
	m, err := r.Load(context.Background(), "hashing:8")
	require.NoError(t, err)
	assert.Equal(t, "hashing:8", m.Name)
	assert.NotNil(t, m.Classifier)

	_, err = r.Load(context.Background(), "hashing:eight")
	assert.True(t, errors.Is(err, errs.ErrModelLoad))
}
