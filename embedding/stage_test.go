package embedding

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/crystalize/errs"
	"github.com/viant/crystalize/progress"
	"github.com/viant/crystalize/store"
)

type fakeEncoder struct{}

func (fakeEncoder) Encode(_ context.Context, text string) ([]float32, error) {
	switch {
	case strings.Contains(text, "bad"):
		return nil, errors.New("encoder choked")
	case strings.Contains(text, "gone"):
		return nil, errs.ModelLoad("fake", errors.New("model unloaded"))
	}
	return []float32{float32(len(text)), 1}, nil
}

type fakeClassifier struct{}

func (fakeClassifier) Classify(_ context.Context, text string) (Sentiment, error) {
	return Sentiment{Positive: strings.Contains(text, "ok"), Score: 0.9}, nil
}

type fakeReducer struct {
	calls int
	in    [][]float64
}

func (f *fakeReducer) Reduce(_ context.Context, points [][]float64) ([][3]float64, error) {
	f.calls++
	f.in = points
	out := make([][3]float64, len(points))
	for i := range points {
		out[i] = [3]float64{float64(i), float64(i) + 0.5, -float64(i)}
	}
	return out, nil
}

var fakeModel = &Model{Name: "fake", Encoder: fakeEncoder{}, Classifier: fakeClassifier{}}

func seeded(t *testing.T, texts ...string) *store.Session {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, filepath.Join(t.TempDir(), "logs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	sess, err := s.Session(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })
	for _, text := range texts {
		id, err := sess.InsertRecord(ctx, `{"m":1}`)
		require.NoError(t, err)
		if text != "" {
			require.NoError(t, sess.UpdatePreprocessedText(ctx, id, text))
		}
	}
	return sess
}

func TestStage_EmbedsAndReduces(t *testing.T) {
	sess := seeded(t, "all ok", "", "disk full", "ok again")
	ctx := context.Background()

	// state derived from an earlier generation
	c, err := sess.CreateCluster(ctx, "Cluster 0")
	require.NoError(t, err)
	require.NoError(t, sess.AssignCluster(ctx, 2, c.ID))
	require.NoError(t, sess.UpdateCoordinates(ctx, 2, store.Point3{X: 9, Y: 9, Z: 9}))

	var events []progress.Event
	rep := progress.NewReporter(progress.Func(func(e progress.Event) { events = append(events, e) }), "embed", nil)
	reducer := &fakeReducer{}
	res, err := NewStage(fakeModel, reducer, Options{Workers: 3, BatchSize: 2}).Run(ctx, sess, rep)
	require.NoError(t, err)
	assert.Equal(t, &Result{Total: 4, Embedded: 3, Skipped: 1, Reduced: 3}, res)
	assert.Equal(t, 1, reducer.calls)
	assert.Equal(t, []float64{6, 1, 1}, reducer.in[0])

	records, err := sess.Records(ctx)
	require.NoError(t, err)
	for _, r := range records {
		assert.Equal(t, store.NoiseClusterID, r.ClusterID)
		if r.Embedding == nil {
			assert.Nil(t, r.Coords, "record %d", r.ID)
			assert.Nil(t, r.Sentiment)
			continue
		}
		require.NotNil(t, r.Sentiment, "record %d", r.ID)
		require.NotNil(t, r.Coords, "record %d", r.ID)
		assert.Len(t, r.Embedding, 3)
		assert.EqualValues(t, *r.Sentiment, r.Embedding[2])
	}
	assert.Equal(t, 1, *records[0].Sentiment)
	assert.Equal(t, 0, *records[2].Sentiment)
	assert.Equal(t, &store.Point3{X: 1, Y: 1.5, Z: -1}, records[2].Coords)

	clusters, err := sess.Clusters(ctx)
	require.NoError(t, err)
	assert.Len(t, clusters, 1)

	last := 0
	sawHalf := false
	for _, e := range events {
		assert.GreaterOrEqual(t, e.Percent, last)
		last = e.Percent
		if e.Percent == 50 {
			sawHalf = true
		}
	}
	assert.True(t, sawHalf)
	assert.Equal(t, progress.KindDone, events[len(events)-1].Kind)
	assert.Equal(t, 100, last)
}

func TestStage_InsufficientData(t *testing.T) {
	sess := seeded(t, "only one", "")
	ctx := context.Background()
	reducer := &fakeReducer{}
	res, err := NewStage(fakeModel, reducer, Options{}).Run(ctx, sess, nil)
	require.Error(t, err)
	assert.True(t, errs.Recoverable(err))
	assert.Equal(t, 1, res.Embedded)
	assert.Zero(t, reducer.calls)

	r, err := sess.Record(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, r.Embedding)
	assert.Nil(t, r.Coords)
}

func TestStage_RecordFailureIsSkipped(t *testing.T) {
	sess := seeded(t, "a ok", "bad input", "c ok")
	res, err := NewStage(fakeModel, &fakeReducer{}, Options{}).Run(context.Background(), sess, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 2, res.Embedded)
	assert.Equal(t, 2, res.Reduced)
}

func TestStage_ModelLoadFailureAborts(t *testing.T) {
	sess := seeded(t, "a ok", "gone", "c ok")
	_, err := NewStage(fakeModel, &fakeReducer{}, Options{BatchSize: 10}).Run(context.Background(), sess, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrModelLoad))

	has, err := sess.HasEmbeddings(context.Background())
	require.NoError(t, err)
	assert.False(t, has)
}

type widerEncoder struct{}

func (widerEncoder) Encode(_ context.Context, text string) ([]float32, error) {
	if strings.Contains(text, "first") {
		return nil, errors.New("encoder choked")
	}
	return []float32{1, 2, 3, float32(len(text))}, nil
}

func TestStage_RegenerationDropsPreviousEmbeddings(t *testing.T) {
	ctx := context.Background()
	sess := seeded(t, "first ok", "second ok", "", "third ok")

	_, err := NewStage(fakeModel, &fakeReducer{}, Options{}).Run(ctx, sess, nil)
	require.NoError(t, err)
	r, err := sess.Record(ctx, 3)
	require.NoError(t, err)
	require.Nil(t, r.Embedding)

	wider := &Model{Name: "wider", Encoder: widerEncoder{}, Classifier: fakeClassifier{}}
	res, err := NewStage(wider, &fakeReducer{}, Options{ConfirmOverwrite: true}).Run(ctx, sess, nil)
	require.NoError(t, err)
	assert.Equal(t, &Result{Total: 4, Embedded: 2, Skipped: 1, Failed: 1, Reduced: 2}, res)

	rows, err := sess.Embeddings(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.EqualValues(t, 2, rows[0].ID)
	assert.EqualValues(t, 4, rows[1].ID)

	failed, err := sess.Record(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, failed.Embedding)
	assert.Nil(t, failed.Sentiment)
	assert.Nil(t, failed.Coords)
	for _, id := range []int64{2, 4} {
		r, err := sess.Record(ctx, id)
		require.NoError(t, err)
		assert.Len(t, r.Embedding, 5, "record %d", id)
		assert.NotNil(t, r.Coords, "record %d", id)
	}
}

func TestStage_OverwriteConfirmation(t *testing.T) {
	ctx := context.Background()
	sess := seeded(t, "a ok", "b ok")
	_, err := NewStage(fakeModel, &fakeReducer{}, Options{}).Run(ctx, sess, nil)
	require.NoError(t, err)
	before, err := sess.Record(ctx, 1)
	require.NoError(t, err)

	_, err = NewStage(fakeModel, &fakeReducer{}, Options{}).Run(ctx, sess, nil)
	assert.ErrorIs(t, err, ErrOverwriteNotConfirmed)
	after, err := sess.Record(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	_, err = NewStage(fakeModel, &fakeReducer{}, Options{ConfirmOverwrite: true}).Run(ctx, sess, nil)
	assert.NoError(t, err)
}

func TestStage_NoModel(t *testing.T) {
	sess := seeded(t)
	_, err := NewStage(nil, &fakeReducer{}, Options{}).Run(context.Background(), sess, nil)
	assert.True(t, errors.Is(err, errs.ErrModelLoad))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("fake", func(_ context.Context, name string) (*Model, error) {
		if name == "broken" {
			return nil, errors.New("cannot load")
		}
		return &Model{Encoder: fakeEncoder{}, Classifier: fakeClassifier{}}, nil
	})
	ctx := context.Background()

	m, err := r.Load(ctx, "fake:x")
	require.NoError(t, err)
	assert.Equal(t, "fake:x", m.Name)

	for _, id := range []string{"fake:broken", "other:x", "noscheme", "fake:"} {
		_, err := r.Load(ctx, id)
		assert.True(t, errors.Is(err, errs.ErrModelLoad), id)
	}
	assert.Equal(t, []string{"fake"}, r.Schemes())
}

func TestSentiment(t *testing.T) {
	assert.Equal(t, 1, Sentiment{Positive: true}.Bit())
	assert.Equal(t, "NEGATIVE(0.25)", Sentiment{Score: 0.25}.String())
}
