package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/viant/crystalize/errs"
	"github.com/viant/crystalize/progress"
	"github.com/viant/crystalize/store"
	"github.com/viant/crystalize/vector"
)

// ErrOverwriteNotConfirmed is returned when records already carry embeddings
// and the caller did not agree to regenerate them.
var ErrOverwriteNotConfirmed = errors.New("embedding: existing embeddings would be overwritten")

// Store is the part of the record store the stage reads and writes.
type Store interface {
	HasEmbeddings(ctx context.Context) (bool, error)
	ResetForRegeneration(ctx context.Context) error
	Records(ctx context.Context) ([]store.Record, error)
	UpdateEmbedding(ctx context.Context, id int64, vec []float32) error
	UpdateSentiment(ctx context.Context, id int64, sentiment int) error
	UpdateCoordinates(ctx context.Context, id int64, p store.Point3) error
	Batch(ctx context.Context, fn func() error) error
}

type Options struct {
	// Workers bounds concurrent model calls. Store writes stay on the
	// calling goroutine.
	Workers int
	// BatchSize is the number of records embedded and committed together.
	BatchSize int
	// ConfirmOverwrite allows discarding embeddings of an earlier run.
	ConfirmOverwrite bool
}

type Result struct {
	Total    int
	Embedded int
	Skipped  int
	Failed   int
	Reduced  int
}

type Stage struct {
	model   *Model
	reducer Reducer
	opts    Options
}

func NewStage(model *Model, reducer Reducer, opts Options) *Stage {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	return &Stage{model: model, reducer: reducer, opts: opts}
}

type outcome struct {
	vec       []float32
	sentiment Sentiment
	skipped   bool
	err       error
}

// Run embeds every record with text and reduces the result to 3D. Too few
// embeddings end the run with errs.ErrInsufficientData after the embeddings
// were committed.
func (s *Stage) Run(ctx context.Context, st Store, rep *progress.Reporter) (*Result, error) {
	if s.model == nil || s.model.Encoder == nil || s.model.Classifier == nil {
		return nil, errs.ModelLoad("embedding.Run", errors.New("no model loaded"))
	}
	exists, err := st.HasEmbeddings(ctx)
	if err != nil {
		return nil, err
	}
	if exists && !s.opts.ConfirmOverwrite {
		return nil, ErrOverwriteNotConfirmed
	}
	rep.Status("Starting embedding generation...")
	rep.Status("Preparing for embedding regeneration...")
	if err := st.ResetForRegeneration(ctx); err != nil {
		return nil, err
	}
	records, err := st.Records(ctx)
	if err != nil {
		return nil, err
	}
	res := &Result{Total: len(records)}

	var (
		ids     []int64
		vectors [][]float32
		done    atomic.Int64
	)
	for start := 0; start < len(records); start += s.opts.BatchSize {
		end := min(start+s.opts.BatchSize, len(records))
		outcomes, err := s.compute(ctx, records[start:end], res.Total, &done, rep)
		if err != nil {
			return res, err
		}
		err = st.Batch(ctx, func() error {
			for j, o := range outcomes {
				i := start + j
				r := records[i]
				switch {
				case o.skipped:
					res.Skipped++
					rep.Status("Skipping log %d due to empty text", i+1)
				case o.err != nil:
					res.Failed++
					rep.Warn(fmt.Sprintf("Error embedding log %d: %v", r.ID, o.err), "id", r.ID, "error", o.err)
				default:
					combined := vector.Concat(o.vec, float32(o.sentiment.Bit()))
					if err := persist(ctx, st, r.ID, combined, o.sentiment); err != nil {
						res.Failed++
						rep.Warn(fmt.Sprintf("Error storing embedding for log %d: %v", r.ID, err), "id", r.ID, "error", err)
						continue
					}
					res.Embedded++
					ids = append(ids, r.ID)
					vectors = append(vectors, combined)
					rep.Status("Generated embedding for log %d of %d", i+1, res.Total)
				}
			}
			return nil
		})
		if err != nil {
			return res, err
		}
	}
	rep.Progress(50)

	if err := s.reduce(ctx, st, ids, vectors, rep, res); err != nil {
		return res, err
	}
	rep.Done("Embedding generation and dimensionality reduction completed!")
	return res, nil
}

func persist(ctx context.Context, st Store, id int64, vec []float32, sentiment Sentiment) error {
	if err := st.UpdateEmbedding(ctx, id, vec); err != nil {
		return err
	}
	return st.UpdateSentiment(ctx, id, sentiment.Bit())
}

// compute runs the model over one chunk. Only a model load failure or a
// cancelled context stops the run; other failures are kept per record.
func (s *Stage) compute(ctx context.Context, chunk []store.Record, total int, done *atomic.Int64, rep *progress.Reporter) ([]outcome, error) {
	outcomes := make([]outcome, len(chunk))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i := range chunk {
		text := strings.TrimSpace(chunk[i].Text())
		g.Go(func() error {
			defer func() {
				rep.Progress(progress.Scale(0, 50, int(done.Add(1)), total))
			}()
			if text == "" {
				outcomes[i].skipped = true
				return nil
			}
			vec, err := s.model.Encode(gctx, text)
			if err == nil && len(vec) == 0 {
				err = errors.New("empty embedding")
			}
			if err != nil {
				if errors.Is(err, errs.ErrModelLoad) {
					return err
				}
				outcomes[i].err = err
				return nil
			}
			sentiment, err := s.model.Classify(gctx, text)
			if err != nil {
				if errors.Is(err, errs.ErrModelLoad) {
					return err
				}
				outcomes[i].err = err
				return nil
			}
			outcomes[i].vec, outcomes[i].sentiment = vec, sentiment
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (s *Stage) reduce(ctx context.Context, st Store, ids []int64, vectors [][]float32, rep *progress.Reporter, res *Result) error {
	dim, keep, drop := vector.SameDim(vectors)
	for _, i := range drop {
		rep.Warn(fmt.Sprintf("Excluding log %d from reduction: dimension %d, expected %d", ids[i], len(vectors[i]), dim), "id", ids[i])
	}
	if len(keep) < 2 {
		msg := fmt.Sprintf("Not enough embeddings for dimensionality reduction: have %d, need 2", len(keep))
		rep.Status("%s", msg)
		return errs.InsufficientData("embedding.Run", errors.New(msg))
	}
	if s.reducer == nil {
		return errors.New("embedding: no reducer configured")
	}
	points := make([][]float64, len(keep))
	for j, i := range keep {
		p := make([]float64, len(vectors[i]))
		for k, v := range vectors[i] {
			p[k] = float64(v)
		}
		points[j] = p
	}
	rep.Status("Performing dimensionality reduction...")
	coords, err := s.reducer.Reduce(ctx, points)
	if err != nil {
		rep.Status("Dimensionality reduction failed: %v", err)
		return fmt.Errorf("embedding: reduce: %w", err)
	}
	if len(coords) != len(points) {
		return fmt.Errorf("embedding: reducer returned %d points for %d inputs", len(coords), len(points))
	}
	err = st.Batch(ctx, func() error {
		for j, c := range coords {
			id := ids[keep[j]]
			if err := st.UpdateCoordinates(ctx, id, store.Point3{X: c[0], Y: c[1], Z: c[2]}); err != nil {
				return err
			}
			rep.Progress(progress.Scale(50, 100, j+1, len(coords)))
			if j%100 == 0 {
				rep.Status("Saved reduced coordinates for log %d of %d", j+1, len(coords))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	res.Reduced = len(coords)
	return nil
}
