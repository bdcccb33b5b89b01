package pipeline

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/viant/crystalize/cluster"
	"github.com/viant/crystalize/config"
	"github.com/viant/crystalize/embedding"
	"github.com/viant/crystalize/importer"
	"github.com/viant/crystalize/index"
	"github.com/viant/crystalize/logging"
	"github.com/viant/crystalize/preprocess"
	"github.com/viant/crystalize/progress"
	"github.com/viant/crystalize/store"
	"github.com/viant/crystalize/tsne"
)

// Stage names used in events and logs.
const (
	StageImport     = "import"
	StagePreprocess = "preprocess"
	StageEmbed      = "embed"
	StageCluster    = "cluster"
	StageReset      = "reset"
	StageClear      = "clear"
)

// Pipeline serializes stages over one store.
type Pipeline struct {
	store     *store.Store
	cfg       *config.Config
	log       *logging.Logger
	sink      progress.Sink
	models    *embedding.Registry
	reducer   embedding.Reducer
	clusterer cluster.Clusterer
	mu        sync.Mutex
}

type Option func(*Pipeline)

func WithLogger(l *logging.Logger) Option { return func(p *Pipeline) { p.log = l } }

// WithSink routes stage events, e.g. to a progress.Channel.
func WithSink(s progress.Sink) Option { return func(p *Pipeline) { p.sink = s } }

func WithRegistry(r *embedding.Registry) Option { return func(p *Pipeline) { p.models = r } }

func WithReducer(r embedding.Reducer) Option { return func(p *Pipeline) { p.reducer = r } }

// WithClusterer replaces DBSCAN; the cluster parameters passed to Cluster
// are then ignored.
func WithClusterer(c cluster.Clusterer) Option { return func(p *Pipeline) { p.clusterer = c } }

func New(st *store.Store, cfg *config.Config, opts ...Option) *Pipeline {
	if cfg == nil {
		cfg = config.Default()
	}
	p := &Pipeline{store: st, cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}
	p.log = logging.OrNop(p.log)
	if p.sink == nil {
		p.sink = progress.Discard
	}
	if p.models == nil {
		p.models = NewRegistry(cfg.Embedding, p.log)
	}
	if p.reducer == nil {
		p.reducer = tsne.New(tsne.Options{
			Perplexity:        cfg.TSNE.Perplexity,
			Iterations:        cfg.TSNE.Iterations,
			LearningRate:      cfg.TSNE.LearningRate,
			Seed:              cfg.TSNE.Seed,
			ExaggerationIters: cfg.TSNE.ExaggerationIters,
			MaxPoints:         cfg.TSNE.MaxPoints,
		}, p.log.With("component", "tsne"))
	}
	return p
}

// Import loads files into the store and returns the common fields with the
// counts.
func (p *Pipeline) Import(ctx context.Context, paths []string) (*importer.Result, error) {
	var res *importer.Result
	err := p.run(ctx, StageImport, func(ctx context.Context, sess *store.Session, rep *progress.Reporter) error {
		var err error
		res, err = importer.Run(ctx, sess, paths, rep, importer.Options{BatchSize: p.cfg.Importer.BatchSize})
		return err
	})
	return res, err
}

// CommonFields recomputes the common fields of the stored records.
func (p *Pipeline) CommonFields(ctx context.Context) ([]string, error) {
	sess, err := p.store.Session(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()
	return importer.CommonFields(ctx, sess)
}

// Preprocess rebuilds the text of every record from fields.
func (p *Pipeline) Preprocess(ctx context.Context, fields []string, confirmOverwrite bool) (*preprocess.Result, error) {
	var res *preprocess.Result
	err := p.run(ctx, StagePreprocess, func(ctx context.Context, sess *store.Session, rep *progress.Reporter) error {
		var err error
		res, err = preprocess.Run(ctx, sess, rep, preprocess.Options{
			Fields:           fields,
			ConfirmOverwrite: confirmOverwrite,
			BatchSize:        p.cfg.Preprocess.BatchSize,
		})
		return err
	})
	return res, err
}

// Embed loads modelID (the configured model when empty) and regenerates
// embeddings, sentiment and coordinates. Existing embeddings are only
// replaced when confirmOverwrite is set.
func (p *Pipeline) Embed(ctx context.Context, modelID string, confirmOverwrite bool) (*embedding.Result, error) {
	if modelID == "" {
		modelID = p.cfg.Embedding.Model
	}
	var res *embedding.Result
	err := p.run(ctx, StageEmbed, func(ctx context.Context, sess *store.Session, rep *progress.Reporter) error {
		rep.Status("Loading model %s...", modelID)
		model, err := p.models.Load(ctx, modelID)
		if err != nil {
			return err
		}
		stage := embedding.NewStage(model, p.reducer, embedding.Options{
			Workers:          p.cfg.Embedding.Workers,
			BatchSize:        p.cfg.Embedding.BatchSize,
			ConfirmOverwrite: confirmOverwrite,
		})
		res, err = stage.Run(ctx, sess, rep)
		return err
	})
	return res, err
}

// ClusterParams overrides the configured DBSCAN parameters when non-zero.
type ClusterParams struct {
	Epsilon    float64
	MinSamples int
}

// Cluster discards earlier clusters and clusters the stored embeddings.
func (p *Pipeline) Cluster(ctx context.Context, params ClusterParams) (*cluster.Result, error) {
	clusterer, err := p.newClusterer(params)
	if err != nil {
		return nil, err
	}
	var res *cluster.Result
	err = p.run(ctx, StageCluster, func(ctx context.Context, sess *store.Session, rep *progress.Reporter) error {
		var err error
		res, err = cluster.NewStage(clusterer, cluster.Options{Reset: true}).Run(ctx, sess, rep)
		return err
	})
	return res, err
}

func (p *Pipeline) newClusterer(params ClusterParams) (cluster.Clusterer, error) {
	if p.clusterer != nil {
		return p.clusterer, nil
	}
	kind, err := index.ParseKind(p.cfg.Cluster.Index)
	if err != nil {
		return nil, err
	}
	metric, err := index.ParseMetric(p.cfg.Cluster.Metric)
	if err != nil {
		return nil, err
	}
	d := &cluster.DBSCAN{
		Epsilon:    p.cfg.Cluster.Epsilon,
		MinSamples: p.cfg.Cluster.MinSamples,
		Metric:     metric,
		Index:      kind,
		Log:        p.log.With("component", "dbscan"),
	}
	if params.Epsilon > 0 {
		d.Epsilon = params.Epsilon
	}
	if params.MinSamples > 0 {
		d.MinSamples = params.MinSamples
	}
	return d, nil
}

// ResetClusters moves every record back to the noise cluster.
func (p *Pipeline) ResetClusters(ctx context.Context) error {
	return p.run(ctx, StageReset, func(ctx context.Context, sess *store.Session, rep *progress.Reporter) error {
		if err := sess.ResetClusters(ctx); err != nil {
			return err
		}
		rep.Done("Clusters reset. All logs assigned to the default cluster.")
		return nil
	})
}

// Clear removes every record and cluster except the sentinel.
func (p *Pipeline) Clear(ctx context.Context) error {
	return p.run(ctx, StageClear, func(ctx context.Context, sess *store.Session, rep *progress.Reporter) error {
		if err := sess.Clear(ctx); err != nil {
			return err
		}
		rep.Done("Database cleared.")
		return nil
	})
}

type stageFunc func(ctx context.Context, sess *store.Session, rep *progress.Reporter) error

// run executes fn on a worker goroutine holding its own session and waits
// for it. A failing or panicking stage publishes a failed event.
func (p *Pipeline) run(ctx context.Context, stage string, fn stageFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	rep := progress.NewReporter(p.sink, stage, p.log)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				rep.Logger().Error("stage panic", "panic", r)
				err = fmt.Errorf("pipeline: %s panicked: %v", stage, r)
			}
		}()
		sess, err := p.store.Session(gctx)
		if err != nil {
			return err
		}
		defer sess.Close()
		return fn(gctx, sess, rep)
	})
	err := g.Wait()
	if err != nil {
		rep.Fail(err)
	}
	return err
}
