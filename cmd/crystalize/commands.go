package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/viant/crystalize/config"
	"github.com/viant/crystalize/embedding"
	"github.com/viant/crystalize/logging"
	"github.com/viant/crystalize/pipeline"
	"github.com/viant/crystalize/store"
	"github.com/viant/crystalize/viewer"
)

var errUsage = errors.New("usage")

type app struct {
	cfg   *config.Config
	store *store.Store
	log   *logging.Logger
	pipe  *pipeline.Pipeline
	out   io.Writer
}

func (a *app) stdout() io.Writer {
	if a.out != nil {
		return a.out
	}
	return os.Stdout
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "import":
		return a.importFiles(ctx, args)
	case "fields":
		return a.fields(ctx)
	case "preprocess":
		return a.preprocess(ctx, args)
	case "embed":
		return a.embed(ctx, args)
	case "cluster":
		return a.cluster(ctx, args)
	case "reset":
		return a.pipe.ResetClusters(ctx)
	case "clear":
		return a.clear(ctx, args)
	case "show":
		return a.show(ctx, args)
	case "export":
		return a.export(ctx, args)
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func (a *app) importFiles(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: import needs at least one file", errUsage)
	}
	res, err := a.pipe.Import(ctx, args)
	if err != nil {
		return err
	}
	w := a.stdout()
	fmt.Fprintf(w, "files: %d (%d failed)\n", res.Files, res.FilesFailed)
	fmt.Fprintf(w, "parsed: %d, inserted: %d, insert failures: %d, skipped lines: %d\n",
		res.Parsed, res.Inserted, res.InsertFailed, res.LinesSkipped)
	fmt.Fprintf(w, "common fields: %s\n", strings.Join(res.CommonFields, ", "))
	return nil
}

func (a *app) fields(ctx context.Context) error {
	fields, err := a.pipe.CommonFields(ctx)
	if err != nil {
		return err
	}
	for _, f := range fields {
		fmt.Fprintln(a.stdout(), f)
	}
	return nil
}

func (a *app) preprocess(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("preprocess", flag.ContinueOnError)
	fields := fs.String("fields", "", "comma separated fields")
	yes := fs.Bool("yes", false, "overwrite existing text")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	res, err := a.pipe.Preprocess(ctx, splitFields(*fields), *yes)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout(), "preprocessed %d of %d logs (%d unchanged)\n", res.Updated, res.Total, res.Unchanged)
	return nil
}

func splitFields(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func (a *app) embed(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("embed", flag.ContinueOnError)
	model := fs.String("model", a.cfg.Embedding.Model, "model id, ollama:<name> or hashing:<dims>")
	yes := fs.Bool("yes", false, "regenerate existing embeddings")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	res, err := a.pipe.Embed(ctx, *model, *yes)
	if errors.Is(err, embedding.ErrOverwriteNotConfirmed) {
		return fmt.Errorf("%w: embeddings exist, pass -yes to regenerate them", errUsage)
	}
	if res != nil {
		fmt.Fprintf(a.stdout(), "embedded %d of %d logs (%d skipped, %d failed), %d placed in 3D\n",
			res.Embedded, res.Total, res.Skipped, res.Failed, res.Reduced)
	}
	return err
}

func (a *app) cluster(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cluster", flag.ContinueOnError)
	eps := fs.Float64("eps", a.cfg.Cluster.Epsilon, "neighbourhood radius")
	minSamples := fs.Int("min-samples", a.cfg.Cluster.MinSamples, "minimum neighbourhood size")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	res, err := a.pipe.Cluster(ctx, pipeline.ClusterParams{Epsilon: *eps, MinSamples: *minSamples})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout(), "clusters: %d, noise: %d, excluded: %d of %d\n", res.Clusters, res.Noise, res.Excluded, res.Input)
	return nil
}

func (a *app) clear(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("clear", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "confirm deleting all data")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if !*yes {
		return fmt.Errorf("%w: clear deletes every record, pass -yes", errUsage)
	}
	return a.pipe.Clear(ctx)
}

func (a *app) show(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	clusterID := fs.Int64("cluster", 0, "list the logs of this cluster")
	similar := fs.Int64("similar", 0, "list logs closest to this log id")
	k := fs.Int("k", 5, "number of similar logs")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	sess, err := a.store.Session(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()
	w := a.stdout()

	switch {
	case *similar != 0:
		entries, err := viewer.Similar(ctx, sess, *similar, *k)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintf(w, "%d\t%.4f\n", e.ID, e.Distance)
		}
	case *clusterID != 0:
		entries, err := viewer.Members(ctx, sess, *clusterID)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintf(w, "%d\t%s\n", e.ID, e.Text)
		}
	default:
		nodes, err := viewer.Tree(ctx, sess)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d logs\n", n.ID, n.Name, n.Color, n.Records)
		}
	}
	return nil
}

func (a *app) export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	out := fs.String("o", "", "output file (stdout when empty)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	sess, err := a.store.Session(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	w := a.stdout()
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		defer f.Close()
		w = f
	}
	scene, err := viewer.Export(ctx, sess, w)
	if err != nil {
		return err
	}
	a.log.Info("exported scene", "clusters", len(scene.Clusters), "points", len(scene.Points), "path", *out)
	return nil
}
