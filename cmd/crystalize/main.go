// Command crystalize imports logs, embeds and clusters them, and exports the
// result for a 3D viewer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/viant/crystalize/config"
	"github.com/viant/crystalize/errs"
	"github.com/viant/crystalize/logging"
	"github.com/viant/crystalize/pipeline"
	"github.com/viant/crystalize/progress"
	"github.com/viant/crystalize/store"
)

const usage = `usage: crystalize [-config file] [-env file] [-db path] <command> [args]

commands:
  import PATH...                  import JSON, JSONL, log or txt files or directories
  fields                          print the fields common to all records
  preprocess -fields a,b [-yes]   build record text from fields
  embed [-model id] [-yes]        generate embeddings and 3D coordinates
  cluster [-eps f] [-min-samples n]
  reset                           move every record to the noise cluster
  clear -yes                      delete all records and clusters
  show [-cluster id] [-similar id [-k n]]
  export [-o file]                write clusters and points as JSON
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	configPath := flag.String("config", "", "YAML config file")
	envFile := flag.String("env", ".env", "env file")
	dbPath := flag.String("db", "", "database path (overrides config)")
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	if err := cfg.ApplyEnv(*envFile); err != nil {
		fatal(err)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	log, err := logging.New(cfg.Log.Mode)
	if err != nil {
		fatal(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st, err := store.Open(ctx, cfg.Database.Path,
		store.WithLogger(log.With("component", "store")),
		store.WithBusyTimeout(cfg.Database.BusyTimeoutMS))
	if err != nil {
		fatal(err)
	}
	defer st.Close()

	events := progress.NewChannel()
	bars := newBars(os.Stderr)
	done := make(chan struct{})
	go func() {
		bars.consume(events.Events())
		close(done)
	}()

	app := &app{
		cfg:   cfg,
		store: st,
		log:   log,
		pipe:  pipeline.New(st, cfg, pipeline.WithLogger(log), pipeline.WithSink(events)),
	}
	err = app.dispatch(ctx, flag.Arg(0), flag.Args()[1:])
	events.Close()
	<-done
	bars.wait()

	switch {
	case err == nil:
	case errs.Recoverable(err):
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	case errors.Is(err, errUsage):
		fmt.Fprintf(os.Stderr, "crystalize: %v\n", err)
		flag.Usage()
		os.Exit(2)
	default:
		st.Close()
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "crystalize: %v\n", err)
	os.Exit(1)
}
