package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"github.com/viant/crystalize/config"
	"github.com/viant/crystalize/embedding"
	"github.com/viant/crystalize/embedding/hashing"
	"github.com/viant/crystalize/embedding/ollama"
	"github.com/viant/crystalize/logging"
)

// NewRegistry registers the "ollama" and "hashing" model schemes. Ollama
// models without a configured sentiment model pair with the lexicon
// classifier.
func NewRegistry(cfg config.EmbeddingConfig, log *logging.Logger) *embedding.Registry {
	log = logging.OrNop(log)
	r := embedding.NewRegistry()
	r.Register("ollama", func(ctx context.Context, name string) (*embedding.Model, error) {
		client := ollama.New(cfg.OllamaHost,
			ollama.WithTimeout(cfg.Timeout),
			ollama.WithLogger(log.With("component", "ollama")))
		m, err := ollama.Load(ctx, client, name, cfg.SentimentModel)
		if err != nil {
			return nil, err
		}
		if m.Classifier == nil {
			m.Classifier = hashing.Classifier{}
		}
		return m, nil
	})
	r.Register("hashing", func(_ context.Context, name string) (*embedding.Model, error) {
		dims, err := strconv.Atoi(name)
		if err != nil {
			return nil, fmt.Errorf("hashing: invalid dimensions %q", name)
		}
		return hashing.Load(dims)
	})
	return r
}
