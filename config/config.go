// Package config loads crystalize settings from a YAML file, an optional .env
// file and CRYSTALIZE_* environment variables, in that order of precedence
// (later wins).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the full crystalize configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Log        LogConfig        `yaml:"log"`
	Importer   ImporterConfig   `yaml:"importer"`
	Preprocess PreprocessConfig `yaml:"preprocess"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	TSNE       TSNEConfig       `yaml:"tsne"`
	Cluster    ClusterConfig    `yaml:"cluster"`
}

type DatabaseConfig struct {
	Path          string `yaml:"path"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms"`
}

type LogConfig struct {
	Mode string `yaml:"mode"` // dev | prod
}

type ImporterConfig struct {
	BatchSize int `yaml:"batch_size"`
}

type PreprocessConfig struct {
	BatchSize int `yaml:"batch_size"`
}

// EmbeddingConfig selects the model. Model is "ollama:<name>" or
// "hashing:<dims>". SentimentModel names an Ollama generation model; when
// empty the lexicon classifier is used.
type EmbeddingConfig struct {
	Model          string        `yaml:"model"`
	SentimentModel string        `yaml:"sentiment_model"`
	OllamaHost     string        `yaml:"ollama_host"`
	Timeout        time.Duration `yaml:"timeout"`
	Workers        int           `yaml:"workers"`
	BatchSize      int           `yaml:"batch_size"`
}

type TSNEConfig struct {
	Perplexity        float64 `yaml:"perplexity"`
	Iterations        int     `yaml:"iterations"`
	LearningRate      float64 `yaml:"learning_rate"`      // 0 = auto
	Seed              uint64  `yaml:"seed"`
	ExaggerationIters int     `yaml:"exaggeration_iters"` // < 0 disables early exaggeration
	MaxPoints         int     `yaml:"max_points"`         // < 0 removes the input bound
}

type ClusterConfig struct {
	Epsilon    float64 `yaml:"epsilon"`
	MinSamples int     `yaml:"min_samples"`
	Index      string  `yaml:"index"`  // auto | brute | cover
	Metric     string  `yaml:"metric"` // euclidean | cosine
}

// Default returns sane defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:          "log_data.db",
			BusyTimeoutMS: 5000,
		},
		Log:        LogConfig{Mode: "dev"},
		Importer:   ImporterConfig{BatchSize: 500},
		Preprocess: PreprocessConfig{BatchSize: 500},
		Embedding: EmbeddingConfig{
			Model:      "ollama:all-minilm",
			OllamaHost: "http://localhost:11434",
			Timeout:    90 * time.Second,
			Workers:    4,
			BatchSize:  64,
		},
		TSNE: TSNEConfig{
			Perplexity:        30,
			Iterations:        1000,
			Seed:              42,
			ExaggerationIters: 250,
			MaxPoints:         4000,
		},
		Cluster: ClusterConfig{
			Epsilon:    0.5,
			MinSamples: 5,
			Index:      "auto",
			Metric:     "euclidean",
		},
	}
}

// Load reads and parses a YAML config file on top of Default. An empty path
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Importer.BatchSize <= 0 {
		return fmt.Errorf("importer.batch_size must be > 0")
	}
	if c.Preprocess.BatchSize <= 0 {
		return fmt.Errorf("preprocess.batch_size must be > 0")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Embedding.Workers <= 0 {
		return fmt.Errorf("embedding.workers must be > 0")
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding.batch_size must be > 0")
	}
	if c.TSNE.Perplexity <= 0 {
		return fmt.Errorf("tsne.perplexity must be > 0")
	}
	if c.TSNE.Iterations < 250 {
		return fmt.Errorf("tsne.iterations must be >= 250")
	}
	if c.Cluster.Epsilon <= 0 {
		return fmt.Errorf("cluster.epsilon must be > 0")
	}
	if c.Cluster.MinSamples <= 0 {
		return fmt.Errorf("cluster.min_samples must be > 0")
	}
	switch c.Cluster.Index {
	case "auto", "brute", "cover":
	default:
		return fmt.Errorf("cluster.index must be auto, brute or cover, got %q", c.Cluster.Index)
	}
	switch c.Cluster.Metric {
	case "euclidean", "cosine":
	default:
		return fmt.Errorf("cluster.metric must be euclidean or cosine, got %q", c.Cluster.Metric)
	}
	return nil
}

// ApplyEnv loads envFile (ignored when missing) and overrides fields from
// CRYSTALIZE_* variables.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env %s: %w", envFile, err)
		}
	}
	c.Database.Path = str("CRYSTALIZE_DB_PATH", c.Database.Path)
	c.Database.BusyTimeoutMS = intv("CRYSTALIZE_DB_BUSY_TIMEOUT_MS", c.Database.BusyTimeoutMS)
	c.Log.Mode = str("CRYSTALIZE_LOG_MODE", c.Log.Mode)
	c.Embedding.Model = str("CRYSTALIZE_MODEL", c.Embedding.Model)
	c.Embedding.SentimentModel = str("CRYSTALIZE_SENTIMENT_MODEL", c.Embedding.SentimentModel)
	c.Embedding.OllamaHost = str("CRYSTALIZE_OLLAMA_HOST", c.Embedding.OllamaHost)
	c.Embedding.Workers = intv("CRYSTALIZE_EMBED_WORKERS", c.Embedding.Workers)
	c.Cluster.Epsilon = floatv("CRYSTALIZE_EPSILON", c.Cluster.Epsilon)
	c.Cluster.MinSamples = intv("CRYSTALIZE_MIN_SAMPLES", c.Cluster.MinSamples)
	c.TSNE.MaxPoints = intv("CRYSTALIZE_TSNE_MAX_POINTS", c.TSNE.MaxPoints)
	return c.Validate()
}

func str(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func intv(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func floatv(name string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
