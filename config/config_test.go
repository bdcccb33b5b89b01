package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crystalize.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  path: /tmp/logs.db
embedding:
  model: hashing:64
  timeout: 30s
cluster:
  epsilon: 1.5
  index: cover
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/logs.db", cfg.Database.Path)
	assert.Equal(t, "hashing:64", cfg.Embedding.Model)
	assert.Equal(t, 30*time.Second, cfg.Embedding.Timeout)
	assert.Equal(t, 1.5, cfg.Cluster.Epsilon)
	assert.Equal(t, "cover", cfg.Cluster.Index)
	// untouched defaults survive
	assert.Equal(t, 5, cfg.Cluster.MinSamples)
	assert.Equal(t, 1000, cfg.TSNE.Iterations)
	assert.Equal(t, 250, cfg.TSNE.ExaggerationIters)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Cluster.Index = "kd"
	assert.ErrorContains(t, cfg.Validate(), "cluster.index")

	cfg = Default()
	cfg.Cluster.MinSamples = 0
	assert.ErrorContains(t, cfg.Validate(), "min_samples")

	cfg = Default()
	cfg.Database.Path = ""
	assert.ErrorContains(t, cfg.Validate(), "database.path")

	cfg = Default()
	cfg.Cluster.Metric = "manhattan"
	assert.ErrorContains(t, cfg.Validate(), "cluster.metric")
}

func TestApplyEnv(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("CRYSTALIZE_MODEL=hashing:32\n"), 0o644))
	t.Setenv("CRYSTALIZE_MIN_SAMPLES", "3")
	t.Setenv("CRYSTALIZE_EPSILON", "not-a-number")
	t.Cleanup(func() { _ = os.Unsetenv("CRYSTALIZE_MODEL") })

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(envFile))
	assert.Equal(t, "hashing:32", cfg.Embedding.Model)
	assert.Equal(t, 3, cfg.Cluster.MinSamples)
	assert.Equal(t, 0.5, cfg.Cluster.Epsilon)

	require.NoError(t, Default().ApplyEnv(filepath.Join(t.TempDir(), "missing.env")))
}
