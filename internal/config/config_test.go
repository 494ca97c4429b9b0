// Copyright 2026 The veridict Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
host: 127.0.0.1
port: 9000
debug: true
verifiers-file: /etc/veridict/verifiers.yaml

embedding:
  base-url: http://127.0.0.1:11434
  model: nomic-embed-text

search:
  url: http://127.0.0.1:8080/search
  max-results: 3

cache:
  exact-ttl-minutes: 5
  semantic-max-entries: 200

tunables:
  skip-mid-threshold: 0.80
  divergence-points: 25
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "/etc/veridict/verifiers.yaml", cfg.VerifiersFile)
	assert.Equal(t, "http://127.0.0.1:11434", cfg.Embedding.BaseURL)
	assert.Equal(t, 3, cfg.Search.MaxResults)

	// Explicit values survive, everything else defaults.
	assert.Equal(t, 5*time.Minute, cfg.Cache.ExactTTL())
	assert.Equal(t, 200, cfg.Cache.SemanticMaxEntries)
	assert.Equal(t, 24*time.Hour, cfg.Cache.SemanticTTL())
	assert.Equal(t, 0.80, cfg.Tunables.SkipMidThreshold)
	assert.Equal(t, 25, cfg.Tunables.DivergencePoints)
	assert.Equal(t, 0.90, cfg.Tunables.SkipFullThreshold)
	assert.Equal(t, 0.93, cfg.Tunables.SimilarityThreshold)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("port: [not a port"), 0o644))
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8317, cfg.Port)
	assert.Equal(t, "verifiers.yaml", cfg.VerifiersFile)
	assert.Equal(t, 10*time.Minute, cfg.Cache.ExactTTL())
	assert.Equal(t, 5000, cfg.Cache.ExactMaxEntries)
	assert.Equal(t, 1000, cfg.Cache.SemanticMaxEntries)
	assert.Equal(t, time.Minute, cfg.Cache.SweepInterval())
	assert.Equal(t, 0.88, cfg.Tunables.SkipMidThreshold)
	assert.Equal(t, 1500, cfg.Tunables.FastTimeoutMs)
	assert.Equal(t, 10000, cfg.Tunables.FullTimeoutMs)
	assert.False(t, cfg.Embedding.BaseURL != "", "embedding disabled by default")
}
