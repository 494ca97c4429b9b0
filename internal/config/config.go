// Copyright 2026 The veridict Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config provides configuration management for the veridict
// server. It handles loading and parsing the YAML configuration file,
// and provides structured access to server settings, cache sizing,
// the embedding and source-search providers, and the pipeline tunables.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/veridict/veridict/internal/embedding"
	"github.com/veridict/veridict/internal/sources"
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// Host is the network host/interface on which the API server will bind.
	// Default is empty ("") to bind all interfaces.
	Host string `yaml:"host"`
	// Port is the network port on which the API server will listen.
	Port int `yaml:"port"`

	// Debug enables or disables debug-level logging.
	Debug bool `yaml:"debug"`

	// LoggingToFile controls whether application logs are written to
	// rotating files or stdout.
	LoggingToFile bool `yaml:"logging-to-file"`

	// LogsMaxTotalSizeMB limits the total size (in MB) of log files under
	// the logs directory. Set to 0 to disable.
	LogsMaxTotalSizeMB int `yaml:"logs-max-total-size-mb"`

	// VerifiersFile points at the verifiers/tiers declaration file.
	VerifiersFile string `yaml:"verifiers-file"`

	// Embedding configures the embedding provider used by the semantic cache.
	Embedding embedding.Config `yaml:"embedding"`

	// Search configures the supporting-source search provider.
	Search sources.HTTPConfig `yaml:"search"`

	// Cache configures the exact and semantic cache stores.
	Cache CacheConfig `yaml:"cache"`

	// Tunables are the pipeline constants. All have sensible defaults and
	// are hot-reloadable.
	Tunables Tunables `yaml:"tunables"`
}

// CacheConfig sizes the two cache tiers.
type CacheConfig struct {
	// ExactTTLMinutes is the exact-match entry lifetime.
	ExactTTLMinutes int `yaml:"exact-ttl-minutes"`
	// ExactMaxEntries caps the exact store.
	ExactMaxEntries int `yaml:"exact-max-entries"`
	// SemanticTTLHours is the semantic entry lifetime.
	SemanticTTLHours int `yaml:"semantic-ttl-hours"`
	// SemanticMaxEntries caps the semantic store.
	SemanticMaxEntries int `yaml:"semantic-max-entries"`
	// SweepIntervalSeconds is the background expiry sweep period.
	SweepIntervalSeconds int `yaml:"sweep-interval-seconds"`
}

// Tunables are the empirically chosen pipeline constants. Zero values
// mean "use the default"; ApplyDefaults fills them in.
type Tunables struct {
	// SkipMidThreshold: the fast tier short-circuits verification when it
	// reaches this confidence with internal agreement.
	SkipMidThreshold float64 `yaml:"skip-mid-threshold"`
	// SkipFullThreshold: the full tier runs when combined fast/mid
	// confidence stays below this value.
	SkipFullThreshold float64 `yaml:"skip-full-threshold"`
	// DivergencePoints: a fast/mid score gap beyond this forces the full tier.
	DivergencePoints int `yaml:"divergence-points"`
	// DeviationPoints: a full score this far from fast's is logged for tuning.
	DeviationPoints int `yaml:"deviation-points"`
	// AgreementSpread is the coarse-bucket spread within which a tier's
	// verdicts count as agreeing.
	AgreementSpread int `yaml:"agreement-spread"`
	// SimilarityThreshold is the minimum cosine similarity for a semantic
	// cache hit.
	SimilarityThreshold float64 `yaml:"similarity-threshold"`
	// RewordThreshold: above this similarity a semantic store updates the
	// existing entry instead of appending.
	RewordThreshold float64 `yaml:"reword-threshold"`
	// FastTimeoutMs, MidTimeoutMs and FullTimeoutMs bound the tiers.
	FastTimeoutMs int `yaml:"fast-timeout-ms"`
	MidTimeoutMs  int `yaml:"mid-timeout-ms"`
	FullTimeoutMs int `yaml:"full-timeout-ms"`
}

// ApplyDefaults fills unset tunables with the shipped constants.
func (t *Tunables) ApplyDefaults() {
	if t.SkipMidThreshold <= 0 {
		t.SkipMidThreshold = 0.88
	}
	if t.SkipFullThreshold <= 0 {
		t.SkipFullThreshold = 0.90
	}
	if t.DivergencePoints <= 0 {
		t.DivergencePoints = 20
	}
	if t.DeviationPoints <= 0 {
		t.DeviationPoints = 15
	}
	if t.AgreementSpread <= 0 {
		t.AgreementSpread = 30
	}
	if t.SimilarityThreshold <= 0 {
		t.SimilarityThreshold = 0.93
	}
	if t.RewordThreshold <= 0 {
		t.RewordThreshold = 0.98
	}
	if t.FastTimeoutMs <= 0 {
		t.FastTimeoutMs = 1500
	}
	if t.MidTimeoutMs <= 0 {
		t.MidTimeoutMs = 3500
	}
	if t.FullTimeoutMs <= 0 {
		t.FullTimeoutMs = 10000
	}
}

// applyDefaults fills unset top-level fields.
func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8317
	}
	if c.VerifiersFile == "" {
		c.VerifiersFile = "verifiers.yaml"
	}
	if c.Cache.ExactTTLMinutes <= 0 {
		c.Cache.ExactTTLMinutes = 10
	}
	if c.Cache.ExactMaxEntries <= 0 {
		c.Cache.ExactMaxEntries = 5000
	}
	if c.Cache.SemanticTTLHours <= 0 {
		c.Cache.SemanticTTLHours = 24
	}
	if c.Cache.SemanticMaxEntries <= 0 {
		c.Cache.SemanticMaxEntries = 1000
	}
	if c.Cache.SweepIntervalSeconds <= 0 {
		c.Cache.SweepIntervalSeconds = 60
	}
	c.Tunables.ApplyDefaults()
}

// ExactTTL returns the exact-cache TTL as a duration.
func (c *CacheConfig) ExactTTL() time.Duration {
	return time.Duration(c.ExactTTLMinutes) * time.Minute
}

// SemanticTTL returns the semantic-cache TTL as a duration.
func (c *CacheConfig) SemanticTTL() time.Duration {
	return time.Duration(c.SemanticTTLHours) * time.Hour
}

// SweepInterval returns the background sweep period as a duration.
func (c *CacheConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// LoadConfig reads and parses the YAML configuration file at the given
// path, then applies defaults for unset fields.
//
// Parameters:
//   - configFile: The path to the YAML configuration file
//
// Returns:
//   - *Config: The parsed configuration
//   - error: An error if reading or parsing fails
func LoadConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// DefaultConfig returns a configuration with every default applied,
// used when no config file is present.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}
