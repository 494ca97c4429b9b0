// Copyright 2026 The veridict Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package embedding defines the embedding provider contract used by the
// semantic cache and implements an HTTP client for Ollama-compatible
// embedding endpoints. A provider returns nil on any failure; callers
// treat nil as "semantic matching unavailable", never as an error.
package embedding

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// Provider computes embedding vectors for text.
type Provider interface {
	// Embed returns a fixed-dimension vector for the text, or an error.
	// Callers degrade gracefully on error; they never propagate it.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Enabled reports whether the provider is configured and reachable
	// enough to be worth calling.
	Enabled() bool
}

// CosineSimilarity computes the normalized dot product of two vectors.
// Mismatched lengths or zero-norm vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	normA = math.Sqrt(normA)
	normB = math.Sqrt(normB)
	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dot / (normA * normB)
}

// HTTPProvider calls an Ollama-style POST /api/embeddings endpoint.
type HTTPProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

// Config holds HTTP embedding provider settings.
type Config struct {
	// BaseURL is the embedding server base URL, e.g. "http://127.0.0.1:11434".
	// Empty disables the provider.
	BaseURL string `yaml:"base-url" json:"base-url"`

	// Model is the embedding model name.
	Model string `yaml:"model" json:"model"`

	// TimeoutMs bounds each embedding call.
	TimeoutMs int `yaml:"timeout-ms" json:"timeout-ms"`
}

// NewHTTPProvider creates an embedding client for the configured endpoint.
func NewHTTPProvider(cfg Config) *HTTPProvider {
	if cfg.Model == "" {
		cfg.Model = "nomic-embed-text"
	}
	if cfg.TimeoutMs <= 0 {
		cfg.TimeoutMs = 2000
	}

	return &HTTPProvider{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond},
	}
}

// Enabled reports whether a base URL is configured.
func (p *HTTPProvider) Enabled() bool {
	return p != nil && p.baseURL != ""
}

// Embed requests an embedding for the text. The response body is parsed
// tolerantly; any transport or shape problem is returned as an error for
// the caller to swallow.
func (p *HTTPProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if !p.Enabled() {
		return nil, fmt.Errorf("embedding provider not configured")
	}

	body, err := json.Marshal(map[string]string{
		"model":  p.model,
		"prompt": text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding server returned status %d", resp.StatusCode)
	}

	raw := new(bytes.Buffer)
	if _, err := raw.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("failed to read embedding response: %w", err)
	}

	values := gjson.GetBytes(raw.Bytes(), "embedding").Array()
	if len(values) == 0 {
		return nil, fmt.Errorf("embedding response contained no vector")
	}

	vector := make([]float32, len(values))
	for i, v := range values {
		vector[i] = float32(v.Float())
	}

	log.Debugf("embedding computed, dimension=%d", len(vector))
	return vector, nil
}
