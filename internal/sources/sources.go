// Copyright 2026 The veridict Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sources fetches supporting evidence links for a claim. The
// search runs speculatively alongside verification, so a slow or dead
// provider degrades to an empty source list rather than an error.
package sources

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Source is one piece of supporting evidence.
type Source struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// SearchResult is a provider's answer: the sources found, which
// provider answered, and how long the search took. A deadline-exceeded
// search returns an empty list tagged provider "timeout".
type SearchResult struct {
	Sources      []Source `json:"sources"`
	Provider     string   `json:"provider"`
	SearchTimeMs int64    `json:"search_time_ms"`
}

// Provider searches for sources relevant to a claim.
type Provider interface {
	// Search returns the search result for the claim. Implementations
	// honor ctx deadlines and degrade to an empty result, never an
	// error, when the search cannot complete in time.
	Search(ctx context.Context, claimText string) (*SearchResult, error)
	// Enabled reports whether a provider is configured.
	Enabled() bool
}

// HTTPConfig configures the HTTP search provider.
type HTTPConfig struct {
	// Name tags results from this provider. Default "search".
	Name string `yaml:"name"`
	// URL is the search endpoint. Empty disables the provider.
	URL string `yaml:"url"`
	// BodyTemplate is the JSON request skeleton; the claim is injected
	// at QueryPath.
	BodyTemplate string `yaml:"body-template"`
	QueryPath    string `yaml:"query-path"`
	// ResultsPath locates the result array in the response; TitlePath,
	// URLPath and SnippetPath are relative to each element.
	ResultsPath string `yaml:"results-path"`
	TitlePath   string `yaml:"title-path"`
	URLPath     string `yaml:"url-path"`
	SnippetPath string `yaml:"snippet-path"`
	// MaxResults caps the returned list.
	MaxResults int `yaml:"max-results"`
	// TimeoutMs bounds each search call.
	TimeoutMs int `yaml:"timeout-ms"`
}

// HTTPProvider queries a JSON search endpoint.
type HTTPProvider struct {
	cfg    HTTPConfig
	client *http.Client

	searches int64
	timeouts int64
}

// NewHTTP creates the provider, applying defaults for unset fields.
func NewHTTP(cfg HTTPConfig) *HTTPProvider {
	if cfg.Name == "" {
		cfg.Name = "search"
	}
	if cfg.BodyTemplate == "" {
		cfg.BodyTemplate = `{"query":""}`
	}
	if cfg.QueryPath == "" {
		cfg.QueryPath = "query"
	}
	if cfg.ResultsPath == "" {
		cfg.ResultsPath = "results"
	}
	if cfg.TitlePath == "" {
		cfg.TitlePath = "title"
	}
	if cfg.URLPath == "" {
		cfg.URLPath = "url"
	}
	if cfg.SnippetPath == "" {
		cfg.SnippetPath = "snippet"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	if cfg.TimeoutMs <= 0 {
		cfg.TimeoutMs = 3000
	}
	return &HTTPProvider{
		cfg:    cfg,
		client: &http.Client{},
	}
}

// Enabled reports whether a search URL is configured.
func (p *HTTPProvider) Enabled() bool { return p.cfg.URL != "" }

// Search queries the endpoint. Deadline expiry returns an empty result
// tagged provider "timeout"; other transport failures return an empty
// result under the provider's own name. Neither is an error: missing
// sources are a degraded answer, not a failed one.
func (p *HTTPProvider) Search(ctx context.Context, claimText string) (*SearchResult, error) {
	start := time.Now()
	result := &SearchResult{Provider: p.cfg.Name}
	if !p.Enabled() {
		return result, nil
	}
	atomic.AddInt64(&p.searches, 1)

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(p.cfg.TimeoutMs)*time.Millisecond)
	defer cancel()

	body, err := sjson.Set(p.cfg.BodyTemplate, p.cfg.QueryPath, claimText)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, p.cfg.URL, bytes.NewBufferString(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	result.SearchTimeMs = time.Since(start).Milliseconds()
	if err != nil {
		if callCtx.Err() != nil {
			atomic.AddInt64(&p.timeouts, 1)
			result.Provider = "timeout"
			log.Warnf("source search timed out after %dms", p.cfg.TimeoutMs)
		} else {
			log.Warnf("source search failed: %v", err)
		}
		return result, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warnf("source search returned status %d", resp.StatusCode)
		return result, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warnf("failed to read search response: %v", err)
		return result, nil
	}

	for _, item := range gjson.GetBytes(data, p.cfg.ResultsPath).Array() {
		if len(result.Sources) >= p.cfg.MaxResults {
			break
		}
		url := item.Get(p.cfg.URLPath).String()
		if url == "" {
			continue
		}
		result.Sources = append(result.Sources, Source{
			Title:   item.Get(p.cfg.TitlePath).String(),
			URL:     url,
			Snippet: item.Get(p.cfg.SnippetPath).String(),
		})
	}

	result.SearchTimeMs = time.Since(start).Milliseconds()
	return result, nil
}

// GetMetrics returns search statistics.
func (p *HTTPProvider) GetMetrics() map[string]interface{} {
	return map[string]interface{}{
		"searches": atomic.LoadInt64(&p.searches),
		"timeouts": atomic.LoadInt64(&p.timeouts),
	}
}
