// Copyright 2026 The veridict Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package verifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/veridict/veridict/internal/util"
)

// HTTPVerifierConfig describes one JSON-over-HTTP verification service.
// External services disagree about field names, so the claim slot in the
// request body and the response fields are addressed by path.
type HTTPVerifierConfig struct {
	// Name identifies the verifier in breakdowns and logs.
	Name string `yaml:"name" json:"name"`

	// URL is the endpoint to POST to.
	URL string `yaml:"url" json:"url"`

	// BodyTemplate is the JSON request body skeleton. The claim text is
	// injected at ClaimPath. Default: {"claim": ""} with path "claim".
	BodyTemplate string `yaml:"body-template" json:"body-template"`

	// ClaimPath is the sjson path where the claim text is set.
	ClaimPath string `yaml:"claim-path" json:"claim-path"`

	// VerdictPath, ConfidencePath and ExplanationPath are gjson paths
	// into the response body.
	VerdictPath     string `yaml:"verdict-path" json:"verdict-path"`
	ConfidencePath  string `yaml:"confidence-path" json:"confidence-path"`
	ExplanationPath string `yaml:"explanation-path" json:"explanation-path"`

	// APIKeyEnv names an environment variable holding a bearer token.
	APIKeyEnv string `yaml:"api-key-env" json:"api-key-env"`

	// Headers are extra request headers.
	Headers map[string]string `yaml:"headers" json:"headers"`
}

// HTTPVerifier calls an external verification service over HTTP.
type HTTPVerifier struct {
	cfg    HTTPVerifierConfig
	client *http.Client
}

// NewHTTPVerifier creates a verifier client for the configured service.
// The HTTP client carries no timeout of its own: the scheduler bounds
// every call with the tier timeout through the context.
func NewHTTPVerifier(cfg HTTPVerifierConfig) (*HTTPVerifier, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("verifier name is required")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("verifier %s: url is required", cfg.Name)
	}
	if cfg.BodyTemplate == "" {
		cfg.BodyTemplate = `{"claim":""}`
	}
	if cfg.ClaimPath == "" {
		cfg.ClaimPath = "claim"
	}
	if cfg.VerdictPath == "" {
		cfg.VerdictPath = "verdict"
	}
	if cfg.ConfidencePath == "" {
		cfg.ConfidencePath = "confidence"
	}
	if cfg.ExplanationPath == "" {
		cfg.ExplanationPath = "explanation"
	}

	if cfg.APIKeyEnv != "" {
		if key := os.Getenv(cfg.APIKeyEnv); key != "" {
			log.Debugf("verifier %s using API key %s from %s", cfg.Name, util.HideAPIKey(key), cfg.APIKeyEnv)
		} else {
			log.Warnf("verifier %s: %s is not set, calls will be unauthenticated", cfg.Name, cfg.APIKeyEnv)
		}
	}

	return &HTTPVerifier{
		cfg:    cfg,
		client: &http.Client{},
	}, nil
}

// Name returns the configured verifier name.
func (v *HTTPVerifier) Name() string {
	return v.cfg.Name
}

// Verify POSTs the claim to the service and parses the response
// tolerantly. Transport failures, non-2xx statuses, and bodies without
// a verdict are errors; the scheduler drops such calls from the tier.
func (v *HTTPVerifier) Verify(ctx context.Context, claimText string) (*Response, error) {
	start := time.Now()

	body, err := sjson.Set(v.cfg.BodyTemplate, v.cfg.ClaimPath, claimText)
	if err != nil {
		return nil, fmt.Errorf("verifier %s: failed to build request body: %w", v.cfg.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.URL, bytes.NewReader([]byte(body)))
	if err != nil {
		return nil, fmt.Errorf("verifier %s: failed to build request: %w", v.cfg.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, val := range v.cfg.Headers {
		req.Header.Set(k, val)
	}
	if v.cfg.APIKeyEnv != "" {
		if key := os.Getenv(v.cfg.APIKeyEnv); key != "" {
			req.Header.Set("Authorization", "Bearer "+key)
		}
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verifier %s: request failed: %w", v.cfg.Name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("verifier %s: failed to read response: %w", v.cfg.Name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("verifier %s: status %d", v.cfg.Name, resp.StatusCode)
	}

	verdictStr := gjson.GetBytes(raw, v.cfg.VerdictPath).String()
	if verdictStr == "" {
		return nil, fmt.Errorf("verifier %s: response missing verdict at %q", v.cfg.Name, v.cfg.VerdictPath)
	}

	confidence := int(gjson.GetBytes(raw, v.cfg.ConfidencePath).Int())
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}

	latency := time.Since(start)
	return &Response{
		Verifier:    v.cfg.Name,
		Verdict:     normalizeVerdict(verdictStr),
		Confidence:  confidence,
		Explanation: gjson.GetBytes(raw, v.cfg.ExplanationPath).String(),
		Latency:     latency,
		LatencyMs:   latency.Milliseconds(),
	}, nil
}

// normalizeVerdict maps loose external verdict spellings onto the
// canonical set. Unknown verdicts pass through; the scorer treats them
// as unverifiable.
func normalizeVerdict(s string) Verdict {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "correct", "accurate":
		return VerdictTrue
	case "mostly_true", "mostly true":
		return VerdictMostlyTrue
	case "partially_true", "partially true", "half_true", "half true":
		return VerdictPartiallyTrue
	case "mixed", "mixture":
		return VerdictMixed
	case "unverifiable", "unknown", "unproven":
		return VerdictUnverifiable
	case "mostly_false", "mostly false":
		return VerdictMostlyFalse
	case "false", "incorrect", "inaccurate":
		return VerdictFalse
	default:
		return Verdict(strings.ToLower(strings.TrimSpace(s)))
	}
}
