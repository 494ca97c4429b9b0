// Copyright 2026 The veridict Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package verifier

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestHTTPVerifier_Verify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		claim := gjson.GetBytes(body, "input.claim").String()
		assert.Equal(t, "the earth is round", claim)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":{"verdict":"TRUE","confidence":88,"why":"well documented"}}`))
	}))
	defer srv.Close()

	v, err := NewHTTPVerifier(HTTPVerifierConfig{
		Name:            "fixture",
		URL:             srv.URL,
		BodyTemplate:    `{"input":{"claim":"","lang":"en"}}`,
		ClaimPath:       "input.claim",
		VerdictPath:     "result.verdict",
		ConfidencePath:  "result.confidence",
		ExplanationPath: "result.why",
	})
	require.NoError(t, err)

	resp, err := v.Verify(context.Background(), "the earth is round")
	require.NoError(t, err)

	assert.Equal(t, VerdictTrue, resp.Verdict)
	assert.Equal(t, 88, resp.Confidence)
	assert.Equal(t, "well documented", resp.Explanation)
	assert.Equal(t, "fixture", resp.Verifier)
	assert.False(t, resp.TimedOut)
}

func TestHTTPVerifier_Errors(t *testing.T) {
	t.Run("non-2xx status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		v, err := NewHTTPVerifier(HTTPVerifierConfig{Name: "down", URL: srv.URL})
		require.NoError(t, err)

		_, err = v.Verify(context.Background(), "claim")
		assert.Error(t, err)
	})

	t.Run("missing verdict", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"something":"else"}`))
		}))
		defer srv.Close()

		v, err := NewHTTPVerifier(HTTPVerifierConfig{Name: "odd", URL: srv.URL})
		require.NoError(t, err)

		_, err = v.Verify(context.Background(), "claim")
		assert.Error(t, err)
	})

	t.Run("missing name or url", func(t *testing.T) {
		_, err := NewHTTPVerifier(HTTPVerifierConfig{URL: "http://x"})
		assert.Error(t, err)
		_, err = NewHTTPVerifier(HTTPVerifierConfig{Name: "x"})
		assert.Error(t, err)
	})
}

func TestNormalizeVerdict(t *testing.T) {
	tests := []struct {
		in   string
		want Verdict
	}{
		{"TRUE", VerdictTrue},
		{"correct", VerdictTrue},
		{"Mostly True", VerdictMostlyTrue},
		{"half true", VerdictPartiallyTrue},
		{"mixture", VerdictMixed},
		{"unknown", VerdictUnverifiable},
		{"mostly_false", VerdictMostlyFalse},
		{"incorrect", VerdictFalse},
		{"gibberish", Verdict("gibberish")},
	}
	for _, tt := range tests {
		if got := normalizeVerdict(tt.in); got != tt.want {
			t.Errorf("normalizeVerdict(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "verifiers.yaml")

	content := `
verifiers:
  - name: rapid
    url: http://127.0.0.1:9001/check
  - name: thorough
    url: http://127.0.0.1:9002/check
    verdict-path: result.verdict

tiers:
  - name: fast
    timeout-ms: 1500
    members:
      - verifier: rapid
        weight: 1.0
  - name: mid
    timeout-ms: 3500
    members:
      - verifier: thorough
  - name: full
    timeout-ms: 10000
    members:
      - verifier: rapid
      - verifier: thorough
        weight: 2.0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tiers, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Len(t, tiers, 3)

	assert.Equal(t, "fast", tiers[0].Name)
	assert.Equal(t, 1500, int(tiers[0].Timeout.Milliseconds()))
	require.Len(t, tiers[2].Members, 2)
	assert.Equal(t, "thorough", tiers[2].Members[1].Verifier.Name())
	assert.Equal(t, 2.0, tiers[2].Members[1].EffectiveWeight())
	assert.Equal(t, 1.0, tiers[2].Members[0].EffectiveWeight())
}

func TestLoadRegistry_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("unknown member", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		content := `
verifiers:
  - name: rapid
    url: http://127.0.0.1:9001/check
tiers:
  - name: fast
    timeout-ms: 1000
    members:
      - verifier: ghost
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		_, err := LoadRegistry(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRegistry(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})

	// A partial tier set must fail at load time; the scheduler assumes
	// all three tiers exist once it decides to escalate.
	t.Run("missing mid and full tiers", func(t *testing.T) {
		path := filepath.Join(dir, "partial.yaml")
		content := `
verifiers:
  - name: rapid
    url: http://127.0.0.1:9001/check
tiers:
  - name: fast
    timeout-ms: 1000
    members:
      - verifier: rapid
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		_, err := LoadRegistry(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing")
	})

	t.Run("misspelled tier name", func(t *testing.T) {
		path := filepath.Join(dir, "typo.yaml")
		content := `
verifiers:
  - name: rapid
    url: http://127.0.0.1:9001/check
tiers:
  - name: Fast
    members:
      - verifier: rapid
  - name: mid
    members:
      - verifier: rapid
  - name: full
    members:
      - verifier: rapid
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		_, err := LoadRegistry(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown tier")
	})

	t.Run("duplicate tier", func(t *testing.T) {
		path := filepath.Join(dir, "dup.yaml")
		content := `
verifiers:
  - name: rapid
    url: http://127.0.0.1:9001/check
tiers:
  - name: fast
    members:
      - verifier: rapid
  - name: fast
    members:
      - verifier: rapid
  - name: mid
    members:
      - verifier: rapid
  - name: full
    members:
      - verifier: rapid
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		_, err := LoadRegistry(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate tier")
	})
}
