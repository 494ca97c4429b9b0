// Copyright 2026 The veridict Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sources

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestHTTPProvider_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "the moon landing happened", gjson.GetBytes(body, "q.text").String())

		_, _ = w.Write([]byte(`{"hits":[
			{"name":"NASA archive","link":"https://example.org/apollo","text":"mission records"},
			{"name":"no link","text":"skipped"},
			{"name":"Encyclopedia","link":"https://example.org/moon"}
		]}`))
	}))
	defer srv.Close()

	p := NewHTTP(HTTPConfig{
		Name:         "fixture",
		URL:          srv.URL,
		BodyTemplate: `{"q":{"text":""}}`,
		QueryPath:    "q.text",
		ResultsPath:  "hits",
		TitlePath:    "name",
		URLPath:      "link",
		SnippetPath:  "text",
	})

	result, err := p.Search(context.Background(), "the moon landing happened")
	require.NoError(t, err)
	require.Len(t, result.Sources, 2) // entry without a URL is dropped

	assert.Equal(t, "fixture", result.Provider)
	assert.Equal(t, "NASA archive", result.Sources[0].Title)
	assert.Equal(t, "https://example.org/apollo", result.Sources[0].URL)
	assert.Equal(t, "mission records", result.Sources[0].Snippet)
}

func TestHTTPProvider_MaxResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[
			{"title":"a","url":"https://a"},
			{"title":"b","url":"https://b"},
			{"title":"c","url":"https://c"}
		]}`))
	}))
	defer srv.Close()

	p := NewHTTP(HTTPConfig{URL: srv.URL, MaxResults: 2})

	result, err := p.Search(context.Background(), "claim")
	require.NoError(t, err)
	assert.Len(t, result.Sources, 2)
}

func TestHTTPProvider_TimeoutTagsProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	p := NewHTTP(HTTPConfig{Name: "slowsearch", URL: srv.URL, TimeoutMs: 50})

	result, err := p.Search(context.Background(), "claim")
	require.NoError(t, err, "timeout must not surface as an error")
	assert.Empty(t, result.Sources)
	assert.Equal(t, "timeout", result.Provider)
	assert.Equal(t, int64(1), p.GetMetrics()["timeouts"])
}

func TestHTTPProvider_ServerErrorDegradesToEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewHTTP(HTTPConfig{URL: srv.URL})

	result, err := p.Search(context.Background(), "claim")
	require.NoError(t, err)
	assert.Empty(t, result.Sources)
	assert.Equal(t, "search", result.Provider)
}

func TestHTTPProvider_Disabled(t *testing.T) {
	p := NewHTTP(HTTPConfig{})
	assert.False(t, p.Enabled())

	result, err := p.Search(context.Background(), "claim")
	require.NoError(t, err)
	assert.Empty(t, result.Sources)
}
