// Copyright 2026 The veridict Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package prefilter short-circuits the verification pipeline for
// subjective or anecdotal input. It runs an ordered set of cheap,
// synchronous heuristics before any cache lookup or network call;
// the first matching rule wins and no rule matching means the text
// proceeds to verification (bias toward verifying rather than
// silently skipping).
package prefilter

import (
	"regexp"
	"strings"
	"sync/atomic"
	"time"
)

// Result is the outcome of the personal-statement check.
type Result struct {
	// IsPersonal reports whether the text is a personal statement
	// that must bypass caching and verification entirely.
	IsPersonal bool `json:"is_personal"`

	// Rule is the name of the heuristic that matched, empty otherwise.
	Rule string `json:"rule,omitempty"`

	// Reason is a human-readable explanation for the match.
	Reason string `json:"reason,omitempty"`

	// Confidence is how certain the heuristic is (0.0-1.0).
	Confidence float64 `json:"confidence"`

	// Duration is how long the filter took. Expected well under a
	// millisecond; surfaced so the pipeline can report it as the
	// total latency of a personal-mode response.
	Duration time.Duration `json:"-"`
}

// rule is one synchronous heuristic. match receives the raw text and
// its lowercase form and reports whether the rule fires.
type rule struct {
	name       string
	reason     string
	confidence float64
	match      func(raw, lower string) bool
}

// Filter evaluates personal-statement heuristics in a fixed order.
// Safe for concurrent use; all state is read-only after construction.
type Filter struct {
	rules []rule

	// metrics
	evaluated int64
	matched   int64
}

var (
	firstPersonRe = regexp.MustCompile(`(?i)\b(i|i'm|i am|i've|my|me|mine|we|we're|our)\b`)
	opinionRe     = regexp.MustCompile(`(?i)\b(i think|i believe|i feel|i guess|in my opinion|imo|personally)\b`)
	anecdoteRe    = regexp.MustCompile(`(?i)\b(my (friend|mom|dad|boss|wife|husband|dog|cat)|yesterday|this morning|last night|today)\b`)
	emotionRe     = regexp.MustCompile(`(?i)\b(so happy|so sad|so excited|so angry|love|hate|can't wait|amazing day|terrible day)\b`)
)

// New creates a Filter with the default heuristic set.
func New() *Filter {
	return &Filter{
		rules: []rule{
			{
				name:       "too_short",
				reason:     "input too short to contain a verifiable claim",
				confidence: 0.70,
				match: func(raw, lower string) bool {
					return len(strings.Fields(lower)) < 3
				},
			},
			{
				name:       "opinion",
				reason:     "explicit opinion marker",
				confidence: 0.95,
				match: func(raw, lower string) bool {
					return opinionRe.MatchString(lower)
				},
			},
			{
				name:       "first_person_anecdote",
				reason:     "first-person anecdote about the speaker's own life",
				confidence: 0.90,
				match: func(raw, lower string) bool {
					return firstPersonRe.MatchString(lower) && anecdoteRe.MatchString(lower)
				},
			},
			{
				name:       "first_person_emotion",
				reason:     "first-person emotional statement",
				confidence: 0.85,
				match: func(raw, lower string) bool {
					return firstPersonRe.MatchString(lower) && emotionRe.MatchString(lower)
				},
			},
		},
	}
}

// Evaluate runs the heuristics against raw input text. First matching
// rule wins. No network calls, no locks; a handful of regex scans.
func (f *Filter) Evaluate(text string) *Result {
	start := time.Now()
	atomic.AddInt64(&f.evaluated, 1)

	lower := strings.ToLower(strings.TrimSpace(text))

	for _, r := range f.rules {
		if r.match(text, lower) {
			atomic.AddInt64(&f.matched, 1)
			return &Result{
				IsPersonal: true,
				Rule:       r.name,
				Reason:     r.reason,
				Confidence: r.confidence,
				Duration:   time.Since(start),
			}
		}
	}

	return &Result{
		IsPersonal: false,
		Confidence: 1.0,
		Duration:   time.Since(start),
	}
}

// GetMetrics returns filter statistics.
func (f *Filter) GetMetrics() map[string]interface{} {
	evaluated := atomic.LoadInt64(&f.evaluated)
	matched := atomic.LoadInt64(&f.matched)

	matchRate := 0.0
	if evaluated > 0 {
		matchRate = float64(matched) / float64(evaluated)
	}

	return map[string]interface{}{
		"evaluated":  evaluated,
		"matched":    matched,
		"match_rate": matchRate,
	}
}
