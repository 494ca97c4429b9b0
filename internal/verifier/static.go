// Copyright 2026 The veridict Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package verifier

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// StaticVerifier returns a fixed verdict after an optional delay.
// Used by tests and by local runs without live verification services.
type StaticVerifier struct {
	name       string
	verdict    Verdict
	confidence int
	delay      time.Duration
	err        error

	// calls counts invocations; tests use it to assert that skipped
	// tiers never touch their verifiers.
	calls int64
}

// NewStatic creates a fixture verifier.
func NewStatic(name string, verdict Verdict, confidence int) *StaticVerifier {
	return &StaticVerifier{name: name, verdict: verdict, confidence: confidence}
}

// WithDelay makes every call sleep for d before responding.
func (s *StaticVerifier) WithDelay(d time.Duration) *StaticVerifier {
	s.delay = d
	return s
}

// WithError makes every call fail outright.
func (s *StaticVerifier) WithError(msg string) *StaticVerifier {
	s.err = fmt.Errorf("%s", msg)
	return s
}

// Name returns the fixture name.
func (s *StaticVerifier) Name() string { return s.name }

// Calls returns how many times Verify has been invoked.
func (s *StaticVerifier) Calls() int64 { return atomic.LoadInt64(&s.calls) }

// Verify returns the fixed response, honoring ctx cancellation during
// the configured delay.
func (s *StaticVerifier) Verify(ctx context.Context, claimText string) (*Response, error) {
	atomic.AddInt64(&s.calls, 1)
	start := time.Now()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if s.err != nil {
		return nil, s.err
	}

	latency := time.Since(start)
	return &Response{
		Verifier:    s.name,
		Verdict:     s.verdict,
		Confidence:  s.confidence,
		Explanation: "static verdict",
		Latency:     latency,
		LatencyMs:   latency.Milliseconds(),
	}, nil
}
