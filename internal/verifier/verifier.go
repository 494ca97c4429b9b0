// Copyright 2026 The veridict Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package verifier defines the pluggable verifier contract and the
// response model shared by the scheduler and the consensus scorer.
// Concrete verifiers are external fact-checking services; the package
// ships an HTTP client for JSON endpoints and a static implementation
// for tests and offline runs.
package verifier

import (
	"context"
	"time"
)

// Verdict is an external verifier's judgment of a claim.
type Verdict string

const (
	VerdictTrue          Verdict = "true"
	VerdictMostlyTrue    Verdict = "mostly_true"
	VerdictPartiallyTrue Verdict = "partially_true"
	VerdictMixed         Verdict = "mixed"
	VerdictUnverifiable  Verdict = "unverifiable"
	VerdictMostlyFalse   Verdict = "mostly_false"
	VerdictFalse         Verdict = "false"
)

// Response is one verifier's answer to a claim. Produced once per call
// and never mutated afterwards.
type Response struct {
	// Verifier is the name of the verifier that produced this response.
	Verifier string `json:"verifier"`

	// Verdict is the verifier's judgment.
	Verdict Verdict `json:"verdict"`

	// Confidence is the verifier's self-reported confidence (0-100).
	Confidence int `json:"confidence"`

	// Explanation is the verifier's free-text reasoning, if any.
	Explanation string `json:"explanation,omitempty"`

	// Latency is the measured wall time of the call.
	Latency time.Duration `json:"-"`

	// LatencyMs mirrors Latency for serialization.
	LatencyMs int64 `json:"latency_ms"`

	// TimedOut marks a response synthesized for a call that exceeded
	// its tier timeout.
	TimedOut bool `json:"timed_out,omitempty"`
}

// Verifier is the pluggable contract for an external verification
// service. Implementations must honor ctx cancellation; the scheduler
// enforces the tier timeout on top of it.
type Verifier interface {
	// Name identifies the verifier in breakdowns and logs.
	Name() string

	// Verify asks the service to judge the claim text.
	Verify(ctx context.Context, claimText string) (*Response, error)
}

// Descriptor pairs a verifier with its relative weight inside a tier.
type Descriptor struct {
	Verifier Verifier
	// Weight scales this verifier's contribution to the tier consensus.
	// Zero or negative weights are treated as 1.
	Weight float64
}

// EffectiveWeight returns the descriptor weight with the default applied.
func (d Descriptor) EffectiveWeight() float64 {
	if d.Weight <= 0 {
		return 1.0
	}
	return d.Weight
}
