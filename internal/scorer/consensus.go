// Copyright 2026 The veridict Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package scorer folds one tier's heterogeneous verdict/confidence
// pairs into a single truthfulness score with an agreement signal.
package scorer

import (
	"math"

	"github.com/veridict/veridict/internal/verifier"
)

// Weighted pairs a verifier response with its descriptor weight.
type Weighted struct {
	Response *verifier.Response
	Weight   float64
}

// Result is the aggregate of one tier invocation. Score is nil when the
// tier produced no usable responses.
type Result struct {
	// Tier names the tier that produced this result.
	Tier string `json:"tier"`

	// Score is the 0-100 truthfulness score, nil if no usable responses.
	Score *int `json:"score"`

	// Confidence is the aggregate confidence (0.0-1.0).
	Confidence float64 `json:"confidence"`

	// Agreement reports whether the verifiers' coarse verdicts fall
	// within the configured spread.
	Agreement bool `json:"agreement"`

	// Breakdown maps verifier name to its individual numeric score
	// (0-100) before confidence weighting.
	Breakdown map[string]float64 `json:"breakdown,omitempty"`

	// ResponseCount is the number of contributing responses.
	ResponseCount int `json:"response_count"`
}

// Params holds the tunable scoring constants.
type Params struct {
	// AgreementSpread is the maximum coarse-bucket spread (0-100 scale)
	// for responses to count as agreeing.
	AgreementSpread int
	// AgreeBase and DisagreeBase are the confidence bases before
	// sample-size scaling.
	AgreeBase    float64
	DisagreeBase float64
	// FullSample is the response count at which the sample-size penalty
	// disappears.
	FullSample int
}

// DefaultParams returns the scoring defaults.
func DefaultParams() Params {
	return Params{
		AgreementSpread: 30,
		AgreeBase:       0.92,
		DisagreeBase:    0.75,
		FullSample:      3,
	}
}

// verdictNumeric maps a verdict to its numeric truthfulness value.
// Unmapped verdicts default to the unverifiable middle ground.
func verdictNumeric(v verifier.Verdict) float64 {
	switch v {
	case verifier.VerdictTrue:
		return 1.0
	case verifier.VerdictMostlyTrue:
		return 0.8
	case verifier.VerdictPartiallyTrue, verifier.VerdictMixed:
		return 0.5
	case verifier.VerdictUnverifiable:
		return 0.35
	case verifier.VerdictMostlyFalse:
		return 0.2
	case verifier.VerdictFalse:
		return 0.0
	default:
		return 0.35
	}
}

// coarseBucket collapses a verdict onto the 0/50/100 scale used for the
// agreement check: false at 0, true at 100, everything else at 50.
func coarseBucket(v verifier.Verdict) int {
	switch v {
	case verifier.VerdictTrue:
		return 100
	case verifier.VerdictFalse:
		return 0
	default:
		return 50
	}
}

// Consensus computes the weighted truthfulness score for one tier.
// Each response contributes its numeric verdict value weighted by
// confidence/100 and the descriptor weight; the final score is the
// weighted mean on a 0-100 scale, nil when the total weight is zero.
func Consensus(tier string, responses []Weighted, p Params) *Result {
	result := &Result{
		Tier:          tier,
		Breakdown:     make(map[string]float64, len(responses)),
		ResponseCount: len(responses),
	}

	if len(responses) == 0 {
		return result
	}

	var weightedSum, weightTotal float64
	minBucket, maxBucket := 100, 0

	for _, wr := range responses {
		resp := wr.Response
		if resp == nil {
			continue
		}

		numeric := verdictNumeric(resp.Verdict)
		weight := float64(resp.Confidence) / 100.0
		if wr.Weight > 0 {
			weight *= wr.Weight
		}

		weightedSum += numeric * weight
		weightTotal += weight
		result.Breakdown[resp.Verifier] = math.Round(numeric * 100)

		bucket := coarseBucket(resp.Verdict)
		if bucket < minBucket {
			minBucket = bucket
		}
		if bucket > maxBucket {
			maxBucket = bucket
		}
	}

	if weightTotal == 0 {
		// Everything reported zero confidence; no usable signal.
		return result
	}

	score := int(math.Round(100 * weightedSum / weightTotal))
	result.Score = &score

	result.Agreement = maxBucket-minBucket <= p.AgreementSpread

	base := p.DisagreeBase
	if result.Agreement {
		base = p.AgreeBase
	}
	sampleScale := math.Min(1.0, float64(len(responses))/float64(p.FullSample))
	result.Confidence = math.Min(1.0, base*sampleScale)

	return result
}
