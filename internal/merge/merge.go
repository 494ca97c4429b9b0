// Copyright 2026 The veridict Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package merge folds the per-tier consensus results into the single
// score and label reported to the caller.
package merge

import (
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/veridict/veridict/internal/scorer"
)

// Label is the human-facing verdict bucket derived from the final score.
type Label string

const (
	LabelTrue    Label = "TRUE"
	LabelMixed   Label = "MIXED"
	LabelFalse   Label = "FALSE"
	LabelUnknown Label = "UNKNOWN"
)

// Params holds the blend constants for the FAST/MID merge and the
// deviation threshold for the FULL-vs-FAST audit log line.
type Params struct {
	// FastWeight and MidWeight blend the two scores when FULL never ran.
	FastWeight float64
	MidWeight  float64
	// DeviationPoints: a FULL score this far from FAST's is logged for
	// offline tuning of the fast tier. It never changes the result.
	DeviationPoints int
}

// DefaultParams returns the merge defaults.
func DefaultParams() Params {
	return Params{
		FastWeight:      0.3,
		MidWeight:       0.7,
		DeviationPoints: 15,
	}
}

// Final is the merged verification outcome.
type Final struct {
	// Score is the merged 0-100 score, nil when no tier produced one.
	Score *int `json:"score"`
	// Confidence is the merged aggregate confidence.
	Confidence float64 `json:"confidence"`
	// Label buckets the score for display.
	Label Label `json:"label"`
	// SourceTier names where the score came from: full, fast+mid, fast,
	// mid, or none.
	SourceTier string `json:"source_tier"`
}

// Merge resolves the tier results by authority. A FULL result wins
// outright. Without FULL, FAST and MID blend with MID dominant. A tier
// that never ran or produced no score simply drops out of the blend.
func Merge(fast, mid, full *scorer.Result, p Params) Final {
	if full != nil && full.Score != nil {
		if fast != nil && fast.Score != nil {
			if dev := *full.Score - *fast.Score; dev > p.DeviationPoints || -dev > p.DeviationPoints {
				// Signal for tuning the fast tier, nothing more.
				log.WithFields(log.Fields{
					"fast_score": *fast.Score,
					"full_score": *full.Score,
				}).Info("full tier deviated materially from fast tier")
			}
		}
		return Final{
			Score:      full.Score,
			Confidence: full.Confidence,
			Label:      ScoreLabel(full.Score),
			SourceTier: "full",
		}
	}

	fastOK := fast != nil && fast.Score != nil
	midOK := mid != nil && mid.Score != nil

	switch {
	case fastOK && midOK:
		blended := int(math.Round(p.FastWeight*float64(*fast.Score) + p.MidWeight*float64(*mid.Score)))
		return Final{
			Score:      &blended,
			Confidence: p.FastWeight*fast.Confidence + p.MidWeight*mid.Confidence,
			Label:      ScoreLabel(&blended),
			SourceTier: "fast+mid",
		}
	case midOK:
		return Final{
			Score:      mid.Score,
			Confidence: mid.Confidence,
			Label:      ScoreLabel(mid.Score),
			SourceTier: "mid",
		}
	case fastOK:
		return Final{
			Score:      fast.Score,
			Confidence: fast.Confidence,
			Label:      ScoreLabel(fast.Score),
			SourceTier: "fast",
		}
	default:
		return Final{
			Label:      LabelUnknown,
			SourceTier: "none",
		}
	}
}

// ScoreLabel buckets a 0-100 score: TRUE at 70 and above, FALSE below
// 40, MIXED between, UNKNOWN when there is no score at all.
func ScoreLabel(score *int) Label {
	if score == nil {
		return LabelUnknown
	}
	switch {
	case *score >= 70:
		return LabelTrue
	case *score >= 40:
		return LabelMixed
	default:
		return LabelFalse
	}
}
