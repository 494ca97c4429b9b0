// Copyright 2026 The veridict Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/veridict/veridict/internal/scorer"
	"github.com/veridict/veridict/internal/verifier"
)

func tier(name TierName, timeout time.Duration, members ...*verifier.StaticVerifier) Tier {
	t := Tier{Name: name, Timeout: timeout}
	for _, m := range members {
		t.Members = append(t.Members, verifier.Descriptor{Verifier: m})
	}
	return t
}

func newScheduler(fast, mid, full Tier) *Scheduler {
	return New([]Tier{fast, mid, full}, DefaultTunables(), scorer.DefaultParams())
}

func TestRun_ConfidentFastSkipsMidAndFull(t *testing.T) {
	midV := verifier.NewStatic("mid-a", verifier.VerdictTrue, 90)
	fullV := verifier.NewStatic("full-a", verifier.VerdictTrue, 90)

	s := newScheduler(
		tier(TierFast, time.Second,
			verifier.NewStatic("fast-a", verifier.VerdictTrue, 95),
			verifier.NewStatic("fast-b", verifier.VerdictTrue, 95),
			verifier.NewStatic("fast-c", verifier.VerdictTrue, 95),
		),
		tier(TierMid, time.Second, midV),
		tier(TierFull, time.Second, fullV),
	)

	out := s.Run(context.Background(), "water boils at 100C at sea level")

	if out.Mid != nil || out.Full != nil {
		t.Fatal("mid and full must not run when fast is confident and agreeing")
	}
	if midV.Calls() != 0 || fullV.Calls() != 0 {
		t.Errorf("skipped tier verifiers were called: mid=%d full=%d", midV.Calls(), fullV.Calls())
	}
	if _, ok := out.Skipped[TierMid]; !ok {
		t.Error("missing skip reason for mid tier")
	}
	if _, ok := out.Skipped[TierFull]; !ok {
		t.Error("missing skip reason for full tier")
	}
	if out.Fast.Result.Score == nil || *out.Fast.Result.Score != 100 {
		t.Errorf("fast score = %v, want 100", out.Fast.Result.Score)
	}
}

func TestRun_SurvivesMissingTiers(t *testing.T) {
	// Only the fast tier is registered, and its split verdicts force
	// escalation. The unregistered tiers must fold in as empty runs
	// with no usable score, never crash the state machine.
	s := New([]Tier{
		tier(TierFast, time.Second,
			verifier.NewStatic("fast-a", verifier.VerdictTrue, 90),
			verifier.NewStatic("fast-b", verifier.VerdictFalse, 90),
		),
	}, DefaultTunables(), scorer.DefaultParams())

	out := s.Run(context.Background(), "a claim the fast tier splits on")

	if out.Mid == nil || out.Full == nil {
		t.Fatal("escalation must still record mid and full runs")
	}
	if out.Mid.Result.Score != nil || out.Full.Result.Score != nil {
		t.Error("tiers with no members must not produce a score")
	}
	if out.Fast.Result.Score == nil {
		t.Error("fast tier must still score")
	}

	m := s.GetMetrics()
	if m["fast_runs"] != int64(1) {
		t.Errorf("fast_runs = %v, want 1", m["fast_runs"])
	}
	if m["mid_runs"] != int64(1) {
		t.Errorf("mid_runs = %v, want 1", m["mid_runs"])
	}
}

func TestRun_SplitFastInvokesMid(t *testing.T) {
	midV := verifier.NewStatic("mid-a", verifier.VerdictTrue, 90)

	s := newScheduler(
		tier(TierFast, time.Second,
			verifier.NewStatic("fast-a", verifier.VerdictTrue, 90),
			verifier.NewStatic("fast-b", verifier.VerdictFalse, 90),
		),
		tier(TierMid, time.Second, midV),
		tier(TierFull, time.Second, verifier.NewStatic("full-a", verifier.VerdictTrue, 90)),
	)

	out := s.Run(context.Background(), "some contested claim")

	if out.Mid == nil {
		t.Fatal("disagreeing fast tier must escalate to mid")
	}
	if midV.Calls() != 1 {
		t.Errorf("mid verifier calls = %d, want 1", midV.Calls())
	}
}

func TestRun_DivergenceForcesFull(t *testing.T) {
	// Both tiers internally agree with full confidence (0.92 each, so the
	// combined 0.92 clears the threshold), but their scores sit 50 points
	// apart. Divergence alone must force the full tier.
	fullV := verifier.NewStatic("full-a", verifier.VerdictMixed, 90)

	s := newScheduler(
		tier(TierFast, time.Second,
			verifier.NewStatic("fast-a", verifier.VerdictTrue, 90),
			verifier.NewStatic("fast-b", verifier.VerdictTrue, 90),
			verifier.NewStatic("fast-c", verifier.VerdictTrue, 90),
		),
		tier(TierMid, time.Second,
			verifier.NewStatic("mid-a", verifier.VerdictPartiallyTrue, 90),
			verifier.NewStatic("mid-b", verifier.VerdictPartiallyTrue, 90),
			verifier.NewStatic("mid-c", verifier.VerdictPartiallyTrue, 90),
		),
		tier(TierFull, time.Second, fullV),
	)

	// Fast alone is confident (0.92) and agreeing, which would skip mid
	// entirely; lower the skip threshold's reach by raising it.
	tun := DefaultTunables()
	tun.SkipMidThreshold = 0.95
	s.UpdateTunables(tun)

	out := s.Run(context.Background(), "diverging claim")

	if out.Mid == nil {
		t.Fatal("mid must run when fast confidence is below the skip threshold")
	}
	if out.Full == nil {
		t.Fatal("50-point fast/mid divergence must force the full tier")
	}
	if fullV.Calls() != 1 {
		t.Errorf("full verifier calls = %d, want 1", fullV.Calls())
	}
}

func TestRun_ConsistentTiersSkipFull(t *testing.T) {
	fullV := verifier.NewStatic("full-a", verifier.VerdictTrue, 90)

	s := newScheduler(
		tier(TierFast, time.Second,
			verifier.NewStatic("fast-a", verifier.VerdictTrue, 90),
			verifier.NewStatic("fast-b", verifier.VerdictTrue, 90),
			verifier.NewStatic("fast-c", verifier.VerdictTrue, 90),
		),
		tier(TierMid, time.Second,
			verifier.NewStatic("mid-a", verifier.VerdictTrue, 85),
			verifier.NewStatic("mid-b", verifier.VerdictTrue, 85),
			verifier.NewStatic("mid-c", verifier.VerdictTrue, 85),
		),
		tier(TierFull, time.Second, fullV),
	)

	tun := DefaultTunables()
	tun.SkipMidThreshold = 0.95 // force mid to run
	s.UpdateTunables(tun)

	out := s.Run(context.Background(), "well established claim")

	if out.Mid == nil {
		t.Fatal("mid should have run")
	}
	if out.Full != nil {
		t.Fatal("consistent confident tiers must not escalate to full")
	}
	if fullV.Calls() != 0 {
		t.Errorf("full verifier calls = %d, want 0", fullV.Calls())
	}
	if out.Skipped[TierFull] == "" {
		t.Error("missing skip reason for full tier")
	}
}

func TestRunTier_TimeoutDegradesResponse(t *testing.T) {
	slow := verifier.NewStatic("slow", verifier.VerdictTrue, 95).WithDelay(500 * time.Millisecond)
	quick := verifier.NewStatic("quick", verifier.VerdictTrue, 95)

	s := newScheduler(
		tier(TierFast, 50*time.Millisecond, slow, quick),
		tier(TierMid, time.Second, verifier.NewStatic("mid-a", verifier.VerdictTrue, 90)),
		tier(TierFull, time.Second, verifier.NewStatic("full-a", verifier.VerdictTrue, 90)),
	)

	start := time.Now()
	out := s.Run(context.Background(), "claim against a slow verifier")
	elapsed := time.Since(start)

	fast := out.Fast
	if fast.Degraded != 1 {
		t.Fatalf("Degraded = %d, want 1", fast.Degraded)
	}
	if fast.Result.ResponseCount != 2 {
		t.Errorf("ResponseCount = %d, want 2 (degraded response still counts)", fast.Result.ResponseCount)
	}
	// The degraded response is a low-confidence unverifiable, so it drags
	// the tier score below a clean unanimous 100.
	if fast.Result.Score == nil || *fast.Result.Score >= 100 {
		t.Errorf("Score = %v, want < 100 with a degraded member", fast.Result.Score)
	}
	// The barrier must not wait out the slow verifier's full delay.
	if elapsed > 2*time.Second {
		t.Errorf("run took %v; tier timeout did not bound the barrier", elapsed)
	}
}

func TestRunTier_ErrorDropsResponse(t *testing.T) {
	broken := verifier.NewStatic("broken", verifier.VerdictTrue, 95).WithError("connection refused")
	working := verifier.NewStatic("working", verifier.VerdictTrue, 95)

	s := newScheduler(
		tier(TierFast, time.Second, broken, working),
		tier(TierMid, time.Second, verifier.NewStatic("mid-a", verifier.VerdictTrue, 90)),
		tier(TierFull, time.Second, verifier.NewStatic("full-a", verifier.VerdictTrue, 90)),
	)

	out := s.Run(context.Background(), "claim against a broken verifier")

	fast := out.Fast
	if fast.Dropped != 1 {
		t.Fatalf("Dropped = %d, want 1", fast.Dropped)
	}
	if fast.Result.ResponseCount != 1 {
		t.Errorf("ResponseCount = %d, want 1 (dropped response excluded)", fast.Result.ResponseCount)
	}
	// The surviving response still yields a clean score.
	if fast.Result.Score == nil || *fast.Result.Score != 100 {
		t.Errorf("Score = %v, want 100 from the working verifier alone", fast.Result.Score)
	}
}

func TestRun_AllVerifiersFail(t *testing.T) {
	s := newScheduler(
		tier(TierFast, time.Second, verifier.NewStatic("fast-a", verifier.VerdictTrue, 90).WithError("down")),
		tier(TierMid, time.Second, verifier.NewStatic("mid-a", verifier.VerdictTrue, 90).WithError("down")),
		tier(TierFull, time.Second, verifier.NewStatic("full-a", verifier.VerdictTrue, 90).WithError("down")),
	)

	out := s.Run(context.Background(), "claim nobody can check")

	// Zero confidence at every gate escalates all the way down.
	if out.Mid == nil || out.Full == nil {
		t.Fatal("zero-confidence tiers must escalate to full")
	}
	for _, run := range []*TierRun{out.Fast, out.Mid, out.Full} {
		if run.Result.Score != nil {
			t.Errorf("tier %s score = %v, want nil with no usable responses", run.Result.Tier, run.Result.Score)
		}
	}
}

func TestGetMetrics(t *testing.T) {
	s := newScheduler(
		tier(TierFast, time.Second,
			verifier.NewStatic("fast-a", verifier.VerdictTrue, 95),
			verifier.NewStatic("fast-b", verifier.VerdictTrue, 95),
			verifier.NewStatic("fast-c", verifier.VerdictTrue, 95),
		),
		tier(TierMid, time.Second, verifier.NewStatic("mid-a", verifier.VerdictTrue, 90)),
		tier(TierFull, time.Second, verifier.NewStatic("full-a", verifier.VerdictTrue, 90)),
	)

	s.Run(context.Background(), "claim")

	m := s.GetMetrics()
	if m["fast_runs"].(int64) != 1 {
		t.Errorf("fast_runs = %v, want 1", m["fast_runs"])
	}
	if m["mid_skips"].(int64) != 1 || m["full_skips"].(int64) != 1 {
		t.Errorf("skips = %v/%v, want 1/1", m["mid_skips"], m["full_skips"])
	}
}
