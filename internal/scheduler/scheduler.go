// Copyright 2026 The veridict Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package scheduler runs the tiered verification state machine:
// FAST -> MID -> FULL with escalation gates between tiers ("delta
// verification"). Within a tier every verifier is called concurrently
// and raced against the tier timeout; a call that runs past the timeout
// is folded in as a low-confidence unverifiable response so slow
// verifiers register as "don't know" instead of vanishing, while a call
// that errors outright is dropped from the tier.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/veridict/veridict/internal/scorer"
	"github.com/veridict/veridict/internal/verifier"
)

// TierName identifies one of the three verification tiers.
type TierName string

const (
	TierFast TierName = "fast"
	TierMid  TierName = "mid"
	TierFull TierName = "full"
)

// Default tier timeouts. Later tiers carry higher-cost verifiers and
// are only reached when the situation already warrants the expense.
const (
	DefaultFastTimeout = 1500 * time.Millisecond
	DefaultMidTimeout  = 3500 * time.Millisecond
	DefaultFullTimeout = 10 * time.Second
)

// Tier is a named verifier group executed under one timeout.
type Tier struct {
	Name    TierName
	Timeout time.Duration
	Members []verifier.Descriptor
}

// Tunables are the escalation constants. They are empirically chosen
// defaults, exposed for configuration rather than hard-coded.
type Tunables struct {
	// SkipMidThreshold: MID and FULL are skipped when the FAST tier
	// reaches this confidence with internal agreement.
	SkipMidThreshold float64
	// SkipFullThreshold: FULL runs when the combined FAST/MID
	// confidence stays below this value.
	SkipFullThreshold float64
	// FastWeight and MidWeight blend the two confidences for the FULL
	// gate.
	FastWeight float64
	MidWeight  float64
	// DivergencePoints: a FAST/MID score gap beyond this always forces
	// FULL, regardless of confidence.
	DivergencePoints int
}

// DefaultTunables returns the escalation defaults.
func DefaultTunables() Tunables {
	return Tunables{
		SkipMidThreshold:  0.88,
		SkipFullThreshold: 0.90,
		FastWeight:        0.4,
		MidWeight:         0.6,
		DivergencePoints:  20,
	}
}

// TierRun is the record of one tier invocation.
type TierRun struct {
	// Result is the tier consensus.
	Result *scorer.Result
	// Verifiers lists the members that contributed a response
	// (including degraded ones).
	Verifiers []string
	// Duration is the tier wall time.
	Duration time.Duration
	// Degraded counts calls folded in as timeouts.
	Degraded int
	// Dropped counts calls excluded after outright errors.
	Dropped int
}

// Outcome is the full scheduler trace for one request.
type Outcome struct {
	Fast *TierRun
	Mid  *TierRun
	Full *TierRun
	// Skipped maps a tier to the reason it did not run.
	Skipped map[TierName]string
}

// Scheduler owns the three tiers and the escalation policy.
// Safe for concurrent use; tunables are hot-swappable.
type Scheduler struct {
	fast Tier
	mid  Tier
	full Tier

	mu       sync.RWMutex
	tunables Tunables
	scoring  scorer.Params

	// metrics
	tierRuns  map[TierName]*int64
	tierSkips map[TierName]*int64
	degraded  int64
	dropped   int64
}

// New assembles a scheduler from tier definitions. Tiers must be named
// fast, mid and full; zero timeouts get the defaults.
func New(tiers []Tier, tunables Tunables, scoring scorer.Params) *Scheduler {
	s := &Scheduler{
		tunables: tunables,
		scoring:  scoring,
		// A tier left unregistered stays a named, empty group: running it
		// yields a scoreless consensus instead of derailing escalation.
		fast: Tier{Name: TierFast, Timeout: DefaultFastTimeout},
		mid:  Tier{Name: TierMid, Timeout: DefaultMidTimeout},
		full: Tier{Name: TierFull, Timeout: DefaultFullTimeout},
		tierRuns: map[TierName]*int64{
			TierFast: new(int64), TierMid: new(int64), TierFull: new(int64),
		},
		tierSkips: map[TierName]*int64{
			TierMid: new(int64), TierFull: new(int64),
		},
	}

	for _, t := range tiers {
		switch t.Name {
		case TierFast:
			if t.Timeout <= 0 {
				t.Timeout = DefaultFastTimeout
			}
			s.fast = t
		case TierMid:
			if t.Timeout <= 0 {
				t.Timeout = DefaultMidTimeout
			}
			s.mid = t
		case TierFull:
			if t.Timeout <= 0 {
				t.Timeout = DefaultFullTimeout
			}
			s.full = t
		}
	}

	return s
}

// UpdateTunables swaps the escalation constants (hot reload).
func (s *Scheduler) UpdateTunables(t Tunables) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tunables = t
}

// UpdateScoring swaps the consensus scoring constants (hot reload).
func (s *Scheduler) UpdateScoring(p scorer.Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scoring = p
}

// UpdateTimeouts replaces the per-tier timeouts (hot reload). Zero or
// negative values leave the current timeout untouched.
func (s *Scheduler) UpdateTimeouts(fast, mid, full time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fast > 0 {
		s.fast.Timeout = fast
	}
	if mid > 0 {
		s.mid.Timeout = mid
	}
	if full > 0 {
		s.full.Timeout = full
	}
}

// Run executes the tier state machine for one claim. MID never starts
// before FAST's fan-in barrier completes; the escalation decision for
// each gate depends only on completed tier results.
func (s *Scheduler) Run(ctx context.Context, claimText string) *Outcome {
	outcome := &Outcome{Skipped: make(map[TierName]string)}

	s.mu.RLock()
	fast, mid, full := s.fast, s.mid, s.full
	tun := s.tunables
	s.mu.RUnlock()

	outcome.Fast = s.runTier(ctx, fast, claimText)

	fastRes := outcome.Fast.Result
	if fastRes.Confidence >= tun.SkipMidThreshold && fastRes.Agreement {
		reason := "fast tier confident with agreement"
		outcome.Skipped[TierMid] = reason
		outcome.Skipped[TierFull] = reason
		atomic.AddInt64(s.tierSkips[TierMid], 1)
		atomic.AddInt64(s.tierSkips[TierFull], 1)
		log.Debugf("scheduler: skipping mid+full, fast confidence=%.2f", fastRes.Confidence)
		return outcome
	}

	outcome.Mid = s.runTier(ctx, mid, claimText)
	midRes := outcome.Mid.Result

	if reason := fullGate(fastRes, midRes, tun); reason != "" {
		log.Debugf("scheduler: escalating to full tier: %s", reason)
		outcome.Full = s.runTier(ctx, full, claimText)
	} else {
		outcome.Skipped[TierFull] = "fast and mid tiers consistent and confident"
		atomic.AddInt64(s.tierSkips[TierFull], 1)
	}

	return outcome
}

// fullGate decides whether the FULL tier must run after MID. Returns
// the escalation reason, or empty to skip FULL.
func fullGate(fast, mid *scorer.Result, tun Tunables) string {
	combined := tun.FastWeight*fast.Confidence + tun.MidWeight*mid.Confidence
	if combined < tun.SkipFullThreshold {
		return "combined confidence below threshold"
	}
	if !fast.Agreement || !mid.Agreement {
		return "internal disagreement in fast or mid tier"
	}
	if fast.Score == nil || mid.Score == nil {
		// A tier without a usable score cannot rule out divergence;
		// the authoritative tier settles it.
		return "missing score in fast or mid tier"
	}
	// Material divergence always forces the authoritative tier;
	// confidence alone must not mask disagreement between tiers.
	if diff := *fast.Score - *mid.Score; diff > tun.DivergencePoints || -diff > tun.DivergencePoints {
		return "fast and mid scores diverge materially"
	}
	return ""
}

// callResult carries one verifier call outcome across the fan-in barrier.
type callResult struct {
	weighted *scorer.Weighted
	degraded bool
	dropped  bool
	name     string
}

// runTier invokes every member concurrently, racing each call against
// the tier timeout, and joins the results. One slow verifier never
// blocks the others, and the barrier completes within the tier timeout.
func (s *Scheduler) runTier(ctx context.Context, tier Tier, claimText string) *TierRun {
	start := time.Now()
	if counter, ok := s.tierRuns[tier.Name]; ok {
		atomic.AddInt64(counter, 1)
	}

	results := make(chan callResult, len(tier.Members))
	var wg sync.WaitGroup

	for _, member := range tier.Members {
		wg.Add(1)
		go func(d verifier.Descriptor) {
			defer wg.Done()
			results <- s.callWithTimeout(ctx, d, tier, claimText)
		}(member)
	}

	wg.Wait()
	close(results)

	run := &TierRun{}
	var weighted []scorer.Weighted
	for r := range results {
		if r.dropped {
			run.Dropped++
			continue
		}
		if r.degraded {
			run.Degraded++
		}
		weighted = append(weighted, *r.weighted)
		run.Verifiers = append(run.Verifiers, r.name)
	}

	atomic.AddInt64(&s.degraded, int64(run.Degraded))
	atomic.AddInt64(&s.dropped, int64(run.Dropped))

	s.mu.RLock()
	scoring := s.scoring
	s.mu.RUnlock()

	run.Result = scorer.Consensus(string(tier.Name), weighted, scoring)
	run.Duration = time.Since(start)

	log.WithFields(log.Fields{
		"tier":      tier.Name,
		"responses": len(weighted),
		"degraded":  run.Degraded,
		"dropped":   run.Dropped,
	}).Debug("tier barrier complete")

	return run
}

// callWithTimeout races one verifier call against the tier timeout.
// Timeout is terminal for the call (no retries) and synthesizes a
// degraded unverifiable response; an outright error drops the call.
func (s *Scheduler) callWithTimeout(ctx context.Context, d verifier.Descriptor, tier Tier, claimText string) callResult {
	name := d.Verifier.Name()

	callCtx, cancel := context.WithTimeout(ctx, tier.Timeout)
	defer cancel()

	type verifyOut struct {
		resp *verifier.Response
		err  error
	}
	ch := make(chan verifyOut, 1)
	go func() {
		resp, err := d.Verifier.Verify(callCtx, claimText)
		ch <- verifyOut{resp, err}
	}()

	timer := time.NewTimer(tier.Timeout)
	defer timer.Stop()

	select {
	case out := <-ch:
		if out.err != nil || out.resp == nil {
			if out.err != nil && callCtx.Err() == nil {
				log.Warnf("verifier %s failed, dropping from %s tier: %v", name, tier.Name, out.err)
				return callResult{dropped: true, name: name}
			}
			// Context expired mid-call: same as losing the race below.
			return degradedResult(name, d, tier)
		}
		return callResult{
			weighted: &scorer.Weighted{Response: out.resp, Weight: d.EffectiveWeight()},
			name:     name,
		}
	case <-timer.C:
		return degradedResult(name, d, tier)
	}
}

// degradedResult synthesizes the timeout response: a deliberate
// low-confidence "don't know" so aggregate confidence correctly drops.
func degradedResult(name string, d verifier.Descriptor, tier Tier) callResult {
	log.Warnf("verifier %s exceeded %s tier timeout %v, degrading", name, tier.Name, tier.Timeout)
	return callResult{
		weighted: &scorer.Weighted{
			Response: &verifier.Response{
				Verifier:   name,
				Verdict:    verifier.VerdictUnverifiable,
				Confidence: 25,
				TimedOut:   true,
				Latency:    tier.Timeout,
				LatencyMs:  tier.Timeout.Milliseconds(),
			},
			Weight: d.EffectiveWeight(),
		},
		degraded: true,
		name:     name,
	}
}

// GetMetrics returns scheduler statistics.
func (s *Scheduler) GetMetrics() map[string]interface{} {
	return map[string]interface{}{
		"fast_runs":  atomic.LoadInt64(s.tierRuns[TierFast]),
		"mid_runs":   atomic.LoadInt64(s.tierRuns[TierMid]),
		"full_runs":  atomic.LoadInt64(s.tierRuns[TierFull]),
		"mid_skips":  atomic.LoadInt64(s.tierSkips[TierMid]),
		"full_skips": atomic.LoadInt64(s.tierSkips[TierFull]),
		"degraded":   atomic.LoadInt64(&s.degraded),
		"dropped":    atomic.LoadInt64(&s.dropped),
	}
}
