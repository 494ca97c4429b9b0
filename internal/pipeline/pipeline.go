// Copyright 2026 The veridict Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package pipeline orchestrates a claim check end to end: normalize,
// personal-statement prefilter, exact cache, speculative embedding and
// source search, semantic cache, tiered verification, merge, and cache
// write-back. Every phase degrades rather than fails: a dead embedding
// server means no semantic matching, a dead search provider means no
// sources, and a full verification pass still answers from whatever
// tiers produced usable results.
package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/veridict/veridict/internal/cache"
	"github.com/veridict/veridict/internal/claim"
	"github.com/veridict/veridict/internal/config"
	"github.com/veridict/veridict/internal/embedding"
	"github.com/veridict/veridict/internal/merge"
	"github.com/veridict/veridict/internal/prefilter"
	"github.com/veridict/veridict/internal/scheduler"
	"github.com/veridict/veridict/internal/scorer"
	"github.com/veridict/veridict/internal/sources"
	"github.com/veridict/veridict/internal/util"
)

// Mode distinguishes the two answer shapes.
const (
	ModePersonal  = "personal"
	ModeFactCheck = "fact_check"
)

// Timings records per-phase latency for one check, in milliseconds.
type Timings struct {
	PrefilterMs int64 `json:"prefilter_ms"`
	CacheMs     int64 `json:"cache_ms"`
	EmbeddingMs int64 `json:"embedding_ms"`
	VerifyMs    int64 `json:"verify_ms"`
	TotalMs     int64 `json:"total_ms"`
}

// Result is the full answer for one claim check.
type Result struct {
	// ID is the request identifier.
	ID string `json:"id"`
	// Input is the claim exactly as received.
	Input string `json:"input"`
	// Mode is "personal" or "fact_check".
	Mode string `json:"mode"`

	// Score is the 0-100 truthfulness score; nil when no tier produced one
	// or the claim was personal.
	Score *int `json:"score"`
	// Confidence is the aggregate confidence (0.0-1.0).
	Confidence float64 `json:"confidence"`
	// Label buckets the score: TRUE, MIXED, FALSE or UNKNOWN.
	Label merge.Label `json:"label"`
	// SourceTier names where the score came from.
	SourceTier string `json:"source_tier,omitempty"`

	// Rule and Reason describe the prefilter match in personal mode.
	Rule   string `json:"rule,omitempty"`
	Reason string `json:"reason,omitempty"`

	// FromCache reports whether the answer was served from cache, and
	// CacheTier which store answered ("exact" or "semantic").
	FromCache bool   `json:"from_cache"`
	CacheTier string `json:"cache_tier,omitempty"`
	// Similarity is the cosine similarity of a semantic hit.
	Similarity float64 `json:"similarity,omitempty"`
	// MatchedClaim is the stored claim a semantic hit matched against.
	MatchedClaim string `json:"matched_claim,omitempty"`

	// TierResults holds the per-tier consensus details for a fresh
	// verification, in execution order.
	TierResults []*scorer.Result `json:"tier_results,omitempty"`
	// SkippedTiers maps a tier name to the reason it did not run.
	SkippedTiers map[string]string `json:"skipped_tiers,omitempty"`

	// Sources lists supporting evidence, possibly empty.
	Sources []sources.Source `json:"sources"`
	// SourcesProvider names which provider answered the source search;
	// "timeout" when the search missed its deadline.
	SourcesProvider string `json:"sources_provider,omitempty"`
	// SearchTimeMs is how long the source search took.
	SearchTimeMs int64 `json:"search_time_ms,omitempty"`

	Timings   Timings   `json:"timings"`
	Timestamp time.Time `json:"timestamp"`
}

// cachedResult is the payload written to both cache stores. Decode
// failures on read are treated as a miss, never an error.
type cachedResult struct {
	Score      *int             `json:"score"`
	Confidence float64          `json:"confidence"`
	Label      merge.Label      `json:"label"`
	SourceTier string           `json:"source_tier"`
	Sources    []sources.Source `json:"sources,omitempty"`
	CachedAt   time.Time        `json:"cached_at"`
}

// Options holds pipeline construction parameters beyond the
// collaborating services.
type Options struct {
	// SemanticWait bounds how long the semantic lookup waits for the
	// speculative embedding before giving up and going straight to
	// verification. Default 750ms.
	SemanticWait time.Duration
	// Merge holds the tier-merge constants.
	Merge merge.Params
}

// Pipeline wires the collaborating services for claim checking.
// Safe for concurrent use.
type Pipeline struct {
	prefilter *prefilter.Filter
	cache     *cache.Service
	scheduler *scheduler.Scheduler
	embedder  embedding.Provider
	searcher  sources.Provider

	opts atomicOptions

	checks       int64
	personal     int64
	exactHits    int64
	semanticHits int64
	verified     int64
}

// atomicOptions guards the hot-reloadable options.
type atomicOptions struct {
	v atomic.Value // Options
}

func (a *atomicOptions) load() Options { return a.v.Load().(Options) }
func (a *atomicOptions) store(o Options) { a.v.Store(o) }

// New assembles the pipeline. The embedder and searcher may be disabled
// providers; the pipeline degrades around them.
func New(pf *prefilter.Filter, cs *cache.Service, sched *scheduler.Scheduler, emb embedding.Provider, search sources.Provider, opts Options) *Pipeline {
	if opts.SemanticWait <= 0 {
		opts.SemanticWait = 750 * time.Millisecond
	}
	if opts.Merge == (merge.Params{}) {
		opts.Merge = merge.DefaultParams()
	}

	p := &Pipeline{
		prefilter: pf,
		cache:     cs,
		scheduler: sched,
		embedder:  emb,
		searcher:  search,
	}
	p.opts.store(opts)
	return p
}

// ApplyTunables pushes hot-reloaded constants into the scheduler, the
// semantic cache and the merge step.
func (p *Pipeline) ApplyTunables(t config.Tunables) {
	p.scheduler.UpdateTunables(scheduler.Tunables{
		SkipMidThreshold:  t.SkipMidThreshold,
		SkipFullThreshold: t.SkipFullThreshold,
		FastWeight:        0.4,
		MidWeight:         0.6,
		DivergencePoints:  t.DivergencePoints,
	})
	p.scheduler.UpdateTimeouts(
		time.Duration(t.FastTimeoutMs)*time.Millisecond,
		time.Duration(t.MidTimeoutMs)*time.Millisecond,
		time.Duration(t.FullTimeoutMs)*time.Millisecond,
	)

	scoring := scorer.DefaultParams()
	scoring.AgreementSpread = t.AgreementSpread
	p.scheduler.UpdateScoring(scoring)

	p.cache.Semantic.SetThreshold(t.SimilarityThreshold)
	p.cache.Semantic.SetRewordThreshold(t.RewordThreshold)

	opts := p.opts.load()
	opts.Merge.DeviationPoints = t.DeviationPoints
	p.opts.store(opts)

	log.Info("pipeline tunables reloaded")
}

// embedFuture is the speculative embedding computation. At most one
// embedding call runs per check; both the semantic lookup and the cache
// write-back await the same future.
type embedFuture struct {
	done chan struct{}
	vec  []float32
}

// launchEmbed starts the embedding call in the background. Errors
// resolve the future with a nil vector.
func (p *Pipeline) launchEmbed(ctx context.Context, text string) *embedFuture {
	f := &embedFuture{done: make(chan struct{})}
	if p.embedder == nil || !p.embedder.Enabled() {
		close(f.done)
		return f
	}

	go func() {
		defer close(f.done)
		vec, err := p.embedder.Embed(ctx, text)
		if err != nil {
			log.Debugf("embedding unavailable: %v", err)
			return
		}
		f.vec = vec
	}()
	return f
}

// await blocks up to wait for the embedding, returning the vector (nil
// on failure) and whether the future resolved in time.
func (f *embedFuture) await(wait time.Duration) ([]float32, bool) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-f.done:
		return f.vec, true
	case <-timer.C:
		return nil, false
	}
}

// block waits for the future without a bound. The embedding call itself
// is deadline-bounded, so this resolves promptly.
func (f *embedFuture) block() []float32 {
	<-f.done
	return f.vec
}

// launchSearch starts the speculative source search. The provider
// swallows its own timeouts, so the channel always resolves.
func (p *Pipeline) launchSearch(ctx context.Context, text string) <-chan *sources.SearchResult {
	ch := make(chan *sources.SearchResult, 1)
	if p.searcher == nil || !p.searcher.Enabled() {
		ch <- nil
		return ch
	}
	go func() {
		found, err := p.searcher.Search(ctx, text)
		if err != nil {
			log.Debugf("source search unavailable: %v", err)
			ch <- nil
			return
		}
		ch <- found
	}()
	return ch
}

// Check runs the full pipeline for one claim.
func (p *Pipeline) Check(ctx context.Context, text string) (*Result, error) {
	start := time.Now()
	atomic.AddInt64(&p.checks, 1)

	cl := claim.New(text)
	if cl.Normalized == "" {
		return nil, fmt.Errorf("claim text is empty")
	}

	result := &Result{
		ID:        uuid.NewString(),
		Input:     text,
		Mode:      ModeFactCheck,
		Label:     merge.LabelUnknown,
		Sources:   []sources.Source{},
		Timestamp: start,
	}

	// Phase 1: personal-statement prefilter. A match answers immediately
	// with no caching and no verification.
	pre := p.prefilter.Evaluate(cl.Normalized)
	result.Timings.PrefilterMs = pre.Duration.Milliseconds()
	if pre.IsPersonal {
		atomic.AddInt64(&p.personal, 1)
		result.Mode = ModePersonal
		result.Rule = pre.Rule
		result.Reason = pre.Reason
		result.Confidence = pre.Confidence
		result.Timings.TotalMs = time.Since(start).Milliseconds()
		return result, nil
	}

	// Phase 2: exact cache, keyed by the normalized fingerprint.
	cacheStart := time.Now()
	if payload, ok := p.cache.Exact.Get(cl.Fingerprint); ok {
		if cached := decodeCached(payload); cached != nil {
			atomic.AddInt64(&p.exactHits, 1)
			fillFromCache(result, cached, "exact")
			result.Timings.CacheMs = time.Since(cacheStart).Milliseconds()
			result.Timings.TotalMs = time.Since(start).Milliseconds()
			return result, nil
		}
		log.Warn("exact cache payload undecodable, treating as miss")
	}

	// Phase 3: speculative work. The embedding feeds the semantic lookup
	// and the eventual write-back; the source search resolves while the
	// verifiers run.
	embedStart := time.Now()
	embedF := p.launchEmbed(ctx, cl.Normalized)
	searchCh := p.launchSearch(ctx, cl.Normalized)

	// Phase 4: semantic cache, bounded by SemanticWait so a slow
	// embedding server cannot stall the check.
	opts := p.opts.load()
	if vec, ok := embedF.await(opts.SemanticWait); ok && vec != nil {
		cl.Embedding = vec
		result.Timings.EmbeddingMs = time.Since(embedStart).Milliseconds()
		if match, ok := p.cache.Semantic.Lookup(vec); ok {
			if cached := decodeCached(match.Payload); cached != nil {
				atomic.AddInt64(&p.semanticHits, 1)
				fillFromCache(result, cached, "semantic")
				result.Similarity = match.Similarity
				result.MatchedClaim = match.Text
				result.Timings.CacheMs = time.Since(cacheStart).Milliseconds()
				result.Timings.TotalMs = time.Since(start).Milliseconds()
				return result, nil
			}
			log.Warn("semantic cache payload undecodable, treating as miss")
		}
	}
	result.Timings.CacheMs = time.Since(cacheStart).Milliseconds()

	// Phase 5: tiered verification.
	verifyStart := time.Now()
	atomic.AddInt64(&p.verified, 1)
	outcome := p.scheduler.Run(ctx, cl.Raw)
	result.Timings.VerifyMs = time.Since(verifyStart).Milliseconds()

	var fastRes, midRes, fullRes *scorer.Result
	if outcome.Fast != nil {
		fastRes = outcome.Fast.Result
		result.TierResults = append(result.TierResults, fastRes)
	}
	if outcome.Mid != nil {
		midRes = outcome.Mid.Result
		result.TierResults = append(result.TierResults, midRes)
	}
	if outcome.Full != nil {
		fullRes = outcome.Full.Result
		result.TierResults = append(result.TierResults, fullRes)
	}
	if len(outcome.Skipped) > 0 {
		result.SkippedTiers = make(map[string]string, len(outcome.Skipped))
		for tier, reason := range outcome.Skipped {
			result.SkippedTiers[string(tier)] = reason
		}
	}

	final := merge.Merge(fastRes, midRes, fullRes, opts.Merge)
	result.Score = final.Score
	result.Confidence = final.Confidence
	result.Label = final.Label
	result.SourceTier = final.SourceTier

	// Phase 6: join the speculative search. Sources stay an empty list,
	// never null, when the search found nothing.
	if found := <-searchCh; found != nil {
		if len(found.Sources) > 0 {
			result.Sources = found.Sources
		}
		result.SourcesProvider = found.Provider
		result.SearchTimeMs = found.SearchTimeMs
	}

	// Phase 7: write-back. Unusable results (no score) are not cached so
	// a transient verifier outage cannot poison either store.
	if final.Score != nil {
		payload := encodeCached(&cachedResult{
			Score:      final.Score,
			Confidence: final.Confidence,
			Label:      final.Label,
			SourceTier: final.SourceTier,
			Sources:    result.Sources,
			CachedAt:   time.Now(),
		})
		if payload != nil {
			p.cache.Exact.Set(cl.Fingerprint, payload)
			if vec := embedF.block(); vec != nil {
				p.cache.Semantic.Store(cl.Normalized, vec, payload)
			}
		}
	}

	result.Timings.TotalMs = time.Since(start).Milliseconds()

	log.WithFields(log.Fields{
		"id":     result.ID,
		"claim":  util.Truncate(cl.Normalized, 60),
		"mode":   result.Mode,
		"label":  result.Label,
		"source": result.SourceTier,
		"ms":     result.Timings.TotalMs,
	}).Info("claim check complete")

	return result, nil
}

// fillFromCache populates a result from a decoded cache payload.
func fillFromCache(result *Result, cached *cachedResult, tier string) {
	result.Score = cached.Score
	result.Confidence = cached.Confidence
	result.Label = cached.Label
	result.SourceTier = cached.SourceTier
	if len(cached.Sources) > 0 {
		result.Sources = cached.Sources
	}
	result.FromCache = true
	result.CacheTier = tier
}

// encodeCached serializes a payload for the cache stores.
func encodeCached(c *cachedResult) []byte {
	data, err := json.Marshal(c)
	if err != nil {
		log.Warnf("failed to encode cache payload: %v", err)
		return nil
	}
	return data
}

// decodeCached deserializes a cache payload, nil when unusable.
func decodeCached(data []byte) *cachedResult {
	var c cachedResult
	if err := json.Unmarshal(data, &c); err != nil {
		return nil
	}
	return &c
}

// GetMetrics returns pipeline counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return map[string]interface{}{
		"checks":        atomic.LoadInt64(&p.checks),
		"personal":      atomic.LoadInt64(&p.personal),
		"exact_hits":    atomic.LoadInt64(&p.exactHits),
		"semantic_hits": atomic.LoadInt64(&p.semanticHits),
		"verified":      atomic.LoadInt64(&p.verified),
	}
}
