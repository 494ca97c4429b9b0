// Copyright 2026 The veridict Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cache

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/veridict/veridict/internal/embedding"
)

// semanticEntry is one embedding-keyed cache record.
type semanticEntry struct {
	text      string
	vector    []float32
	payload   []byte
	createdAt time.Time
}

// Match is a successful semantic lookup, carrying the achieved
// similarity for observability.
type Match struct {
	Payload    []byte
	Similarity float64
	Text       string
}

// SemanticCache stores encoded results keyed by embedding vector and
// serves near-match lookups by cosine similarity. Lookup scans the
// whole store; the store is capacity-bounded (default 1000 entries,
// oldest evicted first) so the scan stays cheap.
type SemanticCache struct {
	threshold float64
	// rewordThreshold is the similarity above which a stored entry is
	// treated as the same claim reworded and updated in place.
	rewordThreshold float64
	ttl             time.Duration
	maxEntries      int

	entries []*semanticEntry

	mu      sync.RWMutex
	metrics Metrics

	now func() time.Time
}

// NewSemantic creates a semantic near-match cache. Zero values fall
// back to the defaults: threshold 0.93, reword threshold 0.98, TTL 24h,
// 1000 entries.
func NewSemantic(threshold, rewordThreshold float64, ttl time.Duration, maxEntries int) *SemanticCache {
	if threshold <= 0 {
		threshold = 0.93
	}
	if rewordThreshold <= 0 {
		rewordThreshold = 0.98
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if maxEntries <= 0 {
		maxEntries = 1000
	}

	return &SemanticCache{
		threshold:       threshold,
		rewordThreshold: rewordThreshold,
		ttl:             ttl,
		maxEntries:      maxEntries,
		now:             time.Now,
	}
}

// Lookup scans for the unexpired entry with the highest cosine
// similarity to the query vector, accepting it only at or above the
// threshold (boundary inclusive). Ties break toward the higher
// similarity, not recency. A nil query vector always misses.
func (c *SemanticCache) Lookup(vector []float32) (*Match, bool) {
	if len(vector) == 0 {
		return nil, false
	}

	cutoff := c.now().Add(-c.ttl)

	c.mu.RLock()
	var best *semanticEntry
	var bestSim float64
	for _, entry := range c.entries {
		if !entry.createdAt.After(cutoff) {
			continue
		}
		sim := embedding.CosineSimilarity(vector, entry.vector)
		if sim >= c.threshold && sim > bestSim {
			best = entry
			bestSim = sim
		}
	}
	c.mu.RUnlock()

	c.mu.Lock()
	if best == nil {
		c.metrics.Misses++
		c.mu.Unlock()
		return nil, false
	}
	c.metrics.Hits++
	c.mu.Unlock()

	return &Match{
		Payload:    best.payload,
		Similarity: bestSim,
		Text:       best.text,
	}, true
}

// Store adds a result under its embedding vector. If an existing entry
// is more similar than the reword threshold, it is updated in place
// (same claim, reworded) rather than duplicated. Oldest entries are
// evicted when the store exceeds its capacity.
func (c *SemanticCache) Store(text string, vector []float32, payload []byte) {
	if len(vector) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Reword check against the most similar existing entry.
	var best *semanticEntry
	var bestSim float64
	for _, entry := range c.entries {
		sim := embedding.CosineSimilarity(vector, entry.vector)
		if sim > bestSim {
			best = entry
			bestSim = sim
		}
	}
	if best != nil && bestSim > c.rewordThreshold {
		best.text = text
		best.vector = vector
		best.payload = payload
		best.createdAt = c.now()
		log.Debugf("semantic cache updated reworded entry, similarity=%.4f", bestSim)
		return
	}

	c.entries = append(c.entries, &semanticEntry{
		text:      text,
		vector:    vector,
		payload:   payload,
		createdAt: c.now(),
	})

	for len(c.entries) > c.maxEntries {
		c.evictOldestLocked()
	}
}

// evictOldestLocked removes the entry with the earliest timestamp.
// Must be called with the lock held.
func (c *SemanticCache) evictOldestLocked() {
	if len(c.entries) == 0 {
		return
	}

	oldest := 0
	for i, entry := range c.entries {
		if entry.createdAt.Before(c.entries[oldest].createdAt) {
			oldest = i
		}
	}

	c.entries = append(c.entries[:oldest], c.entries[oldest+1:]...)
	c.metrics.Evictions++
}

// Sweep removes all expired entries and returns how many were removed.
func (c *SemanticCache) Sweep() int {
	cutoff := c.now().Add(-c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.entries[:0]
	removed := 0
	for _, entry := range c.entries {
		if entry.createdAt.After(cutoff) {
			kept = append(kept, entry)
		} else {
			removed++
		}
	}
	c.entries = kept
	c.metrics.Expired += int64(removed)

	return removed
}

// SetThreshold updates the similarity threshold (hot-reloadable).
func (c *SemanticCache) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.threshold = threshold
}

// SetRewordThreshold updates the update-in-place threshold (hot-reloadable).
func (c *SemanticCache) SetRewordThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rewordThreshold = threshold
}

// Len returns the current entry count.
func (c *SemanticCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes all entries.
func (c *SemanticCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
}

// Stats returns a snapshot of the store metrics.
func (c *SemanticCache) Stats() Metrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m := c.metrics
	m.Size = len(c.entries)
	return m
}
