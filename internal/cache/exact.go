// Copyright 2026 The veridict Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cache provides the two-tier result cache for the verification
// pipeline: an exact store keyed by content fingerprint with a short TTL,
// and a semantic store keyed by embedding similarity with a long TTL.
// Payloads are opaque encoded bytes; a payload the caller cannot decode
// is treated as a miss, never as an error.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// exactEntry is one fingerprint-keyed cache record.
type exactEntry struct {
	key       string
	payload   []byte
	createdAt time.Time
	element   *list.Element
}

// ExactCache maps content fingerprints to encoded pipeline results.
// Entries expire after a fixed TTL; expired entries are lazily evicted
// on lookup and removed in bulk by Sweep. When the entry count exceeds
// the bound, the oldest entries are evicted first.
type ExactCache struct {
	ttl        time.Duration
	maxEntries int

	entries map[string]*exactEntry
	// order tracks insertion order, oldest at the back.
	order *list.List

	mu      sync.RWMutex
	metrics Metrics

	// now is replaceable in tests.
	now func() time.Time
}

// Metrics tracks per-store cache statistics.
type Metrics struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Expired   int64 `json:"expired"`
	Size      int   `json:"size"`
}

// NewExact creates an exact-match cache. Zero or negative ttl and
// maxEntries fall back to the defaults (10 minutes, 5000 entries).
func NewExact(ttl time.Duration, maxEntries int) *ExactCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 5000
	}

	return &ExactCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]*exactEntry),
		order:      list.New(),
		now:        time.Now,
	}
}

// Get returns the payload for the fingerprint if present and unexpired.
// An expired entry is evicted on the spot and reported as a miss.
func (c *ExactCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.metrics.Misses++
		return nil, false
	}

	if c.now().Sub(entry.createdAt) >= c.ttl {
		c.removeLocked(entry)
		c.metrics.Expired++
		c.metrics.Misses++
		return nil, false
	}

	c.metrics.Hits++
	return entry.payload, true
}

// Set stores the payload under the fingerprint, replacing any previous
// entry. Evicts the oldest entries when over capacity.
func (c *ExactCache) Set(key string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok {
		c.removeLocked(existing)
	}

	entry := &exactEntry{
		key:       key,
		payload:   payload,
		createdAt: c.now(),
	}
	entry.element = c.order.PushFront(entry)
	c.entries[key] = entry

	for len(c.entries) > c.maxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest.Value.(*exactEntry))
		c.metrics.Evictions++
	}
}

// removeLocked unlinks an entry. Must be called with the lock held.
func (c *ExactCache) removeLocked(entry *exactEntry) {
	delete(c.entries, entry.key)
	if entry.element != nil {
		c.order.Remove(entry.element)
		entry.element = nil
	}
}

// Sweep removes all expired entries and returns how many were removed.
// It collects expired keys under a read lock first so concurrent
// lookups are not stalled while the store is scanned.
func (c *ExactCache) Sweep() int {
	cutoff := c.now().Add(-c.ttl)

	c.mu.RLock()
	var expired []string
	for key, entry := range c.entries {
		if !entry.createdAt.After(cutoff) {
			expired = append(expired, key)
		}
	}
	c.mu.RUnlock()

	if len(expired) == 0 {
		return 0
	}

	removed := 0
	c.mu.Lock()
	for _, key := range expired {
		entry, ok := c.entries[key]
		// Re-check: the entry may have been replaced since the scan.
		if ok && !entry.createdAt.After(cutoff) {
			c.removeLocked(entry)
			removed++
		}
	}
	c.metrics.Expired += int64(removed)
	c.mu.Unlock()

	return removed
}

// Len returns the current entry count.
func (c *ExactCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes all entries.
func (c *ExactCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*exactEntry)
	c.order = list.New()
}

// Stats returns a snapshot of the store metrics.
func (c *ExactCache) Stats() Metrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m := c.metrics
	m.Size = len(c.entries)
	return m
}
