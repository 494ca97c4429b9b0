// Copyright 2026 The veridict Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cache

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Service bundles the exact and semantic stores behind one lifecycle.
// It is constructed at process start and injected into the pipeline;
// both stores are safe for concurrent use. A background sweeper removes
// expired entries so lookups stay cheap.
type Service struct {
	Exact    *ExactCache
	Semantic *SemanticCache

	sweepInterval time.Duration

	cancel  context.CancelFunc
	done    chan struct{}
	startMu sync.Mutex
}

// ServiceConfig holds construction parameters for the cache service.
type ServiceConfig struct {
	// ExactTTL is the exact-store entry lifetime. Default 10 minutes.
	ExactTTL time.Duration
	// ExactMaxEntries bounds the exact store. Default 5000.
	ExactMaxEntries int
	// SemanticTTL is the semantic-store entry lifetime. Default 24 hours.
	SemanticTTL time.Duration
	// SemanticMaxEntries bounds the semantic store. Default 1000.
	SemanticMaxEntries int
	// SimilarityThreshold is the minimum cosine similarity for a
	// semantic hit. Default 0.93.
	SimilarityThreshold float64
	// RewordThreshold is the similarity above which a semantic write
	// updates an existing entry in place. Default 0.98.
	RewordThreshold float64
	// SweepInterval is how often expired entries are swept. Default 1 minute.
	SweepInterval time.Duration
}

// NewService creates the two cache stores with the given configuration.
func NewService(cfg ServiceConfig) *Service {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}

	return &Service{
		Exact:         NewExact(cfg.ExactTTL, cfg.ExactMaxEntries),
		Semantic:      NewSemantic(cfg.SimilarityThreshold, cfg.RewordThreshold, cfg.SemanticTTL, cfg.SemanticMaxEntries),
		sweepInterval: cfg.SweepInterval,
	}
}

// Start launches the periodic sweeper. Safe to call once.
func (s *Service) Start() {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				exact := s.Exact.Sweep()
				semantic := s.Semantic.Sweep()
				if exact+semantic > 0 {
					log.Debugf("cache sweep removed %d exact, %d semantic entries", exact, semantic)
				}
			}
		}
	}()
}

// Stop halts the sweeper and waits for it to exit.
func (s *Service) Stop() {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
}

// Clear empties both stores. Exposed for operational use; it does not
// alter scoring semantics.
func (s *Service) Clear() {
	s.Exact.Clear()
	s.Semantic.Clear()
}

// Stats returns entry counts and hit/miss counters for both stores.
func (s *Service) Stats() map[string]interface{} {
	return map[string]interface{}{
		"exact":    s.Exact.Stats(),
		"semantic": s.Semantic.Stats(),
	}
}
