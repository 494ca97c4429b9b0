// Copyright 2026 The veridict Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package main provides the entry point for the veridict server, an
// adaptive claim-verification service: claims are normalized, screened
// for personal statements, answered from a two-tier cache when
// possible, and otherwise checked by tiered verifier pools with
// escalation only when cheap tiers disagree or hesitate.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/veridict/veridict/internal/api"
	"github.com/veridict/veridict/internal/buildinfo"
	"github.com/veridict/veridict/internal/cache"
	"github.com/veridict/veridict/internal/config"
	"github.com/veridict/veridict/internal/embedding"
	"github.com/veridict/veridict/internal/logging"
	"github.com/veridict/veridict/internal/merge"
	"github.com/veridict/veridict/internal/pipeline"
	"github.com/veridict/veridict/internal/prefilter"
	"github.com/veridict/veridict/internal/scheduler"
	"github.com/veridict/veridict/internal/scorer"
	"github.com/veridict/veridict/internal/sources"
	"github.com/veridict/veridict/internal/verifier"
	"github.com/veridict/veridict/internal/watcher"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("veridict %s (commit %s, built %s)\n", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)
		return
	}

	// .env is optional; explicit environment wins over file values.
	if err := godotenv.Load(); err == nil {
		log.Debug("loaded environment from .env")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warnf("config file %s not found, using defaults", *configPath)
			cfg = config.DefaultConfig()
		} else {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	if err := logging.ConfigureLogOutput(cfg.LoggingToFile, cfg.LogsMaxTotalSizeMB); err != nil {
		log.Fatalf("failed to configure logging: %v", err)
	}

	log.Infof("starting veridict %s (commit %s)", buildinfo.Version, buildinfo.Commit)

	tierDefs, err := verifier.LoadRegistry(cfg.VerifiersFile)
	if err != nil {
		log.Fatalf("failed to load verifiers: %v", err)
	}

	sched := buildScheduler(tierDefs, cfg.Tunables)

	cacheService := cache.NewService(cache.ServiceConfig{
		ExactTTL:            cfg.Cache.ExactTTL(),
		ExactMaxEntries:     cfg.Cache.ExactMaxEntries,
		SemanticTTL:         cfg.Cache.SemanticTTL(),
		SemanticMaxEntries:  cfg.Cache.SemanticMaxEntries,
		SimilarityThreshold: cfg.Tunables.SimilarityThreshold,
		RewordThreshold:     cfg.Tunables.RewordThreshold,
		SweepInterval:       cfg.Cache.SweepInterval(),
	})
	cacheService.Start()
	defer cacheService.Stop()

	embedder := embedding.NewHTTPProvider(cfg.Embedding)
	if embedder.Enabled() {
		log.Infof("semantic cache enabled via %s", cfg.Embedding.BaseURL)
	} else {
		log.Info("no embedding provider configured, semantic cache disabled")
	}

	searcher := sources.NewHTTP(cfg.Search)
	if !searcher.Enabled() {
		log.Info("no search provider configured, responses will carry no sources")
	}

	pf := prefilter.New()
	mergeParams := merge.DefaultParams()
	mergeParams.DeviationPoints = cfg.Tunables.DeviationPoints

	pipe := pipeline.New(pf, cacheService, sched, embedder, searcher, pipeline.Options{
		Merge: mergeParams,
	})

	cfgWatcher := watcher.New(*configPath, pipe)
	if err := cfgWatcher.Start(); err != nil {
		log.Warnf("config watcher unavailable, tunables fixed for this run: %v", err)
	} else {
		defer cfgWatcher.Stop()
	}

	server := api.New(pipe, cacheService, sched, pf, cfg.Debug)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Host, cfg.Port)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Infof("received %s, shutting down", sig)
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server failed: %v", err)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown incomplete: %v", err)
	}
	log.Info("veridict stopped")
}

// buildScheduler maps the loaded tier definitions onto the scheduler,
// applying configured timeouts where the registry left them unset.
func buildScheduler(defs []verifier.TierDef, tun config.Tunables) *scheduler.Scheduler {
	fallback := map[string]time.Duration{
		string(scheduler.TierFast): time.Duration(tun.FastTimeoutMs) * time.Millisecond,
		string(scheduler.TierMid):  time.Duration(tun.MidTimeoutMs) * time.Millisecond,
		string(scheduler.TierFull): time.Duration(tun.FullTimeoutMs) * time.Millisecond,
	}

	tiers := make([]scheduler.Tier, 0, len(defs))
	for _, def := range defs {
		timeout := def.Timeout
		if timeout <= 0 {
			timeout = fallback[def.Name]
		}
		tiers = append(tiers, scheduler.Tier{
			Name:    scheduler.TierName(def.Name),
			Timeout: timeout,
			Members: def.Members,
		})
	}

	tunables := scheduler.Tunables{
		SkipMidThreshold:  tun.SkipMidThreshold,
		SkipFullThreshold: tun.SkipFullThreshold,
		FastWeight:        0.4,
		MidWeight:         0.6,
		DivergencePoints:  tun.DivergencePoints,
	}

	scoring := scorer.DefaultParams()
	scoring.AgreementSpread = tun.AgreementSpread

	return scheduler.New(tiers, tunables, scoring)
}
