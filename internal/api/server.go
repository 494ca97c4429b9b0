// Copyright 2026 The veridict Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package api exposes the claim-check pipeline over HTTP. The surface
// is deliberately small: one check endpoint, cache operations, stats
// and a health probe.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/veridict/veridict/internal/cache"
	"github.com/veridict/veridict/internal/pipeline"
	"github.com/veridict/veridict/internal/prefilter"
	"github.com/veridict/veridict/internal/scheduler"
)

// Server wires the pipeline behind a gin engine.
type Server struct {
	pipeline  *pipeline.Pipeline
	cache     *cache.Service
	scheduler *scheduler.Scheduler
	prefilter *prefilter.Filter

	engine *gin.Engine
	http   *http.Server
}

// CheckRequest is the body of POST /v1/check.
type CheckRequest struct {
	Claim string `json:"claim"`
}

// New builds the server and registers routes.
func New(p *pipeline.Pipeline, cs *cache.Service, sched *scheduler.Scheduler, pf *prefilter.Filter, debug bool) *Server {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		pipeline:  p,
		cache:     cs,
		scheduler: sched,
		prefilter: pf,
		engine:    gin.New(),
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(requestIDMiddleware())

	s.engine.GET("/health", s.handleHealth)

	v1 := s.engine.Group("/v1")
	{
		v1.POST("/check", s.handleCheck)
		v1.GET("/cache/stats", s.handleCacheStats)
		v1.POST("/cache/clear", s.handleCacheClear)
		v1.GET("/stats", s.handleStats)
	}

	return s
}

// requestIDMiddleware tags every request with an ID, echoing a
// caller-supplied X-Request-ID when present.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()[:8]
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// Handler returns the underlying HTTP handler, used by tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Start listens on the given host and port until Shutdown is called.
func (s *Server) Start(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	s.http = &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}

	log.Infof("veridict API listening on %s", addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleCheck(c *gin.Context) {
	var req CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Claim) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "claim must not be empty"})
		return
	}

	reqID, _ := c.Get("request_id")
	logger := log.WithField("request_id", fmt.Sprint(reqID))

	result, err := s.pipeline.Check(c.Request.Context(), req.Claim)
	if err != nil {
		logger.Errorf("check failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.cache.Stats())
}

func (s *Server) handleCacheClear(c *gin.Context) {
	s.cache.Clear()
	log.Info("cache cleared via API")
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"pipeline":  s.pipeline.GetMetrics(),
		"scheduler": s.scheduler.GetMetrics(),
		"prefilter": s.prefilter.GetMetrics(),
		"cache":     s.cache.Stats(),
	})
}
