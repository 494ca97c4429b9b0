// Copyright 2026 The veridict Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package watcher hot-reloads the pipeline tunables when the config
// file changes on disk. Only tunables are applied live; structural
// settings (port, verifier topology) still require a restart.
package watcher

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"github.com/veridict/veridict/internal/config"
)

// Applier receives the reloaded tunables.
type Applier interface {
	ApplyTunables(t config.Tunables)
}

// Watcher monitors one config file for changes.
type Watcher struct {
	configPath string
	applier    Applier

	watcher *fsnotify.Watcher
	stop    chan struct{}
	mu      sync.Mutex
}

// New creates a watcher for the given config file.
func New(configPath string, applier Applier) *Watcher {
	return &Watcher{
		configPath: configPath,
		applier:    applier,
		stop:       make(chan struct{}),
	}
}

// Start begins watching. The parent directory is watched rather than
// the file itself so editors that rename-replace still trigger reloads.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(w.configPath)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return err
	}

	w.mu.Lock()
	w.watcher = fsw
	w.mu.Unlock()

	go w.loop(fsw)

	log.Infof("watching %s for tunable changes", w.configPath)
	return nil
}

func (w *Watcher) loop(fsw *fsnotify.Watcher) {
	base := filepath.Base(w.configPath)
	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				// Debounce rename-replace sequences from editors.
				time.Sleep(100 * time.Millisecond)
				w.reload()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			log.Errorf("config watcher error: %v", err)
		case <-w.stop:
			return
		}
	}
}

// reload re-parses the config file and pushes the tunables. A malformed
// file keeps the previous tunables in effect.
func (w *Watcher) reload() {
	cfg, err := config.LoadConfig(w.configPath)
	if err != nil {
		log.Errorf("config reload failed, keeping previous tunables: %v", err)
		return
	}
	w.applier.ApplyTunables(cfg.Tunables)
	log.Infof("config reloaded from %s", w.configPath)
}

// Stop halts the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher == nil {
		return
	}
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
	w.watcher.Close()
	w.watcher = nil
}
