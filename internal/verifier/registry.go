// Copyright 2026 The veridict Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package verifier

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	log "github.com/sirupsen/logrus"
)

// TierDef is a named verifier group loaded from the verifiers file.
// The scheduler consumes these in declaration order.
type TierDef struct {
	Name    string
	Timeout time.Duration
	Members []Descriptor
}

// registryFile is the on-disk layout of verifiers.yaml.
type registryFile struct {
	Verifiers []HTTPVerifierConfig `yaml:"verifiers"`
	Tiers     []struct {
		Name      string `yaml:"name"`
		TimeoutMs int    `yaml:"timeout-ms"`
		Members   []struct {
			Verifier string  `yaml:"verifier"`
			Weight   float64 `yaml:"weight"`
		} `yaml:"members"`
	} `yaml:"tiers"`
}

// LoadRegistry reads a verifiers.yaml file and assembles the tier
// definitions. Every tier member must reference a declared verifier.
func LoadRegistry(path string) ([]TierDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read verifiers file: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse verifiers file: %w", err)
	}
	if len(file.Verifiers) == 0 {
		return nil, fmt.Errorf("no verifiers declared in %s", path)
	}
	if len(file.Tiers) == 0 {
		return nil, fmt.Errorf("no tiers declared in %s", path)
	}

	byName := make(map[string]Verifier, len(file.Verifiers))
	for _, cfg := range file.Verifiers {
		v, err := NewHTTPVerifier(cfg)
		if err != nil {
			return nil, err
		}
		if _, dup := byName[cfg.Name]; dup {
			return nil, fmt.Errorf("duplicate verifier name %q", cfg.Name)
		}
		byName[cfg.Name] = v
	}

	// The scheduler's state machine needs all three tiers; a partial or
	// misspelled tier set must fail here, at startup, not on the first
	// escalating claim.
	required := map[string]bool{"fast": false, "mid": false, "full": false}

	tiers := make([]TierDef, 0, len(file.Tiers))
	for _, t := range file.Tiers {
		seen, known := required[t.Name]
		if !known {
			return nil, fmt.Errorf("unknown tier %q, tiers must be named fast, mid and full", t.Name)
		}
		if seen {
			return nil, fmt.Errorf("duplicate tier %q", t.Name)
		}
		required[t.Name] = true
		if len(t.Members) == 0 {
			return nil, fmt.Errorf("tier %q has no members", t.Name)
		}
		def := TierDef{
			Name:    t.Name,
			Timeout: time.Duration(t.TimeoutMs) * time.Millisecond,
		}
		for _, m := range t.Members {
			v, ok := byName[m.Verifier]
			if !ok {
				return nil, fmt.Errorf("tier %q references unknown verifier %q", t.Name, m.Verifier)
			}
			def.Members = append(def.Members, Descriptor{Verifier: v, Weight: m.Weight})
		}
		tiers = append(tiers, def)
	}

	for name, seen := range required {
		if !seen {
			return nil, fmt.Errorf("tier %q missing, tiers must be named fast, mid and full", name)
		}
	}

	log.Infof("loaded %d verifiers across %d tiers from %s", len(file.Verifiers), len(tiers), path)
	return tiers, nil
}
