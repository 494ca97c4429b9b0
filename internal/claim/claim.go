// Copyright 2026 The veridict Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package claim provides claim normalization and fingerprinting.
// The fingerprint of the normalized text is the key for the exact cache,
// so normalization must be deterministic and idempotent.
package claim

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// Claim holds one request's input text together with its derived forms.
// All fields are immutable once computed; the embedding is attached later
// by the pipeline when (and if) the embedding provider returns one.
type Claim struct {
	// Raw is the input text exactly as received.
	Raw string

	// Normalized is the canonical form of Raw (trimmed, lowercased,
	// internal whitespace collapsed).
	Normalized string

	// Fingerprint is the hex-encoded SHA-256 digest of Normalized.
	Fingerprint string

	// Embedding is the optional embedding vector for Normalized.
	// Nil when the embedding provider is unavailable.
	Embedding []float32
}

// New derives the normalized form and fingerprint for the given raw text.
func New(raw string) *Claim {
	normalized := Normalize(raw)
	return &Claim{
		Raw:         raw,
		Normalized:  normalized,
		Fingerprint: Fingerprint(normalized),
	}
}

// Normalize canonicalizes claim text: leading/trailing whitespace is
// trimmed, the text is lowercased, and every internal run of whitespace
// collapses to a single space. Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inSpace := false
	for _, r := range strings.TrimSpace(text) {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace {
			b.WriteByte(' ')
			inSpace = false
		}
		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}

// Fingerprint returns the hex-encoded SHA-256 digest of the given
// normalized text. Stable across processes and platforms.
func Fingerprint(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
