package slug

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Fallback is used when normalization leaves nothing usable
const Fallback = "article"

// DefaultMaxAttempts bounds the sequential collision probe before the
// generator falls back to a timestamp suffix.
const DefaultMaxAttempts = 10

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Checker probes the store for an existing slug. The exclude id lets an
// article keep its own slug during updates.
type Checker interface {
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
}

// Normalize derives a URL-safe base slug from free text: lowercase, strip
// non-alphanumerics, collapse runs into single hyphens, trim the ends.
func Normalize(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return Fallback
	}
	return s
}

// Generator produces store-unique slugs by probing candidates one at a time.
type Generator struct {
	checker     Checker
	maxAttempts int
}

// NewGenerator creates a slug generator backed by the given existence checker
func NewGenerator(checker Checker, maxAttempts int) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Generator{checker: checker, maxAttempts: maxAttempts}
}

// Unique returns a slug derived from text that no other row held at the
// moment of the probe. Probes `base`, `base-1`, `base-2`, ... up to the
// attempt bound; past it the suffix switches to a nanosecond timestamp so the
// loop always terminates. Each probe is one count-only round trip.
func (g *Generator) Unique(ctx context.Context, text, excludeID string) (string, error) {
	base := Normalize(text)
	candidate := base
	for i := 0; i < g.maxAttempts; i++ {
		exists, err := g.checker.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return "", fmt.Errorf("slug existence probe for %q: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i+1)
	}
	return fmt.Sprintf("%s-%d", base, time.Now().UnixNano()), nil
}

// UniqueWithin resolves a collision-free slug for base against an in-memory
// taken set, used for batched tag creation where all existing slugs were
// fetched in one query. The chosen slug is added to taken so callers can
// resolve a whole batch without re-reading the store.
func UniqueWithin(base string, taken map[string]bool, maxAttempts int) string {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if !taken[base] {
		taken[base] = true
		return base
	}
	for i := 1; i <= maxAttempts; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		if !taken[candidate] {
			taken[candidate] = true
			return candidate
		}
	}
	candidate := fmt.Sprintf("%s-%d", base, time.Now().UnixNano())
	taken[candidate] = true
	return candidate
}
