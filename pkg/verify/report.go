/*
 * Copyright (C) 2025 Adiom, Inc.
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */
package verify

import (
	"fmt"
	"strings"
	"time"
)

const (
	keysBanner   = "=============="
	valuesBanner = "============================================="
)

// Mismatch is a key whose values did not compare equal.
// Values are always reported as site A then site B, whatever the pass direction.
type Mismatch[K comparable, V any] struct {
	Key      K
	ValueA   V
	PresentA bool
	ValueB   V
	PresentB bool
}

// Pass is one directional sweep over a site's key set.
type Pass[K comparable, V any] struct {
	From       string
	To         string
	Keys       int
	Mismatches []Mismatch[K, V]
}

func (p Pass[K, V]) AllEqual() bool {
	return len(p.Mismatches) == 0
}

// Report is the outcome of a single Verify call.
type Report[K comparable, V any] struct {
	RunID     string
	Dataset   string
	SiteA     string
	SiteB     string
	StartedAt time.Time
	Duration  time.Duration

	KeysA     int
	KeysB     int
	KeysEqual bool
	OnlyInA   []K
	OnlyInB   []K

	Passes []Pass[K, V]
}

// Converged is true when both key sets and every compared value are equal.
func (r *Report[K, V]) Converged() bool {
	if !r.KeysEqual {
		return false
	}
	for _, p := range r.Passes {
		if !p.AllEqual() {
			return false
		}
	}
	return true
}

// MismatchCount is the number of unequal values over all passes.
func (r *Report[K, V]) MismatchCount() int {
	var n int
	for _, p := range r.Passes {
		n += len(p.Mismatches)
	}
	return n
}

// Lines renders the findings in order.
func (r *Report[K, V]) Lines() []string {
	lines := []string{
		fmt.Sprintf("Verifying entries for region=%v", r.Dataset),
		"",
		keysBanner,
		"Comparing keys",
		keysBanner,
	}
	if r.KeysEqual {
		lines = append(lines, fmt.Sprintf("All %d keys are equal", r.KeysA))
	} else {
		lines = append(lines,
			fmt.Sprintf("All keys are not equal. Site %v contains %d keys. Site %v contains %d keys.", r.SiteA, r.KeysA, r.SiteB, r.KeysB),
			fmt.Sprintf("Site %v contains these %d keys not found in site %v: %v", r.SiteA, len(r.OnlyInA), r.SiteB, r.OnlyInA),
			fmt.Sprintf("Site %v contains these %d keys not found in site %v: %v", r.SiteB, len(r.OnlyInB), r.SiteA, r.OnlyInB),
		)
	}
	for _, p := range r.Passes {
		lines = append(lines,
			"",
			valuesBanner,
			fmt.Sprintf("Comparing values in site %v to those in site %v", p.From, p.To),
			valuesBanner,
		)
		for _, m := range p.Mismatches {
			lines = append(lines, fmt.Sprintf("Values are not equal for key=%v; %vValue=%v; %vValue=%v",
				m.Key, r.SiteA, formatValue(m.ValueA, m.PresentA), r.SiteB, formatValue(m.ValueB, m.PresentB)))
		}
		if p.AllEqual() {
			lines = append(lines, fmt.Sprintf("All values in site %v are equal to those in site %v", p.From, p.To))
		}
	}
	return lines
}

func (r *Report[K, V]) String() string {
	return strings.Join(r.Lines(), "\n")
}

func formatValue[V any](v V, present bool) string {
	if !present {
		return fmt.Sprint(NotPresent)
	}
	return fmt.Sprintf("%v", v)
}
