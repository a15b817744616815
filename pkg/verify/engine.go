/*
 * Copyright (C) 2025 Adiom, Inc.
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */
package verify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

type config struct {
	logger          *slog.Logger
	clock           clock.Clock
	notPresent      any
	customSentinel  bool
	exclusiveSecond bool
}

type Option func(*config)

// WithLogger sets the logger the report is written to. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

func WithClock(clk clock.Clock) Option {
	return func(c *config) {
		c.clock = clk
	}
}

// WithNotPresent overrides the sentinel handed to the comparator in place of a
// missing value. The value must be assignable to the engine's value type.
func WithNotPresent(v any) Option {
	return func(c *config) {
		c.notPresent = v
		c.customSentinel = true
	}
}

// WithExclusiveSecondPass limits the B to A pass to keys that only exist in B.
// The pass still only runs when the key sets differ.
func WithExclusiveSecondPass() Option {
	return func(c *config) {
		c.exclusiveSecond = true
	}
}

// Engine compares one dataset across two sites. It keeps no per-call state and
// is safe for concurrent use.
type Engine[K comparable, V any] struct {
	siteA           Site[K, V]
	siteB           Site[K, V]
	logger          *slog.Logger
	clock           clock.Clock
	notPresent      V
	hasSentinel     bool
	exclusiveSecond bool
}

// NewEngine builds an engine comparing siteA with siteB. When V cannot hold
// NotPresent and no sentinel is supplied, a value missing on one side is
// reported as a mismatch without consulting the comparator.
func NewEngine[K comparable, V any](siteA Site[K, V], siteB Site[K, V], opts ...Option) *Engine[K, V] {
	cfg := config{
		logger:     slog.Default(),
		clock:      clock.New(),
		notPresent: NotPresent,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	e := &Engine[K, V]{
		siteA:           siteA,
		siteB:           siteB,
		logger:          cfg.logger,
		clock:           cfg.clock,
		exclusiveSecond: cfg.exclusiveSecond,
	}
	if v, ok := cfg.notPresent.(V); ok {
		e.notPresent = v
		e.hasSentinel = true
	} else if cfg.customSentinel {
		panic(fmt.Sprintf("not-present sentinel %T is not assignable to %T", cfg.notPresent, e.notPresent))
	}
	return e
}

type sessionPair[K comparable, V any] struct {
	dataset string
	siteA   string
	siteB   string
	a       Session[K, V]
	b       Session[K, V]
}

// Verify compares dataset between site A and site B and returns the report.
// A nil comparator means DeepEqual. On error no report is logged or returned.
func (e *Engine[K, V]) Verify(ctx context.Context, dataset string, cmp Comparator[V]) (*Report[K, V], error) {
	if cmp == nil {
		cmp = DeepEqual[V]
	}
	report := &Report[K, V]{
		RunID:     uuid.NewString(),
		Dataset:   dataset,
		SiteA:     e.siteA.Name(),
		SiteB:     e.siteB.Name(),
		StartedAt: e.clock.Now(),
	}

	sessA, err := e.siteA.Open(ctx, dataset)
	if err != nil {
		return nil, &ConnectivityError{Dataset: dataset, Site: report.SiteA, Op: OpOpen, Err: err}
	}
	defer e.release(dataset, report.SiteA, sessA)
	sessB, err := e.siteB.Open(ctx, dataset)
	if err != nil {
		return nil, &ConnectivityError{Dataset: dataset, Site: report.SiteB, Op: OpOpen, Err: err}
	}
	defer e.release(dataset, report.SiteB, sessB)

	sp := sessionPair[K, V]{dataset: dataset, siteA: report.SiteA, siteB: report.SiteB, a: sessA, b: sessB}

	keysA, err := listKeys(ctx, sessA)
	if err != nil {
		return nil, &ConnectivityError{Dataset: dataset, Site: report.SiteA, Op: OpKeys, Err: err}
	}
	keysB, err := listKeys(ctx, sessB)
	if err != nil {
		return nil, &ConnectivityError{Dataset: dataset, Site: report.SiteB, Op: OpKeys, Err: err}
	}

	setA := toSet(keysA)
	setB := toSet(keysB)
	report.KeysA = len(keysA)
	report.KeysB = len(keysB)
	report.OnlyInA = difference(keysA, setB)
	report.OnlyInB = difference(keysB, setA)
	report.KeysEqual = len(report.OnlyInA) == 0 && len(report.OnlyInB) == 0

	pass, err := e.comparePass(ctx, sp, cmp, keysA, report.SiteA, report.SiteB)
	if err != nil {
		return nil, err
	}
	report.Passes = append(report.Passes, pass)

	if !report.KeysEqual {
		second := keysB
		if e.exclusiveSecond {
			second = report.OnlyInB
		}
		pass, err := e.comparePass(ctx, sp, cmp, second, report.SiteB, report.SiteA)
		if err != nil {
			return nil, err
		}
		report.Passes = append(report.Passes, pass)
	}

	report.Duration = e.clock.Since(report.StartedAt)
	e.logger.Info(report.String(),
		"run_id", report.RunID,
		"dataset", dataset,
		"site_a", report.SiteA,
		"site_b", report.SiteB,
		"converged", report.Converged(),
		"mismatches", report.MismatchCount(),
		"duration", report.Duration)
	return report, nil
}

func (e *Engine[K, V]) comparePass(ctx context.Context, sp sessionPair[K, V], cmp Comparator[V], keys []K, from, to string) (Pass[K, V], error) {
	pass := Pass[K, V]{From: from, To: to, Keys: len(keys)}
	for _, key := range keys {
		m, equal, err := e.compareKey(ctx, sp, cmp, key)
		if err != nil {
			return pass, err
		}
		if !equal {
			pass.Mismatches = append(pass.Mismatches, m)
		}
	}
	return pass, nil
}

// compareKey always reads A then B. When exactly one side is missing, the
// present value goes first and the sentinel second.
func (e *Engine[K, V]) compareKey(ctx context.Context, sp sessionPair[K, V], cmp Comparator[V], key K) (Mismatch[K, V], bool, error) {
	m := Mismatch[K, V]{Key: key}
	if err := ctx.Err(); err != nil {
		return m, false, &ConnectivityError{Dataset: sp.dataset, Site: sp.siteA, Op: OpGet, Key: key, Err: err}
	}
	var err error
	m.ValueA, m.PresentA, err = sp.a.Get(ctx, key)
	if err != nil {
		return m, false, &ConnectivityError{Dataset: sp.dataset, Site: sp.siteA, Op: OpGet, Key: key, Err: err}
	}
	m.ValueB, m.PresentB, err = sp.b.Get(ctx, key)
	if err != nil {
		return m, false, &ConnectivityError{Dataset: sp.dataset, Site: sp.siteB, Op: OpGet, Key: key, Err: err}
	}

	var equal bool
	switch {
	case !m.PresentA && !m.PresentB:
		equal = true
	case !e.hasSentinel:
		equal = false
	case !m.PresentA:
		equal, err = cmp(m.ValueB, e.notPresent)
	case !m.PresentB:
		equal, err = cmp(m.ValueA, e.notPresent)
	default:
		equal, err = cmp(m.ValueA, m.ValueB)
	}
	if err != nil {
		return m, false, &ComparisonError{Dataset: sp.dataset, Key: key, Err: err}
	}
	return m, equal, nil
}

func (e *Engine[K, V]) release(dataset string, site string, s Session[K, V]) {
	// Release must not depend on the caller's context still being alive.
	if err := s.Close(context.Background()); err != nil {
		e.logger.Warn("Failed to release session", "dataset", dataset, "site", site, "err", err)
	}
}

// listKeys drops duplicates while keeping the order the site returned.
func listKeys[K comparable, V any](ctx context.Context, s Session[K, V]) ([]K, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[K]struct{}, len(keys))
	res := make([]K, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		res = append(res, k)
	}
	return res, nil
}

func toSet[K comparable](keys []K) map[K]struct{} {
	s := make(map[K]struct{}, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

func difference[K comparable](keys []K, other map[K]struct{}) []K {
	var res []K
	for _, k := range keys {
		if _, ok := other[k]; !ok {
			res = append(res, k)
		}
	}
	return res
}
