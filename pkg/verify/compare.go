/*
 * Copyright (C) 2025 Adiom, Inc.
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */
package verify

import (
	"maps"
	"reflect"

	"github.com/cespare/xxhash"
	"github.com/mitchellh/hashstructure"
)

// Comparator decides whether two values are equal. It is never handed an absent
// value; a missing side is replaced by the engine's not-present sentinel first.
// Implementations must not assume symmetry of their arguments.
type Comparator[V any] func(a, b V) (bool, error)

type notPresent struct{}

func (notPresent) String() string {
	return "<not present>"
}

// NotPresent is the default stand-in for a missing value when V can hold it.
var NotPresent any = notPresent{}

// DeepEqual is the default comparator: full structural equality.
func DeepEqual[V any](a, b V) (bool, error) {
	return reflect.DeepEqual(a, b), nil
}

// HashEqual compares the structural hashes of both values. Maps and sets hash
// the same regardless of iteration order.
func HashEqual[V any](a, b V) (bool, error) {
	ha, err := hashstructure.Hash(a, &hashstructure.HashOptions{Hasher: xxhash.New()})
	if err != nil {
		return false, err
	}
	hb, err := hashstructure.Hash(b, &hashstructure.HashOptions{Hasher: xxhash.New()})
	if err != nil {
		return false, err
	}
	return ha == hb, nil
}

// IgnoringKeys wraps a map comparator so the given keys are dropped from both
// sides before comparing. Useful for volatile fields such as timestamps.
func IgnoringKeys[M ~map[K]E, K comparable, E any](inner Comparator[M], keys ...K) Comparator[M] {
	if inner == nil {
		inner = DeepEqual[M]
	}
	if len(keys) == 0 {
		return inner
	}
	strip := func(m M) M {
		if m == nil {
			return m
		}
		c := maps.Clone(m)
		for _, k := range keys {
			delete(c, k)
		}
		return c
	}
	return func(a, b M) (bool, error) {
		return inner(strip(a), strip(b))
	}
}
