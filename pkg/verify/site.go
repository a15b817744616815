/*
 * Copyright (C) 2025 Adiom, Inc.
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */
package verify

import "context"

// Session is a scoped read-only view of one dataset at one site.
// Close must be safe to call more than once.
type Session[K comparable, V any] interface {
	Keys(ctx context.Context) ([]K, error)
	Get(ctx context.Context, key K) (V, bool, error)
	Close(ctx context.Context) error
}

// Site opens sessions against a named replica.
type Site[K comparable, V any] interface {
	Name() string
	Open(ctx context.Context, dataset string) (Session[K, V], error)
}
