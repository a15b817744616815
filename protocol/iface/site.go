/*
 * Copyright (C) 2025 Adiom, Inc.
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */
package iface

import (
	"context"
	"errors"
)

var (
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrUnreachable     = errors.New("site unreachable")
	ErrSessionClosed   = errors.New("session closed")
)

// Session is a scoped handle on one dataset at one site.
// Reads are never cached: every call goes to the site.
type Session interface {
	Keys(ctx context.Context) ([]string, error)
	// Get returns false if the key does not exist.
	Get(ctx context.Context, key string) (Document, bool, error)
	Put(ctx context.Context, key string, doc Document) error
	// Delete returns false if the key did not exist.
	Delete(ctx context.Context, key string) (bool, error)
	// Close releases the session. It is idempotent.
	Close(ctx context.Context) error
}

// Store is a client connection to a single site.
type Store interface {
	// Open fails with ErrDatasetNotFound if the dataset does not exist.
	Open(ctx context.Context, dataset string) (Session, error)
	// EnsureDataset creates the dataset if it is missing.
	EnsureDataset(ctx context.Context, dataset string) error
	Teardown()
}
