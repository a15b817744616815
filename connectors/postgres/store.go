/*
 * Copyright (C) 2025 Adiom, Inc.
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/adiom-data/wanverify/protocol/iface"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StoreSettings struct {
	URL string
}

// store keeps each dataset in a table of (id text primary key, doc jsonb).
type store struct {
	c *pgxpool.Pool
}

func NewStore(ctx context.Context, settings StoreSettings) (*store, error) {
	c, err := pgxpool.New(ctx, settings.URL)
	if err != nil {
		return nil, err
	}
	if err := c.Ping(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("%w: %w", iface.ErrUnreachable, err)
	}
	return &store{c: c}, nil
}

func tableName(dataset string) string {
	return pgx.Identifier{dataset}.Sanitize()
}

func (s *store) Open(ctx context.Context, dataset string) (iface.Session, error) {
	var exists bool
	if err := s.c.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", tableName(dataset)).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %v", iface.ErrDatasetNotFound, dataset)
	}
	return &session{c: s.c, table: tableName(dataset)}, nil
}

func (s *store) EnsureDataset(ctx context.Context, dataset string) error {
	_, err := s.c.Exec(ctx, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id text PRIMARY KEY, doc jsonb NOT NULL)", tableName(dataset)))
	return err
}

func (s *store) Teardown() {
	s.c.Close()
}

type session struct {
	c     *pgxpool.Pool
	table string

	mut    sync.Mutex
	closed bool
}

func (sess *session) check() error {
	sess.mut.Lock()
	defer sess.mut.Unlock()
	if sess.closed {
		return iface.ErrSessionClosed
	}
	return nil
}

func (sess *session) Keys(ctx context.Context) ([]string, error) {
	if err := sess.check(); err != nil {
		return nil, err
	}
	rows, err := sess.c.Query(ctx, fmt.Sprintf("SELECT id FROM %s", sess.table))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (sess *session) Get(ctx context.Context, key string) (iface.Document, bool, error) {
	if err := sess.check(); err != nil {
		return nil, false, err
	}
	var doc iface.Document
	err := sess.c.QueryRow(ctx, fmt.Sprintf("SELECT doc FROM %s WHERE id = $1", sess.table), key).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func (sess *session) Put(ctx context.Context, key string, doc iface.Document) error {
	if err := sess.check(); err != nil {
		return err
	}
	_, err := sess.c.Exec(ctx, fmt.Sprintf("INSERT INTO %s (id, doc) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc", sess.table), key, doc)
	return err
}

func (sess *session) Delete(ctx context.Context, key string) (bool, error) {
	if err := sess.check(); err != nil {
		return false, err
	}
	tag, err := sess.c.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", sess.table), key)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (sess *session) Close(_ context.Context) error {
	sess.mut.Lock()
	defer sess.mut.Unlock()
	sess.closed = true
	return nil
}
