/*
 * Copyright (C) 2025 Adiom, Inc.
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

//gosec:disable G304 -- paths are built from the configured site directory

package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/adiom-data/wanverify/protocol/iface"
)

var ErrPathRequired = errors.New("directory path is required in connection URI (e.g., file:///path/to/site)")

// store keeps each dataset in its own directory under the site root, one JSON file per key.
type store struct {
	path string
}

func NewStore(uri string) (*store, error) {
	path, err := parseFileConnectionString(uri)
	if err != nil {
		return nil, fmt.Errorf("bad uri format %v (%w)", uri, err)
	}
	if path == "" {
		return nil, ErrPathRequired
	}
	return &store{path: path}, nil
}

func (s *store) checkRoot() error {
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("%w: %w", iface.ErrUnreachable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %v is not a directory", iface.ErrUnreachable, s.path)
	}
	return nil
}

func (s *store) Open(_ context.Context, dataset string) (iface.Session, error) {
	dir, err := datasetDir(s.path, dataset)
	if err != nil {
		return nil, err
	}
	if err := s.checkRoot(); err != nil {
		return nil, err
	}
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		return nil, fmt.Errorf("%w: %v", iface.ErrDatasetNotFound, dataset)
	}
	if err != nil {
		return nil, err
	}
	return &session{dir: dir, dataset: dataset}, nil
}

func (s *store) EnsureDataset(_ context.Context, dataset string) error {
	dir, err := datasetDir(s.path, dataset)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create dataset directory %v: %w", dir, err)
	}
	return nil
}

func (s *store) Teardown() {}

type session struct {
	dir     string
	dataset string

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

func (sess *session) Keys(_ context.Context) ([]string, error) {
	if err := sess.check(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(sess.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %v", iface.ErrDatasetNotFound, sess.dataset)
	}
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if key, ok := fileNameToKey(e.Name()); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (sess *session) Get(_ context.Context, key string) (iface.Document, bool, error) {
	if err := sess.check(); err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(filepath.Join(sess.dir, keyToFileName(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	doc, err := iface.NormalizeJSON(b)
	if err != nil {
		return nil, false, fmt.Errorf("key %v: %w", key, err)
	}
	return doc, true, nil
}

// Put writes to a temporary file first so readers never see a partial record.
func (sess *session) Put(_ context.Context, key string, doc iface.Document) error {
	if err := sess.check(); err != nil {
		return err
	}
	if key == "" {
		return errors.New("empty key")
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document for key %v: %w", key, err)
	}
	tmp, err := os.CreateTemp(sess.dir, ".put-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(sess.dir, keyToFileName(key)))
}

func (sess *session) Delete(_ context.Context, key string) (bool, error) {
	if err := sess.check(); err != nil {
		return false, err
	}
	err := os.Remove(filepath.Join(sess.dir, keyToFileName(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (sess *session) Close(_ context.Context) error {
	sess.mut.Lock()
	defer sess.mut.Unlock()
	sess.closed = true
	return nil
}
