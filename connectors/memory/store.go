/*
 * Copyright (C) 2025 Adiom, Inc.
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/adiom-data/wanverify/protocol/iface"
)

var (
	registryMut sync.Mutex
	registry    = map[string]*Store{}
)

// Named returns the process-wide store registered under name, creating it on first use.
func Named(name string) *Store {
	registryMut.Lock()
	defer registryMut.Unlock()
	s, ok := registry[name]
	if !ok {
		s = NewStore()
		registry[name] = s
	}
	return s
}

// Store keeps datasets in memory. It is safe for concurrent use.
type Store struct {
	mut      sync.RWMutex
	datasets map[string]map[string]iface.Document
	offline  bool
}

func NewStore() *Store {
	return &Store{datasets: map[string]map[string]iface.Document{}}
}

// SetOffline makes every subsequent call fail with ErrUnreachable until reset.
func (s *Store) SetOffline(offline bool) {
	s.mut.Lock()
	defer s.mut.Unlock()
	s.offline = offline
}

func (s *Store) Open(_ context.Context, dataset string) (iface.Session, error) {
	s.mut.RLock()
	defer s.mut.RUnlock()
	if s.offline {
		return nil, iface.ErrUnreachable
	}
	if _, ok := s.datasets[dataset]; !ok {
		return nil, fmt.Errorf("%w: %v", iface.ErrDatasetNotFound, dataset)
	}
	return &session{store: s, dataset: dataset}, nil
}

func (s *Store) EnsureDataset(_ context.Context, dataset string) error {
	s.mut.Lock()
	defer s.mut.Unlock()
	if s.offline {
		return iface.ErrUnreachable
	}
	if _, ok := s.datasets[dataset]; !ok {
		s.datasets[dataset] = map[string]iface.Document{}
	}
	return nil
}

// DropDataset removes a dataset and all of its records.
func (s *Store) DropDataset(dataset string) {
	s.mut.Lock()
	defer s.mut.Unlock()
	delete(s.datasets, dataset)
}

func (s *Store) Teardown() {}

type session struct {
	store   *Store
	dataset string

	mut    sync.Mutex
	closed bool
}

// data must be called with the store lock held.
func (sess *session) data() (map[string]iface.Document, error) {
	sess.mut.Lock()
	closed := sess.closed
	sess.mut.Unlock()
	if closed {
		return nil, iface.ErrSessionClosed
	}
	if sess.store.offline {
		return nil, iface.ErrUnreachable
	}
	d, ok := sess.store.datasets[sess.dataset]
	if !ok {
		return nil, fmt.Errorf("%w: %v", iface.ErrDatasetNotFound, sess.dataset)
	}
	return d, nil
}

func (sess *session) Keys(_ context.Context) ([]string, error) {
	sess.store.mut.RLock()
	defer sess.store.mut.RUnlock()
	d, err := sess.data()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

func (sess *session) Get(_ context.Context, key string) (iface.Document, bool, error) {
	sess.store.mut.RLock()
	defer sess.store.mut.RUnlock()
	d, err := sess.data()
	if err != nil {
		return nil, false, err
	}
	doc, ok := d[key]
	if !ok {
		return nil, false, nil
	}
	res, err := iface.Normalize(doc)
	if err != nil {
		return nil, false, err
	}
	return res, true, nil
}

func (sess *session) Put(_ context.Context, key string, doc iface.Document) error {
	normalized, err := iface.Normalize(doc)
	if err != nil {
		return err
	}
	sess.store.mut.Lock()
	defer sess.store.mut.Unlock()
	d, err := sess.data()
	if err != nil {
		return err
	}
	d[key] = normalized
	return nil
}

func (sess *session) Delete(_ context.Context, key string) (bool, error) {
	sess.store.mut.Lock()
	defer sess.store.mut.Unlock()
	d, err := sess.data()
	if err != nil {
		return false, err
	}
	_, ok := d[key]
	delete(d, key)
	return ok, nil
}

func (sess *session) Close(_ context.Context) error {
	sess.mut.Lock()
	defer sess.mut.Unlock()
	sess.closed = true
	return nil
}
