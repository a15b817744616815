/*
 * Copyright (C) 2025 Adiom, Inc.
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */
package remote

import (
	"context"
	"strings"
	"sync"

	"connectrpc.com/connect"
	"github.com/adiom-data/wanverify/protocol/iface"
	"google.golang.org/protobuf/types/known/structpb"
)

type client = connect.Client[structpb.Struct, structpb.Struct]

// store talks to a site served by NewHandler.
type store struct {
	open          *client
	ensureDataset *client
	keys          *client
	get           *client
	put           *client
	delete        *client
}

func NewStore(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *store {
	baseURL = strings.TrimRight(baseURL, "/")
	return &store{
		open:          connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+OpenProcedure, opts...),
		ensureDataset: connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+EnsureDatasetProcedure, opts...),
		keys:          connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+KeysProcedure, opts...),
		get:           connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+GetProcedure, opts...),
		put:           connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+PutProcedure, opts...),
		delete:        connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+DeleteProcedure, opts...),
	}
}

func call(ctx context.Context, c *client, fields map[string]any) (*structpb.Struct, error) {
	req, err := request(fields)
	if err != nil {
		return nil, err
	}
	res, err := c.CallUnary(ctx, req)
	if err != nil {
		return nil, fromConnectError(err)
	}
	return res.Msg, nil
}

func (s *store) Open(ctx context.Context, dataset string) (iface.Session, error) {
	if _, err := call(ctx, s.open, map[string]any{fieldDataset: dataset}); err != nil {
		return nil, err
	}
	return &session{store: s, dataset: dataset}, nil
}

func (s *store) EnsureDataset(ctx context.Context, dataset string) error {
	_, err := call(ctx, s.ensureDataset, map[string]any{fieldDataset: dataset})
	return err
}

func (s *store) Teardown() {}

type session struct {
	store   *store
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

func (sess *session) Keys(ctx context.Context) ([]string, error) {
	if err := sess.check(); err != nil {
		return nil, err
	}
	res, err := call(ctx, sess.store.keys, map[string]any{fieldDataset: sess.dataset})
	if err != nil {
		return nil, err
	}
	values := res.GetFields()[fieldKeys].GetListValue().GetValues()
	keys := make([]string, 0, len(values))
	for _, v := range values {
		keys = append(keys, v.GetStringValue())
	}
	return keys, nil
}

func (sess *session) Get(ctx context.Context, key string) (iface.Document, bool, error) {
	if err := sess.check(); err != nil {
		return nil, false, err
	}
	res, err := call(ctx, sess.store.get, map[string]any{fieldDataset: sess.dataset, fieldKey: key})
	if err != nil {
		return nil, false, err
	}
	if !res.GetFields()[fieldFound].GetBoolValue() {
		return nil, false, nil
	}
	doc, err := docField(res, fieldDoc)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func (sess *session) Put(ctx context.Context, key string, doc iface.Document) error {
	if err := sess.check(); err != nil {
		return err
	}
	normalized, err := iface.Normalize(doc)
	if err != nil {
		return err
	}
	_, err = call(ctx, sess.store.put, map[string]any{fieldDataset: sess.dataset, fieldKey: key, fieldDoc: map[string]any(normalized)})
	return err
}

func (sess *session) Delete(ctx context.Context, key string) (bool, error) {
	if err := sess.check(); err != nil {
		return false, err
	}
	res, err := call(ctx, sess.store.delete, map[string]any{fieldDataset: sess.dataset, fieldKey: key})
	if err != nil {
		return false, err
	}
	return res.GetFields()[fieldDeleted].GetBoolValue(), nil
}

func (sess *session) Close(_ context.Context) error {
	sess.mut.Lock()
	defer sess.mut.Unlock()
	sess.closed = true
	return nil
}
