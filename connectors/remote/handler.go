/*
 * Copyright (C) 2025 Adiom, Inc.
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */
package remote

import (
	"context"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"github.com/adiom-data/wanverify/protocol/iface"
	"google.golang.org/protobuf/types/known/structpb"
)

type handler struct {
	store iface.Store
}

// NewHandler exposes a store over connect. Sessions are opened per request and
// never held between calls.
func NewHandler(store iface.Store, opts ...connect.HandlerOption) (string, http.Handler) {
	h := &handler{store: store}
	mux := http.NewServeMux()
	mux.Handle(OpenProcedure, connect.NewUnaryHandler(OpenProcedure, h.open, opts...))
	mux.Handle(EnsureDatasetProcedure, connect.NewUnaryHandler(EnsureDatasetProcedure, h.ensureDataset, opts...))
	mux.Handle(KeysProcedure, connect.NewUnaryHandler(KeysProcedure, h.keys, opts...))
	mux.Handle(GetProcedure, connect.NewUnaryHandler(GetProcedure, h.get, opts...))
	mux.Handle(PutProcedure, connect.NewUnaryHandler(PutProcedure, h.put, opts...))
	mux.Handle(DeleteProcedure, connect.NewUnaryHandler(DeleteProcedure, h.delete, opts...))
	return "/" + ServiceName + "/", mux
}

func (h *handler) withSession(ctx context.Context, msg *structpb.Struct, fn func(iface.Session) (map[string]any, error)) (*connect.Response[structpb.Struct], error) {
	dataset, err := stringField(msg, fieldDataset)
	if err != nil {
		return nil, toConnectError(err)
	}
	sess, err := h.store.Open(ctx, dataset)
	if err != nil {
		return nil, toConnectError(err)
	}
	defer func() {
		if err := sess.Close(ctx); err != nil {
			slog.Warn("Failed to close session", "dataset", dataset, "err", err)
		}
	}()
	fields, err := fn(sess)
	if err != nil {
		slog.Debug("Request failed", "dataset", dataset, "err", err)
		return nil, toConnectError(err)
	}
	res, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(res), nil
}

func (h *handler) open(ctx context.Context, r *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	return h.withSession(ctx, r.Msg, func(iface.Session) (map[string]any, error) {
		return nil, nil
	})
}

func (h *handler) ensureDataset(ctx context.Context, r *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	dataset, err := stringField(r.Msg, fieldDataset)
	if err != nil {
		return nil, toConnectError(err)
	}
	if err := h.store.EnsureDataset(ctx, dataset); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&structpb.Struct{}), nil
}

func (h *handler) keys(ctx context.Context, r *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	return h.withSession(ctx, r.Msg, func(sess iface.Session) (map[string]any, error) {
		keys, err := sess.Keys(ctx)
		if err != nil {
			return nil, err
		}
		list := make([]any, len(keys))
		for i, k := range keys {
			list[i] = k
		}
		return map[string]any{fieldKeys: list}, nil
	})
}

func (h *handler) get(ctx context.Context, r *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	return h.withSession(ctx, r.Msg, func(sess iface.Session) (map[string]any, error) {
		key, err := stringField(r.Msg, fieldKey)
		if err != nil {
			return nil, err
		}
		doc, found, err := sess.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if !found {
			return map[string]any{fieldFound: false}, nil
		}
		return map[string]any{fieldFound: true, fieldDoc: map[string]any(doc)}, nil
	})
}

func (h *handler) put(ctx context.Context, r *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	return h.withSession(ctx, r.Msg, func(sess iface.Session) (map[string]any, error) {
		key, err := stringField(r.Msg, fieldKey)
		if err != nil {
			return nil, err
		}
		doc, err := docField(r.Msg, fieldDoc)
		if err != nil {
			return nil, err
		}
		return nil, sess.Put(ctx, key, doc)
	})
}

func (h *handler) delete(ctx context.Context, r *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	return h.withSession(ctx, r.Msg, func(sess iface.Session) (map[string]any, error) {
		key, err := stringField(r.Msg, fieldKey)
		if err != nil {
			return nil, err
		}
		deleted, err := sess.Delete(ctx, key)
		if err != nil {
			return nil, err
		}
		return map[string]any{fieldDeleted: deleted}, nil
	})
}
