/*
 * Copyright (C) 2025 Adiom, Inc.
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */
package wanverify

import (
	"context"

	"github.com/adiom-data/wanverify/pkg/verify"
	"github.com/adiom-data/wanverify/protocol/iface"
)

// site names a store so it can take part in verification and scenarios.
type site struct {
	name  string
	store iface.Store
}

func (s site) Name() string {
	return s.name
}

func (s site) Open(ctx context.Context, dataset string) (verify.Session[string, iface.Document], error) {
	sess, err := s.store.Open(ctx, dataset)
	if err != nil {
		return nil, err
	}
	return sess, nil
}
