//go:build external
// +build external

/*
 * Copyright (C) 2025 Adiom, Inc.
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */
package mongo

import (
	"context"
	"os"
	"testing"

	"github.com/adiom-data/wanverify/pkg/test"
	"github.com/adiom-data/wanverify/protocol/iface"
	"github.com/stretchr/testify/suite"
	"github.com/tryvium-travels/memongo"
)

const (
	MongoEnvironmentVariable = "MONGO_TEST"
)

var TestMongoConnectionString = os.Getenv(MongoEnvironmentVariable)

// Standard test suite for the store interface. Falls back to a throwaway
// mongod when MONGO_TEST is not set.
func TestMongoStoreSuite(t *testing.T) {
	connString := TestMongoConnectionString
	if connString == "" {
		server, err := memongo.Start("6.0.16")
		if err != nil {
			t.Fatal(err)
		}
		defer server.Stop()
		connString = server.URI()
	}
	ctx := context.Background()
	settings := StoreSettings{ConnectionString: connString, Database: "wanverify_test"}
	client, err := MongoClient(ctx, settings)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Disconnect(ctx)

	tSuite := test.NewStoreTestSuite("trades", func() iface.Store {
		s, err := NewStore(ctx, settings)
		if err != nil {
			t.Fatal(err)
		}
		return s
	}, func(ctx context.Context) error {
		return client.Database(settings.Database).Collection("trades").Drop(ctx)
	})
	suite.Run(t, tSuite)
}
