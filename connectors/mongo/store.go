/*
 * Copyright (C) 2025 Adiom, Inc.
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/adiom-data/wanverify/protocol/iface"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	moptions "go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

const (
	DefaultDatabase = "wanverify"

	errCodeNamespaceExists = 48
)

type StoreSettings struct {
	ConnectionString string
	// Database holding the datasets. Taken from the connection string path when empty.
	Database string

	ServerConnectTimeout time.Duration
	PingTimeout          time.Duration
}

func setDefault[T comparable](field *T, defaultValue T) {
	if *field == *new(T) {
		*field = defaultValue
	}
}

func MongoClient(ctx context.Context, settings StoreSettings) (*mongo.Client, error) {
	setDefault(&settings.ServerConnectTimeout, 10*time.Second)
	setDefault(&settings.PingTimeout, 2*time.Second)

	// Connect to the MongoDB instance
	ctxConnect, cancelConnect := context.WithTimeout(ctx, settings.ServerConnectTimeout)
	defer cancelConnect()
	clientOptions := moptions.Client().SetAppName("wanverify").ApplyURI(settings.ConnectionString).SetConnectTimeout(settings.ServerConnectTimeout)
	client, err := mongo.Connect(ctxConnect, clientOptions)
	if err != nil {
		return nil, err
	}

	// Check the connection
	ctxPing, cancelPing := context.WithTimeout(ctx, settings.PingTimeout)
	defer cancelPing()
	err = client.Ping(ctxPing, nil)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: %w", iface.ErrUnreachable, err)
	}

	return client, nil
}

// store maps datasets to collections of one database. Keys are string _ids.
type store struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewStore(ctx context.Context, settings StoreSettings) (*store, error) {
	if settings.Database == "" {
		cs, err := connstring.ParseAndValidate(settings.ConnectionString)
		if err != nil {
			return nil, fmt.Errorf("bad connection string: %w", err)
		}
		settings.Database = cs.Database
	}
	setDefault(&settings.Database, DefaultDatabase)

	client, err := MongoClient(ctx, settings)
	if err != nil {
		slog.Error(fmt.Sprintf("unable to connect to mongo client: %v", err))
		return nil, err
	}
	return NewStoreWithClient(client, settings.Database), nil
}

func NewStoreWithClient(client *mongo.Client, database string) *store {
	return &store{client: client, db: client.Database(database)}
}

func (s *store) Open(ctx context.Context, dataset string) (iface.Session, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.D{{"name", dataset}})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %v.%v", iface.ErrDatasetNotFound, s.db.Name(), dataset)
	}
	return &session{col: s.db.Collection(dataset)}, nil
}

func (s *store) EnsureDataset(ctx context.Context, dataset string) error {
	err := s.db.CreateCollection(ctx, dataset)
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == errCodeNamespaceExists {
		return nil
	}
	return err
}

func (s *store) Teardown() {
	_ = s.client.Disconnect(context.Background())
}

type session struct {
	col *mongo.Collection

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
	cur, err := sess.col.Find(ctx, bson.D{}, moptions.Find().SetProjection(bson.D{{"_id", 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var keys []string
	for cur.Next(ctx) {
		keys = append(keys, idToKey(cur.Current.Lookup("_id")))
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (sess *session) Get(ctx context.Context, key string) (iface.Document, bool, error) {
	if err := sess.check(); err != nil {
		return nil, false, err
	}
	raw, err := sess.col.FindOne(ctx, bson.D{{"_id", key}}).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	doc, err := rawToDocument(raw)
	if err != nil {
		return nil, false, fmt.Errorf("key %v: %w", key, err)
	}
	return doc, true, nil
}

func (sess *session) Put(ctx context.Context, key string, doc iface.Document) error {
	if err := sess.check(); err != nil {
		return err
	}
	replacement := make(bson.M, len(doc)+1)
	for k, v := range doc {
		replacement[k] = v
	}
	replacement["_id"] = key
	_, err := sess.col.ReplaceOne(ctx, bson.D{{"_id", key}}, replacement, moptions.Replace().SetUpsert(true))
	return err
}

func (sess *session) Delete(ctx context.Context, key string) (bool, error) {
	if err := sess.check(); err != nil {
		return false, err
	}
	res, err := sess.col.DeleteOne(ctx, bson.D{{"_id", key}})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (sess *session) Close(_ context.Context) error {
	sess.mut.Lock()
	defer sess.mut.Unlock()
	sess.closed = true
	return nil
}
