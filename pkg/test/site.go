package test

import (
	"context"
	"errors"

	"github.com/adiom-data/wanverify/protocol/iface"
	"github.com/stretchr/testify/suite"
)

// StoreTestSuite is the standard suite every store backend has to pass.
type StoreTestSuite struct {
	suite.Suite
	dataset          string
	storeFactoryFunc func() iface.Store

	// Bootstrap runs before the suite and should drop the dataset if it exists.
	Bootstrap func(context.Context) error
}

func NewStoreTestSuite(dataset string, storeFactoryFunc func() iface.Store, bootstrap func(context.Context) error) *StoreTestSuite {
	return &StoreTestSuite{dataset: dataset, storeFactoryFunc: storeFactoryFunc, Bootstrap: bootstrap}
}

func (suite *StoreTestSuite) TestAll() {
	ctx := context.Background()
	if suite.Bootstrap != nil {
		suite.Require().NoError(suite.Bootstrap(ctx))
	}
	s := suite.storeFactoryFunc()
	defer s.Teardown()

	suite.Run("TestOpenMissing", func() {
		_, err := s.Open(ctx, suite.dataset+"-missing")
		suite.Assert().True(errors.Is(err, iface.ErrDatasetNotFound), "expected ErrDatasetNotFound, got %v", err)
	})

	suite.Require().NoError(s.EnsureDataset(ctx, suite.dataset))
	suite.Require().NoError(s.EnsureDataset(ctx, suite.dataset), "EnsureDataset must be idempotent")

	sess, err := s.Open(ctx, suite.dataset)
	suite.Require().NoError(err)
	defer sess.Close(ctx)

	suite.Run("TestEmpty", func() {
		keys, err := sess.Keys(ctx)
		suite.Assert().NoError(err)
		suite.Assert().Empty(keys)
		_, found, err := sess.Get(ctx, "0")
		suite.Assert().NoError(err)
		suite.Assert().False(found)
	})

	docs := map[string]iface.Document{
		"0":       {"id": "0", "cusip": "037833100", "shares": 10.0, "price": "12.50"},
		"1":       {"id": "1", "cusip": "594918104", "shares": 20.0, "price": "99.99", "tags": []any{"a", "b"}},
		"a/b c:d": {"id": "a/b c:d", "nested": map[string]any{"ok": true}},
	}

	suite.Run("TestPutGet", func() {
		for k, d := range docs {
			suite.Assert().NoError(sess.Put(ctx, k, d))
		}
		for k, d := range docs {
			got, found, err := sess.Get(ctx, k)
			suite.Assert().NoError(err)
			suite.Assert().True(found, "key %v", k)
			suite.Assert().Equal(d, got, "key %v", k)
		}
	})

	suite.Run("TestKeys", func() {
		keys, err := sess.Keys(ctx)
		suite.Assert().NoError(err)
		var expected []string
		for k := range docs {
			expected = append(expected, k)
		}
		suite.Assert().ElementsMatch(expected, keys)
	})

	suite.Run("TestOverwrite", func() {
		d := iface.Document{"id": "0", "cusip": "037833100", "shares": 11.0, "price": "12.50"}
		suite.Assert().NoError(sess.Put(ctx, "0", d))
		got, found, err := sess.Get(ctx, "0")
		suite.Assert().NoError(err)
		suite.Assert().True(found)
		suite.Assert().Equal(d, got)
	})

	suite.Run("TestSecondSession", func() {
		// a separate session sees writes immediately
		other, err := s.Open(ctx, suite.dataset)
		suite.Require().NoError(err)
		got, found, err := other.Get(ctx, "1")
		suite.Assert().NoError(err)
		suite.Assert().True(found)
		suite.Assert().Equal(docs["1"], got)
		suite.Assert().NoError(other.Close(ctx))
		suite.Assert().NoError(other.Close(ctx), "Close must be idempotent")
	})

	suite.Run("TestDelete", func() {
		deleted, err := sess.Delete(ctx, "1")
		suite.Assert().NoError(err)
		suite.Assert().True(deleted)
		deleted, err = sess.Delete(ctx, "1")
		suite.Assert().NoError(err)
		suite.Assert().False(deleted)
		_, found, err := sess.Get(ctx, "1")
		suite.Assert().NoError(err)
		suite.Assert().False(found)
		keys, err := sess.Keys(ctx)
		suite.Assert().NoError(err)
		suite.Assert().ElementsMatch([]string{"0", "a/b c:d"}, keys)
	})
}
