package memory

import (
	"context"
	"testing"

	"github.com/adiom-data/wanverify/pkg/test"
	"github.com/adiom-data/wanverify/protocol/iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestMemoryStoreSuite(t *testing.T) {
	tSuite := test.NewStoreTestSuite("trades", func() iface.Store {
		return NewStore()
	}, nil)
	suite.Run(t, tSuite)
}

func TestNamed(t *testing.T) {
	assert.Same(t, Named("site1"), Named("site1"))
	assert.NotSame(t, Named("site1"), Named("site2"))
}

func TestOffline(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.EnsureDataset(ctx, "trades"))
	sess, err := s.Open(ctx, "trades")
	require.NoError(t, err)

	s.SetOffline(true)
	_, err = s.Open(ctx, "trades")
	assert.ErrorIs(t, err, iface.ErrUnreachable)
	_, err = sess.Keys(ctx)
	assert.ErrorIs(t, err, iface.ErrUnreachable)

	s.SetOffline(false)
	_, err = sess.Keys(ctx)
	assert.NoError(t, err)

	assert.NoError(t, sess.Close(ctx))
	_, _, err = sess.Get(ctx, "0")
	assert.ErrorIs(t, err, iface.ErrSessionClosed)
}

func TestDropDataset(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.EnsureDataset(ctx, "trades"))
	sess, err := s.Open(ctx, "trades")
	require.NoError(t, err)
	s.DropDataset("trades")
	_, err = sess.Keys(ctx)
	assert.ErrorIs(t, err, iface.ErrDatasetNotFound)
}
