package verify_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/adiom-data/wanverify/pkg/verify"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSite[V any] struct {
	name    string
	data    map[int]V
	dupes   []int
	openErr error
	keysErr error
	getErr  error

	opened int
	closed int
}

func (s *fakeSite[V]) Name() string {
	return s.name
}

func (s *fakeSite[V]) Open(_ context.Context, _ string) (verify.Session[int, V], error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	s.opened++
	return &fakeSession[V]{site: s}, nil
}

type fakeSession[V any] struct {
	site   *fakeSite[V]
	closed bool
}

func (f *fakeSession[V]) Keys(context.Context) ([]int, error) {
	if f.site.keysErr != nil {
		return nil, f.site.keysErr
	}
	var keys []int
	for k := range f.site.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return append(keys, f.site.dupes...), nil
}

func (f *fakeSession[V]) Get(_ context.Context, key int) (V, bool, error) {
	var zero V
	if f.site.getErr != nil {
		return zero, false, f.site.getErr
	}
	v, ok := f.site.data[key]
	return v, ok, nil
}

func (f *fakeSession[V]) Close(context.Context) error {
	if !f.closed {
		f.closed = true
		f.site.closed++
	}
	return nil
}

func newSites(a, b map[int]string) (*fakeSite[string], *fakeSite[string]) {
	return &fakeSite[string]{name: "site1", data: a}, &fakeSite[string]{name: "site2", data: b}
}

func newEngine[V any](t *testing.T, a, b *fakeSite[V], opts ...verify.Option) (*verify.Engine[int, V], *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	opts = append([]verify.Option{
		verify.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
		verify.WithClock(mock),
	}, opts...)
	return verify.NewEngine[int, V](a, b, opts...), &buf
}

func TestVerifyIdentical(t *testing.T) {
	a, b := newSites(map[int]string{1: "x", 2: "y"}, map[int]string{1: "x", 2: "y"})
	e, logs := newEngine(t, a, b)

	r, err := e.Verify(context.Background(), "trades", nil)
	require.NoError(t, err)
	assert.True(t, r.KeysEqual)
	assert.True(t, r.Converged())
	assert.Len(t, r.Passes, 1)
	assert.True(t, r.Passes[0].AllEqual())
	assert.Contains(t, r.Lines(), "All 2 keys are equal")
	assert.Contains(t, r.Lines(), "All values in site site1 are equal to those in site site2")
	assert.Equal(t, 1, strings.Count(logs.String(), "Comparing keys"))
	assert.Equal(t, 1, a.closed)
	assert.Equal(t, 1, b.closed)
}

func TestVerifyValueMismatch(t *testing.T) {
	a, b := newSites(map[int]string{1: "x", 2: "y"}, map[int]string{1: "x", 2: "z"})
	e, _ := newEngine(t, a, b)

	r, err := e.Verify(context.Background(), "trades", nil)
	require.NoError(t, err)
	assert.True(t, r.KeysEqual)
	assert.False(t, r.Converged())
	require.Len(t, r.Passes, 1)
	assert.Equal(t, []verify.Mismatch[int, string]{{Key: 2, ValueA: "y", PresentA: true, ValueB: "z", PresentB: true}}, r.Passes[0].Mismatches)
	assert.Contains(t, r.Lines(), "Values are not equal for key=2; site1Value=y; site2Value=z")
	assert.NotContains(t, r.String(), "All values in site")
}

func TestVerifyKeySetsDiffer(t *testing.T) {
	a, b := newSites(map[int]string{1: "x", 2: "y"}, map[int]string{1: "x", 3: "w"})
	e, _ := newEngine(t, a, b)

	r, err := e.Verify(context.Background(), "trades", nil)
	require.NoError(t, err)
	assert.False(t, r.KeysEqual)
	assert.ElementsMatch(t, []int{2}, r.OnlyInA)
	assert.ElementsMatch(t, []int{3}, r.OnlyInB)
	require.Len(t, r.Passes, 2)

	assert.Equal(t, "site1", r.Passes[0].From)
	assert.Equal(t, 2, r.Passes[0].Keys)
	assert.Equal(t, []verify.Mismatch[int, string]{{Key: 2, ValueA: "y", PresentA: true}}, r.Passes[0].Mismatches)

	assert.Equal(t, "site2", r.Passes[1].From)
	assert.Equal(t, 2, r.Passes[1].Keys)
	assert.Equal(t, []verify.Mismatch[int, string]{{Key: 3, ValueB: "w", PresentB: true}}, r.Passes[1].Mismatches)

	lines := r.Lines()
	assert.Contains(t, lines, "All keys are not equal. Site site1 contains 2 keys. Site site2 contains 2 keys.")
	assert.Contains(t, lines, "Site site1 contains these 1 keys not found in site site2: [2]")
	assert.Contains(t, lines, "Site site2 contains these 1 keys not found in site site1: [3]")
	assert.Contains(t, lines, "Values are not equal for key=3; site1Value=<not present>; site2Value=w")
}

func TestVerifyExclusiveSecondPass(t *testing.T) {
	a, b := newSites(map[int]string{1: "x", 2: "y"}, map[int]string{1: "q", 3: "w"})
	e, _ := newEngine(t, a, b, verify.WithExclusiveSecondPass())

	r, err := e.Verify(context.Background(), "trades", nil)
	require.NoError(t, err)
	require.Len(t, r.Passes, 2)
	assert.Len(t, r.Passes[0].Mismatches, 2)
	assert.Equal(t, 1, r.Passes[1].Keys)
	require.Len(t, r.Passes[1].Mismatches, 1)
	assert.Equal(t, 3, r.Passes[1].Mismatches[0].Key)
}

func TestVerifyEmpty(t *testing.T) {
	a, b := newSites(map[int]string{}, map[int]string{})
	e, _ := newEngine(t, a, b)

	r, err := e.Verify(context.Background(), "trades", nil)
	require.NoError(t, err)
	assert.True(t, r.Converged())
	assert.Len(t, r.Passes, 1)
	assert.Zero(t, r.MismatchCount())
	assert.Contains(t, r.Lines(), "All 0 keys are equal")
}

func TestVerifyDuplicateKeys(t *testing.T) {
	a, b := newSites(map[int]string{1: "x"}, map[int]string{1: "x"})
	a.dupes = []int{1, 1}
	e, _ := newEngine(t, a, b)

	r, err := e.Verify(context.Background(), "trades", nil)
	require.NoError(t, err)
	assert.True(t, r.KeysEqual)
	assert.Equal(t, 1, r.KeysA)
}

func TestVerifyRepeatable(t *testing.T) {
	a, b := newSites(map[int]string{1: "x", 2: "y"}, map[int]string{1: "x", 3: "w"})
	e, logs := newEngine(t, a, b)

	r1, err := e.Verify(context.Background(), "trades", nil)
	require.NoError(t, err)
	r2, err := e.Verify(context.Background(), "trades", nil)
	require.NoError(t, err)

	assert.Equal(t, r1.Lines(), r2.Lines())
	assert.NotEqual(t, r1.RunID, r2.RunID)
	assert.Equal(t, 2, strings.Count(logs.String(), "Comparing keys"))
	assert.Equal(t, 2, a.opened)
	assert.Equal(t, 2, a.closed)
}

func TestVerifyComparatorArguments(t *testing.T) {
	a := &fakeSite[any]{name: "site1", data: map[int]any{1: "x"}}
	b := &fakeSite[any]{name: "site2", data: map[int]any{2: "y"}}
	e, _ := newEngine(t, a, b)

	var calls [][2]any
	cmp := func(x, y any) (bool, error) {
		calls = append(calls, [2]any{x, y})
		return x == y, nil
	}
	r, err := e.Verify(context.Background(), "trades", cmp)
	require.NoError(t, err)
	assert.Equal(t, [][2]any{{"x", verify.NotPresent}, {"y", verify.NotPresent}}, calls)
	assert.Equal(t, 2, r.MismatchCount())
}

func TestVerifyCustomSentinel(t *testing.T) {
	a, b := newSites(map[int]string{1: "x"}, map[int]string{})
	e, _ := newEngine(t, a, b, verify.WithNotPresent("x"))

	r, err := e.Verify(context.Background(), "trades", nil)
	require.NoError(t, err)
	// the sentinel happens to equal the value, so the comparator accepts it
	assert.Zero(t, r.MismatchCount())
	assert.False(t, r.Converged())
}

func TestNewEngineSentinelTypeMismatch(t *testing.T) {
	a, b := newSites(nil, nil)
	assert.Panics(t, func() {
		verify.NewEngine[int, string](a, b, verify.WithNotPresent(42))
	})
}

func TestVerifyOpenError(t *testing.T) {
	boom := errors.New("unreachable")
	a, b := newSites(map[int]string{1: "x"}, map[int]string{1: "x"})
	b.openErr = boom
	e, logs := newEngine(t, a, b)

	r, err := e.Verify(context.Background(), "trades", nil)
	assert.Nil(t, r)
	var cerr *verify.ConnectivityError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "site2", cerr.Site)
	assert.Equal(t, verify.OpOpen, cerr.Op)
	assert.Equal(t, "trades", cerr.Dataset)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, a.closed)
	assert.Empty(t, logs.String())
}

func TestVerifyKeysError(t *testing.T) {
	boom := errors.New("dataset missing")
	a, b := newSites(map[int]string{1: "x"}, map[int]string{1: "x"})
	a.keysErr = boom
	e, _ := newEngine(t, a, b)

	_, err := e.Verify(context.Background(), "trades", nil)
	var cerr *verify.ConnectivityError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "site1", cerr.Site)
	assert.Equal(t, verify.OpKeys, cerr.Op)
	assert.Equal(t, 1, a.closed)
	assert.Equal(t, 1, b.closed)
}

func TestVerifyGetError(t *testing.T) {
	boom := errors.New("timeout")
	a, b := newSites(map[int]string{1: "x"}, map[int]string{1: "x"})
	b.getErr = boom
	e, logs := newEngine(t, a, b)

	_, err := e.Verify(context.Background(), "trades", nil)
	var cerr *verify.ConnectivityError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "site2", cerr.Site)
	assert.Equal(t, verify.OpGet, cerr.Op)
	assert.Equal(t, 1, cerr.Key)
	assert.Contains(t, err.Error(), "key=1")
	assert.Empty(t, logs.String())
	assert.Equal(t, 1, a.closed)
	assert.Equal(t, 1, b.closed)
}

func TestVerifyCancelled(t *testing.T) {
	a, b := newSites(map[int]string{1: "x"}, map[int]string{1: "x"})
	e, _ := newEngine(t, a, b)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Verify(ctx, "trades", nil)
	var cerr *verify.ConnectivityError
	require.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVerifyComparatorError(t *testing.T) {
	boom := errors.New("bad value")
	a, b := newSites(map[int]string{1: "x"}, map[int]string{1: "x"})
	e, logs := newEngine(t, a, b)

	_, err := e.Verify(context.Background(), "trades", func(string, string) (bool, error) {
		return false, boom
	})
	var cerr *verify.ComparisonError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 1, cerr.Key)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, logs.String())
}

func TestVerifyZeroValueWithoutSentinel(t *testing.T) {
	a, b := newSites(map[int]string{1: "x", 2: ""}, map[int]string{1: "x"})
	e, _ := newEngine(t, a, b)

	var calls []string
	cmp := func(x, y string) (bool, error) {
		calls = append(calls, x+"|"+y)
		return x == y, nil
	}
	r, err := e.Verify(context.Background(), "trades", cmp)
	require.NoError(t, err)
	assert.Equal(t, 1, r.MismatchCount())
	assert.Equal(t, []verify.Mismatch[int, string]{{Key: 2, ValueA: "", PresentA: true}}, r.Passes[0].Mismatches)
	assert.NotContains(t, r.Lines(), "All values in site site1 are equal to those in site site2")
	assert.Contains(t, r.Lines(), "Values are not equal for key=2; site1Value=; site2Value=<not present>")
	// only the common key reaches the comparator
	assert.Equal(t, []string{"x|x", "x|x"}, calls)
}

func TestVerifyKeyMissingFromBothSides(t *testing.T) {
	a, b := newSites(map[int]string{1: "x"}, map[int]string{1: "x"})
	a.dupes = []int{9}
	e, _ := newEngine(t, a, b)

	var keys []string
	cmp := func(x, y string) (bool, error) {
		keys = append(keys, x)
		return x == y, nil
	}
	r, err := e.Verify(context.Background(), "trades", cmp)
	require.NoError(t, err)
	assert.Zero(t, r.MismatchCount())
	assert.Equal(t, []int{9}, r.OnlyInA)
	require.Len(t, r.Passes, 2)
	assert.True(t, r.Passes[0].AllEqual())
	assert.Equal(t, []string{"x", "x"}, keys)
}
