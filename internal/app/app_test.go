/*
 * Copyright (C) 2025 Adiom, Inc.
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */
package wanverify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adiom-data/wanverify/connectors/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func runApp(t *testing.T, site1, site2 string, args ...string) error {
	t.Helper()
	app := NewApp()
	app.ExitErrHandler = func(*cli.Context, error) {}
	full := append([]string{"wanverify", "--verbosity", "ERROR", "--site1", site1, "--site2", site2}, args...)
	return app.RunContext(context.Background(), full)
}

func TestAppScenarioThenVerify(t *testing.T) {
	s1, s2 := "memory://app-"+t.Name()+"-1", "memory://app-"+t.Name()+"-2"

	require.NoError(t, runApp(t, s1, s2, "run-scenario", "--scenario", "1", "--dataset", "trades", "--seed", "7"))
	require.NoError(t, runApp(t, s1, s2, "run-scenario", "--scenario", "3", "--dataset", "trades", "--entries", "5", "--seed", "8"))

	err := runApp(t, s1, s2, "verify-region", "--dataset", "trades", "--fail-on-diff")
	var exitErr cli.ExitCoder
	require.True(t, errors.As(err, &exitErr), "got %v", err)
	assert.Equal(t, exitCodeNotConverged, exitErr.ExitCode())

	// Without --fail-on-diff a difference is only reported.
	assert.NoError(t, runApp(t, s1, s2, "verify-region", "--dataset", "trades"))
}

func TestAppClearRegion(t *testing.T) {
	s1, s2 := "memory://app-"+t.Name()+"-1", "memory://app-"+t.Name()+"-2"

	require.NoError(t, runApp(t, s1, s2, "run-scenario", "--scenario", "1", "--dataset", "trades", "--entries", "4"))
	require.NoError(t, runApp(t, s1, s2, "clear-region", "--dataset", "trades", "--entries", "6"))

	sess, err := memory.Named(strings.TrimPrefix(s1, "memory://")).Open(context.Background(), "trades")
	require.NoError(t, err)
	keys, err := sess.Keys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestAppVerifyConverged(t *testing.T) {
	s1, s2 := "memory://app-"+t.Name()+"-1", "memory://app-"+t.Name()+"-2"
	ctx := context.Background()
	for _, s := range []string{s1, s2} {
		store := memory.Named(strings.TrimPrefix(s, "memory://"))
		require.NoError(t, store.EnsureDataset(ctx, "a"))
		require.NoError(t, store.EnsureDataset(ctx, "b"))
	}

	assert.NoError(t, runApp(t, s1, s2, "verify-region", "--dataset", "a", "--dataset", "b", "--parallelism", "2", "--fail-on-diff"))
}

func TestAppVerifyMissingDataset(t *testing.T) {
	s1, s2 := "memory://app-"+t.Name()+"-1", "memory://app-"+t.Name()+"-2"
	err := runApp(t, s1, s2, "verify-region", "--dataset", "nope")
	assert.Error(t, err)
}

func TestAppRequiresSites(t *testing.T) {
	app := NewApp()
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.RunContext(context.Background(), []string{"wanverify", "verify-region", "--dataset", "x"})
	assert.Error(t, err)
}

func TestAppConfigFile(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "config.yaml")
	s1, s2 := "memory://app-"+t.Name()+"-1", "memory://app-"+t.Name()+"-2"
	require.NoError(t, os.WriteFile(config, []byte("site1: "+s1+"\nsite2: "+s2+"\nverbosity: ERROR\n"), 0o644))

	app := NewApp()
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.RunContext(context.Background(), []string{"wanverify", "--config", config, "run-scenario", "--scenario", "2", "--dataset", "cfg", "--entries", "6"})
	require.NoError(t, err)

	keys, err := keysOf(memory.Named(strings.TrimPrefix(s2, "memory://")), "cfg")
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1", "2"}, keys)
}
