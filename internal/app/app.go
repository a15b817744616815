/*
 * Copyright (C) 2024 Adiom, Inc.
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */
package wanverify

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/adiom-data/wanverify/internal/app/options"
	"github.com/adiom-data/wanverify/internal/build"
	"github.com/adiom-data/wanverify/logger"
	"github.com/adiom-data/wanverify/protocol/iface"
	"github.com/urfave/cli/v2"
)

// NewApp builds the wanverify command line.
func NewApp() *cli.App {
	flags, before := options.GetFlagsAndBeforeFunc()

	app := &cli.App{
		Before:    before,
		Flags:     flags,
		Name:      "wanverify",
		Usage:     "Drives and verifies replication between two sites",
		UsageText: "wanverify --site1 connstr --site2 connstr command [command options]",
		Version:   build.VersionInfo(),
		Copyright: build.CopyrightStr,
		Commands: []*cli.Command{
			scenarioCommand,
			clearRegionCommand,
			verifyCommand,
			serveCommand,
		},
	}

	return app
}

// runtime holds what a command needs once the global options are parsed.
type runtime struct {
	o      options.Options
	site1  site
	site2  site
	closer io.Closer
}

func setupLogging(o options.Options) (io.Closer, error) {
	closer, err := logger.Setup(logger.Options{Verbosity: o.Verbosity, Logfile: o.Logfile})
	if err != nil {
		return nil, err
	}
	slog.Debug(fmt.Sprintf("Parsed options: %+v", o))
	return closer, nil
}

func newRuntime(c *cli.Context) (*runtime, error) {
	o, err := options.NewFromCLIContext(c)
	if err != nil {
		return nil, err
	}
	if err := o.RequireSites(); err != nil {
		return nil, err
	}
	closer, err := setupLogging(o)
	if err != nil {
		return nil, err
	}
	r := &runtime{o: o, closer: closer}

	s1, err := options.CreateStore(c.Context, o.Site1ConnString, o.Store)
	if err != nil {
		r.Close()
		return nil, err
	}
	r.site1 = site{name: o.Site1Name, store: s1}
	s2, err := options.CreateStore(c.Context, o.Site2ConnString, o.Store)
	if err != nil {
		r.Close()
		return nil, err
	}
	r.site2 = site{name: o.Site2Name, store: s2}
	return r, nil
}

func (r *runtime) Close() {
	for _, s := range []iface.Store{r.site1.store, r.site2.store} {
		if s != nil {
			s.Teardown()
		}
	}
	if r.closer != nil {
		_ = r.closer.Close()
	}
}
