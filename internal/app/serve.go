/*
 * Copyright (C) 2025 Adiom, Inc.
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */
package wanverify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/adiom-data/wanverify/connectors/remote"
	"github.com/adiom-data/wanverify/internal/app/options"
	"github.com/adiom-data/wanverify/protocol/iface"
	"github.com/urfave/cli/v2"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"
)

var serveCommand *cli.Command = &cli.Command{
	Name:      "serve-site",
	Action:    runServe,
	Usage:     "Exposes a store as a remote site",
	UsageText: "wanverify serve-site --address localhost:8090 [other-options] connstr",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "address",
			Usage:    "host:port e.g. localhost:8090",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "cert-file",
			Usage: "Cerificate file",
		},
		&cli.StringFlag{
			Name:  "key-file",
			Usage: "Key file",
		},
		&cli.BoolFlag{
			Name:  "no-gzip",
			Usage: "Disable gzip compression",
		},
	},
}

func newSiteHandler(store iface.Store, noGzip bool) http.Handler {
	mux := http.NewServeMux()
	var opts []connect.HandlerOption
	if noGzip {
		opts = append(opts, connect.WithCompression("gzip", nil, nil))
	}
	mux.Handle(remote.NewHandler(store, opts...))
	return mux
}

func runServe(c *cli.Context) error {
	o, err := options.NewFromCLIContext(c)
	if err != nil {
		return err
	}
	closer, err := setupLogging(o)
	if err != nil {
		return err
	}
	defer closer.Close()

	address := c.String("address")
	certFile := c.String("cert-file")
	keyFile := c.String("key-file")
	clearText := false
	if certFile == "" && keyFile == "" {
		clearText = true
	}

	args := c.Args().Slice()
	if len(args) < 1 {
		return fmt.Errorf("missing target store")
	}
	store, err := options.CreateStore(c.Context, args[0], o.Store)
	if err != nil {
		return fmt.Errorf("unable to create target store: %w", err)
	}
	defer store.Teardown()

	var handler http.Handler = newSiteHandler(store, c.Bool("no-gzip"))
	if clearText {
		handler = h2c.NewHandler(handler, &http2.Server{})
	}

	srv := http.Server{
		Addr:              address,
		Handler:           handler,
		ReadHeaderTimeout: time.Second * 10,
	}

	var eg errgroup.Group
	eg.Go(func() error {
		slog.Info("Serving site", "address", address, "store", args[0], "cleartext", clearText)
		if clearText {
			return srv.ListenAndServe()
		}
		return srv.ListenAndServeTLS(certFile, keyFile)
	})

	eg.Go(func() error {
		<-c.Context.Done()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
		defer cancel()
		return srv.Shutdown(ctx)
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Warn("Shutdown was not clean", "err", err)
		return err
	}

	return nil
}
