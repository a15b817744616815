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
	"slices"
	"sync"
	"time"

	"github.com/adiom-data/wanverify/pkg/verify"
	"github.com/adiom-data/wanverify/protocol/iface"
	"github.com/cenkalti/backoff/v4"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

const exitCodeNotConverged = 2

var ErrUnknownComparator = errors.New("unknown comparator")

var verifyCommand *cli.Command = &cli.Command{
	Name:      "verify-region",
	Usage:     "Compares the keys and values of one or more datasets between the two sites",
	UsageText: "wanverify --site1 connstr --site2 connstr verify-region --dataset name [--dataset name2] [options]",
	Action:    runVerify,
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:     "dataset",
			Usage:    "dataset (region) to verify, repeatable",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "compare",
			Usage: "value comparison (deep|hash)",
			Value: "deep",
		},
		&cli.StringSliceFlag{
			Name:  "ignore-field",
			Usage: "top level document field left out of the comparison, repeatable",
		},
		&cli.BoolFlag{
			Name:  "exclusive-second-pass",
			Usage: "only compare the keys missing from site1 in the second pass",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "deadline for each verification attempt, 0 for none",
		},
		&cli.IntFlag{
			Name:  "retries",
			Usage: "number of retries when a site cannot be reached",
		},
		&cli.IntFlag{
			Name:  "parallelism",
			Usage: "number of datasets verified concurrently",
			Value: 1,
		},
		&cli.BoolFlag{
			Name:  "fail-on-diff",
			Usage: "exit with code 2 when a dataset has not converged",
		},
	},
}

func comparator(mode string, ignore []string) (verify.Comparator[iface.Document], error) {
	var cmp verify.Comparator[iface.Document]
	switch mode {
	case "", "deep":
		cmp = verify.DeepEqual[iface.Document]
	case "hash":
		cmp = verify.HashEqual[iface.Document]
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownComparator, mode)
	}
	if len(ignore) == 0 {
		return cmp, nil
	}
	return verify.IgnoringKeys(cmp, ignore...), nil
}

type verifier struct {
	engine     *verify.Engine[string, iface.Document]
	cmp        verify.Comparator[iface.Document]
	timeout    time.Duration
	retries    int
	newBackOff func() backoff.BackOff
}

func (v *verifier) attempt(ctx context.Context, dataset string) (*verify.Report[string, iface.Document], error) {
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}
	return v.engine.Verify(ctx, dataset, v.cmp)
}

// verify runs one dataset, retrying connectivity failures up to the configured count.
func (v *verifier) verify(ctx context.Context, dataset string) (*verify.Report[string, iface.Document], error) {
	var report *verify.Report[string, iface.Document]
	op := func() error {
		r, err := v.attempt(ctx, dataset)
		if err != nil {
			var cerr *verify.ConnectivityError
			if errors.As(err, &cerr) && ctx.Err() == nil {
				return err
			}
			return backoff.Permanent(err)
		}
		report = r
		return nil
	}
	b := backoff.WithContext(backoff.WithMaxRetries(v.newBackOff(), uint64(max(v.retries, 0))), ctx)
	err := backoff.RetryNotify(op, b, func(err error, d time.Duration) {
		slog.Warn("Verification attempt failed, retrying", "dataset", dataset, "err", err, "backoff", d)
	})
	return report, err
}

// verifyAll runs the datasets with bounded parallelism and returns the ones that did not converge.
func (v *verifier) verifyAll(ctx context.Context, datasets []string, parallelism int) ([]string, error) {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(parallelism, 1))
	var mut sync.Mutex
	var notConverged []string
	for _, dataset := range datasets {
		eg.Go(func() error {
			report, err := v.verify(egCtx, dataset)
			if err != nil {
				return err
			}
			if !report.Converged() {
				mut.Lock()
				notConverged = append(notConverged, dataset)
				mut.Unlock()
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	slices.Sort(notConverged)
	return notConverged, nil
}

func runVerify(c *cli.Context) error {
	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	cmp, err := comparator(c.String("compare"), c.StringSlice("ignore-field"))
	if err != nil {
		return err
	}
	opts := []verify.Option{verify.WithNotPresent(iface.NotPresentDocument)}
	if c.Bool("exclusive-second-pass") {
		opts = append(opts, verify.WithExclusiveSecondPass())
	}
	v := &verifier{
		engine:  verify.NewEngine[string, iface.Document](rt.site1, rt.site2, opts...),
		cmp:     cmp,
		timeout: c.Duration("timeout"),
		retries: c.Int("retries"),
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}

	datasets := c.StringSlice("dataset")
	slog.Info("Starting verification", "datasets", datasets, "site1", rt.site1.name, "site2", rt.site2.name)
	notConverged, err := v.verifyAll(c.Context, datasets, c.Int("parallelism"))
	if err != nil {
		slog.Error("Verification failed", "err", err)
		return err
	}
	if len(notConverged) > 0 {
		slog.Warn("Datasets have not converged", "datasets", notConverged)
		if c.Bool("fail-on-diff") {
			return cli.Exit(fmt.Sprintf("datasets not converged: %v", notConverged), exitCodeNotConverged)
		}
		return nil
	}
	slog.Info("All datasets converged", "datasets", datasets)
	return nil
}
