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
	"strconv"
	"time"

	"github.com/adiom-data/wanverify/internal/util"
	"github.com/adiom-data/wanverify/pkg/trade"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

const defaultEntries = 20

var ErrUnknownScenario = errors.New("unknown scenario")

var scenarioCommand *cli.Command = &cli.Command{
	Name:      "run-scenario",
	Usage:     "Writes generated trades into one or both sites",
	UsageText: "wanverify --site1 connstr --site2 connstr run-scenario --scenario 1..5 --dataset name [options]",
	Action:    runScenario,
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name: "scenario",
			Usage: "1: puts into site1, 2: puts into site1 then half as many into site2, 3: puts into site2, " +
				"4: puts into site1 while the sender is paused, 5: even keys into site1 and odd keys into site2 concurrently",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "dataset",
			Usage:    "dataset (region) to write to",
			Required: true,
		},
		&cli.IntFlag{
			Name:  "entries",
			Usage: "number of keys to write",
			Value: defaultEntries,
		},
		&cli.Float64Flag{
			Name:  "rate",
			Usage: "maximum writes per second to each site, 0 for unlimited",
		},
		&cli.Uint64Flag{
			Name:        "seed",
			Usage:       "seed for trade generation, 0 picks a random one",
			DefaultText: "random",
		},
	},
}

var clearRegionCommand *cli.Command = &cli.Command{
	Name:      "clear-region",
	Usage:     "Destroys the scenario keys on site1",
	UsageText: "wanverify --site1 connstr --site2 connstr clear-region --dataset name [--entries 20]",
	Action:    runClearRegion,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "dataset",
			Usage:    "dataset (region) to clear",
			Required: true,
		},
		&cli.IntFlag{
			Name:  "entries",
			Usage: "number of keys to destroy",
			Value: defaultEntries,
		},
	},
}

type scenarioRunner struct {
	site1   site
	site2   site
	gen     *trade.Generator
	limiter util.KeyedLimiter
	entries int
}

func everyKey(int) bool { return true }

func evenKey(i int) bool { return i%2 == 0 }

func oddKey(i int) bool { return i%2 == 1 }

// run executes one of the numbered scenarios against dataset.
func (r *scenarioRunner) run(ctx context.Context, scenario int, dataset string) error {
	switch scenario {
	case 1, 4:
		return r.doPuts(ctx, dataset, r.site1, r.entries, everyKey)
	case 2:
		if err := r.doPuts(ctx, dataset, r.site1, r.entries, everyKey); err != nil {
			return err
		}
		return r.doPuts(ctx, dataset, r.site2, r.entries/2, everyKey)
	case 3:
		return r.doPuts(ctx, dataset, r.site2, r.entries, everyKey)
	case 5:
		eg, egCtx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			return r.doPuts(egCtx, dataset, r.site1, r.entries, evenKey)
		})
		eg.Go(func() error {
			return r.doPuts(egCtx, dataset, r.site2, r.entries, oddKey)
		})
		return eg.Wait()
	default:
		return fmt.Errorf("%w: %v", ErrUnknownScenario, scenario)
	}
}

func (r *scenarioRunner) doPuts(ctx context.Context, dataset string, s site, n int, keep func(int) bool) error {
	slog.Info(fmt.Sprintf("Putting %d entries into region=%v in site %v", n, dataset, s.name))
	if err := s.store.EnsureDataset(ctx, dataset); err != nil {
		return fmt.Errorf("error creating region %v in site %v: %w", dataset, s.name, err)
	}
	sess, err := s.store.Open(ctx, dataset)
	if err != nil {
		return fmt.Errorf("error opening region %v in site %v: %w", dataset, s.name, err)
	}
	defer sess.Close(context.Background())

	limiter := r.limiter.Get(s.name)
	start := time.Now()
	written := 0
	for i := 0; i < n; i++ {
		if !keep(i) {
			continue
		}
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		key := strconv.Itoa(i)
		t := r.gen.Trade(key)
		doc, err := t.Document()
		if err != nil {
			return err
		}
		if err := sess.Put(ctx, key, doc); err != nil {
			return fmt.Errorf("error putting key %v into site %v: %w", key, s.name, err)
		}
		written++
		slog.Info(fmt.Sprintf("Put key=%v; value=%v", key, t), "site", s.name, "region", dataset)
	}
	slog.Debug("Puts done", "site", s.name, "region", dataset, "written", written, "elapsed", time.Since(start))
	return nil
}

func (r *scenarioRunner) doDestroys(ctx context.Context, dataset string, s site, n int) error {
	slog.Info(fmt.Sprintf("Destroying %d entries from region=%v in site %v", n, dataset, s.name))
	sess, err := s.store.Open(ctx, dataset)
	if err != nil {
		return fmt.Errorf("error opening region %v in site %v: %w", dataset, s.name, err)
	}
	defer sess.Close(context.Background())

	limiter := r.limiter.Get(s.name)
	for i := 0; i < n; i++ {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		key := strconv.Itoa(i)
		deleted, err := sess.Delete(ctx, key)
		if err != nil {
			return fmt.Errorf("error destroying key %v in site %v: %w", key, s.name, err)
		}
		if !deleted {
			slog.Debug(fmt.Sprintf("Key %v not found", key), "site", s.name, "region", dataset)
			continue
		}
		slog.Info(fmt.Sprintf("Destroyed key=%v", key), "site", s.name, "region", dataset)
	}
	return nil
}

func newScenarioRunner(rt *runtime, c *cli.Context) *scenarioRunner {
	return &scenarioRunner{
		site1:   rt.site1,
		site2:   rt.site2,
		gen:     trade.NewGenerator(c.Uint64("seed")),
		limiter: util.NewKeyedLimiter(c.Float64("rate")),
		entries: c.Int("entries"),
	}
}

func runScenario(c *cli.Context) error {
	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	scenario := c.Int("scenario")
	if scenario < 1 || scenario > 5 {
		return fmt.Errorf("%w: %v", ErrUnknownScenario, scenario)
	}
	if err := newScenarioRunner(rt, c).run(c.Context, scenario, c.String("dataset")); err != nil {
		slog.Error("Scenario failed", "scenario", scenario, "err", err)
		return err
	}
	return nil
}

func runClearRegion(c *cli.Context) error {
	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := newScenarioRunner(rt, c).doDestroys(c.Context, c.String("dataset"), rt.site1, c.Int("entries")); err != nil {
		slog.Error("Clear failed", "err", err)
		return err
	}
	return nil
}
