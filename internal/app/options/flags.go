/*
 * Copyright (C) 2024 Adiom, Inc.
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

package options

import (
	"fmt"
	"slices"
	"strings"

	"github.com/urfave/cli/v2"
	"github.com/urfave/cli/v2/altsrc"
)

// DefaultVerbosity is the default verbosity level for the application.
const DefaultVerbosity = "INFO"

const (
	DefaultSite1Name = "site1"
	DefaultSite2Name = "site2"
)

var validVerbosities = []string{"DEBUG", "INFO", "WARN", "ERROR"}

// GetFlagsAndBeforeFunc defines all CLI options as flags and returns
// a BeforeFunc to parse a configuration file before any other actions.
func GetFlagsAndBeforeFunc() ([]cli.Flag, cli.BeforeFunc) {
	flags := []cli.Flag{
		altsrc.NewStringFlag(&cli.StringFlag{
			Name:        "verbosity",
			Usage:       fmt.Sprintf("set the verbosity level (%s)", strings.Join(validVerbosities, ",")),
			Value:       DefaultVerbosity,
			DefaultText: DefaultVerbosity,
			Action: func(ctx *cli.Context, verbosity string) error {
				if !slices.Contains(validVerbosities, verbosity) {
					return fmt.Errorf("unsupported verbosity setting %v", verbosity)
				}
				return nil
			},
		}),
		altsrc.NewStringFlag(&cli.StringFlag{
			Name:    "site1",
			Usage:   "connection string of the first site (" + strings.Join(StoreUsages(), ", ") + ")",
			Aliases: []string{"s1"},
		}),
		altsrc.NewStringFlag(&cli.StringFlag{
			Name:    "site2",
			Usage:   "connection string of the second site",
			Aliases: []string{"s2"},
		}),
		altsrc.NewStringFlag(&cli.StringFlag{
			Name:  "site1-name",
			Usage: "name of the first site used in logs and reports",
			Value: DefaultSite1Name,
		}),
		altsrc.NewStringFlag(&cli.StringFlag{
			Name:  "site2-name",
			Usage: "name of the second site used in logs and reports",
			Value: DefaultSite2Name,
		}),
		altsrc.NewStringFlag(&cli.StringFlag{
			Name:  "logfile",
			Usage: "log file path, a JSON copy of the logs is written there in addition to stderr",
		}),
		altsrc.NewIntFlag(&cli.IntFlag{
			Name:   "server-timeout",
			Usage:  "seconds to wait for a database server connection. Set a higher value for slower connections",
			Hidden: true,
		}),
		altsrc.NewIntFlag(&cli.IntFlag{
			Name:   "ping-timeout",
			Usage:  "seconds to wait for a ping response. Set a higher value for slower connections",
			Hidden: true,
		}),
		altsrc.NewBoolFlag(&cli.BoolFlag{
			Name:  "gzip",
			Usage: "use gzip on requests to remote sites",
		}),
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "specify the path of the config file",
		},
	}

	before := func(c *cli.Context) error {
		return altsrc.InitInputSourceWithContext(flags, altsrc.NewYamlSourceFromFlagFunc("config"))(c)
	}
	return flags, before
}
