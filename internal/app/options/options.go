/*
 * Copyright (C) 2024 Adiom, Inc.
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */
package options

import (
	"errors"
	"time"

	"github.com/urfave/cli/v2"
)

var ErrMissingSite = errors.New("both --site1 and --site2 are required")

type Options struct {
	Verbosity string
	Logfile   string

	Site1ConnString string
	Site2ConnString string
	Site1Name       string
	Site2Name       string

	Store StoreSettings
}

func NewFromCLIContext(c *cli.Context) (Options, error) {
	o := Options{}

	o.Verbosity = c.String("verbosity")
	o.Logfile = c.String("logfile")
	o.Site1ConnString = c.String("site1")
	o.Site2ConnString = c.String("site2")
	o.Site1Name = c.String("site1-name")
	o.Site2Name = c.String("site2-name")
	o.Store.ServerConnectTimeout = time.Duration(c.Int("server-timeout")) * time.Second
	o.Store.PingTimeout = time.Duration(c.Int("ping-timeout")) * time.Second
	o.Store.Gzip = c.Bool("gzip")

	return o, nil
}

// RequireSites checks that both sites were configured.
func (o Options) RequireSites() error {
	if o.Site1ConnString == "" || o.Site2ConnString == "" {
		return ErrMissingSite
	}
	return nil
}
