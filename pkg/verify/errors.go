/*
 * Copyright (C) 2025 Adiom, Inc.
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */
package verify

import "fmt"

const (
	OpOpen = "open"
	OpKeys = "keys"
	OpGet  = "get"
)

// ConnectivityError reports a failure to reach a site or read a dataset from it.
type ConnectivityError struct {
	Dataset string
	Site    string
	Op      string
	Key     any // only set for OpGet
	Err     error
}

func (e *ConnectivityError) Error() string {
	if e.Op == OpGet {
		return fmt.Sprintf("dataset %v at site %v: %v key=%v: %v", e.Dataset, e.Site, e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("dataset %v at site %v: %v: %v", e.Dataset, e.Site, e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// ComparisonError is returned when the comparator itself fails.
type ComparisonError struct {
	Dataset string
	Key     any
	Err     error
}

func (e *ComparisonError) Error() string {
	return fmt.Sprintf("dataset %v: comparing key=%v: %v", e.Dataset, e.Key, e.Err)
}

func (e *ComparisonError) Unwrap() error {
	return e.Err
}
