/*
 * Copyright (C) 2025 Adiom, Inc.
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

package file

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

const extension = ".json"

// parseFileConnectionString extracts the directory path from a file:// URI.
func parseFileConnectionString(raw string) (string, error) {
	const prefix = "file://"
	if !strings.HasPrefix(strings.ToLower(raw), prefix) {
		return "", fmt.Errorf("invalid connection URI %q: must start with 'file://' (e.g., file:///path/to/site)", raw)
	}
	path := raw[len(prefix):]
	if path == "" {
		return "", fmt.Errorf("missing path in connection URI %q: expected file:///path/to/site", raw)
	}
	return path, nil
}

// keyToFileName escapes a key so any string maps to a single file in the dataset directory.
// A leading dot is escaped too so records never look like hidden or temporary files.
func keyToFileName(key string) string {
	esc := url.PathEscape(key)
	if strings.HasPrefix(esc, ".") {
		esc = "%2E" + esc[1:]
	}
	return esc + extension
}

// fileNameToKey reverses keyToFileName. ok is false for files that are not records.
func fileNameToKey(name string) (string, bool) {
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, extension) {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimSuffix(name, extension))
	if err != nil {
		return "", false
	}
	return key, true
}

func datasetDir(basePath, dataset string) (string, error) {
	if dataset == "" || dataset == "." || dataset == ".." || strings.ContainsAny(dataset, `/\`) {
		return "", fmt.Errorf("invalid dataset name %q", dataset)
	}
	return filepath.Join(basePath, dataset), nil
}
