/*
 * Copyright (C) 2025 Adiom, Inc.
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */
package iface

import (
	"encoding/json"
	"fmt"
)

// Document is a record value. Stores hand out documents in JSON form only:
// float64 numbers, strings, bools, nil, []any and map[string]any.
type Document = map[string]any

const notPresentField = "$notPresent"

// NotPresentDocument stands in for a missing document when comparing.
var NotPresentDocument = Document{notPresentField: true}

// Normalize converts v into its JSON form. It also serves as a deep copy.
func Normalize(v any) (Document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return NormalizeJSON(b)
}

func NormalizeJSON(b []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	if d == nil {
		return nil, fmt.Errorf("document is not an object")
	}
	return d, nil
}
