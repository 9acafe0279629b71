// Copyright 2026 The Playable Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/jsonc"
)

// LiveValue is one name/value pair in a live configuration document.
// Values stay string-encoded; the embedded runtime does its own
// conversion against the kinds it knows from the manifest.
type LiveValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// LiveDocument is the store-resident variable snapshot. It is the
// simplified sibling of the manifest: only name/value pairs flow back
// into a running preview.
type LiveDocument struct {
	Variables []LiveValue `json:"variables"`
}

// ParseLive decodes a live configuration document. The manifest
// itself parses as a valid live document (its variable entries carry
// name and value fields plus extras that are ignored), which is what
// makes a freshly ingested bundle serve its defaults before the
// editor writes anything.
func ParseLive(data []byte) (*LiveDocument, error) {
	var parsed LiveDocument
	if err := json.Unmarshal(jsonc.ToJSON(data), &parsed); err != nil {
		return nil, fmt.Errorf("parsing live configuration: %w", err)
	}
	return &parsed, nil
}

// Encode serializes the document canonically: fixed field order,
// no indentation, no map iteration anywhere. Equal documents encode
// to identical bytes.
func (d *LiveDocument) Encode() ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encoding live configuration: %w", err)
	}
	return data, nil
}

// ValueMap returns the document's pairs as a name→value map for
// embedding into export shims. Later duplicates win, matching how
// the embedded runtime applies the document.
func (d *LiveDocument) ValueMap() map[string]string {
	values := make(map[string]string, len(d.Variables))
	for _, pair := range d.Variables {
		values[pair.Name] = pair.Value
	}
	return values
}
