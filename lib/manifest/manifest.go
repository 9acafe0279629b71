// Copyright 2026 The Playable Authors
// SPDX-License-Identifier: Apache-2.0

// Package manifest defines the two shapes that share the fixed file
// name homa_config.json:
//
//   - the archive-embedded manifest, declaring the bundle's variable
//     set with kinds, defaults, and editor hints; and
//   - the store-resident live configuration document, a deliberately
//     simplified name/value snapshot written by the editor and read
//     back by the preview server at serve time.
//
// Manifests are hand-edited by game developers, so parsing tolerates
// comments and trailing commas (jsonc). The live document is always
// machine-written and encoded canonically so that repeated serves of
// an unchanged snapshot inject byte-identical scripts.
package manifest

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/jsonc"

	"github.com/playable-foundation/playable/lib/variable"
)

// FileName is the fixed name of both the archive-embedded manifest
// and the store-resident live configuration document. The preview
// server and the editor agree on this path; it is not configurable.
const FileName = "homa_config.json"

// Manifest is the archive-embedded variable declaration contract.
type Manifest struct {
	// Version is the manifest schema version declared by the build
	// toolchain. Carried through verbatim; no version gating yet.
	Version string `json:"version"`

	// Variables is the declared variable set. Names are unique.
	Variables []variable.Config `json:"variables"`
}

// Parse decodes and validates a manifest. Comments and trailing
// commas are tolerated. Fails on duplicate variable names, unknown
// kinds, and defaults that do not validate against their own
// declaration.
func Parse(data []byte) (*Manifest, error) {
	var parsed Manifest
	if err := json.Unmarshal(jsonc.ToJSON(data), &parsed); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	seen := make(map[string]bool, len(parsed.Variables))
	for i := range parsed.Variables {
		config := &parsed.Variables[i]
		if config.Name == "" {
			return nil, fmt.Errorf("manifest variable %d has no name", i)
		}
		if seen[config.Name] {
			return nil, fmt.Errorf("manifest declares variable %q twice", config.Name)
		}
		seen[config.Name] = true

		if err := config.Validate(config.Value); err != nil {
			return nil, fmt.Errorf("manifest default: %w", err)
		}
	}

	return &parsed, nil
}

// Variable returns the declaration for name, or nil when the
// manifest does not declare it.
func (m *Manifest) Variable(name string) *variable.Config {
	for i := range m.Variables {
		if m.Variables[i].Name == name {
			return &m.Variables[i]
		}
	}
	return nil
}

// Defaults returns the manifest's default values as a live snapshot,
// in declaration order.
func (m *Manifest) Defaults() []LiveValue {
	values := make([]LiveValue, len(m.Variables))
	for i, config := range m.Variables {
		values[i] = LiveValue{Name: config.Name, Value: config.Value}
	}
	return values
}
