// Copyright 2026 The Playable Authors
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"errors"
	"fmt"
)

// Target identifies a network-specific packaging format.
type Target uint8

const (
	// TargetZipFolder is the bundle-in-bundle format: the whole
	// archive re-rooted under a single named folder inside a fresh
	// zip, entry document renamed after the folder. Ad networks
	// that accept zip uploads enforce a hard size ceiling on it.
	TargetZipFolder Target = 0

	// TargetInlineHTML is the self-contained single-document
	// format: loader inlined, binary payloads embedded base64 and
	// decompressed in the consuming environment at runtime.
	TargetInlineHTML Target = 1
)

// String returns the wire name of a target.
func (t Target) String() string {
	switch t {
	case TargetZipFolder:
		return "zip-folder"
	case TargetInlineHTML:
		return "inline-html"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// ParseTarget parses a target from its wire name.
func ParseTarget(name string) (Target, error) {
	switch name {
	case "zip-folder":
		return TargetZipFolder, nil
	case "inline-html":
		return TargetInlineHTML, nil
	default:
		return 0, fmt.Errorf("unknown export target: %q", name)
	}
}

// DefaultZipCeiling is the byte ceiling for the zip-folder target.
// Networks that take bundle uploads commonly cap them at 5 MB.
const DefaultZipCeiling = 5 << 20

// DefaultCeilings returns the default per-target size ceilings. The
// inline-html target ships without a ceiling (0 = disabled): networks
// consuming single documents accept larger payloads, and callers with
// stricter hosts configure their own value.
func DefaultCeilings() map[Target]int64 {
	return map[Target]int64{
		TargetZipFolder:  DefaultZipCeiling,
		TargetInlineHTML: 0,
	}
}

// ErrMissingBuildArtifact is returned by the inline-html target when
// a required build artifact cannot be located in the archive.
var ErrMissingBuildArtifact = errors.New("required build artifact missing from archive")

// SizeExceededError reports an export artifact over its target's
// ceiling. It is user-facing and non-retried: the pipeline never
// attempts automatic asset reduction, the caller decides what to cut.
type SizeExceededError struct {
	Target  Target
	Size    int64
	Ceiling int64
}

func (e *SizeExceededError) Error() string {
	return fmt.Sprintf("%s export is %d bytes, exceeds the %d byte ceiling", e.Target, e.Size, e.Ceiling)
}
