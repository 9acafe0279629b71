// Copyright 2026 The Playable Authors
// SPDX-License-Identifier: Apache-2.0

// Package variable defines the closed set of runtime-tunable variable
// kinds a playable bundle can declare in its manifest, and one
// explicit parse/validate function per kind.
//
// Values travel as strings everywhere (manifest, live configuration
// document, injected script) and are only materialized into typed Go
// values at validation boundaries. There is deliberately no
// reflection-driven assignment: the kind set is closed, and each kind
// has its own parser returning a typed result or a *ParseError.
package variable

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the type of a variable. The set is closed — the
// editor UI, the manifest contract, and the injected runtime config
// all agree on exactly these kinds.
type Kind uint8

const (
	// KindInt is a whole number, optionally range-constrained.
	KindInt Kind = iota

	// KindFloat is a decimal number, optionally range-constrained.
	KindFloat

	// KindBool is "true" or "false".
	KindBool

	// KindString is free-form text. Always valid.
	KindString

	// KindEnum is one value out of a declared option list.
	KindEnum

	// KindVector3 is three comma-separated decimal components,
	// "x,y,z".
	KindVector3

	// KindColor is a CSS-style hex color, "#RRGGBB" or "#RRGGBBAA".
	KindColor
)

// String returns the manifest wire name of a kind.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindEnum:
		return "enum"
	case KindVector3:
		return "vector3"
	case KindColor:
		return "color"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// ParseKind parses a kind from its manifest wire name.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "int":
		return KindInt, nil
	case "float":
		return KindFloat, nil
	case "bool":
		return KindBool, nil
	case "string":
		return KindString, nil
	case "enum":
		return KindEnum, nil
	case "vector3":
		return KindVector3, nil
	case "color":
		return KindColor, nil
	default:
		return 0, fmt.Errorf("unknown variable kind: %q", name)
	}
}

// MarshalText serializes the kind as its wire name, so Kind fields
// round-trip through JSON and CBOR as plain strings.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses the kind from its wire name.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Vector3 is a parsed three-component value.
type Vector3 struct {
	X, Y, Z float64
}

// Color is a parsed RGBA color. Alpha defaults to 255 when the input
// carries no alpha component.
type Color struct {
	R, G, B, A uint8
}

// ParseError describes a string value that failed to parse or
// validate for its declared kind.
type ParseError struct {
	// Name is the variable name, when known. Empty for bare value
	// parses.
	Name string

	// Kind is the kind the value was parsed as.
	Kind Kind

	// Raw is the offending input.
	Raw string

	// Reason is a human-readable description of the failure.
	Reason string
}

func (e *ParseError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("variable %q: invalid %s value %q: %s", e.Name, e.Kind, e.Raw, e.Reason)
	}
	return fmt.Sprintf("invalid %s value %q: %s", e.Kind, e.Raw, e.Reason)
}

// ParseInt parses an int-kind value.
func ParseInt(raw string) (int64, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, &ParseError{Kind: KindInt, Raw: raw, Reason: "not a whole number"}
	}
	return value, nil
}

// ParseFloat parses a float-kind value.
func ParseFloat(raw string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, &ParseError{Kind: KindFloat, Raw: raw, Reason: "not a number"}
	}
	return value, nil
}

// ParseBool parses a bool-kind value. Only "true" and "false" are
// accepted: the manifest contract is explicit about casing so that
// the same string round-trips into the injected runtime config.
func ParseBool(raw string) (bool, error) {
	switch strings.TrimSpace(raw) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, &ParseError{Kind: KindBool, Raw: raw, Reason: `must be "true" or "false"`}
	}
}

// ParseVector3 parses a vector3-kind value of the form "x,y,z".
func ParseVector3(raw string) (Vector3, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 3 {
		return Vector3{}, &ParseError{Kind: KindVector3, Raw: raw, Reason: "need exactly three comma-separated components"}
	}
	var components [3]float64
	for i, part := range parts {
		value, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return Vector3{}, &ParseError{Kind: KindVector3, Raw: raw, Reason: fmt.Sprintf("component %d is not a number", i+1)}
		}
		components[i] = value
	}
	return Vector3{X: components[0], Y: components[1], Z: components[2]}, nil
}

// ParseColor parses a color-kind value, "#RRGGBB" or "#RRGGBBAA".
func ParseColor(raw string) (Color, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "#") {
		return Color{}, &ParseError{Kind: KindColor, Raw: raw, Reason: "must start with '#'"}
	}
	hexDigits := trimmed[1:]
	if len(hexDigits) != 6 && len(hexDigits) != 8 {
		return Color{}, &ParseError{Kind: KindColor, Raw: raw, Reason: "must be #RRGGBB or #RRGGBBAA"}
	}
	decoded, err := strconv.ParseUint(hexDigits, 16, 64)
	if err != nil {
		return Color{}, &ParseError{Kind: KindColor, Raw: raw, Reason: "invalid hex digits"}
	}
	color := Color{A: 255}
	if len(hexDigits) == 8 {
		color.A = uint8(decoded & 0xff)
		decoded >>= 8
	}
	color.B = uint8(decoded & 0xff)
	color.G = uint8(decoded >> 8 & 0xff)
	color.R = uint8(decoded >> 16 & 0xff)
	return color, nil
}
