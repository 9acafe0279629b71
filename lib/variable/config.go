// Copyright 2026 The Playable Authors
// SPDX-License-Identifier: Apache-2.0

package variable

import "fmt"

// Config is one variable declaration from a bundle manifest: the
// name, kind, default value, and editor presentation hints. Defaults
// are immutable once parsed — live edits only ever flow through the
// live configuration document, never back into the manifest.
type Config struct {
	// Name uniquely identifies the variable within a manifest.
	Name string `json:"name"`

	// Kind is the value kind. Wire name "type" for manifest
	// compatibility.
	Kind Kind `json:"type"`

	// Value is the string-encoded default.
	Value string `json:"value"`

	// Min, Max, and Step constrain int and float kinds when set.
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Step *float64 `json:"step,omitempty"`

	// Options is the allowed value list for enum kinds.
	Options []string `json:"options,omitempty"`

	// Section and Order are editor grouping hints.
	Section string `json:"section,omitempty"`
	Order   int    `json:"order,omitempty"`
}

// Validate checks that raw is a well-formed value for the config's
// kind and satisfies its constraints. Returns a *ParseError carrying
// the variable name on failure.
func (c *Config) Validate(raw string) error {
	switch c.Kind {
	case KindInt:
		value, err := ParseInt(raw)
		if err != nil {
			return c.named(err)
		}
		return c.checkRange(raw, float64(value))

	case KindFloat:
		value, err := ParseFloat(raw)
		if err != nil {
			return c.named(err)
		}
		return c.checkRange(raw, value)

	case KindBool:
		_, err := ParseBool(raw)
		return c.named(err)

	case KindString:
		return nil

	case KindEnum:
		for _, option := range c.Options {
			if raw == option {
				return nil
			}
		}
		return &ParseError{Name: c.Name, Kind: KindEnum, Raw: raw, Reason: "not in the declared option list"}

	case KindVector3:
		_, err := ParseVector3(raw)
		return c.named(err)

	case KindColor:
		_, err := ParseColor(raw)
		return c.named(err)

	default:
		return fmt.Errorf("variable %q: unknown kind %d", c.Name, uint8(c.Kind))
	}
}

// checkRange enforces min/max bounds on numeric kinds. Step is an
// editor slider hint, not a validation constraint: values edited as
// free text may fall between steps.
func (c *Config) checkRange(raw string, value float64) error {
	if c.Min != nil && value < *c.Min {
		return &ParseError{Name: c.Name, Kind: c.Kind, Raw: raw, Reason: fmt.Sprintf("below minimum %v", *c.Min)}
	}
	if c.Max != nil && value > *c.Max {
		return &ParseError{Name: c.Name, Kind: c.Kind, Raw: raw, Reason: fmt.Sprintf("above maximum %v", *c.Max)}
	}
	return nil
}

// named stamps the variable name onto a *ParseError produced by one
// of the bare value parsers. Passes any other error (or nil) through.
func (c *Config) named(err error) error {
	if parseErr, ok := err.(*ParseError); ok {
		stamped := *parseErr
		stamped.Name = c.Name
		return &stamped
	}
	return err
}
