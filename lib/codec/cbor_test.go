// Copyright 2026 The Playable Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

type sample struct {
	Path        string `cbor:"path"`
	ContentType string `cbor:"content_type"`
	RawSize     int64  `cbor:"raw_size"`
}

func TestMarshalDeterministic(t *testing.T) {
	value := sample{Path: "Build/game.wasm.gz", ContentType: "application/wasm", RawSize: 12345}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	second, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("Marshal is not deterministic for equal values")
	}
}

func TestRoundTrip(t *testing.T) {
	original := sample{Path: "index.html", ContentType: "text/html", RawSize: 42}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded sample
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded != original {
		t.Errorf("roundtrip: got %+v, want %+v", decoded, original)
	}
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	// An index written by a newer version may carry extra fields.
	data, err := Marshal(map[string]any{
		"path":     "index.html",
		"raw_size": int64(7),
		"future":   "ignored",
	})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded sample
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Path != "index.html" || decoded.RawSize != 7 {
		t.Errorf("decoded = %+v", decoded)
	}
}
