// Copyright 2026 The Playable Authors
// SPDX-License-Identifier: Apache-2.0

package webbundle

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
)

// Compression identifies the declared per-entry compression of an
// archive entry, derived from its path suffix. WebGL build toolchains
// pre-compress the large payloads (.wasm, .data, framework JS) and
// name them with the algorithm suffix.
type Compression uint8

const (
	// CompressionNone means the entry carries no compression suffix.
	CompressionNone Compression = 0

	// CompressionGzip is a ".gz" suffix.
	CompressionGzip Compression = 1

	// CompressionBrotli is a ".br" suffix.
	CompressionBrotli Compression = 2
)

// String returns the human-readable name of a compression value.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionBrotli:
		return "brotli"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// DeclaredCompression returns the compression an entry path declares
// through its suffix.
func DeclaredCompression(path string) Compression {
	switch {
	case strings.HasSuffix(path, ".gz"):
		return CompressionGzip
	case strings.HasSuffix(path, ".br"):
		return CompressionBrotli
	default:
		return CompressionNone
	}
}

// CleanPath strips a compression suffix from an entry path, yielding
// the logical path used for content-type derivation and entry
// document selection. Paths without a compression suffix are returned
// unchanged.
func CleanPath(path string) string {
	switch DeclaredCompression(path) {
	case CompressionGzip:
		return strings.TrimSuffix(path, ".gz")
	case CompressionBrotli:
		return strings.TrimSuffix(path, ".br")
	default:
		return path
	}
}

// Decompress reverses the declared compression of an entry payload.
// For CompressionNone the input is returned unchanged.
func Decompress(data []byte, compression Compression) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return data, nil

	case CompressionGzip:
		reader, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		plain, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		if err := reader.Close(); err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return plain, nil

	case CompressionBrotli:
		plain, err := io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, fmt.Errorf("brotli: %w", err)
		}
		return plain, nil

	default:
		return nil, fmt.Errorf("unsupported compression: %d", uint8(compression))
	}
}
