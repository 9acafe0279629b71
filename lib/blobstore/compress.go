// Copyright 2026 The Playable Authors
// SPDX-License-Identifier: Apache-2.0

package blobstore

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// compressionTag identifies the algorithm used for an on-disk object
// payload. Tags are stored in namespace index records (1 byte each).
// These values are format constants — changing them breaks existing
// store directories.
type compressionTag uint8

const (
	// tagNone indicates an uncompressed object. Used for content
	// that is already compressed (gzip/brotli bundle payloads, PNG)
	// where recompression adds CPU cost without reducing size.
	tagNone compressionTag = 0

	// tagLZ4 indicates LZ4 block compression. Fast default for
	// binary payloads: decode speed matters more than ratio on the
	// preview read path.
	tagLZ4 compressionTag = 1

	// tagZstd indicates zstd compression at the default level.
	// Better ratios for text-like payloads (HTML, JS, JSON).
	tagZstd compressionTag = 2
)

// String returns the human-readable name of a compression tag.
func (tag compressionTag) String() string {
	switch tag {
	case tagNone:
		return "none"
	case tagLZ4:
		return "lz4"
	case tagZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(tag))
	}
}

// zstdEncoder and zstdDecoder are reused across calls to avoid
// repeated initialization overhead. zstd.Encoder and zstd.Decoder
// are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("blobstore: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("blobstore: zstd decoder initialization failed: " + err.Error())
	}
}

// errIncompressible is returned when compressed output would not be
// smaller than the input. The caller falls back to tagNone.
var errIncompressible = fmt.Errorf("data is incompressible")

// selectCompression picks the algorithm for a payload by its content
// type: zstd for text-like types, LZ4 for everything else. Already-
// compressed payloads fall out naturally through the incompressible
// fallback in compressPayload.
func selectCompression(contentType string) compressionTag {
	switch contentType {
	case "text/html", "text/css", "text/plain",
		"application/javascript", "application/json":
		return tagZstd
	default:
		return tagLZ4
	}
}

// compressPayload compresses data with the algorithm selected for
// contentType. Returns the stored bytes and the tag actually used:
// incompressible payloads are stored verbatim under tagNone.
func compressPayload(data []byte, contentType string) ([]byte, compressionTag) {
	if len(data) == 0 {
		return data, tagNone
	}

	tag := selectCompression(contentType)
	compressed, err := compressWith(data, tag)
	if err != nil {
		return data, tagNone
	}
	return compressed, tag
}

func compressWith(data []byte, tag compressionTag) ([]byte, error) {
	switch tag {
	case tagLZ4:
		bound := lz4.CompressBlockBound(len(data))
		destination := make([]byte, bound)
		written, err := lz4.CompressBlock(data, destination, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		// CompressBlock returns 0 when it determines the data is
		// incompressible. Also reject output that is not actually
		// smaller than the input.
		if written == 0 || written >= len(data) {
			return nil, errIncompressible
		}
		return destination[:written], nil

	case tagZstd:
		compressed := zstdEncoder.EncodeAll(data, nil)
		if len(compressed) >= len(data) {
			return nil, errIncompressible
		}
		return compressed, nil

	default:
		return nil, fmt.Errorf("unsupported compression tag: %d", tag)
	}
}

// decompressPayload reverses compressPayload. The rawSize must match
// the original payload length exactly — this is verified and a
// mismatch returns an error.
func decompressPayload(stored []byte, tag compressionTag, rawSize int) ([]byte, error) {
	switch tag {
	case tagNone:
		if len(stored) != rawSize {
			return nil, fmt.Errorf("uncompressed object: size %d does not match expected %d",
				len(stored), rawSize)
		}
		return stored, nil

	case tagLZ4:
		destination := make([]byte, rawSize)
		read, err := lz4.UncompressBlock(stored, destination)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if read != rawSize {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, rawSize)
		}
		return destination, nil

	case tagZstd:
		result, err := zstdDecoder.DecodeAll(stored, make([]byte, 0, rawSize))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(result) != rawSize {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), rawSize)
		}
		return result, nil

	default:
		return nil, fmt.Errorf("unsupported compression tag: %d", tag)
	}
}
