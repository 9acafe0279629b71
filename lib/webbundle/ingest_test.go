// Copyright 2026 The Playable Authors
// SPDX-License-Identifier: Apache-2.0

package webbundle

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

const testManifest = `{"version": "1", "variables": [
	{"name": "speed", "type": "int", "value": "5"}
]}`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// buildZip assembles an in-memory archive from path→payload pairs.
func buildZip(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buffer bytes.Buffer
	writer := zip.NewWriter(&buffer)
	for name, data := range entries {
		entry, err := writer.Create(name)
		if err != nil {
			t.Fatalf("creating zip entry %q: %v", name, err)
		}
		if _, err := entry.Write(data); err != nil {
			t.Fatalf("writing zip entry %q: %v", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buffer.Bytes()
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buffer bytes.Buffer
	writer := gzip.NewWriter(&buffer)
	if _, err := writer.Write(data); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buffer.Bytes()
}

func TestIngestRoundTrip(t *testing.T) {
	// Entries without a compression suffix come through unchanged.
	png := []byte{0x89, 'P', 'N', 'G', 0, 1, 2, 3}
	archive := buildZip(t, map[string][]byte{
		"index.html":       []byte("<html><head></head><body></body></html>"),
		"homa_config.json": []byte(testManifest),
		"icon.png":         png,
	})

	bundle, err := Ingest(archive, testLogger())
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	entry, ok := bundle.Entries["icon.png"]
	if !ok {
		t.Fatal("icon.png missing from bundle")
	}
	if !bytes.Equal(entry.Data, png) {
		t.Error("icon.png bytes differ from original")
	}
	if entry.ContentType != "image/png" {
		t.Errorf("icon.png content type = %q, want image/png", entry.ContentType)
	}
	if entry.Compression != CompressionNone || entry.Decompressed {
		t.Errorf("icon.png compression state = %v/%v, want none/false", entry.Compression, entry.Decompressed)
	}
}

func TestIngestDecompressesGzip(t *testing.T) {
	wasm := []byte("\x00asm fake module body")
	archive := buildZip(t, map[string][]byte{
		"index.html":        []byte("<html><head></head></html>"),
		"homa_config.json":  []byte(testManifest),
		"Build/game.wasm.gz": gzipBytes(t, wasm),
	})

	bundle, err := Ingest(archive, testLogger())
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	entry := bundle.Entries["Build/game.wasm.gz"]
	if !entry.Decompressed {
		t.Error("gzip entry should be marked decompressed")
	}
	if !bytes.Equal(entry.Data, wasm) {
		t.Error("gzip entry bytes differ from plaintext")
	}
	if entry.ContentType != "application/wasm" {
		t.Errorf("content type = %q, want application/wasm", entry.ContentType)
	}
}

func TestIngestKeepsCorruptGzipOriginal(t *testing.T) {
	corrupt := []byte("this is not a gzip stream")
	archive := buildZip(t, map[string][]byte{
		"index.html":        []byte("<html><head></head></html>"),
		"homa_config.json":  []byte(testManifest),
		"Build/game.data.gz": corrupt,
	})

	bundle, err := Ingest(archive, testLogger())
	if err != nil {
		t.Fatalf("Ingest should tolerate a corrupt entry, got: %v", err)
	}

	entry := bundle.Entries["Build/game.data.gz"]
	if entry.Decompressed {
		t.Error("corrupt entry should not be marked decompressed")
	}
	if !bytes.Equal(entry.Data, corrupt) {
		t.Error("corrupt entry should keep its original bytes")
	}
	if entry.Compression != CompressionGzip {
		t.Errorf("declared compression = %v, want gzip", entry.Compression)
	}
}

func TestIngestRequiresManifest(t *testing.T) {
	archive := buildZip(t, map[string][]byte{
		"index.html": []byte("<html></html>"),
	})

	_, err := Ingest(archive, testLogger())
	if !errors.Is(err, ErrManifestMissing) {
		t.Fatalf("Ingest error = %v, want ErrManifestMissing", err)
	}
}

func TestIngestRequiresEntryDocument(t *testing.T) {
	archive := buildZip(t, map[string][]byte{
		"homa_config.json": []byte(testManifest),
		"readme.txt":       []byte("no html here"),
	})

	_, err := Ingest(archive, testLogger())
	if !errors.Is(err, ErrNoEntryPoint) {
		t.Fatalf("Ingest error = %v, want ErrNoEntryPoint", err)
	}
}

func TestIngestRejectsBadManifest(t *testing.T) {
	archive := buildZip(t, map[string][]byte{
		"index.html":       []byte("<html></html>"),
		"homa_config.json": []byte(`{"variables": [{"name": "x", "type": "mystery", "value": ""}]}`),
	})

	if _, err := Ingest(archive, testLogger()); err == nil {
		t.Fatal("Ingest should fail on a malformed manifest")
	}
}

func TestEntryDocumentSelection(t *testing.T) {
	t.Run("canonical_name_wins", func(t *testing.T) {
		archive := buildZip(t, map[string][]byte{
			"about.html":       []byte("<html></html>"),
			"index.html":       []byte("<html></html>"),
			"homa_config.json": []byte(testManifest),
		})
		bundle, err := Ingest(archive, testLogger())
		if err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}
		if bundle.EntryPath != "index.html" {
			t.Errorf("EntryPath = %q, want index.html", bundle.EntryPath)
		}
	})

	t.Run("fallback_is_lexicographic", func(t *testing.T) {
		archive := buildZip(t, map[string][]byte{
			"zebra.html":       []byte("<html></html>"),
			"alpha.html":       []byte("<html></html>"),
			"homa_config.json": []byte(testManifest),
		})
		bundle, err := Ingest(archive, testLogger())
		if err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}
		if bundle.EntryPath != "alpha.html" {
			t.Errorf("EntryPath = %q, want alpha.html", bundle.EntryPath)
		}
	})

	t.Run("nested_canonical_name", func(t *testing.T) {
		paths := []string{"dist/index.html", "aaa.html"}
		selected, err := FindEntryDocument(paths)
		if err != nil {
			t.Fatalf("FindEntryDocument failed: %v", err)
		}
		if selected != "dist/index.html" {
			t.Errorf("selected = %q, want dist/index.html", selected)
		}
	})
}

func TestIngestRewritesEntryDocument(t *testing.T) {
	t.Run("inserted_before_head_close", func(t *testing.T) {
		archive := buildZip(t, map[string][]byte{
			"index.html":       []byte("<html><HEAD><title>g</title></HEAD><body></body></html>"),
			"homa_config.json": []byte(testManifest),
		})
		bundle, err := Ingest(archive, testLogger())
		if err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}

		document := string(bundle.Entries["index.html"].Data)
		styleIndex := strings.Index(document, "height:100%!important")
		headCloseIndex := strings.Index(strings.ToLower(document), "</head>")
		if styleIndex < 0 {
			t.Fatal("viewport style not injected")
		}
		if headCloseIndex < 0 || styleIndex > headCloseIndex {
			t.Error("viewport style not placed before </head>")
		}
	})

	t.Run("prepended_without_head", func(t *testing.T) {
		archive := buildZip(t, map[string][]byte{
			"index.html":       []byte("<canvas></canvas>"),
			"homa_config.json": []byte(testManifest),
		})
		bundle, err := Ingest(archive, testLogger())
		if err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}
		if !strings.HasPrefix(string(bundle.Entries["index.html"].Data), "<style>") {
			t.Error("viewport style should be prepended when no </head> exists")
		}
	})
}

func TestCleanPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"Build/game.wasm.gz", "Build/game.wasm"},
		{"Build/game.framework.js.br", "Build/game.framework.js"},
		{"index.html", "index.html"},
	}
	for _, tt := range tests {
		if got := CleanPath(tt.path); got != tt.want {
			t.Errorf("CleanPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"index.html", "text/html"},
		{"Build/game.loader.js", "application/javascript"},
		{"style.css", "text/css"},
		{"Build/game.wasm", "application/wasm"},
		{"Build/game.data", "application/octet-stream"},
		{"homa_config.json", "application/json"},
		{"mystery.bin", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := ContentTypeFor(tt.path); got != tt.want {
			t.Errorf("ContentTypeFor(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
