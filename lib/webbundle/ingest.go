// Copyright 2026 The Playable Authors
// SPDX-License-Identifier: Apache-2.0

// Package webbundle ingests uploaded WebGL build archives. Ingestion
// unpacks the zip stream, decompresses per-entry payloads, classifies
// content types, rewrites the entry document for full-viewport
// rendering, and parses the embedded manifest. It is a pure function
// over the archive bytes: storing the result is the caller's job,
// which keeps ingestion testable in isolation.
package webbundle

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/playable-foundation/playable/lib/manifest"
)

// EntryDocumentName is the canonical name of the document a consumer
// loads first. Selection falls back to any .html entry when the
// canonical name is absent.
const EntryDocumentName = "index.html"

var (
	// ErrManifestMissing is returned when the archive carries no
	// manifest. Ingestion aborts entirely; there is no partial
	// result.
	ErrManifestMissing = errors.New("bundle manifest " + manifest.FileName + " not found in archive")

	// ErrNoEntryPoint is returned when no entry document can be
	// selected.
	ErrNoEntryPoint = errors.New("no entry document found in archive")
)

// viewportStyle forces the runtime's container and canvas to fill the
// viewport. The generated page hardcodes a fixed pixel resolution
// otherwise, which breaks device-frame previews.
const viewportStyle = `<style>` +
	`html,body{margin:0;padding:0;width:100%;height:100%;overflow:hidden}` +
	`#unity-container{position:absolute;width:100%;height:100%}` +
	`#unity-canvas,canvas{width:100%!important;height:100%!important;display:block}` +
	`</style>`

// Entry is one ingested archive entry, keyed by its original archive
// path (still carrying any compression suffix).
type Entry struct {
	// Path is the archive-relative path, verbatim.
	Path string

	// Data is the payload: decompressed when the declared
	// compression could be reversed, otherwise the original bytes.
	Data []byte

	// ContentType is derived from the cleaned path.
	ContentType string

	// Compression is the compression the path suffix declares.
	Compression Compression

	// Decompressed reports whether Data is the decompressed
	// payload. False with a non-none Compression means the entry
	// was kept as its original compressed bytes (best-effort
	// fallback, visible to callers rather than silently swallowed).
	Decompressed bool
}

// Bundle is the result of ingesting an archive.
type Bundle struct {
	// EntryPath is the archive path of the entry document.
	EntryPath string

	// Entries maps archive path → ingested entry.
	Entries map[string]Entry

	// Manifest is the parsed variable declaration contract.
	Manifest *manifest.Manifest
}

// Ingest unpacks a zip archive into a Bundle. The manifest and an
// entry document are required; per-entry decompression failures are
// logged and degrade to the original bytes.
func Ingest(archive []byte, logger *slog.Logger) (*Bundle, error) {
	if logger == nil {
		panic("webbundle.Ingest: logger is required")
	}

	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	bundle := &Bundle{Entries: make(map[string]Entry, len(reader.File))}
	var manifestData []byte

	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}

		payload, err := readZipEntry(file)
		if err != nil {
			return nil, fmt.Errorf("reading archive entry %q: %w", file.Name, err)
		}

		entry := ingestEntry(file.Name, payload, logger)
		bundle.Entries[entry.Path] = entry

		if path.Base(CleanPath(entry.Path)) == manifest.FileName {
			manifestData = entry.Data
		}
	}

	if manifestData == nil {
		return nil, ErrManifestMissing
	}
	parsed, err := manifest.Parse(manifestData)
	if err != nil {
		return nil, err
	}
	bundle.Manifest = parsed

	entryPath, err := findEntryDocument(bundle.Entries)
	if err != nil {
		return nil, err
	}
	bundle.EntryPath = entryPath

	// Rewrite the entry document for full-viewport rendering.
	entryDocument := bundle.Entries[entryPath]
	entryDocument.Data = InsertBeforeHeadClose(entryDocument.Data, viewportStyle)
	bundle.Entries[entryPath] = entryDocument

	return bundle, nil
}

// ingestEntry decompresses a single entry payload according to its
// declared compression. A decompression failure is non-fatal: some
// runtimes cannot reverse every brotli stream, and a still-compressed
// payload is still servable with the right content type.
func ingestEntry(entryPath string, payload []byte, logger *slog.Logger) Entry {
	compression := DeclaredCompression(entryPath)
	entry := Entry{
		Path:        entryPath,
		Data:        payload,
		ContentType: ContentTypeFor(CleanPath(entryPath)),
		Compression: compression,
	}

	if compression == CompressionNone {
		return entry
	}

	plain, err := Decompress(payload, compression)
	if err != nil {
		logger.Warn("entry decompression failed, keeping original bytes",
			"path", entryPath,
			"compression", compression.String(),
			"error", err,
		)
		return entry
	}

	entry.Data = plain
	entry.Decompressed = true
	return entry
}

// findEntryDocument selects the entry document from the ingested
// entries: the canonical index.html if present, otherwise the
// lexicographically smallest .html entry. Lexicographic order makes
// the fallback deterministic when an archive carries several HTML
// files.
func findEntryDocument(entries map[string]Entry) (string, error) {
	paths := make([]string, 0, len(entries))
	for entryPath := range entries {
		paths = append(paths, entryPath)
	}
	return FindEntryDocument(paths)
}

// FindEntryDocument selects the entry document from a set of archive
// paths. Exported for the export transcoder, which works over raw
// archive entries rather than ingested bundles.
func FindEntryDocument(paths []string) (string, error) {
	sort.Strings(paths)

	for _, entryPath := range paths {
		cleaned := CleanPath(entryPath)
		if cleaned == EntryDocumentName || strings.HasSuffix(cleaned, "/"+EntryDocumentName) {
			return entryPath, nil
		}
	}
	for _, entryPath := range paths {
		if strings.HasSuffix(CleanPath(entryPath), ".html") {
			return entryPath, nil
		}
	}
	return "", ErrNoEntryPoint
}

func readZipEntry(file *zip.File) ([]byte, error) {
	reader, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}
