// Copyright 2026 The Playable Authors
// SPDX-License-Identifier: Apache-2.0

// Package export transcodes an original uploaded archive into
// network-specific packaging formats. Export always reads the
// immutable original archive bytes, never the live blob store, so
// concurrent exports share no mutable state and need no mutual
// exclusion.
package export

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/klauspost/compress/flate"

	"github.com/playable-foundation/playable/lib/manifest"
	"github.com/playable-foundation/playable/lib/webbundle"
)

// Request describes one export invocation.
type Request struct {
	// Target selects the packaging format.
	Target Target

	// Archive is the original uploaded archive, verbatim.
	Archive []byte

	// Values is the final variable snapshot baked into the
	// artifact's compatibility shim.
	Values []manifest.LiveValue

	// Name names the output: the re-root folder for zip-folder, the
	// document title for inline-html. Defaults to "playable".
	Name string
}

// Artifact is a transient export result, produced on demand and
// discarded after download.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// Transcoder produces export artifacts. Safe for concurrent use.
type Transcoder struct {
	ceilings map[Target]int64
	logger   *slog.Logger
}

// Config configures a Transcoder.
type Config struct {
	// Ceilings is the per-target byte ceiling; 0 disables
	// enforcement for a target. Nil means DefaultCeilings.
	Ceilings map[Target]int64

	// Logger is the structured logger. Required.
	Logger *slog.Logger
}

// NewTranscoder creates a transcoder.
func NewTranscoder(config Config) *Transcoder {
	if config.Logger == nil {
		panic("export.NewTranscoder: Logger is required")
	}
	ceilings := config.Ceilings
	if ceilings == nil {
		ceilings = DefaultCeilings()
	}
	return &Transcoder{ceilings: ceilings, logger: config.Logger}
}

// Export produces one artifact. Archive-structure errors are fatal
// and reported immediately; a ceiling violation is returned as a
// *SizeExceededError carrying the measured size.
func (t *Transcoder) Export(ctx context.Context, request Request) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := request.Name
	if name == "" {
		name = "playable"
	}

	switch request.Target {
	case TargetZipFolder:
		return t.exportZipFolder(request, name)
	case TargetInlineHTML:
		return t.exportInlineHTML(request, name)
	default:
		return nil, fmt.Errorf("unknown export target: %d", uint8(request.Target))
	}
}

// rawEntry is one archive entry as stored: the zip transport layer is
// undone, any per-entry payload compression (.gz/.br) is not.
type rawEntry struct {
	Path string
	Data []byte
}

func readRawEntries(archive []byte) ([]rawEntry, error) {
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	entries := make([]rawEntry, 0, len(reader.File))
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		fileReader, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("reading archive entry %q: %w", file.Name, err)
		}
		data, err := io.ReadAll(fileReader)
		fileReader.Close()
		if err != nil {
			return nil, fmt.Errorf("reading archive entry %q: %w", file.Name, err)
		}
		entries = append(entries, rawEntry{Path: file.Name, Data: data})
	}
	return entries, nil
}

// exportZipFolder re-roots every archive entry under a single named
// folder in a freshly built zip, renaming the entry document to
// <folder>.<ext> and injecting the compatibility shim into it.
func (t *Transcoder) exportZipFolder(request Request, name string) (*Artifact, error) {
	entries, err := readRawEntries(request.Archive)
	if err != nil {
		return nil, err
	}

	paths := make([]string, len(entries))
	for i, entry := range entries {
		paths[i] = entry.Path
	}
	entryPath, err := webbundle.FindEntryDocument(paths)
	if err != nil {
		return nil, err
	}

	shim, err := compatibilityShim(request.Values)
	if err != nil {
		return nil, fmt.Errorf("rendering shim: %w", err)
	}

	var buffer bytes.Buffer
	writer := zip.NewWriter(&buffer)
	// Maximum-ratio deflate: the artifact has a hard byte ceiling,
	// so compression effort is worth the CPU.
	writer.RegisterCompressor(zip.Deflate, func(output io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(output, flate.BestCompression)
	})

	extension := path.Ext(webbundle.CleanPath(entryPath))
	for _, entry := range entries {
		outputPath := name + "/" + entry.Path
		data := entry.Data

		if entry.Path == entryPath {
			outputPath = name + "/" + name + extension
			data = t.injectShim(entry, shim)
		}

		entryWriter, err := writer.CreateHeader(&zip.FileHeader{
			Name:   outputPath,
			Method: zip.Deflate,
		})
		if err != nil {
			return nil, fmt.Errorf("creating zip entry %q: %w", outputPath, err)
		}
		if _, err := entryWriter.Write(data); err != nil {
			return nil, fmt.Errorf("writing zip entry %q: %w", outputPath, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing zip: %w", err)
	}

	if err := t.checkCeiling(TargetZipFolder, int64(buffer.Len())); err != nil {
		return nil, err
	}

	return &Artifact{
		Name:        name + ".zip",
		ContentType: "application/zip",
		Data:        buffer.Bytes(),
	}, nil
}

// injectShim inserts the shim into the entry document. A compressed
// entry document that cannot be decompressed is logged and carried
// through unmodified rather than failing the whole export.
func (t *Transcoder) injectShim(entry rawEntry, shim string) []byte {
	document := entry.Data
	if compression := webbundle.DeclaredCompression(entry.Path); compression != webbundle.CompressionNone {
		plain, err := webbundle.Decompress(document, compression)
		if err != nil {
			t.logger.Warn("entry document decompression failed, exporting unmodified",
				"path", entry.Path, "error", err)
			return document
		}
		document = plain
	}
	return webbundle.InsertBeforeHeadClose(document, shim)
}

func (t *Transcoder) checkCeiling(target Target, size int64) error {
	ceiling := t.ceilings[target]
	if ceiling > 0 && size > ceiling {
		return &SizeExceededError{Target: target, Size: size, Ceiling: ceiling}
	}
	return nil
}
