// Copyright 2026 The Playable Authors
// SPDX-License-Identifier: Apache-2.0

package blobstore

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/playable-foundation/playable/lib/codec"
)

// Disk layout under the store root:
//
//	ns/<namespace-hash>.idx         CBOR namespace index
//	objects/<namespace-hash>/<hash> compressed payloads
//
// Object files are named by the BLAKE3 hash of the raw payload and
// live under their namespace's directory, so Clear is a single
// RemoveAll and namespaces never share disk state. Namespace
// directory names are hashes rather than the raw identifier so that
// arbitrary project identifiers cannot traverse out of the root.

const (
	indexDirName  = "ns"
	objectDirName = "objects"
	indexSuffix   = ".idx"
)

// blobRecord is one entry in a namespace index.
type blobRecord struct {
	Path        string   `cbor:"path"`
	ContentType string   `cbor:"content_type"`
	Compression uint8    `cbor:"compression"`
	RawSize     int64    `cbor:"raw_size"`
	RawHash     [32]byte `cbor:"raw_hash"`
}

// namespaceIndex is the on-disk index document. It records the raw
// namespace string so loadAll can rebuild keys from hashed directory
// names.
type namespaceIndex struct {
	Namespace string       `cbor:"namespace"`
	Entries   []blobRecord `cbor:"entries"`
}

func namespaceHash(namespace string) string {
	sum := blake3.Sum256([]byte(namespace))
	return hex.EncodeToString(sum[:])
}

func (s *Store) initDirs() error {
	for _, dir := range []string{indexDirName, objectDirName} {
		if err := os.MkdirAll(filepath.Join(s.root, dir), 0o755); err != nil {
			return fmt.Errorf("creating store directory: %w", err)
		}
	}
	return nil
}

// persistPut writes the object file and rewrites the namespace
// index. Caller holds the store write lock.
func (s *Store) persistPut(namespace, path string, blob *Blob) error {
	stored, tag := compressPayload(blob.Data, blob.ContentType)

	objectDir := filepath.Join(s.root, objectDirName, namespaceHash(namespace))
	if err := os.MkdirAll(objectDir, 0o755); err != nil {
		return fmt.Errorf("creating object directory: %w", err)
	}

	objectPath := filepath.Join(objectDir, hex.EncodeToString(blob.Hash[:]))
	if _, err := os.Stat(objectPath); os.IsNotExist(err) {
		if err := writeFileAtomic(objectPath, stored); err != nil {
			return fmt.Errorf("writing object: %w", err)
		}
	}

	records := s.records[namespace]
	if records == nil {
		records = make(map[string]blobRecord)
		s.records[namespace] = records
	}
	records[path] = blobRecord{
		Path:        path,
		ContentType: blob.ContentType,
		Compression: uint8(tag),
		RawSize:     int64(len(blob.Data)),
		RawHash:     blob.Hash,
	}

	return s.writeIndex(namespace)
}

// persistClear removes the namespace's index and object directory.
// Caller holds the store write lock.
func (s *Store) persistClear(namespace string) error {
	hash := namespaceHash(namespace)
	if err := os.Remove(filepath.Join(s.root, indexDirName, hash+indexSuffix)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing index: %w", err)
	}
	if err := os.RemoveAll(filepath.Join(s.root, objectDirName, hash)); err != nil {
		return fmt.Errorf("removing objects: %w", err)
	}
	return nil
}

// writeIndex serializes a namespace's records deterministically and
// replaces the index file atomically. Caller holds the write lock.
func (s *Store) writeIndex(namespace string) error {
	records := s.records[namespace]
	index := namespaceIndex{
		Namespace: namespace,
		Entries:   make([]blobRecord, 0, len(records)),
	}
	// Sorted by path: codec encoding is deterministic, so the
	// entry order must be too.
	paths := make([]string, 0, len(records))
	for path := range records {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		index.Entries = append(index.Entries, records[path])
	}

	data, err := codec.Marshal(index)
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}

	indexPath := filepath.Join(s.root, indexDirName, namespaceHash(namespace)+indexSuffix)
	if err := writeFileAtomic(indexPath, data); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return nil
}

// loadAll reads every namespace index and its objects back into
// memory. Records whose object file is missing or whose payload no
// longer matches its recorded hash are skipped with a warning — a
// damaged entry must not prevent the rest of the store from loading.
func (s *Store) loadAll() error {
	indexDir := filepath.Join(s.root, indexDirName)
	entries, err := os.ReadDir(indexDir)
	if err != nil {
		return fmt.Errorf("reading index directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), indexSuffix) {
			continue
		}
		if err := s.loadNamespace(filepath.Join(indexDir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) loadNamespace(indexPath string) error {
	data, err := os.ReadFile(indexPath)
	if err != nil {
		return fmt.Errorf("reading index %s: %w", indexPath, err)
	}

	var index namespaceIndex
	if err := codec.Unmarshal(data, &index); err != nil {
		return fmt.Errorf("decoding index %s: %w", indexPath, err)
	}

	objectDir := filepath.Join(s.root, objectDirName, namespaceHash(index.Namespace))
	records := make(map[string]blobRecord, len(index.Entries))

	for _, record := range index.Entries {
		objectPath := filepath.Join(objectDir, hex.EncodeToString(record.RawHash[:]))
		stored, err := os.ReadFile(objectPath)
		if err != nil {
			s.logger.Warn("blob object missing, skipping entry",
				"namespace", index.Namespace, "path", record.Path, "error", err)
			continue
		}

		raw, err := decompressPayload(stored, compressionTag(record.Compression), int(record.RawSize))
		if err != nil {
			s.logger.Warn("blob object corrupt, skipping entry",
				"namespace", index.Namespace, "path", record.Path, "error", err)
			continue
		}

		hash := blake3.Sum256(raw)
		if hash != record.RawHash {
			s.logger.Warn("blob object hash mismatch, skipping entry",
				"namespace", index.Namespace, "path", record.Path)
			continue
		}

		s.blobs[blobKey{index.Namespace, record.Path}] = &Blob{
			Data:        raw,
			ContentType: record.ContentType,
			Hash:        hash,
		}
		records[record.Path] = record
	}

	if len(records) > 0 {
		s.records[index.Namespace] = records
	}
	return nil
}

// writeFileAtomic writes data to a temp file in the target directory
// and renames it into place. Readers never observe a partial file.
func writeFileAtomic(path string, data []byte) error {
	temp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tempName := temp.Name()

	if _, err := temp.Write(data); err != nil {
		temp.Close()
		os.Remove(tempName)
		return err
	}
	if err := temp.Close(); err != nil {
		os.Remove(tempName)
		return err
	}
	if err := os.Rename(tempName, path); err != nil {
		os.Remove(tempName)
		return err
	}
	return nil
}
