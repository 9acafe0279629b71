// Copyright 2026 The Playable Authors
// SPDX-License-Identifier: Apache-2.0

// Package blobstore is the single storage abstraction shared by the
// preview server (read path) and the ingestion/live-config writers
// (write path). Blobs are opaque binary payloads keyed by
// (namespace, path), where a namespace is the per-project partition:
// no reader or writer ever crosses namespaces.
//
// The in-memory map is the authoritative read path; published Blob
// values are immutable, so a Get racing a Clear returns either the
// pre-clear value or ErrNotFound, never torn bytes. An optional disk
// root makes the store survive restarts: payloads are written as
// content-addressed object files (BLAKE3-named, lz4/zstd-compressed)
// with a deterministic CBOR index per namespace, temp-file + rename
// for atomicity.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zeebo/blake3"
)

// ErrNotFound is returned by Get when no blob exists at the key.
var ErrNotFound = errors.New("blob not found")

// ErrClosed is returned by mutations after Close.
var ErrClosed = errors.New("blob store is closed")

// Blob is one stored payload. Values are immutable once published:
// overwriting a key installs a new Blob, it never mutates an old one.
type Blob struct {
	// Data is the payload.
	Data []byte

	// ContentType is the type declared when the blob was stored.
	ContentType string

	// Hash is the BLAKE3 hash of Data. Doubles as the object file
	// name on disk and the ETag on the serving path.
	Hash [32]byte
}

type blobKey struct {
	namespace string
	path      string
}

// Store is a process-wide namespaced key-value blob store.
type Store struct {
	logger *slog.Logger

	// root is the disk directory, or "" for a memory-only store.
	root string

	// mu guards blobs and records. All mutation holds the write
	// lock, which also serializes the clear-then-put re-ingestion
	// flow per namespace in program order.
	mu      sync.RWMutex
	blobs   map[blobKey]*Blob
	records map[string]map[string]blobRecord // namespace → path → disk record
}

// NewStore opens a store. With a non-empty root the directory layout
// is created and every existing namespace index is loaded back into
// memory; with an empty root the store is memory-only (tests).
func NewStore(root string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		panic("blobstore.NewStore: logger is required")
	}

	store := &Store{
		logger:  logger,
		root:    root,
		blobs:   make(map[blobKey]*Blob),
		records: make(map[string]map[string]blobRecord),
	}

	if root != "" {
		if err := store.initDirs(); err != nil {
			return nil, err
		}
		if err := store.loadAll(); err != nil {
			return nil, err
		}
	}

	return store, nil
}

// Put stores a blob, replacing any existing blob at the same key.
// The replacement is atomic from a reader's perspective.
func (s *Store) Put(ctx context.Context, namespace, path string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if namespace == "" || path == "" {
		return fmt.Errorf("blobstore: namespace and path are required")
	}

	blob := &Blob{
		Data:        data,
		ContentType: contentType,
		Hash:        blake3.Sum256(data),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.blobs == nil {
		return ErrClosed
	}

	// Disk first: a crash between the object write and the map
	// update loses only an orphaned object file, never an index
	// entry pointing at a missing object.
	if s.root != "" {
		if err := s.persistPut(namespace, path, blob); err != nil {
			return fmt.Errorf("persisting blob %s/%s: %w", namespace, path, err)
		}
	}

	s.blobs[blobKey{namespace, path}] = blob
	return nil
}

// Get returns the blob at (namespace, path), or ErrNotFound.
func (s *Store) Get(ctx context.Context, namespace, path string) (*Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	blob, ok := s.blobs[blobKey{namespace, path}]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	return blob, nil
}

// Clear deletes every blob whose namespace matches. Safe to call
// concurrently with in-flight Gets for the same namespace: readers
// observe either the pre-clear blob or ErrNotFound.
func (s *Store) Clear(ctx context.Context, namespace string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.blobs == nil {
		return ErrClosed
	}

	for key := range s.blobs {
		if key.namespace == namespace {
			delete(s.blobs, key)
		}
	}

	if s.root != "" {
		if err := s.persistClear(namespace); err != nil {
			return fmt.Errorf("clearing namespace %s on disk: %w", namespace, err)
		}
	}
	delete(s.records, namespace)
	return nil
}

// Close releases the store's in-memory state. Writes are synchronous,
// so there is nothing to flush; persisted namespaces stay on disk for
// the next NewStore. Operations after Close return ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs = nil
	s.records = nil
	return nil
}

// Len reports the number of stored blobs in a namespace.
func (s *Store) Len(namespace string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for key := range s.blobs {
		if key.namespace == namespace {
			count++
		}
	}
	return count
}
