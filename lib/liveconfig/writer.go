// Copyright 2026 The Playable Authors
// SPDX-License-Identifier: Apache-2.0

// Package liveconfig writes the editor's variable snapshots into the
// blob store and drives the preview frame's reload cycle.
//
// Every edit is written to the store immediately — the next preview
// request always sees the latest values because injection happens at
// serve time. Only the reload notification is debounced: rapid
// successive edits coalesce into one reload after a quiescence
// window, so a user dragging a slider does not flood the frame with
// reload storms.
package liveconfig

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/playable-foundation/playable/lib/blobstore"
	"github.com/playable-foundation/playable/lib/manifest"
)

// DefaultDebounceWindow is the quiescence window before a reload
// notification fires. Long enough to ride out slider drags, short
// enough to feel immediate.
const DefaultDebounceWindow = 300 * time.Millisecond

// Writer serializes live variable snapshots into the store under the
// fixed configuration path and emits debounced reload notifications.
// It is the only writer of that path.
type Writer struct {
	store    *blobstore.Store
	logger   *slog.Logger
	window   time.Duration
	onReload func(namespace string)

	// mu guards timers. One pending timer per namespace: a new
	// write while a timer is pending resets it instead of stacking
	// another reload.
	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

// New creates a writer. onReload is called (on a timer goroutine)
// once per quiescent burst of writes to a namespace; it must not
// block. A zero window uses DefaultDebounceWindow.
func New(store *blobstore.Store, onReload func(namespace string), window time.Duration, logger *slog.Logger) *Writer {
	if store == nil {
		panic("liveconfig.New: store is required")
	}
	if onReload == nil {
		panic("liveconfig.New: onReload is required")
	}
	if logger == nil {
		panic("liveconfig.New: logger is required")
	}
	if window == 0 {
		window = DefaultDebounceWindow
	}
	return &Writer{
		store:    store,
		logger:   logger,
		window:   window,
		onReload: onReload,
		timers:   make(map[string]*time.Timer),
	}
}

// Write stores a live configuration snapshot for the namespace and
// schedules a debounced reload. The store write is synchronous; only
// the reload notification is deferred.
func (w *Writer) Write(ctx context.Context, namespace string, values []manifest.LiveValue) error {
	document := &manifest.LiveDocument{Variables: values}
	data, err := document.Encode()
	if err != nil {
		return err
	}

	if err := w.store.Put(ctx, namespace, manifest.FileName, data, "application/json"); err != nil {
		return fmt.Errorf("writing live configuration: %w", err)
	}

	w.scheduleReload(namespace)
	return nil
}

func (w *Writer) scheduleReload(namespace string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if timer, ok := w.timers[namespace]; ok {
		timer.Reset(w.window)
		return
	}
	w.timers[namespace] = time.AfterFunc(w.window, func() {
		w.mu.Lock()
		delete(w.timers, namespace)
		closed := w.closed
		w.mu.Unlock()
		if closed {
			return
		}
		w.logger.Debug("live configuration quiesced, reloading preview", "namespace", namespace)
		w.onReload(namespace)
	})
}

// Close cancels all pending reload notifications. Writes after Close
// still reach the store but trigger no reloads.
func (w *Writer) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	for namespace, timer := range w.timers {
		timer.Stop()
		delete(w.timers, namespace)
	}
}
